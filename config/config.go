// Package config assembles an eventrouter.Options value from a host-side
// configuration file. It is purely a convenience for wiring up a Router at
// program startup; the core dispatch engine never parses a file format
// itself.
package config

import (
	"fmt"
	"reflect"

	"github.com/golobby/cast"

	"github.com/linkmonitor/eventrouter"
)

// RouterConfig is the file-shaped description of a Router: which backend to
// run, the routable event type range, and the task/module partition. Field
// values that might arrive from an environment-style string source (queue
// capacities) are coerced permissively, accepting either a native type or
// its string form.
type RouterConfig struct {
	Backend        string           `yaml:"backend" toml:"backend"`
	EventTypeFirst int              `yaml:"event_type_first" toml:"event_type_first"`
	EventTypeLast  int              `yaml:"event_type_last" toml:"event_type_last"`
	Tasks          []TaskConfigSpec `yaml:"tasks" toml:"tasks"`
}

// TaskConfigSpec describes one task. Modules names mod names against the
// handlers map passed to ToOptions; this is how a config file can describe
// topology without the file format needing to express Go function values.
type TaskConfigSpec struct {
	Name          string   `yaml:"name" toml:"name"`
	QueueCapacity any      `yaml:"queue_capacity" toml:"queue_capacity"`
	Modules       []string `yaml:"modules" toml:"modules"`
}

// ToOptions builds an eventrouter.Options and resolves the chosen backend
// from c, looking up each configured module name in handlers. It returns an
// error (not a panic) because, unlike the core's own contract violations,
// a malformed config file is an ordinary, recoverable input error.
func (c *RouterConfig) ToOptions(handlers map[string]eventrouter.EventHandler) (eventrouter.Backend, eventrouter.Options, error) {
	backend, err := parseBackend(c.Backend)
	if err != nil {
		return 0, eventrouter.Options{}, err
	}

	opts := eventrouter.Options{
		EventTypeFirst: eventrouter.EventType(c.EventTypeFirst),
		EventTypeLast:  eventrouter.EventType(c.EventTypeLast),
	}

	for _, tc := range c.Tasks {
		cap, err := coerceInt(tc.QueueCapacity)
		if err != nil {
			return 0, eventrouter.Options{}, fmt.Errorf("config: task %q queue_capacity: %w", tc.Name, err)
		}

		task := eventrouter.TaskConfig{Name: tc.Name, QueueCapacity: cap}
		for _, name := range tc.Modules {
			handler, ok := handlers[name]
			if !ok {
				return 0, eventrouter.Options{}, fmt.Errorf("config: task %q references unknown module %q", tc.Name, name)
			}
			task.Modules = append(task.Modules, eventrouter.ModuleConfig{Name: name, Handler: handler})
		}
		opts.Tasks = append(opts.Tasks, task)
	}

	return backend, opts, nil
}

func parseBackend(name string) (eventrouter.Backend, error) {
	switch name {
	case "preemptive", "":
		return eventrouter.Preemptive, nil
	case "blocking-queues", "blocking_queues":
		return eventrouter.BlockingQueues, nil
	case "cooperative":
		return eventrouter.Cooperative, nil
	default:
		return 0, fmt.Errorf("config: unknown backend %q", name)
	}
}

// coerceInt accepts an int (the common case, a native YAML/TOML integer)
// or a string (an env-sourced override, e.g. "${QUEUE_CAP:-16}" expanded
// upstream to a literal string) and returns an int either way.
func coerceInt(v any) (int, error) {
	switch n := v.(type) {
	case nil:
		return 0, nil
	case int:
		return n, nil
	case int64:
		return int(n), nil
	case string:
		converted, err := cast.FromType(n, reflect.TypeOf(int(0)))
		if err != nil {
			return 0, fmt.Errorf("cannot coerce %q to int: %w", n, err)
		}
		return converted.(int), nil
	default:
		return 0, fmt.Errorf("unsupported queue_capacity value %v (%T)", v, v)
	}
}
