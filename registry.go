package eventrouter

import "fmt"

// moduleRecord is the registry's internal, immutable-after-build view of a
// configured module. It resolves a ModuleHandle to its handler and to the
// task that owns it, per the module-identity design note: handles are
// small integer indices, never raw pointers.
type moduleRecord struct {
	name    string
	handler EventHandler
	task    TaskHandle
}

// taskRecord is the registry's internal view of a configured task.
type taskRecord struct {
	name    string
	modules []ModuleHandle
}

// registry is the frozen configuration shared by every backend: the set of
// modules, their partition into tasks, and the event-type range. It is
// built once at construction and never mutated afterward.
type registry struct {
	eventFirst EventType
	eventLast  EventType

	modules []moduleRecord
	tasks   []taskRecord

	subs *SubscriptionMatrix
}

// eventTypeCount returns the number of routable event types.
func (r *registry) eventTypeCount() int {
	return int(r.eventLast-r.eventFirst) + 1
}

// typeIndex maps an EventType onto a zero-based column index into the
// SubscriptionMatrix, reporting false if it falls outside [First, Last].
func (r *registry) typeIndex(t EventType) (int, bool) {
	if t < r.eventFirst || t > r.eventLast {
		return 0, false
	}
	return int(t - r.eventFirst), true
}

func buildRegistry(opts *Options) (*registry, error) {
	if err := opts.validate(); err != nil {
		return nil, err
	}

	r := &registry{
		eventFirst: opts.EventTypeFirst,
		eventLast:  opts.EventTypeLast,
	}

	for taskIdx, tc := range opts.Tasks {
		tr := taskRecord{name: tc.Name}
		if tr.name == "" {
			tr.name = fmt.Sprintf("task-%d", taskIdx)
		}
		for _, mc := range tc.Modules {
			mh := ModuleHandle(len(r.modules))
			name := mc.Name
			if name == "" {
				name = fmt.Sprintf("module-%d", mh)
			}
			r.modules = append(r.modules, moduleRecord{
				name:    name,
				handler: mc.Handler,
				task:    TaskHandle(taskIdx),
			})
			tr.modules = append(tr.modules, mh)
		}
		r.tasks = append(r.tasks, tr)
	}

	r.subs = newSubscriptionMatrix(len(r.modules), len(r.tasks), r.eventTypeCount())
	return r, nil
}

func (r *registry) module(h ModuleHandle) (*moduleRecord, bool) {
	if h < 0 || int(h) >= len(r.modules) {
		return nil, false
	}
	return &r.modules[h], true
}

func (r *registry) task(h TaskHandle) (*taskRecord, bool) {
	if h < 0 || int(h) >= len(r.tasks) {
		return nil, false
	}
	return &r.tasks[h], true
}
