package eventrouter

// Backend selects which concurrency strategy a Router uses. All three
// backends expose the same Router interface; only their internal dispatch
// and queueing differ.
type Backend int

const (
	// Preemptive gives each task a blocking queue serviced by its own
	// goroutine (or OS thread, conceptually); ISRs (or any non-owning
	// context) may still call Send.
	Preemptive Backend = iota

	// BlockingQueues uses the same dispatch algorithm as Preemptive, but
	// its queues are mutex+condvar ring buffers instead of Go channels.
	// Intended for hosted OS threads with no ISR concept.
	BlockingQueues

	// Cooperative runs every module on a single execution context with
	// no preemption; Send places events on a "deliver-next" list drained
	// by repeated NewLoop/GetEventToDeliver calls.
	Cooperative
)

// ModuleConfig describes one module to be registered at Init.
type ModuleConfig struct {
	// Name is used only for diagnostics (logging, observability events).
	Name string

	// Handler receives events this module produces (as its
	// return-to-sender callback) and events of types it subscribes to.
	Handler EventHandler
}

// TaskConfig describes one task and the modules it owns. Tasks are
// serviced in the order they appear in Options.Tasks: for the Preemptive
// and BlockingQueues backends this is priority order (highest first) used
// to decide dispatch order in Send; for Cooperative it is simply
// evaluation order within the single loop.
type TaskConfig struct {
	// Name is used only for diagnostics.
	Name string

	// Modules lists the modules owned by this task, in configuration
	// order; CallHandlers delivers to them in this order.
	Modules []ModuleConfig

	// QueueCapacity bounds the task's delivery queue. Ignored by the
	// Cooperative backend, which has no queues.
	QueueCapacity int
}

// Options configures a Router at construction time. Configuration is
// frozen once a Router is built: there is no dynamic module or task
// registration afterward.
type Options struct {
	// EventTypeFirst and EventTypeLast bound the contiguous, inclusive
	// range of routable event types. EventTypeFirst-1 is reserved as the
	// Invalid sentinel and must never be used as a real type.
	EventTypeFirst EventType
	EventTypeLast  EventType

	// Tasks lists every task, in priority/evaluation order. At least one
	// task is required, and every task must own at least one module. The
	// Preemptive and BlockingQueues backends cap this at 32 tasks (the
	// dispatch mark is a 32-bit mask).
	Tasks []TaskConfig

	// IsISR reports whether the current call is happening from an
	// interrupt-like context that must never block. Preemptive and
	// BlockingQueues backends consult it on Send to choose a non-blocking
	// push. A nil IsISR is treated as "never an ISR".
	IsISR func() bool

	// Logger receives diagnostic context ahead of every fatal contract
	// violation, and (if Observer is also set) a Debug entry for each
	// Observer notification that fails. A nil Logger installs a no-op
	// implementation.
	Logger Logger

	// Observer, if non-nil, receives CloudEvents-shaped lifecycle
	// diagnostics: router started/stopped, subscribed/unsubscribed, and a
	// kept event still outstanding at Deinit. It never receives routed
	// event payloads.
	Observer Observer
}

const maxTasks = 32

func (o *Options) validate() error {
	if o.EventTypeFirst > o.EventTypeLast {
		return ErrInvalidEventRange
	}
	if len(o.Tasks) == 0 {
		return ErrNoTasks
	}
	if len(o.Tasks) > maxTasks {
		return ErrTooManyTasks
	}
	for _, t := range o.Tasks {
		if len(t.Modules) == 0 {
			return ErrTaskHasNoModules
		}
		for _, m := range t.Modules {
			if m.Handler == nil {
				return ErrNilHandler
			}
		}
	}
	return nil
}
