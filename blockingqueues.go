package eventrouter

import (
	"context"
	"time"
)

// BlockingQueuesRouter is the BlockingQueues backend: identical dispatch
// algorithm to PreemptiveRouter, but backed by CondQueue (mutex + condvar +
// ring buffer) instead of Go channels, for hosted OS threads with no ISR
// concept.
type BlockingQueuesRouter struct {
	core *dispatchCore
	deinitState
}

// NewBlockingQueuesRouter builds a BlockingQueuesRouter from opts.
func NewBlockingQueuesRouter(opts Options) (*BlockingQueuesRouter, error) {
	reg, err := buildRegistry(&opts)
	if err != nil {
		return nil, err
	}

	queues := make([]Queue, len(opts.Tasks))
	for i, tc := range opts.Tasks {
		cap := tc.QueueCapacity
		if cap <= 0 {
			cap = 1
		}
		queues[i] = NewCondQueue(cap)
	}

	logger := resolveLogger(opts.Logger)
	r := &BlockingQueuesRouter{
		core: &dispatchCore{
			reg:      reg,
			queues:   queues,
			logger:   logger,
			observer: opts.Observer,
			isISR:    opts.IsISR,
		},
	}
	notify(opts.Observer, logger, EventTypeRouterStarted, map[string]any{"backend": "blocking-queues", "tasks": len(reg.tasks)})
	return r, nil
}

// Send implements the Producer API.
func (r *BlockingQueuesRouter) Send(from TaskHandle, e *Event) error {
	return r.core.Send(e, from)
}

// SendEx implements the Producer API with explicit resend control.
func (r *BlockingQueuesRouter) SendEx(from TaskHandle, e *Event, allowResending bool) error {
	return r.core.SendEx(e, from, allowResending)
}

// TryClaim attempts to claim e's payload ahead of a cross-task Send.
func (r *BlockingQueuesRouter) TryClaim(e *Event) bool {
	return e.TryClaim()
}

// EventIsInFlight reports whether e is currently owned by the router.
func (r *BlockingQueuesRouter) EventIsInFlight(e *Event) bool {
	return e.IsInFlight()
}

// Receive blocks until task's queue yields an event.
func (r *BlockingQueuesRouter) Receive(task TaskHandle) (*Event, bool) {
	return r.core.queues[task].Pop()
}

// TimedReceive blocks up to d for task's queue to yield an event.
func (r *BlockingQueuesRouter) TimedReceive(task TaskHandle, d time.Duration) (*Event, bool) {
	return r.core.queues[task].TimedPop(d)
}

// CallHandlers delivers a received event to every subscribed handler and
// then returns it towards its producer.
func (r *BlockingQueuesRouter) CallHandlers(task TaskHandle, e *Event) error {
	return r.core.CallHandlers(task, e)
}

// ReturnToSender is called by a handler that previously returned Kept.
func (r *BlockingQueuesRouter) ReturnToSender(task TaskHandle, e *Event) error {
	return r.core.ReturnToSender(task, e)
}

// Run drives task's loop until ctx is cancelled or its queue is closed.
func (r *BlockingQueuesRouter) Run(ctx context.Context, task TaskHandle) error {
	return runLoop(ctx, r.core, task)
}

// Subscribe registers mod's interest in typ; callerTask must be mod's task.
func (r *BlockingQueuesRouter) Subscribe(mod ModuleHandle, callerTask TaskHandle, typ EventType) (Subscription, error) {
	return subscribeModule(r.core.reg, r.core.logger, r.core.observer, mod, callerTask, typ)
}

// Unsubscribe revokes a Subscription; callerTask must be the subscribing
// module's task.
func (r *BlockingQueuesRouter) Unsubscribe(callerTask TaskHandle, sub Subscription) error {
	return unsubscribeModule(r.core.reg, r.core.logger, r.core.observer, callerTask, sub)
}

// Deinit tears down every task queue.
func (r *BlockingQueuesRouter) Deinit() error {
	r.markDeinited(r.core.logger)
	for _, q := range r.core.queues {
		q.Close()
	}
	notify(r.core.observer, r.core.logger, EventTypeRouterStopped, map[string]any{"backend": "blocking-queues"})
	return nil
}
