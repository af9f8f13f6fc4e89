package eventrouter

import (
	"context"
	"time"
)

// PreemptiveRouter is the Preemptive backend: each task owns a
// ChannelQueue serviced by its own run loop, and any task (or an ISR, per
// Options.IsISR) may call Send. Delivery order within Send's dispatch step
// follows task configuration order, i.e. static priority, highest first.
type PreemptiveRouter struct {
	core *dispatchCore
	deinitState
}

// NewPreemptiveRouter builds a PreemptiveRouter from opts. Each task gets a
// ChannelQueue sized by its TaskConfig.QueueCapacity (0 defaults to 1).
func NewPreemptiveRouter(opts Options) (*PreemptiveRouter, error) {
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
		queues[i] = NewChannelQueue(cap)
	}

	logger := resolveLogger(opts.Logger)
	r := &PreemptiveRouter{
		core: &dispatchCore{
			reg:      reg,
			queues:   queues,
			logger:   logger,
			observer: opts.Observer,
			isISR:    opts.IsISR,
		},
	}
	notify(opts.Observer, logger, EventTypeRouterStarted, map[string]any{"backend": "preemptive", "tasks": len(reg.tasks)})
	return r, nil
}

// Send implements the Producer API. from is the TaskHandle the caller
// is running in; it is ignored when Options.IsISR reports the current
// context is an ISR.
func (r *PreemptiveRouter) Send(from TaskHandle, e *Event) error {
	return r.core.Send(e, from)
}

// SendEx implements the Producer API with explicit resend control.
func (r *PreemptiveRouter) SendEx(from TaskHandle, e *Event, allowResending bool) error {
	return r.core.SendEx(e, from, allowResending)
}

// TryClaim attempts to claim e's payload for exclusive mutation ahead of a
// Send from a task other than e's producer. See Event.TryClaim.
func (r *PreemptiveRouter) TryClaim(e *Event) bool {
	return e.TryClaim()
}

// EventIsInFlight reports whether e is currently owned by the router.
func (r *PreemptiveRouter) EventIsInFlight(e *Event) bool {
	return e.IsInFlight()
}

// Receive blocks until task's queue yields an event.
func (r *PreemptiveRouter) Receive(task TaskHandle) (*Event, bool) {
	return r.core.queues[task].Pop()
}

// TimedReceive blocks up to d for task's queue to yield an event.
func (r *PreemptiveRouter) TimedReceive(task TaskHandle, d time.Duration) (*Event, bool) {
	return r.core.queues[task].TimedPop(d)
}

// CallHandlers delivers a received event to every subscribed handler and
// then returns it towards its producer. Most callers should prefer Run,
// which does this in a loop.
func (r *PreemptiveRouter) CallHandlers(task TaskHandle, e *Event) error {
	return r.core.CallHandlers(task, e)
}

// ReturnToSender is called by a handler that previously returned Kept.
func (r *PreemptiveRouter) ReturnToSender(task TaskHandle, e *Event) error {
	return r.core.ReturnToSender(task, e)
}

// Run drives task's loop: pop, CallHandlers, repeat, until ctx is
// cancelled or the task's queue is closed.
func (r *PreemptiveRouter) Run(ctx context.Context, task TaskHandle) error {
	return runLoop(ctx, r.core, task)
}

// Subscribe registers mod's interest in typ; callerTask must be mod's task.
func (r *PreemptiveRouter) Subscribe(mod ModuleHandle, callerTask TaskHandle, typ EventType) (Subscription, error) {
	return subscribeModule(r.core.reg, r.core.logger, r.core.observer, mod, callerTask, typ)
}

// Unsubscribe revokes a Subscription; callerTask must be the subscribing
// module's task.
func (r *PreemptiveRouter) Unsubscribe(callerTask TaskHandle, sub Subscription) error {
	return unsubscribeModule(r.core.reg, r.core.logger, r.core.observer, callerTask, sub)
}

// Deinit tears down every task queue. It asserts if called twice. Callers
// must not Deinit while events are in flight; behavior is undefined
// otherwise.
func (r *PreemptiveRouter) Deinit() error {
	r.markDeinited(r.core.logger)
	for _, q := range r.core.queues {
		q.Close()
	}
	notify(r.core.observer, r.core.logger, EventTypeRouterStopped, map[string]any{"backend": "preemptive"})
	return nil
}
