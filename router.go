package eventrouter

import (
	"context"
	"fmt"
	"time"
)

// Router is the subset of behavior common to every backend: subscription
// management, inspecting in-flight state, and teardown. Producer and
// consumer APIs differ enough between the queue-based backends and the
// Cooperative backend that they live on the concrete backend types
// instead (*PreemptiveRouter, *BlockingQueuesRouter, *CooperativeRouter).
type Router interface {
	// Subscribe registers mod's interest in typ. callerTask must be mod's
	// owning task.
	Subscribe(mod ModuleHandle, callerTask TaskHandle, typ EventType) (Subscription, error)

	// Unsubscribe revokes a Subscription returned by Subscribe. callerTask
	// must be the subscribing module's owning task.
	Unsubscribe(callerTask TaskHandle, sub Subscription) error

	// EventIsInFlight reports whether e is currently owned by the router.
	EventIsInFlight(e *Event) bool

	// Deinit tears down the router. It asserts if called before a
	// successful New* call, or more than once.
	Deinit() error
}

// deinitState tracks the fail-fast teardown lifecycle: a router must
// refuse a double Deinit rather than silently succeeding.
type deinitState struct {
	deinited bool
}

func (s *deinitState) markDeinited(logger Logger) {
	assertf(logger, !s.deinited, ErrAlreadyDeinitialized, "eventrouter: Deinit called twice")
	s.deinited = true
}

func resolveLogger(l Logger) Logger {
	if l == nil {
		return noopLogger{}
	}
	return l
}

// New builds a Router using the backend named in opts. This is the single
// entry point a host application needs; the three concrete constructors
// (NewPreemptiveRouter, NewBlockingQueuesRouter, NewCooperativeRouter)
// remain available for callers that want the backend-specific producer API
// without a type assertion.
func New(backend Backend, opts Options) (Router, error) {
	switch backend {
	case Preemptive:
		return NewPreemptiveRouter(opts)
	case BlockingQueues:
		return NewBlockingQueuesRouter(opts)
	case Cooperative:
		return NewCooperativeRouter(opts)
	default:
		return nil, fmt.Errorf("eventrouter: unknown backend %d", backend)
	}
}

// runLoop is the shared "pop from this task's queue, call CallHandlers"
// driver for the Preemptive and BlockingQueues backends. It returns when
// ctx is cancelled or the task's queue is closed.
func runLoop(ctx context.Context, core *dispatchCore, task TaskHandle) error {
	q := core.queues[task]
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		e, ok := q.TimedPop(50 * time.Millisecond)
		if !ok {
			switch cq := q.(type) {
			case *ChannelQueue:
				select {
				case <-cq.closed:
					return nil
				default:
				}
			case *CondQueue:
				cq.mu.Lock()
				closed := cq.closed
				cq.mu.Unlock()
				if closed {
					return nil
				}
			}
			continue
		}
		if err := core.CallHandlers(task, e); err != nil {
			return err
		}
	}
}
