package eventrouter

import "fmt"

// CooperativeRouter is the Cooperative backend: a single execution context
// delivers events from a "deliver-now" list built, each loop iteration,
// from the previous loop's "deliver-next" list. There is no
// preemption and no queues; Send simply appends to deliver-next. This
// assumes a single logical thread of control: any interrupt-like context
// that calls Send is expected to do so with interrupts disabled, which is
// the caller's responsibility, not this type's.
type CooperativeRouter struct {
	reg      *registry
	logger   Logger
	observer Observer

	deliverNow      *Event
	deliverNext     *Event
	deliverNextTail *Event

	// kept tracks events a handler has KEPT but not yet returned, purely
	// for the Deinit diagnostic that flags a kept event never returned.
	kept map[*Event]struct{}

	deinitState
}

// NewCooperativeRouter builds a CooperativeRouter from opts. Cooperative
// routers run on a single execution context, so opts must describe exactly
// one task (its module list is the router's complete module set).
func NewCooperativeRouter(opts Options) (*CooperativeRouter, error) {
	if len(opts.Tasks) != 1 {
		return nil, fmt.Errorf("eventrouter: cooperative backend requires exactly one task, got %d", len(opts.Tasks))
	}
	reg, err := buildRegistry(&opts)
	if err != nil {
		return nil, err
	}

	logger := resolveLogger(opts.Logger)
	r := &CooperativeRouter{
		reg:      reg,
		logger:   logger,
		observer: opts.Observer,
		kept:     make(map[*Event]struct{}),
	}
	notify(opts.Observer, logger, EventTypeRouterStarted, map[string]any{"backend": "cooperative", "modules": len(reg.modules)})
	return r, nil
}

func (r *CooperativeRouter) appendDeliverNext(e *Event) {
	e.next = nil
	if r.deliverNextTail == nil {
		r.deliverNext = e
		r.deliverNextTail = e
		return
	}
	r.deliverNextTail.next = e
	r.deliverNextTail = e
}

// Send places e on the deliver-next list and bumps its ref count by one,
// the producer's own return reservation. No per-subscriber marking is
// needed since there is only one consumer context and no preemption to
// race against.
func (r *CooperativeRouter) Send(e *Event) error {
	assertf(r.logger, e != nil, ErrNilEvent, "eventrouter: Send called with a nil event")

	_, ok := r.reg.module(e.Producer())
	assertf(r.logger, ok, ErrModuleUnknown, "eventrouter: Send on event produced by unknown module %d", e.Producer())

	typeIdx, ok := r.reg.typeIndex(e.Type())
	assertf(r.logger, ok, ErrEventTypeInvalid, "eventrouter: Send on event with out-of-range type %v", e.Type())

	assertf(r.logger, !r.reg.subs.testModule(e.Producer(), typeIdx), ErrSelfSubscription,
		"eventrouter: module %d is subscribed to the type %v it produces", e.Producer(), e.Type())

	// Resending is not supported on this backend: an in-flight event is
	// already on a delivery list, and the intrusive link admits exactly
	// one list membership.
	assertf(r.logger, !e.IsInFlight(), ErrEventInFlight,
		"eventrouter: Send on in-flight event %v; the cooperative backend does not support resending", e.Type())

	e.addRefCount(1)
	r.appendDeliverNext(e)
	return nil
}

// SendEx is Send with explicit resend control, for signature parity with
// the queue-backed backends. This backend rejects AllowResending outright.
func (r *CooperativeRouter) SendEx(e *Event, allowResending bool) error {
	assertf(r.logger, !allowResending, ErrResendingNotAllowed,
		"eventrouter: the cooperative backend does not support resending")
	return r.Send(e)
}

// NewLoop promotes the deliver-next list built up since the last call to
// the deliver-now list, ready for repeated GetEventToDeliver calls.
func (r *CooperativeRouter) NewLoop() {
	r.deliverNow = r.deliverNext
	r.deliverNext = nil
	r.deliverNextTail = nil
}

// GetEventToDeliver pops the next event off the deliver-now list built by
// the last NewLoop call, or returns (nil, false) once it's empty.
func (r *CooperativeRouter) GetEventToDeliver() (*Event, bool) {
	e := r.deliverNow
	if e == nil {
		return nil, false
	}
	r.deliverNow = e.next
	e.next = nil
	return e, true
}

// CallHandlers delivers e to every subscribed module in configuration
// order, then tail-calls ReturnToSender. Unlike the queue-backed backends
// there is no return-arrival short circuit: returns never travel through a
// delivery list here, so every listed event needs subscriber delivery.
func (r *CooperativeRouter) CallHandlers(e *Event) error {
	assertf(r.logger, e != nil, ErrNilEvent, "eventrouter: CallHandlers called with a nil event")

	typeIdx, ok := r.reg.typeIndex(e.Type())
	assertf(r.logger, ok, ErrEventTypeInvalid, "eventrouter: CallHandlers on event with out-of-range type %v", e.Type())

	for modHandle := range r.reg.modules {
		mh := ModuleHandle(modHandle)
		if !r.reg.subs.testModule(mh, typeIdx) {
			continue
		}
		modRec, _ := r.reg.module(mh)
		if modRec.handler(e) == Kept {
			e.addRefCount(1)
			r.kept[e] = struct{}{}
		}
	}

	return r.ReturnToSender(e)
}

// ReturnToSender decrements e's ref count. No queues are involved in this
// backend, so a decrement reaching zero calls the producer's handler
// directly.
func (r *CooperativeRouter) ReturnToSender(e *Event) error {
	newVal := e.addRefCount(-1)
	assertf(r.logger, newVal >= 0, ErrRefCountUnderflow, "eventrouter: ref count decremented below zero for event type %v", e.Type())

	if newVal != 0 {
		return nil
	}

	delete(r.kept, e)
	e.clearClaim()
	mod, ok := r.reg.module(e.Producer())
	assertf(r.logger, ok, ErrModuleUnknown, "eventrouter: return-to-sender on event produced by unknown module %d", e.Producer())
	mod.handler(e)
	return nil
}

// EventIsInFlight reports whether e is currently owned by the router.
func (r *CooperativeRouter) EventIsInFlight(e *Event) bool {
	return e.IsInFlight()
}

// Subscribe registers mod's interest in typ. callerTask exists for
// interface parity with the other backends and must be 0, the single task
// every cooperative module belongs to.
func (r *CooperativeRouter) Subscribe(mod ModuleHandle, callerTask TaskHandle, typ EventType) (Subscription, error) {
	return subscribeModule(r.reg, r.logger, r.observer, mod, callerTask, typ)
}

// Unsubscribe revokes a Subscription.
func (r *CooperativeRouter) Unsubscribe(callerTask TaskHandle, sub Subscription) error {
	return unsubscribeModule(r.reg, r.logger, r.observer, callerTask, sub)
}

// Deinit flags any event still KEPT and outstanding, then tears down.
func (r *CooperativeRouter) Deinit() error {
	r.markDeinited(r.logger)
	for e := range r.kept {
		notify(r.observer, r.logger, EventTypeEventKeptLeaked, map[string]any{
			"type":     int(e.Type()),
			"producer": int(e.Producer()),
		})
	}
	notify(r.observer, r.logger, EventTypeRouterStopped, map[string]any{"backend": "cooperative"})
	return nil
}
