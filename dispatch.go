package eventrouter

import "fmt"

// dispatchCore implements the Send/SendEx/CallHandlers/ReturnToSender
// algorithm shared by the Preemptive and BlockingQueues backends. The two
// backends differ only in which Queue implementation they hand to
// this core; the case-split on a stale reference count, the mask-then-bump
// ordering, and the cross-task early-return in ReturnToSender are identical
// either way.
type dispatchCore struct {
	reg      *registry
	queues   []Queue // indexed by TaskHandle
	logger   Logger
	observer Observer
	isISR    func() bool
}

func (d *dispatchCore) isISRNow() bool {
	return d.isISR != nil && d.isISR()
}

// enqueue pushes e onto task's queue, choosing the non-blocking push when
// the caller is in an ISR: full queues block the caller in non-ISR context
// but assert in ISR context, since an ISR cannot block. A failed
// non-blocking push is a contract violation, not a recoverable condition.
func (d *dispatchCore) enqueue(task TaskHandle, e *Event, isISR bool) error {
	q := d.queues[task]
	if isISR {
		err := q.PushNonBlocking(e)
		assertf(d.logger, err == nil, err, "eventrouter: ISR push failed for task %d, event type %v", task, e.Type())
		return err
	}
	return q.Push(e)
}

// Send is SendEx with allowResending false.
func (d *dispatchCore) Send(e *Event, callerTask TaskHandle) error {
	return d.SendEx(e, callerTask, false)
}

// SendEx marks e's subscribing tasks, bumps its ref count (including any
// return-to-sender reservation for the producer), and only then dispatches
// e to every subscribing task. callerTask identifies the
// task the caller is running in; it is ignored when the caller reports
// itself as an ISR via Options.IsISR.
func (d *dispatchCore) SendEx(e *Event, callerTask TaskHandle, allowResending bool) error {
	assertf(d.logger, e != nil, ErrNilEvent, "eventrouter: Send called with a nil event")

	mod, ok := d.reg.module(e.Producer())
	assertf(d.logger, ok, ErrModuleUnknown, "eventrouter: Send on event produced by unknown module %d", e.Producer())

	typeIdx, ok := d.reg.typeIndex(e.Type())
	assertf(d.logger, ok, ErrEventTypeInvalid, "eventrouter: Send on event with out-of-range type %v", e.Type())

	assertf(d.logger, !d.reg.subs.testModule(e.Producer(), typeIdx), ErrSelfSubscription,
		"eventrouter: module %d is subscribed to the type %v it produces", e.Producer(), e.Type())

	isISRCall := d.isISRNow()

	// Step 1: Mark.
	var mask uint32
	n := int32(0)
	for i := range d.reg.tasks {
		if d.reg.subs.testTask(TaskHandle(i), typeIdx) {
			mask |= 1 << uint(i)
			n++
		}
	}

	// Step 2: Bump.
	bumped := e.addRefCount(n)
	old := bumped - n
	assertf(d.logger, old >= 0, ErrRefCountUnderflow, "eventrouter: event ref count was negative before Send")

	producerTask := mod.task

	// Step 3: lifecycle case split.
	switch {
	case old == 0:
		e.addRefCount(1) // reservation for the return-to-sender hop
		if n == 0 {
			return d.enqueue(producerTask, e, isISRCall)
		}

	case old == 1:
		// One return reservation is outstanding: either it already covers
		// this resend's return obligation, or the producer task itself is
		// about to be redelivered to (which doubles as the return hop), or
		// neither holds and a fresh reservation must be paid for.
		assertf(d.logger, allowResending, ErrResendingNotAllowed, "eventrouter: Send on in-flight event %v without AllowResending", e.Type())
		assertf(d.logger, callerTask == producerTask || isISRCall, ErrResendWrongTask,
			"eventrouter: resend of event %v attempted outside producer task %d and outside ISR context", e.Type(), producerTask)

		if n > 0 {
			producerBit := uint32(1) << uint(producerTask)
			if mask&producerBit != 0 {
				mask &^= producerBit
				n--
			} else {
				e.addRefCount(1)
			}
		}
		// n == 0: the existing in-flight return already covers this Send.

	default: // old > 1: a resend while still mid-dispatch or mid-delivery.
		// The outstanding reservation hasn't been consumed yet by
		// definition (ref count hasn't even dropped to 1), so no mask
		// adjustment or extra reservation is needed: just dispatch to the
		// freshly marked subscribers.
		assertf(d.logger, allowResending, ErrResendingNotAllowed, "eventrouter: Send on in-flight event %v without AllowResending", e.Type())
		assertf(d.logger, callerTask == producerTask || isISRCall, ErrResendWrongTask,
			"eventrouter: resend of event %v attempted outside producer task %d and outside ISR context", e.Type(), producerTask)
	}

	// Step 4: Dispatch, in configured task order.
	for i := range d.reg.tasks {
		bit := uint32(1) << uint(i)
		if mask&bit == 0 {
			continue
		}
		if err := d.enqueue(TaskHandle(i), e, isISRCall); err != nil {
			return err
		}
	}
	return nil
}

// CallHandlers invokes every subscribed module's handler on e in the order
// that task's modules were configured, then returns it towards its
// producer. task is the task whose driver loop popped e from its queue.
func (d *dispatchCore) CallHandlers(task TaskHandle, e *Event) error {
	assertf(d.logger, e != nil, ErrNilEvent, "eventrouter: CallHandlers called with a nil event")

	if e.refCountValue() <= 1 {
		// Return-to-sender arrival: this event was enqueued to its
		// producer's task solely to invoke the producer's handler.
		return d.ReturnToSender(task, e)
	}

	typeIdx, ok := d.reg.typeIndex(e.Type())
	assertf(d.logger, ok, ErrEventTypeInvalid, "eventrouter: CallHandlers on event with out-of-range type %v", e.Type())

	taskRec, ok := d.reg.task(task)
	assertf(d.logger, ok, ErrTaskUnknown, "eventrouter: CallHandlers on unknown task %d", task)

	for _, modHandle := range taskRec.modules {
		if !d.reg.subs.testModule(modHandle, typeIdx) {
			continue
		}
		modRec, ok := d.reg.module(modHandle)
		assertf(d.logger, ok, ErrModuleUnknown, "eventrouter: subscribed module %d vanished from registry", modHandle)

		if modRec.handler(e) == Kept {
			e.addRefCount(1)
		}
	}

	return d.ReturnToSender(task, e)
}

// ReturnToSender decrements e's ref count and, once it reaches zero, calls
// the producer's handler. task is the task currently running (either a
// subscriber's task, just finished with e, or the producer's own task
// receiving the return hop).
func (d *dispatchCore) ReturnToSender(task TaskHandle, e *Event) error {
	newVal := e.addRefCount(-1)
	assertf(d.logger, newVal >= 0, ErrRefCountUnderflow, "eventrouter: ref count decremented below zero for event type %v", e.Type())

	if newVal > 1 {
		return nil
	}

	if newVal == 1 {
		mod, ok := d.reg.module(e.Producer())
		assertf(d.logger, ok, ErrModuleUnknown, "eventrouter: ReturnToSender on event produced by unknown module %d", e.Producer())

		if task != mod.task {
			// Early return: the final decrement happens when the
			// producer's task eventually calls CallHandlers on this
			// same event (its ref count will be 1, so it tail-calls
			// back into this method). Returning now, instead of
			// decrementing from here, avoids a race where the
			// producer's task concurrently zeroes the count and this
			// task double-delivers.
			return d.enqueue(mod.task, e, false)
		}
		newVal = e.addRefCount(-1)
	}

	if newVal == 0 {
		e.clearClaim()
		mod, ok := d.reg.module(e.Producer())
		assertf(d.logger, ok, ErrModuleUnknown, "eventrouter: return-to-sender on event produced by unknown module %d", e.Producer())
		mod.handler(e)
	}
	return nil
}

func (d *dispatchCore) String() string {
	return fmt.Sprintf("dispatchCore{tasks=%d modules=%d}", len(d.reg.tasks), len(d.reg.modules))
}
