package eventrouter

import "sync/atomic"

// EventType identifies the kind of an event. Valid types lie in the
// contiguous range [First, Last] chosen when a Router is configured;
// Invalid (First-1) is a reserved sentinel, never routable.
type EventType int

// ModuleHandle identifies a registered module. It is a small integer index
// into the router's module registry, never a pointer. The zero value is a
// valid handle for the first configured module; HandleInvalid means "no
// module".
type ModuleHandle int

// TaskHandle identifies a registered task, in the same spirit as
// ModuleHandle.
type TaskHandle int

// HandleInvalid is a handle value that names no module or task. It is not
// the zero value: a zero handle names the first configured module or task.
const HandleInvalid = -1

// Event is the routable unit. Embed it by value in an application-defined
// payload struct to make that struct routable:
//
//	type SensorReading struct {
//	    eventrouter.Event
//	    Celsius float64
//	}
//
// Events travel by pointer; the router never copies the payload that embeds
// one. A producer allocates an Event once (typically as a package-level or
// long-lived struct) and reuses it across Sends; its lifetime must cover
// every Send until the event is idle again.
type Event struct {
	typ      EventType
	refCount int32
	producer ModuleHandle
	claimed  uint32

	// next chains this event onto a backend's intrusive list (the
	// cooperative backend's deliver-now/deliver-next lists). Unused by
	// the other backends.
	next *Event
}

// NewEvent allocates and initializes an Event of the given type, owned by
// the given producer module.
func NewEvent(typ EventType, producer ModuleHandle) *Event {
	e := &Event{}
	e.Init(typ, producer)
	return e
}

// Init resets an Event to its idle state with the given type and producer.
// Only the producer should call this, and only while the event is idle;
// re-initializing an in-flight event corrupts the dispatcher's accounting.
func (e *Event) Init(typ EventType, producer ModuleHandle) {
	e.typ = typ
	atomic.StoreInt32(&e.refCount, 0)
	e.producer = producer
	atomic.StoreUint32(&e.claimed, 0)
	e.next = nil
}

// Type returns the event's configured type.
func (e *Event) Type() EventType { return e.typ }

// Producer returns the handle of the module that owns this event.
func (e *Event) Producer() ModuleHandle { return e.producer }

// IsInFlight reports whether the event is currently owned by the router:
// queued, being delivered, or held by a KEPT handler.
func (e *Event) IsInFlight() bool {
	return atomic.LoadInt32(&e.refCount) != 0
}

// TryClaim atomically test-and-sets the event's claim flag, for OS-backed
// backends where a producer outside the event's owning task wants to
// mutate the event's payload before calling Send. It returns true if the
// claim was acquired. The claim is released implicitly once the event
// returns to idle (ref count reaches zero); callers never call an explicit
// release.
func (e *Event) TryClaim() bool {
	return atomic.CompareAndSwapUint32(&e.claimed, 0, 1)
}

func (e *Event) clearClaim() {
	atomic.StoreUint32(&e.claimed, 0)
}

func (e *Event) refCountValue() int32 {
	return atomic.LoadInt32(&e.refCount)
}

func (e *Event) addRefCount(delta int32) int32 {
	return atomic.AddInt32(&e.refCount, delta)
}
