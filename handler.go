package eventrouter

// EventHandlerRet is the value an EventHandler returns to tell the
// dispatcher what became of an event.
type EventHandlerRet int

const (
	// Unexpected means the handler did not expect an event of this type.
	// It is purely diagnostic; the dispatcher treats it the same as
	// Handled for return-to-sender purposes.
	Unexpected EventHandlerRet = iota

	// Handled means the handler is done with the event; it is safe to
	// continue the return-to-sender accounting.
	Handled

	// Kept means the handler retained a reference to the event past its
	// own return and promises to call ReturnToSender exactly once, later.
	Kept
)

func (r EventHandlerRet) String() string {
	switch r {
	case Unexpected:
		return "Unexpected"
	case Handled:
		return "Handled"
	case Kept:
		return "Kept"
	default:
		return "EventHandlerRet(?)"
	}
}

// EventHandler receives events addressed to the module that registered it,
// both as a subscriber and as the producer's return-to-sender callback.
type EventHandler func(e *Event) EventHandlerRet
