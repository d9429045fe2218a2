package primitives

// Event is a single occurrence applied to a machine. Data carries whatever
// payload the caller's guards/effects close over; the engine treats it as
// opaque and never inspects it.
type Event struct {
	Kind EventKind
	Data any
}

// NewEvent constructs an Event.
func NewEvent(kind EventKind, data any) Event {
	return Event{Kind: kind, Data: data}
}
