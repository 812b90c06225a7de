package timing

// VTimeInCycle is a point on the emulated timeline, counted in cycles.
type VTimeInCycle uint64

// An Event is something going to happen on the emulated timeline.
type Event interface {
	// Time returns the cycle at which the event should happen.
	Time() VTimeInCycle

	// Handler returns the handler that should handle the event.
	Handler() Handler

	// IsSecondary tells if the event is a secondary event. Secondary events
	// are handled after all same-cycle primary events are handled.
	IsSecondary() bool
}

// EventBase provides the basic fields and getters for other events.
type EventBase struct {
	ID        string
	time      VTimeInCycle
	handler   Handler
	secondary bool
	handover  bool
}

// NewEventBase creates a new EventBase.
func NewEventBase(t VTimeInCycle, handler Handler) *EventBase {
	e := new(EventBase)
	e.ID = GetIDGenerator().Generate()
	e.time = t
	e.handler = handler
	e.secondary = false

	return e
}

// MakeEventBase creates an EventBase by value, for events embedding it
// directly.
func MakeEventBase(t VTimeInCycle, handler Handler) EventBase {
	return EventBase{
		ID:      GetIDGenerator().Generate(),
		time:    t,
		handler: handler,
	}
}

// MakeHandoverEventBase creates an EventBase for an event that a goroutine
// other than the one running the engine schedules. Its time is a lower
// bound: if the engine has already moved past it, the event runs at the
// engine's current cycle.
func MakeHandoverEventBase(t VTimeInCycle, handler Handler) EventBase {
	e := MakeEventBase(t, handler)
	e.handover = true

	return e
}

// IsHandover tells if the event may be moved to the engine's current cycle.
func (e EventBase) IsHandover() bool {
	return e.handover
}

func (e *EventBase) retime(t VTimeInCycle) {
	e.time = t
}

// handoverEvent is an event whose time the engine may move forward.
type handoverEvent interface {
	Event
	IsHandover() bool
	retime(t VTimeInCycle)
}

// Time returns the cycle at which the event is going to happen.
func (e EventBase) Time() VTimeInCycle {
	return e.time
}

// Handler returns the handler to handle the event.
func (e EventBase) Handler() Handler {
	return e.handler
}

// IsSecondary returns true if the event is a secondary event.
func (e EventBase) IsSecondary() bool {
	return e.secondary
}

// A Handler defines a domain for the events.
//
// An event is always bound to one Handler. The event can only be scheduled by
// that handler, except when an outside timeline hands work over to it (for
// example, a consumer thread asking the scheduler timeline to raise an
// interrupt).
type Handler interface {
	Handle(e Event) error
}
