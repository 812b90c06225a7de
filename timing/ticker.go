package timing

import "sync"

// TickEvent is a generic event that components use to update their status
// once per scheduled cycle.
type TickEvent struct {
	EventBase
}

// MakeTickEvent creates a new TickEvent.
func MakeTickEvent(handler Handler, time VTimeInCycle) TickEvent {
	return TickEvent{EventBase: MakeEventBase(time, handler)}
}

// A Ticker is an object that updates states with ticks. Tick returns true if
// the ticker made progress and wants to be ticked again.
type Ticker interface {
	Tick() bool
}

// TickScheduler helps schedule tick events without double-booking a cycle.
type TickScheduler struct {
	lock     sync.Mutex
	handler  Handler
	Engine   Engine
	Interval VTimeInCycle

	scheduled    bool
	nextTickTime VTimeInCycle
}

// NewTickScheduler creates a scheduler for tick events. Interval is the
// number of cycles between consecutive ticks and must be at least 1.
func NewTickScheduler(
	handler Handler,
	engine Engine,
	interval VTimeInCycle,
) *TickScheduler {
	if interval == 0 {
		interval = 1
	}

	return &TickScheduler{
		handler:  handler,
		Engine:   engine,
		Interval: interval,
	}
}

// TickNow schedules a Tick event at the current cycle.
func (t *TickScheduler) TickNow() {
	t.scheduleAt(t.Engine.CurrentTime())
}

// TickLater schedules a tick event one interval after the current cycle.
func (t *TickScheduler) TickLater() {
	t.scheduleAt(t.Engine.CurrentTime() + t.Interval)
}

func (t *TickScheduler) scheduleAt(time VTimeInCycle) {
	t.lock.Lock()
	defer t.lock.Unlock()

	if t.scheduled && t.nextTickTime >= time {
		return
	}

	t.scheduled = true
	t.nextTickTime = time
	t.Engine.Schedule(MakeTickEvent(t.handler, time))
}

// ticked marks the tick at the given time as delivered, so that a wake-up
// during the same cycle schedules a new tick.
func (t *TickScheduler) ticked(time VTimeInCycle) {
	t.lock.Lock()
	defer t.lock.Unlock()

	if t.scheduled && t.nextTickTime == time {
		t.scheduled = false
	}
}

// TickingComponent is a handler that updates its state from tick to tick and
// stops ticking once it makes no progress.
type TickingComponent struct {
	*HookableBase
	*TickScheduler

	name   string
	ticker Ticker
}

// NewTickingComponent creates a new ticking component.
func NewTickingComponent(
	name string,
	engine Engine,
	interval VTimeInCycle,
	ticker Ticker,
) *TickingComponent {
	tc := &TickingComponent{
		HookableBase: NewHookableBase(),
		name:         name,
		ticker:       ticker,
	}
	tc.TickScheduler = NewTickScheduler(tc, engine, interval)

	return tc
}

// Name returns the name of the component.
func (c *TickingComponent) Name() string {
	return c.name
}

// Handle triggers the tick function of the component.
func (c *TickingComponent) Handle(e Event) error {
	tick, ok := e.(TickEvent)
	if !ok {
		return nil
	}

	c.ticked(tick.Time())

	if c.ticker.Tick() {
		c.TickLater()
	}

	return nil
}
