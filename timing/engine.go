package timing

// TimeTeller can be used to get the current time.
type TimeTeller interface {
	CurrentTime() VTimeInCycle
}

// EventScheduler can be used to schedule future events.
type EventScheduler interface {
	Schedule(e Event)
}

// ExceptionChecker lets a component shorten the producer's current time
// slice so that pending events are observed sooner.
type ExceptionChecker interface {
	// ForceExceptionCheck requests that the running time slice ends at the
	// next opportunity.
	ForceExceptionCheck()

	// TakeExceptionCheck reports whether an exception check was requested
	// since the last call and clears the request.
	TakeExceptionCheck() bool
}

// An Engine is a unit that keeps the discrete event emulation running.
type Engine interface {
	Hookable
	TimeTeller
	EventScheduler
	ExceptionChecker

	// Run processes all the events until the queue is drained.
	Run() error

	// Pause stops the engine from triggering more events until Continue is
	// called.
	Pause()

	// Continue resumes the paused engine.
	Continue()
}
