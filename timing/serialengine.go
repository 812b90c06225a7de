package timing

import (
	"log"
	"reflect"
	"sync"
	"sync/atomic"
)

// A SerialEngine is an Engine that always runs events one after another.
//
// Schedule may be called from any goroutine. Run itself is single-threaded:
// all handlers execute on the goroutine that called Run, which is what the
// rest of the module calls the scheduler timeline.
type SerialEngine struct {
	HookableBase

	timeLock       sync.RWMutex
	time           VTimeInCycle
	queue          EventQueue
	secondaryQueue EventQueue

	isPaused     bool
	isPausedLock sync.Mutex
	pauseLock    sync.Mutex

	singleRunLock sync.Mutex

	exceptionCheck atomic.Bool
}

// NewSerialEngine creates a SerialEngine.
func NewSerialEngine() *SerialEngine {
	e := new(SerialEngine)

	e.queue = NewEventQueue()
	e.secondaryQueue = NewEventQueue()

	return e
}

// Schedule registers an event to happen in the future. Scheduling at the
// current cycle is allowed and runs the event at the next opportunity.
func (e *SerialEngine) Schedule(evt Event) {
	e.timeLock.RLock()
	defer e.timeLock.RUnlock()

	now := e.time
	if evt.Time() < now {
		h, ok := evt.(handoverEvent)
		if !ok || !h.IsHandover() {
			log.Panicf(
				"scheduling an event earlier than current time, evt %s @ %d, now %d",
				reflect.TypeOf(evt), evt.Time(), now,
			)
		}

		h.retime(now)
	}

	if evt.IsSecondary() {
		e.secondaryQueue.Push(evt)
		return
	}

	e.queue.Push(evt)
}

func (e *SerialEngine) readNow() VTimeInCycle {
	e.timeLock.RLock()
	t := e.time
	e.timeLock.RUnlock()

	return t
}

// Run processes all the events scheduled in the SerialEngine.
func (e *SerialEngine) Run() error {
	e.singleRunLock.Lock()
	defer e.singleRunLock.Unlock()

	for {
		if e.noMoreEvent() {
			return nil
		}

		e.pauseLock.Lock()

		evt := e.advance()

		hookCtx := HookCtx{
			Domain: e,
			Pos:    HookPosBeforeEvent,
			Item:   evt,
		}
		e.InvokeHook(hookCtx)

		err := evt.Handler().Handle(evt)
		if err != nil {
			e.pauseLock.Unlock()
			return err
		}

		hookCtx.Pos = HookPosAfterEvent
		e.InvokeHook(hookCtx)

		e.pauseLock.Unlock()
	}
}

// advance pops the next event and moves the time to it. Both happen under
// the time lock so that an event scheduled concurrently is either seen by
// the pop or retimed by Schedule.
func (e *SerialEngine) advance() Event {
	e.timeLock.Lock()
	defer e.timeLock.Unlock()

	evt := e.nextEvent()
	if evt.Time() < e.time {
		log.Panicf(
			"cannot run event in the past, evt %s @ %d, now %d",
			reflect.TypeOf(evt), evt.Time(), e.time,
		)
	}
	e.time = evt.Time()

	return evt
}

func (e *SerialEngine) noMoreEvent() bool {
	return e.queue.Len() == 0 && e.secondaryQueue.Len() == 0
}

func (e *SerialEngine) nextEvent() Event {
	if e.queue.Len() == 0 {
		return e.secondaryQueue.Pop()
	}

	if e.secondaryQueue.Len() == 0 {
		return e.queue.Pop()
	}

	primaryEvt := e.queue.Peek()
	secondaryEvt := e.secondaryQueue.Peek()

	if primaryEvt.Time() <= secondaryEvt.Time() {
		e.queue.Pop()
		return primaryEvt
	}

	e.secondaryQueue.Pop()

	return secondaryEvt
}

// Pause prevents the SerialEngine from triggering more events.
func (e *SerialEngine) Pause() {
	e.isPausedLock.Lock()
	defer e.isPausedLock.Unlock()

	if e.isPaused {
		return
	}

	e.pauseLock.Lock()
	e.isPaused = true
}

// Continue allows the SerialEngine to trigger more events.
func (e *SerialEngine) Continue() {
	e.isPausedLock.Lock()
	defer e.isPausedLock.Unlock()

	if !e.isPaused {
		return
	}

	e.pauseLock.Unlock()
	e.isPaused = false
}

// CurrentTime returns the cycle of the event being handled, or of the last
// handled event.
func (e *SerialEngine) CurrentTime() VTimeInCycle {
	return e.readNow()
}

// ForceExceptionCheck asks the producer to end its time slice early.
func (e *SerialEngine) ForceExceptionCheck() {
	e.exceptionCheck.Store(true)
}

// TakeExceptionCheck reports and clears a pending exception check request.
func (e *SerialEngine) TakeExceptionCheck() bool {
	return e.exceptionCheck.Swap(false)
}
