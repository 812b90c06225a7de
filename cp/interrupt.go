package cp

import (
	"fmt"

	"github.com/sarchlab/cpfifo/timing"
)

type origin int

const (
	fromProducer origin = iota
	fromConsumer
)

// InterruptEvent carries a deferred interrupt line change to the scheduler
// timeline.
type InterruptEvent struct {
	timing.EventBase
	Level      bool
	generation uint64
}

// desiredLine evaluates the interrupt line the FIFO state asks for, and
// whether any alarm condition is active regardless of read-enable.
func (c *CommandProcessor) desiredLine() (desired, alarm bool) {
	mode := c.fifo.Mode()

	bpInt := c.fifo.AtBreakpoint() && mode.BPIntEnable
	ovfInt := c.fifo.AboveHiWatermark() && mode.HiWatermarkIntEnable
	undfInt := c.fifo.BelowLoWatermark() && mode.LoWatermarkIntEnable

	alarm = bpInt || ovfInt || undfInt

	return alarm && mode.ReadEnable, alarm
}

// updateInterrupts moves the interrupt line towards the desired value.
//
// Only one change is tracked at a time: while a deferred change is in flight
// nothing else is scheduled. With a single timeline the line is changed
// right away. With two timelines every change goes through the scheduler;
// the producer only hands over changes backed by an active alarm and leaves
// plain de-asserts to the consumer's next status update.
func (c *CommandProcessor) updateInterrupts(from origin) {
	desired, alarm := c.desiredLine()

	if desired == c.interruptAsserted.Load() || c.dispatchPending.Load() {
		return
	}

	if c.timelineMode == SingleTimeline {
		c.applyInterrupt(desired)
		return
	}

	if from == fromProducer && !alarm {
		return
	}

	c.deferInterrupt(desired)
}

func (c *CommandProcessor) deferInterrupt(level bool) {
	if !c.dispatchPending.CompareAndSwap(false, true) {
		return
	}

	c.pendingLevel.Store(level)
	c.scheduleInterrupt(level)
}

func (c *CommandProcessor) scheduleInterrupt(level bool) {
	evt := &InterruptEvent{
		EventBase:  timing.MakeHandoverEventBase(c.engine.CurrentTime(), c),
		Level:      level,
		generation: c.generation.Load(),
	}

	c.invoke(HookPosInterruptDeferred, InterruptChange{Asserted: level})
	c.engine.Schedule(evt)
}

func (c *CommandProcessor) applyInterrupt(level bool) {
	c.interruptAsserted.Store(level)
	c.sink.SetInterruptLine(InterruptCause, level)
	c.invoke(HookPosInterrupt, InterruptChange{Asserted: level})

	c.engine.ForceExceptionCheck()
}

// Handle delivers deferred interrupts on the scheduler timeline.
func (c *CommandProcessor) Handle(e timing.Event) error {
	switch evt := e.(type) {
	case *InterruptEvent:
		c.handleInterruptEvent(evt)
	default:
		return fmt.Errorf("command processor cannot handle event %T", e)
	}

	return nil
}

func (c *CommandProcessor) handleInterruptEvent(evt *InterruptEvent) {
	if c.shutdown.Load() || evt.generation != c.generation.Load() {
		return
	}

	c.applyInterrupt(evt.Level)
	c.dispatchPending.Store(false)
	c.consumer.RequestRun()
}
