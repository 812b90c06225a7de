// Package cp emulates the command processor FIFO controller: the
// memory-mapped ring buffer that carries the command stream from the
// emulated CPU (producer) to the emulated GPU (consumer), together with its
// watermark flow control, breakpoint detection and interrupt generation.
//
// A CommandProcessor is one explicit context object. It is safe to use from
// exactly one producer goroutine and one consumer goroutine at the same time;
// deferred interrupts are delivered on the scheduler's goroutine.
package cp

import (
	"log"
	"sync/atomic"

	"github.com/sarchlab/cpfifo/timing"
)

// Default readback rectangle.
const (
	defaultBBoxRight  = 640
	defaultBBoxBottom = 480
)

// CommandProcessor is the FIFO controller.
type CommandProcessor struct {
	*timing.HookableBase

	name         string
	timelineMode TimelineMode
	addressWidth AddressWidth
	logger       *log.Logger

	engine   Scheduler
	consumer Consumer
	sink     InterruptSink
	mirror   BusMirror

	fifo     Fifo
	ctrlReg  reg16
	clearReg reg16
	token    reg16

	bboxLeft   reg16
	bboxTop    reg16
	bboxRight  reg16
	bboxBottom reg16

	interruptAsserted atomic.Bool
	dispatchPending   atomic.Bool
	pendingLevel      atomic.Bool
	generation        atomic.Uint64

	mmio     map[uint32]mmioEntry
	shutdown atomic.Bool
}

// Name returns the name of the controller.
func (c *CommandProcessor) Name() string {
	return c.name
}

// TimelineMode returns whether the consumer runs on its own timeline.
func (c *CommandProcessor) TimelineMode() TimelineMode {
	return c.timelineMode
}

// AddressWidth returns the decoded guest physical address width.
func (c *CommandProcessor) AddressWidth() AddressWidth {
	return c.addressWidth
}

// Fifo exposes the ring descriptor.
func (c *CommandProcessor) Fifo() *Fifo {
	return &c.fifo
}

// InterruptAsserted returns the current interrupt line value.
func (c *CommandProcessor) InterruptAsserted() bool {
	return c.interruptAsserted.Load()
}

// DispatchPending returns true while a deferred interrupt is in flight.
func (c *CommandProcessor) DispatchPending() bool {
	return c.dispatchPending.Load()
}

// SetConsumer attaches the consumer. Consumers usually need the controller
// to be built first, so the builder accepts a missing consumer and the
// consumer is attached here before the first register access.
func (c *CommandProcessor) SetConsumer(consumer Consumer) {
	c.consumer = consumer
}

// Init resets every register and flag to its power-on value.
func (c *CommandProcessor) Init() {
	c.fifo.reset()

	c.ctrlReg.Store(0)
	c.clearReg.Store(0)
	c.token.Store(0)

	c.bboxLeft.Store(0)
	c.bboxTop.Store(0)
	c.bboxRight.Store(defaultBBoxRight)
	c.bboxBottom.Store(defaultBBoxBottom)

	c.interruptAsserted.Store(false)
	c.dispatchPending.Store(false)
	c.pendingLevel.Store(false)

	// Interrupt events scheduled before this point belong to an older
	// session and are dropped when they arrive.
	c.generation.Add(1)

	if c.mmio == nil {
		c.registerMMIO()
	}

	c.shutdown.Store(false)
}

// Reset brings a controller, including a shut down one, back to its
// power-on state.
func (c *CommandProcessor) Reset() {
	c.Init()
}

// Shutdown stops the controller. Deferred interrupts that arrive later are
// dropped, and any further register access or commit is a contract
// violation.
func (c *CommandProcessor) Shutdown() {
	c.shutdown.Store(true)
}

func (c *CommandProcessor) mustBeRunning() {
	if c.shutdown.Load() {
		log.Panicf("command processor %s is used after shutdown", c.name)
	}

	if c.consumer == nil {
		log.Panicf("command processor %s has no consumer attached", c.name)
	}
}

// SetReadbackRect updates the read-only readback rectangle registers.
func (c *CommandProcessor) SetReadbackRect(left, top, right, bottom uint16) {
	c.bboxLeft.Store(left)
	c.bboxTop.Store(top)
	c.bboxRight.Store(right)
	c.bboxBottom.Store(bottom)
}

// Status synthesizes the status register from the FIFO state.
func (c *CommandProcessor) Status() StatusReg {
	distance := c.fifo.Distance.Load()
	mode := c.fifo.Mode()

	rp := c.fifo.ReadPointer.Load()
	if c.timelineMode == DualTimeline {
		rp = c.fifo.SafeReadPointer.Load()
	}

	consumerAtBP := c.consumer != nil && c.consumer.IsAtBreakpoint()

	return StatusReg{
		Breakpoint:           c.fifo.AtBreakpoint(),
		ReadIdle:             distance == 0 || rp == c.fifo.WritePointer.Load(),
		CommandIdle:          distance == 0 || consumerAtBP || !mode.ReadEnable,
		UnderflowLoWatermark: c.fifo.BelowLoWatermark(),
		OverflowHiWatermark:  c.fifo.AboveHiWatermark(),
	}
}
