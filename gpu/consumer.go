// Package gpu provides a reference consumer for the command FIFO. It drains
// whole bursts without interpreting them, which is enough to exercise the
// controller's flow control, breakpoints and interrupts end to end.
package gpu

import (
	"log"
	"sync/atomic"

	"github.com/sarchlab/cpfifo/cp"
	"github.com/sarchlab/cpfifo/timing"
)

// HookPosDrain is fired after the consumer takes one burst out of the FIFO.
var HookPosDrain = &timing.HookPos{Name: "GPUDrain"}

// Consumer drains the FIFO of one CommandProcessor.
//
// With a single timeline the consumer is a ticking component on the engine.
// With two timelines it runs on its own goroutine between Start and Stop.
type Consumer struct {
	*timing.TickingComponent

	controller    *cp.CommandProcessor
	timelineMode  cp.TimelineMode
	deterministic bool

	drained atomic.Uint64
	syncs   atomic.Uint64
	flushes atomic.Uint64

	wake     chan struct{}
	requests chan chan struct{}
	stop     chan struct{}
	done     chan struct{}
	running  atomic.Bool
}

// SetController attaches the controller to drain.
func (c *Consumer) SetController(controller *cp.CommandProcessor) {
	c.controller = controller
}

// DrainedBytes returns how many bytes the consumer took out of the FIFO.
func (c *Consumer) DrainedBytes() uint64 {
	return c.drained.Load()
}

// Syncs returns the number of sync requests served.
func (c *Consumer) Syncs() uint64 {
	return c.syncs.Load()
}

// Flushes returns the number of flush requests served.
func (c *Consumer) Flushes() uint64 {
	return c.flushes.Load()
}

// Tick drains one burst. It returns false when nothing could be drained.
func (c *Consumer) Tick() bool {
	return c.drainOne()
}

func (c *Consumer) canDrain() bool {
	f := c.controller.Fifo()

	return f.Mode().ReadEnable &&
		f.Distance.Load() >= cp.BurstSize &&
		!c.controller.IsAtBreakpoint()
}

func (c *Consumer) drainOne() bool {
	if !c.canDrain() {
		return false
	}

	c.controller.ConsumeBurst()
	c.drained.Add(uint64(cp.BurstSize))

	if c.NumHooks() > 0 {
		c.InvokeHook(timing.HookCtx{
			Domain: c,
			Pos:    HookPosDrain,
			Item:   c.controller.Fifo().ReadPointer.Load(),
			Detail: c.Engine.CurrentTime(),
		})
	}

	return true
}

func (c *Consumer) drainAll() {
	for c.drainOne() {
	}
}

// RequestRun wakes the consumer without waiting for it.
func (c *Consumer) RequestRun() {
	if c.timelineMode == cp.SingleTimeline {
		c.TickNow()
		return
	}

	select {
	case c.wake <- struct{}{}:
	default:
	}
}

// RequestSync returns once the consumer drained everything it can.
func (c *Consumer) RequestSync(reason cp.SyncReason) {
	c.syncs.Add(1)
	c.catchUp()
}

// RequestFlush returns once the consumer drained everything it can.
func (c *Consumer) RequestFlush() {
	c.flushes.Add(1)
	c.catchUp()
}

func (c *Consumer) catchUp() {
	if c.timelineMode == cp.SingleTimeline || !c.running.Load() {
		c.drainAll()
		return
	}

	req := make(chan struct{})

	select {
	case c.requests <- req:
		<-req
	case <-c.done:
	}
}

// IsAtBreakpoint reports whether the consumer stopped at the breakpoint.
func (c *Consumer) IsAtBreakpoint() bool {
	return c.controller.Fifo().Mode().ReadEnable && c.controller.IsAtBreakpoint()
}

// IsDeterministicTimelineMode reports whether the consumer's timeline is
// replayed deterministically.
func (c *Consumer) IsDeterministicTimelineMode() bool {
	return c.deterministic
}

// Start launches the consumer goroutine. It is only used with two
// timelines.
func (c *Consumer) Start() {
	if c.timelineMode != cp.DualTimeline {
		log.Panic("the consumer goroutine requires a dual timeline")
	}

	if !c.running.CompareAndSwap(false, true) {
		return
	}

	c.stop = make(chan struct{})
	c.done = make(chan struct{})

	go c.loop()
}

// Stop ends the consumer goroutine and waits for it to exit.
func (c *Consumer) Stop() {
	if !c.running.CompareAndSwap(true, false) {
		return
	}

	close(c.stop)
	<-c.done
}

func (c *Consumer) loop() {
	defer close(c.done)

	for {
		select {
		case <-c.stop:
			return
		case <-c.wake:
			c.drainAll()
		case req := <-c.requests:
			c.drainAll()
			close(req)
		}
	}
}
