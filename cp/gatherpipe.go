package cp

import "log"

// GatherPipeBursted is called by the producer each time the gather pipe
// fills up one burst.
func (c *CommandProcessor) GatherPipeBursted() {
	c.mustBeRunning()

	c.updateStatusFromProducer()
	mode := c.fifo.Mode()

	if !mode.LinkEnable {
		c.flushAliasedFifo()
		c.consumer.RequestRun()
		c.invoke(HookPosCommit, BurstCommit{
			WritePointer: c.fifo.WritePointer.Load(),
			Distance:     c.fifo.Distance.Load(),
		})

		return
	}

	wasAboveHi := c.fifo.AboveHiWatermark()

	c.fifo.Commit(BurstSize)

	// The producer is close to overflowing; check for the interrupt sooner.
	if wasAboveHi {
		c.engine.ForceExceptionCheck()
	}

	c.consumer.RequestRun()

	c.mirrorFifo(mode.ReadEnable)

	c.invoke(HookPosCommit, BurstCommit{
		WritePointer: c.fifo.WritePointer.Load(),
		Distance:     c.fifo.Distance.Load(),
		Linked:       true,
	})

	c.updateStatusFromProducer()
}

func (c *CommandProcessor) updateStatusFromProducer() {
	c.fifo.RecomputeWatermarks()
	c.updateInterrupts(fromProducer)
}

// flushAliasedFifo handles a producer that writes into a FIFO which is still
// attached to the consumer while not linked. The consumer must finish that
// FIFO before new data lands in the same memory.
func (c *CommandProcessor) flushAliasedFifo() {
	if c.timelineMode != DualTimeline || c.consumer.IsDeterministicTimelineMode() {
		return
	}

	shadow := c.mirror.FifoShadow()
	if shadow.End == c.fifo.End.Load() &&
		shadow.Base == c.fifo.Base.Load() &&
		c.fifo.Distance.Load() > 0 {
		c.consumer.RequestFlush()
	}
}

// mirrorFifo copies the FIFO bounds into the platform while reads are
// enabled. A linked FIFO must match its platform copy after every commit,
// whoever wrote the copy.
func (c *CommandProcessor) mirrorFifo(write bool) {
	want := FifoShadow{
		WritePointer: c.fifo.WritePointer.Load(),
		Base:         c.fifo.Base.Load(),
		End:          c.fifo.End.Load(),
	}

	if write {
		c.mirror.SetFifoShadow(want)
	}

	if got := c.mirror.FifoShadow(); got != want {
		log.Panicf("FIFOs linked but out of sync: controller %+v, platform %+v",
			want, got)
	}
}
