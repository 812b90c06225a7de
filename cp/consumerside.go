package cp

// UpdateFromConsumer recomputes the derived flags after the consumer moved
// the read pointer and re-evaluates the interrupt line. Consumer only.
func (c *CommandProcessor) UpdateFromConsumer() {
	c.recomputeFlags()
	c.updateInterrupts(fromConsumer)
}

func (c *CommandProcessor) recomputeFlags() {
	edge, changed := c.fifo.RecomputeFlags()
	if changed {
		c.invoke(HookPosBreakpoint, edge)
	}
}

// AdvanceReadPointer moves the read cursor by one burst. Consumer only.
func (c *CommandProcessor) AdvanceReadPointer() {
	c.fifo.Consume(BurstSize)
}

// PublishReadPointer makes the read pointer visible to the producer.
// Consumer only.
func (c *CommandProcessor) PublishReadPointer() {
	c.fifo.PublishReadPointer()
}

// ConsumeBurst takes one burst out of the ring, publishes the new read
// pointer and updates the status.
func (c *CommandProcessor) ConsumeBurst() {
	c.AdvanceReadPointer()
	c.PublishReadPointer()
	c.UpdateFromConsumer()
}

// IsAtBreakpoint reports whether the read pointer sits on an enabled
// breakpoint. Consumers use it to decide whether to stop draining.
func (c *CommandProcessor) IsAtBreakpoint() bool {
	return c.fifo.Mode().BPEnable &&
		c.fifo.ReadPointer.Load() == c.fifo.Breakpoint.Load()
}
