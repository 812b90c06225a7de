package cp

// mmioEntry binds the read and write handler of one 16-bit window.
type mmioEntry struct {
	read  func() uint16
	write func(v uint16)
}

// Read16 reads the 16-bit register window at offset.
func (c *CommandProcessor) Read16(offset uint32) uint16 {
	c.mustBeRunning()

	entry, ok := c.mmio[offset]
	if !ok || entry.read == nil {
		c.logger.Printf("%s: invalid read from 0x%02x (%s)",
			c.name, offset, RegisterName(offset))
		return 0
	}

	v := entry.read()
	c.invoke(HookPosRegRead, RegAccess{Offset: offset, Value: v})

	return v
}

// Write16 writes the 16-bit register window at offset. Writes never fail:
// bits outside the window's mask are dropped, and writes to read-only
// windows are logged and ignored. A successful write recomputes the derived
// FIFO flags before the interrupt line is re-evaluated.
func (c *CommandProcessor) Write16(offset uint32, v uint16) {
	c.mustBeRunning()

	entry, ok := c.mmio[offset]
	if !ok || entry.write == nil {
		c.logger.Printf("%s: invalid write 0x%04x to 0x%02x (%s)",
			c.name, v, offset, RegisterName(offset))
		return
	}

	entry.write(v)
	c.invoke(HookPosRegWrite, RegAccess{Offset: offset, Value: v})

	c.recomputeFlags()
	c.updateInterrupts(fromProducer)
}

// Peek16 reads a register window without side effects and without firing
// hooks. It returns false if the window cannot be read.
func (c *CommandProcessor) Peek16(offset uint32) (uint16, bool) {
	entry, ok := c.mmio[offset]
	if !ok || entry.read == nil {
		return 0, false
	}

	return entry.read(), true
}

func directRead16(r *reg16) func() uint16 {
	return r.Load
}

func directWrite16(r *reg16, mask uint16) func(uint16) {
	return func(v uint16) { r.Store(v & mask) }
}

func lowRead(r *reg32) func() uint16 {
	return r.low
}

func highRead(r *reg32) func() uint16 {
	return r.high
}

func lowWrite(r *reg32, mask uint16) func(uint16) {
	return func(v uint16) { r.writeLow(v & mask) }
}

func highWrite(r *reg32, mask uint16) func(uint16) {
	return func(v uint16) { r.writeHigh(v & mask) }
}

func constantRead(v uint16) func() uint16 {
	return func() uint16 { return v }
}

func (c *CommandProcessor) registerMMIO() {
	loMask := WriteMaskLoAlign32
	hiMask := c.addressWidth.HiWriteMask()

	c.mmio = map[uint32]mmioEntry{
		TokenRegister: {directRead16(&c.token), directWrite16(&c.token, WriteMaskAll)},

		BoundingBoxLeft:   {read: directRead16(&c.bboxLeft)},
		BoundingBoxRight:  {read: directRead16(&c.bboxRight)},
		BoundingBoxTop:    {read: directRead16(&c.bboxTop)},
		BoundingBoxBottom: {read: directRead16(&c.bboxBottom)},
	}

	c.registerHalves(FifoBaseLo, &c.fifo.Base, loMask, hiMask)
	c.registerHalves(FifoEndLo, &c.fifo.End, loMask, hiMask)
	c.registerHalves(FifoHiWatermarkLo, &c.fifo.HiWatermark, loMask, hiMask)
	c.registerHalves(FifoLoWatermarkLo, &c.fifo.LoWatermark, loMask, hiMask)
	c.registerHalves(FifoWritePointerLo, &c.fifo.WritePointer, loMask, hiMask)
	c.registerHalves(FifoBreakpointLo, &c.fifo.Breakpoint, loMask, hiMask)

	c.registerMetrics()
	c.registerControl()
	c.registerDistance(loMask, hiMask)
	c.registerReadPointer(loMask, hiMask)
}

func (c *CommandProcessor) registerHalves(
	lo uint32,
	r *reg32,
	loMask, hiMask uint16,
) {
	c.mmio[lo] = mmioEntry{lowRead(r), lowWrite(r, loMask)}
	c.mmio[lo+2] = mmioEntry{highRead(r), highWrite(r, hiMask)}
}

// Timing and metric counters are not emulated. They read as constants and
// reject writes.
func (c *CommandProcessor) registerMetrics() {
	metrics := []struct {
		offset uint32
		value  uint16
	}{
		{XFRasBusyLo, 0},
		{XFRasBusyHi, 0},
		{XFClksLo, 0},
		{XFClksHi, 0},
		{XFWaitInLo, 0},
		{XFWaitInHi, 0},
		{XFWaitOutLo, 0},
		{XFWaitOutHi, 0},
		{VCacheMetricCheckLo, 0},
		{VCacheMetricCheckHi, 0},
		{VCacheMetricMissLo, 0},
		{VCacheMetricMissHi, 0},
		{VCacheMetricStallLo, 0},
		{VCacheMetricStallHi, 0},
		{ClksPerVtxOut, 4},
	}

	for _, m := range metrics {
		c.mmio[m.offset] = mmioEntry{read: constantRead(m.value)}
	}

	c.mmio[PerfSelect] = mmioEntry{write: func(uint16) {}}
}

func (c *CommandProcessor) registerControl() {
	c.mmio[StatusRegister] = mmioEntry{read: c.readStatus}

	c.mmio[CtrlRegister] = mmioEntry{
		read:  directRead16(&c.ctrlReg),
		write: c.writeControl,
	}

	c.mmio[ClearRegister] = mmioEntry{
		read: directRead16(&c.clearReg),
		write: func(v uint16) {
			c.clearReg.Store(v)
			c.consumer.RequestRun()
		},
	}
}

func (c *CommandProcessor) readStatus() uint16 {
	return c.Status().Encode()
}

// writeControl applies all mode flags at once. Turning read-enable off
// drains the consumer first, so the consumer never runs with half of the
// new configuration.
func (c *CommandProcessor) writeControl(v uint16) {
	c.ctrlReg.Store(v)

	next := DecodeCtrlReg(v)
	if c.fifo.Mode().ReadEnable && !next.ReadEnable {
		c.consumer.RequestFlush()
	}

	c.fifo.setMode(next)
	c.invoke(HookPosControlRegisterSet, next)

	c.consumer.RequestRun()
}

// The distance register reads the live field when both sides share a
// timeline. Otherwise the producer may only see the published read pointer.
func (c *CommandProcessor) registerDistance(loMask, hiMask uint16) {
	d := &c.fifo.Distance

	read := mmioEntry{read: lowRead(d)}
	readHi := mmioEntry{read: highRead(d)}

	if c.timelineMode == DualTimeline {
		read.read = func() uint16 {
			return uint16(c.fifo.ComputeDistance(BurstSize) & 0xFFFF)
		}
		readHi.read = func() uint16 {
			return uint16(c.fifo.ComputeDistance(BurstSize) >> 16)
		}
	}

	read.write = lowWrite(d, loMask)
	readHi.write = func(v uint16) {
		d.writeHigh(v & hiMask)
		c.consumer.RequestSync(SyncReasonDistanceWrite)
		c.consumer.RequestRun()
	}

	c.mmio[FifoRWDistanceLo] = read
	c.mmio[FifoRWDistanceHi] = readHi
}

// In dual timeline mode the read pointer reads back the published copy, and
// writing the high half republishes it.
func (c *CommandProcessor) registerReadPointer(loMask, hiMask uint16) {
	rp := &c.fifo.ReadPointer

	if c.timelineMode == SingleTimeline {
		c.registerHalves(FifoReadPointerLo, rp, loMask, hiMask)
		return
	}

	safe := &c.fifo.SafeReadPointer
	c.mmio[FifoReadPointerLo] = mmioEntry{lowRead(safe), lowWrite(rp, loMask)}
	c.mmio[FifoReadPointerHi] = mmioEntry{
		read: highRead(safe),
		write: func(v uint16) {
			rp.writeHigh(v & hiMask)
			c.fifo.PublishReadPointer()
		},
	}
}
