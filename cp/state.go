package cp

import (
	"encoding/binary"
	"io"
)

// State is a snapshot of the controller. Fields are laid out in the order
// they are persisted. Derived flags are stored as they are and never
// recomputed on restore.
type State struct {
	Base            uint32
	End             uint32
	HiWatermark     uint32
	LoWatermark     uint32
	Distance        uint32
	WritePointer    uint32
	ReadPointer     uint32
	Breakpoint      uint32
	SafeReadPointer uint32

	LinkEnable           bool
	ReadEnable           bool
	BPEnable             bool
	BPIntEnable          bool
	AtBreakpoint         bool
	LoWatermarkIntEnable bool
	HiWatermarkIntEnable bool
	BelowLoWatermark     bool
	AboveHiWatermark     bool

	CtrlReg  uint16
	ClearReg uint16

	BBoxLeft   uint16
	BBoxTop    uint16
	BBoxRight  uint16
	BBoxBottom uint16
	Token      uint16

	InterruptAsserted bool
	DispatchPending   bool
	PendingLevel      bool
}

// Snapshot captures the controller state.
func (c *CommandProcessor) Snapshot() State {
	f := &c.fifo
	mode := f.Mode()

	return State{
		Base:            f.Base.Load(),
		End:             f.End.Load(),
		HiWatermark:     f.HiWatermark.Load(),
		LoWatermark:     f.LoWatermark.Load(),
		Distance:        f.Distance.Load(),
		WritePointer:    f.WritePointer.Load(),
		ReadPointer:     f.ReadPointer.Load(),
		Breakpoint:      f.Breakpoint.Load(),
		SafeReadPointer: f.SafeReadPointer.Load(),

		LinkEnable:           mode.LinkEnable,
		ReadEnable:           mode.ReadEnable,
		BPEnable:             mode.BPEnable,
		BPIntEnable:          mode.BPIntEnable,
		AtBreakpoint:         f.AtBreakpoint(),
		LoWatermarkIntEnable: mode.LoWatermarkIntEnable,
		HiWatermarkIntEnable: mode.HiWatermarkIntEnable,
		BelowLoWatermark:     f.BelowLoWatermark(),
		AboveHiWatermark:     f.AboveHiWatermark(),

		CtrlReg:  c.ctrlReg.Load(),
		ClearReg: c.clearReg.Load(),

		BBoxLeft:   c.bboxLeft.Load(),
		BBoxTop:    c.bboxTop.Load(),
		BBoxRight:  c.bboxRight.Load(),
		BBoxBottom: c.bboxBottom.Load(),
		Token:      c.token.Load(),

		InterruptAsserted: c.interruptAsserted.Load(),
		DispatchPending:   c.dispatchPending.Load(),
		PendingLevel:      c.pendingLevel.Load(),
	}
}

// Restore writes a snapshot back.
//
// Interrupt events scheduled before the restore are dropped. If the snapshot
// was taken while a deferred interrupt was in flight, exactly one event
// carrying the same level is scheduled again, so the controller never stays
// pending forever.
func (c *CommandProcessor) Restore(s State) {
	f := &c.fifo

	f.Base.Store(s.Base)
	f.End.Store(s.End)
	f.HiWatermark.Store(s.HiWatermark)
	f.LoWatermark.Store(s.LoWatermark)
	f.Distance.Store(s.Distance)
	f.WritePointer.Store(s.WritePointer)
	f.ReadPointer.Store(s.ReadPointer)
	f.Breakpoint.Store(s.Breakpoint)
	f.SafeReadPointer.Store(s.SafeReadPointer)

	f.setMode(CtrlReg{
		ReadEnable:           s.ReadEnable,
		BPEnable:             s.BPEnable,
		HiWatermarkIntEnable: s.HiWatermarkIntEnable,
		LoWatermarkIntEnable: s.LoWatermarkIntEnable,
		LinkEnable:           s.LinkEnable,
		BPIntEnable:          s.BPIntEnable,
	})
	f.atBreakpoint.Store(s.AtBreakpoint)
	f.belowLoWatermark.Store(s.BelowLoWatermark)
	f.aboveHiWatermark.Store(s.AboveHiWatermark)

	c.ctrlReg.Store(s.CtrlReg)
	c.clearReg.Store(s.ClearReg)

	c.bboxLeft.Store(s.BBoxLeft)
	c.bboxTop.Store(s.BBoxTop)
	c.bboxRight.Store(s.BBoxRight)
	c.bboxBottom.Store(s.BBoxBottom)
	c.token.Store(s.Token)

	c.interruptAsserted.Store(s.InterruptAsserted)
	c.dispatchPending.Store(s.DispatchPending)
	c.pendingLevel.Store(s.PendingLevel)

	c.generation.Add(1)

	if s.DispatchPending {
		c.scheduleInterrupt(s.PendingLevel)
	}
}

// SaveState writes the snapshot in its binary layout.
func (c *CommandProcessor) SaveState(w io.Writer) error {
	s := c.Snapshot()
	return binary.Write(w, binary.LittleEndian, &s)
}

// LoadState reads a snapshot written by SaveState and restores it.
func (c *CommandProcessor) LoadState(r io.Reader) error {
	var s State

	err := binary.Read(r, binary.LittleEndian, &s)
	if err != nil {
		return err
	}

	c.Restore(s)

	return nil
}
