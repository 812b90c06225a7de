// Package pi provides the platform processor interface that sits next to the
// command processor: the interrupt cause register the controller raises its
// line on, and the bus-mastering FIFO shadow registers it mirrors into when
// linked.
package pi

import (
	"encoding/binary"
	"io"
	"log"
	"sync/atomic"

	"github.com/sarchlab/cpfifo/cp"
	"github.com/sarchlab/cpfifo/timing"
)

// Register offsets of the processor interface, relative to its MMIO base.
const (
	InterruptCauseRegister uint32 = 0x00
	InterruptMaskRegister  uint32 = 0x04
	FifoBaseRegister       uint32 = 0x0C
	FifoEndRegister        uint32 = 0x10
	FifoWritePointer       uint32 = 0x14
)

// HookPosInterruptLine is fired every time a device changes its line.
var HookPosInterruptLine = &timing.HookPos{Name: "PIInterruptLine"}

// LineChange is the hook item of HookPosInterruptLine.
type LineChange struct {
	Cause    uint32
	Asserted bool
	Register uint32
}

// ProcessorInterface holds the interrupt cause and the FIFO shadow
// registers. The controller may signal it from the scheduler goroutine while
// the producer reads it, so every field is atomic.
type ProcessorInterface struct {
	*timing.HookableBase

	name       string
	timeTeller timing.TimeTeller

	cause atomic.Uint32
	mask  atomic.Uint32

	fifoBase         atomic.Uint32
	fifoEnd          atomic.Uint32
	fifoWritePointer atomic.Uint32
}

// Name returns the name of the interface.
func (p *ProcessorInterface) Name() string {
	return p.name
}

// SetInterruptLine raises or lowers one cause bit.
func (p *ProcessorInterface) SetInterruptLine(cause uint32, asserted bool) {
	var now uint32

	for {
		old := p.cause.Load()

		now = old &^ cause
		if asserted {
			now = old | cause
		}

		if p.cause.CompareAndSwap(old, now) {
			break
		}
	}

	if p.NumHooks() == 0 {
		return
	}

	var t timing.VTimeInCycle
	if p.timeTeller != nil {
		t = p.timeTeller.CurrentTime()
	}

	p.InvokeHook(timing.HookCtx{
		Domain: p,
		Pos:    HookPosInterruptLine,
		Item:   LineChange{Cause: cause, Asserted: asserted, Register: now},
		Detail: t,
	})
}

// InterruptCause returns the raw cause register.
func (p *ProcessorInterface) InterruptCause() uint32 {
	return p.cause.Load()
}

// InterruptMask returns the raw mask register.
func (p *ProcessorInterface) InterruptMask() uint32 {
	return p.mask.Load()
}

// SetInterruptMask replaces the mask register.
func (p *ProcessorInterface) SetInterruptMask(mask uint32) {
	p.mask.Store(mask)
}

// InterruptPending returns true if an unmasked cause is raised.
func (p *ProcessorInterface) InterruptPending() bool {
	return p.cause.Load()&p.mask.Load() != 0
}

// FifoShadow returns the shadow copy of the FIFO bounds.
func (p *ProcessorInterface) FifoShadow() cp.FifoShadow {
	return cp.FifoShadow{
		WritePointer: p.fifoWritePointer.Load(),
		Base:         p.fifoBase.Load(),
		End:          p.fifoEnd.Load(),
	}
}

// SetFifoShadow updates the shadow copy of the FIFO bounds.
func (p *ProcessorInterface) SetFifoShadow(s cp.FifoShadow) {
	p.fifoBase.Store(s.Base)
	p.fifoEnd.Store(s.End)
	p.fifoWritePointer.Store(s.WritePointer)
}

// Read32 reads a 32-bit register.
func (p *ProcessorInterface) Read32(offset uint32) uint32 {
	switch offset {
	case InterruptCauseRegister:
		return p.cause.Load()
	case InterruptMaskRegister:
		return p.mask.Load()
	case FifoBaseRegister:
		return p.fifoBase.Load()
	case FifoEndRegister:
		return p.fifoEnd.Load()
	case FifoWritePointer:
		return p.fifoWritePointer.Load()
	}

	log.Printf("%s: invalid read from 0x%02x", p.name, offset)

	return 0
}

// Write32 writes a 32-bit register. The cause register is read-only here:
// devices own their cause bits.
func (p *ProcessorInterface) Write32(offset uint32, v uint32) {
	switch offset {
	case InterruptMaskRegister:
		p.mask.Store(v)
	case FifoBaseRegister:
		p.fifoBase.Store(v)
	case FifoEndRegister:
		p.fifoEnd.Store(v)
	case FifoWritePointer:
		p.fifoWritePointer.Store(v)
	default:
		log.Printf("%s: invalid write 0x%08x to 0x%02x", p.name, v, offset)
	}
}

type state struct {
	Cause            uint32
	Mask             uint32
	FifoBase         uint32
	FifoEnd          uint32
	FifoWritePointer uint32
}

// SaveState writes the registers in a fixed little-endian layout.
func (p *ProcessorInterface) SaveState(w io.Writer) error {
	s := state{
		Cause:            p.cause.Load(),
		Mask:             p.mask.Load(),
		FifoBase:         p.fifoBase.Load(),
		FifoEnd:          p.fifoEnd.Load(),
		FifoWritePointer: p.fifoWritePointer.Load(),
	}

	return binary.Write(w, binary.LittleEndian, &s)
}

// LoadState restores registers written by SaveState.
func (p *ProcessorInterface) LoadState(r io.Reader) error {
	var s state

	err := binary.Read(r, binary.LittleEndian, &s)
	if err != nil {
		return err
	}

	p.cause.Store(s.Cause)
	p.mask.Store(s.Mask)
	p.fifoBase.Store(s.FifoBase)
	p.fifoEnd.Store(s.FifoEnd)
	p.fifoWritePointer.Store(s.FifoWritePointer)

	return nil
}
