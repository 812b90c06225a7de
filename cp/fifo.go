package cp

import (
	"log"
	"sync/atomic"
)

// reg32 is a 32-bit register field that is shared between the producer and
// the consumer timeline. Every access is atomic; half-word writes are
// compare-and-swap loops so that a concurrent full-word update is never lost.
type reg32 struct {
	v atomic.Uint32
}

// Load returns the value of the field.
func (r *reg32) Load() uint32 {
	return r.v.Load()
}

// Store replaces the value of the field.
func (r *reg32) Store(v uint32) {
	r.v.Store(v)
}

// Add atomically adds delta and returns the new value.
func (r *reg32) Add(delta uint32) uint32 {
	return r.v.Add(delta)
}

func (r *reg32) low() uint16 {
	return uint16(r.v.Load() & 0xFFFF)
}

func (r *reg32) high() uint16 {
	return uint16(r.v.Load() >> 16)
}

func (r *reg32) writeLow(lo uint16) {
	for {
		old := r.v.Load()
		if r.v.CompareAndSwap(old, (old&0xFFFF0000)|uint32(lo)) {
			return
		}
	}
}

func (r *reg32) writeHigh(hi uint16) {
	for {
		old := r.v.Load()
		if r.v.CompareAndSwap(old, (old&0x0000FFFF)|uint32(hi)<<16) {
			return
		}
	}
}

// reg16 is a 16-bit register word.
type reg16 struct {
	v atomic.Uint32
}

func (r *reg16) Load() uint16 {
	return uint16(r.v.Load())
}

func (r *reg16) Store(v uint16) {
	r.v.Store(uint32(v))
}

// Fifo is the ring buffer descriptor and its flow-control state.
//
// Ownership: WritePointer belongs to the producer, ReadPointer to the
// consumer. SafeReadPointer is written by the consumer only and read by the
// producer only. Distance is updated atomically from both sides.
type Fifo struct {
	Base            reg32
	End             reg32
	HiWatermark     reg32
	LoWatermark     reg32
	Distance        reg32
	WritePointer    reg32
	ReadPointer     reg32
	Breakpoint      reg32
	SafeReadPointer reg32

	// mode holds the encoded CtrlReg so that all mode flags change together.
	mode atomic.Uint32

	atBreakpoint     atomic.Bool
	aboveHiWatermark atomic.Bool
	belowLoWatermark atomic.Bool
}

// BreakpointEdge is reported when the latched breakpoint flag changes.
type BreakpointEdge struct {
	Hit         bool
	ReadPointer uint32
}

func (f *Fifo) reset() {
	f.Base.Store(0)
	f.End.Store(0)
	f.HiWatermark.Store(0)
	f.LoWatermark.Store(0)
	f.Distance.Store(0)
	f.WritePointer.Store(0)
	f.ReadPointer.Store(0)
	f.Breakpoint.Store(0)
	f.SafeReadPointer.Store(0)
	f.mode.Store(0)
	f.atBreakpoint.Store(false)
	f.aboveHiWatermark.Store(false)
	f.belowLoWatermark.Store(false)
}

// Mode returns the mode flags.
func (f *Fifo) Mode() CtrlReg {
	return DecodeCtrlReg(uint16(f.mode.Load()))
}

func (f *Fifo) setMode(m CtrlReg) {
	f.mode.Store(uint32(m.Encode()))
}

// AtBreakpoint returns the latched breakpoint flag.
func (f *Fifo) AtBreakpoint() bool {
	return f.atBreakpoint.Load()
}

// AboveHiWatermark returns whether the distance exceeded the high watermark
// at the last recomputation.
func (f *Fifo) AboveHiWatermark() bool {
	return f.aboveHiWatermark.Load()
}

// BelowLoWatermark returns whether the distance was below the low watermark
// at the last recomputation.
func (f *Fifo) BelowLoWatermark() bool {
	return f.belowLoWatermark.Load()
}

// Capacity returns the size of the ring in bytes.
func (f *Fifo) Capacity() uint32 {
	return f.End.Load() - f.Base.Load()
}

// advance moves a cursor forward by size bytes, wrapping to base once it
// reaches end.
func (f *Fifo) advance(p, size uint32) uint32 {
	base, end := f.Base.Load(), f.End.Load()

	next := p + size
	if next >= end {
		next = base + (next - end)
	}

	return next
}

// Commit appends size bytes on the producer side. The caller must make sure
// the ring has room; an overflow means the two timelines lost track of each
// other and is fatal.
func (f *Fifo) Commit(size uint32) {
	distance := f.Distance.Load()
	capacity := f.Capacity()

	if uint64(distance)+uint64(size) > uint64(capacity) {
		log.Panicf(
			"FIFO is overflowed by gather pipe: distance 0x%08x + 0x%x > "+
				"capacity 0x%08x; producer is too fast",
			distance, size, capacity)
	}

	f.WritePointer.Store(f.advance(f.WritePointer.Load(), size))
	f.Distance.Add(size)
}

// Consume removes size bytes on the consumer side, moving the read cursor.
func (f *Fifo) Consume(size uint32) {
	for {
		distance := f.Distance.Load()
		if distance < size {
			log.Panicf(
				"FIFO is underflowed by consumer: distance 0x%08x < 0x%x",
				distance, size)
		}

		if f.Distance.v.CompareAndSwap(distance, distance-size) {
			break
		}
	}

	f.ReadPointer.Store(f.advance(f.ReadPointer.Load(), size))
}

// PublishReadPointer makes the consumer's read pointer visible to the
// producer. Consumer only.
func (f *Fifo) PublishReadPointer() {
	f.SafeReadPointer.Store(f.ReadPointer.Load())
}

// ComputeDistance derives the buffered byte count from the producer's
// write pointer and the published read pointer. It is the only distance
// the producer may observe when the consumer runs on its own timeline.
// When the write pointer has wrapped behind the published read pointer,
// one in-flight burst is counted in addition.
func (f *Fifo) ComputeDistance(burst uint32) uint32 {
	wp := f.WritePointer.Load()
	safe := f.SafeReadPointer.Load()

	if wp >= safe {
		return wp - safe
	}

	return (f.End.Load() - safe) + (wp - f.Base.Load()) + burst
}

// RecomputeWatermarks updates the watermark flags from the current distance.
func (f *Fifo) RecomputeWatermarks() {
	distance := f.Distance.Load()

	f.aboveHiWatermark.Store(distance > f.HiWatermark.Load())
	f.belowLoWatermark.Store(distance < f.LoWatermark.Load())
}

// RecomputeFlags updates every derived flag. It returns the breakpoint edge
// if the latched breakpoint flag changed.
func (f *Fifo) RecomputeFlags() (edge BreakpointEdge, changed bool) {
	rp := f.ReadPointer.Load()
	hit := f.Mode().BPEnable && f.Breakpoint.Load() == rp

	was := f.atBreakpoint.Swap(hit)
	f.RecomputeWatermarks()

	if was == hit {
		return BreakpointEdge{}, false
	}

	return BreakpointEdge{Hit: hit, ReadPointer: rp}, true
}
