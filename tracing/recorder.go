// Package tracing records the activity of a command processor into a
// datarecording backend.
package tracing

import (
	"sync/atomic"

	"github.com/sarchlab/cpfifo/cp"
	"github.com/sarchlab/cpfifo/datarecording"
	"github.com/sarchlab/cpfifo/pi"
	"github.com/sarchlab/cpfifo/timing"
	"github.com/tebeka/atexit"
)

// Table names.
const (
	InterruptTable  = "cp_interrupt"
	CommitTable     = "cp_commit"
	RegisterTable   = "cp_register"
	BreakpointTable = "cp_breakpoint"
	LineTable       = "pi_line"
)

type interruptEntry struct {
	Time     uint64
	Asserted bool
	Deferred bool
}

type commitEntry struct {
	Time         uint64
	WritePointer uint32
	Distance     uint32
	Linked       bool
}

type registerEntry struct {
	Time   uint64
	Kind   string
	Offset uint32
	Name   string
	Value  uint16
}

type breakpointEntry struct {
	Time        uint64
	Hit         bool
	ReadPointer uint32
}

type lineEntry struct {
	Time     uint64
	Cause    uint32
	Asserted bool
	Register uint32
}

// Recorder is a hook that writes controller and platform activity into
// tables.
type Recorder struct {
	backend   datarecording.DataRecorder
	registers bool
	enabled   atomic.Bool
}

// NewRecorder creates a Recorder and its tables. Register accesses are only
// recorded if registers is true, as they are by far the most frequent.
func NewRecorder(
	backend datarecording.DataRecorder,
	registers bool,
) *Recorder {
	backend.CreateTable(InterruptTable, interruptEntry{})
	backend.CreateTable(CommitTable, commitEntry{})
	backend.CreateTable(BreakpointTable, breakpointEntry{})
	backend.CreateTable(LineTable, lineEntry{})

	if registers {
		backend.CreateTable(RegisterTable, registerEntry{})
	}

	r := &Recorder{
		backend:   backend,
		registers: registers,
	}
	r.enabled.Store(true)

	atexit.Register(func() { r.Terminate() })

	return r
}

// Enable resumes recording.
func (r *Recorder) Enable() {
	r.enabled.Store(true)
}

// Disable pauses recording.
func (r *Recorder) Disable() {
	r.enabled.Store(false)
}

// IsEnabled tells if the recorder is recording.
func (r *Recorder) IsEnabled() bool {
	return r.enabled.Load()
}

// Terminate flushes everything recorded so far.
func (r *Recorder) Terminate() {
	r.backend.Flush()
}

// Func records the hook item.
func (r *Recorder) Func(ctx timing.HookCtx) {
	if !r.enabled.Load() {
		return
	}

	now, _ := ctx.Detail.(timing.VTimeInCycle)
	t := uint64(now)

	switch ctx.Pos {
	case cp.HookPosInterrupt, cp.HookPosInterruptDeferred:
		r.backend.InsertData(InterruptTable, interruptEntry{
			Time:     t,
			Asserted: ctx.Item.(cp.InterruptChange).Asserted,
			Deferred: ctx.Pos == cp.HookPosInterruptDeferred,
		})
	case cp.HookPosCommit:
		commit := ctx.Item.(cp.BurstCommit)
		r.backend.InsertData(CommitTable, commitEntry{
			Time:         t,
			WritePointer: commit.WritePointer,
			Distance:     commit.Distance,
			Linked:       commit.Linked,
		})
	case cp.HookPosBreakpoint:
		edge := ctx.Item.(cp.BreakpointEdge)
		r.backend.InsertData(BreakpointTable, breakpointEntry{
			Time:        t,
			Hit:         edge.Hit,
			ReadPointer: edge.ReadPointer,
		})
	case cp.HookPosRegRead, cp.HookPosRegWrite:
		r.recordRegister(t, ctx)
	case pi.HookPosInterruptLine:
		change := ctx.Item.(pi.LineChange)
		r.backend.InsertData(LineTable, lineEntry{
			Time:     t,
			Cause:    change.Cause,
			Asserted: change.Asserted,
			Register: change.Register,
		})
	}
}

func (r *Recorder) recordRegister(t uint64, ctx timing.HookCtx) {
	if !r.registers {
		return
	}

	access := ctx.Item.(cp.RegAccess)

	kind := "read"
	if ctx.Pos == cp.HookPosRegWrite {
		kind = "write"
	}

	r.backend.InsertData(RegisterTable, registerEntry{
		Time:   t,
		Kind:   kind,
		Offset: access.Offset,
		Name:   cp.RegisterName(access.Offset),
		Value:  access.Value,
	})
}
