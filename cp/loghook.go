package cp

import (
	"log"

	"github.com/sarchlab/cpfifo/timing"
)

// LogHook prints what happens inside a CommandProcessor.
type LogHook struct {
	timing.LogHookBase

	// Registers selects whether plain register reads and writes are printed.
	Registers bool
}

// NewLogHook creates a LogHook that writes into the logger.
func NewLogHook(logger *log.Logger) *LogHook {
	h := new(LogHook)
	h.Logger = logger

	return h
}

// Func prints the hook item.
func (h *LogHook) Func(ctx timing.HookCtx) {
	now := ctx.Detail

	switch ctx.Pos {
	case HookPosRegRead, HookPosRegWrite:
		h.logRegAccess(ctx)
	case HookPosControlRegisterSet:
		h.Printf("%v, CP_CTRL_REG: %s", now, ctx.Item.(CtrlReg))
	case HookPosBreakpoint:
		edge := ctx.Item.(BreakpointEdge)
		if edge.Hit {
			h.Printf("%v, hit breakpoint at 0x%08x", now, edge.ReadPointer)
		} else {
			h.Printf("%v, cleared breakpoint at 0x%08x", now, edge.ReadPointer)
		}
	case HookPosInterrupt:
		if ctx.Item.(InterruptChange).Asserted {
			h.Printf("%v, interrupt set", now)
		} else {
			h.Printf("%v, interrupt cleared", now)
		}
	case HookPosInterruptDeferred:
		h.Printf("%v, interrupt deferred, level %t",
			now, ctx.Item.(InterruptChange).Asserted)
	case HookPosCommit:
		commit := ctx.Item.(BurstCommit)
		h.Printf("%v, burst committed, wp 0x%08x, distance 0x%08x, linked %t",
			now, commit.WritePointer, commit.Distance, commit.Linked)
	case HookPosMalformedCommand:
		h.Printf("%v, %s", now, ctx.Item.(error))
	}
}

func (h *LogHook) logRegAccess(ctx timing.HookCtx) {
	if !h.Registers {
		return
	}

	access := ctx.Item.(RegAccess)

	dir := "read"
	if ctx.Pos == HookPosRegWrite {
		dir = "write"
	}

	if access.Offset == StatusRegister {
		h.Printf("%v, %s %s: %s", ctx.Detail, dir,
			RegisterName(access.Offset), DecodeStatusReg(access.Value))
		return
	}

	h.Printf("%v, %s %s = 0x%04x", ctx.Detail, dir,
		RegisterName(access.Offset), access.Value)
}
