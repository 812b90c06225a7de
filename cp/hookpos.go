package cp

import "github.com/sarchlab/cpfifo/timing"

// Hook positions fired by the CommandProcessor.
var (
	HookPosRegRead            = &timing.HookPos{Name: "CPRegRead"}
	HookPosRegWrite           = &timing.HookPos{Name: "CPRegWrite"}
	HookPosCommit             = &timing.HookPos{Name: "CPCommit"}
	HookPosInterrupt          = &timing.HookPos{Name: "CPInterrupt"}
	HookPosInterruptDeferred  = &timing.HookPos{Name: "CPInterruptDeferred"}
	HookPosBreakpoint         = &timing.HookPos{Name: "CPBreakpoint"}
	HookPosMalformedCommand   = &timing.HookPos{Name: "CPMalformedCommand"}
	HookPosControlRegisterSet = &timing.HookPos{Name: "CPControlRegisterSet"}
)

// RegAccess is the hook item of register reads and writes.
type RegAccess struct {
	Offset uint32
	Value  uint16
}

// InterruptChange is the hook item of interrupt transitions.
type InterruptChange struct {
	Asserted bool
}

// BurstCommit is the hook item of a gather pipe burst.
type BurstCommit struct {
	WritePointer uint32
	Distance     uint32
	Linked       bool
}

func (c *CommandProcessor) invoke(pos *timing.HookPos, item interface{}) {
	if c.NumHooks() == 0 {
		return
	}

	c.InvokeHook(timing.HookCtx{
		Domain: c,
		Pos:    pos,
		Item:   item,
		Detail: c.engine.CurrentTime(),
	})
}
