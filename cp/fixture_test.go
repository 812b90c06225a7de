package cp

import (
	"log"

	"github.com/sarchlab/cpfifo/timing"

	. "github.com/onsi/ginkgo/v2"
)

type fakeMirror struct {
	shadow FifoShadow
	frozen bool
}

func (m *fakeMirror) FifoShadow() FifoShadow {
	return m.shadow
}

func (m *fakeMirror) SetFifoShadow(s FifoShadow) {
	if m.frozen {
		return
	}

	m.shadow = s
}

type interruptEventCounter struct {
	count int
}

func (h *interruptEventCounter) Func(ctx timing.HookCtx) {
	if ctx.Pos != timing.HookPosBeforeEvent {
		return
	}

	if _, ok := ctx.Item.(*InterruptEvent); ok {
		h.count++
	}
}

type hookRecorder struct {
	items map[*timing.HookPos][]interface{}
}

func newHookRecorder() *hookRecorder {
	return &hookRecorder{items: make(map[*timing.HookPos][]interface{})}
}

func (h *hookRecorder) Func(ctx timing.HookCtx) {
	h.items[ctx.Pos] = append(h.items[ctx.Pos], ctx.Item)
}

func testLogger() *log.Logger {
	return log.New(GinkgoWriter, "", 0)
}

func write32(c *CommandProcessor, lo uint32, v uint32) {
	c.Write16(lo, uint16(v&0xFFFF))
	c.Write16(lo+2, uint16(v>>16))
}

func read32(c *CommandProcessor, lo uint32) uint32 {
	return uint32(c.Read16(lo)) | uint32(c.Read16(lo+2))<<16
}
