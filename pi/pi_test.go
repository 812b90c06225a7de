package pi

import (
	"bytes"

	"github.com/sarchlab/cpfifo/cp"
	"github.com/sarchlab/cpfifo/timing"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

type lineRecorder struct {
	changes []LineChange
}

func (h *lineRecorder) Func(ctx timing.HookCtx) {
	if ctx.Pos == HookPosInterruptLine {
		h.changes = append(h.changes, ctx.Item.(LineChange))
	}
}

var _ = Describe("ProcessorInterface", func() {
	var p *ProcessorInterface

	BeforeEach(func() {
		p = MakeBuilder().
			WithTimeTeller(timing.NewSerialEngine()).
			Build("PI")
	})

	It("should raise and lower cause bits", func() {
		p.SetInterruptLine(cp.InterruptCause, true)
		p.SetInterruptLine(0x1, true)

		Expect(p.InterruptCause()).To(Equal(uint32(0x801)))
		Expect(p.InterruptPending()).To(BeTrue())

		p.SetInterruptLine(cp.InterruptCause, false)

		Expect(p.InterruptCause()).To(Equal(uint32(0x1)))
	})

	It("should mask causes", func() {
		p.SetInterruptMask(0x1)
		p.SetInterruptLine(cp.InterruptCause, true)

		Expect(p.InterruptPending()).To(BeFalse())
		Expect(p.Read32(InterruptMaskRegister)).To(Equal(uint32(0x1)))
	})

	It("should fire hooks on line changes", func() {
		h := &lineRecorder{}
		p.AcceptHook(h)

		p.SetInterruptLine(cp.InterruptCause, true)

		Expect(h.changes).To(ConsistOf(LineChange{
			Cause:    cp.InterruptCause,
			Asserted: true,
			Register: cp.InterruptCause,
		}))
	})

	It("should hold the FIFO shadow registers", func() {
		p.SetFifoShadow(cp.FifoShadow{WritePointer: 0x40, Base: 0x20, End: 0x1000})

		Expect(p.Read32(FifoBaseRegister)).To(Equal(uint32(0x20)))
		Expect(p.Read32(FifoEndRegister)).To(Equal(uint32(0x1000)))
		Expect(p.Read32(FifoWritePointer)).To(Equal(uint32(0x40)))

		p.Write32(FifoWritePointer, 0x60)

		Expect(p.FifoShadow().WritePointer).To(Equal(uint32(0x60)))
	})

	It("should ignore writes to the cause register", func() {
		p.Write32(InterruptCauseRegister, 0xFFFF)

		Expect(p.InterruptCause()).To(BeZero())
	})

	It("should save and load state", func() {
		p.SetInterruptLine(cp.InterruptCause, true)
		p.SetFifoShadow(cp.FifoShadow{WritePointer: 0x40, Base: 0x20, End: 0x1000})

		var buf bytes.Buffer
		Expect(p.SaveState(&buf)).To(Succeed())

		q := MakeBuilder().Build("PI2")
		Expect(q.LoadState(&buf)).To(Succeed())

		Expect(q.InterruptCause()).To(Equal(p.InterruptCause()))
		Expect(q.InterruptMask()).To(Equal(p.InterruptMask()))
		Expect(q.FifoShadow()).To(Equal(p.FifoShadow()))
	})

	It("should serve as the controller's platform", func() {
		var (
			_ cp.InterruptSink = p
			_ cp.BusMirror     = p
		)
	})
})
