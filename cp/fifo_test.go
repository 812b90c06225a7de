package cp

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("Fifo", func() {
	var f *Fifo

	BeforeEach(func() {
		f = &Fifo{}
	})

	Context("when committing without consumption", func() {
		BeforeEach(func() {
			f.Base.Store(0x100)
			f.End.Store(0x500)
			f.WritePointer.Store(0x100)
		})

		It("should advance the write pointer around the ring", func() {
			capacity := f.Capacity()
			Expect(capacity).To(Equal(uint32(0x400)))

			for n := uint32(1); n*BurstSize < capacity; n++ {
				f.Commit(BurstSize)

				Expect(f.WritePointer.Load()).
					To(Equal(uint32(0x100) + (n*BurstSize)%capacity))
				Expect(f.Distance.Load()).To(Equal((n * BurstSize) % capacity))
			}
		})

		It("should wrap to base when the ring is exactly full", func() {
			for i := 0; i < 32; i++ {
				f.Commit(BurstSize)
			}

			Expect(f.WritePointer.Load()).To(Equal(uint32(0x100)))
			Expect(f.Distance.Load()).To(Equal(uint32(0x400)))
		})
	})

	It("should fill a 4 KiB ring with 128 bursts", func() {
		f.End.Store(0x1000)

		for i := 0; i < 128; i++ {
			f.Commit(BurstSize)
		}

		Expect(f.WritePointer.Load()).To(Equal(uint32(0)))
		Expect(f.Distance.Load()).To(Equal(uint32(0x1000)))
	})

	It("should panic on overflow without changing the ring", func() {
		f.End.Store(0x40)
		f.Commit(BurstSize)
		f.Commit(BurstSize)

		Expect(func() { f.Commit(BurstSize) }).To(Panic())
		Expect(f.Distance.Load()).To(Equal(uint32(0x40)))
		Expect(f.WritePointer.Load()).To(Equal(uint32(0)))
	})

	It("should consume and wrap the read pointer", func() {
		f.End.Store(0x40)
		f.Commit(BurstSize)
		f.Commit(BurstSize)

		f.Consume(BurstSize)
		Expect(f.ReadPointer.Load()).To(Equal(uint32(0x20)))
		Expect(f.Distance.Load()).To(Equal(uint32(0x20)))

		f.Consume(BurstSize)
		Expect(f.ReadPointer.Load()).To(Equal(uint32(0)))
		Expect(f.Distance.Load()).To(BeZero())
	})

	It("should panic on underflow", func() {
		f.End.Store(0x40)

		Expect(func() { f.Consume(BurstSize) }).To(Panic())
	})

	It("should only publish the read pointer on request", func() {
		f.End.Store(0x100)
		f.Commit(BurstSize)
		f.Consume(BurstSize)

		Expect(f.SafeReadPointer.Load()).To(BeZero())

		f.PublishReadPointer()

		Expect(f.SafeReadPointer.Load()).To(Equal(uint32(0x20)))
	})

	Context("computing the distance from the published read pointer", func() {
		BeforeEach(func() {
			f.Base.Store(0x1000)
			f.End.Store(0x2000)
		})

		It("should subtract when the write pointer is ahead", func() {
			f.WritePointer.Store(0x1800)
			f.SafeReadPointer.Store(0x1200)

			Expect(f.ComputeDistance(BurstSize)).To(Equal(uint32(0x600)))
		})

		It("should count the in-flight burst when wrapped", func() {
			f.WritePointer.Store(0x1100)
			f.SafeReadPointer.Store(0x1F00)

			Expect(f.ComputeDistance(BurstSize)).
				To(Equal(uint32(0x100 + 0x100 + 0x20)))
		})
	})

	DescribeTable("watermark flags",
		func(distance uint32, above, below bool) {
			f.HiWatermark.Store(0x800)
			f.LoWatermark.Store(0x100)
			f.Distance.Store(distance)

			f.RecomputeWatermarks()

			Expect(f.AboveHiWatermark()).To(Equal(above))
			Expect(f.BelowLoWatermark()).To(Equal(below))
		},
		Entry("empty", uint32(0), false, true),
		Entry("just below low", uint32(0xE0), false, true),
		Entry("at low", uint32(0x100), false, false),
		Entry("between", uint32(0x400), false, false),
		Entry("at high", uint32(0x800), false, false),
		Entry("above high", uint32(0x820), true, false),
	)

	Context("breakpoint", func() {
		BeforeEach(func() {
			f.Breakpoint.Store(0x40)
			f.setMode(CtrlReg{BPEnable: true})
		})

		It("should latch the breakpoint and report edges", func() {
			_, changed := f.RecomputeFlags()
			Expect(changed).To(BeFalse())

			f.ReadPointer.Store(0x40)
			edge, changed := f.RecomputeFlags()
			Expect(changed).To(BeTrue())
			Expect(edge).To(Equal(BreakpointEdge{Hit: true, ReadPointer: 0x40}))
			Expect(f.AtBreakpoint()).To(BeTrue())

			_, changed = f.RecomputeFlags()
			Expect(changed).To(BeFalse())

			f.ReadPointer.Store(0x60)
			edge, changed = f.RecomputeFlags()
			Expect(changed).To(BeTrue())
			Expect(edge.Hit).To(BeFalse())
			Expect(f.AtBreakpoint()).To(BeFalse())
		})

		It("should not hit when breakpoints are disabled", func() {
			f.setMode(CtrlReg{})
			f.ReadPointer.Store(0x40)

			f.RecomputeFlags()

			Expect(f.AtBreakpoint()).To(BeFalse())
		})
	})
})
