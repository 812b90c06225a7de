package cp

import (
	"github.com/sarchlab/cpfifo/timing"
	"go.uber.org/mock/gomock"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("GatherPipeBursted", func() {
	var (
		mockCtrl *gomock.Controller
		engine   *timing.SerialEngine
		consumer *MockConsumer
		sink     *MockInterruptSink
	)

	build := func(mode TimelineMode, mirror BusMirror) *CommandProcessor {
		c := MakeBuilder().
			WithEngine(engine).
			WithConsumer(consumer).
			WithInterruptSink(sink).
			WithBusMirror(mirror).
			WithTimelineMode(mode).
			WithLogger(testLogger()).
			Build("CP")

		write32(c, FifoBaseLo, 0x0010_0000)
		write32(c, FifoEndLo, 0x0010_1000)
		write32(c, FifoWritePointerLo, 0x0010_0000)
		write32(c, FifoReadPointerLo, 0x0010_0000)

		return c
	}

	BeforeEach(func() {
		mockCtrl = gomock.NewController(GinkgoT())
		engine = timing.NewSerialEngine()
		consumer = NewMockConsumer(mockCtrl)
		sink = NewMockInterruptSink(mockCtrl)

		consumer.EXPECT().IsAtBreakpoint().Return(false).AnyTimes()
	})

	AfterEach(func() {
		mockCtrl.Finish()
	})

	Context("when not linked", func() {
		It("should only wake the consumer", func() {
			consumer.EXPECT().RequestRun().AnyTimes()
			c := build(SingleTimeline, &fakeMirror{})
			c.Write16(CtrlRegister, CtrlReg{ReadEnable: true}.Encode())

			c.GatherPipeBursted()

			Expect(c.Fifo().WritePointer.Load()).To(Equal(uint32(0x0010_0000)))
			Expect(c.Fifo().Distance.Load()).To(BeZero())
		})

		It("should flush a consumer still reading the same FIFO", func() {
			mirror := NewMockBusMirror(mockCtrl)
			consumer.EXPECT().RequestRun().AnyTimes()
			consumer.EXPECT().RequestSync(SyncReasonDistanceWrite)
			consumer.EXPECT().IsDeterministicTimelineMode().Return(false)

			c := build(DualTimeline, mirror)
			write32(c, FifoRWDistanceLo, 0x40)

			mirror.EXPECT().FifoShadow().Return(FifoShadow{
				WritePointer: 0x0010_0040,
				Base:         0x0010_0000,
				End:          0x0010_1000,
			})
			consumer.EXPECT().RequestFlush()

			c.GatherPipeBursted()
		})

		It("should not flush a consumer reading another FIFO", func() {
			mirror := NewMockBusMirror(mockCtrl)
			consumer.EXPECT().RequestRun().AnyTimes()
			consumer.EXPECT().RequestSync(SyncReasonDistanceWrite)
			consumer.EXPECT().IsDeterministicTimelineMode().Return(false)

			c := build(DualTimeline, mirror)
			write32(c, FifoRWDistanceLo, 0x40)

			mirror.EXPECT().FifoShadow().Return(FifoShadow{
				Base: 0x0020_0000,
				End:  0x0020_1000,
			})

			c.GatherPipeBursted()
		})

		It("should not flush an empty FIFO", func() {
			mirror := NewMockBusMirror(mockCtrl)
			consumer.EXPECT().RequestRun().AnyTimes()
			consumer.EXPECT().IsDeterministicTimelineMode().Return(false)

			c := build(DualTimeline, mirror)

			mirror.EXPECT().FifoShadow().Return(FifoShadow{
				Base: 0x0010_0000,
				End:  0x0010_1000,
			})

			c.GatherPipeBursted()
		})

		It("should not flush a deterministic consumer", func() {
			mirror := NewMockBusMirror(mockCtrl)
			consumer.EXPECT().RequestRun().AnyTimes()
			consumer.EXPECT().RequestSync(SyncReasonDistanceWrite)
			consumer.EXPECT().IsDeterministicTimelineMode().Return(true)

			c := build(DualTimeline, mirror)
			write32(c, FifoRWDistanceLo, 0x40)

			c.GatherPipeBursted()
		})
	})

	Context("when linked", func() {
		var (
			c      *CommandProcessor
			mirror *fakeMirror
		)

		BeforeEach(func() {
			consumer.EXPECT().RequestRun().AnyTimes()
			mirror = &fakeMirror{}
			c = build(SingleTimeline, mirror)
		})

		It("should commit a burst and mirror the FIFO", func() {
			hooks := newHookRecorder()
			c.AcceptHook(hooks)
			c.Write16(CtrlRegister, CtrlReg{
				ReadEnable: true,
				LinkEnable: true,
			}.Encode())

			c.GatherPipeBursted()

			Expect(c.Fifo().WritePointer.Load()).To(Equal(uint32(0x0010_0020)))
			Expect(c.Fifo().Distance.Load()).To(Equal(BurstSize))
			Expect(mirror.shadow).To(Equal(FifoShadow{
				WritePointer: 0x0010_0020,
				Base:         0x0010_0000,
				End:          0x0010_1000,
			}))
			Expect(hooks.items[HookPosCommit]).To(ConsistOf(BurstCommit{
				WritePointer: 0x0010_0020,
				Distance:     BurstSize,
				Linked:       true,
			}))
		})

		It("should leave the mirror to the platform while reads are disabled", func() {
			mirror.frozen = true
			mirror.shadow = FifoShadow{
				WritePointer: 0x0010_0020,
				Base:         0x0010_0000,
				End:          0x0010_1000,
			}
			c.Write16(CtrlRegister, CtrlReg{LinkEnable: true}.Encode())

			c.GatherPipeBursted()

			Expect(c.Fifo().Distance.Load()).To(Equal(BurstSize))
		})

		It("should panic on a stale mirror while reads are disabled", func() {
			mirror.frozen = true
			c.Write16(CtrlRegister, CtrlReg{LinkEnable: true}.Encode())

			Expect(func() { c.GatherPipeBursted() }).To(Panic())
			Expect(mirror.shadow).To(Equal(FifoShadow{}))
		})

		It("should panic when the mirror does not follow", func() {
			mirror.frozen = true
			c.Write16(CtrlRegister, CtrlReg{
				ReadEnable: true,
				LinkEnable: true,
			}.Encode())

			Expect(func() { c.GatherPipeBursted() }).To(Panic())
		})

		It("should panic when the ring overflows", func() {
			c.Write16(CtrlRegister, CtrlReg{
				ReadEnable: true,
				LinkEnable: true,
			}.Encode())
			write32(c, FifoHiWatermarkLo, 0x1000)

			for i := 0; i < 128; i++ {
				c.GatherPipeBursted()
			}

			Expect(func() { c.GatherPipeBursted() }).To(Panic())
		})

		It("should check for exceptions early above the high watermark", func() {
			c.Write16(CtrlRegister, CtrlReg{
				ReadEnable: true,
				LinkEnable: true,
			}.Encode())
			write32(c, FifoHiWatermarkLo, 0x40)

			c.GatherPipeBursted()
			c.GatherPipeBursted()
			c.GatherPipeBursted()
			Expect(engine.TakeExceptionCheck()).To(BeFalse())

			c.GatherPipeBursted()
			Expect(engine.TakeExceptionCheck()).To(BeTrue())
		})
	})
})
