package cp

import (
	"bytes"

	"github.com/sarchlab/cpfifo/timing"
	"go.uber.org/mock/gomock"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("State", func() {
	var (
		mockCtrl *gomock.Controller
		engine   *timing.SerialEngine
		consumer *MockConsumer
		sink     *MockInterruptSink
	)

	build := func(mode TimelineMode) *CommandProcessor {
		return MakeBuilder().
			WithEngine(engine).
			WithConsumer(consumer).
			WithInterruptSink(sink).
			WithBusMirror(&fakeMirror{}).
			WithTimelineMode(mode).
			WithLogger(testLogger()).
			Build("CP")
	}

	BeforeEach(func() {
		mockCtrl = gomock.NewController(GinkgoT())
		engine = timing.NewSerialEngine()
		consumer = NewMockConsumer(mockCtrl)
		sink = NewMockInterruptSink(mockCtrl)

		consumer.EXPECT().RequestRun().AnyTimes()
		consumer.EXPECT().IsAtBreakpoint().Return(false).AnyTimes()
		consumer.EXPECT().IsDeterministicTimelineMode().Return(false).AnyTimes()
	})

	AfterEach(func() {
		mockCtrl.Finish()
	})

	It("should round trip byte for byte", func() {
		sink.EXPECT().SetInterruptLine(InterruptCause, true)

		src := build(SingleTimeline)
		write32(src, FifoEndLo, 0x2000)
		write32(src, FifoHiWatermarkLo, 0x100)
		write32(src, FifoBreakpointLo, 0x1E0)
		src.Write16(TokenRegister, 0x1234)
		src.Write16(ClearRegister, 0x3)
		src.SetReadbackRect(5, 6, 7, 8)
		src.Write16(CtrlRegister, CtrlReg{
			ReadEnable:           true,
			LinkEnable:           true,
			HiWatermarkIntEnable: true,
		}.Encode())
		for i := 0; i < 10; i++ {
			src.GatherPipeBursted()
		}
		src.ConsumeBurst()

		var saved bytes.Buffer
		Expect(src.SaveState(&saved)).To(Succeed())

		dst := build(SingleTimeline)
		Expect(dst.LoadState(bytes.NewReader(saved.Bytes()))).To(Succeed())

		var again bytes.Buffer
		Expect(dst.SaveState(&again)).To(Succeed())

		Expect(again.Bytes()).To(Equal(saved.Bytes()))
		Expect(dst.Snapshot()).To(Equal(src.Snapshot()))
		Expect(dst.Read16(TokenRegister)).To(Equal(uint16(0x1234)))
		Expect(dst.Read16(BoundingBoxBottom)).To(Equal(uint16(8)))
		Expect(dst.InterruptAsserted()).To(BeTrue())
	})

	It("should not recompute derived flags", func() {
		c := build(SingleTimeline)

		c.Restore(State{
			End:              0x1000,
			HiWatermark:      0x800,
			AboveHiWatermark: true,
			AtBreakpoint:     true,
		})

		Expect(c.Fifo().AboveHiWatermark()).To(BeTrue())
		Expect(c.Fifo().AtBreakpoint()).To(BeTrue())
		Expect(c.Fifo().Distance.Load()).To(BeZero())
	})

	It("should fail on a truncated snapshot", func() {
		c := build(SingleTimeline)

		err := c.LoadState(bytes.NewReader([]byte{1, 2, 3}))

		Expect(err).To(HaveOccurred())
	})

	Context("with a deferred interrupt in flight", func() {
		It("should schedule the interrupt again", func() {
			c := build(DualTimeline)

			c.Restore(State{
				End:                  0x1000,
				HiWatermark:          0x800,
				Distance:             0x900,
				ReadEnable:           true,
				HiWatermarkIntEnable: true,
				AboveHiWatermark:     true,
				DispatchPending:      true,
				PendingLevel:         true,
			})

			Expect(c.DispatchPending()).To(BeTrue())

			sink.EXPECT().SetInterruptLine(InterruptCause, true).Times(1)
			Expect(engine.Run()).To(Succeed())

			Expect(c.InterruptAsserted()).To(BeTrue())
			Expect(c.DispatchPending()).To(BeFalse())
		})

		It("should drop interrupts scheduled before the restore", func() {
			c := build(DualTimeline)
			write32(c, FifoEndLo, 0x1000)
			write32(c, FifoHiWatermarkLo, 0x20)
			c.Write16(CtrlRegister, CtrlReg{
				ReadEnable:           true,
				LinkEnable:           true,
				HiWatermarkIntEnable: true,
			}.Encode())
			c.GatherPipeBursted()
			c.GatherPipeBursted()
			Expect(c.DispatchPending()).To(BeTrue())

			c.Restore(State{End: 0x1000})

			Expect(engine.Run()).To(Succeed())
			Expect(c.InterruptAsserted()).To(BeFalse())
			Expect(c.DispatchPending()).To(BeFalse())
		})
	})
})
