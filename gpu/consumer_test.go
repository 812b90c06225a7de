package gpu

import (
	"log"

	"github.com/sarchlab/cpfifo/cp"
	"github.com/sarchlab/cpfifo/pi"
	"github.com/sarchlab/cpfifo/timing"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("Consumer", func() {
	var (
		engine     *timing.SerialEngine
		platform   *pi.ProcessorInterface
		controller *cp.CommandProcessor
		consumer   *Consumer
	)

	write32 := func(lo uint32, v uint32) {
		controller.Write16(lo, uint16(v))
		controller.Write16(lo+2, uint16(v>>16))
	}

	build := func(mode cp.TimelineMode) {
		engine = timing.NewSerialEngine()
		platform = pi.MakeBuilder().WithTimeTeller(engine).Build("PI")
		controller = cp.MakeBuilder().
			WithEngine(engine).
			WithInterruptSink(platform).
			WithBusMirror(platform).
			WithTimelineMode(mode).
			WithLogger(log.New(GinkgoWriter, "", 0)).
			Build("CP")
		consumer = MakeBuilder().
			WithEngine(engine).
			WithController(controller).
			WithTimelineMode(mode).
			Build("GPU")
		controller.SetConsumer(consumer)

		write32(cp.FifoBaseLo, 0x1000)
		write32(cp.FifoEndLo, 0x2000)
		write32(cp.FifoWritePointerLo, 0x1000)
		write32(cp.FifoReadPointerLo, 0x1000)
		write32(cp.FifoHiWatermarkLo, 0xC00)
		write32(cp.FifoLoWatermarkLo, 0x400)
	}

	Context("single timeline", func() {
		BeforeEach(func() {
			build(cp.SingleTimeline)
			controller.Write16(cp.CtrlRegister, cp.CtrlReg{
				ReadEnable: true,
				LinkEnable: true,
			}.Encode())
		})

		It("should drain every committed burst", func() {
			for i := 0; i < 40; i++ {
				controller.GatherPipeBursted()
			}

			Expect(engine.Run()).To(Succeed())

			f := controller.Fifo()
			Expect(consumer.DrainedBytes()).To(Equal(uint64(40 * cp.BurstSize)))
			Expect(f.Distance.Load()).To(BeZero())
			Expect(f.ReadPointer.Load()).To(Equal(f.WritePointer.Load()))
			Expect(f.SafeReadPointer.Load()).To(Equal(f.ReadPointer.Load()))
			Expect(platform.FifoShadow().WritePointer).
				To(Equal(f.WritePointer.Load()))
		})

		It("should stop at the breakpoint", func() {
			write32(cp.FifoBreakpointLo, 0x1040)
			controller.Write16(cp.CtrlRegister, cp.CtrlReg{
				ReadEnable:  true,
				LinkEnable:  true,
				BPEnable:    true,
				BPIntEnable: true,
			}.Encode())

			for i := 0; i < 4; i++ {
				controller.GatherPipeBursted()
			}

			Expect(engine.Run()).To(Succeed())

			Expect(consumer.DrainedBytes()).To(Equal(uint64(0x40)))
			Expect(consumer.IsAtBreakpoint()).To(BeTrue())
			Expect(controller.Fifo().AtBreakpoint()).To(BeTrue())
			Expect(controller.InterruptAsserted()).To(BeTrue())
			Expect(platform.InterruptCause() & cp.InterruptCause).
				To(Equal(cp.InterruptCause))

			status := cp.DecodeStatusReg(controller.Read16(cp.StatusRegister))
			Expect(status.Breakpoint).To(BeTrue())
			Expect(status.CommandIdle).To(BeTrue())
		})

		It("should resume after the breakpoint is disabled", func() {
			write32(cp.FifoBreakpointLo, 0x1040)
			controller.Write16(cp.CtrlRegister, cp.CtrlReg{
				ReadEnable: true,
				LinkEnable: true,
				BPEnable:   true,
			}.Encode())
			for i := 0; i < 4; i++ {
				controller.GatherPipeBursted()
			}
			Expect(engine.Run()).To(Succeed())

			controller.Write16(cp.CtrlRegister, cp.CtrlReg{
				ReadEnable: true,
				LinkEnable: true,
			}.Encode())
			Expect(engine.Run()).To(Succeed())

			Expect(consumer.DrainedBytes()).To(Equal(uint64(4 * cp.BurstSize)))
		})

		It("should drain synchronously when flushed", func() {
			for i := 0; i < 8; i++ {
				controller.GatherPipeBursted()
			}

			consumer.RequestFlush()

			Expect(controller.Fifo().Distance.Load()).To(BeZero())
			Expect(consumer.Flushes()).To(Equal(uint64(1)))
		})

		It("should not drain while reads are disabled", func() {
			controller.Write16(cp.CtrlRegister, cp.CtrlReg{LinkEnable: true}.Encode())
			platform.SetFifoShadow(cp.FifoShadow{
				WritePointer: 0x1020,
				Base:         0x1000,
				End:          0x2000,
			})
			controller.GatherPipeBursted()

			Expect(engine.Run()).To(Succeed())

			Expect(consumer.DrainedBytes()).To(BeZero())
			Expect(consumer.IsAtBreakpoint()).To(BeFalse())
		})
	})

	Context("dual timeline", func() {
		BeforeEach(func() {
			build(cp.DualTimeline)
			controller.Write16(cp.CtrlRegister, cp.CtrlReg{
				ReadEnable: true,
				LinkEnable: true,
			}.Encode())
			consumer.Start()
		})

		AfterEach(func() {
			consumer.Stop()
		})

		It("should drain on its own goroutine", func() {
			for i := 0; i < 16; i++ {
				controller.GatherPipeBursted()
			}

			Eventually(consumer.DrainedBytes).
				Should(Equal(uint64(16 * cp.BurstSize)))
		})

		It("should drain before reads are disabled", func() {
			for i := 0; i < 16; i++ {
				controller.GatherPipeBursted()
			}

			controller.Write16(cp.CtrlRegister, cp.CtrlReg{LinkEnable: true}.Encode())

			Expect(controller.Fifo().Distance.Load()).To(BeZero())
			Expect(consumer.DrainedBytes()).To(Equal(uint64(16 * cp.BurstSize)))
			Expect(consumer.Flushes()).To(Equal(uint64(1)))
		})

		It("should sync on distance writes", func() {
			for i := 0; i < 4; i++ {
				controller.GatherPipeBursted()
			}

			controller.Write16(cp.FifoRWDistanceHi, 0)

			Expect(consumer.Syncs()).To(Equal(uint64(1)))
			Expect(controller.Fifo().Distance.Load()).To(BeZero())
		})

		It("should deliver the underflow interrupt on the engine", func() {
			controller.Write16(cp.CtrlRegister, cp.CtrlReg{
				ReadEnable:           true,
				LinkEnable:           true,
				LoWatermarkIntEnable: true,
			}.Encode())

			for i := 0; i < 4; i++ {
				controller.GatherPipeBursted()
			}

			Eventually(controller.DispatchPending).Should(BeTrue())
			Expect(engine.Run()).To(Succeed())

			Expect(controller.InterruptAsserted()).To(BeTrue())
			Expect(platform.InterruptPending()).To(BeTrue())
		})

		It("should refuse to start on a single timeline", func() {
			c := MakeBuilder().WithEngine(engine).Build("GPU2")

			Expect(c.Start).To(Panic())
		})
	})
})
