package cp

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("Registers", func() {
	It("should decode the control register bits", func() {
		r := DecodeCtrlReg(0x0035)

		Expect(r).To(Equal(CtrlReg{
			ReadEnable:           true,
			HiWatermarkIntEnable: true,
			LinkEnable:           true,
			BPIntEnable:          true,
		}))
		Expect(r.Encode()).To(Equal(uint16(0x0035)))
	})

	It("should ignore undefined control bits", func() {
		Expect(DecodeCtrlReg(0xFFC0)).To(Equal(CtrlReg{}))
	})

	It("should encode the status register bits", func() {
		s := StatusReg{
			OverflowHiWatermark: true,
			ReadIdle:            true,
			Breakpoint:          true,
		}

		Expect(s.Encode()).To(Equal(uint16(0x15)))
		Expect(DecodeStatusReg(0x15)).To(Equal(s))
	})

	It("should decode the clear register bits", func() {
		Expect(DecodeClearReg(0x6)).To(Equal(ClearReg{
			ClearFifoUnderflow: true,
			ClearMetrics:       true,
		}))
		Expect(ClearReg{ClearFifoOverflow: true}.Encode()).To(Equal(uint16(1)))
	})

	It("should print registers", func() {
		Expect(CtrlReg{ReadEnable: true}.String()).
			To(Equal("GPREAD ON | BP OFF | Int OFF | OvF OFF | UndF OFF | LINK OFF"))
		Expect(StatusReg{CommandIdle: true}.String()).
			To(Equal("iBP OFF | fReadIdle OFF | fCmdIdle ON | iOvF OFF | iUndF OFF"))
	})

	DescribeTable("address widths",
		func(w AddressWidth, mask uint32, hi uint16) {
			Expect(w.Mask()).To(Equal(mask))
			Expect(w.HiWriteMask()).To(Equal(hi))
		},
		Entry("26 bit", AddressWidth26, uint32(0x03FFFFFF), uint16(0x03FF)),
		Entry("29 bit", AddressWidth29, uint32(0x1FFFFFFF), uint16(0x1FFF)),
	)

	It("should name registers", func() {
		Expect(RegisterName(FifoBreakpointHi)).To(Equal("FIFO_BP_HI"))
		Expect(RegisterName(0x08)).To(BeEmpty())
	})
})
