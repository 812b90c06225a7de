package cp

import "fmt"

// Register offsets, relative to the controller's MMIO base. Every register is
// a 16-bit window. 32-bit fields are split into a _LO and a _HI window.
const (
	StatusRegister uint32 = 0x00
	CtrlRegister   uint32 = 0x02
	ClearRegister  uint32 = 0x04
	PerfSelect     uint32 = 0x06
	TokenRegister  uint32 = 0x0E

	BoundingBoxLeft   uint32 = 0x10
	BoundingBoxRight  uint32 = 0x12
	BoundingBoxTop    uint32 = 0x14
	BoundingBoxBottom uint32 = 0x16

	FifoBaseLo         uint32 = 0x20
	FifoBaseHi         uint32 = 0x22
	FifoEndLo          uint32 = 0x24
	FifoEndHi          uint32 = 0x26
	FifoHiWatermarkLo  uint32 = 0x28
	FifoHiWatermarkHi  uint32 = 0x2A
	FifoLoWatermarkLo  uint32 = 0x2C
	FifoLoWatermarkHi  uint32 = 0x2E
	FifoRWDistanceLo   uint32 = 0x30
	FifoRWDistanceHi   uint32 = 0x32
	FifoWritePointerLo uint32 = 0x34
	FifoWritePointerHi uint32 = 0x36
	FifoReadPointerLo  uint32 = 0x38
	FifoReadPointerHi  uint32 = 0x3A
	FifoBreakpointLo   uint32 = 0x3C
	FifoBreakpointHi   uint32 = 0x3E

	XFRasBusyLo         uint32 = 0x40
	XFRasBusyHi         uint32 = 0x42
	XFClksLo            uint32 = 0x44
	XFClksHi            uint32 = 0x46
	XFWaitInLo          uint32 = 0x48
	XFWaitInHi          uint32 = 0x4A
	XFWaitOutLo         uint32 = 0x4C
	XFWaitOutHi         uint32 = 0x4E
	VCacheMetricCheckLo uint32 = 0x50
	VCacheMetricCheckHi uint32 = 0x52
	VCacheMetricMissLo  uint32 = 0x54
	VCacheMetricMissHi  uint32 = 0x56
	VCacheMetricStallLo uint32 = 0x58
	VCacheMetricStallHi uint32 = 0x5A
	ClksPerVtxOut       uint32 = 0x64
)

// BurstSize is the number of bytes the gather pipe commits at once.
const BurstSize uint32 = 32

// InterruptCause is the cause bit the controller raises on the platform
// interrupt controller.
const InterruptCause uint32 = 0x800

// Write masks for the FIFO windows.
const (
	// WriteMaskAll accepts every bit.
	WriteMaskAll uint16 = 0xFFFF

	// WriteMaskLoAlign32 keeps the top 11 bits of a _LO window, forcing
	// 32-byte alignment.
	WriteMaskLoAlign32 uint16 = 0xFFE0
)

// AddressWidth is the number of guest physical address bits the controller
// decodes. Upper bits beyond the width read back as zero.
type AddressWidth uint

// Supported address widths.
const (
	// AddressWidth26 is the width of the base hardware variant.
	AddressWidth26 AddressWidth = 26

	// AddressWidth29 is the width of the expanded hardware variant.
	AddressWidth29 AddressWidth = 29
)

// Mask returns the physical address mask for the width.
func (w AddressWidth) Mask() uint32 {
	return uint32(1)<<w - 1
}

// HiWriteMask returns the write mask of the _HI windows.
func (w AddressWidth) HiWriteMask() uint16 {
	return uint16(w.Mask() >> 16)
}

// bitField describes one field of a bit-packed 16-bit register.
type bitField struct {
	offset uint
	width  uint
}

func (f bitField) mask() uint16 {
	return uint16((1<<f.width)-1) << f.offset
}

func (f bitField) get(word uint16) uint16 {
	return (word & f.mask()) >> f.offset
}

func (f bitField) set(word uint16, v uint16) uint16 {
	return (word &^ f.mask()) | ((v << f.offset) & f.mask())
}

func (f bitField) flag(word uint16) bool {
	return f.get(word) != 0
}

func (f bitField) withFlag(word uint16, v bool) uint16 {
	if v {
		return f.set(word, 1)
	}

	return f.set(word, 0)
}

func onOff(v bool) string {
	if v {
		return "ON"
	}

	return "OFF"
}

// Status register layout.
var (
	statusOverflowHiWatermark  = bitField{0, 1}
	statusUnderflowLoWatermark = bitField{1, 1}
	statusReadIdle             = bitField{2, 1}
	statusCommandIdle          = bitField{3, 1}
	statusBreakpoint           = bitField{4, 1}
)

// StatusReg is the decoded status register. It is synthesized on every read
// and never stored.
type StatusReg struct {
	OverflowHiWatermark  bool
	UnderflowLoWatermark bool
	ReadIdle             bool
	CommandIdle          bool
	Breakpoint           bool
}

// DecodeStatusReg unpacks a raw status word.
func DecodeStatusReg(word uint16) StatusReg {
	return StatusReg{
		OverflowHiWatermark:  statusOverflowHiWatermark.flag(word),
		UnderflowLoWatermark: statusUnderflowLoWatermark.flag(word),
		ReadIdle:             statusReadIdle.flag(word),
		CommandIdle:          statusCommandIdle.flag(word),
		Breakpoint:           statusBreakpoint.flag(word),
	}
}

// Encode packs the status register into its raw word.
func (r StatusReg) Encode() uint16 {
	var w uint16
	w = statusOverflowHiWatermark.withFlag(w, r.OverflowHiWatermark)
	w = statusUnderflowLoWatermark.withFlag(w, r.UnderflowLoWatermark)
	w = statusReadIdle.withFlag(w, r.ReadIdle)
	w = statusCommandIdle.withFlag(w, r.CommandIdle)
	w = statusBreakpoint.withFlag(w, r.Breakpoint)

	return w
}

func (r StatusReg) String() string {
	return fmt.Sprintf(
		"iBP %s | fReadIdle %s | fCmdIdle %s | iOvF %s | iUndF %s",
		onOff(r.Breakpoint), onOff(r.ReadIdle), onOff(r.CommandIdle),
		onOff(r.OverflowHiWatermark), onOff(r.UnderflowLoWatermark))
}

// Control register layout.
var (
	ctrlReadEnable           = bitField{0, 1}
	ctrlBPEnable             = bitField{1, 1}
	ctrlHiWatermarkIntEnable = bitField{2, 1}
	ctrlLoWatermarkIntEnable = bitField{3, 1}
	ctrlLinkEnable           = bitField{4, 1}
	ctrlBPIntEnable          = bitField{5, 1}
)

// CtrlReg is the decoded control register. Its fields are the FIFO mode
// flags.
type CtrlReg struct {
	ReadEnable           bool
	BPEnable             bool
	HiWatermarkIntEnable bool
	LoWatermarkIntEnable bool
	LinkEnable           bool
	BPIntEnable          bool
}

// DecodeCtrlReg unpacks a raw control word. Undefined bits are ignored.
func DecodeCtrlReg(word uint16) CtrlReg {
	return CtrlReg{
		ReadEnable:           ctrlReadEnable.flag(word),
		BPEnable:             ctrlBPEnable.flag(word),
		HiWatermarkIntEnable: ctrlHiWatermarkIntEnable.flag(word),
		LoWatermarkIntEnable: ctrlLoWatermarkIntEnable.flag(word),
		LinkEnable:           ctrlLinkEnable.flag(word),
		BPIntEnable:          ctrlBPIntEnable.flag(word),
	}
}

// Encode packs the control register into its raw word.
func (r CtrlReg) Encode() uint16 {
	var w uint16
	w = ctrlReadEnable.withFlag(w, r.ReadEnable)
	w = ctrlBPEnable.withFlag(w, r.BPEnable)
	w = ctrlHiWatermarkIntEnable.withFlag(w, r.HiWatermarkIntEnable)
	w = ctrlLoWatermarkIntEnable.withFlag(w, r.LoWatermarkIntEnable)
	w = ctrlLinkEnable.withFlag(w, r.LinkEnable)
	w = ctrlBPIntEnable.withFlag(w, r.BPIntEnable)

	return w
}

func (r CtrlReg) String() string {
	return fmt.Sprintf(
		"GPREAD %s | BP %s | Int %s | OvF %s | UndF %s | LINK %s",
		onOff(r.ReadEnable), onOff(r.BPEnable), onOff(r.BPIntEnable),
		onOff(r.HiWatermarkIntEnable), onOff(r.LoWatermarkIntEnable),
		onOff(r.LinkEnable))
}

// Clear register layout.
var (
	clearFifoOverflow  = bitField{0, 1}
	clearFifoUnderflow = bitField{1, 1}
	clearMetrics       = bitField{2, 1}
)

// ClearReg is the decoded clear register. Writes are stored but have no
// effect.
type ClearReg struct {
	ClearFifoOverflow  bool
	ClearFifoUnderflow bool
	ClearMetrics       bool
}

// DecodeClearReg unpacks a raw clear word.
func DecodeClearReg(word uint16) ClearReg {
	return ClearReg{
		ClearFifoOverflow:  clearFifoOverflow.flag(word),
		ClearFifoUnderflow: clearFifoUnderflow.flag(word),
		ClearMetrics:       clearMetrics.flag(word),
	}
}

// Encode packs the clear register into its raw word.
func (r ClearReg) Encode() uint16 {
	var w uint16
	w = clearFifoOverflow.withFlag(w, r.ClearFifoOverflow)
	w = clearFifoUnderflow.withFlag(w, r.ClearFifoUnderflow)
	w = clearMetrics.withFlag(w, r.ClearMetrics)

	return w
}

// RegisterName returns a human readable name of a register offset, or an
// empty string if nothing is mapped at the offset.
func RegisterName(offset uint32) string {
	return registerNames[offset]
}

var registerNames = map[uint32]string{
	StatusRegister:      "STATUS",
	CtrlRegister:        "CTRL",
	ClearRegister:       "CLEAR",
	PerfSelect:          "PERF_SELECT",
	TokenRegister:       "TOKEN",
	BoundingBoxLeft:     "BBOX_LEFT",
	BoundingBoxRight:    "BBOX_RIGHT",
	BoundingBoxTop:      "BBOX_TOP",
	BoundingBoxBottom:   "BBOX_BOTTOM",
	FifoBaseLo:          "FIFO_BASE_LO",
	FifoBaseHi:          "FIFO_BASE_HI",
	FifoEndLo:           "FIFO_END_LO",
	FifoEndHi:           "FIFO_END_HI",
	FifoHiWatermarkLo:   "FIFO_HI_WATERMARK_LO",
	FifoHiWatermarkHi:   "FIFO_HI_WATERMARK_HI",
	FifoLoWatermarkLo:   "FIFO_LO_WATERMARK_LO",
	FifoLoWatermarkHi:   "FIFO_LO_WATERMARK_HI",
	FifoRWDistanceLo:    "FIFO_RW_DISTANCE_LO",
	FifoRWDistanceHi:    "FIFO_RW_DISTANCE_HI",
	FifoWritePointerLo:  "FIFO_WRITE_POINTER_LO",
	FifoWritePointerHi:  "FIFO_WRITE_POINTER_HI",
	FifoReadPointerLo:   "FIFO_READ_POINTER_LO",
	FifoReadPointerHi:   "FIFO_READ_POINTER_HI",
	FifoBreakpointLo:    "FIFO_BP_LO",
	FifoBreakpointHi:    "FIFO_BP_HI",
	XFRasBusyLo:         "XF_RASBUSY_L",
	XFRasBusyHi:         "XF_RASBUSY_H",
	XFClksLo:            "XF_CLKS_L",
	XFClksHi:            "XF_CLKS_H",
	XFWaitInLo:          "XF_WAIT_IN_L",
	XFWaitInHi:          "XF_WAIT_IN_H",
	XFWaitOutLo:         "XF_WAIT_OUT_L",
	XFWaitOutHi:         "XF_WAIT_OUT_H",
	VCacheMetricCheckLo: "VCACHE_METRIC_CHECK_L",
	VCacheMetricCheckHi: "VCACHE_METRIC_CHECK_H",
	VCacheMetricMissLo:  "VCACHE_METRIC_MISS_L",
	VCacheMetricMissHi:  "VCACHE_METRIC_MISS_H",
	VCacheMetricStallLo: "VCACHE_METRIC_STALL_L",
	VCacheMetricStallHi: "VCACHE_METRIC_STALL_H",
	ClksPerVtxOut:       "CLKS_PER_VTX_OUT",
}
