package cp

import (
	"fmt"
	"strings"
)

// MalformedCommandError is reported when the consumer meets a command byte
// it cannot decode. What happens after the report is undefined.
type MalformedCommandError struct {
	Cmd        byte
	Addr       uint32
	Preprocess bool
	State      State
	Status     StatusReg
}

func (e *MalformedCommandError) Error() string {
	return fmt.Sprintf(
		"illegal command %02x at 0x%08x (preprocess %t)",
		e.Cmd, e.Addr, e.Preprocess)
}

// Dump renders the register and FIFO state at the time of the report.
func (e *MalformedCommandError) Dump() string {
	s := e.State
	mode := CtrlReg{
		ReadEnable:           s.ReadEnable,
		BPEnable:             s.BPEnable,
		HiWatermarkIntEnable: s.HiWatermarkIntEnable,
		LoWatermarkIntEnable: s.LoWatermarkIntEnable,
		LinkEnable:           s.LinkEnable,
		BPIntEnable:          s.BPIntEnable,
	}

	var b strings.Builder

	fmt.Fprintf(&b, "%s\n", e.Error())
	fmt.Fprintf(&b, "Status: %s\n", e.Status)
	fmt.Fprintf(&b, "Control: %s\n", mode)
	fmt.Fprintf(&b, "FIFO base:     0x%08x\n", s.Base)
	fmt.Fprintf(&b, "FIFO end:      0x%08x\n", s.End)
	fmt.Fprintf(&b, "Hi watermark:  0x%08x\n", s.HiWatermark)
	fmt.Fprintf(&b, "Lo watermark:  0x%08x\n", s.LoWatermark)
	fmt.Fprintf(&b, "RW distance:   0x%08x\n", s.Distance)
	fmt.Fprintf(&b, "Write pointer: 0x%08x\n", s.WritePointer)
	fmt.Fprintf(&b, "Read pointer:  0x%08x\n", s.ReadPointer)
	fmt.Fprintf(&b, "Breakpoint:    0x%08x\n", s.Breakpoint)
	fmt.Fprintf(&b, "Safe read ptr: 0x%08x\n", s.SafeReadPointer)
	fmt.Fprintf(&b, "Interrupt: %s, pending %t\n",
		onOff(s.InterruptAsserted), s.DispatchPending)

	return b.String()
}

// ReportMalformedCommand records an undecodable command byte together with
// a dump of the controller state. It returns the report so that the caller
// can decide how to stop.
func (c *CommandProcessor) ReportMalformedCommand(
	cmd byte,
	addr uint32,
	preprocess bool,
) error {
	err := &MalformedCommandError{
		Cmd:        cmd,
		Addr:       addr,
		Preprocess: preprocess,
		State:      c.Snapshot(),
		Status:     c.Status(),
	}

	c.logger.Printf("%s: %s", c.name, err.Dump())
	c.invoke(HookPosMalformedCommand, err)

	return err
}
