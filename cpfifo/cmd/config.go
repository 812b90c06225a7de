package cmd

import (
	"fmt"
	"os"
	"strconv"

	"github.com/sarchlab/cpfifo/cp"
	"github.com/spf13/cobra"
)

// Config holds everything needed to set up a session.
type Config struct {
	Dual          bool
	Deterministic bool
	Wide          bool

	FifoBase uint32
	FifoSize uint32

	// WatermarkInterrupts enables the hi and lo watermark interrupts.
	WatermarkInterrupts bool

	Bursts      int
	SliceBursts int

	Log          bool
	LogRegisters bool
	LogEvents    bool

	TracePath      string
	TraceRegisters bool

	Monitor     bool
	MonitorPort int
	OpenBrowser bool

	SavePath string
	LoadPath string
}

// DefaultConfig returns the configuration used when nothing is overridden.
func DefaultConfig() Config {
	return Config{
		FifoBase:    0x00200000,
		FifoSize:    0x00010000,
		Bursts:      0x4000,
		SliceBursts: 64,
	}
}

// HiWatermark returns the distance at which the producer is about to
// overflow the ring.
func (c Config) HiWatermark() uint32 {
	return c.FifoSize / 4 * 3
}

// LoWatermark returns the distance under which the consumer is about to
// starve.
func (c Config) LoWatermark() uint32 {
	return c.FifoSize / 4
}

// Validate checks that the FIFO can be programmed as configured.
func (c Config) Validate() error {
	if c.FifoBase%cp.BurstSize != 0 {
		return fmt.Errorf("FIFO base 0x%08x is not %d-byte aligned",
			c.FifoBase, cp.BurstSize)
	}

	if c.FifoSize%cp.BurstSize != 0 || c.FifoSize < 4*cp.BurstSize {
		return fmt.Errorf("FIFO size 0x%x must be a multiple of %d "+
			"and hold at least 4 bursts", c.FifoSize, cp.BurstSize)
	}

	mask := uint64(1)<<c.AddressWidth() - 1
	if uint64(c.FifoBase)+uint64(c.FifoSize) > mask {
		return fmt.Errorf("FIFO 0x%08x+0x%x does not fit in %d address bits",
			c.FifoBase, c.FifoSize, c.AddressWidth())
	}

	if c.Bursts < 0 {
		return fmt.Errorf("burst count %d is negative", c.Bursts)
	}

	if c.SliceBursts <= 0 {
		return fmt.Errorf("time slice of %d bursts is not positive",
			c.SliceBursts)
	}

	return nil
}

// TimelineMode returns the timeline mode selected by Dual.
func (c Config) TimelineMode() cp.TimelineMode {
	if c.Dual {
		return cp.DualTimeline
	}

	return cp.SingleTimeline
}

// AddressWidth returns the address width selected by Wide.
func (c Config) AddressWidth() cp.AddressWidth {
	if c.Wide {
		return cp.AddressWidth29
	}

	return cp.AddressWidth26
}

// applyEnv fills the values that were not given on the command line from
// CPFIFO_* environment variables.
func (c *Config) applyEnv(cmd *cobra.Command) error {
	bools := []struct {
		flag, env string
		dst       *bool
	}{
		{"dual", "CPFIFO_DUAL", &c.Dual},
		{"deterministic", "CPFIFO_DETERMINISTIC", &c.Deterministic},
		{"wide", "CPFIFO_WIDE", &c.Wide},
		{"watermark-interrupts", "CPFIFO_WATERMARK_INTERRUPTS",
			&c.WatermarkInterrupts},
		{"monitor", "CPFIFO_MONITOR", &c.Monitor},
	}

	for _, b := range bools {
		if cmd.Flags().Changed(b.flag) {
			continue
		}

		if err := envBool(b.env, b.dst); err != nil {
			return err
		}
	}

	ints := []struct {
		flag, env string
		dst       *int
	}{
		{"bursts", "CPFIFO_BURSTS", &c.Bursts},
		{"slice", "CPFIFO_SLICE", &c.SliceBursts},
		{"monitor-port", "CPFIFO_MONITOR_PORT", &c.MonitorPort},
	}

	for _, i := range ints {
		if cmd.Flags().Changed(i.flag) {
			continue
		}

		if err := envInt(i.env, i.dst); err != nil {
			return err
		}
	}

	if !cmd.Flags().Changed("trace") {
		if v, ok := os.LookupEnv("CPFIFO_TRACE"); ok {
			c.TracePath = v
		}
	}

	return nil
}

func envBool(name string, dst *bool) error {
	v, ok := os.LookupEnv(name)
	if !ok || v == "" {
		return nil
	}

	b, err := strconv.ParseBool(v)
	if err != nil {
		return fmt.Errorf("parsing %s: %w", name, err)
	}

	*dst = b

	return nil
}

func envInt(name string, dst *int) error {
	v, ok := os.LookupEnv(name)
	if !ok || v == "" {
		return nil
	}

	n, err := strconv.ParseInt(v, 0, 64)
	if err != nil {
		return fmt.Errorf("parsing %s: %w", name, err)
	}

	*dst = int(n)

	return nil
}
