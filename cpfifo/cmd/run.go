package cmd

import (
	"fmt"
	"io"
	"log"
	"os"

	"github.com/spf13/cobra"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run a synthetic producer against the command FIFO.",
	Long: `Run builds the controller, a draining consumer and a producer ` +
		`that commits bursts in time slices. Defaults can be given as ` +
		`CPFIFO_* variables in the environment or in the env file.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, err := configFromFlags(cmd)
		if err != nil {
			return err
		}

		return runSession(cfg, cmd.OutOrStdout())
	},
}

func init() {
	rootCmd.AddCommand(runCmd)

	d := DefaultConfig()
	f := runCmd.Flags()
	f.Bool("dual", d.Dual, "Run the consumer on its own goroutine.")
	f.Bool("deterministic", d.Deterministic,
		"Treat the consumer timeline as deterministic.")
	f.Bool("wide", d.Wide, "Use 29-bit guest addresses instead of 26-bit.")
	f.Uint32("fifo-base", d.FifoBase, "Guest address of the ring.")
	f.Uint32("fifo-size", d.FifoSize, "Size of the ring in bytes.")
	f.Bool("watermark-interrupts", d.WatermarkInterrupts,
		"Enable the hi and lo watermark interrupts.")
	f.Int("bursts", d.Bursts, "Number of 32-byte bursts to commit.")
	f.Int("slice", d.SliceBursts, "Maximum bursts committed per cycle.")
	f.Bool("log", d.Log, "Log controller activity to stderr.")
	f.Bool("log-registers", d.LogRegisters,
		"Also log every register read and write.")
	f.Bool("log-events", d.LogEvents, "Log every engine event.")
	f.String("trace", d.TracePath,
		"Record controller activity into <trace>.sqlite3.")
	f.Bool("trace-registers", d.TraceRegisters,
		"Also record register accesses.")
	f.Bool("monitor", d.Monitor, "Serve the session over HTTP.")
	f.Int("monitor-port", d.MonitorPort,
		"Port of the monitoring server. 0 picks a free port.")
	f.Bool("open-browser", d.OpenBrowser,
		"Open the monitoring page in the default browser.")
	f.String("save", d.SavePath, "Save the controller state after the run.")
	f.String("load", d.LoadPath, "Load a saved state before the run.")
}

func configFromFlags(cmd *cobra.Command) (Config, error) {
	cfg := DefaultConfig()
	f := cmd.Flags()

	cfg.Dual, _ = f.GetBool("dual")
	cfg.Deterministic, _ = f.GetBool("deterministic")
	cfg.Wide, _ = f.GetBool("wide")
	cfg.FifoBase, _ = f.GetUint32("fifo-base")
	cfg.FifoSize, _ = f.GetUint32("fifo-size")
	cfg.WatermarkInterrupts, _ = f.GetBool("watermark-interrupts")
	cfg.Bursts, _ = f.GetInt("bursts")
	cfg.SliceBursts, _ = f.GetInt("slice")
	cfg.Log, _ = f.GetBool("log")
	cfg.LogRegisters, _ = f.GetBool("log-registers")
	cfg.LogEvents, _ = f.GetBool("log-events")
	cfg.TracePath, _ = f.GetString("trace")
	cfg.TraceRegisters, _ = f.GetBool("trace-registers")
	cfg.Monitor, _ = f.GetBool("monitor")
	cfg.MonitorPort, _ = f.GetInt("monitor-port")
	cfg.OpenBrowser, _ = f.GetBool("open-browser")
	cfg.SavePath, _ = f.GetString("save")
	cfg.LoadPath, _ = f.GetString("load")

	if err := cfg.applyEnv(cmd); err != nil {
		return cfg, err
	}

	if cfg.OpenBrowser {
		cfg.Monitor = true
	}

	return cfg, nil
}

func runSession(cfg Config, out io.Writer) error {
	logger := log.New(os.Stderr, "", 0)

	s, err := NewSession(cfg, logger)
	if err != nil {
		return err
	}

	if cfg.TracePath != "" {
		s.EnableTracing(cfg.TracePath, cfg.TraceRegisters)
	}

	if cfg.LoadPath != "" {
		if err := s.States.LoadFile(cfg.LoadPath); err != nil {
			return err
		}
	}

	if cfg.Monitor {
		url := s.StartMonitor(cfg.MonitorPort)

		if cfg.OpenBrowser {
			if err := OpenBrowser(url); err != nil {
				fmt.Fprintf(os.Stderr, "Cannot open browser: %s\n", err)
			}
		}
	}

	if err := s.Run(); err != nil {
		return err
	}

	printSummary(out, s.Summary())

	if cfg.SavePath != "" {
		if err := s.States.SaveFile(cfg.SavePath); err != nil {
			return err
		}
	}

	return s.Close()
}

func printSummary(w io.Writer, sum Summary) {
	fmt.Fprintf(w, "cycles:     %d\n", sum.Cycles)
	fmt.Fprintf(w, "committed:  %d bursts\n", sum.Committed)
	fmt.Fprintf(w, "drained:    %d bursts\n", sum.Drained)
	fmt.Fprintf(w, "stalls:     %d\n", sum.Stalls)
	fmt.Fprintf(w, "cut short:  %d\n", sum.CutShort)
	fmt.Fprintf(w, "distance:   0x%08x\n", sum.Distance)
	fmt.Fprintf(w, "interrupt:  %t\n", sum.InterruptAsserted)
	fmt.Fprintf(w, "status:     %s\n", sum.Status)
}
