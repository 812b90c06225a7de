package cmd

import (
	"context"
	"fmt"
	"io"

	"github.com/sarchlab/cpfifo/datarecording"
	"github.com/sarchlab/cpfifo/tracing"
	"github.com/spf13/cobra"
)

var reportCmd = &cobra.Command{
	Use:   "report <trace.sqlite3>",
	Short: "Summarize a trace written by run --trace.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		registers, _ := cmd.Flags().GetBool("registers")

		reader := datarecording.NewReader(args[0])
		defer reader.Close()

		rep, err := tracing.Summarize(context.Background(), reader, registers)
		if err != nil {
			return err
		}

		printReport(cmd.OutOrStdout(), rep)

		return nil
	},
}

func init() {
	rootCmd.AddCommand(reportCmd)
	reportCmd.Flags().Bool("registers", false,
		"The trace was recorded with --trace-registers.")
}

func printReport(w io.Writer, rep tracing.Report) {
	fmt.Fprintf(w, "commits:             %d (%d linked)\n",
		rep.Commits, rep.LinkedCommits)
	fmt.Fprintf(w, "max distance:        0x%08x\n", rep.MaxDistance)
	fmt.Fprintf(w, "interrupts set:      %d\n", rep.InterruptsAsserted)
	fmt.Fprintf(w, "interrupts cleared:  %d\n", rep.InterruptsCleared)
	fmt.Fprintf(w, "interrupts deferred: %d\n", rep.InterruptsDeferred)
	fmt.Fprintf(w, "breakpoint hits:     %d\n", rep.BreakpointHits)
	fmt.Fprintf(w, "line changes:        %d\n", rep.LineChanges)
	fmt.Fprintf(w, "register accesses:   %d\n", rep.RegisterAccesses)
	fmt.Fprintf(w, "last cycle:          %d\n", rep.LastRecordedCycle)
}
