package cmd

import (
	"fmt"
	"io"

	"github.com/sarchlab/cpfifo/cp"
	"github.com/spf13/cobra"
)

var regmapCmd = &cobra.Command{
	Use:   "regmap",
	Short: "Print the register map of the controller.",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, _ []string) {
		printRegisterMap(cmd.OutOrStdout())
	},
}

func init() {
	rootCmd.AddCommand(regmapCmd)
}

func printRegisterMap(w io.Writer) {
	for offset := uint32(0); offset < 0x80; offset += 2 {
		name := cp.RegisterName(offset)
		if name == "" {
			continue
		}

		fmt.Fprintf(w, "0x%02X  %s\n", offset, name)
	}
}
