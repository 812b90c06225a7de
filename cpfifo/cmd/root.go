// Package cmd provides the command-line interface of cpfifo.
package cmd

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/tebeka/atexit"
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "cpfifo",
	Short: "cpfifo drives an emulated GPU command FIFO controller.",
	Long: `cpfifo drives an emulated GPU command FIFO controller. It runs a ` +
		`synthetic producer against the controller and a draining consumer, ` +
		`and can expose the session through a monitoring server.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
		envFile, _ := cmd.Flags().GetString("env-file")
		return loadEnvFile(envFile)
	},
}

func init() {
	rootCmd.PersistentFlags().String("env-file", ".env",
		"File with CPFIFO_* defaults. A missing file is ignored.")
}

// loadEnvFile adds the variables of the file to the environment. Variables
// that are already set win.
func loadEnvFile(path string) error {
	if path == "" {
		return nil
	}

	err := godotenv.Load(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}

	if err != nil {
		return fmt.Errorf("loading %s: %w", path, err)
	}

	return nil
}

// Execute adds all child commands to the root command and sets flags
// appropriately.
func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		atexit.Exit(1)
	}

	atexit.Exit(0)
}
