// Command deadswitch-cli drives the release pipeline from the command
// line: enroll a payload with a set of watchers, publish heartbeats,
// inspect switch status, and run an end-to-end simulation of expiry and
// recovery. It follows the teacher's cmd/threshold-cli shape: a cobra
// root command, persistent config-dir/verbose flags, and one subcommand
// per pipeline stage.
package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/luxfi/deadswitch/pkg/xlog"
)

var (
	configDir string
	verbose   bool

	rootCmd = &cobra.Command{
		Use:   "deadswitch-cli",
		Short: "CLI for the cryptographic dead man's switch release pipeline",
		Long: `deadswitch-cli drives the release pipeline end to end: sealing a payload,
splitting its key across watchers, publishing heartbeats, and recovering
the payload once a quorum of watchers release their shares.`,
	}
)

func init() {
	rootCmd.PersistentFlags().StringVarP(&configDir, "config-dir", "d", "./deadswitch-data", "Local artifact directory")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Verbose logging")

	rootCmd.AddCommand(enrollCmd, heartbeatCmd, statusCmd, cancelCmd, simulateCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func logger() *xlog.Logger {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	return xlog.New(level)
}
