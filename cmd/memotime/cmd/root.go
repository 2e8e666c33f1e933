// Package cmd provides the memotime command-line interface: subcommands
// drive a synthetic instruction trace through one of the three timing
// models, or exercise the TAGE predictor alone.
package cmd

import (
	"log/slog"
	"os"

	"github.com/spf13/cobra"
)

var verbose bool

var rootCmd = &cobra.Command{
	Use:   "memotime",
	Short: "memotime drives synthetic instruction traces through an out-of-order core timing model.",
	Long: `memotime is a cycle-accurate, trace-driven out-of-order core timing ` +
		`simulator. It supports three timing models of increasing fidelity ` +
		`(cache, fetch, issue) and a standalone TAGE branch-predictor evaluator.`,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		level := slog.LevelInfo
		if verbose {
			level = slog.LevelDebug
		}
		slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
			Level: level,
		})))
	},
}

// Execute runs the root command, exiting the process with status 1 on
// failure.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
}
