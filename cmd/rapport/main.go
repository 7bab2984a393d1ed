// Command rapport is a conversational-quality evaluation harness: a batch
// rubric scorer, a results reporter, and an interactive practice chat with
// a safety gate in front of the model.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	// Global flags
	verbose bool

	// Logger shared by all commands.
	logger *zap.Logger
)

var rootCmd = &cobra.Command{
	Use:   "rapport",
	Short: "rapport - conversational quality evaluation harness",
	Long: `rapport scores conversational turns against a heuristic safety-and-quality
rubric and hosts an interactive practice chat whose replies are gated by a
safety classifier and escalation rules.

Subcommands:
  batch    score a sample set and write a JSONL results artifact
  report   summarize a results artifact (mean/median OCQ, violation rate)
  chat     interactive practice chat with the safety gate
  safety   train or probe the embedding-based safety classifier
  runs     list runs recorded in a SQLite run store`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		config := zap.NewProductionConfig()
		if verbose {
			config.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
		}
		var err error
		logger, err = config.Build()
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
