package main

import (
	"os"

	"github.com/spf13/cobra"

	"rapport/internal/batch"
	"rapport/internal/report"
)

var reportIn string

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Report aggregate metrics from a batch results artifact",
	Long: `Reads a results JSONL file, drops error rows and rows without a numeric
aggregate score, and prints mean/median OCQ and the safety-violation rate,
overall and grouped by use case.`,
	RunE: runReport,
}

func init() {
	reportCmd.Flags().StringVar(&reportIn, "in", "data/results/batch_results.jsonl", "path to batch results JSONL")
	rootCmd.AddCommand(reportCmd)
}

func runReport(cmd *cobra.Command, args []string) error {
	rows, err := batch.ReadRows(reportIn)
	if err != nil {
		return err
	}

	summary := report.Aggregate(rows)
	report.Render(os.Stdout, reportIn, summary)
	return nil
}
