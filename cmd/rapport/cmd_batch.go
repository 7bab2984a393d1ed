package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"rapport/internal/batch"
	"rapport/internal/registry"
	"rapport/internal/rubric"
	"rapport/internal/store"
)

var (
	batchPersonas string
	batchContexts string
	batchSamples  string
	batchOut      string
	batchRubric   string
	batchLimit    int
	batchSeed     int
	batchRunID    string
	batchStore    string
)

var batchCmd = &cobra.Command{
	Use:   "batch",
	Short: "Batch-evaluate samples with the heuristic rubric",
	Long: `Joins each sample to its context and persona, scores it against the
rubric, and writes one JSONL result row per sample. Samples whose context or
persona cannot be found produce error rows; the batch never fails on a bad
reference.`,
	RunE: runBatch,
}

func init() {
	batchCmd.Flags().StringVar(&batchPersonas, "personas", "data/personas.json", "path to personas JSON array")
	batchCmd.Flags().StringVar(&batchContexts, "contexts", "data/contexts.jsonl", "path to contexts JSONL")
	batchCmd.Flags().StringVar(&batchSamples, "samples", "data/samples_unlabeled.jsonl", "path to samples JSONL")
	batchCmd.Flags().StringVar(&batchOut, "out", "data/results/batch_results.jsonl", "output JSONL path")
	batchCmd.Flags().StringVar(&batchRubric, "rubric", "", "optional YAML file overriding the rubric keyword tables")
	batchCmd.Flags().IntVar(&batchLimit, "limit", 0, "limit number of samples (0 = no limit)")
	batchCmd.Flags().IntVar(&batchSeed, "seed", 7, "reserved for future deterministic sampling; currently ignored")
	batchCmd.Flags().StringVar(&batchRunID, "run-id", "", "run identifier (default: batch_<unix-seconds>)")
	batchCmd.Flags().StringVar(&batchStore, "store", "", "optional SQLite database recording the run")
	rootCmd.AddCommand(batchCmd)
}

func runBatch(cmd *cobra.Command, args []string) error {
	reg, err := registry.Load(batchPersonas, batchContexts, batchSamples)
	if err != nil {
		return err
	}

	tables := rubric.DefaultTables()
	if batchRubric != "" {
		tables, err = rubric.LoadTables(batchRubric)
		if err != nil {
			return err
		}
	}

	if batchSeed != 7 {
		logger.Debug("seed flag is reserved and ignored", zap.Int("seed", batchSeed))
	}

	rows := batch.Run(reg, tables, batch.Options{RunID: batchRunID, Limit: batchLimit}, logger)

	if err := batch.WriteRows(batchOut, rows); err != nil {
		return err
	}
	fmt.Printf("Wrote %d rows to: %s\n", len(rows), batchOut)

	var errRows []batch.ResultRow
	for _, r := range rows {
		if r.IsError() {
			errRows = append(errRows, r)
		}
	}
	if len(errRows) > 0 {
		fmt.Printf("WARNING: %d rows contain errors (missing context/persona). First error:\n", len(errRows))
		pretty, err := json.MarshalIndent(errRows[0], "", "  ")
		if err != nil {
			return fmt.Errorf("failed to render error row: %w", err)
		}
		fmt.Println(string(pretty))
	}

	if batchStore != "" && len(rows) > 0 {
		db, err := store.Open(batchStore)
		if err != nil {
			return err
		}
		defer db.Close()
		if err := db.SaveRun(rows[0].RunID, rows); err != nil {
			return err
		}
		logger.Info("run recorded", zap.String("store", batchStore), zap.String("run_id", rows[0].RunID))
	}

	return nil
}
