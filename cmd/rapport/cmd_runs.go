package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"rapport/internal/store"
)

var runsStore string

var runsCmd = &cobra.Command{
	Use:   "runs",
	Short: "List batch runs recorded in a SQLite run store",
	RunE:  runRuns,
}

func init() {
	runsCmd.Flags().StringVar(&runsStore, "store", "data/results/runs.db", "path to the SQLite run store")
	rootCmd.AddCommand(runsCmd)
}

func runRuns(cmd *cobra.Command, args []string) error {
	db, err := store.Open(runsStore)
	if err != nil {
		return err
	}
	defer db.Close()

	runs, err := db.ListRuns()
	if err != nil {
		return err
	}
	if len(runs) == 0 {
		fmt.Println("No runs recorded.")
		return nil
	}

	for _, r := range runs {
		fmt.Printf("%s  %s  samples=%d errors=%d\n", r.RunID, r.CreatedAt, r.Samples, r.Errors)
	}
	return nil
}
