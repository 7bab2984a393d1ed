package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"rapport/internal/safety"
)

var (
	trainIn        string
	trainOut       string
	trainThreshold float64

	checkModel     string
	checkThreshold float64
)

var safetyCmd = &cobra.Command{
	Use:   "safety",
	Short: "Train or probe the embedding-based safety classifier",
}

var safetyTrainCmd = &cobra.Command{
	Use:   "train",
	Short: "Build a safety model from labeled examples",
	Long: `Reads JSONL records of the form {"text": ..., "label": "MOVE"|"OK"},
embeds every text with the selected embedding backend, and writes the
classifier model file used by 'rapport chat'.`,
	RunE: runSafetyTrain,
}

var safetyCheckCmd = &cobra.Command{
	Use:   "check [text]",
	Short: "Score one line of text against a trained safety model",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runSafetyCheck,
}

func init() {
	safetyTrainCmd.Flags().StringVar(&trainIn, "in", "data/safety_labeled.jsonl", "labeled examples JSONL")
	safetyTrainCmd.Flags().StringVar(&trainOut, "out", "models/safety_model.json", "output model path")
	safetyTrainCmd.Flags().Float64Var(&trainThreshold, "threshold", 0.45, "default decision threshold stored in the model")
	registerEmbedFlags(safetyTrainCmd)

	safetyCheckCmd.Flags().StringVar(&checkModel, "safety-model", "models/safety_model.json", "path to the trained safety model")
	safetyCheckCmd.Flags().Float64Var(&checkThreshold, "threshold", 0, "decision threshold (0 = model default)")
	registerEmbedFlags(safetyCheckCmd)

	safetyCmd.AddCommand(safetyTrainCmd)
	safetyCmd.AddCommand(safetyCheckCmd)
	rootCmd.AddCommand(safetyCmd)
}

func runSafetyTrain(cmd *cobra.Command, args []string) error {
	examples, err := safety.LoadLabeledExamples(trainIn)
	if err != nil {
		return err
	}

	engine, err := buildEmbedEngine()
	if err != nil {
		return err
	}

	logger.Info("training safety model",
		zap.Int("examples", len(examples)),
		zap.String("engine", engine.Name()))

	model, err := safety.Train(cmd.Context(), engine, examples, trainThreshold)
	if err != nil {
		return err
	}
	if err := model.Save(trainOut); err != nil {
		return err
	}

	fmt.Printf("Wrote safety model with %d exemplars to: %s\n", len(model.Exemplars), trainOut)
	return nil
}

func runSafetyCheck(cmd *cobra.Command, args []string) error {
	text := strings.Join(args, " ")

	model, err := safety.LoadModel(checkModel)
	if err != nil {
		return err
	}
	engine, err := buildEmbedEngine()
	if err != nil {
		return err
	}
	classifier, err := safety.NewClassifier(model, engine)
	if err != nil {
		return err
	}

	result, err := classifier.Score(cmd.Context(), text, checkThreshold)
	if err != nil {
		return err
	}

	fmt.Printf("label=%s p_move=%.3f threshold=%.2f\n", result.Label, result.PMove, result.Threshold)
	return nil
}
