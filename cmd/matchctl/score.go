package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"groundmatch/server/internal/matching"
	"groundmatch/server/internal/models"
)

var scoreCmd = &cobra.Command{
	Use:   "score",
	Short: "Score one plot against one set of preferences read from stdin",
	Long: `Reads a JSON document {"plot": {...}, "preferences": {...}} from stdin and
prints the four dimension scores and their aggregate.`,
	Args: cobra.NoArgs,
	RunE: runScore,
}

func init() {
	rootCmd.AddCommand(scoreCmd)
}

type scoreInput struct {
	Plot        matching.PlotInput `json:"plot"`
	Preferences models.Preferences `json:"preferences"`
}

type scoreOutput struct {
	models.Scores
	Aggregate float64 `json:"aggregate_score"`
}

func runScore(cmd *cobra.Command, args []string) error {
	var in scoreInput
	if err := json.NewDecoder(cmd.InOrStdin()).Decode(&in); err != nil {
		return fmt.Errorf("failed to read input: %w", err)
	}

	plot, err := matching.ParsePlot(in.Plot)
	if err != nil {
		return err
	}
	if err := matching.ValidatePreferences(in.Preferences); err != nil {
		return err
	}

	scores := matching.Score(plot, in.Preferences)
	return writeJSON(cmd.OutOrStdout(), scoreOutput{Scores: scores, Aggregate: scores.Aggregate()})
}
