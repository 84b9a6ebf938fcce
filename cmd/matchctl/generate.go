package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"groundmatch/server/config"
	"groundmatch/server/internal/lifecycle"
	"groundmatch/server/internal/models"
	"groundmatch/server/internal/staging"
)

var (
	generateCompany   uint
	generateImmediate bool

	generateCmd = &cobra.Command{
		Use:   "generate",
		Short: "Compute match candidates for a company",
		Long: "Compute match candidates for a company and print them as JSON. " +
			"Nothing is written unless --immediate is given, in which case the " +
			"candidates are stored as pending matches.",
		RunE: runGenerate,
	}
)

func init() {
	generateCmd.Flags().UintVarP(&generateCompany, "company", "c", 0, "company id")
	generateCmd.Flags().BoolVar(&generateImmediate, "immediate", false, "store candidates as pending matches")
	_ = generateCmd.MarkFlagRequired("company")
	rootCmd.AddCommand(generateCmd)
}

type candidateOutput struct {
	models.Candidate
	Aggregate float64 `json:"aggregate_score"`
}

func runGenerate(cmd *cobra.Command, args []string) error {
	cfg, db, err := openDatabase()
	if err != nil {
		return err
	}
	defer db.Close()

	exists, err := db.CompanyExists(cmd.Context(), generateCompany)
	if err != nil {
		return err
	}
	if !exists {
		return fmt.Errorf("company %d does not exist", generateCompany)
	}

	manager := lifecycle.NewManager(db, db, db, staging.NewMemoryStore(time.Minute), lifecycle.Options{
		Persistence: config.PersistenceImmediate,
		MinScore:    cfg.Matching.MinScore,
	}, logger)

	var candidates []models.Candidate
	if generateImmediate {
		candidates, err = manager.Generate(cmd.Context(), generateCompany, nil)
	} else {
		candidates, err = manager.Candidates(cmd.Context(), generateCompany)
	}
	if err != nil {
		return err
	}

	out := make([]candidateOutput, 0, len(candidates))
	for _, c := range candidates {
		out = append(out, candidateOutput{Candidate: c, Aggregate: c.Scores.Aggregate()})
	}
	return writeJSON(cmd.OutOrStdout(), out)
}
