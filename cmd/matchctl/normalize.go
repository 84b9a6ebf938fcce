package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"groundmatch/server/internal/database"
)

var normalizeCmd = &cobra.Command{
	Use:   "normalize-statuses",
	Short: "Rewrite legacy match statuses (accepted, rejected) to approved or pending",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		_, db, err := openDatabase()
		if err != nil {
			return err
		}
		defer db.Close()

		changed, err := database.NormalizeStatuses(db.GetDB())
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "normalized %d matches\n", changed)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(normalizeCmd)
}
