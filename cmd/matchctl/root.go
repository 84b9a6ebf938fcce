package main

import (
	"encoding/json"
	"io"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"groundmatch/server/config"
	"groundmatch/server/internal/database"
)

const app = "matchctl"

var (
	debug  bool
	logger = logrus.New()

	rootCmd = &cobra.Command{
		Use:           app,
		Short:         "matchctl scores plots and manages client/ground matches from the command line",
		SilenceUsage:  true,
		SilenceErrors: false,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			logger.SetFormatter(&logrus.JSONFormatter{})
			logger.SetOutput(os.Stderr)
			if debug {
				logger.SetLevel(logrus.DebugLevel)
			}
		},
	}
)

// Execute executes the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&debug, "debug", "d", false, "verbose/debug output")
}

func openDatabase() (*config.Config, *database.Database, error) {
	cfg, err := config.LoadConfig()
	if err != nil {
		return nil, nil, err
	}
	if !debug {
		if level, err := logrus.ParseLevel(cfg.LogLevel); err == nil {
			logger.SetLevel(level)
		}
	}

	gdb, err := database.Open(cfg.Database.Driver, cfg.Database.DSN, logger)
	if err != nil {
		return nil, nil, err
	}
	if err := database.MigrateSchema(gdb); err != nil {
		return nil, nil, err
	}
	return cfg, database.New(gdb, logger), nil
}

func writeJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
