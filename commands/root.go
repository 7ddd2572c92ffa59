// Package commands holds the smart-pantry CLI.
package commands

import (
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"smart-pantry/internal/config"
	"smart-pantry/internal/db"
	"smart-pantry/internal/logging"
	"smart-pantry/internal/service"
)

var (
	// Version, Commit, and BuildDate are set at build time via ldflags.
	Version   = "dev"
	Commit    = "none"
	BuildDate = "unknown"

	verbose bool
	appCfg  *config.AppConfig

	store *db.DB
	svc   *service.Service
)

var rootCmd = &cobra.Command{
	Use:   "smart-pantry",
	Short: "Smart-pantry predicts when household products run out",
	Long: `A pantry inventory predictor: it learns per-product consumption cycles
from purchase and feedback events and forecasts days-left, coarse stock state
and confidence for every product a household tracks.`,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		appCfg = config.LoadApp()
		logging.Init(appCfg.LogDir, verbose)

		var err error
		store, err = db.Open(appCfg.DBPath)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to open database")
		}
		svc = service.New(store)

		log.Info().
			Str("version", Version).
			Str("commit", Commit).
			Str("buildDate", BuildDate).
			Msg("smart-pantry starting")
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if store != nil {
			store.Close()
		}
	},
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose logging")
}
