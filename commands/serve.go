package commands

import (
	"os/signal"
	"syscall"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the background schedulers until interrupted",
	Run: func(cmd *cobra.Command, args []string) {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		go svc.RunDailyDecay(ctx, appCfg.DecayHourUTC)
		go svc.RunWeeklyReestimate(ctx, appCfg.DecayHourUTC)

		log.Info().Int("decay_hour_utc", appCfg.DecayHourUTC).Msg("schedulers running")
		<-ctx.Done()
		log.Info().Msg("shutting down")
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
}
