package commands

import (
	"fmt"

	"github.com/spf13/cobra"
)

var forecastCmd = &cobra.Command{
	Use:   "forecast <user-id> <product-id>",
	Short: "Show the latest forecast for a product",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		f, err := store.LatestForecast(cmd.Context(), args[0], args[1])
		if err != nil {
			return fmt.Errorf("latest forecast: %w", err)
		}
		if f == nil {
			fmt.Println("no forecast yet")
			return nil
		}
		fmt.Printf("days_left=%.2f state=%s confidence=%.2f generated_at=%s\n",
			f.ExpectedDaysLeft, f.PredictedState, f.Confidence, f.GeneratedAt.Format("2006-01-02T15:04:05Z07:00"))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(forecastCmd)
}
