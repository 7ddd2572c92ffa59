package commands

import (
	"fmt"

	"github.com/spf13/cobra"
)

var processLogCmd = &cobra.Command{
	Use:   "process-log <log-id>",
	Short: "Dispatch one inventory log row through the predictor",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := svc.ProcessLog(cmd.Context(), args[0]); err != nil {
			return fmt.Errorf("process log: %w", err)
		}
		return nil
	},
}

var refreshCmd = &cobra.Command{
	Use:   "refresh <user-id>",
	Short: "Recompute forecasts for every product of a user",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return svc.RefreshUser(cmd.Context(), args[0])
	},
}

func init() {
	rootCmd.AddCommand(processLogCmd)
	rootCmd.AddCommand(refreshCmd)
}
