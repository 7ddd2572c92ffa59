package commands

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"smart-pantry/internal/predictor"
)

var feedbackNote string

var purchaseCmd = &cobra.Command{
	Use:   "purchase <user-id> <product-id>",
	Short: "Record a purchase and update the product's forecast",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		stateBefore, err := store.GetCurrentInventoryState(ctx, args[0], args[1])
		if err != nil {
			stateBefore = predictor.StateUnknown
		}
		logID, err := store.InsertLogEntry(ctx, predictor.LogEntry{
			UserID:           args[0],
			ProductID:        args[1],
			Action:           predictor.ActionPurchase,
			ActionConfidence: 1,
			Source:           predictor.SourceManual,
			Note:             feedbackNote,
		})
		if err != nil {
			return fmt.Errorf("insert log: %w", err)
		}
		return svc.ProcessLogWithState(ctx, logID, stateBefore)
	},
}

var feedbackCmd = &cobra.Command{
	Use:   "feedback <user-id> <product-id> <more|less|exact|empty|wasted>",
	Short: "Record user feedback about a product's stock",
	Args:  cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		kind, ok := parseKindArg(args[2])
		if !ok {
			return fmt.Errorf("unknown feedback kind %q", args[2])
		}

		note := feedbackNote
		if note == "" {
			b, _ := json.Marshal(map[string]string{"feedback_kind": string(kind)})
			note = string(b)
		}
		logID, err := store.InsertLogEntry(ctx, predictor.LogEntry{
			UserID:           args[0],
			ProductID:        args[1],
			Action:           predictor.ActionAdjust,
			ActionConfidence: 1,
			Source:           predictor.SourceManual,
			Note:             note,
		})
		if err != nil {
			return fmt.Errorf("insert log: %w", err)
		}
		if err := svc.ProcessLog(ctx, logID); err != nil {
			return err
		}
		// MORE/LESS additionally nudge the visible estimate right away.
		if kind == predictor.FeedbackMore || kind == predictor.FeedbackLess {
			return svc.ApplyMoreLess(ctx, args[0], args[1], kind)
		}
		return nil
	},
}

func parseKindArg(s string) (predictor.FeedbackKind, bool) {
	return predictor.ParseFeedbackKind(strings.ToUpper(strings.TrimSpace(s)))
}

func init() {
	purchaseCmd.Flags().StringVar(&feedbackNote, "note", "", "free-text note stored on the log row")
	feedbackCmd.Flags().StringVar(&feedbackNote, "note", "", "free-text note stored on the log row")
	rootCmd.AddCommand(purchaseCmd)
	rootCmd.AddCommand(feedbackCmd)
}
