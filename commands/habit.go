package commands

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"smart-pantry/internal/db"
	"smart-pantry/internal/habits"
	"smart-pantry/internal/predictor"
)

var (
	habitName      string
	habitGlobal    float64
	habitProducts  []string
	habitCategory  []string
	habitStartsAt  string
	habitEndsAt    string
)

var habitCmd = &cobra.Command{
	Use:   "habit",
	Short: "Manage consumption habits",
}

var habitAddCmd = &cobra.Command{
	Use:   "add <user-id>",
	Short: "Create a habit and fold its multiplier into affected forecasts",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		effects, err := buildEffects()
		if err != nil {
			return err
		}
		if effects.IsZero() {
			return fmt.Errorf("habit carries no multiplier; set --global, --product or --category")
		}

		h := db.Habit{UserID: args[0], Name: habitName, Effects: effects}
		if habitStartsAt != "" {
			t, ok := predictor.ParseTimestamp(habitStartsAt)
			if !ok {
				return fmt.Errorf("invalid --starts timestamp %q", habitStartsAt)
			}
			h.StartsAt = &t
		}
		if habitEndsAt != "" {
			t, ok := predictor.ParseTimestamp(habitEndsAt)
			if !ok {
				return fmt.Errorf("invalid --ends timestamp %q", habitEndsAt)
			}
			h.EndsAt = &t
		}

		habitID, err := store.CreateHabit(ctx, h)
		if err != nil {
			return fmt.Errorf("create habit: %w", err)
		}
		log.Info().Str("habit_id", habitID).Str("user_id", args[0]).Msg("habit created")
		return svc.RefreshProductsForHabit(ctx, args[0], effects, false)
	},
}

var habitRemoveCmd = &cobra.Command{
	Use:   "remove <habit-id>",
	Short: "Deactivate a habit and unwind its multiplier",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		h, err := store.GetHabit(ctx, args[0])
		if err != nil {
			return fmt.Errorf("load habit: %w", err)
		}
		if h == nil {
			return fmt.Errorf("habit %s not found", args[0])
		}
		changed, err := store.DeactivateHabit(ctx, args[0])
		if err != nil {
			return fmt.Errorf("deactivate habit: %w", err)
		}
		if !changed {
			log.Warn().Str("habit_id", args[0]).Msg("habit already inactive")
			return nil
		}
		return svc.RefreshProductsForHabit(ctx, h.UserID, h.Effects, true)
	},
}

func buildEffects() (habits.Effects, error) {
	var e habits.Effects
	if habitGlobal != 0 && habitGlobal != 1 {
		v := habitGlobal
		e.GlobalMultiplier = &v
	}
	var err error
	e.ProductMultipliers, err = parseMultiplierPairs(habitProducts)
	if err != nil {
		return habits.Effects{}, fmt.Errorf("--product: %w", err)
	}
	e.CategoryMultipliers, err = parseMultiplierPairs(habitCategory)
	if err != nil {
		return habits.Effects{}, fmt.Errorf("--category: %w", err)
	}
	return e, nil
}

func parseMultiplierPairs(pairs []string) (map[string]float64, error) {
	if len(pairs) == 0 {
		return nil, nil
	}
	out := make(map[string]float64, len(pairs))
	for _, p := range pairs {
		id, val, ok := strings.Cut(p, "=")
		if !ok {
			return nil, fmt.Errorf("expected id=multiplier, got %q", p)
		}
		f, err := strconv.ParseFloat(val, 64)
		if err != nil || f <= 0 {
			return nil, fmt.Errorf("invalid multiplier in %q", p)
		}
		out[strings.TrimSpace(id)] = f
	}
	return out, nil
}

func init() {
	habitAddCmd.Flags().StringVar(&habitName, "name", "habit", "habit name")
	habitAddCmd.Flags().Float64Var(&habitGlobal, "global", 1, "global consumption multiplier")
	habitAddCmd.Flags().StringSliceVar(&habitProducts, "product", nil, "per-product multiplier as product-id=mult")
	habitAddCmd.Flags().StringSliceVar(&habitCategory, "category", nil, "per-category multiplier as category-id=mult")
	habitAddCmd.Flags().StringVar(&habitStartsAt, "starts", "", "habit start (ISO-8601, open when empty)")
	habitAddCmd.Flags().StringVar(&habitEndsAt, "ends", "", "habit end (ISO-8601, open when empty)")
	habitCmd.AddCommand(habitAddCmd)
	habitCmd.AddCommand(habitRemoveCmd)
	rootCmd.AddCommand(habitCmd)
}
