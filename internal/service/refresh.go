package service

import (
	"context"
	"fmt"
	"math"
	"sync"

	"github.com/rs/zerolog/log"

	"smart-pantry/internal/habits"
	"smart-pantry/internal/predictor"
)

// refreshWorkers bounds parallel per-product refresh work.
const refreshWorkers = 4

// RefreshUser recomputes forecasts for every product in the user's inventory
// without consuming new events. The multiplier is applied to the cached
// last_pred_days_left so habit changes act on the latest user-visible value
// instead of being re-derived from the mean. Per-product failures are logged
// and do not abort the pass.
func (s *Service) RefreshUser(ctx context.Context, userID string) error {
	profileID, _, err := s.loadProfile(ctx, userID)
	if err != nil {
		return err
	}
	items, err := s.repo.GetUserInventoryProducts(ctx, userID)
	if err != nil {
		return fmt.Errorf("list inventory: %w", err)
	}

	var wg sync.WaitGroup
	sem := make(chan struct{}, refreshWorkers)
	for _, item := range items {
		wg.Add(1)
		sem <- struct{}{}
		go func(item InventoryProduct) {
			defer wg.Done()
			defer func() { <-sem }()
			if err := s.refreshProduct(ctx, userID, profileID, item); err != nil {
				log.Error().Err(err).Str("user_id", userID).Str("product_id", item.ProductID).
					Msg("refresh failed for product")
			}
		}(item)
	}
	wg.Wait()
	return nil
}

func (s *Service) refreshProduct(ctx context.Context, userID, profileID string, item InventoryProduct) error {
	now := s.clock.Now()
	_, cfg, err := s.loadProfile(ctx, userID)
	if err != nil {
		return err
	}
	st, err := s.loadOrInitState(ctx, userID, item.ProductID, item.CategoryID, cfg, now)
	if err != nil {
		return err
	}

	mult := s.activeMultiplier(ctx, userID, item.ProductID, item.CategoryID, now)
	fc := predictor.Predict(st, now, mult, cfg, st.LastPredDaysLeft)
	st.StampLastPrediction(fc)
	return s.persistForecast(ctx, userID, item.ProductID, profileID, st, fc, "")
}

// RefreshProductsForHabit applies a habit's multiplier directly to the
// learned means of every affected product. Creation divides mean and cached
// days-left by the habit's contribution; deletion multiplies, restoring them.
// Products outside the user's inventory are ignored; failures are isolated.
func (s *Service) RefreshProductsForHabit(ctx context.Context, userID string, effects habits.Effects, isDeletion bool) error {
	if effects.IsZero() {
		return nil
	}
	profileID, _, err := s.loadProfile(ctx, userID)
	if err != nil {
		return err
	}
	items, err := s.repo.GetUserInventoryProducts(ctx, userID)
	if err != nil {
		return fmt.Errorf("list inventory: %w", err)
	}

	for _, item := range items {
		if !habitAffects(effects, item) {
			continue
		}
		if err := s.adjustProductForHabit(ctx, userID, profileID, item, effects, isDeletion); err != nil {
			action := "creation"
			if isDeletion {
				action = "deletion"
			}
			log.Error().Err(err).Str("user_id", userID).Str("product_id", item.ProductID).
				Str("habit_action", action).Msg("habit refresh failed for product")
		}
	}
	return nil
}

func habitAffects(effects habits.Effects, item InventoryProduct) bool {
	if effects.AffectsAllProducts() {
		return true
	}
	if _, ok := effects.ProductMultipliers[item.ProductID]; ok {
		return true
	}
	if item.CategoryID != "" {
		if _, ok := effects.CategoryMultipliers[item.CategoryID]; ok {
			return true
		}
	}
	return false
}

func (s *Service) adjustProductForHabit(ctx context.Context, userID, profileID string, item InventoryProduct, effects habits.Effects, isDeletion bool) error {
	now := s.clock.Now()
	_, cfg, err := s.loadProfile(ctx, userID)
	if err != nil {
		return err
	}
	st, err := s.loadOrInitState(ctx, userID, item.ProductID, item.CategoryID, cfg, now)
	if err != nil {
		return err
	}

	habitMult := effects.Multiplier(item.ProductID, item.CategoryID)

	var newDaysLeft *float64
	if isDeletion {
		st.CycleMeanDays *= habitMult
		if st.LastPredDaysLeft != nil {
			v := *st.LastPredDaysLeft * habitMult
			newDaysLeft = &v
		}
	} else {
		st.CycleMeanDays /= habitMult
		if st.LastPredDaysLeft != nil {
			v := *st.LastPredDaysLeft / habitMult
			newDaysLeft = &v
		}
	}
	st.CycleMeanDays = math.Max(cfg.MinCycleDays, math.Min(st.CycleMeanDays, cfg.MaxCycleDays))

	var expected float64
	switch {
	case newDaysLeft != nil:
		expected = *newDaysLeft
	case st.CycleStartedAt != nil:
		expected = predictor.DaysLeft(st, now, 1.0, nil)
	default:
		// No cached prediction and no active cycle: show a full cycle.
		expected = st.CycleMeanDays
	}

	fc := predictor.Forecast{
		ExpectedDaysLeft: expected,
		PredictedState:   predictor.DeriveState(expected, st.CycleMeanDays, cfg),
		Confidence:       predictor.Confidence(st, now, cfg),
		GeneratedAt:      now,
	}
	st.StampLastPrediction(fc)
	return s.persistForecast(ctx, userID, item.ProductID, profileID, st, fc, "")
}

// ApplyMoreLess performs the immediate MORE/LESS inventory adjustment: scale
// the current days estimate by (1 ± more_less_ratio), with the absolute
// change capped at more_less_step_cap_days. The learned mean is untouched;
// it only moves when a cycle completes.
func (s *Service) ApplyMoreLess(ctx context.Context, userID, productID string, kind predictor.FeedbackKind) error {
	if kind != predictor.FeedbackMore && kind != predictor.FeedbackLess {
		return fmt.Errorf("feedback kind %s has no immediate adjustment", kind)
	}
	now := s.clock.Now()
	profileID, cfg, err := s.loadProfile(ctx, userID)
	if err != nil {
		return err
	}
	categoryID, err := s.categoryFor(ctx, userID, productID)
	if err != nil {
		return fmt.Errorf("resolve category: %w", err)
	}
	st, err := s.loadOrInitState(ctx, userID, productID, categoryID, cfg, now)
	if err != nil {
		return err
	}

	base := 0.0
	if item, err := s.repo.GetInventoryItem(ctx, userID, productID); err == nil && item != nil && item.EstimatedQty != nil {
		base = *item.EstimatedQty
	} else if st.LastPredDaysLeft != nil {
		base = *st.LastPredDaysLeft
	} else {
		base = predictor.DaysLeft(st, now, 1.0, nil)
	}

	step := base * cfg.MoreLessRatio
	if step > cfg.MoreLessStepCapDays {
		step = cfg.MoreLessStepCapDays
	}
	if kind == predictor.FeedbackLess {
		step = -step
	}
	adjusted := math.Max(base+step, 0)

	fc := predictor.Forecast{
		ExpectedDaysLeft: adjusted,
		PredictedState:   predictor.DeriveState(adjusted, st.CycleMeanDays, cfg),
		Confidence:       predictor.Confidence(st, now, cfg),
		GeneratedAt:      now,
	}
	st.StampLastPrediction(fc)
	return s.persistForecast(ctx, userID, productID, profileID, st, fc, "")
}
