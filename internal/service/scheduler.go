package service

import (
	"context"
	"math"
	"time"

	"github.com/rs/zerolog/log"

	"smart-pantry/internal/predictor"
)

const (
	jobPeriod     = 24 * time.Hour
	jobErrBackoff = time.Hour
)

// RunDailyDecay loops forever, decrementing every product's days-left
// estimate by one once per day at hourUTC. Blocks until ctx is cancelled.
func (s *Service) RunDailyDecay(ctx context.Context, hourUTC int) {
	s.runDaily(ctx, "daily_decay", hourUTC, s.DecayAll)
}

// RunWeeklyReestimate loops forever, refreshing forecasts for products whose
// first recorded log fell on today's weekday. Blocks until ctx is cancelled.
func (s *Service) RunWeeklyReestimate(ctx context.Context, hourUTC int) {
	s.runDaily(ctx, "weekly_reestimate", hourUTC, s.ReestimateDue)
}

func (s *Service) runDaily(ctx context.Context, name string, hourUTC int, job func(context.Context) error) {
	for {
		wait := untilNextRun(s.clock.Now(), hourUTC)
		log.Info().Str("job", name).Dur("sleep", wait).Msg("scheduler sleeping")
		select {
		case <-ctx.Done():
			return
		case <-time.After(wait):
		}

		for {
			err := job(ctx)
			if err == nil {
				break
			}
			log.Error().Err(err).Str("job", name).Dur("retry_in", jobErrBackoff).Msg("scheduled job failed")
			select {
			case <-ctx.Done():
				return
			case <-time.After(jobErrBackoff):
			}
		}
	}
}

// untilNextRun returns the duration from now to the next occurrence of
// hourUTC:00 UTC, always strictly in the future.
func untilNextRun(now time.Time, hourUTC int) time.Duration {
	now = now.UTC()
	next := time.Date(now.Year(), now.Month(), now.Day(), hourUTC, 0, 0, 0, time.UTC)
	if !next.After(now) {
		next = next.Add(jobPeriod)
	}
	return next.Sub(now)
}

// DecayAll runs one pass of the daily decay over every user's inventory.
func (s *Service) DecayAll(ctx context.Context) error {
	users, err := s.repo.ListUsers(ctx)
	if err != nil {
		return err
	}
	for _, userID := range users {
		if err := s.decayUser(ctx, userID); err != nil {
			log.Error().Err(err).Str("user_id", userID).Msg("daily decay failed for user")
		}
	}
	return nil
}

func (s *Service) decayUser(ctx context.Context, userID string) error {
	now := s.clock.Now()
	profileID, cfg, err := s.loadProfile(ctx, userID)
	if err != nil {
		return err
	}
	items, err := s.repo.GetUserInventoryProducts(ctx, userID)
	if err != nil {
		return err
	}
	for _, item := range items {
		current, err := s.repo.GetCurrentInventoryState(ctx, userID, item.ProductID)
		if err != nil {
			log.Warn().Err(err).Str("product_id", item.ProductID).Msg("decay: state lookup failed")
			continue
		}
		if current == predictor.StateEmpty {
			// Already empty; nothing left to decay.
			continue
		}

		st, err := s.loadOrInitState(ctx, userID, item.ProductID, item.CategoryID, cfg, now)
		if err != nil {
			log.Warn().Err(err).Str("product_id", item.ProductID).Msg("decay: state load failed")
			continue
		}

		var before float64
		if inv, err := s.repo.GetInventoryItem(ctx, userID, item.ProductID); err == nil && inv != nil && inv.EstimatedQty != nil {
			before = *inv.EstimatedQty
		} else {
			mult := s.activeMultiplier(ctx, userID, item.ProductID, item.CategoryID, now)
			before = predictor.DaysLeft(st, now, mult, nil)
		}
		after := math.Max(before-1, 0)
		if after <= 0 && st.EmptyAt == nil {
			t := now
			st.EmptyAt = &t
		}
		st.LastPredDaysLeft = &after
		st.LastUpdateAt = now

		state := predictor.DeriveState(after, st.CycleMeanDays, cfg)
		conf := predictor.Confidence(st, now, cfg)
		if err := s.repo.UpsertPredictorState(ctx, userID, item.ProductID, profileID, st.ToParams(), conf, now); err != nil {
			log.Warn().Err(err).Str("product_id", item.ProductID).Msg("decay: persist state failed")
			continue
		}
		if err := s.repo.UpsertInventoryDaysEstimate(ctx, InventoryEstimate{
			UserID:     userID,
			ProductID:  item.ProductID,
			DaysLeft:   after,
			State:      state,
			Confidence: conf,
			Source:     predictor.SourceSystem,
		}); err != nil {
			log.Warn().Err(err).Str("product_id", item.ProductID).Msg("decay: persist estimate failed")
		}
	}
	return nil
}

// ReestimateDue runs one pass of the weekly re-estimation scan: products
// whose first log landed on today's weekday are due. The per-product update
// is deliberately a no-op slot (cycle averaging already happens when a
// purchase closes a cycle); the scan only logs what it would touch.
func (s *Service) ReestimateDue(ctx context.Context) error {
	now := s.clock.Now()
	today := now.UTC().Weekday()
	users, err := s.repo.ListUsers(ctx)
	if err != nil {
		return err
	}
	for _, userID := range users {
		items, err := s.repo.GetUserInventoryProducts(ctx, userID)
		if err != nil {
			log.Error().Err(err).Str("user_id", userID).Msg("weekly reestimate: inventory list failed")
			continue
		}
		due := 0
		for _, item := range items {
			first, err := s.repo.FirstLogOccurredAt(ctx, userID, item.ProductID)
			if err != nil || first == nil {
				continue
			}
			if first.UTC().Weekday() != today {
				continue
			}
			due++
			log.Debug().Str("user_id", userID).Str("product_id", item.ProductID).
				Msg("weekly reestimate slot due")
		}
		if due > 0 {
			log.Info().Str("user_id", userID).Int("due", due).Msg("weekly reestimate scan complete")
		}
	}
	return nil
}
