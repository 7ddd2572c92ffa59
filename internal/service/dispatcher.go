package service

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"

	"smart-pantry/internal/predictor"
)

// ProcessLog dispatches one committed inventory log row: classify it, apply
// it to the product's cycle state, and persist a fresh forecast. Callers must
// schedule each log id at most once — closing a cycle is not idempotent.
func (s *Service) ProcessLog(ctx context.Context, logID string) error {
	return s.processLog(ctx, logID, predictor.StateUnknown, false)
}

// ProcessLogWithState is ProcessLog for callers that already mutated the
// inventory row and captured the coarse state as it was before the purchase.
func (s *Service) ProcessLogWithState(ctx context.Context, logID string, stateBefore predictor.InventoryState) error {
	return s.processLog(ctx, logID, stateBefore, true)
}

func (s *Service) processLog(ctx context.Context, logID string, stateBefore predictor.InventoryState, haveStateBefore bool) error {
	row, err := s.repo.GetInventoryLogRow(ctx, logID)
	if err != nil {
		return fmt.Errorf("log %s: %w", logID, err)
	}
	now := s.clock.Now()

	profileID, cfg, err := s.loadProfile(ctx, row.UserID)
	if err != nil {
		return err
	}
	categoryID, err := s.categoryFor(ctx, row.UserID, row.ProductID)
	if err != nil {
		return fmt.Errorf("resolve category: %w", err)
	}

	st, err := s.loadOrInitState(ctx, row.UserID, row.ProductID, categoryID, cfg, now)
	if err != nil {
		return err
	}

	purchaseEv, feedbackEv := predictor.MapLogEntry(row)
	if purchaseEv == nil && feedbackEv == nil {
		log.Debug().Str("log_id", logID).Str("action", string(row.Action)).
			Msg("log row produced no predictor event")
		return nil
	}

	if purchaseEv != nil {
		current := stateBefore
		if !haveStateBefore {
			current, err = s.repo.GetCurrentInventoryState(ctx, row.UserID, row.ProductID)
			if err != nil {
				log.Warn().Err(err).Str("log_id", logID).Msg("could not read pre-purchase inventory state")
				current = predictor.StateUnknown
			}
		}
		predictor.ApplyPurchase(st, *purchaseEv, cfg, current)
	}
	if feedbackEv != nil {
		predictor.ApplyFeedback(st, *feedbackEv, cfg)
	}

	var fc predictor.Forecast
	if purchaseEv != nil {
		// Habits are already folded into the mean by the refresh protocol.
		fc = predictor.PredictAfterPurchase(st, now, cfg)
	} else {
		mult := s.activeMultiplier(ctx, row.UserID, row.ProductID, categoryID, now)
		fc = predictor.Predict(st, now, mult, cfg, nil)
	}
	st.StampLastPrediction(fc)

	if err := s.persistForecast(ctx, row.UserID, row.ProductID, profileID, st, fc, logID); err != nil {
		return err
	}

	log.Info().Str("log_id", logID).Str("user_id", row.UserID).Str("product_id", row.ProductID).
		Float64("days_left", fc.ExpectedDaysLeft).Str("state", string(fc.PredictedState)).
		Float64("confidence", fc.Confidence).Msg("log dispatched")
	return nil
}

// ProcessLatest re-dispatches the most recent log row of one product. Used
// after manual inventory edits, where the edit itself wrote the log row.
func (s *Service) ProcessLatest(ctx context.Context, userID, productID string) error {
	logID, err := s.repo.LatestLogID(ctx, userID, productID)
	if err != nil {
		return fmt.Errorf("latest log: %w", err)
	}
	if logID == "" {
		return nil
	}
	return s.ProcessLog(ctx, logID)
}
