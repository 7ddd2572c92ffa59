package service

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"

	"smart-pantry/internal/habits"
)

// activeMultiplier composes the consumption multiplier from all active
// habits for one (product, category). A store failure degrades to 1.0 with a
// warning; habit lookup must never fail a prediction.
func (s *Service) activeMultiplier(ctx context.Context, userID, productID, categoryID string, now time.Time) float64 {
	effects, err := s.repo.GetActiveHabitEffects(ctx, userID, now)
	if err != nil {
		log.Warn().Err(err).Str("user_id", userID).Str("product_id", productID).
			Msg("habit lookup failed, using identity multiplier")
		return 1.0
	}
	return habits.Combine(effects, productID, categoryID)
}
