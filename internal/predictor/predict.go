package predictor

import (
	"math"
	"time"

	"smart-pantry/internal/config"
)

const multiplierFloor = 1e-6

// Forecast is a point estimate of remaining supply at a moment in time.
type Forecast struct {
	ExpectedDaysLeft float64
	PredictedState   InventoryState
	Confidence       float64
	GeneratedAt      time.Time
}

// DeriveState maps a days-left estimate to the coarse stock level. A ratio
// under 2% of the cycle mean counts as EMPTY even when nominally positive.
func DeriveState(daysLeft, meanDays float64, cfg *config.Config) InventoryState {
	if daysLeft <= 0 {
		return StateEmpty
	}
	ratio := daysLeft / math.Max(meanDays, multiplierFloor)
	switch {
	case ratio < 0.02:
		return StateEmpty
	case ratio >= cfg.FullRatio:
		return StateFull
	case ratio >= cfg.MediumRatio:
		return StateMedium
	}
	return StateLow
}

// DaysLeft estimates remaining supply. When inventoryDaysLeft is non-nil it
// is the base (a user-visible cached value) and the multiplier divides it;
// otherwise the estimate derives from the cycle mean and elapsed time.
// multiplier > 1 means faster consumption, so fewer days remain.
func DaysLeft(s *State, now time.Time, multiplier float64, inventoryDaysLeft *float64) float64 {
	mult := math.Max(multiplier, multiplierFloor)

	if inventoryDaysLeft != nil {
		return math.Max(*inventoryDaysLeft/mult, 0)
	}
	if s.CycleStartedAt == nil {
		return 0
	}

	base := math.Max(s.CycleMeanDays-daysBetween(now, *s.CycleStartedAt), 0)
	return math.Max(base/mult, 0)
}

// Confidence combines evidence (completed cycles), stability (MAD relative to
// the mean) and recency of the last update into a [0, 1] scalar.
func Confidence(s *State, now time.Time, cfg *config.Config) float64 {
	cycles := s.NCompletedCycles
	if cycles == 0 {
		cycles = s.NStrongUpdates
	}
	evidence := 0.3 // fixed floor for products with no evidence yet
	if cycles > 0 {
		evidence = sigmoid(float64(cycles) / 2.0)
	}

	stability := clamp(1.0-s.CycleMADDays/math.Max(s.CycleMeanDays, 1.0), 0.2, 1.0)

	daysSince := daysBetween(now, s.LastUpdateAt)
	recency := math.Max(math.Exp(-daysSince/math.Max(cfg.RecencyTauDays, multiplierFloor)), 0.1)

	return clamp(0.2+0.8*evidence*stability*recency, 0.0, 1.0)
}

// Predict wraps DaysLeft, DeriveState and Confidence into one forecast.
func Predict(s *State, now time.Time, multiplier float64, cfg *config.Config, inventoryDaysLeft *float64) Forecast {
	daysLeft := DaysLeft(s, now, multiplier, inventoryDaysLeft)
	return Forecast{
		ExpectedDaysLeft: daysLeft,
		PredictedState:   DeriveState(daysLeft, s.CycleMeanDays, cfg),
		Confidence:       Confidence(s, now, cfg),
		GeneratedAt:      now.UTC(),
	}
}

// PredictAfterPurchase predicts with multiplier 1.0. Habit effects are
// already folded into cycle_mean_days by the refresh protocol, so applying
// the multiplier again here would double-count them.
func PredictAfterPurchase(s *State, now time.Time, cfg *config.Config) Forecast {
	return Predict(s, now, 1.0, cfg, nil)
}
