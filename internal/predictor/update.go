package predictor

import (
	"math"
	"strings"

	"smart-pantry/internal/config"
)

// ApplyPurchase closes or censors the running cycle, learns from it when it
// completed, and opens a new cycle at the event timestamp.
//
// currentState is the coarse inventory state *before* the purchase mutated
// inventory; pass StateUnknown when it is not known.
func ApplyPurchase(s *State, ev PurchaseEvent, cfg *config.Config, currentState InventoryState) {
	observed := -1.0

	switch {
	case s.EmptyAt != nil && s.CycleStartedAt != nil:
		// The product ran out: the cycle length is purchase -> empty.
		observed = clamp(daysBetween(*s.EmptyAt, *s.CycleStartedAt), cfg.MinCycleDays, cfg.MaxCycleDays)
	case s.EmptyAt == nil && currentState == StateLow && s.CycleStartedAt != nil:
		// Repurchased while LOW: treat the cycle as closed now.
		observed = clamp(daysBetween(ev.TS, *s.CycleStartedAt), cfg.MinCycleDays, cfg.MaxCycleDays)
	}

	if observed >= 0 {
		learnCycle(s, observed, cfg)
	} else if s.CycleStartedAt != nil && (currentState == StateFull || currentState == StateMedium) {
		// Repurchased while still stocked: the old cycle tells us nothing
		// about consumption speed.
		s.CensoredCycles++
	}

	ts := ev.TS.UTC()
	s.CycleStartedAt = &ts
	s.LastPurchaseAt = &ts
	s.LastUpdateAt = ts
	s.EmptyAt = nil
}

// learnCycle folds one observed cycle length into the cumulative averages.
func learnCycle(s *State, observed float64, cfg *config.Config) {
	oldMean := s.CycleMeanDays
	k := float64(s.NCompletedCycles)

	var newMean, newMAD float64
	if s.NCompletedCycles == 0 {
		newMean = observed
		newMAD = maxf(math.Abs(observed-oldMean), 0.1)
	} else {
		newMean = (oldMean*k + observed) / (k + 1)
		newMAD = (s.CycleMADDays*k + math.Abs(observed-oldMean)) / (k + 1)
	}

	s.CycleMeanDays = clamp(newMean, cfg.MinCycleDays, cfg.MaxCycleDays)
	s.CycleMADDays = clamp(newMAD, 0.1, cfg.MaxCycleDays)
	s.NCompletedCycles++
	s.NStrongUpdates++
}

// ApplyFeedback applies a user signal. MORE/LESS never touch the learned mean
// here; their immediate days_left shift happens at the caller and the mean
// only moves when a cycle completes.
func ApplyFeedback(s *State, ev FeedbackEvent, cfg *config.Config) {
	ts := ev.TS.UTC()
	s.LastUpdateAt = ts
	s.NTotalUpdates++

	switch ev.Kind {
	case FeedbackEmpty:
		// Keep cycle_started_at: the next purchase measures the cycle.
		if s.EmptyAt == nil {
			s.EmptyAt = &ts
		}

	case FeedbackWasted:
		s.WasteEvents++
		applyWaste(s, ev, cfg)

	case FeedbackExact:
		s.CycleMADDays = clamp((1-cfg.AlphaConfirm)*s.CycleMADDays, 0.1, cfg.MaxCycleDays)

	case FeedbackMore, FeedbackLess:
		s.LastFeedbackAt = &ts
	}
}

func applyWaste(s *State, ev FeedbackEvent, cfg *config.Config) {
	reason := strings.ToLower(ev.Note)

	switch {
	case containsAny(reason, "taste", "expired", "לא היה טעים", "פג תוקף"):
		// Discarded for quality, not consumed: no cycle to learn from.
		s.CycleStartedAt = nil
		s.CycleMADDays = clamp(s.CycleMADDays*1.03, 0.1, cfg.MaxCycleDays)

	case containsAny(reason, "ran out", "נגמר", "empty"):
		// Possibly a real cycle; learn weakly.
		if s.CycleStartedAt != nil {
			observed := clamp(daysBetween(ev.TS, *s.CycleStartedAt), cfg.MinCycleDays, cfg.MaxCycleDays)
			a := cfg.AlphaStrong * 0.2
			oldMean := s.CycleMeanDays
			s.CycleMeanDays = clamp((1-a)*oldMean+a*observed, cfg.MinCycleDays, cfg.MaxCycleDays)
			newMAD := (1-a)*s.CycleMADDays + a*math.Abs(observed-oldMean)*0.5
			s.CycleMADDays = clamp(newMAD, 0.1, cfg.MaxCycleDays)
		}
		s.CycleStartedAt = nil

	default:
		s.CycleStartedAt = nil
		s.CycleMADDays = clamp(s.CycleMADDays*1.03, 0.1, cfg.MaxCycleDays)
	}
}

func containsAny(s string, subs ...string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}
