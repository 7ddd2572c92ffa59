package predictor

import (
	"encoding/json"
	"time"

	"smart-pantry/internal/config"
)

// State is the per-(user, product) cycle estimator. It persists as a JSON
// params blob under the active profile; the key names are part of the stored
// contract and must stay stable.
type State struct {
	CycleMeanDays float64
	CycleMADDays  float64

	// CycleStartedAt is the opening purchase of the current cycle.
	// nil means no active cycle (the product is considered EMPTY).
	CycleStartedAt *time.Time
	LastPurchaseAt *time.Time
	LastUpdateAt   time.Time

	NStrongUpdates   int
	NTotalUpdates    int
	NCompletedCycles int

	LastPredDaysLeft *float64
	CensoredCycles   int
	WasteEvents      int

	// CategoryID is denormalized for cold-start re-initialization.
	CategoryID     string
	LastFeedbackAt *time.Time
	// EmptyAt is when the product first ran out within the current cycle.
	EmptyAt *time.Time
}

type stateParams struct {
	CycleMeanDays    *float64 `json:"cycle_mean_days"`
	CycleMADDays     *float64 `json:"cycle_mad_days"`
	CycleStartedAt   *string  `json:"cycle_started_at"`
	LastPurchaseAt   *string  `json:"last_purchase_at"`
	LastUpdateAt     *string  `json:"last_update_at"`
	NStrongUpdates   *int     `json:"n_strong_updates"`
	NTotalUpdates    *int     `json:"n_total_updates"`
	NCompletedCycles *int     `json:"n_completed_cycles"`
	LastPredDaysLeft *float64 `json:"last_pred_days_left"`
	CensoredCycles   *int     `json:"censored_cycles"`
	WasteEvents      *int     `json:"waste_events"`
	CategoryID       *string  `json:"category_id"`
	LastFeedbackAt   *string  `json:"last_feedback_at"`
	EmptyAt          *string  `json:"empty_at"`
}

// InitFromCategory builds a cold-start state from the category prior, clamped
// to the config bounds with the MAD floored at 0.1.
func InitFromCategory(categoryID string, cfg *config.Config, now time.Time) *State {
	prior := cfg.Prior(categoryID)
	return &State{
		CycleMeanDays: clamp(prior.MeanDays, cfg.MinCycleDays, cfg.MaxCycleDays),
		CycleMADDays:  maxf(prior.MADDays, 0.1),
		LastUpdateAt:  now.UTC(),
		CategoryID:    categoryID,
	}
}

// ToParams serializes the state with the stable key set. Timestamps are
// ISO-8601 UTC; absent values serialize as null.
func (s *State) ToParams() []byte {
	p := stateParams{
		CycleMeanDays:    &s.CycleMeanDays,
		CycleMADDays:     &s.CycleMADDays,
		CycleStartedAt:   formatTimePtr(s.CycleStartedAt),
		LastPurchaseAt:   formatTimePtr(s.LastPurchaseAt),
		LastUpdateAt:     formatTimePtr(&s.LastUpdateAt),
		NStrongUpdates:   &s.NStrongUpdates,
		NTotalUpdates:    &s.NTotalUpdates,
		NCompletedCycles: &s.NCompletedCycles,
		LastPredDaysLeft: s.LastPredDaysLeft,
		CensoredCycles:   &s.CensoredCycles,
		WasteEvents:      &s.WasteEvents,
		LastFeedbackAt:   formatTimePtr(s.LastFeedbackAt),
		EmptyAt:          formatTimePtr(s.EmptyAt),
	}
	if s.CategoryID != "" {
		p.CategoryID = &s.CategoryID
	}
	b, err := json.Marshal(p)
	if err != nil {
		return []byte("{}")
	}
	return b
}

// FromParams restores a state from a stored params blob. Missing keys fall
// back to defaults (mean 7, MAD 2, last_update_at = now); unknown keys and
// malformed timestamps are ignored. A nil error is guaranteed for any input;
// a completely malformed payload yields the default state.
func FromParams(raw []byte, now time.Time) *State {
	s := &State{
		CycleMeanDays: 7.0,
		CycleMADDays:  2.0,
		LastUpdateAt:  now.UTC(),
	}
	if len(raw) == 0 {
		return s
	}
	var p stateParams
	if err := json.Unmarshal(raw, &p); err != nil {
		return s
	}

	if p.CycleMeanDays != nil {
		s.CycleMeanDays = *p.CycleMeanDays
	}
	if p.CycleMADDays != nil {
		s.CycleMADDays = *p.CycleMADDays
	}
	s.CycleStartedAt = parseTimePtr(p.CycleStartedAt)
	s.LastPurchaseAt = parseTimePtr(p.LastPurchaseAt)
	if t := parseTimePtr(p.LastUpdateAt); t != nil {
		s.LastUpdateAt = *t
	}
	if p.NStrongUpdates != nil {
		s.NStrongUpdates = *p.NStrongUpdates
	}
	if p.NTotalUpdates != nil {
		s.NTotalUpdates = *p.NTotalUpdates
	}
	if p.NCompletedCycles != nil {
		s.NCompletedCycles = *p.NCompletedCycles
	}
	s.LastPredDaysLeft = p.LastPredDaysLeft
	if p.CensoredCycles != nil {
		s.CensoredCycles = *p.CensoredCycles
	}
	if p.WasteEvents != nil {
		s.WasteEvents = *p.WasteEvents
	}
	if p.CategoryID != nil {
		s.CategoryID = *p.CategoryID
	}
	s.LastFeedbackAt = parseTimePtr(p.LastFeedbackAt)
	s.EmptyAt = parseTimePtr(p.EmptyAt)
	return s
}

// StampLastPrediction records the forecast's days_left on the state so later
// MORE/LESS and refresh passes operate on the cached value.
func (s *State) StampLastPrediction(f Forecast) {
	v := f.ExpectedDaysLeft
	s.LastPredDaysLeft = &v
}

func formatTimePtr(t *time.Time) *string {
	if t == nil {
		return nil
	}
	str := t.UTC().Format(time.RFC3339Nano)
	return &str
}

func parseTimePtr(s *string) *time.Time {
	if s == nil {
		return nil
	}
	t, ok := ParseTimestamp(*s)
	if !ok {
		return nil
	}
	return &t
}

// timestampLayouts covers the shapes storage layers actually return:
// RFC3339 with any fractional-second precision and either a Z suffix or a
// numeric offset, plus zone-less variants assumed UTC.
var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999Z07:00",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02",
}

// ParseTimestamp parses a stored timestamp tolerantly and normalizes to UTC.
func ParseTimestamp(s string) (time.Time, bool) {
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), true
		}
	}
	return time.Time{}, false
}
