package predictor

import (
	"testing"
	"time"

	"smart-pantry/internal/config"
)

func TestStateParams_RoundTrip(t *testing.T) {
	start := testTime(0)
	empty := testTime(5)
	pred := 3.5
	s := &State{
		CycleMeanDays:    6.5,
		CycleMADDays:     1.25,
		CycleStartedAt:   &start,
		LastPurchaseAt:   &start,
		LastUpdateAt:     testTime(6),
		NStrongUpdates:   4,
		NTotalUpdates:    9,
		NCompletedCycles: 4,
		LastPredDaysLeft: &pred,
		CensoredCycles:   2,
		WasteEvents:      1,
		CategoryID:       "cat-dairy",
		EmptyAt:          &empty,
	}

	got := FromParams(s.ToParams(), testTime(10))
	if got.CycleMeanDays != s.CycleMeanDays || got.CycleMADDays != s.CycleMADDays {
		t.Fatalf("mean/mad = %v/%v, want %v/%v", got.CycleMeanDays, got.CycleMADDays, s.CycleMeanDays, s.CycleMADDays)
	}
	if got.CycleStartedAt == nil || !got.CycleStartedAt.Equal(start) {
		t.Fatalf("cycle_started_at = %v, want %v", got.CycleStartedAt, start)
	}
	if got.EmptyAt == nil || !got.EmptyAt.Equal(empty) {
		t.Fatalf("empty_at = %v, want %v", got.EmptyAt, empty)
	}
	if got.LastPredDaysLeft == nil || *got.LastPredDaysLeft != pred {
		t.Fatalf("last_pred_days_left = %v, want %v", got.LastPredDaysLeft, pred)
	}
	if got.NStrongUpdates != 4 || got.NTotalUpdates != 9 || got.NCompletedCycles != 4 {
		t.Fatalf("counters = %d/%d/%d", got.NStrongUpdates, got.NTotalUpdates, got.NCompletedCycles)
	}
	if got.CategoryID != "cat-dairy" {
		t.Fatalf("category_id = %q", got.CategoryID)
	}
}

func TestFromParams_DefaultsOnEmptyAndMalformed(t *testing.T) {
	now := testTime(0)
	for _, raw := range [][]byte{nil, {}, []byte("not json"), []byte(`{"cycle_mean_days": "bad"}`)} {
		s := FromParams(raw, now)
		if s.CycleMeanDays != 7.0 || s.CycleMADDays != 2.0 {
			t.Fatalf("raw %q: mean/mad = %v/%v, want defaults 7/2", raw, s.CycleMeanDays, s.CycleMADDays)
		}
		if !s.LastUpdateAt.Equal(now) {
			t.Fatalf("raw %q: last_update_at = %v, want %v", raw, s.LastUpdateAt, now)
		}
	}
}

func TestFromParams_IgnoresUnknownKeysAndBadTimestamps(t *testing.T) {
	raw := []byte(`{"cycle_mean_days": 12, "cycle_started_at": "not a time", "future_field": true}`)
	s := FromParams(raw, testTime(0))
	if s.CycleMeanDays != 12 {
		t.Fatalf("mean = %v, want 12", s.CycleMeanDays)
	}
	if s.CycleStartedAt != nil {
		t.Fatalf("cycle_started_at = %v, want nil for unparseable value", s.CycleStartedAt)
	}
}

func TestInitFromCategory_UsesPriorAndClamps(t *testing.T) {
	cfg := config.Default()
	cfg.CategoryPriors["cat-spices"] = config.CategoryPrior{MeanDays: 200, MADDays: 0}

	s := InitFromCategory("cat-spices", cfg, testTime(0))
	if s.CycleMeanDays != cfg.MaxCycleDays {
		t.Fatalf("mean = %v, want clamped to %v", s.CycleMeanDays, cfg.MaxCycleDays)
	}
	if s.CycleMADDays != 0.1 {
		t.Fatalf("mad = %v, want floor 0.1", s.CycleMADDays)
	}

	fallback := InitFromCategory("unknown", cfg, testTime(0))
	if fallback.CycleMeanDays != 7.0 || fallback.CycleMADDays != 2.0 {
		t.Fatalf("fallback prior = %v/%v, want 7/2", fallback.CycleMeanDays, fallback.CycleMADDays)
	}
}

func TestParseTimestamp_AcceptsStoredShapes(t *testing.T) {
	want := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	cases := []string{
		"2026-01-02T03:04:05Z",
		"2026-01-02T03:04:05+00:00",
		"2026-01-02T03:04:05",
		"2026-01-02 03:04:05",
	}
	for _, in := range cases {
		got, ok := ParseTimestamp(in)
		if !ok || !got.Equal(want) {
			t.Fatalf("ParseTimestamp(%q) = %v/%v, want %v", in, got, ok, want)
		}
	}

	if got, ok := ParseTimestamp("2026-01-02T03:04:05.123456Z"); !ok || got.Nanosecond() != 123456000 {
		t.Fatalf("fractional seconds parse = %v/%v", got, ok)
	}
	if _, ok := ParseTimestamp("yesterday"); ok {
		t.Fatal("expected parse failure for garbage input")
	}
	if _, ok := ParseTimestamp(""); ok {
		t.Fatal("expected parse failure for empty input")
	}
}
