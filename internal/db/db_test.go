package db

import (
	"context"
	"database/sql"
	"testing"
	"time"

	_ "modernc.org/sqlite"

	"smart-pantry/internal/config"
	"smart-pantry/internal/habits"
	"smart-pantry/internal/predictor"
	"smart-pantry/internal/service"
)

// openTestDB opens an in-memory SQLite DB and runs migrations (for testing only).
func openTestDB(t *testing.T) *DB {
	t.Helper()
	sqlDB, err := sql.Open("sqlite", ":memory:?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		t.Fatalf("open in-memory db: %v", err)
	}
	d := &DB{sql: sqlDB}
	if err := d.migrate(); err != nil {
		sqlDB.Close()
		t.Fatalf("migrate: %v", err)
	}
	return d
}

func TestDB_LazyProfileCreationSeedsPriors(t *testing.T) {
	d := openTestDB(t)
	defer d.Close()
	ctx := context.Background()

	catID, err := d.UpsertCategory(ctx, "", "Dairy & Eggs")
	if err != nil {
		t.Fatalf("UpsertCategory: %v", err)
	}
	if _, err := d.UpsertCategory(ctx, "", "Obscure Imports"); err != nil {
		t.Fatalf("UpsertCategory: %v", err)
	}

	p, err := d.GetActiveProfile(ctx, "u1")
	if err != nil {
		t.Fatalf("GetActiveProfile: %v", err)
	}
	if p.ProfileID == "" || p.UserID != "u1" || p.Method != "cycle_ema" {
		t.Fatalf("profile = %+v", p)
	}

	cfg := config.FromJSON(p.ConfigJSON)
	prior := cfg.Prior(catID)
	if prior.MeanDays != 5 || prior.MADDays != 2 {
		t.Fatalf("dairy prior = %+v, want 5/2", prior)
	}
	// The unknown category name must not get a seeded prior.
	if len(cfg.CategoryPriors) != 1 {
		t.Fatalf("seeded priors = %d, want 1", len(cfg.CategoryPriors))
	}

	// A second read returns the same profile instead of creating another.
	again, err := d.GetActiveProfile(ctx, "u1")
	if err != nil {
		t.Fatalf("GetActiveProfile again: %v", err)
	}
	if again.ProfileID != p.ProfileID {
		t.Fatalf("profile recreated: %s vs %s", again.ProfileID, p.ProfileID)
	}
}

func TestDB_PredictorStateRoundTrip(t *testing.T) {
	d := openTestDB(t)
	defer d.Close()
	ctx := context.Background()

	row, err := d.GetPredictorState(ctx, "u1", "p1")
	if err != nil {
		t.Fatalf("GetPredictorState: %v", err)
	}
	if row != nil {
		t.Fatalf("expected nil for missing state, got %+v", row)
	}

	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	st := predictor.InitFromCategory("cat-1", config.Default(), now)
	if err := d.UpsertPredictorState(ctx, "u1", "p1", "prof-1", st.ToParams(), 0.4, now); err != nil {
		t.Fatalf("UpsertPredictorState: %v", err)
	}

	row, err = d.GetPredictorState(ctx, "u1", "p1")
	if err != nil {
		t.Fatalf("GetPredictorState: %v", err)
	}
	if row == nil || row.ProfileID != "prof-1" || row.Confidence != 0.4 {
		t.Fatalf("row = %+v", row)
	}
	if !row.UpdatedAt.Equal(now) {
		t.Fatalf("updated_at = %v, want %v", row.UpdatedAt, now)
	}
	back := predictor.FromParams(row.ParamsJSON, now)
	if back.CycleMeanDays != st.CycleMeanDays || back.CategoryID != "cat-1" {
		t.Fatalf("params round trip: %+v", back)
	}

	// Upsert replaces in place.
	st.CycleMeanDays = 9
	if err := d.UpsertPredictorState(ctx, "u1", "p1", "prof-1", st.ToParams(), 0.6, now); err != nil {
		t.Fatalf("second upsert: %v", err)
	}
	row, _ = d.GetPredictorState(ctx, "u1", "p1")
	if row.Confidence != 0.6 {
		t.Fatalf("confidence = %v, want 0.6", row.Confidence)
	}
}

func TestDB_InventoryUpsertPreservesDisplayedName(t *testing.T) {
	d := openTestDB(t)
	defer d.Close()
	ctx := context.Background()

	est := service.InventoryEstimate{
		UserID: "u1", ProductID: "p1", DaysLeft: 4.5,
		State: predictor.StateMedium, Confidence: 0.5,
		Source: predictor.SourceSystem, DisplayedName: "Milk 3%",
	}
	if err := d.UpsertInventoryDaysEstimate(ctx, est); err != nil {
		t.Fatalf("upsert: %v", err)
	}

	est.DisplayedName = ""
	est.DaysLeft = 3.5
	est.State = predictor.StateLow
	if err := d.UpsertInventoryDaysEstimate(ctx, est); err != nil {
		t.Fatalf("second upsert: %v", err)
	}

	item, err := d.GetInventoryItem(ctx, "u1", "p1")
	if err != nil {
		t.Fatalf("GetInventoryItem: %v", err)
	}
	if item == nil || item.State != predictor.StateLow || item.EstimatedQty == nil || *item.EstimatedQty != 3.5 {
		t.Fatalf("item = %+v", item)
	}

	var name string
	if err := d.sql.QueryRow(`SELECT displayed_name FROM inventory WHERE user_id='u1' AND product_id='p1'`).Scan(&name); err != nil {
		t.Fatalf("read displayed_name: %v", err)
	}
	if name != "Milk 3%" {
		t.Fatalf("displayed_name = %q, want preserved", name)
	}

	state, err := d.GetCurrentInventoryState(ctx, "u1", "p1")
	if err != nil || state != predictor.StateLow {
		t.Fatalf("state = %s/%v", state, err)
	}
	if state, _ := d.GetCurrentInventoryState(ctx, "u1", "missing"); state != predictor.StateUnknown {
		t.Fatalf("missing row state = %s, want UNKNOWN", state)
	}
}

func TestDB_InventoryLogRoundTripAndOrdering(t *testing.T) {
	d := openTestDB(t)
	defer d.Close()
	ctx := context.Background()

	if id, err := d.LatestLogID(ctx, "u1", "p1"); err != nil || id != "" {
		t.Fatalf("LatestLogID on empty table = %q/%v", id, err)
	}
	if ts, err := d.FirstLogOccurredAt(ctx, "u1", "p1"); err != nil || ts != nil {
		t.Fatalf("FirstLogOccurredAt on empty table = %v/%v", ts, err)
	}

	t0 := time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC)
	first, err := d.InsertLogEntry(ctx, predictor.LogEntry{
		UserID: "u1", ProductID: "p1", Action: predictor.ActionPurchase,
		ActionConfidence: 1, OccurredAt: t0, Source: predictor.SourceReceipt,
		Note: "weekly shop",
	})
	if err != nil {
		t.Fatalf("InsertLogEntry: %v", err)
	}
	second, err := d.InsertLogEntry(ctx, predictor.LogEntry{
		UserID: "u1", ProductID: "p1", Action: predictor.ActionAdjust,
		DeltaState: predictor.StateEmpty, OccurredAt: t0.Add(48 * time.Hour),
		Source: predictor.SourceManual,
	})
	if err != nil {
		t.Fatalf("InsertLogEntry: %v", err)
	}

	row, err := d.GetInventoryLogRow(ctx, first)
	if err != nil {
		t.Fatalf("GetInventoryLogRow: %v", err)
	}
	if row.Action != predictor.ActionPurchase || row.Source != predictor.SourceReceipt || row.Note != "weekly shop" {
		t.Fatalf("row = %+v", row)
	}
	if !row.OccurredAt.Equal(t0) {
		t.Fatalf("occurred_at = %v, want %v", row.OccurredAt, t0)
	}

	if id, _ := d.LatestLogID(ctx, "u1", "p1"); id != second {
		t.Fatalf("LatestLogID = %q, want %q", id, second)
	}
	if ts, _ := d.FirstLogOccurredAt(ctx, "u1", "p1"); ts == nil || !ts.Equal(t0) {
		t.Fatalf("FirstLogOccurredAt = %v, want %v", ts, t0)
	}

	if _, err := d.GetInventoryLogRow(ctx, "nope"); err == nil {
		t.Fatal("expected error for missing log row")
	}
}

func TestDB_ForecastInsertAndLatest(t *testing.T) {
	d := openTestDB(t)
	defer d.Close()
	ctx := context.Background()

	if f, err := d.LatestForecast(ctx, "u1", "p1"); err != nil || f != nil {
		t.Fatalf("LatestForecast on empty table = %v/%v", f, err)
	}

	t0 := time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC)
	early := predictor.Forecast{ExpectedDaysLeft: 5, PredictedState: predictor.StateFull, Confidence: 0.4, GeneratedAt: t0}
	late := predictor.Forecast{ExpectedDaysLeft: 3, PredictedState: predictor.StateMedium, Confidence: 0.5, GeneratedAt: t0.Add(time.Hour)}
	if err := d.InsertForecast(ctx, "u1", "p1", early, "log-1"); err != nil {
		t.Fatalf("InsertForecast: %v", err)
	}
	if err := d.InsertForecast(ctx, "u1", "p1", late, ""); err != nil {
		t.Fatalf("InsertForecast: %v", err)
	}

	f, err := d.LatestForecast(ctx, "u1", "p1")
	if err != nil {
		t.Fatalf("LatestForecast: %v", err)
	}
	if f == nil || f.ExpectedDaysLeft != 3 || f.PredictedState != predictor.StateMedium {
		t.Fatalf("latest forecast = %+v", f)
	}
}

func TestDB_ActiveHabitEffectsWindow(t *testing.T) {
	d := openTestDB(t)
	defer d.Close()
	ctx := context.Background()
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

	two := 2.0
	past := now.Add(-48 * time.Hour)
	future := now.Add(48 * time.Hour)
	gone := now.Add(-time.Hour)

	mk := func(h Habit) {
		t.Helper()
		if _, err := d.CreateHabit(ctx, h); err != nil {
			t.Fatalf("CreateHabit: %v", err)
		}
	}
	mk(Habit{UserID: "u1", Name: "open window", Effects: habits.Effects{GlobalMultiplier: &two}})
	mk(Habit{UserID: "u1", Name: "in window", StartsAt: &past, EndsAt: &future,
		Effects: habits.Effects{ProductMultipliers: map[string]float64{"p1": 1.5}}})
	mk(Habit{UserID: "u1", Name: "expired", StartsAt: &past, EndsAt: &gone,
		Effects: habits.Effects{GlobalMultiplier: &two}})
	mk(Habit{UserID: "u1", Name: "not started", StartsAt: &future,
		Effects: habits.Effects{GlobalMultiplier: &two}})
	mk(Habit{UserID: "u2", Name: "other user", Effects: habits.Effects{GlobalMultiplier: &two}})

	effects, err := d.GetActiveHabitEffects(ctx, "u1", now)
	if err != nil {
		t.Fatalf("GetActiveHabitEffects: %v", err)
	}
	if len(effects) != 2 {
		t.Fatalf("active effects = %d, want 2", len(effects))
	}
	if mult := habits.Combine(effects, "p1", ""); mult != 3.0 {
		t.Fatalf("combined multiplier = %v, want 2 * 1.5 = 3", mult)
	}
}

func TestDB_DeactivateHabit(t *testing.T) {
	d := openTestDB(t)
	defer d.Close()
	ctx := context.Background()
	two := 2.0

	id, err := d.CreateHabit(ctx, Habit{UserID: "u1", Name: "h", Effects: habits.Effects{GlobalMultiplier: &two}})
	if err != nil {
		t.Fatalf("CreateHabit: %v", err)
	}

	changed, err := d.DeactivateHabit(ctx, id)
	if err != nil || !changed {
		t.Fatalf("DeactivateHabit = %v/%v", changed, err)
	}
	// Second deactivation is a no-op.
	changed, err = d.DeactivateHabit(ctx, id)
	if err != nil || changed {
		t.Fatalf("repeat DeactivateHabit = %v/%v", changed, err)
	}

	effects, err := d.GetActiveHabitEffects(ctx, "u1", time.Now().UTC())
	if err != nil || len(effects) != 0 {
		t.Fatalf("effects after deactivation = %v/%v", effects, err)
	}

	h, err := d.GetHabit(ctx, id)
	if err != nil || h == nil || h.Status != HabitStatusInactive {
		t.Fatalf("habit = %+v/%v", h, err)
	}
	if missing, err := d.GetHabit(ctx, "nope"); err != nil || missing != nil {
		t.Fatalf("missing habit = %+v/%v", missing, err)
	}
}

func TestDB_ListUsersAndInventoryProducts(t *testing.T) {
	d := openTestDB(t)
	defer d.Close()
	ctx := context.Background()

	catID, _ := d.UpsertCategory(ctx, "cat-dairy", "Dairy & Eggs")
	if _, err := d.UpsertProduct(ctx, "p-milk", "Milk", catID); err != nil {
		t.Fatalf("UpsertProduct: %v", err)
	}
	est := service.InventoryEstimate{UserID: "u1", ProductID: "p-milk", DaysLeft: 5,
		State: predictor.StateFull, Confidence: 0.4, Source: predictor.SourceSystem}
	if err := d.UpsertInventoryDaysEstimate(ctx, est); err != nil {
		t.Fatalf("upsert inventory: %v", err)
	}
	if _, err := d.InsertLogEntry(ctx, predictor.LogEntry{UserID: "u2", ProductID: "p-x",
		Action: predictor.ActionPurchase, OccurredAt: time.Now().UTC()}); err != nil {
		t.Fatalf("InsertLogEntry: %v", err)
	}

	users, err := d.ListUsers(ctx)
	if err != nil {
		t.Fatalf("ListUsers: %v", err)
	}
	if len(users) != 2 || users[0] != "u1" || users[1] != "u2" {
		t.Fatalf("users = %v", users)
	}

	items, err := d.GetUserInventoryProducts(ctx, "u1")
	if err != nil {
		t.Fatalf("GetUserInventoryProducts: %v", err)
	}
	if len(items) != 1 || items[0].ProductID != "p-milk" || items[0].CategoryID != "cat-dairy" {
		t.Fatalf("items = %+v", items)
	}
}
