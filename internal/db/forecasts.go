package db

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"smart-pantry/internal/predictor"
)

// InsertForecast appends a forecast snapshot for audit and trend queries.
func (d *DB) InsertForecast(ctx context.Context, userID, productID string, f predictor.Forecast, triggerLogID string) error {
	_, err := d.sql.ExecContext(ctx, `
		INSERT INTO inventory_forecasts (user_id, product_id, expected_days_left, predicted_state, confidence, generated_at, trigger_log_id)
		VALUES (?, ?, ?, ?, ?, ?, NULLIF(?, ''))
	`, userID, productID, f.ExpectedDaysLeft, string(f.PredictedState), f.Confidence,
		f.GeneratedAt.UTC().Format(time.RFC3339Nano), triggerLogID)
	return err
}

// LatestForecast returns the most recent forecast snapshot of one product, or
// nil when none has been generated yet.
func (d *DB) LatestForecast(ctx context.Context, userID, productID string) (*predictor.Forecast, error) {
	var f predictor.Forecast
	var state, generatedAt string
	err := d.sql.QueryRowContext(ctx, `
		SELECT expected_days_left, predicted_state, confidence, generated_at
		  FROM inventory_forecasts
		 WHERE user_id = ? AND product_id = ?
		 ORDER BY generated_at DESC, id DESC
		 LIMIT 1
	`, userID, productID).Scan(&f.ExpectedDaysLeft, &state, &f.Confidence, &generatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	f.PredictedState = predictor.ParseInventoryState(state)
	if t, ok := predictor.ParseTimestamp(generatedAt); ok {
		f.GeneratedAt = t
	}
	return &f, nil
}
