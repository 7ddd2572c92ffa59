package db

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"smart-pantry/internal/predictor"
	"smart-pantry/internal/service"
)

// GetPredictorState returns the persisted state row for (user, product), or
// nil when the product has never been predicted.
func (d *DB) GetPredictorState(ctx context.Context, userID, productID string) (*service.PredictorStateRow, error) {
	var row service.PredictorStateRow
	var params, updatedAt string
	err := d.sql.QueryRowContext(ctx, `
		SELECT params_json, confidence, updated_at, profile_id
		  FROM product_predictor_state
		 WHERE user_id = ? AND product_id = ?
	`, userID, productID).Scan(&params, &row.Confidence, &updatedAt, &row.ProfileID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	row.ParamsJSON = []byte(params)
	if t, ok := predictor.ParseTimestamp(updatedAt); ok {
		row.UpdatedAt = t
	}
	return &row, nil
}

// UpsertPredictorState persists a product's cycle state under its profile.
func (d *DB) UpsertPredictorState(ctx context.Context, userID, productID, profileID string, params []byte, confidence float64, updatedAt time.Time) error {
	_, err := d.sql.ExecContext(ctx, `
		INSERT INTO product_predictor_state (user_id, product_id, profile_id, params_json, confidence, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(user_id, product_id)
		DO UPDATE SET
			profile_id  = excluded.profile_id,
			params_json = excluded.params_json,
			confidence  = excluded.confidence,
			updated_at  = excluded.updated_at
	`, userID, productID, profileID, string(params), confidence, updatedAt.UTC().Format(time.RFC3339Nano))
	return err
}
