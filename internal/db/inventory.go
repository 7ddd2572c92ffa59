package db

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"smart-pantry/internal/predictor"
	"smart-pantry/internal/service"
)

// GetUserInventoryProducts lists the user's inventory products with their
// category, resolved through the products table when present.
func (d *DB) GetUserInventoryProducts(ctx context.Context, userID string) ([]service.InventoryProduct, error) {
	rows, err := d.sql.QueryContext(ctx, `
		SELECT i.product_id, COALESCE(p.category_id, '')
		  FROM inventory i
		  LEFT JOIN products p ON p.product_id = i.product_id
		 WHERE i.user_id = ?
		 ORDER BY i.product_id
	`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []service.InventoryProduct
	for rows.Next() {
		var it service.InventoryProduct
		if err := rows.Scan(&it.ProductID, &it.CategoryID); err != nil {
			return nil, err
		}
		out = append(out, it)
	}
	return out, rows.Err()
}

// UpsertInventoryDaysEstimate writes the user-visible estimate. The displayed
// name is preserved when the write carries none.
func (d *DB) UpsertInventoryDaysEstimate(ctx context.Context, est service.InventoryEstimate) error {
	now := time.Now().UTC().Format(time.RFC3339Nano)
	_, err := d.sql.ExecContext(ctx, `
		INSERT INTO inventory (user_id, product_id, displayed_name, estimated_days_left, state, confidence, source, updated_at)
		VALUES (?, ?, NULLIF(?, ''), ?, ?, ?, ?, ?)
		ON CONFLICT(user_id, product_id)
		DO UPDATE SET
			displayed_name      = COALESCE(NULLIF(excluded.displayed_name, ''), inventory.displayed_name),
			estimated_days_left = excluded.estimated_days_left,
			state               = excluded.state,
			confidence          = excluded.confidence,
			source              = excluded.source,
			updated_at          = excluded.updated_at
	`, est.UserID, est.ProductID, est.DisplayedName, est.DaysLeft, string(est.State), est.Confidence, string(est.Source), now)
	return err
}

// GetInventoryItem returns the current inventory row, or nil when absent.
func (d *DB) GetInventoryItem(ctx context.Context, userID, productID string) (*service.InventoryItem, error) {
	var state string
	var qty sql.NullFloat64
	err := d.sql.QueryRowContext(ctx, `
		SELECT state, estimated_days_left FROM inventory
		 WHERE user_id = ? AND product_id = ?
	`, userID, productID).Scan(&state, &qty)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	item := &service.InventoryItem{State: predictor.ParseInventoryState(state)}
	if qty.Valid {
		v := qty.Float64
		item.EstimatedQty = &v
	}
	return item, nil
}

// GetCurrentInventoryState returns the coarse state of one inventory row,
// UNKNOWN when the row does not exist.
func (d *DB) GetCurrentInventoryState(ctx context.Context, userID, productID string) (predictor.InventoryState, error) {
	item, err := d.GetInventoryItem(ctx, userID, productID)
	if err != nil {
		return predictor.StateUnknown, err
	}
	if item == nil {
		return predictor.StateUnknown, nil
	}
	return item.State, nil
}
