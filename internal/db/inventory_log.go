package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"smart-pantry/internal/predictor"
	"smart-pantry/internal/service"
)

// InsertLogEntry appends an inventory log row. A missing log id gets a fresh
// UUID; the row's id is returned either way.
func (d *DB) InsertLogEntry(ctx context.Context, row predictor.LogEntry) (string, error) {
	if row.LogID == "" {
		row.LogID = uuid.NewString()
	}
	occurred := row.OccurredAt
	if occurred.IsZero() {
		occurred = time.Now().UTC()
	}
	now := time.Now().UTC().Format(time.RFC3339Nano)
	_, err := d.sql.ExecContext(ctx, `
		INSERT INTO inventory_log (log_id, user_id, product_id, action, delta_state, action_confidence,
			occurred_at, source, note, receipt_item_id, shopping_list_item_id, created_at)
		VALUES (?, ?, ?, ?, NULLIF(?, ''), ?, ?, ?, NULLIF(?, ''), NULLIF(?, ''), NULLIF(?, ''), ?)
	`, row.LogID, row.UserID, row.ProductID, string(row.Action), deltaStateValue(row.DeltaState),
		row.ActionConfidence, occurred.UTC().Format(time.RFC3339Nano), string(row.Source),
		row.Note, row.ReceiptItemID, row.ShoppingListItemID, now)
	if err != nil {
		return "", err
	}
	return row.LogID, nil
}

func deltaStateValue(s predictor.InventoryState) string {
	if s == predictor.StateUnknown {
		return ""
	}
	return string(s)
}

// GetInventoryLogRow loads one log row by id.
func (d *DB) GetInventoryLogRow(ctx context.Context, logID string) (predictor.LogEntry, error) {
	var row predictor.LogEntry
	var deltaState, occurredAt, source sql.NullString
	var note, receiptItemID, shoppingListItemID sql.NullString
	var action string
	err := d.sql.QueryRowContext(ctx, `
		SELECT log_id, user_id, product_id, action, delta_state, action_confidence,
		       occurred_at, source, note, receipt_item_id, shopping_list_item_id
		  FROM inventory_log
		 WHERE log_id = ?
	`, logID).Scan(&row.LogID, &row.UserID, &row.ProductID, &action, &deltaState,
		&row.ActionConfidence, &occurredAt, &source, &note, &receiptItemID, &shoppingListItemID)
	if errors.Is(err, sql.ErrNoRows) {
		return predictor.LogEntry{}, fmt.Errorf("%w: %s", service.ErrLogRowNotFound, logID)
	}
	if err != nil {
		return predictor.LogEntry{}, err
	}

	row.Action = predictor.InventoryAction(action)
	row.DeltaState = predictor.ParseInventoryState(deltaState.String)
	row.Source = predictor.ParseInventorySource(source.String)
	row.Note = note.String
	row.ReceiptItemID = receiptItemID.String
	row.ShoppingListItemID = shoppingListItemID.String
	if t, ok := predictor.ParseTimestamp(occurredAt.String); ok {
		row.OccurredAt = t
	}
	return row, nil
}

// LatestLogID returns the id of the most recent log row for one product,
// "" when the product has no rows.
func (d *DB) LatestLogID(ctx context.Context, userID, productID string) (string, error) {
	var id string
	err := d.sql.QueryRowContext(ctx, `
		SELECT log_id FROM inventory_log
		 WHERE user_id = ? AND product_id = ?
		 ORDER BY occurred_at DESC, created_at DESC
		 LIMIT 1
	`, userID, productID).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	return id, err
}

// FirstLogOccurredAt returns when the product's first log row occurred, nil
// when the product has no rows.
func (d *DB) FirstLogOccurredAt(ctx context.Context, userID, productID string) (*time.Time, error) {
	var occurredAt string
	err := d.sql.QueryRowContext(ctx, `
		SELECT occurred_at FROM inventory_log
		 WHERE user_id = ? AND product_id = ?
		 ORDER BY occurred_at ASC, created_at ASC
		 LIMIT 1
	`, userID, productID).Scan(&occurredAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	t, ok := predictor.ParseTimestamp(occurredAt)
	if !ok {
		return nil, nil
	}
	return &t, nil
}
