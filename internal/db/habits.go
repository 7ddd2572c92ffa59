package db

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"

	"smart-pantry/internal/habits"
)

const (
	HabitStatusActive   = "ACTIVE"
	HabitStatusInactive = "INACTIVE"
)

// Habit is one stored habit row.
type Habit struct {
	HabitID  string
	UserID   string
	Name     string
	Status   string
	Effects  habits.Effects
	StartsAt *time.Time
	EndsAt   *time.Time
}

// GetActiveHabitEffects returns the decoded effects of every habit that is
// ACTIVE and whose date window contains now. An open start or end bound
// always matches.
func (d *DB) GetActiveHabitEffects(ctx context.Context, userID string, now time.Time) ([]habits.Effects, error) {
	ts := now.UTC().Format(time.RFC3339Nano)
	rows, err := d.sql.QueryContext(ctx, `
		SELECT effects_json FROM habits
		 WHERE user_id = ?
		   AND status = ?
		   AND (starts_at IS NULL OR starts_at <= ?)
		   AND (ends_at IS NULL OR ends_at >= ?)
		 ORDER BY created_at
	`, userID, HabitStatusActive, ts, ts)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []habits.Effects
	for rows.Next() {
		var raw string
		if err := rows.Scan(&raw); err != nil {
			return nil, err
		}
		e := habits.DecodeEffects([]byte(raw))
		if !e.IsZero() {
			out = append(out, e)
		}
	}
	return out, rows.Err()
}

// CreateHabit stores a new active habit and returns its id.
func (d *DB) CreateHabit(ctx context.Context, h Habit) (string, error) {
	if h.HabitID == "" {
		h.HabitID = uuid.NewString()
	}
	if h.Status == "" {
		h.Status = HabitStatusActive
	}
	effects, err := encodeEffects(h.Effects)
	if err != nil {
		return "", err
	}
	now := time.Now().UTC().Format(time.RFC3339Nano)
	_, err = d.sql.ExecContext(ctx, `
		INSERT INTO habits (habit_id, user_id, name, status, effects_json, starts_at, ends_at, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, h.HabitID, h.UserID, h.Name, h.Status, effects, formatNullableTime(h.StartsAt), formatNullableTime(h.EndsAt), now)
	if err != nil {
		return "", err
	}
	return h.HabitID, nil
}

// GetHabit loads one habit row by id, nil when absent.
func (d *DB) GetHabit(ctx context.Context, habitID string) (*Habit, error) {
	var h Habit
	var effects string
	var startsAt, endsAt sql.NullString
	err := d.sql.QueryRowContext(ctx, `
		SELECT habit_id, user_id, name, status, effects_json, starts_at, ends_at
		  FROM habits
		 WHERE habit_id = ?
	`, habitID).Scan(&h.HabitID, &h.UserID, &h.Name, &h.Status, &effects, &startsAt, &endsAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	h.Effects = habits.DecodeEffects([]byte(effects))
	h.StartsAt = parseNullableTime(startsAt)
	h.EndsAt = parseNullableTime(endsAt)
	return &h, nil
}

// DeactivateHabit flips a habit to INACTIVE. Returns whether a row changed.
func (d *DB) DeactivateHabit(ctx context.Context, habitID string) (bool, error) {
	res, err := d.sql.ExecContext(ctx, `
		UPDATE habits SET status = ? WHERE habit_id = ? AND status = ?
	`, HabitStatusInactive, habitID, HabitStatusActive)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n > 0, err
}
