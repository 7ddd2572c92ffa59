package db

import (
	"database/sql"
	"encoding/json"
	"time"

	"smart-pantry/internal/habits"
	"smart-pantry/internal/predictor"
)

func encodeEffects(e habits.Effects) (string, error) {
	b, err := json.Marshal(e)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func formatNullableTime(t *time.Time) any {
	if t == nil {
		return nil
	}
	return t.UTC().Format(time.RFC3339Nano)
}

func parseNullableTime(s sql.NullString) *time.Time {
	if !s.Valid {
		return nil
	}
	t, ok := predictor.ParseTimestamp(s.String)
	if !ok {
		return nil
	}
	return &t
}
