package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"smart-pantry/internal/config"
	"smart-pantry/internal/service"
)

// ListUsers returns every user id that has inventory or log activity.
func (d *DB) ListUsers(ctx context.Context) ([]string, error) {
	rows, err := d.sql.QueryContext(ctx, `
		SELECT user_id FROM inventory
		 UNION
		SELECT user_id FROM inventory_log
		 ORDER BY user_id
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		out = append(out, id)
	}
	return out, rows.Err()
}

// GetActiveProfile returns the user's active predictor profile, creating a
// default one on first access. The default config seeds category priors by
// matching the category names present in the store.
func (d *DB) GetActiveProfile(ctx context.Context, userID string) (service.Profile, error) {
	p, err := d.scanActiveProfile(ctx, userID)
	if err == nil {
		return p, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return service.Profile{}, err
	}
	if err := d.createDefaultProfile(ctx, userID); err != nil {
		return service.Profile{}, fmt.Errorf("create default profile: %w", err)
	}
	return d.scanActiveProfile(ctx, userID)
}

func (d *DB) scanActiveProfile(ctx context.Context, userID string) (service.Profile, error) {
	var p service.Profile
	var cfg string
	err := d.sql.QueryRowContext(ctx, `
		SELECT profile_id, user_id, method, config_json
		  FROM predictor_profiles
		 WHERE user_id = ? AND is_active = 1
		 ORDER BY created_at DESC
		 LIMIT 1
	`, userID).Scan(&p.ProfileID, &p.UserID, &p.Method, &cfg)
	if err != nil {
		return service.Profile{}, err
	}
	p.ConfigJSON = []byte(cfg)
	return p, nil
}

func (d *DB) createDefaultProfile(ctx context.Context, userID string) error {
	cfg := config.Default()

	rows, err := d.sql.QueryContext(ctx, `SELECT category_id, name FROM product_categories`)
	if err != nil {
		return err
	}
	defer rows.Close()
	known := config.DefaultPriorsByName()
	for rows.Next() {
		var id, name string
		if err := rows.Scan(&id, &name); err != nil {
			return err
		}
		for n, prior := range known {
			if strings.EqualFold(n, name) {
				cfg.CategoryPriors[id] = prior
				break
			}
		}
	}
	if err := rows.Err(); err != nil {
		return err
	}

	now := time.Now().UTC().Format(time.RFC3339Nano)
	_, err = d.sql.ExecContext(ctx, `
		INSERT INTO predictor_profiles (profile_id, user_id, method, config_json, is_active, created_at)
		VALUES (?, ?, 'cycle_ema', ?, 1, ?)
	`, uuid.NewString(), userID, string(cfg.ToJSON()), now)
	if err == nil {
		log.Info().Str("user_id", userID).Int("priors", len(cfg.CategoryPriors)).
			Msg("created default predictor profile")
	}
	return err
}
