// Package db implements the predictor's storage surface on SQLite.
package db

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	"github.com/rs/zerolog/log"
	_ "modernc.org/sqlite"
)

// DB wraps a SQLite database connection.
type DB struct {
	sql *sql.DB
}

// DefaultPath returns the database location when none is configured.
// Prefer working directory so the DB is stable across go run / go build;
// fall back to executable directory for deployed builds.
func DefaultPath() string {
	if wd, err := os.Getwd(); err == nil {
		return filepath.Join(wd, "pantry.db")
	}
	exe, _ := os.Executable()
	return filepath.Join(filepath.Dir(exe), "pantry.db")
}

// Open opens (or creates) the SQLite database at path and runs migrations.
func Open(path string) (*DB, error) {
	if path == "" {
		path = DefaultPath()
	}
	sqlDB, err := sql.Open("sqlite", path+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)")
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	if err := sqlDB.Ping(); err != nil {
		return nil, fmt.Errorf("ping db: %w", err)
	}
	d := &DB{sql: sqlDB}
	if err := d.migrate(); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("migrate db: %w", err)
	}
	log.Info().Str("path", path).Msg("database opened")
	return d, nil
}

// Close closes the database connection.
func (d *DB) Close() error {
	return d.sql.Close()
}

func (d *DB) migrate() error {
	version := 0
	// Try to read current version
	d.sql.QueryRow("SELECT version FROM schema_version ORDER BY version DESC LIMIT 1").Scan(&version)

	if version < 1 {
		_, err := d.sql.Exec(`
			CREATE TABLE IF NOT EXISTS schema_version (version INTEGER PRIMARY KEY);

			CREATE TABLE IF NOT EXISTS product_categories (
				category_id TEXT PRIMARY KEY,
				name        TEXT NOT NULL
			);

			CREATE TABLE IF NOT EXISTS products (
				product_id  TEXT PRIMARY KEY,
				name        TEXT NOT NULL,
				category_id TEXT REFERENCES product_categories(category_id)
			);

			CREATE TABLE IF NOT EXISTS inventory (
				user_id             TEXT NOT NULL,
				product_id          TEXT NOT NULL,
				displayed_name      TEXT,
				estimated_days_left REAL,
				state               TEXT NOT NULL DEFAULT 'UNKNOWN',
				confidence          REAL NOT NULL DEFAULT 0,
				source              TEXT NOT NULL DEFAULT 'SYSTEM',
				updated_at          TEXT NOT NULL,
				PRIMARY KEY (user_id, product_id)
			);

			CREATE TABLE IF NOT EXISTS inventory_log (
				log_id                TEXT PRIMARY KEY,
				user_id               TEXT NOT NULL,
				product_id            TEXT NOT NULL,
				action                TEXT NOT NULL,
				delta_state           TEXT,
				action_confidence     REAL NOT NULL DEFAULT 1,
				occurred_at           TEXT NOT NULL,
				source                TEXT NOT NULL DEFAULT 'MANUAL',
				note                  TEXT,
				receipt_item_id       TEXT,
				shopping_list_item_id TEXT,
				created_at            TEXT NOT NULL
			);
			CREATE INDEX IF NOT EXISTS idx_log_user_product ON inventory_log(user_id, product_id, occurred_at);

			INSERT OR IGNORE INTO schema_version (version) VALUES (1);
		`)
		if err != nil {
			return fmt.Errorf("migration v1: %w", err)
		}
		log.Debug().Msg("applied migration v1")
	}

	if version < 2 {
		_, err := d.sql.Exec(`
			CREATE TABLE IF NOT EXISTS predictor_profiles (
				profile_id  TEXT PRIMARY KEY,
				user_id     TEXT NOT NULL,
				method      TEXT NOT NULL DEFAULT 'cycle_ema',
				config_json TEXT NOT NULL DEFAULT '{}',
				is_active   INTEGER NOT NULL DEFAULT 1,
				created_at  TEXT NOT NULL
			);
			CREATE INDEX IF NOT EXISTS idx_profiles_user ON predictor_profiles(user_id, is_active);

			CREATE TABLE IF NOT EXISTS product_predictor_state (
				user_id     TEXT NOT NULL,
				product_id  TEXT NOT NULL,
				profile_id  TEXT NOT NULL,
				params_json TEXT NOT NULL DEFAULT '{}',
				confidence  REAL NOT NULL DEFAULT 0,
				updated_at  TEXT NOT NULL,
				PRIMARY KEY (user_id, product_id)
			);

			CREATE TABLE IF NOT EXISTS inventory_forecasts (
				id                 INTEGER PRIMARY KEY AUTOINCREMENT,
				user_id            TEXT NOT NULL,
				product_id         TEXT NOT NULL,
				expected_days_left REAL NOT NULL,
				predicted_state    TEXT NOT NULL,
				confidence         REAL NOT NULL,
				generated_at       TEXT NOT NULL,
				trigger_log_id     TEXT
			);
			CREATE INDEX IF NOT EXISTS idx_forecasts_product ON inventory_forecasts(user_id, product_id, generated_at);

			INSERT OR IGNORE INTO schema_version (version) VALUES (2);
		`)
		if err != nil {
			return fmt.Errorf("migration v2: %w", err)
		}
		log.Debug().Msg("applied migration v2 (predictor state)")
	}

	if version < 3 {
		_, err := d.sql.Exec(`
			CREATE TABLE IF NOT EXISTS habits (
				habit_id     TEXT PRIMARY KEY,
				user_id      TEXT NOT NULL,
				name         TEXT NOT NULL,
				status       TEXT NOT NULL DEFAULT 'ACTIVE',
				effects_json TEXT NOT NULL DEFAULT '{}',
				starts_at    TEXT,
				ends_at      TEXT,
				created_at   TEXT NOT NULL
			);
			CREATE INDEX IF NOT EXISTS idx_habits_user ON habits(user_id, status);

			INSERT OR IGNORE INTO schema_version (version) VALUES (3);
		`)
		if err != nil {
			return fmt.Errorf("migration v3: %w", err)
		}
		log.Debug().Msg("applied migration v3 (habits)")
	}

	return nil
}

// SqlDB returns the underlying *sql.DB for use in tests.
func (d *DB) SqlDB() *sql.DB {
	return d.sql
}
