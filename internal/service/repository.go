package service

import (
	"context"
	"errors"
	"time"

	"smart-pantry/internal/habits"
	"smart-pantry/internal/predictor"
)

var (
	// ErrLogRowNotFound means a dispatched log id does not exist.
	ErrLogRowNotFound = errors.New("inventory log row not found")
	// ErrNoActiveProfile means no predictor profile could be loaded or created.
	ErrNoActiveProfile = errors.New("no active predictor profile")
	// ErrInventoryRowNotFound means the (user, product) pair has no inventory row.
	ErrInventoryRowNotFound = errors.New("inventory row not found")
)

// Profile is the active predictor profile of a user.
type Profile struct {
	ProfileID  string
	UserID     string
	Method     string
	ConfigJSON []byte
}

// InventoryProduct pairs a product with its (possibly empty) category.
type InventoryProduct struct {
	ProductID  string
	CategoryID string
}

// PredictorStateRow is the persisted form of a product's predictor state.
type PredictorStateRow struct {
	ParamsJSON []byte
	Confidence float64
	UpdatedAt  time.Time
	ProfileID  string
}

// InventoryItem is the current user-visible inventory row.
type InventoryItem struct {
	State        predictor.InventoryState
	EstimatedQty *float64 // days; nil when never estimated
}

// InventoryEstimate is one write to the inventory row.
type InventoryEstimate struct {
	UserID        string
	ProductID     string
	DaysLeft      float64
	State         predictor.InventoryState
	Confidence    float64
	Source        predictor.InventorySource
	DisplayedName string // kept when empty
}

// Repository is the storage surface the predictor requires. The SQLite
// implementation lives in internal/db; tests substitute an in-memory fake.
// All methods are safe for concurrent use.
type Repository interface {
	ListUsers(ctx context.Context) ([]string, error)

	// GetActiveProfile returns the user's active profile, lazily creating a
	// default one (with system category priors) on first read.
	GetActiveProfile(ctx context.Context, userID string) (Profile, error)

	GetUserInventoryProducts(ctx context.Context, userID string) ([]InventoryProduct, error)

	// GetPredictorState returns nil (no error) when no state row exists yet.
	GetPredictorState(ctx context.Context, userID, productID string) (*PredictorStateRow, error)
	UpsertPredictorState(ctx context.Context, userID, productID, profileID string, params []byte, confidence float64, updatedAt time.Time) error

	UpsertInventoryDaysEstimate(ctx context.Context, est InventoryEstimate) error
	// GetInventoryItem returns nil (no error) when the row does not exist.
	GetInventoryItem(ctx context.Context, userID, productID string) (*InventoryItem, error)
	// GetCurrentInventoryState returns StateUnknown when the row is missing.
	GetCurrentInventoryState(ctx context.Context, userID, productID string) (predictor.InventoryState, error)

	InsertForecast(ctx context.Context, userID, productID string, f predictor.Forecast, triggerLogID string) error

	GetInventoryLogRow(ctx context.Context, logID string) (predictor.LogEntry, error)
	// LatestLogID returns "" (no error) when the product has no log rows.
	LatestLogID(ctx context.Context, userID, productID string) (string, error)
	// FirstLogOccurredAt returns nil when the product has no log rows.
	FirstLogOccurredAt(ctx context.Context, userID, productID string) (*time.Time, error)

	GetActiveHabitEffects(ctx context.Context, userID string, now time.Time) ([]habits.Effects, error)
}
