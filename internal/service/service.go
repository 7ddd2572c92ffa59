// Package service wires the cycle predictor core to storage: it dispatches
// inventory log events, refreshes forecasts, resolves habit multipliers and
// runs the two daily background jobs.
package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/singleflight"

	"smart-pantry/internal/config"
	"smart-pantry/internal/predictor"
)

// Service coordinates predictor state around a Repository.
type Service struct {
	repo  Repository
	clock Clock

	// Active profiles (and with them the category priors) change rarely;
	// cache them per user and coalesce concurrent lazy creation.
	profileMu    sync.RWMutex
	profiles     map[string]cachedProfile
	profileGroup singleflight.Group
}

type cachedProfile struct {
	profileID string
	cfg       *config.Config
}

// New builds a Service over the given repository using the system clock.
func New(repo Repository) *Service {
	return NewWithClock(repo, SystemClock())
}

// NewWithClock builds a Service with an injected clock (tests, replay).
func NewWithClock(repo Repository, clock Clock) *Service {
	return &Service{
		repo:     repo,
		clock:    clock,
		profiles: make(map[string]cachedProfile),
	}
}

// loadProfile returns the user's active profile id and parsed config,
// caching process-wide. Priors only matter for cold-start initialization, so
// no invalidation is needed.
func (s *Service) loadProfile(ctx context.Context, userID string) (string, *config.Config, error) {
	s.profileMu.RLock()
	if cp, ok := s.profiles[userID]; ok {
		s.profileMu.RUnlock()
		return cp.profileID, cp.cfg, nil
	}
	s.profileMu.RUnlock()

	v, err, _ := s.profileGroup.Do(userID, func() (any, error) {
		prof, err := s.repo.GetActiveProfile(ctx, userID)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrNoActiveProfile, err)
		}
		cp := cachedProfile{profileID: prof.ProfileID, cfg: config.FromJSON(prof.ConfigJSON)}
		s.profileMu.Lock()
		s.profiles[userID] = cp
		s.profileMu.Unlock()
		return cp, nil
	})
	if err != nil {
		return "", nil, err
	}
	cp := v.(cachedProfile)
	return cp.profileID, cp.cfg, nil
}

// loadOrInitState loads the persisted predictor state for a product or seeds
// a fresh one from the category prior. Malformed persisted params degrade to
// the prior with a warning rather than failing the caller.
func (s *Service) loadOrInitState(ctx context.Context, userID, productID, categoryID string, cfg *config.Config, now time.Time) (*predictor.State, error) {
	row, err := s.repo.GetPredictorState(ctx, userID, productID)
	if err != nil {
		return nil, fmt.Errorf("load predictor state: %w", err)
	}
	if row == nil {
		return predictor.InitFromCategory(categoryID, cfg, now), nil
	}

	st := predictor.FromParams(row.ParamsJSON, now)
	if st.CycleMeanDays <= 0 {
		log.Warn().Str("user_id", userID).Str("product_id", productID).
			Msg("malformed predictor params, reinitializing from category prior")
		st = predictor.InitFromCategory(categoryID, cfg, now)
	}
	if st.CategoryID == "" && categoryID != "" {
		st.CategoryID = categoryID
	}
	return st, nil
}

// persistForecast writes the three rows every prediction path produces:
// predictor state, the inventory estimate and a forecast snapshot.
func (s *Service) persistForecast(ctx context.Context, userID, productID, profileID string, st *predictor.State, fc predictor.Forecast, triggerLogID string) error {
	now := fc.GeneratedAt
	if err := s.repo.UpsertPredictorState(ctx, userID, productID, profileID, st.ToParams(), fc.Confidence, now); err != nil {
		return fmt.Errorf("upsert predictor state: %w", err)
	}
	if err := s.repo.UpsertInventoryDaysEstimate(ctx, InventoryEstimate{
		UserID:     userID,
		ProductID:  productID,
		DaysLeft:   fc.ExpectedDaysLeft,
		State:      fc.PredictedState,
		Confidence: fc.Confidence,
		Source:     predictor.SourceSystem,
	}); err != nil {
		return fmt.Errorf("upsert inventory estimate: %w", err)
	}
	if err := s.repo.InsertForecast(ctx, userID, productID, fc, triggerLogID); err != nil {
		return fmt.Errorf("insert forecast: %w", err)
	}
	return nil
}

// categoryFor resolves the category of one product from the user's inventory.
func (s *Service) categoryFor(ctx context.Context, userID, productID string) (string, error) {
	items, err := s.repo.GetUserInventoryProducts(ctx, userID)
	if err != nil {
		return "", err
	}
	for _, it := range items {
		if it.ProductID == productID {
			return it.CategoryID, nil
		}
	}
	return "", nil
}
