package config

import (
	"encoding/json"
	"strings"
)

// CategoryPrior seeds a cold-start cycle estimate for a product category.
type CategoryPrior struct {
	MeanDays float64 `json:"mean_days"`
	MADDays  float64 `json:"mad_days"`
}

// Config holds the tunables of one predictor profile. It persists as JSON in
// the profile row; FromJSON tolerates missing and unknown keys.
type Config struct {
	// category_id -> prior; FallbackPrior applies when the id is absent.
	CategoryPriors map[string]CategoryPrior `json:"category_priors"`

	// EMA weights.
	AlphaStrong  float64 `json:"alpha_strong"`
	AlphaWeak    float64 `json:"alpha_weak"`
	AlphaConfirm float64 `json:"alpha_confirm"`

	// Cycle length bounds in days.
	MinCycleDays float64 `json:"min_cycle_days"`
	MaxCycleDays float64 `json:"max_cycle_days"`

	// MORE/LESS correction shaping.
	MoreLessRatio       float64 `json:"more_less_ratio"`
	MoreLessStepCapDays float64 `json:"more_less_step_cap_days"`

	// Coarse-state thresholds by days_left / cycle_mean_days.
	FullRatio   float64 `json:"full_ratio"`
	MediumRatio float64 `json:"medium_ratio"`

	// Confidence recency decay constant.
	RecencyTauDays float64 `json:"recency_tau_days"`
}

// Default returns a Config with the stock tunables and no category priors.
func Default() *Config {
	return &Config{
		CategoryPriors:      map[string]CategoryPrior{},
		AlphaStrong:         0.12,
		AlphaWeak:           0.10,
		AlphaConfirm:        0.05,
		MinCycleDays:        1.0,
		MaxCycleDays:        90.0,
		MoreLessRatio:       0.15,
		MoreLessStepCapDays: 3.0,
		FullRatio:           0.70,
		MediumRatio:         0.30,
		RecencyTauDays:      21.0,
	}
}

// FallbackPrior is used when a category has no configured prior.
func FallbackPrior() CategoryPrior {
	return CategoryPrior{MeanDays: 7.0, MADDays: 2.0}
}

// Prior resolves the prior for categoryID, falling back when unknown or empty.
func (c *Config) Prior(categoryID string) CategoryPrior {
	if categoryID != "" {
		if p, ok := c.CategoryPriors[categoryID]; ok {
			return p
		}
	}
	return FallbackPrior()
}

// FromJSON decodes a profile config payload. Missing keys keep their
// defaults, unknown keys are ignored, and numeric values are coerced to
// float where the payload stores them as strings.
func FromJSON(raw []byte) *Config {
	cfg := Default()
	if len(raw) == 0 {
		return cfg
	}

	var m map[string]json.RawMessage
	if err := json.Unmarshal(raw, &m); err != nil {
		return cfg
	}

	if pr, ok := m["category_priors"]; ok {
		var priors map[string]map[string]json.RawMessage
		if err := json.Unmarshal(pr, &priors); err == nil {
			for id, fields := range priors {
				p := FallbackPrior()
				if v, ok := coerceFloat(fields["mean_days"]); ok {
					p.MeanDays = v
				}
				if v, ok := coerceFloat(fields["mad_days"]); ok {
					p.MADDays = v
				}
				cfg.CategoryPriors[id] = p
			}
		}
	}

	setFloat := func(key string, dst *float64) {
		if raw, ok := m[key]; ok {
			if v, ok := coerceFloat(raw); ok {
				*dst = v
			}
		}
	}
	setFloat("alpha_strong", &cfg.AlphaStrong)
	setFloat("alpha_weak", &cfg.AlphaWeak)
	setFloat("alpha_confirm", &cfg.AlphaConfirm)
	setFloat("min_cycle_days", &cfg.MinCycleDays)
	setFloat("max_cycle_days", &cfg.MaxCycleDays)
	setFloat("more_less_ratio", &cfg.MoreLessRatio)
	setFloat("more_less_step_cap_days", &cfg.MoreLessStepCapDays)
	setFloat("full_ratio", &cfg.FullRatio)
	setFloat("medium_ratio", &cfg.MediumRatio)
	setFloat("recency_tau_days", &cfg.RecencyTauDays)

	return cfg
}

// ToJSON serializes the config for storage in a profile row.
func (c *Config) ToJSON() []byte {
	b, err := json.Marshal(c)
	if err != nil {
		return []byte("{}")
	}
	return b
}

func coerceFloat(raw json.RawMessage) (float64, bool) {
	if len(raw) == 0 {
		return 0, false
	}
	var f float64
	if err := json.Unmarshal(raw, &f); err == nil {
		return f, true
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		s = strings.TrimSpace(s)
		if s != "" {
			var f2 float64
			if err := json.Unmarshal([]byte(s), &f2); err == nil {
				return f2, true
			}
		}
	}
	return 0, false
}

// DefaultPriorsByName maps well-known category names to priors. Used when a
// default profile is created for a user: categories present in the store are
// matched by name (case-insensitive) and keyed by their id.
func DefaultPriorsByName() map[string]CategoryPrior {
	return map[string]CategoryPrior{
		"Dairy & Eggs":        {MeanDays: 5.0, MADDays: 2.0},
		"Bread & Bakery":      {MeanDays: 4.0, MADDays: 1.5},
		"Meat & Poultry":      {MeanDays: 4.0, MADDays: 2.0},
		"Fish & Seafood":      {MeanDays: 3.0, MADDays: 1.5},
		"Fruits":              {MeanDays: 6.0, MADDays: 2.5},
		"Vegetables":          {MeanDays: 5.0, MADDays: 2.0},
		"Grains & Pasta":      {MeanDays: 35.0, MADDays: 10.0},
		"Canned & Jarred":     {MeanDays: 75.0, MADDays: 15.0},
		"Condiments & Sauces": {MeanDays: 45.0, MADDays: 15.0},
		"Snacks":              {MeanDays: 10.0, MADDays: 5.0},
		"Beverages":           {MeanDays: 7.0, MADDays: 3.0},
		"Frozen Foods":        {MeanDays: 45.0, MADDays: 15.0},
		"Spices & Seasonings": {MeanDays: 75.0, MADDays: 20.0},
	}
}

// PriorForCategoryName resolves a named default prior case-insensitively.
func PriorForCategoryName(name string) CategoryPrior {
	for n, p := range DefaultPriorsByName() {
		if strings.EqualFold(n, name) {
			return p
		}
	}
	return FallbackPrior()
}
