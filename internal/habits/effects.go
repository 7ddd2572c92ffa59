// Package habits models habit effects and their consumption multipliers.
package habits

import (
	"encoding/json"
	"math"
)

const multiplierFloor = 1e-6

// Effects is the decoded effects payload of one habit. All fields are
// optional; a missing field contributes 1.0.
type Effects struct {
	GlobalMultiplier    *float64           `json:"global_multiplier,omitempty"`
	ProductMultipliers  map[string]float64 `json:"product_multipliers,omitempty"`
	CategoryMultipliers map[string]float64 `json:"category_multipliers,omitempty"`
}

// DecodeEffects parses a stored effects JSON blob. Malformed payloads decode
// to the identity (no effect).
func DecodeEffects(raw []byte) Effects {
	var e Effects
	if len(raw) == 0 {
		return Effects{}
	}
	if err := json.Unmarshal(raw, &e); err != nil {
		return Effects{}
	}
	return e
}

// IsZero reports whether the effects carry no multiplier at all.
func (e Effects) IsZero() bool {
	return e.GlobalMultiplier == nil && len(e.ProductMultipliers) == 0 && len(e.CategoryMultipliers) == 0
}

// Multiplier returns this habit's contribution for one (product, category):
// global x product x category, floored at 1e-6.
func (e Effects) Multiplier(productID, categoryID string) float64 {
	mult := 1.0
	if e.GlobalMultiplier != nil {
		mult *= *e.GlobalMultiplier
	}
	if v, ok := e.ProductMultipliers[productID]; ok {
		mult *= v
	}
	if categoryID != "" {
		if v, ok := e.CategoryMultipliers[categoryID]; ok {
			mult *= v
		}
	}
	return math.Max(mult, multiplierFloor)
}

// Combine multiplies the contributions of every active habit for one
// (product, category) pair, floored at 1e-6. An empty list yields exactly 1.0.
func Combine(effects []Effects, productID, categoryID string) float64 {
	mult := 1.0
	for _, e := range effects {
		mult *= e.Multiplier(productID, categoryID)
	}
	return math.Max(mult, multiplierFloor)
}

// AffectsAllProducts reports whether the effects reach every inventory
// product (a global multiplier is present).
func (e Effects) AffectsAllProducts() bool {
	return e.GlobalMultiplier != nil
}
