package habits

import (
	"math"
	"testing"
)

func f(v float64) *float64 { return &v }

func TestMultiplier_ComposesGlobalProductCategory(t *testing.T) {
	e := Effects{
		GlobalMultiplier:    f(2.0),
		ProductMultipliers:  map[string]float64{"p1": 1.5},
		CategoryMultipliers: map[string]float64{"c1": 0.5},
	}

	if got := e.Multiplier("p1", "c1"); math.Abs(got-1.5) > 1e-12 {
		t.Fatalf("multiplier = %v, want 2 * 1.5 * 0.5 = 1.5", got)
	}
	if got := e.Multiplier("p2", "c2"); got != 2.0 {
		t.Fatalf("global-only multiplier = %v, want 2.0", got)
	}
	if got := e.Multiplier("p1", ""); got != 3.0 {
		t.Fatalf("empty category multiplier = %v, want 3.0", got)
	}
}

func TestMultiplier_Floor(t *testing.T) {
	e := Effects{GlobalMultiplier: f(0)}
	if got := e.Multiplier("p", "c"); got != 1e-6 {
		t.Fatalf("multiplier = %v, want floor 1e-6", got)
	}
}

func TestCombine_EmptyIsIdentity(t *testing.T) {
	if got := Combine(nil, "p", "c"); got != 1.0 {
		t.Fatalf("Combine(nil) = %v, want exactly 1.0", got)
	}
}

func TestCombine_MultipliesAcrossHabits(t *testing.T) {
	effects := []Effects{
		{GlobalMultiplier: f(2.0)},
		{ProductMultipliers: map[string]float64{"p1": 0.5}},
		{CategoryMultipliers: map[string]float64{"c9": 4.0}},
	}
	if got := Combine(effects, "p1", "c1"); got != 1.0 {
		t.Fatalf("combined = %v, want 2 * 0.5 = 1.0", got)
	}
}

func TestDecodeEffects_MalformedIsZero(t *testing.T) {
	for _, raw := range [][]byte{nil, {}, []byte("oops")} {
		if e := DecodeEffects(raw); !e.IsZero() {
			t.Fatalf("raw %q decoded to %+v, want zero effects", raw, e)
		}
	}
	e := DecodeEffects([]byte(`{"global_multiplier": 1.4}`))
	if e.IsZero() || *e.GlobalMultiplier != 1.4 {
		t.Fatalf("decoded = %+v", e)
	}
}

func TestAffectsAllProducts(t *testing.T) {
	if (Effects{ProductMultipliers: map[string]float64{"p": 2}}).AffectsAllProducts() {
		t.Fatal("product-scoped effects must not affect all products")
	}
	if !(Effects{GlobalMultiplier: f(1.2)}).AffectsAllProducts() {
		t.Fatal("global effects must affect all products")
	}
}
