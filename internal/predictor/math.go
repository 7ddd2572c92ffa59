package predictor

import (
	"math"
	"time"
)

func clamp(x, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, x))
}

func maxf(a, b float64) float64 {
	return math.Max(a, b)
}

// daysBetween returns |a - b| in fractional days.
func daysBetween(a, b time.Time) float64 {
	return math.Abs(a.Sub(b).Seconds()) / 86400.0
}

// sigmoid is the numerically stable logistic.
func sigmoid(x float64) float64 {
	if x >= 0 {
		z := math.Exp(-x)
		return 1 / (1 + z)
	}
	z := math.Exp(x)
	return z / (1 + z)
}
