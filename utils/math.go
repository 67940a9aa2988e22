package utils

import "math"

// ClampInt limits v to [lo, hi].
func ClampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// ClampF64 limits v to [lo, hi].
func ClampF64(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}

// RoundTo rounds v to the given number of decimal places, halves away from zero.
func RoundTo(v float64, places int) float64 {
	scale := math.Pow(10, float64(places))
	rounded := math.Round(v*scale) / scale
	if rounded == 0 {
		// drop negative zero
		return 0
	}
	return rounded
}
