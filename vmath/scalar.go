package vmath

import (
	"math"
)

func Clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

func Clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func Lerp(a, b, t float64) float64 {
	return a + (b-a)*t
}

// Wrap01 maps v into [0,1), preserving the fractional position for
// negative inputs. Phase arithmetic leans on this.
func Wrap01(v float64) float64 {
	f := v - math.Floor(v)
	if f >= 1 { // guards against float rounding at exact integers
		return 0
	}
	return f
}
