package util

import "math"

// RoundCents normalizes a currency amount to two decimal places. Every
// financial sum in the engine passes through this so comparisons hold to
// the cent.
func RoundCents(v float64) float64 {
	return math.Round(v*100) / 100
}
