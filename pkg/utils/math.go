package utils

import "math"

// Expit is the logistic function 1 / (1 + e^-x). It is strictly increasing
// and maps every finite x into (0, 1).
func Expit(x float64) float64 {
	if x >= 0 {
		return 1 / (1 + math.Exp(-x))
	}
	// Rewritten for negative x so e^-x cannot overflow.
	z := math.Exp(x)
	return z / (1 + z)
}
