package calculator

import (
	"math"

	"gonum.org/v1/gonum/floats"
)

// Finite returns x, or 0 when x is NaN or infinite.
func Finite(x float64) float64 {
	if math.IsNaN(x) || math.IsInf(x, 0) {
		return 0
	}
	return x
}

// SafeDivide divides num by den and returns 0 instead of NaN or Inf.
// A non-positive denominator yields 0.
func SafeDivide(num, den float64) float64 {
	if math.IsNaN(den) || den <= 0 {
		return 0
	}
	return Finite(num / den)
}

// SafeSum adds the finite values of xs. Non-finite terms count as 0 and a
// non-finite total collapses to 0.
func SafeSum(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	guarded := make([]float64, len(xs))
	for i, x := range xs {
		guarded[i] = Finite(x)
	}
	return Finite(floats.Sum(guarded))
}

// ValidFactor reports whether countPerGram is a finite positive number
func ValidFactor(countPerGram float64) bool {
	return !math.IsNaN(countPerGram) && !math.IsInf(countPerGram, 0) && countPerGram > 0
}

// UnitWeight returns the weight in grams of a single stone given how many
// stones make up one gram.
func UnitWeight(countPerGram float64) float64 {
	return SafeDivide(1, countPerGram)
}
