package errors

import (
	"math"
)

// CheckNumericalStability checks if values contain NaN or Inf
// and returns an error naming the column if numerical instability is detected.
func CheckNumericalStability(operation, column string, values []float64) error {
	for _, v := range values {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return NewNumericalInstabilityError(operation, column, values)
		}
	}
	return nil
}

// CheckScalar checks a single scalar value for numerical instability.
func CheckScalar(operation, column string, value float64) error {
	if math.IsNaN(value) || math.IsInf(value, 0) {
		return NewNumericalInstabilityError(operation, column, []float64{value})
	}
	return nil
}

// CheckMatrixColumns checks the given columns of a matrix for NaN or Inf.
// Only the listed column indices are inspected, since passthrough blocks
// may legitimately carry NaN for missing cells.
func CheckMatrixColumns(operation string, matrix interface{ At(int, int) float64 }, rows int, cols []int, names []string) error {
	for _, j := range cols {
		var unstable []float64
		for i := 0; i < rows; i++ {
			v := matrix.At(i, j)
			if math.IsNaN(v) || math.IsInf(v, 0) {
				unstable = append(unstable, v)
				if len(unstable) >= 10 {
					break
				}
			}
		}
		if len(unstable) > 0 {
			name := ""
			if j < len(names) {
				name = names[j]
			}
			return NewNumericalInstabilityError(operation, name, unstable)
		}
	}
	return nil
}

// SafeDivide performs division with protection against division by zero.
// Returns 0 if denominator is exactly zero.
func SafeDivide(numerator, denominator float64) float64 {
	if denominator == 0 {
		return 0
	}
	return numerator / denominator
}
