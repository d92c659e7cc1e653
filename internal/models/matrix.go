package models

import "math"

// Matrix is the inference-facing numeric view of a frame.
// Missing values are represented as NaN.
type Matrix [][]float64

// Row returns row i as a single-row matrix.
func (m Matrix) Row(i int) Matrix {
	return Matrix{m[i]}
}

// Missing is the placeholder used for absent feature values.
func Missing() float64 {
	return math.NaN()
}
