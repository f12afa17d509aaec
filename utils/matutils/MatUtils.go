// Package matutils implements utility function for working with mat.Matrix
// structs
package matutils

import (
	"fmt"

	"gonum.org/v1/gonum/mat"
)

// Format formats a matrix for printing
func Format(X mat.Matrix) string {
	fa := mat.Formatted(X, mat.Prefix(""), mat.Squeeze())
	return fmt.Sprintf("%v", fa)
}

// MaxVec finds and returns the index of the maximum value in a vector.
// If multiple equal max values exist, only the first one is returned.
func MaxVec(values mat.Vector) int {
	max, idx := values.AtVec(0), 0

	for i := 1; i < values.Len(); i++ {
		if values.AtVec(i) > max {
			max = values.AtVec(i)
			idx = i
		}
	}
	return idx
}

// VecMin returns the smallest element of a vector
func VecMin(a mat.Vector) float64 {
	min := a.AtVec(0)
	for i := 1; i < a.Len(); i++ {
		if a.AtVec(i) < min {
			min = a.AtVec(i)
		}
	}
	return min
}

// SumAt returns the sum of the elements of a at the given indices.
// Repeated indices are added once for each time they appear.
func SumAt(a mat.Vector, indices []int) float64 {
	sum := 0.0
	for _, i := range indices {
		sum += a.AtVec(i)
	}
	return sum
}
