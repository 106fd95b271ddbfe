// Package embedding provides vector math for face embeddings.
// All embeddings compared against each other must share the same
// dimensionality; mixing dimensions indicates a model mismatch and is
// reported as ErrDimensionMismatch.
package embedding

import (
	"errors"
	"math"
)

// ErrDimensionMismatch is returned when embeddings of different
// dimensionality are combined or compared. This should never happen in
// steady state and usually means the extractor model changed.
var ErrDimensionMismatch = errors.New("embedding dimension mismatch")

// EuclideanDistance computes the L2 distance between two vectors of
// equal length. Callers are expected to validate dimensions first.
func EuclideanDistance(a, b []float32) float64 {
	var sum float64
	for i := range a {
		d := float64(a[i]) - float64(b[i])
		sum += d * d
	}
	return math.Sqrt(sum)
}

// Mean returns the element-wise arithmetic mean of the given sample
// vectors. The result lives in the same metric space as the inputs; it
// is deliberately not renormalized so distances against raw embeddings
// stay valid.
func Mean(samples [][]float32) ([]float32, error) {
	if len(samples) == 0 {
		return nil, errors.New("no embedding samples")
	}

	dim := len(samples[0])
	if dim == 0 {
		return nil, errors.New("empty embedding sample")
	}

	sums := make([]float64, dim)
	for _, s := range samples {
		if len(s) != dim {
			return nil, ErrDimensionMismatch
		}
		for i, v := range s {
			sums[i] += float64(v)
		}
	}

	mean := make([]float32, dim)
	n := float64(len(samples))
	for i, v := range sums {
		mean[i] = float32(v / n)
	}
	return mean, nil
}
