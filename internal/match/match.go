// Package match decides which enrolled identity, if any, a probe
// embedding belongs to. The decision is nearest-neighbor by Euclidean
// distance with an accept threshold; a rejection is a normal outcome,
// not an error.
package match

import (
	"math"

	"faceclock/internal/embedding"
	"faceclock/internal/store"
)

// Result is the outcome of matching one probe against the enrollments.
// IdentityID is empty when Accepted is false and no enrollment was
// close enough (or none exist).
type Result struct {
	IdentityID  string
	DisplayName string
	Distance    float64
	Accepted    bool
}

// Match compares the probe against every enrollment and accepts the
// nearest one iff its distance is within threshold. Ties on the exact
// minimum resolve to the first enrollment encountered, so results are
// deterministic for a given input ordering.
func Match(probe []float32, enrollments []store.Enrollment, threshold float64) (Result, error) {
	res := Result{Distance: math.Inf(1)}
	if len(enrollments) == 0 {
		return res, nil
	}

	best := -1
	for i := range enrollments {
		e := &enrollments[i]
		if len(e.Embedding) != len(probe) {
			return Result{}, embedding.ErrDimensionMismatch
		}
		d := embedding.EuclideanDistance(probe, e.Embedding)
		if d < res.Distance {
			res.Distance = d
			best = i
		}
	}

	if best >= 0 && res.Distance <= threshold {
		res.IdentityID = enrollments[best].IdentityID
		res.DisplayName = enrollments[best].DisplayName
		res.Accepted = true
	}
	return res, nil
}
