package match

import (
	"errors"
	"math"
	"testing"
	"time"

	"faceclock/internal/embedding"
	"faceclock/internal/store"
)

func testEnrollments() []store.Enrollment {
	now := time.Now()
	return []store.Enrollment{
		{IdentityID: "E1", DisplayName: "Alice", Embedding: []float32{0, 0, 0}, CreatedAt: now},
		{IdentityID: "E2", DisplayName: "Bob", Embedding: []float32{1, 0, 0}, CreatedAt: now},
		{IdentityID: "E3", DisplayName: "Carol", Embedding: []float32{0, 5, 0}, CreatedAt: now},
	}
}

func TestMatchExact(t *testing.T) {
	res, err := Match([]float32{1, 0, 0}, testEnrollments(), 0.5)
	if err != nil {
		t.Fatalf("Match failed: %v", err)
	}
	if !res.Accepted {
		t.Fatal("expected accepted match")
	}
	if res.IdentityID != "E2" || res.DisplayName != "Bob" {
		t.Errorf("matched %s/%s; want E2/Bob", res.IdentityID, res.DisplayName)
	}
	if res.Distance != 0 {
		t.Errorf("distance = %v; want 0", res.Distance)
	}
}

func TestMatchEmptyEnrollments(t *testing.T) {
	res, err := Match([]float32{1, 2, 3}, nil, 0.5)
	if err != nil {
		t.Fatalf("Match failed: %v", err)
	}
	if res.Accepted {
		t.Error("expected rejection with no enrollments")
	}
	if res.IdentityID != "" {
		t.Errorf("identity = %q; want empty", res.IdentityID)
	}
	if !math.IsInf(res.Distance, 1) {
		t.Errorf("distance = %v; want +Inf", res.Distance)
	}
}

func TestMatchThreshold(t *testing.T) {
	enrollments := testEnrollments()
	probe := []float32{0.3, 0, 0} // distance 0.3 from E1, 0.7 from E2

	tests := []struct {
		name      string
		threshold float64
		accepted  bool
	}{
		{"threshold below nearest", 0.2, false},
		{"threshold at nearest", 0.3, true},
		{"threshold above nearest", 0.5, true},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			res, err := Match(probe, enrollments, tc.threshold)
			if err != nil {
				t.Fatalf("Match failed: %v", err)
			}
			if res.Accepted != tc.accepted {
				t.Errorf("accepted = %v; want %v", res.Accepted, tc.accepted)
			}
			if tc.accepted && res.IdentityID != "E1" {
				t.Errorf("matched %s; want E1", res.IdentityID)
			}
		})
	}
}

// Raising the threshold must never flip an accepted probe to rejected
// and vice versa: acceptance is monotone in the threshold.
func TestMatchThresholdMonotonic(t *testing.T) {
	enrollments := testEnrollments()
	probe := []float32{0.25, 0.1, 0}

	prevAccepted := false
	for _, threshold := range []float64{0.0, 0.1, 0.2, 0.3, 0.5, 1.0, 10.0} {
		res, err := Match(probe, enrollments, threshold)
		if err != nil {
			t.Fatalf("Match failed at threshold %v: %v", threshold, err)
		}
		if prevAccepted && !res.Accepted {
			t.Fatalf("raising threshold to %v turned an accepted match into a rejection", threshold)
		}
		prevAccepted = res.Accepted
	}
}

func TestMatchTieBreakFirst(t *testing.T) {
	now := time.Now()
	enrollments := []store.Enrollment{
		{IdentityID: "E1", DisplayName: "Alice", Embedding: []float32{1, 0}, CreatedAt: now},
		{IdentityID: "E2", DisplayName: "Bob", Embedding: []float32{0, 1}, CreatedAt: now},
	}

	// Equidistant probe; the first enrollment encountered wins.
	res, err := Match([]float32{0, 0}, enrollments, 2)
	if err != nil {
		t.Fatalf("Match failed: %v", err)
	}
	if res.IdentityID != "E1" {
		t.Errorf("tie resolved to %s; want E1", res.IdentityID)
	}
}

func TestMatchDimensionMismatch(t *testing.T) {
	_, err := Match([]float32{1, 2}, testEnrollments(), 0.5)
	if !errors.Is(err, embedding.ErrDimensionMismatch) {
		t.Errorf("expected ErrDimensionMismatch, got %v", err)
	}
}
