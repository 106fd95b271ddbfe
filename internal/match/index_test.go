package match

import (
	"errors"
	"testing"

	"faceclock/internal/embedding"
	"faceclock/internal/store"
)

func TestIndexMatchAgainstLinear(t *testing.T) {
	enrollments := []store.Enrollment{
		{IdentityID: "E1", DisplayName: "Alice", Embedding: []float32{0, 0, 0, 0}},
		{IdentityID: "E2", DisplayName: "Bob", Embedding: []float32{10, 0, 0, 0}},
		{IdentityID: "E3", DisplayName: "Carol", Embedding: []float32{0, 10, 0, 0}},
		{IdentityID: "E4", DisplayName: "Dan", Embedding: []float32{0, 0, 10, 0}},
	}

	ix := NewIndex()
	ix.Build(enrollments)
	if ix.Len() != 4 {
		t.Fatalf("index has %d entries; want 4", ix.Len())
	}

	probes := [][]float32{
		{0.1, 0.1, 0, 0},
		{9.8, 0.2, 0, 0},
		{0, 9.9, 0.1, 0},
		{5, 5, 5, 5}, // far from everything
	}

	for _, probe := range probes {
		linear, err := Match(probe, enrollments, 0.5)
		if err != nil {
			t.Fatalf("Match failed: %v", err)
		}
		indexed, err := ix.Match(probe, 0.5)
		if err != nil {
			t.Fatalf("Index.Match failed: %v", err)
		}
		if linear.Accepted != indexed.Accepted || linear.IdentityID != indexed.IdentityID {
			t.Errorf("probe %v: index (%v, %s) disagrees with linear scan (%v, %s)",
				probe, indexed.Accepted, indexed.IdentityID, linear.Accepted, linear.IdentityID)
		}
	}
}

func TestIndexMatchEmpty(t *testing.T) {
	ix := NewIndex()
	res, err := ix.Match([]float32{1, 2, 3}, 0.5)
	if err != nil {
		t.Fatalf("Index.Match failed: %v", err)
	}
	if res.Accepted {
		t.Error("expected rejection from empty index")
	}
}

func TestIndexAddReplaces(t *testing.T) {
	ix := NewIndex()
	if err := ix.Add(store.Enrollment{IdentityID: "E1", DisplayName: "Alice", Embedding: []float32{0, 0}}); err != nil {
		t.Fatalf("Add failed: %v", err)
	}
	if err := ix.Add(store.Enrollment{IdentityID: "E1", DisplayName: "Alice", Embedding: []float32{5, 5}}); err != nil {
		t.Fatalf("Add failed: %v", err)
	}

	if ix.Len() != 1 {
		t.Fatalf("index has %d entries after re-registration; want 1", ix.Len())
	}

	res, err := ix.Match([]float32{5, 5}, 0.5)
	if err != nil {
		t.Fatalf("Index.Match failed: %v", err)
	}
	if !res.Accepted || res.IdentityID != "E1" {
		t.Errorf("expected E1 accepted at its new embedding, got (%v, %s)", res.Accepted, res.IdentityID)
	}
}

func TestIndexMatchWrongDimension(t *testing.T) {
	ix := NewIndex()
	ix.Build([]store.Enrollment{
		{IdentityID: "E1", DisplayName: "Alice", Embedding: []float32{1, 2, 3}},
	})

	_, err := ix.Match([]float32{1, 2}, 0.5)
	if !errors.Is(err, embedding.ErrDimensionMismatch) {
		t.Fatalf("expected ErrDimensionMismatch for short probe, got %v", err)
	}
}

func TestIndexAddWrongDimension(t *testing.T) {
	ix := NewIndex()
	if err := ix.Add(store.Enrollment{IdentityID: "E1", Embedding: []float32{1, 2, 3}}); err != nil {
		t.Fatalf("Add failed: %v", err)
	}

	err := ix.Add(store.Enrollment{IdentityID: "E2", Embedding: []float32{1, 2}})
	if !errors.Is(err, embedding.ErrDimensionMismatch) {
		t.Fatalf("expected ErrDimensionMismatch for mismatched add, got %v", err)
	}
	if ix.Len() != 1 {
		t.Errorf("index has %d entries after rejected add; want 1", ix.Len())
	}
}

func TestIndexBuildSkipsMixedDimensions(t *testing.T) {
	ix := NewIndex()
	ix.Build([]store.Enrollment{
		{IdentityID: "E1", DisplayName: "Alice", Embedding: []float32{0, 0, 0}},
		{IdentityID: "E2", DisplayName: "Bob", Embedding: []float32{1, 1}},
		{IdentityID: "E3", DisplayName: "Carol", Embedding: []float32{9, 9, 9}},
	})

	if ix.Len() != 2 {
		t.Fatalf("index has %d entries; want 2 (mismatched enrollment skipped)", ix.Len())
	}
	res, err := ix.Match([]float32{0.1, 0, 0}, 0.5)
	if err != nil {
		t.Fatalf("Index.Match failed: %v", err)
	}
	if !res.Accepted || res.IdentityID != "E1" {
		t.Errorf("expected E1 accepted, got (%v, %s)", res.Accepted, res.IdentityID)
	}
}
