package recognize

import (
	"context"
	"log"

	"faceclock/internal/match"
	"faceclock/internal/store"
)

// Matcher finds the enrolled identity for a probe embedding. Refresh
// keeps the matcher consistent after a registration upsert without a
// full reload.
type Matcher interface {
	Match(ctx context.Context, probe []float32) (match.Result, error)
	Refresh(e store.Enrollment)
}

// CacheMatcher scans the enrollment cache linearly. The default; exact
// and plenty fast for the enrollment counts a single office sees.
type CacheMatcher struct {
	Cache     *match.Cache
	Threshold float64
}

func (m *CacheMatcher) Match(ctx context.Context, probe []float32) (match.Result, error) {
	enrollments, err := m.Cache.Snapshot(ctx)
	if err != nil {
		return match.Result{}, err
	}
	return match.Match(probe, enrollments, m.Threshold)
}

func (m *CacheMatcher) Refresh(e store.Enrollment) { m.Cache.Put(e) }

// IndexMatcher queries an in-memory HNSW index. Same accept/reject
// contract as CacheMatcher, for large enrollment sets.
type IndexMatcher struct {
	Index     *match.Index
	Threshold float64
}

func (m *IndexMatcher) Match(ctx context.Context, probe []float32) (match.Result, error) {
	return m.Index.Match(probe, m.Threshold)
}

func (m *IndexMatcher) Refresh(e store.Enrollment) {
	// The enrollment is already persisted; an unindexable embedding
	// means the extractor model changed and the index needs a rebuild.
	if err := m.Index.Add(e); err != nil {
		log.Printf("index refresh for %s failed: %v", e.IdentityID, err)
	}
}

// StoreMatcher pushes the nearest-neighbor query down to a backend
// that supports it (pgvector). No local state, so Refresh is a no-op.
type StoreMatcher struct {
	Searcher  store.NearestSearcher
	Threshold float64
}

func (m *StoreMatcher) Match(ctx context.Context, probe []float32) (match.Result, error) {
	nearest, distance, err := m.Searcher.FindNearest(ctx, probe)
	if err != nil {
		return match.Result{}, err
	}

	res := match.Result{Distance: distance}
	if nearest != nil && distance <= m.Threshold {
		res.IdentityID = nearest.IdentityID
		res.DisplayName = nearest.DisplayName
		res.Accepted = true
	}
	return res, nil
}

func (m *StoreMatcher) Refresh(e store.Enrollment) {}
