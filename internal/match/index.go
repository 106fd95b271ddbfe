package match

import (
	"math"
	"sync"

	"github.com/coder/hnsw"

	"faceclock/internal/embedding"
	"faceclock/internal/store"
)

// HNSW graph parameters for face embeddings. Enrollment sets are small
// compared to photo libraries, so recall matters more than build time.
const (
	hnswMaxNeighbors = 16
	hnswSearchK      = 4
)

// Index answers nearest-enrollment queries through an in-memory HNSW
// graph. It honors the same accept/reject contract as Match and exists
// for deployments with enrollment counts where a linear scan per
// request stops being cheap.
type Index struct {
	mu      sync.RWMutex
	graph   *hnsw.Graph[string]
	entries map[string]store.Enrollment
	dims    int
}

// NewIndex creates an empty index.
func NewIndex() *Index {
	return &Index{entries: make(map[string]store.Enrollment)}
}

func newGraph() *hnsw.Graph[string] {
	g := hnsw.NewGraph[string]()
	g.M = hnswMaxNeighbors
	g.Ml = 1.0 / float64(hnswMaxNeighbors)
	g.Distance = hnsw.EuclideanDistance
	return g
}

// Build replaces the index contents with the given enrollments.
func (ix *Index) Build(enrollments []store.Enrollment) {
	ix.mu.Lock()
	defer ix.mu.Unlock()

	ix.graph = newGraph()
	ix.entries = make(map[string]store.Enrollment, len(enrollments))
	ix.dims = 0
	for _, e := range enrollments {
		if len(e.Embedding) == 0 {
			continue
		}
		if ix.dims == 0 {
			ix.dims = len(e.Embedding)
		}
		// The graph panics on mixed dimensions. An enrollment stored
		// under a different extractor model cannot be indexed.
		if len(e.Embedding) != ix.dims {
			continue
		}
		ix.graph.Add(hnsw.MakeNode(e.IdentityID, e.Embedding))
		ix.entries[e.IdentityID] = e
	}
}

// Add inserts or replaces one enrollment. Called after registration.
// An embedding whose dimension differs from the indexed ones is
// rejected with ErrDimensionMismatch.
func (ix *Index) Add(e store.Enrollment) error {
	if len(e.Embedding) == 0 {
		return nil
	}
	ix.mu.Lock()
	defer ix.mu.Unlock()

	if ix.graph == nil {
		ix.graph = newGraph()
	}
	if ix.dims == 0 {
		ix.dims = len(e.Embedding)
	}
	if len(e.Embedding) != ix.dims {
		return embedding.ErrDimensionMismatch
	}
	ix.graph.Add(hnsw.MakeNode(e.IdentityID, e.Embedding))
	ix.entries[e.IdentityID] = e
	return nil
}

// Len returns the number of indexed enrollments.
func (ix *Index) Len() int {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	return len(ix.entries)
}

// Match finds the nearest indexed enrollment to the probe and accepts
// it iff the exact Euclidean distance is within threshold.
func (ix *Index) Match(probe []float32, threshold float64) (Result, error) {
	ix.mu.RLock()
	defer ix.mu.RUnlock()

	res := Result{Distance: math.Inf(1)}
	if ix.graph == nil || len(ix.entries) == 0 {
		return res, nil
	}
	// Checked here because the graph panics on mismatched dimensions.
	if len(probe) != ix.dims {
		return Result{}, embedding.ErrDimensionMismatch
	}

	neighbors := ix.graph.Search(probe, hnswSearchK)
	for _, n := range neighbors {
		e, ok := ix.entries[n.Key]
		if !ok {
			continue
		}
		// Recompute exactly; graph distances are approximate float32.
		d := embedding.EuclideanDistance(probe, n.Value)
		if d < res.Distance {
			res.Distance = d
			res.IdentityID = e.IdentityID
			res.DisplayName = e.DisplayName
		}
	}

	if res.Distance <= threshold && res.IdentityID != "" {
		res.Accepted = true
	} else {
		res.IdentityID = ""
		res.DisplayName = ""
		res.Accepted = false
	}
	return res, nil
}
