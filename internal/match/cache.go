package match

import (
	"context"
	"sort"
	"sync"

	"faceclock/internal/store"
)

// Cache is a reloadable read-through cache of enrollments. The first
// Snapshot loads everything from the store; registrations update only
// the affected entry via Put, so the matcher never works from stale
// whole-set reloads.
type Cache struct {
	mu      sync.RWMutex
	source  store.EnrollmentStore
	entries map[string]store.Enrollment
	loaded  bool
}

// NewCache creates a cache backed by the given enrollment store.
func NewCache(source store.EnrollmentStore) *Cache {
	return &Cache{
		source:  source,
		entries: make(map[string]store.Enrollment),
	}
}

// Snapshot returns all enrollments ordered by identity ID, loading from
// the store on first use.
func (c *Cache) Snapshot(ctx context.Context) ([]store.Enrollment, error) {
	c.mu.RLock()
	loaded := c.loaded
	c.mu.RUnlock()

	if !loaded {
		if err := c.Reload(ctx); err != nil {
			return nil, err
		}
	}

	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make([]store.Enrollment, 0, len(c.entries))
	for _, e := range c.entries {
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].IdentityID < out[j].IdentityID })
	return out, nil
}

// Put inserts or replaces a single cached enrollment. Called after a
// registration upsert succeeds. It does not mark the cache loaded:
// only Reload sees the store's full contents, and a Put before first
// use must not suppress that initial load.
func (c *Cache) Put(e store.Enrollment) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[e.IdentityID] = e
}

// Reload replaces the whole cache with the store's current contents.
func (c *Cache) Reload(ctx context.Context) error {
	all, err := c.source.GetAll(ctx)
	if err != nil {
		return err
	}

	entries := make(map[string]store.Enrollment, len(all))
	for _, e := range all {
		entries[e.IdentityID] = e
	}

	c.mu.Lock()
	c.entries = entries
	c.loaded = true
	c.mu.Unlock()
	return nil
}

// Len returns the number of cached enrollments.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}
