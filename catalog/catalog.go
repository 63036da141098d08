package catalog

import (
	"context"
	"errors"
	"math"
	"sort"
	"sync"
)

// ErrNotFound is returned when no entry exists for a key.
var ErrNotFound = errors.New("catalog entry not found")

// Entry is one sweep result.
type Entry struct {
	Study      string
	TargetCost float64
	Method     string
	Cost       float64
	// Variance is +Inf for infeasible budgets.
	Variance float64
	// Blob names the persisted allocation. Empty when none was stored.
	Blob string
}

// Valid reports whether the entry holds a feasible result.
func (e Entry) Valid() bool {
	return !math.IsInf(e.Variance, 1) && !math.IsNaN(e.Variance)
}

// Catalog stores sweep results.
type Catalog interface {
	// Put inserts or replaces the entry for (e.Study, e.TargetCost).
	Put(ctx context.Context, e Entry) error
	// Get returns the entry for the key or ErrNotFound.
	Get(ctx context.Context, study string, targetCost float64) (Entry, error)
	// List returns the entries of a study by ascending target cost.
	List(ctx context.Context, study string) ([]Entry, error)
	// Delete removes the entry. Deleting a missing entry is not an error.
	Delete(ctx context.Context, study string, targetCost float64) error
}

// MemoryCatalog is an in-memory Catalog.
type MemoryCatalog struct {
	mu      sync.RWMutex
	studies map[string]map[float64]Entry
}

var _ Catalog = (*MemoryCatalog)(nil)

// NewMemoryCatalog creates an empty catalog.
func NewMemoryCatalog() *MemoryCatalog {
	return &MemoryCatalog{studies: make(map[string]map[float64]Entry)}
}

func (c *MemoryCatalog) Put(_ context.Context, e Entry) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	s, ok := c.studies[e.Study]
	if !ok {
		s = make(map[float64]Entry)
		c.studies[e.Study] = s
	}
	s[e.TargetCost] = e
	return nil
}

func (c *MemoryCatalog) Get(_ context.Context, study string, targetCost float64) (Entry, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	e, ok := c.studies[study][targetCost]
	if !ok {
		return Entry{}, ErrNotFound
	}
	return e, nil
}

func (c *MemoryCatalog) List(_ context.Context, study string) ([]Entry, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make([]Entry, 0, len(c.studies[study]))
	for _, e := range c.studies[study] {
		out = append(out, e)
	}
	SortByTargetCost(out)
	return out, nil
}

func (c *MemoryCatalog) Delete(_ context.Context, study string, targetCost float64) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if s, ok := c.studies[study]; ok {
		delete(s, targetCost)
		if len(s) == 0 {
			delete(c.studies, study)
		}
	}
	return nil
}

// SortByTargetCost sorts entries by ascending target cost.
func SortByTargetCost(entries []Entry) {
	sort.Slice(entries, func(i, j int) bool { return entries[i].TargetCost < entries[j].TargetCost })
}

// Best returns the feasible entry with the lowest variance, or false when
// none is feasible.
func Best(entries []Entry) (Entry, bool) {
	var best Entry
	found := false
	for _, e := range entries {
		if !e.Valid() {
			continue
		}
		if !found || e.Variance < best.Variance {
			best, found = e, true
		}
	}
	return best, found
}
