package cache

import (
	"context"
	"sync"

	"github.com/neexbeast/destination-search/internal/destination"
)

// Memory is a session-lifetime result cache keyed by the literal query string.
// Entries are never evicted. Cached slices are treated as immutable.
type Memory struct {
	mu      sync.RWMutex
	entries map[string][]destination.Destination
}

// NewMemory constructs an empty Memory cache.
func NewMemory() *Memory {
	return &Memory{entries: make(map[string][]destination.Destination)}
}

// Get returns the results stored for query. The bool reports a hit.
func (m *Memory) Get(_ context.Context, query string) ([]destination.Destination, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	results, ok := m.entries[query]
	return results, ok, nil
}

// Put stores results for query, overwriting any previous entry.
func (m *Memory) Put(_ context.Context, query string, results []destination.Destination) error {
	stored := make([]destination.Destination, len(results))
	copy(stored, results)

	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[query] = stored
	return nil
}

// Clear drops every entry.
func (m *Memory) Clear(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries = make(map[string][]destination.Destination)
	return nil
}
