package store

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/layer-3/carbx/ports"
)

// MemoryStore is an in-memory implementation of the QueryStore interface
type MemoryStore struct {
	entries     map[string]*ports.QueryEntry
	generations map[string]uint64 // bumped on removal, outlives the entry
	now         func() time.Time
	mu          sync.RWMutex
}

// NewMemoryStore creates a new in-memory query store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		entries:     make(map[string]*ports.QueryEntry),
		generations: make(map[string]uint64),
		now:         time.Now,
	}
}

// Get returns a copy of the cached entry
func (s *MemoryStore) Get(key string) (ports.QueryEntry, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entry, ok := s.entries[key]
	if !ok {
		return ports.QueryEntry{Status: ports.QueryIdle}, false
	}
	return *entry, true
}

// Set stores data as a successful result
func (s *MemoryStore) Set(key string, data any) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry := s.entryLocked(key)
	entry.Status = ports.QuerySuccess
	entry.Data = data
	entry.Err = nil
	entry.UpdatedAt = s.now()
}

// Fetch runs load outside the lock and records the outcome. Concurrent fetches of the
// same key are not deduplicated; the last one to finish wins. A key removed while its
// load runs drops the result: the caller still gets it but nothing is cached.
func (s *MemoryStore) Fetch(ctx context.Context, key string, load func(ctx context.Context) (any, error)) (any, error) {
	s.mu.Lock()
	entry := s.entryLocked(key)
	if entry.Status == ports.QueryIdle {
		entry.Status = ports.QueryPending
	}
	entry.Fetching = true
	generation := s.generations[key]
	s.mu.Unlock()

	data, err := load(ctx)

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.generations[key] != generation {
		return data, err
	}

	entry = s.entryLocked(key)
	entry.Fetching = false
	if err != nil {
		entry.Err = err
		if entry.Status == ports.QueryPending || entry.Status == ports.QueryIdle {
			entry.Status = ports.QueryError
		}
		return nil, err
	}

	entry.Status = ports.QuerySuccess
	entry.Data = data
	entry.Err = nil
	entry.UpdatedAt = s.now()
	return data, nil
}

// Remove drops the entry for key
func (s *MemoryStore) Remove(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.removeLocked(key)
}

// RemovePrefix drops every entry whose key starts with prefix
func (s *MemoryStore) RemovePrefix(prefix string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for key := range s.entries {
		if strings.HasPrefix(key, prefix) {
			s.removeLocked(key)
		}
	}
}

func (s *MemoryStore) entryLocked(key string) *ports.QueryEntry {
	entry, ok := s.entries[key]
	if !ok {
		entry = &ports.QueryEntry{Status: ports.QueryIdle}
		s.entries[key] = entry
	}
	return entry
}

func (s *MemoryStore) removeLocked(key string) {
	delete(s.entries, key)
	s.generations[key]++
}
