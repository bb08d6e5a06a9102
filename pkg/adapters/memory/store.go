package memory

import (
	"bytes"
	"context"
	"sort"
	"sync"

	"github.com/aretw0/triage/pkg/domain"
)

// Store implements ports.AuditStore in memory.
// Safe for concurrent use.
type Store struct {
	data map[string][]byte
	mu   sync.RWMutex
}

// NewStore creates a new in-memory store.
func NewStore() *Store {
	return &Store{
		data: make(map[string][]byte),
	}
}

// Save persists the bundle in memory. Existing IDs are never overwritten.
func (s *Store) Save(ctx context.Context, id string, data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.data[id]; ok {
		return domain.ErrBundleExists
	}
	s.data[id] = bytes.Clone(data)
	return nil
}

// Load retrieves the bundle from memory.
func (s *Store) Load(ctx context.Context, id string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	data, ok := s.data[id]
	if !ok {
		return nil, domain.ErrBundleNotFound
	}

	// Copy on read so callers can't mutate the stored bundle
	return bytes.Clone(data), nil
}

// List returns stored bundle IDs, sorted.
func (s *Store) List(ctx context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := make([]string, 0, len(s.data))
	for id := range s.data {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids, nil
}
