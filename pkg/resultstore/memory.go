package resultstore

import (
	"context"
	"sort"
	"sync"
)

// MemoryStore keeps job results in memory. Used when no database is
// configured; results do not survive a restart.
type MemoryStore struct {
	results map[string]*JobResult
	mu      sync.RWMutex
}

// NewMemoryStore creates an empty in-memory store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		results: make(map[string]*JobResult),
	}
}

// SaveResult inserts or replaces a job result
func (s *MemoryStore) SaveResult(_ context.Context, result *JobResult) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.results[result.ID] = result
	return nil
}

// GetResult retrieves a result by job id
func (s *MemoryStore) GetResult(_ context.Context, id string) (*JobResult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result, ok := s.results[id]
	if !ok {
		return nil, ErrNotFound
	}
	return result, nil
}

// ListResults returns up to limit results, newest first
func (s *MemoryStore) ListResults(_ context.Context, limit int) ([]*JobResult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	results := make([]*JobResult, 0, len(s.results))
	for _, result := range s.results {
		results = append(results, result)
	}

	sort.Slice(results, func(i, j int) bool {
		return results[i].CreatedAt.After(results[j].CreatedAt)
	})

	if limit > 0 && len(results) > limit {
		results = results[:limit]
	}
	return results, nil
}

// DeleteResult removes a result by job id
func (s *MemoryStore) DeleteResult(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.results[id]; !ok {
		return ErrNotFound
	}
	delete(s.results, id)
	return nil
}

// Ping always succeeds for the in-memory store
func (s *MemoryStore) Ping(_ context.Context) error {
	return nil
}

// Close is a no-op for the in-memory store
func (s *MemoryStore) Close() error {
	return nil
}
