package store

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// MemoryStore implements Store in process memory (fallback when no database
// is configured)
type MemoryStore struct {
	mu          sync.RWMutex
	submissions map[string]Submission
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{submissions: make(map[string]Submission)}
}

func (m *MemoryStore) Save(ctx context.Context, s Submission) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.submissions[s.ID]; exists {
		return fmt.Errorf("submission %s already exists", s.ID)
	}
	s.Entities = append([]EntityRecord(nil), s.Entities...)
	m.submissions[s.ID] = s
	return nil
}

func (m *MemoryStore) Get(ctx context.Context, id string) (Submission, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.submissions[id]
	if !ok {
		return Submission{}, ErrNotFound
	}
	return s, nil
}

func (m *MemoryStore) Count(ctx context.Context) (int64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return int64(len(m.submissions)), nil
}

func (m *MemoryStore) DeleteOlderThan(ctx context.Context, olderThan time.Duration) (int64, error) {
	cutoff := time.Now().Add(-olderThan)
	m.mu.Lock()
	defer m.mu.Unlock()
	var removed int64
	for id, s := range m.submissions {
		if s.CreatedAt.Before(cutoff) {
			delete(m.submissions, id)
			removed++
		}
	}
	return removed, nil
}

// Close is a no-op for in-memory storage
func (m *MemoryStore) Close() error {
	return nil
}
