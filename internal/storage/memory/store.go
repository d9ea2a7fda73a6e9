package memory

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"review_analyzer/internal/adapters/observability"
	"review_analyzer/internal/domain"
)

// Store keeps reviews in process memory. One RWMutex guards both the
// sequence and the id index: appends take the write lock, snapshots copy
// under the read lock.
type Store struct {
	mu   sync.RWMutex
	revs []domain.Review
	ids  map[string]struct{}
}

func New() *Store {
	return &Store{ids: make(map[string]struct{})}
}

func (s *Store) Append(_ context.Context, r domain.Review) (string, error) {
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, dup := s.ids[r.ID]; dup {
		observability.ObserveAppend("memory", "duplicate")
		return "", fmt.Errorf("append %s: %w", r.ID, domain.ErrDuplicateID)
	}
	s.ids[r.ID] = struct{}{}
	s.revs = append(s.revs, r)
	observability.ObserveAppend("memory", "ok")
	observability.SetStoreSize("memory", len(s.revs))
	return r.ID, nil
}

func (s *Store) Snapshot(_ context.Context) ([]domain.Review, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.Review, len(s.revs))
	copy(out, s.revs)
	return out, nil
}

func (s *Store) Len(_ context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.revs), nil
}
