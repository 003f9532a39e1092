// Package memory is the in-process Dedup Key Store.
package memory

import (
	"context"
	"sync"

	"github.com/EcodiaTate/site-backend-sub000/internal/repos/dedup"
)

var _ dedup.Store = (*Store)(nil)

type Store struct {
	mu      sync.Mutex
	buckets map[string]struct{}
}

func New() *Store {
	return &Store{buckets: make(map[string]struct{})}
}

func (s *Store) CreateIfAbsent(_ context.Context, bucketID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, exists := s.buckets[bucketID]
	if exists {
		return false, nil
	}

	s.buckets[bucketID] = struct{}{}

	return true, nil
}
