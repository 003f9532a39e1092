// Package memory is the in-process claim-target store.
package memory

import (
	"context"
	"sync"

	"github.com/EcodiaTate/site-backend-sub000/internal/repos/targets"
)

var _ targets.Store = (*Store)(nil)

type Store struct {
	mu sync.RWMutex
	m  map[string]targets.Target
}

func New() *Store {
	return &Store{m: make(map[string]targets.Target)}
}

func (s *Store) GetByCode(_ context.Context, code string) (targets.Target, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	t, ok := s.m[code]
	if !ok {
		return targets.Target{}, targets.ErrTargetNotFound
	}

	return t, nil
}

func (s *Store) Upsert(_ context.Context, t targets.Target) error {
	targets.ApplyDefaults(&t)
	t.Active = true

	s.mu.Lock()
	defer s.mu.Unlock()

	s.m[t.Code] = t

	return nil
}

func (s *Store) Deactivate(_ context.Context, code string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.m[code]
	if !ok {
		return targets.ErrTargetNotFound
	}

	t.Active = false
	s.m[code] = t

	return nil
}
