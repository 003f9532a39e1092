// Package memory is the in-process approved-action store.
package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/EcodiaTate/site-backend-sub000/internal/repos/actions"
)

var _ actions.Store = (*Store)(nil)

type Store struct {
	mu sync.RWMutex
	m  map[string]actions.Action
}

func New() *Store {
	return &Store{m: make(map[string]actions.Action)}
}

func (s *Store) Record(_ context.Context, a actions.Action) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, exists := s.m[a.ID]
	if exists {
		return nil
	}

	s.m[a.ID] = a

	return nil
}

func (s *Store) ListByActor(_ context.Context, actorID string) ([]actions.Action, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []actions.Action
	for _, a := range s.m {
		if a.ActorID == actorID {
			out = append(out, a)
		}
	}

	sort.Slice(out, func(i, j int) bool {
		return out[i].ApprovedAt.After(out[j].ApprovedAt)
	})

	return out, nil
}
