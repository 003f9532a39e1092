// Package memory is the in-process badge-grant store.
package memory

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/EcodiaTate/site-backend-sub000/internal/repos/badges"
)

var _ badges.Store = (*Store)(nil)

type Store struct {
	mu     sync.Mutex
	grants []badges.Grant
	index  map[string]struct{} // actorID + "\x00" + badgeType
}

func New() *Store {
	return &Store{index: make(map[string]struct{})}
}

func (s *Store) GrantIfAbsent(_ context.Context, actorID, badgeType string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := actorID + "\x00" + badgeType
	_, exists := s.index[key]
	if exists {
		return false, nil
	}

	s.index[key] = struct{}{}
	s.grants = append(s.grants, badges.Grant{
		ID:        "bg_" + uuid.NewString(),
		ActorID:   actorID,
		BadgeType: badgeType,
		GrantedAt: time.Now().UTC(),
	})

	return true, nil
}

func (s *Store) ListByActor(_ context.Context, actorID string) ([]badges.Grant, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []badges.Grant
	for _, g := range s.grants {
		if g.ActorID == actorID {
			out = append(out, g)
		}
	}

	return out, nil
}
