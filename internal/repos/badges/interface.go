// Package badges stores once-only badge grants. GrantIfAbsent reuses the
// first-writer-wins seam the claim path uses, keyed by (actor, badge type).
package badges

import (
	"context"
	"time"
)

type Grant struct {
	ID        string
	ActorID   string
	BadgeType string
	GrantedAt time.Time
}

type Store interface {
	// GrantIfAbsent records the grant unless the actor already holds the
	// badge. created is true for the writer that won.
	GrantIfAbsent(ctx context.Context, actorID, badgeType string) (created bool, err error)

	// ListByActor returns the actor's grants oldest-first.
	ListByActor(ctx context.Context, actorID string) ([]Grant, error)
}
