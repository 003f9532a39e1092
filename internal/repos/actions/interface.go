// Package actions stores approved-action records delivered by the external
// verification workflow. Each approval is materialized as a ledger
// transaction at ingest time; the record here keeps the original event for
// multiplier resolution (referral boosts, titles) and audit.
package actions

import (
	"context"
	"time"
)

type Action struct {
	ID           string
	ActorID      string
	ActionType   string
	RewardAmount int64
	XPAmount     int64
	ApprovedAt   time.Time
}

type Store interface {
	// Record stores the action; re-recording the same id is a no-op so the
	// feed may redeliver.
	Record(ctx context.Context, a Action) error

	// ListByActor returns the actor's actions newest-first.
	ListByActor(ctx context.Context, actorID string) ([]Action, error)
}
