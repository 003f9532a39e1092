// Package ledgerrepo defines the Ledger Store: the append-only persistence
// boundary for transactions plus the aggregate reads derived from them.
package ledgerrepo

import (
	"context"
	"time"

	"github.com/EcodiaTate/site-backend-sub000/internal/ledger"
)

// Filter narrows a Scan. Zero values mean "no constraint".
type Filter struct {
	ActorID        string
	CounterpartyID string
	Since          time.Time
	Limit          int
}

// ScoreBy selects the leaderboard population.
type ScoreBy string

const (
	ScoreByActor        ScoreBy = "actors"
	ScoreByCounterparty ScoreBy = "targets"
)

// ScoreRow is an aggregate earned total for one population member.
type ScoreRow struct {
	ID    string
	Score int64
}

// Store is the ledger persistence interface. Append never mutates existing
// rows; a colliding id returns ledger.ErrDuplicateTransaction.
type Store interface {
	// Append inserts the transaction if no row with the same id exists.
	Append(ctx context.Context, t ledger.Transaction) error

	// AppendSpend inserts a spent-direction transaction only when the
	// actor's settled balance covers the amount. Concurrent spends by the
	// same actor serialize inside the store; earns never block.
	// Returns ledger.ErrInsufficientBalance when the balance is short.
	AppendSpend(ctx context.Context, t ledger.Transaction) error

	Get(ctx context.Context, id string) (ledger.Transaction, error)

	// Void flips a settled transaction to voided. All other fields stay
	// immutable. Voiding an already-voided row is a no-op.
	Void(ctx context.Context, id string) error

	// Scan returns transactions newest-first.
	Scan(ctx context.Context, f Filter) ([]ledger.Transaction, error)

	// Totals sums settled rows for one actor.
	Totals(ctx context.Context, actorID string) (ledger.Totals, error)

	// LastEarnAt returns the newest settled earn by actor against the
	// counterparty; ok is false when there is none.
	LastEarnAt(ctx context.Context, actorID, counterpartyID string) (at time.Time, ok bool, err error)

	// EarnCountSince counts settled earns by actor against the
	// counterparty created at or after since.
	EarnCountSince(ctx context.Context, actorID, counterpartyID string, since time.Time) (int, error)

	// EarnCount counts all settled earns by the actor.
	EarnCount(ctx context.Context, actorID string) (int64, error)

	// ActiveDaysSince returns the distinct UTC day keys ("2006-01-02") on
	// which the actor has at least one settled earn, at or after since.
	ActiveDaysSince(ctx context.Context, actorID string, since time.Time) ([]string, error)

	// TopTotals returns earned totals per population member, settled rows
	// only, created at or after since, ordered by score descending then id.
	TopTotals(ctx context.Context, by ScoreBy, since time.Time, limit int) ([]ScoreRow, error)
}
