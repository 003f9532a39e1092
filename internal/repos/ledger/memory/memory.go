// Package memory is an in-process Ledger Store used by service tests and
// the single-node dev mode. Same semantics as the Postgres store, guarded
// by a mutex instead of unique constraints.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/EcodiaTate/site-backend-sub000/internal/ledger"
	ledgerrepo "github.com/EcodiaTate/site-backend-sub000/internal/repos/ledger"
)

var _ ledgerrepo.Store = (*Store)(nil)

type Store struct {
	mu  sync.RWMutex
	txs map[string]ledger.Transaction
	ord []string // insertion order, for stable scans
}

func New() *Store {
	return &Store{txs: make(map[string]ledger.Transaction)}
}

func (s *Store) Append(_ context.Context, t ledger.Transaction) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.appendLocked(t)
}

func (s *Store) AppendSpend(_ context.Context, t ledger.Transaction) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.totalsLocked(t.ActorID).Balance() < t.Amount {
		return ledger.ErrInsufficientBalance
	}

	return s.appendLocked(t)
}

func (s *Store) appendLocked(t ledger.Transaction) error {
	_, exists := s.txs[t.ID]
	if exists {
		return ledger.ErrDuplicateTransaction
	}

	s.txs[t.ID] = t
	s.ord = append(s.ord, t.ID)

	return nil
}

func (s *Store) Get(_ context.Context, id string) (ledger.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	t, ok := s.txs[id]
	if !ok {
		return ledger.Transaction{}, ledger.ErrTransactionNotFound
	}

	return t, nil
}

func (s *Store) Void(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.txs[id]
	if !ok {
		return ledger.ErrTransactionNotFound
	}

	t.Status = ledger.StatusVoided
	s.txs[id] = t

	return nil
}

func (s *Store) Scan(_ context.Context, f ledgerrepo.Filter) ([]ledger.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []ledger.Transaction
	for _, id := range s.ord {
		t := s.txs[id]
		if f.ActorID != "" && t.ActorID != f.ActorID {
			continue
		}
		if f.CounterpartyID != "" && t.CounterpartyID != f.CounterpartyID {
			continue
		}
		if !f.Since.IsZero() && t.CreatedAt.Before(f.Since) {
			continue
		}
		out = append(out, t)
	}

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})

	if f.Limit > 0 && len(out) > f.Limit {
		out = out[:f.Limit]
	}

	return out, nil
}

func (s *Store) Totals(_ context.Context, actorID string) (ledger.Totals, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.totalsLocked(actorID), nil
}

func (s *Store) totalsLocked(actorID string) ledger.Totals {
	var t ledger.Totals

	for _, tx := range s.txs {
		if tx.ActorID != actorID || tx.Status != ledger.StatusSettled {
			continue
		}

		switch tx.Direction {
		case ledger.DirectionEarned:
			t.Earned += tx.Amount
			t.XP += tx.XP
		case ledger.DirectionSpent:
			t.Spent += tx.Amount
		}
	}

	return t
}

func (s *Store) LastEarnAt(_ context.Context, actorID, counterpartyID string) (time.Time, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var last time.Time
	found := false

	for _, tx := range s.txs {
		if !isSettledEarn(tx, actorID) || tx.CounterpartyID != counterpartyID {
			continue
		}
		if tx.CreatedAt.After(last) {
			last = tx.CreatedAt
			found = true
		}
	}

	return last, found, nil
}

func (s *Store) EarnCountSince(_ context.Context, actorID, counterpartyID string, since time.Time) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	n := 0
	for _, tx := range s.txs {
		if isSettledEarn(tx, actorID) && tx.CounterpartyID == counterpartyID && !tx.CreatedAt.Before(since) {
			n++
		}
	}

	return n, nil
}

func (s *Store) EarnCount(_ context.Context, actorID string) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var n int64
	for _, tx := range s.txs {
		if isSettledEarn(tx, actorID) {
			n++
		}
	}

	return n, nil
}

func (s *Store) ActiveDaysSince(_ context.Context, actorID string, since time.Time) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	seen := make(map[string]bool)
	for _, tx := range s.txs {
		if isSettledEarn(tx, actorID) && !tx.CreatedAt.Before(since) {
			seen[tx.CreatedAt.UTC().Format("2006-01-02")] = true
		}
	}

	days := make([]string, 0, len(seen))
	for d := range seen {
		days = append(days, d)
	}
	sort.Strings(days)

	return days, nil
}

func (s *Store) TopTotals(_ context.Context, by ledgerrepo.ScoreBy, since time.Time, limit int) ([]ledgerrepo.ScoreRow, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	scores := make(map[string]int64)
	for _, tx := range s.txs {
		if tx.Direction != ledger.DirectionEarned || tx.Status != ledger.StatusSettled || tx.CreatedAt.Before(since) {
			continue
		}

		key := tx.ActorID
		if by == ledgerrepo.ScoreByCounterparty {
			key = tx.CounterpartyID
		}
		if key == "" {
			continue
		}

		scores[key] += tx.Amount
	}

	out := make([]ledgerrepo.ScoreRow, 0, len(scores))
	for id, score := range scores {
		out = append(out, ledgerrepo.ScoreRow{ID: id, Score: score})
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].Score != out[j].Score {
			return out[i].Score > out[j].Score
		}
		return out[i].ID < out[j].ID
	})

	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}

	return out, nil
}

func isSettledEarn(tx ledger.Transaction, actorID string) bool {
	return tx.ActorID == actorID &&
		tx.Direction == ledger.DirectionEarned &&
		tx.Status == ledger.StatusSettled
}
