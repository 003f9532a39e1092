// Package wallet derives balances from the ledger. There is no stored
// counter anywhere: every read recomputes from settled transactions, so the
// balance can never diverge from the log.
package wallet

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/EcodiaTate/site-backend-sub000/internal/guard"
	"github.com/EcodiaTate/site-backend-sub000/internal/infra/metrics"
	"github.com/EcodiaTate/site-backend-sub000/internal/ledger"
	ledgerrepo "github.com/EcodiaTate/site-backend-sub000/internal/repos/ledger"
)

const recentLimit = 20

type Service struct {
	ledger ledgerrepo.Store
	now    func() time.Time
}

func New(ledgerStore ledgerrepo.Store) *Service {
	return &Service{ledger: ledgerStore, now: time.Now}
}

// Wallet is the derived per-actor view.
type Wallet struct {
	Balance     int64
	EarnedTotal int64
	SpentTotal  int64
	Recent      []ledger.Transaction
}

func (s *Service) Wallet(ctx context.Context, actorID string) (Wallet, error) {
	totals, err := s.ledger.Totals(ctx, actorID)
	if err != nil {
		return Wallet{}, fmt.Errorf("totals: %w", err)
	}

	recent, err := s.ledger.Scan(ctx, ledgerrepo.Filter{ActorID: actorID, Limit: recentLimit})
	if err != nil {
		return Wallet{}, fmt.Errorf("recent transactions: %w", err)
	}

	return Wallet{
		Balance:     totals.Balance(),
		EarnedTotal: totals.Earned,
		SpentTotal:  totals.Spent,
		Recent:      recent,
	}, nil
}

// SpendRequest burns or contributes points from an actor's balance.
type SpendRequest struct {
	ActorID        string
	Amount         int64
	Kind           ledger.Kind // burn or contribute; defaults to burn
	CounterpartyID string
	Reason         string
}

// SpendResult mirrors ClaimResult's shape: a short balance is a policy
// denial, not an error.
type SpendResult struct {
	OK           bool
	Reason       guard.Reason
	TxID         string
	BalanceAfter int64
}

// Spend appends a spent-direction transaction when the derived balance
// covers the amount. The store serializes concurrent spends per actor, so
// two racing spends cannot both pass the balance check.
func (s *Service) Spend(ctx context.Context, req SpendRequest) (SpendResult, error) {
	if req.Amount <= 0 {
		return SpendResult{}, fmt.Errorf("spend amount must be positive")
	}

	kind := req.Kind
	if kind == "" {
		kind = ledger.KindBurn
	}
	if kind != ledger.KindBurn && kind != ledger.KindContribute && kind != ledger.KindSponsorPayout {
		return SpendResult{}, fmt.Errorf("kind %q cannot spend", kind)
	}

	tx := ledger.Transaction{
		ID:             ledger.NewID(),
		ActorID:        req.ActorID,
		CounterpartyID: req.CounterpartyID,
		Kind:           kind,
		Direction:      ledger.DirectionSpent,
		Amount:         req.Amount,
		Status:         ledger.StatusSettled,
		Source:         "wallet",
		Reason:         req.Reason,
		CreatedAt:      s.now(),
	}

	err := s.ledger.AppendSpend(ctx, tx)
	if err != nil {
		if errors.Is(err, ledger.ErrInsufficientBalance) {
			metrics.SpendsTotal.WithLabelValues(string(guard.ReasonInsufficientBalance)).Inc()
			slog.Info("spend denied", "actor", req.ActorID,
				"amount", req.Amount, "reason", string(guard.ReasonInsufficientBalance))

			return SpendResult{OK: false, Reason: guard.ReasonInsufficientBalance}, nil
		}

		return SpendResult{}, fmt.Errorf("append spend: %w", err)
	}

	metrics.SpendsTotal.WithLabelValues("accepted").Inc()
	metrics.LedgerAppendsTotal.WithLabelValues(string(kind)).Inc()

	totals, err := s.ledger.Totals(ctx, req.ActorID)
	if err != nil {
		return SpendResult{}, fmt.Errorf("totals after spend: %w", err)
	}

	return SpendResult{OK: true, TxID: tx.ID, BalanceAfter: totals.Balance()}, nil
}

// Void flips a transaction to voided; aggregates stop counting it.
func (s *Service) Void(ctx context.Context, txID string) error {
	err := s.ledger.Void(ctx, txID)
	if err != nil {
		return fmt.Errorf("void %s: %w", txID, err)
	}

	slog.Info("transaction voided", "tx_id", txID)

	return nil
}
