// Package ledger defines the append-only transaction log's domain types.
// A Transaction is immutable once settled; corrections are new rows or a
// status flip to voided, never edits.
package ledger

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

type Kind string

const (
	KindMint           Kind = "mint"
	KindBurn           Kind = "burn"
	KindContribute     Kind = "contribute"
	KindSponsorDeposit Kind = "sponsor_deposit"
	KindSponsorPayout  Kind = "sponsor_payout"
)

type Direction string

const (
	DirectionEarned Direction = "earned"
	DirectionSpent  Direction = "spent"
)

type Status string

const (
	StatusSettled Status = "settled"
	StatusVoided  Status = "voided"
)

// Transaction is one row of the ledger. ID is supplied by the writer so a
// retried append with the same id is a safe no-op (unique-key backstop).
type Transaction struct {
	ID              string
	ActorID         string
	CounterpartyID  string // empty when the tx has no counterparty
	Kind            Kind
	Direction       Direction
	Amount          int64
	XP              int64
	Status          Status
	Source          string
	Reason          string
	CorrelationRefs []string
	CreatedAt       time.Time
}

// Totals are per-actor sums over settled transactions only.
type Totals struct {
	Earned int64
	Spent  int64
	XP     int64
}

func (t Totals) Balance() int64 { return t.Earned - t.Spent }

var (
	ErrDuplicateTransaction = errors.New("duplicate transaction")
	ErrInsufficientBalance  = errors.New("insufficient balance")
	ErrTransactionNotFound  = errors.New("transaction not found")
)

// NewID mints a fresh transaction id.
func NewID() string {
	return "tx_" + uuid.NewString()
}

// ActionTxID derives the transaction id for a materialized approved action.
// Deterministic so that redelivery of the same approval collides on append.
func ActionTxID(actionID string) string {
	return "tx_action_" + actionID
}

func ValidKind(k Kind) bool {
	switch k {
	case KindMint, KindBurn, KindContribute, KindSponsorDeposit, KindSponsorPayout:
		return true
	default:
		return false
	}
}
