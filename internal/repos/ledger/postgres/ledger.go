package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgconn"

	"github.com/EcodiaTate/site-backend-sub000/internal/infra/pgutils"
	"github.com/EcodiaTate/site-backend-sub000/internal/ledger"
	ledgerrepo "github.com/EcodiaTate/site-backend-sub000/internal/repos/ledger"
)

var _ ledgerrepo.Store = (*ledgerStore)(nil)

type ledgerStore struct{ db *sql.DB }

func New(db *sql.DB) *ledgerStore {
	return &ledgerStore{db: db}
}

const insertSQL = `
	INSERT INTO transactions
		(id, actor_id, counterparty_id, kind, direction, amount, xp,
		 status, source, reason, correlation_refs, created_at)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
`

func (s *ledgerStore) Append(ctx context.Context, t ledger.Transaction) error {
	refs, err := json.Marshal(emptyIfNil(t.CorrelationRefs))
	if err != nil {
		return fmt.Errorf("marshal correlation refs: %w", err)
	}

	_, err = s.db.ExecContext(ctx, insertSQL,
		t.ID, t.ActorID, nullable(t.CounterpartyID), t.Kind, t.Direction,
		t.Amount, t.XP, t.Status, t.Source, t.Reason, refs, t.CreatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" { // unique_violation
			return ledger.ErrDuplicateTransaction
		}

		return fmt.Errorf("insert transaction: %w", err)
	}

	return nil
}

// AppendSpend serializes per actor via a transaction-scoped advisory lock,
// then re-derives the balance and inserts while holding it. Earn paths never
// take the lock, so spends only contend with other spends by the same actor.
func (s *ledgerStore) AppendSpend(ctx context.Context, t ledger.Transaction) error {
	refs, err := json.Marshal(emptyIfNil(t.CorrelationRefs))
	if err != nil {
		return fmt.Errorf("marshal correlation refs: %w", err)
	}

	err = pgutils.WithTx(ctx, s.db, func(tx *sql.Tx) error {
		err := pgutils.AcquireActorLock(tx, t.ActorID)
		if err != nil {
			return fmt.Errorf("actor lock: %w", err)
		}

		var balance int64
		err = tx.QueryRow(totalsSQL, t.ActorID).Scan(new(int64), new(int64), new(int64), &balance)
		if err != nil {
			return fmt.Errorf("derive balance: %w", err)
		}

		if balance < t.Amount {
			return ledger.ErrInsufficientBalance
		}

		_, err = tx.Exec(insertSQL,
			t.ID, t.ActorID, nullable(t.CounterpartyID), t.Kind, t.Direction,
			t.Amount, t.XP, t.Status, t.Source, t.Reason, refs, t.CreatedAt)
		if err != nil {
			var pgErr *pgconn.PgError
			if errors.As(err, &pgErr) && pgErr.Code == "23505" {
				return ledger.ErrDuplicateTransaction
			}

			return fmt.Errorf("insert transaction: %w", err)
		}

		return nil
	})
	if err != nil {
		if errors.Is(err, ledger.ErrInsufficientBalance) || errors.Is(err, ledger.ErrDuplicateTransaction) {
			return err
		}

		return fmt.Errorf("append spend: %w", err)
	}

	return nil
}

const selectColumns = `
	id, actor_id, COALESCE(counterparty_id, ''), kind, direction, amount, xp,
	status, source, reason, correlation_refs, created_at
`

func (s *ledgerStore) Get(ctx context.Context, id string) (ledger.Transaction, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+selectColumns+` FROM transactions WHERE id = $1`, id)

	t, err := scanTransaction(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ledger.Transaction{}, ledger.ErrTransactionNotFound
		}

		return ledger.Transaction{}, fmt.Errorf("get transaction: %w", err)
	}

	return t, nil
}

func (s *ledgerStore) Void(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE transactions SET status = 'voided' WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("void transaction: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return ledger.ErrTransactionNotFound
	}

	return nil
}

func (s *ledgerStore) Scan(ctx context.Context, f ledgerrepo.Filter) ([]ledger.Transaction, error) {
	query := `SELECT ` + selectColumns + ` FROM transactions WHERE 1=1`
	args := make([]any, 0, 4)

	if f.ActorID != "" {
		args = append(args, f.ActorID)
		query += fmt.Sprintf(" AND actor_id = $%d", len(args))
	}
	if f.CounterpartyID != "" {
		args = append(args, f.CounterpartyID)
		query += fmt.Sprintf(" AND counterparty_id = $%d", len(args))
	}
	if !f.Since.IsZero() {
		args = append(args, f.Since)
		query += fmt.Sprintf(" AND created_at >= $%d", len(args))
	}

	query += " ORDER BY created_at DESC, id"

	if f.Limit > 0 {
		args = append(args, f.Limit)
		query += fmt.Sprintf(" LIMIT $%d", len(args))
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("scan transactions: %w", err)
	}
	defer rows.Close()

	var out []ledger.Transaction
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}
		out = append(out, t)
	}

	err = rows.Err()
	if err != nil {
		return nil, fmt.Errorf("iterate rows: %w", err)
	}

	return out, nil
}

const totalsSQL = `
	SELECT
		COALESCE(SUM(amount) FILTER (WHERE direction = 'earned'), 0),
		COALESCE(SUM(amount) FILTER (WHERE direction = 'spent'), 0),
		COALESCE(SUM(xp) FILTER (WHERE direction = 'earned'), 0),
		COALESCE(SUM(amount) FILTER (WHERE direction = 'earned'), 0)
			- COALESCE(SUM(amount) FILTER (WHERE direction = 'spent'), 0)
	FROM transactions
	WHERE actor_id = $1 AND status = 'settled'
`

func (s *ledgerStore) Totals(ctx context.Context, actorID string) (ledger.Totals, error) {
	var t ledger.Totals
	var balance int64

	err := s.db.QueryRowContext(ctx, totalsSQL, actorID).
		Scan(&t.Earned, &t.Spent, &t.XP, &balance)
	if err != nil {
		return ledger.Totals{}, fmt.Errorf("totals: %w", err)
	}

	return t, nil
}

func (s *ledgerStore) LastEarnAt(ctx context.Context, actorID, counterpartyID string) (time.Time, bool, error) {
	var at sql.NullTime

	err := s.db.QueryRowContext(ctx, `
		SELECT MAX(created_at)
		FROM transactions
		WHERE actor_id = $1 AND counterparty_id = $2
		  AND direction = 'earned' AND status = 'settled'
	`, actorID, counterpartyID).Scan(&at)
	if err != nil {
		return time.Time{}, false, fmt.Errorf("last earn: %w", err)
	}

	if !at.Valid {
		return time.Time{}, false, nil
	}

	return at.Time, true, nil
}

func (s *ledgerStore) EarnCountSince(ctx context.Context, actorID, counterpartyID string, since time.Time) (int, error) {
	var n int

	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*)
		FROM transactions
		WHERE actor_id = $1 AND counterparty_id = $2
		  AND direction = 'earned' AND status = 'settled'
		  AND created_at >= $3
	`, actorID, counterpartyID, since).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("earn count since: %w", err)
	}

	return n, nil
}

func (s *ledgerStore) EarnCount(ctx context.Context, actorID string) (int64, error) {
	var n int64

	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*)
		FROM transactions
		WHERE actor_id = $1 AND direction = 'earned' AND status = 'settled'
	`, actorID).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("earn count: %w", err)
	}

	return n, nil
}

func (s *ledgerStore) ActiveDaysSince(ctx context.Context, actorID string, since time.Time) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT DISTINCT to_char(created_at AT TIME ZONE 'UTC', 'YYYY-MM-DD')
		FROM transactions
		WHERE actor_id = $1 AND direction = 'earned' AND status = 'settled'
		  AND created_at >= $2
	`, actorID, since)
	if err != nil {
		return nil, fmt.Errorf("active days: %w", err)
	}
	defer rows.Close()

	var days []string
	for rows.Next() {
		var d string
		err = rows.Scan(&d)
		if err != nil {
			return nil, fmt.Errorf("scan day: %w", err)
		}
		days = append(days, d)
	}

	err = rows.Err()
	if err != nil {
		return nil, fmt.Errorf("iterate days: %w", err)
	}

	return days, nil
}

func (s *ledgerStore) TopTotals(ctx context.Context, by ledgerrepo.ScoreBy, since time.Time, limit int) ([]ledgerrepo.ScoreRow, error) {
	column := "actor_id"
	if by == ledgerrepo.ScoreByCounterparty {
		column = "counterparty_id"
	}

	rows, err := s.db.QueryContext(ctx, fmt.Sprintf(`
		SELECT %s, COALESCE(SUM(amount), 0) AS score
		FROM transactions
		WHERE %s IS NOT NULL AND %s <> ''
		  AND direction = 'earned' AND status = 'settled'
		  AND created_at >= $1
		GROUP BY %s
		ORDER BY score DESC, %s
		LIMIT $2
	`, column, column, column, column, column), since, limit)
	if err != nil {
		return nil, fmt.Errorf("top totals: %w", err)
	}
	defer rows.Close()

	var out []ledgerrepo.ScoreRow
	for rows.Next() {
		var r ledgerrepo.ScoreRow
		err = rows.Scan(&r.ID, &r.Score)
		if err != nil {
			return nil, fmt.Errorf("scan score row: %w", err)
		}
		out = append(out, r)
	}

	err = rows.Err()
	if err != nil {
		return nil, fmt.Errorf("iterate score rows: %w", err)
	}

	return out, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTransaction(r rowScanner) (ledger.Transaction, error) {
	var t ledger.Transaction
	var refs []byte

	err := r.Scan(&t.ID, &t.ActorID, &t.CounterpartyID, &t.Kind, &t.Direction,
		&t.Amount, &t.XP, &t.Status, &t.Source, &t.Reason, &refs, &t.CreatedAt)
	if err != nil {
		return ledger.Transaction{}, err
	}

	err = json.Unmarshal(refs, &t.CorrelationRefs)
	if err != nil {
		return ledger.Transaction{}, fmt.Errorf("unmarshal correlation refs: %w", err)
	}

	return t, nil
}

func nullable(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func emptyIfNil(refs []string) []string {
	if refs == nil {
		return []string{}
	}
	return refs
}
