package postgres

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/EcodiaTate/site-backend-sub000/internal/infra/pgtestutil"
	"github.com/EcodiaTate/site-backend-sub000/internal/ledger"
	ledgerrepo "github.com/EcodiaTate/site-backend-sub000/internal/repos/ledger"
)

func earnTx(id, actor, target string, amount, xp int64, at time.Time) ledger.Transaction {
	return ledger.Transaction{
		ID:             id,
		ActorID:        actor,
		CounterpartyID: target,
		Kind:           ledger.KindMint,
		Direction:      ledger.DirectionEarned,
		Amount:         amount,
		XP:             xp,
		Status:         ledger.StatusSettled,
		Source:         "claim",
		Reason:         "visit reward",
		CreatedAt:      at,
	}
}

func spendTx(id, actor string, amount int64, at time.Time) ledger.Transaction {
	return ledger.Transaction{
		ID:        id,
		ActorID:   actor,
		Kind:      ledger.KindBurn,
		Direction: ledger.DirectionSpent,
		Amount:    amount,
		Status:    ledger.StatusSettled,
		Source:    "spend",
		Reason:    "store purchase",
		CreatedAt: at,
	}
}

func TestLedger_AppendAndGet(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		seed    func(ctx context.Context, repo ledgerrepo.Store)
		tx      ledger.Transaction
		wantErr error
	}{
		{
			name: "ok_insert",
			tx:   earnTx("tx_1", "act_a", "qr_cafe", 21, 21, time.Now().UTC()),
		},
		{
			name: "duplicate_id",
			seed: func(ctx context.Context, repo ledgerrepo.Store) {
				err := repo.Append(ctx, earnTx("tx_dup", "act_a", "qr_cafe", 12, 12, time.Now().UTC()))
				require.NoError(t, err)
			},
			tx:      earnTx("tx_dup", "act_b", "qr_other", 4, 4, time.Now().UTC()),
			wantErr: ledger.ErrDuplicateTransaction,
		},
		{
			name: "no_counterparty_roundtrips_empty",
			tx:   spendTx("tx_spendless", "act_rich", 0, time.Now().UTC()),
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			db, cleanup := pgtestutil.NewTestDB(t)
			defer cleanup()

			repo := New(db)
			ctx := context.Background()

			if tt.seed != nil {
				tt.seed(ctx, repo)
			}

			err := repo.Append(ctx, tt.tx)
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)

			got, err := repo.Get(ctx, tt.tx.ID)
			require.NoError(t, err)
			assert.Equal(t, tt.tx.ID, got.ID)
			assert.Equal(t, tt.tx.ActorID, got.ActorID)
			assert.Equal(t, tt.tx.CounterpartyID, got.CounterpartyID)
			assert.Equal(t, tt.tx.Amount, got.Amount)
			assert.Equal(t, tt.tx.Status, got.Status)
		})
	}
}

func TestLedger_TotalsAndVoid(t *testing.T) {
	t.Parallel()

	db, cleanup := pgtestutil.NewTestDB(t)
	defer cleanup()

	repo := New(db)
	ctx := context.Background()
	now := time.Now().UTC()

	require.NoError(t, repo.Append(ctx, earnTx("tx_e1", "act_a", "qr_cafe", 21, 21, now.Add(-2*time.Hour))))
	require.NoError(t, repo.Append(ctx, earnTx("tx_e2", "act_a", "qr_garden", 4, 4, now.Add(-time.Hour))))
	require.NoError(t, repo.Append(ctx, spendTx("tx_s1", "act_a", 10, now)))

	totals, err := repo.Totals(ctx, "act_a")
	require.NoError(t, err)
	assert.Equal(t, int64(25), totals.Earned)
	assert.Equal(t, int64(10), totals.Spent)
	assert.Equal(t, int64(25), totals.XP)
	assert.Equal(t, int64(15), totals.Balance())

	// Voiding the spend restores the derived balance.
	require.NoError(t, repo.Void(ctx, "tx_s1"))

	totals, err = repo.Totals(ctx, "act_a")
	require.NoError(t, err)
	assert.Equal(t, int64(25), totals.Balance())

	// Voiding again is a no-op, not an error.
	require.NoError(t, repo.Void(ctx, "tx_s1"))

	err = repo.Void(ctx, "tx_missing")
	require.ErrorIs(t, err, ledger.ErrTransactionNotFound)
}

func TestLedger_AppendSpend(t *testing.T) {
	t.Parallel()

	db, cleanup := pgtestutil.NewTestDB(t)
	defer cleanup()

	repo := New(db)
	ctx := context.Background()
	now := time.Now().UTC()

	require.NoError(t, repo.Append(ctx, earnTx("tx_e1", "act_a", "qr_cafe", 10, 10, now.Add(-time.Hour))))

	err := repo.AppendSpend(ctx, spendTx("tx_s_over", "act_a", 11, now))
	require.ErrorIs(t, err, ledger.ErrInsufficientBalance)

	err = repo.AppendSpend(ctx, spendTx("tx_s_ok", "act_a", 10, now))
	require.NoError(t, err)

	totals, err := repo.Totals(ctx, "act_a")
	require.NoError(t, err)
	assert.Equal(t, int64(0), totals.Balance())
}

func TestLedger_AppendSpend_ConcurrentNoOverdraft(t *testing.T) {
	t.Parallel()

	db, cleanup := pgtestutil.NewTestDB(t)
	defer cleanup()

	repo := New(db)
	ctx := context.Background()
	now := time.Now().UTC()

	require.NoError(t, repo.Append(ctx, earnTx("tx_e1", "act_a", "qr_cafe", 10, 10, now.Add(-time.Hour))))

	const workers = 8

	var wg sync.WaitGroup
	errs := make([]error, workers)

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			errs[i] = repo.AppendSpend(ctx, spendTx(ledger.NewID(), "act_a", 4, now))
		}(i)
	}

	wg.Wait()

	accepted := 0
	for _, err := range errs {
		if err == nil {
			accepted++
			continue
		}
		require.ErrorIs(t, err, ledger.ErrInsufficientBalance)
	}
	assert.Equal(t, 2, accepted)

	totals, err := repo.Totals(ctx, "act_a")
	require.NoError(t, err)
	assert.Equal(t, int64(2), totals.Balance())
}

func TestLedger_GuardReads(t *testing.T) {
	t.Parallel()

	db, cleanup := pgtestutil.NewTestDB(t)
	defer cleanup()

	repo := New(db)
	ctx := context.Background()

	// Fixed midday base so day boundaries stay stable.
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

	require.NoError(t, repo.Append(ctx, earnTx("tx_old", "act_a", "qr_cafe", 12, 12, now.Add(-48*time.Hour))))
	require.NoError(t, repo.Append(ctx, earnTx("tx_new", "act_a", "qr_cafe", 4, 4, now.Add(-time.Hour))))
	require.NoError(t, repo.Append(ctx, earnTx("tx_other", "act_a", "qr_garden", 4, 4, now)))

	at, ok, err := repo.LastEarnAt(ctx, "act_a", "qr_cafe")
	require.NoError(t, err)
	require.True(t, ok)
	assert.WithinDuration(t, now.Add(-time.Hour), at, time.Millisecond)

	_, ok, err = repo.LastEarnAt(ctx, "act_a", "qr_unknown")
	require.NoError(t, err)
	assert.False(t, ok)

	n, err := repo.EarnCountSince(ctx, "act_a", "qr_cafe", now.Add(-2*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	total, err := repo.EarnCount(ctx, "act_a")
	require.NoError(t, err)
	assert.Equal(t, int64(3), total)

	days, err := repo.ActiveDaysSince(ctx, "act_a", now.Add(-72*time.Hour))
	require.NoError(t, err)
	assert.Len(t, days, 2)

	// Voided earns fall out of every guard read.
	require.NoError(t, repo.Void(ctx, "tx_new"))

	at, ok, err = repo.LastEarnAt(ctx, "act_a", "qr_cafe")
	require.NoError(t, err)
	require.True(t, ok)
	assert.WithinDuration(t, now.Add(-48*time.Hour), at, time.Millisecond)
}

func TestLedger_ScanAndTopTotals(t *testing.T) {
	t.Parallel()

	db, cleanup := pgtestutil.NewTestDB(t)
	defer cleanup()

	repo := New(db)
	ctx := context.Background()
	now := time.Now().UTC()

	require.NoError(t, repo.Append(ctx, earnTx("tx_a1", "act_a", "qr_cafe", 21, 21, now.Add(-3*time.Hour))))
	require.NoError(t, repo.Append(ctx, earnTx("tx_a2", "act_a", "qr_garden", 4, 4, now.Add(-2*time.Hour))))
	require.NoError(t, repo.Append(ctx, earnTx("tx_b1", "act_b", "qr_cafe", 12, 12, now.Add(-time.Hour))))

	got, err := repo.Scan(ctx, ledgerrepo.Filter{ActorID: "act_a"})
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "tx_a2", got[0].ID) // newest first

	got, err = repo.Scan(ctx, ledgerrepo.Filter{ActorID: "act_a", Limit: 1})
	require.NoError(t, err)
	require.Len(t, got, 1)

	rows, err := repo.TopTotals(ctx, ledgerrepo.ScoreByActor, now.Add(-24*time.Hour), 10)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, ledgerrepo.ScoreRow{ID: "act_a", Score: 25}, rows[0])
	assert.Equal(t, ledgerrepo.ScoreRow{ID: "act_b", Score: 12}, rows[1])

	rows, err = repo.TopTotals(ctx, ledgerrepo.ScoreByCounterparty, now.Add(-24*time.Hour), 10)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, ledgerrepo.ScoreRow{ID: "qr_cafe", Score: 33}, rows[0])
}
