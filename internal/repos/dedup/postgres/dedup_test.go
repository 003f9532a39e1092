package postgres

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/EcodiaTate/site-backend-sub000/internal/infra/pgtestutil"
)

func TestDedup_CreateIfAbsent(t *testing.T) {
	t.Parallel()

	db, cleanup := pgtestutil.NewTestDB(t)
	defer cleanup()

	repo := New(db)
	ctx := context.Background()

	created, err := repo.CreateIfAbsent(ctx, "cooldown_abc123")
	require.NoError(t, err)
	assert.True(t, created)

	created, err = repo.CreateIfAbsent(ctx, "cooldown_abc123")
	require.NoError(t, err)
	assert.False(t, created)

	created, err = repo.CreateIfAbsent(ctx, "daily_cap_def456")
	require.NoError(t, err)
	assert.True(t, created)
}

func TestDedup_CreateIfAbsent_ConcurrentSingleWinner(t *testing.T) {
	t.Parallel()

	db, cleanup := pgtestutil.NewTestDB(t)
	defer cleanup()

	repo := New(db)
	ctx := context.Background()

	const workers = 16

	var wg sync.WaitGroup
	wins := make([]bool, workers)
	errs := make([]error, workers)

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			wins[i], errs[i] = repo.CreateIfAbsent(ctx, "cooldown_raced")
		}(i)
	}

	wg.Wait()

	winners := 0
	for i := 0; i < workers; i++ {
		require.NoError(t, errs[i])
		if wins[i] {
			winners++
		}
	}
	assert.Equal(t, 1, winners)
}
