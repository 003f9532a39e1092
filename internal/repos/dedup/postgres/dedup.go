package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/EcodiaTate/site-backend-sub000/internal/repos/dedup"
)

var _ dedup.Store = (*dedupStore)(nil)

type dedupStore struct{ db *sql.DB }

func New(db *sql.DB) *dedupStore {
	return &dedupStore{db: db}
}

// CreateIfAbsent relies on the primary key for atomicity: ON CONFLICT DO
// NOTHING makes the losing writer observe zero affected rows.
func (s *dedupStore) CreateIfAbsent(ctx context.Context, bucketID string) (bool, error) {
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO dedup_buckets (bucket_id)
		VALUES ($1)
		ON CONFLICT (bucket_id) DO NOTHING
	`, bucketID)
	if err != nil {
		return false, fmt.Errorf("insert dedup bucket: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}

	return n == 1, nil
}
