package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	"github.com/EcodiaTate/site-backend-sub000/internal/repos/badges"
)

var _ badges.Store = (*badgesStore)(nil)

type badgesStore struct{ db *sql.DB }

func New(db *sql.DB) *badgesStore {
	return &badgesStore{db: db}
}

func (s *badgesStore) GrantIfAbsent(ctx context.Context, actorID, badgeType string) (bool, error) {
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO badge_grants (id, actor_id, badge_type)
		VALUES ($1, $2, $3)
		ON CONFLICT (actor_id, badge_type) DO NOTHING
	`, "bg_"+uuid.NewString(), actorID, badgeType)
	if err != nil {
		return false, fmt.Errorf("grant badge: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}

	return n == 1, nil
}

func (s *badgesStore) ListByActor(ctx context.Context, actorID string) ([]badges.Grant, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, actor_id, badge_type, granted_at
		FROM badge_grants
		WHERE actor_id = $1
		ORDER BY granted_at, badge_type
	`, actorID)
	if err != nil {
		return nil, fmt.Errorf("list grants: %w", err)
	}
	defer rows.Close()

	var out []badges.Grant
	for rows.Next() {
		var g badges.Grant
		err = rows.Scan(&g.ID, &g.ActorID, &g.BadgeType, &g.GrantedAt)
		if err != nil {
			return nil, fmt.Errorf("scan grant: %w", err)
		}
		out = append(out, g)
	}

	err = rows.Err()
	if err != nil {
		return nil, fmt.Errorf("iterate grants: %w", err)
	}

	return out, nil
}
