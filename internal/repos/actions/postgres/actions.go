package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/EcodiaTate/site-backend-sub000/internal/repos/actions"
)

var _ actions.Store = (*actionsStore)(nil)

type actionsStore struct{ db *sql.DB }

func New(db *sql.DB) *actionsStore {
	return &actionsStore{db: db}
}

func (s *actionsStore) Record(ctx context.Context, a actions.Action) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO approved_actions
			(id, actor_id, action_type, reward_amount, xp_amount, approved_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (id) DO NOTHING
	`, a.ID, a.ActorID, a.ActionType, a.RewardAmount, a.XPAmount, a.ApprovedAt)
	if err != nil {
		return fmt.Errorf("record action: %w", err)
	}

	return nil
}

func (s *actionsStore) ListByActor(ctx context.Context, actorID string) ([]actions.Action, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, actor_id, action_type, reward_amount, xp_amount, approved_at
		FROM approved_actions
		WHERE actor_id = $1
		ORDER BY approved_at DESC
	`, actorID)
	if err != nil {
		return nil, fmt.Errorf("list actions: %w", err)
	}
	defer rows.Close()

	var out []actions.Action
	for rows.Next() {
		var a actions.Action
		err = rows.Scan(&a.ID, &a.ActorID, &a.ActionType, &a.RewardAmount, &a.XPAmount, &a.ApprovedAt)
		if err != nil {
			return nil, fmt.Errorf("scan action: %w", err)
		}
		out = append(out, a)
	}

	err = rows.Err()
	if err != nil {
		return nil, fmt.Errorf("iterate actions: %w", err)
	}

	return out, nil
}
