package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/EcodiaTate/site-backend-sub000/internal/repos/targets"
)

var _ targets.Store = (*targetsStore)(nil)

type targetsStore struct{ db *sql.DB }

func New(db *sql.DB) *targetsStore {
	return &targetsStore{db: db}
}

func (s *targetsStore) GetByCode(ctx context.Context, code string) (targets.Target, error) {
	var t targets.Target
	var lat, lng sql.NullFloat64

	err := s.db.QueryRowContext(ctx, `
		SELECT code, name, lat, lng, geofence_radius_m,
		       base_reward_first_visit, base_reward_return_visit,
		       cooldown_hours, daily_cap_per_actor, tier, active,
		       created_at, updated_at
		FROM claim_targets
		WHERE code = $1
	`, code).Scan(
		&t.Code, &t.Name, &lat, &lng, &t.GeofenceRadiusM,
		&t.FirstVisit, &t.ReturnVisit,
		&t.CooldownHours, &t.DailyCapPerUser, &t.Tier, &t.Active,
		&t.CreatedAt, &t.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return targets.Target{}, targets.ErrTargetNotFound
		}

		return targets.Target{}, fmt.Errorf("get target: %w", err)
	}

	if lat.Valid {
		t.Lat = &lat.Float64
	}
	if lng.Valid {
		t.Lng = &lng.Float64
	}

	return t, nil
}

func (s *targetsStore) Upsert(ctx context.Context, t targets.Target) error {
	targets.ApplyDefaults(&t)

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO claim_targets
			(code, name, lat, lng, geofence_radius_m,
			 base_reward_first_visit, base_reward_return_visit,
			 cooldown_hours, daily_cap_per_actor, tier, active)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, TRUE)
		ON CONFLICT (code) DO UPDATE SET
			name = EXCLUDED.name,
			lat = EXCLUDED.lat,
			lng = EXCLUDED.lng,
			geofence_radius_m = EXCLUDED.geofence_radius_m,
			base_reward_first_visit = EXCLUDED.base_reward_first_visit,
			base_reward_return_visit = EXCLUDED.base_reward_return_visit,
			cooldown_hours = EXCLUDED.cooldown_hours,
			daily_cap_per_actor = EXCLUDED.daily_cap_per_actor,
			tier = EXCLUDED.tier,
			active = TRUE,
			updated_at = now()
	`, t.Code, t.Name, nullFloat(t.Lat), nullFloat(t.Lng), t.GeofenceRadiusM,
		t.FirstVisit, t.ReturnVisit, t.CooldownHours, t.DailyCapPerUser, t.Tier)
	if err != nil {
		return fmt.Errorf("upsert target: %w", err)
	}

	return nil
}

func (s *targetsStore) Deactivate(ctx context.Context, code string) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE claim_targets SET active = FALSE, updated_at = now()
		WHERE code = $1
	`, code)
	if err != nil {
		return fmt.Errorf("deactivate target: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return targets.ErrTargetNotFound
	}

	return nil
}

func nullFloat(f *float64) sql.NullFloat64 {
	if f == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *f, Valid: true}
}
