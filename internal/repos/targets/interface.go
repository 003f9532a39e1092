// Package targets defines lookup and administration of claim targets: the
// locations/businesses claims are made against, keyed by an opaque code.
package targets

import (
	"context"
	"errors"
	"time"
)

var ErrTargetNotFound = errors.New("claim target not found")

// Target carries the geo, anti-abuse rules, and tier for one claimable
// location. Coordinates are optional; without them the geofence is skipped.
type Target struct {
	Code            string
	Name            string
	Lat             *float64
	Lng             *float64
	GeofenceRadiusM int64
	FirstVisit      int64 // base reward, first-ever visit
	ReturnVisit     int64 // base reward, repeat visit
	CooldownHours   int
	DailyCapPerUser int
	Tier            string
	Active          bool
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

func (t Target) Cooldown() time.Duration {
	return time.Duration(t.CooldownHours) * time.Hour
}

// Defaults applied by Upsert when rule fields are left zero.
const (
	DefaultFirstVisit      = 12
	DefaultReturnVisit     = 4
	DefaultCooldownHours   = 20
	DefaultDailyCap        = 1
	DefaultGeofenceRadiusM = 150
	DefaultTier            = "starter"
)

type Store interface {
	// GetByCode returns the target regardless of active state; callers
	// decide how to treat deactivated targets.
	GetByCode(ctx context.Context, code string) (Target, error)

	// Upsert creates or replaces the target's rules. Targets are never
	// hard-deleted while transactions reference them.
	Upsert(ctx context.Context, t Target) error

	// Deactivate soft-deletes: the target stops accepting claims but its
	// history stays intact.
	Deactivate(ctx context.Context, code string) error
}

// ApplyDefaults fills zero-valued rule fields in place.
func ApplyDefaults(t *Target) {
	if t.FirstVisit <= 0 {
		t.FirstVisit = DefaultFirstVisit
	}
	if t.ReturnVisit <= 0 {
		t.ReturnVisit = DefaultReturnVisit
	}
	if t.CooldownHours <= 0 {
		t.CooldownHours = DefaultCooldownHours
	}
	if t.DailyCapPerUser <= 0 {
		t.DailyCapPerUser = DefaultDailyCap
	}
	if t.GeofenceRadiusM <= 0 {
		t.GeofenceRadiusM = DefaultGeofenceRadiusM
	}
	if t.Tier == "" {
		t.Tier = DefaultTier
	}
}
