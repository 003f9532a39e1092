// Package guard holds the pure pre-write checks for inbound claims:
// geofence distance, cooldown windows, and per-day caps. Every check is a
// total function returning a Decision; none of them touches a store.
package guard

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/EcodiaTate/site-backend-sub000/internal/geo"
)

// Reason is the structured denial reason returned to callers. Denials are
// policy outcomes, not errors.
type Reason string

const (
	ReasonGeofence            Reason = "geofence"
	ReasonCooldown            Reason = "cooldown"
	ReasonDailyCap            Reason = "daily_cap"
	ReasonInsufficientBalance Reason = "insufficient_balance"
)

type Outcome int

const (
	Allowed Outcome = iota
	Denied
	// Skipped means the check could not run (missing coordinates) and was
	// waved through. Callers may want to log these.
	Skipped
)

type Decision struct {
	Outcome Outcome
	Reason  Reason
}

func allowed() Decision        { return Decision{Outcome: Allowed} }
func denied(r Reason) Decision { return Decision{Outcome: Denied, Reason: r} }
func skipped() Decision        { return Decision{Outcome: Skipped} }

// CheckGeofence verifies the claimant is within radiusM of the target.
// The check is skipped when the target carries no coordinates, the claimant
// provided none, or the target has no geofence configured.
func CheckGeofence(claimant *geo.Coordinates, targetLat, targetLng *float64, radiusM int64) Decision {
	if radiusM <= 0 || claimant == nil || targetLat == nil || targetLng == nil {
		return skipped()
	}

	target := geo.Coordinates{Lat: *targetLat, Lng: *targetLng}
	if !geo.WithinRadius(target, *claimant, float64(radiusM)) {
		return denied(ReasonGeofence)
	}

	return allowed()
}

// CheckCooldown denies when the previous qualifying claim is closer than the
// cooldown window. lastAt is ignored when hasLast is false (first visit).
func CheckCooldown(hasLast bool, lastAt, now time.Time, cooldown time.Duration) Decision {
	if !hasLast || cooldown <= 0 {
		return allowed()
	}

	if now.Sub(lastAt) < cooldown {
		return denied(ReasonCooldown)
	}

	return allowed()
}

// CheckDailyCap denies when the actor has already hit the per-day cap
// against this target. A cap of zero or less means uncapped.
func CheckDailyCap(todayCount, capPerDay int) Decision {
	if capPerDay <= 0 {
		return allowed()
	}

	if todayCount >= capPerDay {
		return denied(ReasonDailyCap)
	}

	return allowed()
}

// UTCDayStart returns midnight UTC of the day containing t.
func UTCDayStart(t time.Time) time.Time {
	u := t.UTC()
	return time.Date(u.Year(), u.Month(), u.Day(), 0, 0, 0, 0, time.UTC)
}

// CooldownBucketID derives the deterministic dedup key for the cooldown
// window containing now: floor(now / window) scoped to (actor, target).
func CooldownBucketID(actorID, targetID string, now time.Time, window time.Duration) string {
	bucket := now.UnixMilli() / window.Milliseconds()
	return bucketID("cd", actorID, targetID, bucket)
}

// DailyCapBucketID derives the deterministic dedup key for the UTC day
// containing now, scoped to (actor, target, sequence-within-cap). Claims
// below the cap occupy distinct slots; the slot at the cap collides.
func DailyCapBucketID(actorID, targetID string, now time.Time, slot int) string {
	day := UTCDayStart(now).UnixMilli()
	return bucketID("day", actorID, targetID, day) + fmt.Sprintf("_%d", slot)
}

// GrantBucketID derives the dedup key guarding a once-only badge grant.
func GrantBucketID(actorID, badgeType string) string {
	return bucketID("grant", actorID, badgeType, 0)
}

func bucketID(purpose, actorID, targetID string, bucket int64) string {
	sum := sha256.Sum256([]byte(fmt.Sprintf("eco|%s|%s|%s|%d", purpose, actorID, targetID, bucket)))
	return purpose + "_" + hex.EncodeToString(sum[:])[:24]
}
