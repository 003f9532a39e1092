// Package claims orchestrates claim processing: target lookup, guard
// checks, dedup bucket creation, reward calculation, and the ledger append.
// A denial never writes a bucket or a transaction, so a denied attempt
// cannot poison a later legitimate one in the same window.
package claims

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/EcodiaTate/site-backend-sub000/internal/geo"
	"github.com/EcodiaTate/site-backend-sub000/internal/guard"
	"github.com/EcodiaTate/site-backend-sub000/internal/infra/metrics"
	"github.com/EcodiaTate/site-backend-sub000/internal/ledger"
	"github.com/EcodiaTate/site-backend-sub000/internal/repos/dedup"
	ledgerrepo "github.com/EcodiaTate/site-backend-sub000/internal/repos/ledger"
	"github.com/EcodiaTate/site-backend-sub000/internal/repos/targets"
	"github.com/EcodiaTate/site-backend-sub000/internal/rewards"
	"github.com/EcodiaTate/site-backend-sub000/internal/services/multipliers"
)

const sourceClaim = "claim"

type Service struct {
	ledger  ledgerrepo.Store
	dedup   dedup.Store
	targets targets.Store
	stack   *multipliers.Resolver
	cfg     rewards.Config
	now     func() time.Time
}

func New(ledgerStore ledgerrepo.Store, dedupStore dedup.Store, targetStore targets.Store,
	stack *multipliers.Resolver, cfg rewards.Config,
) *Service {
	return &Service{
		ledger:  ledgerStore,
		dedup:   dedupStore,
		targets: targetStore,
		stack:   stack,
		cfg:     cfg,
		now:     time.Now,
	}
}

// ClaimRequest is one inbound claim. Coordinates are optional; GroupSize is
// how many participants are claiming together (0 and 1 both mean alone).
type ClaimRequest struct {
	ActorID     string
	TargetCode  string
	Coordinates *geo.Coordinates
	GroupSize   int
}

// ClaimResult reports the outcome. Denials set OK=false with a Reason and
// are not errors; errors are reserved for dependency failures.
type ClaimResult struct {
	OK           bool
	Reason       guard.Reason
	Awarded      int64
	XP           int64
	BalanceAfter int64
	TxID         string
	TargetName   string
}

// SubmitClaim runs the claim state machine. Store calls are sequential and
// not wrapped in one cross-store transaction; at-most-once acceptance rests
// on the dedup store's CreateIfAbsent and the ledger's append-if-absent.
func (s *Service) SubmitClaim(ctx context.Context, req ClaimRequest) (ClaimResult, error) {
	started := s.now()
	defer func() {
		metrics.ClaimDuration.Observe(time.Since(started).Seconds())
	}()

	target, err := s.targets.GetByCode(ctx, req.TargetCode)
	if err != nil {
		return ClaimResult{}, fmt.Errorf("lookup target: %w", err)
	}
	if !target.Active {
		return ClaimResult{}, targets.ErrTargetNotFound
	}

	result := ClaimResult{TargetName: target.Name}

	// Guard phase: pure checks over current facts. No writes yet.
	gf := guard.CheckGeofence(req.Coordinates, target.Lat, target.Lng, target.GeofenceRadiusM)
	if gf.Outcome == guard.Denied {
		return s.deny(result, gf.Reason), nil
	}
	if gf.Outcome == guard.Skipped && target.GeofenceRadiusM > 0 {
		slog.Warn("geofence skipped on geofenced target",
			"target", target.Code, "actor", req.ActorID)
	}

	now := s.now()

	lastAt, hasLast, err := s.ledger.LastEarnAt(ctx, req.ActorID, target.Code)
	if err != nil {
		return ClaimResult{}, fmt.Errorf("last earn: %w", err)
	}

	cd := guard.CheckCooldown(hasLast, lastAt, now, target.Cooldown())
	if cd.Outcome == guard.Denied {
		return s.deny(result, cd.Reason), nil
	}

	todayCount, err := s.ledger.EarnCountSince(ctx, req.ActorID, target.Code, guard.UTCDayStart(now))
	if err != nil {
		return ClaimResult{}, fmt.Errorf("daily count: %w", err)
	}

	dc := guard.CheckDailyCap(todayCount, target.DailyCapPerUser)
	if dc.Outcome == guard.Denied {
		return s.deny(result, dc.Reason), nil
	}

	// Proceed phase: buckets are created only now, and strictly before the
	// append. A lost race here is converted to the matching denial.
	created, err := s.dedup.CreateIfAbsent(ctx,
		guard.CooldownBucketID(req.ActorID, target.Code, now, target.Cooldown()))
	if err != nil {
		return ClaimResult{}, fmt.Errorf("cooldown bucket: %w", err)
	}
	if !created {
		return s.deny(result, guard.ReasonCooldown), nil
	}

	created, err = s.dedup.CreateIfAbsent(ctx,
		guard.DailyCapBucketID(req.ActorID, target.Code, now, todayCount))
	if err != nil {
		return ClaimResult{}, fmt.Errorf("daily cap bucket: %w", err)
	}
	if !created {
		return s.deny(result, guard.ReasonDailyCap), nil
	}

	stack, err := s.stack.Resolve(ctx, req.ActorID, now)
	if err != nil {
		return ClaimResult{}, fmt.Errorf("resolve multipliers: %w", err)
	}

	reward := rewards.Calculate(s.cfg, rewards.Input{
		BaseFirstVisit:  target.FirstVisit,
		BaseReturnVisit: target.ReturnVisit,
		FirstVisit:      !hasLast,
		Tier:            target.Tier,
		SeasonActive:    stack.SeasonActive,
		GroupSize:       req.GroupSize,
		Referral:        stack.ReferralActive,
		TitleBoost:      stack.TitleBoost,
	})

	tx := ledger.Transaction{
		ID:             ledger.NewID(),
		ActorID:        req.ActorID,
		CounterpartyID: target.Code,
		Kind:           ledger.KindMint,
		Direction:      ledger.DirectionEarned,
		Amount:         reward.Points,
		XP:             reward.XP,
		Status:         ledger.StatusSettled,
		Source:         sourceClaim,
		Reason:         "visit",
		CorrelationRefs: []string{
			guard.CooldownBucketID(req.ActorID, target.Code, now, target.Cooldown()),
		},
		CreatedAt: now,
	}

	err = s.ledger.Append(ctx, tx)
	if err != nil {
		// A duplicate here means a racing writer beat us past the buckets;
		// surface it as the cooldown denial rather than an internal error.
		if errors.Is(err, ledger.ErrDuplicateTransaction) {
			slog.Warn("claim append lost idempotency race",
				"actor", req.ActorID, "target", target.Code)
			return s.deny(result, guard.ReasonCooldown), nil
		}

		return ClaimResult{}, fmt.Errorf("append transaction: %w", err)
	}

	metrics.LedgerAppendsTotal.WithLabelValues(string(ledger.KindMint)).Inc()
	metrics.ClaimsTotal.WithLabelValues("accepted").Inc()

	totals, err := s.ledger.Totals(ctx, req.ActorID)
	if err != nil {
		return ClaimResult{}, fmt.Errorf("totals after append: %w", err)
	}

	slog.Info("claim accepted",
		"actor", req.ActorID, "target", target.Code,
		"amount", reward.Points, "xp", reward.XP, "first_visit", !hasLast)

	result.OK = true
	result.Awarded = reward.Points
	result.XP = reward.XP
	result.BalanceAfter = totals.Balance()
	result.TxID = tx.ID

	return result, nil
}

func (s *Service) deny(r ClaimResult, reason guard.Reason) ClaimResult {
	metrics.ClaimsTotal.WithLabelValues(string(reason)).Inc()
	slog.Info("claim denied", "reason", string(reason), "target", r.TargetName)

	r.OK = false
	r.Reason = reason

	return r
}
