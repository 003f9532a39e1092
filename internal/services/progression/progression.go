// Package progression serves the derived gamification views (level, streak,
// badges, leaderboards) and ingests the approved-action feed. Everything it
// reports is recomputed from the ledger and grant records on each call.
package progression

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/EcodiaTate/site-backend-sub000/internal/infra/metrics"
	"github.com/EcodiaTate/site-backend-sub000/internal/ledger"
	"github.com/EcodiaTate/site-backend-sub000/internal/progression"
	"github.com/EcodiaTate/site-backend-sub000/internal/repos/actions"
	"github.com/EcodiaTate/site-backend-sub000/internal/repos/badges"
	ledgerrepo "github.com/EcodiaTate/site-backend-sub000/internal/repos/ledger"
	"github.com/EcodiaTate/site-backend-sub000/internal/rewards"
	"github.com/EcodiaTate/site-backend-sub000/internal/services/multipliers"
)

const (
	streakWindowDays = 30
	leaderboardDepth = 500 // ranked in memory; deep pages read from here
	pageSize         = 25
)

type Service struct {
	ledger  ledgerrepo.Store
	actions actions.Store
	badges  badges.Store
	stack   *multipliers.Resolver
	cfg     rewards.Config
	now     func() time.Time
}

func New(ledgerStore ledgerrepo.Store, actionStore actions.Store, badgeStore badges.Store,
	stack *multipliers.Resolver, cfg rewards.Config,
) *Service {
	return &Service{
		ledger:  ledgerStore,
		actions: actionStore,
		badges:  badgeStore,
		stack:   stack,
		cfg:     cfg,
		now:     time.Now,
	}
}

// State is the derived progression view for one actor.
type State struct {
	Level      int
	XPTotal    int64
	XPToNext   int64
	StreakDays int
	Badges     []badges.Grant
	Stack      multipliers.Stack
}

// Progression computes the actor's state and, as a side effect, grants any
// newly earned threshold badges (grant-once is dedup-guarded in the store).
func (s *Service) Progression(ctx context.Context, actorID string) (State, error) {
	now := s.now()

	totals, err := s.ledger.Totals(ctx, actorID)
	if err != nil {
		return State{}, fmt.Errorf("totals: %w", err)
	}

	claimCount, err := s.ledger.EarnCount(ctx, actorID)
	if err != nil {
		return State{}, fmt.Errorf("earn count: %w", err)
	}

	since := now.AddDate(0, 0, -streakWindowDays)
	days, err := s.ledger.ActiveDaysSince(ctx, actorID, since)
	if err != nil {
		return State{}, fmt.Errorf("active days: %w", err)
	}

	activeDays := make(map[string]bool, len(days))
	for _, d := range days {
		activeDays[d] = true
	}

	level := progression.LevelForXP(totals.XP)
	streak := progression.StreakDays(activeDays, now, streakWindowDays)

	stats := progression.Stats{
		TotalEarned: totals.Earned,
		ClaimCount:  claimCount,
		StreakDays:  int64(streak),
		Level:       int64(level),
	}

	err = s.evaluateBadges(ctx, actorID, stats)
	if err != nil {
		return State{}, err
	}

	grants, err := s.badges.ListByActor(ctx, actorID)
	if err != nil {
		return State{}, fmt.Errorf("list badges: %w", err)
	}

	stack, err := s.stack.Resolve(ctx, actorID, now)
	if err != nil {
		return State{}, fmt.Errorf("resolve multipliers: %w", err)
	}

	return State{
		Level:      level,
		XPTotal:    totals.XP,
		XPToNext:   progression.XPToNext(totals.XP),
		StreakDays: streak,
		Badges:     grants,
		Stack:      stack,
	}, nil
}

func (s *Service) evaluateBadges(ctx context.Context, actorID string, stats progression.Stats) error {
	for _, rule := range progression.Catalog() {
		if !rule.Satisfied(stats) {
			continue
		}

		created, err := s.badges.GrantIfAbsent(ctx, actorID, rule.BadgeType)
		if err != nil {
			return fmt.Errorf("grant badge %s: %w", rule.BadgeType, err)
		}

		if created {
			metrics.BadgeGrantsTotal.WithLabelValues(rule.BadgeType).Inc()
			slog.Info("badge granted", "actor", actorID, "badge", rule.BadgeType)
		}
	}

	return nil
}

// Leaderboard periods.
const (
	PeriodWeekly  = "weekly"
	PeriodMonthly = "monthly"
	PeriodTotal   = "total"
)

// Entry is one ranked leaderboard row.
type Entry struct {
	Rank  int    `json:"rank"`
	ID    string `json:"id"`
	Score int64  `json:"score"`
}

// Leaderboard ranks earned totals over the period with competition ties:
// equal scores share a rank, the next distinct score resumes at
// 1 + count(strictly higher). page is 1-based.
func (s *Service) Leaderboard(ctx context.Context, scope ledgerrepo.ScoreBy, period string, page int) ([]Entry, error) {
	var since time.Time
	switch period {
	case PeriodWeekly:
		since = s.now().AddDate(0, 0, -7)
	case PeriodMonthly:
		since = s.now().AddDate(0, 0, -30)
	case PeriodTotal, "":
		since = time.Time{}
	default:
		return nil, fmt.Errorf("unknown period %q", period)
	}

	if scope != ledgerrepo.ScoreByActor && scope != ledgerrepo.ScoreByCounterparty {
		return nil, fmt.Errorf("unknown scope %q", scope)
	}

	rows, err := s.ledger.TopTotals(ctx, scope, since, leaderboardDepth)
	if err != nil {
		return nil, fmt.Errorf("top totals: %w", err)
	}

	scores := make([]progression.ScoreRow, len(rows))
	for i, r := range rows {
		scores[i] = progression.ScoreRow{ID: r.ID, Score: r.Score}
	}

	ranked := progression.Rank(scores)

	if page < 1 {
		page = 1
	}
	start := (page - 1) * pageSize
	if start >= len(ranked) {
		return []Entry{}, nil
	}
	end := start + pageSize
	if end > len(ranked) {
		end = len(ranked)
	}

	out := make([]Entry, 0, end-start)
	for _, r := range ranked[start:end] {
		out = append(out, Entry{Rank: r.Rank, ID: r.ID, Score: r.Score})
	}

	return out, nil
}

// IngestApprovedAction records the action and materializes its ledger
// transaction immediately; there are no "virtual" earnings folded in at
// read time. The transaction id derives from the action id, so feed
// redelivery collides on append and is dropped.
func (s *Service) IngestApprovedAction(ctx context.Context, a actions.Action) error {
	if a.ID == "" || a.ActorID == "" {
		return fmt.Errorf("action id and actor id are required")
	}

	err := s.actions.Record(ctx, a)
	if err != nil {
		return fmt.Errorf("record action: %w", err)
	}

	tx := ledger.Transaction{
		ID:              ledger.ActionTxID(a.ID),
		ActorID:         a.ActorID,
		Kind:            ledger.KindMint,
		Direction:       ledger.DirectionEarned,
		Amount:          a.RewardAmount,
		XP:              a.XPAmount,
		Status:          ledger.StatusSettled,
		Source:          "action",
		Reason:          a.ActionType,
		CorrelationRefs: []string{a.ID},
		CreatedAt:       a.ApprovedAt,
	}

	err = s.ledger.Append(ctx, tx)
	if err != nil {
		if errors.Is(err, ledger.ErrDuplicateTransaction) {
			slog.Info("approved action redelivered, append skipped", "action", a.ID)
		} else {
			return fmt.Errorf("materialize action: %w", err)
		}
	} else {
		metrics.LedgerAppendsTotal.WithLabelValues(string(ledger.KindMint)).Inc()
	}

	// Title actions also grant their boost-carrying badge.
	if s.cfg.Titles[a.ActionType] > 0 {
		created, err := s.badges.GrantIfAbsent(ctx, a.ActorID, a.ActionType)
		if err != nil {
			return fmt.Errorf("grant title badge: %w", err)
		}
		if created {
			metrics.BadgeGrantsTotal.WithLabelValues(a.ActionType).Inc()
		}
	}

	return nil
}
