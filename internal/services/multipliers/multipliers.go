// Package multipliers resolves the per-actor multiplier stack (season,
// referral boost, best title) that feeds the reward calculator and the
// progression view. Group bonuses are per-claim and resolved by the caller.
package multipliers

import (
	"context"
	"fmt"
	"time"

	"github.com/EcodiaTate/site-backend-sub000/internal/repos/actions"
	"github.com/EcodiaTate/site-backend-sub000/internal/repos/badges"
	"github.com/EcodiaTate/site-backend-sub000/internal/rewards"
)

// ActionReferral is the approved-action type that arms the referral boost.
const ActionReferral = "referral"

// Stack is the resolved multiplier context for one actor at one instant.
type Stack struct {
	SeasonActive     bool    `json:"season_active"`
	SeasonName       string  `json:"season_name,omitempty"`
	SeasonMultiplier float64 `json:"season_multiplier,omitempty"`
	ReferralActive   bool    `json:"referral_active"`
	ReferralBoost    float64 `json:"referral_boost,omitempty"`
	TitleBadge       string  `json:"title_badge,omitempty"`
	TitleBoost       float64 `json:"title_boost,omitempty"`
}

type Resolver struct {
	cfg     rewards.Config
	actions actions.Store
	badges  badges.Store
}

func NewResolver(cfg rewards.Config, actionStore actions.Store, badgeStore badges.Store) *Resolver {
	return &Resolver{cfg: cfg, actions: actionStore, badges: badgeStore}
}

// Resolve derives the actor's stack: the configured season when now falls in
// its window, a referral boost while a referral approval is fresh, and the
// single best title boost among held badges.
func (r *Resolver) Resolve(ctx context.Context, actorID string, now time.Time) (Stack, error) {
	var s Stack

	if r.cfg.Season.ActiveAt(now) {
		s.SeasonActive = true
		s.SeasonName = r.cfg.Season.Name
		s.SeasonMultiplier = r.cfg.Season.Multiplier
	}

	acts, err := r.actions.ListByActor(ctx, actorID)
	if err != nil {
		return Stack{}, fmt.Errorf("list actions: %w", err)
	}

	window := r.cfg.Referral.Window.Duration
	for _, a := range acts {
		if a.ActionType != ActionReferral || window <= 0 {
			continue
		}
		if now.Sub(a.ApprovedAt) >= 0 && now.Sub(a.ApprovedAt) < window {
			s.ReferralActive = true
			s.ReferralBoost = r.cfg.Referral.Boost
			break
		}
	}

	grants, err := r.badges.ListByActor(ctx, actorID)
	if err != nil {
		return Stack{}, fmt.Errorf("list badges: %w", err)
	}

	for _, g := range grants {
		boost := r.cfg.Titles[g.BadgeType]
		if boost > s.TitleBoost {
			s.TitleBoost = boost
			s.TitleBadge = g.BadgeType
		}
	}

	return s, nil
}
