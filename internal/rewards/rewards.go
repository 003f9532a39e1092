// Package rewards computes the point and XP amounts for an accepted claim.
// The calculation is a pure function over the claim inputs and a Config
// snapshot; nothing here reads a store or a clock.
package rewards

import "math"

// Input carries everything a single calculation needs.
type Input struct {
	BaseFirstVisit  int64
	BaseReturnVisit int64
	FirstVisit      bool
	Tier            string

	// Multiplier context, resolved by the caller at claim time.
	SeasonActive bool
	GroupSize    int     // participants claiming together, 1 = alone
	Referral     bool    // time-limited referral boost active
	TitleBoost   float64 // best single title boost, 0 when none
}

// Result separates the capped point amount from the uncapped XP amount.
type Result struct {
	Points int64
	XP     int64

	// Multiplier is the full product; CappedMultiplier is what Points used.
	Multiplier       float64
	CappedMultiplier float64
}

// Calculate applies reward = round(base × episodic × Π(active multipliers)).
// The point amount uses the product clamped to cfg.CapFactor; XP uses the
// full product. Rounding happens exactly once, at the end.
func Calculate(cfg Config, in Input) Result {
	base := in.BaseReturnVisit
	if in.FirstVisit {
		base = in.BaseFirstVisit
	}
	if base <= 0 {
		return Result{Multiplier: 1, CappedMultiplier: 1}
	}

	episodic := 1.0
	if in.FirstVisit {
		episodic = 1.5
	}
	episodic *= cfg.TierMultiplier(in.Tier)

	active := 1.0
	if in.SeasonActive && cfg.Season.Multiplier > 0 {
		active *= cfg.Season.Multiplier
	}
	active *= groupMultiplier(cfg.Group, in.GroupSize)
	if in.Referral && cfg.Referral.Boost > 0 {
		active *= cfg.Referral.Boost
	}
	if in.TitleBoost > 0 {
		active *= in.TitleBoost
	}

	full := episodic * active
	capped := math.Min(full, cfg.CapFactor)

	points := int64(math.Round(float64(base) * capped))
	if points < 1 {
		points = 1
	}

	xp := int64(math.Round(float64(base) * full))
	if xp < 1 {
		xp = 1
	}

	return Result{
		Points:           points,
		XP:               xp,
		Multiplier:       full,
		CappedMultiplier: capped,
	}
}

// groupMultiplier adds PerStack per participant beyond the first, capped at
// MaxStacks stacks.
func groupMultiplier(g Group, size int) float64 {
	if g.PerStack <= 0 || size <= 1 {
		return 1.0
	}

	stacks := size - 1
	if g.MaxStacks > 0 && stacks > g.MaxStacks {
		stacks = g.MaxStacks
	}

	return 1.0 + g.PerStack*float64(stacks)
}
