package rewards

import (
	"fmt"
	"time"

	"github.com/BurntSushi/toml"
)

// Config is the reward-policy snapshot loaded once at startup and passed
// into Calculate per claim, keeping the calculator a pure function.
type Config struct {
	// CapFactor bounds the total multiplier applied to the point amount.
	// XP is never capped.
	CapFactor float64 `toml:"cap_factor"`

	// Tiers maps a claim target's pledge tier to its multiplier.
	Tiers map[string]float64 `toml:"tiers"`

	Season   Season   `toml:"season"`
	Group    Group    `toml:"group"`
	Referral Referral `toml:"referral"`

	// Titles maps a title badge type to its boost; only the best single
	// title applies.
	Titles map[string]float64 `toml:"titles"`
}

// Season is an optional emission boost bounded by a time window.
type Season struct {
	Name       string    `toml:"name"`
	Multiplier float64   `toml:"multiplier"`
	Start      time.Time `toml:"start"`
	End        time.Time `toml:"end"`
}

// ActiveAt reports whether the season boost applies at t.
func (s Season) ActiveAt(t time.Time) bool {
	if s.Multiplier <= 0 || s.Start.IsZero() || s.End.IsZero() {
		return false
	}
	return !t.Before(s.Start) && t.Before(s.End)
}

// Group configures the grouped-activity bonus: each extra participant adds
// PerStack to the multiplier, up to MaxStacks stacks.
type Group struct {
	PerStack  float64 `toml:"per_stack"`
	MaxStacks int     `toml:"max_stacks"`
}

// Referral configures the time-limited boost after a referral is approved.
type Referral struct {
	Boost  float64  `toml:"boost"`
	Window Duration `toml:"window"`
}

// Duration parses TOML strings like "168h" via time.ParseDuration.
type Duration struct {
	time.Duration
}

func (d *Duration) UnmarshalText(text []byte) error {
	parsed, err := time.ParseDuration(string(text))
	if err != nil {
		return fmt.Errorf("parse duration: %w", err)
	}

	d.Duration = parsed

	return nil
}

const (
	TierStarter = "starter"
	TierBuilder = "builder"
	TierLeader  = "leader"
)

// DefaultConfig mirrors the policy the service ships with; the TOML file
// overrides it wholesale.
func DefaultConfig() Config {
	return Config{
		CapFactor: 3.0,
		Tiers: map[string]float64{
			TierStarter: 1.0,
			TierBuilder: 1.15,
			TierLeader:  1.3,
		},
		Group:    Group{PerStack: 0.1, MaxStacks: 3},
		Referral: Referral{Boost: 1.2, Window: Duration{7 * 24 * time.Hour}},
		Titles:   map[string]float64{},
	}
}

// LoadConfig reads the snapshot from a TOML file. Missing optional sections
// fall back to defaults.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()

	_, err := toml.DecodeFile(path, &cfg)
	if err != nil {
		return Config{}, fmt.Errorf("decode rewards config %s: %w", path, err)
	}

	if cfg.CapFactor <= 0 {
		return Config{}, fmt.Errorf("rewards config: cap_factor must be positive")
	}

	return cfg, nil
}

// TierMultiplier resolves a tier name, defaulting unknown tiers to starter.
func (c Config) TierMultiplier(tier string) float64 {
	m, ok := c.Tiers[tier]
	if !ok || m <= 0 {
		return 1.0
	}
	return m
}
