// Package progression derives gamification state from ledger facts: XP
// levels, day streaks, badge eligibility, and competition ranking. All
// functions are pure; the service layer supplies the facts.
package progression

import "time"

// XPForLevel is the monotonic level curve: total XP required to hold level L.
// f(0)=0, f(1)=50, f(2)=150, f(3)=300 — a quadratic ramp.
func XPForLevel(level int) int64 {
	if level <= 0 {
		return 0
	}
	l := int64(level)
	return 25 * l * (l + 1)
}

// LevelForXP returns the highest level whose requirement totalXP meets.
func LevelForXP(totalXP int64) int {
	if totalXP <= 0 {
		return 0
	}

	level := 0
	for XPForLevel(level+1) <= totalXP {
		level++
	}

	return level
}

// XPToNext returns how much XP is missing for the next level.
func XPToNext(totalXP int64) int64 {
	next := XPForLevel(LevelForXP(totalXP) + 1)
	return next - totalXP
}

// StreakDays counts consecutive UTC days with qualifying activity, walking
// back from today (or yesterday, when today is quiet so an in-progress day
// does not break the streak). activeDays holds "2006-01-02" UTC day keys;
// windowDays bounds the walk.
func StreakDays(activeDays map[string]bool, now time.Time, windowDays int) int {
	day := now.UTC().Truncate(24 * time.Hour)

	if !activeDays[DayKey(day)] {
		day = day.AddDate(0, 0, -1)
	}

	streak := 0
	for streak < windowDays && activeDays[DayKey(day)] {
		streak++
		day = day.AddDate(0, 0, -1)
	}

	return streak
}

// DayKey formats a time as its UTC calendar-day key.
func DayKey(t time.Time) string {
	return t.UTC().Format("2006-01-02")
}

// Stats are the derived per-actor facts badge rules evaluate against.
type Stats struct {
	TotalEarned int64
	ClaimCount  int64
	StreakDays  int64
	Level       int64
}

// BadgeRule is a threshold over one Stats field. Badges are granted at most
// once per (actor, badge type); granting is the caller's concern.
type BadgeRule struct {
	BadgeType string
	Field     string
	GTE       int64
}

// Satisfied reports whether the rule's threshold is met.
func (r BadgeRule) Satisfied(s Stats) bool {
	switch r.Field {
	case "total_earned":
		return s.TotalEarned >= r.GTE
	case "claim_count":
		return s.ClaimCount >= r.GTE
	case "streak_days":
		return s.StreakDays >= r.GTE
	case "level":
		return s.Level >= r.GTE
	default:
		return false
	}
}

// Catalog is the built-in badge set. Title badges (boost-carrying) are not
// listed here; they arrive as approved actions of type "title".
func Catalog() []BadgeRule {
	return []BadgeRule{
		{BadgeType: "first_steps", Field: "claim_count", GTE: 1},
		{BadgeType: "regular", Field: "claim_count", GTE: 10},
		{BadgeType: "devoted", Field: "claim_count", GTE: 50},
		{BadgeType: "collector_100", Field: "total_earned", GTE: 100},
		{BadgeType: "collector_1000", Field: "total_earned", GTE: 1000},
		{BadgeType: "week_streak", Field: "streak_days", GTE: 7},
		{BadgeType: "month_streak", Field: "streak_days", GTE: 30},
		{BadgeType: "level_5", Field: "level", GTE: 5},
		{BadgeType: "level_10", Field: "level", GTE: 10},
	}
}

// ScoreRow is one leaderboard candidate before ranking.
type ScoreRow struct {
	ID    string
	Score int64
}

// RankedRow carries the competition rank: ties share a rank and the next
// distinct score resumes at 1 + count(strictly higher).
type RankedRow struct {
	ID    string
	Score int64
	Rank  int
}

// Rank assigns competition ranks. rows must already be sorted by score
// descending; order among equal scores is preserved.
func Rank(rows []ScoreRow) []RankedRow {
	ranked := make([]RankedRow, 0, len(rows))

	for i, row := range rows {
		rank := i + 1
		if i > 0 && row.Score == rows[i-1].Score {
			rank = ranked[i-1].Rank
		}

		ranked = append(ranked, RankedRow{ID: row.ID, Score: row.Score, Rank: rank})
	}

	return ranked
}
