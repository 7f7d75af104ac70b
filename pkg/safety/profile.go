package safety

import (
	"fmt"
	"strings"
	"time"
)

// Score bounds for distress and dependency.
const (
	MinScore = 0.0
	MaxScore = 10.0
)

// MaxSnippetLength is the maximum number of characters kept for a crisis snippet.
const MaxSnippetLength = 100

// Enhanced tier thresholds. Either score crossing its threshold is enough.
const (
	EnhancedDistressThreshold   = 7.0
	EnhancedDependencyThreshold = 6.0
)

// Tier is a user's protection tier.
type Tier string

const (
	TierStandard Tier = "standard"
	TierEnhanced Tier = "enhanced"
	TierMaximum  Tier = "maximum"
)

var tierRanks = map[Tier]int{
	TierStandard: 0,
	TierEnhanced: 1,
	TierMaximum:  2,
}

// Tiers returns every tier in ascending rank order.
func Tiers() []Tier {
	return []Tier{TierStandard, TierEnhanced, TierMaximum}
}

// Rank returns the declared rank of the tier. Unknown tiers rank as standard.
func (t Tier) Rank() int {
	return tierRanks[t]
}

// Valid reports whether t is a known tier.
func (t Tier) Valid() bool {
	_, ok := tierRanks[t]
	return ok
}

// HighRisk reports whether the tier is enhanced or maximum.
func (t Tier) HighRisk() bool {
	return t.Rank() >= TierEnhanced.Rank()
}

// ParseTier parses a tier label. Matching is case-insensitive.
func ParseTier(s string) (Tier, error) {
	t := Tier(strings.ToLower(strings.TrimSpace(s)))
	if !t.Valid() {
		return TierStandard, fmt.Errorf("unknown protection tier %q", s)
	}
	return t, nil
}

// CrisisEntry is a single crisis indicator recorded on a profile.
type CrisisEntry struct {
	Timestamp time.Time `json:"timestamp"`
	Snippet   string    `json:"snippet"`
}

// Profile is the risk state tracked for one user.
type Profile struct {
	// UserID identifies the user.
	UserID string `json:"user_id"`

	// Distress is the emotional distress score in [0, 10].
	Distress float64 `json:"distress"`

	// Dependency is the dependency risk score in [0, 10].
	Dependency float64 `json:"dependency"`

	// CrisisHistory holds crisis indicators in the order they were seen.
	CrisisHistory []CrisisEntry `json:"crisis_history"`

	// Interactions counts evaluated interactions.
	Interactions int64 `json:"interactions"`

	// LastCrisisCheck is when a crisis indicator was last recorded.
	LastCrisisCheck time.Time `json:"last_crisis_check,omitempty"`

	// Tier is the protection tier. It is never lowered automatically.
	Tier Tier `json:"protection_tier"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// NewProfile returns a zero-score profile on the standard tier.
func NewProfile(userID string, now time.Time) *Profile {
	return &Profile{
		UserID:        userID,
		Tier:          TierStandard,
		CrisisHistory: []CrisisEntry{},
		CreatedAt:     now,
		UpdatedAt:     now,
	}
}

// Observe applies one interaction to the profile: the counter is
// incremented, each score grows by its match count and the tier is
// recomputed.
func (p *Profile) Observe(vulnerabilityMatches, dependencyMatches int, now time.Time) {
	p.Interactions++
	p.Distress = clampScore(p.Distress + float64(vulnerabilityMatches))
	p.Dependency = clampScore(p.Dependency + float64(dependencyMatches))
	p.Tier = RaiseTier(p.Tier, DeriveTier(p.Distress, p.Dependency))
	p.UpdatedAt = now
}

// RecordCrisis forces the maximum tier and appends a truncated snippet.
func (p *Profile) RecordCrisis(input string, now time.Time) {
	p.Tier = TierMaximum
	p.CrisisHistory = append(p.CrisisHistory, CrisisEntry{
		Timestamp: now,
		Snippet:   TruncateSnippet(input, MaxSnippetLength),
	})
	p.LastCrisisCheck = now
	p.UpdatedAt = now
}

// Clone returns a deep copy of the profile.
func (p *Profile) Clone() *Profile {
	if p == nil {
		return nil
	}
	c := *p
	c.CrisisHistory = make([]CrisisEntry, len(p.CrisisHistory))
	copy(c.CrisisHistory, p.CrisisHistory)
	return &c
}

// DeriveTier returns the tier implied by the scores alone. Profiles start on
// the standard tier, so the score band that maps to standard never changes a
// profile and is folded into the default.
func DeriveTier(distress, dependency float64) Tier {
	if distress >= EnhancedDistressThreshold || dependency >= EnhancedDependencyThreshold {
		return TierEnhanced
	}
	return TierStandard
}

// RaiseTier returns the higher-ranked of current and candidate.
func RaiseTier(current, candidate Tier) Tier {
	if !current.Valid() {
		current = TierStandard
	}
	if candidate.Rank() > current.Rank() {
		return candidate
	}
	return current
}

// TruncateSnippet shortens s to at most max characters without splitting runes.
func TruncateSnippet(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max])
}

func clampScore(v float64) float64 {
	if v < MinScore {
		return MinScore
	}
	if v > MaxScore {
		return MaxScore
	}
	return v
}
