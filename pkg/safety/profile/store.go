package profile

import (
	"context"
	"time"

	"mercator-hq/vigil/pkg/safety"
)

// Store persists user risk profiles.
// Implementations must be safe for concurrent use.
type Store interface {
	// Get returns the profile for userID, or nil if none exists.
	Get(ctx context.Context, userID string) (*safety.Profile, error)

	// Upsert creates or replaces a profile.
	Upsert(ctx context.Context, p *safety.Profile) error

	// List returns every stored profile.
	List(ctx context.Context) ([]*safety.Profile, error)

	// Delete removes a profile. Deleting a missing profile is not an error.
	Delete(ctx context.Context, userID string) error

	// Cleanup removes profiles not updated since olderThan and returns how
	// many were removed.
	Cleanup(ctx context.Context, olderThan time.Time) (int, error)

	// Close releases resources held by the store.
	Close() error
}

// Stats summarises the stored profiles.
type Stats struct {
	Users         int                 `json:"users"`
	HighRiskUsers int                 `json:"high_risk_users"`
	ByTier        map[safety.Tier]int `json:"by_tier"`
}

// Summarize counts profiles by tier.
func Summarize(ctx context.Context, store Store) (*Stats, error) {
	profiles, err := store.List(ctx)
	if err != nil {
		return nil, err
	}

	stats := &Stats{ByTier: make(map[safety.Tier]int, len(safety.Tiers()))}
	for _, tier := range safety.Tiers() {
		stats.ByTier[tier] = 0
	}
	for _, p := range profiles {
		stats.Users++
		stats.ByTier[p.Tier]++
		if p.Tier.HighRisk() {
			stats.HighRiskUsers++
		}
	}
	return stats, nil
}
