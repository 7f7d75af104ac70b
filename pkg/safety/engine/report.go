package engine

import (
	"context"
	"fmt"
	"time"

	"mercator-hq/vigil/pkg/safety"
	"mercator-hq/vigil/pkg/safety/profile"
)

// recentEventLimit is how many events a report carries verbatim.
const recentEventLimit = 10

// Report summarises recorded events and monitored users.
type Report struct {
	GeneratedAt      time.Time                   `json:"generated_at"`
	CatalogVersion   string                      `json:"catalog_version"`
	TotalEvents      int                         `json:"total_events"`
	CriticalEvents   int                         `json:"critical_events"`
	UnresolvedEvents int                         `json:"unresolved_events"`
	UsersMonitored   int                         `json:"users_monitored"`
	HighRiskUsers    int                         `json:"high_risk_users"`
	RecentEvents     []*safety.Event             `json:"recent_events"`
	BySeverity       map[safety.Level]int        `json:"by_severity"`
	ByIntervention   map[safety.Intervention]int `json:"by_intervention"`
	ByTier           map[safety.Tier]int         `json:"by_tier"`
}

// GenerateReport aggregates the event log and the profile store. Every
// level, intervention and tier is present in the breakdowns.
func (e *Engine) GenerateReport(ctx context.Context) (*Report, error) {
	summary, err := e.events.Summary(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to summarise events: %w", err)
	}
	recent, err := e.events.Recent(ctx, recentEventLimit)
	if err != nil {
		return nil, fmt.Errorf("failed to load recent events: %w", err)
	}
	stats, err := profile.Summarize(ctx, e.profiles.Store())
	if err != nil {
		return nil, fmt.Errorf("failed to summarise profiles: %w", err)
	}
	if recent == nil {
		recent = []*safety.Event{}
	}

	return &Report{
		GeneratedAt:      e.now().UTC(),
		CatalogVersion:   e.catalog.Current().Version(),
		TotalEvents:      summary.Total,
		CriticalEvents:   summary.AtLeast(safety.LevelCritical),
		UnresolvedEvents: summary.Unresolved,
		UsersMonitored:   stats.Users,
		HighRiskUsers:    stats.HighRiskUsers,
		RecentEvents:     recent,
		BySeverity:       summary.ByLevel,
		ByIntervention:   summary.ByIntervention,
		ByTier:           stats.ByTier,
	}, nil
}
