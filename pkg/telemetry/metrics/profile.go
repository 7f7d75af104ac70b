package metrics

import (
	"mercator-hq/vigil/pkg/config"
	"mercator-hq/vigil/pkg/safety/profile"

	"github.com/prometheus/client_golang/prometheus"
)

// ProfileMetrics exposes the population of stored user risk profiles.
type ProfileMetrics struct {
	users    prometheus.Gauge
	highRisk prometheus.Gauge
	byTier   *prometheus.GaugeVec
}

// NewProfileMetrics creates and registers profile metrics.
func NewProfileMetrics(cfg *config.MetricsConfig, registry *prometheus.Registry) *ProfileMetrics {
	pm := &ProfileMetrics{
		users: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: cfg.Namespace,
			Subsystem: "profiles",
			Name:      "users",
			Help:      "Number of users with a stored risk profile",
		}),
		highRisk: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: cfg.Namespace,
			Subsystem: "profiles",
			Name:      "high_risk",
			Help:      "Number of users on the enhanced or maximum protection tier",
		}),
		byTier: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: cfg.Namespace,
			Subsystem: "profiles",
			Name:      "by_tier",
			Help:      "Number of users per protection tier",
		}, []string{"tier"}),
	}

	registry.MustRegister(pm.users, pm.highRisk, pm.byTier)
	return pm
}

// Update replaces the gauge values with stats.
func (pm *ProfileMetrics) Update(stats *profile.Stats) {
	pm.users.Set(float64(stats.Users))
	pm.highRisk.Set(float64(stats.HighRiskUsers))
	pm.byTier.Reset()
	for tier, n := range stats.ByTier {
		pm.byTier.WithLabelValues(string(tier)).Set(float64(n))
	}
}
