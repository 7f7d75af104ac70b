package metrics

import (
	"mercator-hq/vigil/pkg/config"
	"mercator-hq/vigil/pkg/safety/catalog"

	"github.com/prometheus/client_golang/prometheus"
)

// Reload results.
const (
	ReloadChanged   = "changed"
	ReloadUnchanged = "unchanged"
	ReloadFailed    = "failed"
)

// CatalogMetrics tracks pattern catalog reloads.
type CatalogMetrics struct {
	reloadsTotal   *prometheus.CounterVec
	reloadDuration prometheus.Histogram
	patterns       prometheus.Gauge
}

// NewCatalogMetrics creates and registers catalog metrics.
func NewCatalogMetrics(cfg *config.MetricsConfig, registry *prometheus.Registry) *CatalogMetrics {
	cm := &CatalogMetrics{
		reloadsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: "catalog",
				Name:      "reloads_total",
				Help:      "Total number of catalog reload attempts",
			},
			[]string{"result"},
		),

		reloadDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: cfg.Namespace,
				Subsystem: "catalog",
				Name:      "reload_duration_seconds",
				Help:      "Duration of successful catalog reloads in seconds",
				Buckets:   prometheus.ExponentialBuckets(0.001, 4, 8),
			},
		),

		patterns: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: cfg.Namespace,
				Subsystem: "catalog",
				Name:      "patterns",
				Help:      "Number of patterns in the active catalog",
			},
		),
	}

	registry.MustRegister(cm.reloadsTotal, cm.reloadDuration, cm.patterns)
	return cm
}

// RecordReload records the result of a reload attempt.
func (cm *CatalogMetrics) RecordReload(result *catalog.ReloadResult, err error) {
	switch {
	case err != nil || result == nil:
		cm.reloadsTotal.WithLabelValues(ReloadFailed).Inc()
		return
	case result.Changed:
		cm.reloadsTotal.WithLabelValues(ReloadChanged).Inc()
	default:
		cm.reloadsTotal.WithLabelValues(ReloadUnchanged).Inc()
	}
	cm.reloadDuration.Observe(result.Duration.Seconds())
}
