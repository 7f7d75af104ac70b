package metrics

import (
	"time"

	"mercator-hq/vigil/pkg/config"
	"mercator-hq/vigil/pkg/safety"
	"mercator-hq/vigil/pkg/safety/catalog"
	"mercator-hq/vigil/pkg/safety/profile"

	"github.com/prometheus/client_golang/prometheus"
)

// Collector owns the registry and every metric group. It satisfies the
// engine's Recorder interface.
type Collector struct {
	config   *config.MetricsConfig
	registry *prometheus.Registry

	engineMetrics  *EngineMetrics
	catalogMetrics *CatalogMetrics
	profileMetrics *ProfileMetrics
	httpMetrics    *HTTPMetrics
}

// NewCollector creates a collector and registers its metrics. A nil
// registry gets a fresh one rather than the global default so tests can
// build several collectors.
func NewCollector(cfg *config.MetricsConfig, registry *prometheus.Registry) *Collector {
	if registry == nil {
		registry = prometheus.NewRegistry()
	}
	if cfg.Namespace == "" {
		cfg.Namespace = config.DefaultMetricsNamespace
	}
	if len(cfg.EvaluationDurationBuckets) == 0 {
		cfg.EvaluationDurationBuckets = append([]float64(nil), config.DefaultEvaluationDurationBuckets...)
	}

	return &Collector{
		config:         cfg,
		registry:       registry,
		engineMetrics:  NewEngineMetrics(cfg, registry),
		catalogMetrics: NewCatalogMetrics(cfg, registry),
		profileMetrics: NewProfileMetrics(cfg, registry),
		httpMetrics:    NewHTTPMetrics(cfg, registry),
	}
}

// RecordEvaluation records one completed session or interaction evaluation.
func (c *Collector) RecordEvaluation(kind string, level safety.Level, intervention safety.Intervention, elapsed time.Duration) {
	if !c.config.Enabled {
		return
	}
	c.engineMetrics.RecordEvaluation(kind, level, intervention, elapsed)
}

// RecordCrisis counts a crisis detection.
func (c *Collector) RecordCrisis() {
	if !c.config.Enabled {
		return
	}
	c.engineMetrics.crisisTotal.Inc()
}

// RecordPersistenceError counts a failed profile or event write.
func (c *Collector) RecordPersistenceError(op string) {
	if !c.config.Enabled {
		return
	}
	c.engineMetrics.persistenceErrors.WithLabelValues(op).Inc()
}

// RecordCatalogReload records a reload attempt. It has the shape of a
// catalog.ReloadHook so it can be passed to catalog.WithReloadHook.
func (c *Collector) RecordCatalogReload(result *catalog.ReloadResult, err error) {
	if !c.config.Enabled {
		return
	}
	c.catalogMetrics.RecordReload(result, err)
}

// UpdateCatalog sets the active pattern count gauge.
func (c *Collector) UpdateCatalog(cat *catalog.Catalog) {
	if !c.config.Enabled || cat == nil {
		return
	}
	c.catalogMetrics.patterns.Set(float64(cat.Size()))
}

// UpdateProfiles refreshes the profile gauges from a store summary.
func (c *Collector) UpdateProfiles(stats *profile.Stats) {
	if !c.config.Enabled || stats == nil {
		return
	}
	c.profileMetrics.Update(stats)
}

// Registry returns the Prometheus registry used by this collector.
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}
