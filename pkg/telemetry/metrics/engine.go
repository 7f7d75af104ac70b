package metrics

import (
	"time"

	"mercator-hq/vigil/pkg/config"
	"mercator-hq/vigil/pkg/safety"

	"github.com/prometheus/client_golang/prometheus"
)

// EngineMetrics tracks evaluation outcomes.
//
// Metrics:
//   - vigil_engine_evaluations_total{kind,level}
//   - vigil_engine_interventions_total{intervention}
//   - vigil_engine_crisis_detections_total
//   - vigil_engine_evaluation_duration_seconds{kind}
//   - vigil_engine_persistence_errors_total{op}
type EngineMetrics struct {
	evaluationsTotal   *prometheus.CounterVec
	interventionsTotal *prometheus.CounterVec
	crisisTotal        prometheus.Counter
	evaluationDuration *prometheus.HistogramVec
	persistenceErrors  *prometheus.CounterVec
}

// NewEngineMetrics creates and registers engine metrics.
func NewEngineMetrics(cfg *config.MetricsConfig, registry *prometheus.Registry) *EngineMetrics {
	em := &EngineMetrics{
		evaluationsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: "engine",
				Name:      "evaluations_total",
				Help:      "Total number of safety evaluations",
			},
			[]string{"kind", "level"},
		),

		interventionsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: "engine",
				Name:      "interventions_total",
				Help:      "Total number of interventions selected",
			},
			[]string{"intervention"},
		),

		crisisTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: "engine",
				Name:      "crisis_detections_total",
				Help:      "Total number of crisis detections",
			},
		),

		evaluationDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: cfg.Namespace,
				Subsystem: "engine",
				Name:      "evaluation_duration_seconds",
				Help:      "Duration of safety evaluations in seconds",
				Buckets:   cfg.EvaluationDurationBuckets,
			},
			[]string{"kind"},
		),

		persistenceErrors: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: "engine",
				Name:      "persistence_errors_total",
				Help:      "Total number of failed profile or event writes",
			},
			[]string{"op"},
		),
	}

	registry.MustRegister(
		em.evaluationsTotal,
		em.interventionsTotal,
		em.crisisTotal,
		em.evaluationDuration,
		em.persistenceErrors,
	)

	return em
}

// RecordEvaluation records the outcome and latency of one evaluation.
func (em *EngineMetrics) RecordEvaluation(kind string, level safety.Level, intervention safety.Intervention, elapsed time.Duration) {
	em.evaluationsTotal.WithLabelValues(kind, level.String()).Inc()
	em.interventionsTotal.WithLabelValues(string(intervention)).Inc()
	em.evaluationDuration.WithLabelValues(kind).Observe(elapsed.Seconds())
}
