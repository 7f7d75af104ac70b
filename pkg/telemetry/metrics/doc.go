// Package metrics provides Prometheus metrics for the vigil safety engine.
//
// # Metrics
//
//   - Engine: evaluation counts by kind and level, interventions chosen,
//     crisis detections, evaluation latency, persistence failures
//   - Catalog: reload attempts by result, active pattern count
//   - Profiles: users monitored and users on a high-risk tier
//   - HTTP: API request counts and latency by route, requests in flight,
//     rejected API keys by reason, and scrapes of the metrics endpoint
//
// # Usage
//
//	collector := metrics.NewCollector(&cfg.Telemetry.Metrics, nil)
//	eng := engine.New(engine.WithRecorder(collector))
//	mux.Handle(cfg.Telemetry.Metrics.Path, collector.Handler())
//
// Every recording method is a no-op when metrics are disabled.
//
// # Exposition
//
//	# HELP vigil_engine_evaluations_total Total number of safety evaluations
//	# TYPE vigil_engine_evaluations_total counter
//	vigil_engine_evaluations_total{kind="interaction",level="warning"} 12
package metrics
