// Package telemetry groups the observability packages used by vigil.
//
// # Components
//
//   - logging: slog construction from configuration, request IDs in
//     context, redaction of user text, and a security log that receives
//     a copy of CRITICAL and EMERGENCY records
//   - metrics: Prometheus collectors for requests, verdicts, interventions,
//     the catalog and the profile population
//   - tracing: OpenTelemetry spans exported over OTLP/gRPC
//   - health: liveness, readiness and version endpoints
//
// # Usage
//
//	logs, err := logging.NewFromConfig(cfg.Telemetry.Logging, os.Stdout)
//	collector := metrics.NewCollector(&cfg.Telemetry.Metrics, nil)
//	tracer, err := tracing.New(&cfg.Telemetry.Tracing, version)
//
//	eng := engine.New(
//		engine.WithLogger(logs.Slog()),
//		engine.WithRecorder(collector),
//		engine.WithTracer(tracer.Tracer()),
//	)
//
// User input never reaches the logs verbatim. Pattern matches are logged by
// pattern ID and category, and free text is passed through the redactor.
package telemetry
