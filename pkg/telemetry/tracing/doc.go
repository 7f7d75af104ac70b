// Package tracing provides OpenTelemetry tracing for vigil.
//
// # Overview
//
// When tracing is enabled, spans are exported over OTLP gRPC and W3C Trace
// Context is propagated on incoming API requests. When disabled, a noop
// tracer is returned so callers never branch on configuration.
//
// # Sampling
//
//   - always: sample every trace
//   - never: sample nothing
//   - ratio: sample a fraction of root traces by trace ID
//   - parent: follow the caller's decision, ratio for new roots
//
// # Usage
//
//	tracer, err := tracing.New(&cfg.Telemetry.Tracing, version)
//	if err != nil {
//	    return err
//	}
//	defer tracer.Shutdown(context.Background())
//
//	eng := engine.New(engine.WithTracer(tracer.Tracer()))
//
// Evaluation spans are named safety.evaluate_session and
// safety.evaluate_interaction and carry the verdict as safety.* attributes.
package tracing
