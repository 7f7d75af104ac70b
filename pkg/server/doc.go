// Package server exposes the safety engine over a JSON HTTP API.
//
// # Routes
//
//	POST /v1/sessions/evaluate          review a completed session
//	POST /v1/interactions/evaluate      evaluate one user input / model output pair
//	GET  /v1/users/{id}/crisis-response crisis resources for a user
//	GET  /v1/report                     aggregate safety report
//	POST /v1/events/{id}/resolve        mark a safety event resolved
//	GET  /v1/catalog                    active pattern catalog summary
//	POST /v1/catalog/reload             reload the catalog from its source
//
// Health probes and the Prometheus endpoint are mounted on the same mux at
// their configured paths.
//
// # Middleware
//
// Requests pass, outermost first, through panic recovery, request ID
// assignment, per-client rate limiting, and body size limiting. Each route
// is instrumented individually so spans, metrics and access logs are
// labelled with the route pattern rather than the raw path.
//
// # Evaluation responses
//
// A verdict is always returned with 200 once the request parsed. If the
// profile store or event log failed, the response carries the verdict plus
// a persistence_error message; a crisis verdict is never lost to a storage
// fault.
//
// # Usage
//
//	srv := server.NewServer(cfg, server.Dependencies{
//	    Engine:  eng,
//	    Metrics: collector,
//	    Tracer:  tracer.Tracer(),
//	    Health:  checker,
//	})
//	if err := srv.Start(ctx); err != nil {
//	    return err
//	}
package server
