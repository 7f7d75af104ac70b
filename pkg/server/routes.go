package server

import (
	"net/http"

	"mercator-hq/vigil/pkg/security/auth"
	"mercator-hq/vigil/pkg/telemetry/health"
	"mercator-hq/vigil/pkg/telemetry/logging"
)

// setupRoutes registers the API, health and metrics routes and wraps the
// mux in the middleware chain.
func (s *Server) setupRoutes() http.Handler {
	mux := http.NewServeMux()

	s.handle(mux, "POST /v1/sessions/evaluate", s.handleEvaluateSession)
	s.handle(mux, "POST /v1/interactions/evaluate", s.handleEvaluateInteraction)
	s.handle(mux, "GET /v1/users/{id}/crisis-response", s.handleCrisisResponse)
	s.handle(mux, "GET /v1/report", s.handleReport)
	s.handle(mux, "POST /v1/events/{id}/resolve", s.handleResolveEvent)
	s.handle(mux, "GET /v1/catalog", s.handleCatalog)
	s.handle(mux, "POST /v1/catalog/reload", s.handleCatalogReload)

	if s.checker != nil {
		health.Register(mux, s.checker, s.config.Telemetry.Health, s.version)
	}
	if s.metrics != nil && s.config.Telemetry.Metrics.Enabled {
		mux.Handle("GET "+s.config.Telemetry.Metrics.Path, s.metrics.Handler())
	}

	var handler http.Handler = mux
	handler = bodyLimitMiddleware(s.config.Server.MaxBodyBytes)(handler)
	if s.limiter != nil {
		handler = s.limiter.middleware(handler)
	}
	handler = requestIDMiddleware(handler)
	handler = recoveryMiddleware(s.logger)(handler)
	return handler
}

// handle registers an instrumented API route, behind API key
// authentication when it is enabled.
func (s *Server) handle(mux *http.ServeMux, pattern string, h http.HandlerFunc) {
	var handler http.Handler = h
	if s.auth != nil {
		handler = s.auth.Handle(callerFields(handler))
	}
	mux.Handle(pattern, s.instrument(pattern, handler))
}

// callerFields tags the request's log context with the authenticated key name.
func callerFields(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if p, ok := auth.FromContext(r.Context()); ok {
			r = r.WithContext(logging.WithFields(r.Context(), logging.Fields{Caller: p.Name}))
		}
		next.ServeHTTP(w, r)
	})
}
