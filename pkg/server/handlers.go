package server

import (
	"errors"
	"net/http"
	"strings"

	"mercator-hq/vigil/pkg/safety"
	"mercator-hq/vigil/pkg/safety/engine"
	"mercator-hq/vigil/pkg/safety/events"
	"mercator-hq/vigil/pkg/telemetry/tracing"

	"go.opentelemetry.io/otel/trace"
)

func (s *Server) handleEvaluateSession(w http.ResponseWriter, r *http.Request) {
	var session safety.Session
	if status, err := decodeJSON(r, &session); err != nil {
		writeDecodeError(w, status, err)
		return
	}

	verdict, err := s.engine.EvaluateSession(r.Context(), &session)
	s.writeVerdict(w, r, session.UserID, verdict, err)
}

func (s *Server) handleEvaluateInteraction(w http.ResponseWriter, r *http.Request) {
	var req InteractionRequest
	if status, err := decodeJSON(r, &req); err != nil {
		writeDecodeError(w, status, err)
		return
	}
	if strings.TrimSpace(req.UserID) == "" {
		writeError(w, http.StatusBadRequest, ErrorTypeInvalidRequest, "user_id is required")
		return
	}

	verdict, err := s.engine.EvaluateInteraction(r.Context(), req.UserID, req.Input, req.Output)
	s.writeVerdict(w, r, req.UserID, verdict, err)
}

// writeVerdict writes a verdict. Persistence failures still produce 200 with
// the verdict; any other error means the request itself was unusable.
func (s *Server) writeVerdict(w http.ResponseWriter, r *http.Request, userID string, v safety.Verdict, err error) {
	resp := EvaluationResponse{
		Level:        v.Level,
		Intervention: v.Intervention,
		ResponseText: safety.ResponseText(v.Intervention),
		EventID:      v.EventID,
	}
	if err != nil {
		var perr *engine.PersistenceError
		if !errors.As(err, &perr) {
			writeError(w, http.StatusBadRequest, ErrorTypeInvalidRequest, err.Error())
			return
		}
		resp.PersistenceError = err.Error()
	}
	if v.Level == safety.LevelEmergency {
		crisis := s.engine.CrisisResponse(userID)
		resp.Crisis = &crisis
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleCrisisResponse(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.engine.CrisisResponse(r.PathValue("id")))
}

func (s *Server) handleReport(w http.ResponseWriter, r *http.Request) {
	report, err := s.engine.GenerateReport(r.Context())
	if err != nil {
		s.logger.ErrorContext(r.Context(), "failed to generate report", "error", err)
		writeError(w, http.StatusInternalServerError, ErrorTypeServerError, "failed to generate report")
		return
	}
	if s.metrics != nil {
		s.metrics.UpdateCatalog(s.engine.Catalog().Current())
	}
	writeJSON(w, http.StatusOK, report)
}

func (s *Server) handleResolveEvent(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if err := s.engine.ResolveEvent(r.Context(), id); err != nil {
		if errors.Is(err, events.ErrNotFound) {
			writeError(w, http.StatusNotFound, ErrorTypeNotFound, "event not found: "+id)
			return
		}
		s.logger.ErrorContext(r.Context(), "failed to resolve event", "event_id", id, "error", err)
		writeError(w, http.StatusInternalServerError, ErrorTypeServerError, "failed to resolve event")
		return
	}
	writeJSON(w, http.StatusOK, ResolveResponse{EventID: id, Resolved: true})
}

func (s *Server) handleCatalog(w http.ResponseWriter, r *http.Request) {
	m := s.engine.Catalog()
	c := m.Current()
	resp := CatalogResponse{
		Version:    c.Version(),
		Source:     m.Source().Name(),
		Patterns:   c.Size(),
		Categories: c.Summary(),
	}
	if err := m.LastError(); err != nil {
		resp.LastError = err.Error()
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleCatalogReload(w http.ResponseWriter, r *http.Request) {
	result, err := s.engine.Catalog().Reload(r.Context())
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, ErrorTypeCatalogReload, err.Error())
		return
	}
	tracing.SetCatalogAttributes(trace.SpanFromContext(r.Context()), result.ToVersion, result.Changed)
	writeJSON(w, http.StatusOK, ReloadResponse{
		FromVersion: result.FromVersion,
		ToVersion:   result.ToVersion,
		Changed:     result.Changed,
		DurationMS:  result.Duration.Milliseconds(),
	})
}

func writeDecodeError(w http.ResponseWriter, status int, err error) {
	if status == http.StatusRequestEntityTooLarge {
		writeError(w, status, ErrorTypeRequestTooLarge, "request body too large")
		return
	}
	writeError(w, status, ErrorTypeInvalidRequest, "invalid request body: "+err.Error())
}
