package server

import (
	"mercator-hq/vigil/pkg/safety"
	"mercator-hq/vigil/pkg/safety/catalog"
	"mercator-hq/vigil/pkg/safety/engine"
)

// InteractionRequest is the body of POST /v1/interactions/evaluate.
type InteractionRequest struct {
	UserID string `json:"user_id"`
	Input  string `json:"input"`
	Output string `json:"output"`
}

// EvaluationResponse is returned by both evaluate endpoints.
type EvaluationResponse struct {
	Level        safety.Level        `json:"level"`
	Intervention safety.Intervention `json:"intervention"`
	ResponseText string              `json:"response_text"`
	EventID      string              `json:"event_id,omitempty"`

	// Crisis is set only for EMERGENCY verdicts.
	Crisis *engine.CrisisResponse `json:"crisis,omitempty"`

	// PersistenceError is set when the verdict could not be stored.
	PersistenceError string `json:"persistence_error,omitempty"`
}

// CatalogResponse describes the active pattern catalog.
type CatalogResponse struct {
	Version    string                    `json:"version"`
	Source     string                    `json:"source"`
	Patterns   int                       `json:"patterns"`
	Categories []catalog.CategorySummary `json:"categories"`
	LastError  string                    `json:"last_reload_error,omitempty"`
}

// ReloadResponse is returned by POST /v1/catalog/reload.
type ReloadResponse struct {
	FromVersion string `json:"from_version"`
	ToVersion   string `json:"to_version"`
	Changed     bool   `json:"changed"`
	DurationMS  int64  `json:"duration_ms"`
}

// ResolveResponse is returned by POST /v1/events/{id}/resolve.
type ResolveResponse struct {
	EventID  string `json:"event_id"`
	Resolved bool   `json:"resolved"`
}
