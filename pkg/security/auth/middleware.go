package auth

import (
	"log/slog"
	"net/http"
	"strings"

	"mercator-hq/vigil/pkg/config"
)

// ErrorHandler writes the response for a rejected request.
type ErrorHandler func(w http.ResponseWriter, r *http.Request, err error)

// Middleware authenticates requests with an API key.
type Middleware struct {
	validator *Validator
	header    string
	scheme    string
	onError   ErrorHandler
	logger    *slog.Logger
}

// Option configures a Middleware.
type Option func(*Middleware)

// WithErrorHandler replaces the default plain-text 401 response.
func WithErrorHandler(h ErrorHandler) Option {
	return func(m *Middleware) {
		m.onError = h
	}
}

// WithLogger sets the logger used for rejected requests.
func WithLogger(logger *slog.Logger) Option {
	return func(m *Middleware) {
		if logger != nil {
			m.logger = logger
		}
	}
}

// NewMiddleware creates a middleware reading the key from cfg.Header,
// stripping cfg.Scheme when it is set.
func NewMiddleware(v *Validator, cfg config.AuthConfig, opts ...Option) *Middleware {
	m := &Middleware{
		validator: v,
		header:    cfg.Header,
		scheme:    cfg.Scheme,
		logger:    slog.Default(),
		onError: func(w http.ResponseWriter, r *http.Request, err error) {
			http.Error(w, err.Error(), http.StatusUnauthorized)
		},
	}
	if m.header == "" {
		m.header = config.DefaultAuthHeader
	}
	for _, opt := range opts {
		opt(m)
	}
	m.logger = m.logger.With("component", "auth")
	return m
}

// Handle wraps next with authentication.
func (m *Middleware) Handle(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		p, err := m.validator.Validate(m.extractKey(r))
		if err != nil {
			m.logger.Warn("request rejected",
				"error", err,
				"remote_addr", r.RemoteAddr,
				"path", r.URL.Path,
			)
			m.onError(w, r, err)
			return
		}

		m.logger.Debug("request authenticated", "api_key", p.Name, "path", r.URL.Path)
		next.ServeHTTP(w, r.WithContext(NewContext(r.Context(), p)))
	})
}

// extractKey returns the key from the configured header, or "" when the
// header is absent or uses a different scheme.
func (m *Middleware) extractKey(r *http.Request) string {
	value := strings.TrimSpace(r.Header.Get(m.header))
	if value == "" || m.scheme == "" {
		return value
	}
	scheme, key, ok := strings.Cut(value, " ")
	if !ok || !strings.EqualFold(scheme, m.scheme) {
		return ""
	}
	return strings.TrimSpace(key)
}
