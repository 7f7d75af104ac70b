package server

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync"

	"mercator-hq/vigil/pkg/config"
	"mercator-hq/vigil/pkg/safety/engine"
	"mercator-hq/vigil/pkg/security/auth"
	"mercator-hq/vigil/pkg/telemetry/health"
	"mercator-hq/vigil/pkg/telemetry/metrics"

	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
)

// Dependencies are the components the server routes requests to. Engine is
// required, and Keys is required when server.auth is enabled. The rest are
// optional.
type Dependencies struct {
	Engine  *engine.Engine
	Metrics *metrics.Collector
	Tracer  trace.Tracer
	Health  *health.Checker
	Version health.VersionInfo
	Logger  *slog.Logger

	// Keys validates API keys on /v1 routes.
	Keys *auth.Validator

	// TLS, when set, wraps the listener.
	TLS *tls.Config
}

// Server is the vigil HTTP API server.
type Server struct {
	config     *config.Config
	engine     *engine.Engine
	metrics    *metrics.Collector
	tracer     trace.Tracer
	checker    *health.Checker
	version    health.VersionInfo
	logger     *slog.Logger
	limiter    *rateLimiter
	auth       *auth.Middleware
	tlsConfig  *tls.Config
	httpServer *http.Server

	shutdownOnce sync.Once
	mu           sync.RWMutex
	isRunning    bool
	addr         net.Addr
}

// NewServer creates a server. It panics if deps.Engine is nil, or if auth
// is enabled and deps.Keys is nil.
func NewServer(cfg *config.Config, deps Dependencies) *Server {
	if deps.Engine == nil {
		panic("server: engine is required")
	}
	if cfg.Server.Auth.Enabled && deps.Keys == nil {
		panic("server: auth is enabled but no key validator was provided")
	}
	s := &Server{
		config:    cfg,
		engine:    deps.Engine,
		metrics:   deps.Metrics,
		tracer:    deps.Tracer,
		checker:   deps.Health,
		version:   deps.Version,
		logger:    deps.Logger,
		tlsConfig: deps.TLS,
	}
	if s.tracer == nil {
		s.tracer = noop.NewTracerProvider().Tracer("vigil/server")
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	s.logger = s.logger.With("component", "server")
	if cfg.Server.RateLimit.Enabled {
		s.limiter = newRateLimiter(cfg.Server.RateLimit.RequestsPerSecond, cfg.Server.RateLimit.Burst)
	}
	if cfg.Server.Auth.Enabled {
		s.auth = auth.NewMiddleware(deps.Keys, cfg.Server.Auth,
			auth.WithLogger(s.logger),
			auth.WithErrorHandler(func(w http.ResponseWriter, r *http.Request, err error) {
				if s.metrics != nil {
					s.metrics.RecordAuthFailure(authFailureReason(err))
				}
				if cfg.Server.Auth.Scheme != "" {
					w.Header().Set("WWW-Authenticate", cfg.Server.Auth.Scheme)
				}
				writeError(w, http.StatusUnauthorized, ErrorTypeUnauthorized, err.Error())
			}),
		)
	}
	return s
}

func authFailureReason(err error) string {
	switch {
	case errors.Is(err, auth.ErrMissingKey):
		return metrics.AuthMissingKey
	case errors.Is(err, auth.ErrKeyDisabled):
		return metrics.AuthDisabledKey
	default:
		return metrics.AuthInvalidKey
	}
}

// Start listens on the configured address and serves until ctx is
// cancelled, then shuts down gracefully.
func (s *Server) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.isRunning {
		s.mu.Unlock()
		return errors.New("server is already running")
	}

	ln, err := net.Listen("tcp", s.config.Server.ListenAddress)
	if err != nil {
		s.mu.Unlock()
		return fmt.Errorf("failed to listen on %s: %w", s.config.Server.ListenAddress, err)
	}
	if s.tlsConfig != nil {
		ln = tls.NewListener(ln, s.tlsConfig)
	}

	s.httpServer = &http.Server{
		Handler:        s.Handler(),
		ReadTimeout:    s.config.Server.ReadTimeout,
		WriteTimeout:   s.config.Server.WriteTimeout,
		IdleTimeout:    s.config.Server.IdleTimeout,
		MaxHeaderBytes: s.config.Server.MaxHeaderBytes,
	}
	s.addr = ln.Addr()
	s.isRunning = true
	s.mu.Unlock()

	if s.limiter != nil {
		go s.limiter.cleanup(ctx)
	}

	errChan := make(chan error, 1)
	go func() {
		s.logger.Info("starting API server",
			"address", ln.Addr().String(),
			"tls", s.tlsConfig != nil,
			"auth", s.auth != nil,
		)
		if err := s.httpServer.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errChan <- fmt.Errorf("server error: %w", err)
		}
		close(errChan)
	}()

	select {
	case <-ctx.Done():
		s.logger.Info("context cancelled, initiating shutdown")
		return s.Shutdown(context.Background())
	case err, ok := <-errChan:
		if !ok {
			return nil
		}
		return err
	}
}

// Shutdown gracefully stops the server within the configured timeout.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error

	s.shutdownOnce.Do(func() {
		s.mu.Lock()
		running := s.isRunning
		s.mu.Unlock()
		if !running {
			return
		}

		s.logger.Info("initiating graceful shutdown", "timeout", s.config.Server.ShutdownTimeout.String())
		shutdownCtx, cancel := context.WithTimeout(ctx, s.config.Server.ShutdownTimeout)
		defer cancel()

		if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
			s.logger.Error("error during server shutdown", "error", err)
			shutdownErr = fmt.Errorf("server shutdown error: %w", err)
		}

		s.mu.Lock()
		s.isRunning = false
		s.mu.Unlock()
		s.logger.Info("API server stopped")
	})

	return shutdownErr
}

// IsRunning reports whether the server is serving.
func (s *Server) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.isRunning
}

// Addr returns the bound listener address, or nil before Start.
func (s *Server) Addr() net.Addr {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.addr
}

// Handler returns the full handler with routes and middleware.
func (s *Server) Handler() http.Handler {
	return s.setupRoutes()
}
