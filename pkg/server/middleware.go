package server

import (
	"log/slog"
	"net/http"
	"runtime/debug"
	"time"

	"mercator-hq/vigil/pkg/telemetry/logging"
	"mercator-hq/vigil/pkg/telemetry/tracing"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/trace"
)

// RequestIDHeader carries the request ID in both directions.
const RequestIDHeader = "X-Request-ID"

// responseWriter captures the status code written by a handler.
type responseWriter struct {
	http.ResponseWriter
	statusCode int
	written    bool
}

func newResponseWriter(w http.ResponseWriter) *responseWriter {
	return &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
}

func (rw *responseWriter) WriteHeader(code int) {
	if !rw.written {
		rw.statusCode = code
		rw.written = true
		rw.ResponseWriter.WriteHeader(code)
	}
}

func (rw *responseWriter) Write(b []byte) (int, error) {
	if !rw.written {
		rw.WriteHeader(http.StatusOK)
	}
	return rw.ResponseWriter.Write(b)
}

// requestIDMiddleware keeps a client-supplied X-Request-ID or assigns a new
// UUID, and stores it in the context for logging.
func requestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := r.Header.Get(RequestIDHeader)
		if requestID == "" {
			requestID = uuid.NewString()
		}
		w.Header().Set(RequestIDHeader, requestID)
		next.ServeHTTP(w, r.WithContext(logging.WithFields(r.Context(), logging.Fields{RequestID: requestID})))
	})
}

// recoveryMiddleware turns a handler panic into a 500 without exposing
// internals to the client.
func recoveryMiddleware(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if err := recover(); err != nil {
					logger.ErrorContext(r.Context(), "panic in handler",
						"error", err,
						"method", r.Method,
						"path", r.URL.Path,
						"stack", string(debug.Stack()),
					)
					writeError(w, http.StatusInternalServerError, ErrorTypeServerError,
						"An internal error occurred. Please try again later.")
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}

// bodyLimitMiddleware caps request bodies at limit bytes. Reads past the
// limit fail and the decoder reports the request as too large.
func bodyLimitMiddleware(limit int64) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if limit <= 0 {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Body != nil {
				r.Body = http.MaxBytesReader(w, r.Body, limit)
			}
			next.ServeHTTP(w, r)
		})
	}
}

// instrument wraps one route with a server span, request metrics and an
// access log entry, all labelled with the route pattern.
func (s *Server) instrument(route string, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		if s.metrics != nil {
			defer s.metrics.RequestStarted()()
		}
		ctx := tracing.Extract(r.Context(), r.Header)
		ctx, span := s.tracer.Start(ctx, route, trace.WithSpanKind(trace.SpanKindServer))
		defer span.End()

		requestID := logging.RequestID(ctx)
		tracing.SetRequestAttributes(span, r.Method, route, requestID)

		rw := newResponseWriter(w)
		next.ServeHTTP(rw, r.WithContext(ctx))

		elapsed := time.Since(start)
		tracing.SetResponseStatus(span, rw.statusCode)
		if s.metrics != nil {
			s.metrics.RecordRequest(route, r.Method, rw.statusCode, elapsed)
		}

		level := slog.LevelInfo
		if rw.statusCode >= 500 {
			level = slog.LevelError
		} else if rw.statusCode >= 400 {
			level = slog.LevelWarn
		}
		s.logger.Log(ctx, level, "request completed",
			"method", r.Method,
			"route", route,
			"status", rw.statusCode,
			"latency_ms", elapsed.Milliseconds(),
			"remote_addr", r.RemoteAddr,
		)
	})
}
