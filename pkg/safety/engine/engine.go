package engine

import (
	"context"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"

	"mercator-hq/vigil/pkg/safety"
	"mercator-hq/vigil/pkg/safety/catalog"
	"mercator-hq/vigil/pkg/safety/events"
	"mercator-hq/vigil/pkg/safety/profile"
	"mercator-hq/vigil/pkg/telemetry/logging"
	"mercator-hq/vigil/pkg/telemetry/tracing"
)

// Evaluation kinds used for metrics and spans.
const (
	KindSession     = "session"
	KindInteraction = "interaction"
)

// logSnippetLength bounds user text copied into log entries and event context.
const logSnippetLength = safety.MaxSnippetLength

// Recorder receives evaluation metrics. *metrics.Collector implements it.
type Recorder interface {
	RecordEvaluation(kind string, level safety.Level, intervention safety.Intervention, elapsed time.Duration)
	RecordCrisis()
	RecordPersistenceError(op string)
}

type nopRecorder struct{}

func (nopRecorder) RecordEvaluation(string, safety.Level, safety.Intervention, time.Duration) {}
func (nopRecorder) RecordCrisis() {}
func (nopRecorder) RecordPersistenceError(string) {}

// Engine evaluates sessions and interactions.
type Engine struct {
	catalog  *catalog.Manager
	profiles *profile.Updater
	events   events.Log
	logger   *slog.Logger
	metrics  Recorder
	tracer   trace.Tracer
	now      func() time.Time
}

// Option configures an Engine.
type Option func(*Engine)

// WithCatalog sets the catalog manager. Defaults to the built-in catalog.
func WithCatalog(m *catalog.Manager) Option {
	return func(e *Engine) {
		e.catalog = m
	}
}

// WithProfiles sets the profile updater. Defaults to an in-memory store.
func WithProfiles(u *profile.Updater) Option {
	return func(e *Engine) {
		e.profiles = u
	}
}

// WithEventLog sets the event log. Defaults to an in-memory log.
func WithEventLog(l events.Log) Option {
	return func(e *Engine) {
		e.events = l
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		e.logger = logger
	}
}

// WithRecorder sets the metrics recorder.
func WithRecorder(r Recorder) Option {
	return func(e *Engine) {
		e.metrics = r
	}
}

// WithTracer sets the tracer used for evaluation spans.
func WithTracer(t trace.Tracer) Option {
	return func(e *Engine) {
		e.tracer = t
	}
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) {
		e.now = now
	}
}

// New creates an engine. Unset dependencies fall back to in-memory
// implementations, so New() alone yields a working engine.
func New(opts ...Option) *Engine {
	e := &Engine{}
	for _, opt := range opts {
		opt(e)
	}

	if e.catalog == nil {
		e.catalog = catalog.NewStaticManager(catalog.Default())
	}
	if e.profiles == nil {
		e.profiles = profile.NewUpdater(profile.NewMemoryStore(), nil)
	}
	if e.events == nil {
		e.events = events.NewMemoryLog()
	}
	if e.logger == nil {
		e.logger = slog.Default()
	}
	e.logger = e.logger.With("component", "safety.engine")
	if e.metrics == nil {
		e.metrics = nopRecorder{}
	}
	if e.tracer == nil {
		e.tracer = noop.NewTracerProvider().Tracer("vigil/engine")
	}
	if e.now == nil {
		e.now = time.Now
	}
	return e
}

// Catalog returns the catalog manager.
func (e *Engine) Catalog() *catalog.Manager {
	return e.catalog
}

// Profiles returns the profile store.
func (e *Engine) Profiles() profile.Store {
	return e.profiles.Store()
}

// Events returns the event log.
func (e *Engine) Events() events.Log {
	return e.events
}

// Profile returns a copy of the stored profile for userID, or nil if the
// user has never been seen.
func (e *Engine) Profile(ctx context.Context, userID string) (*safety.Profile, error) {
	p, err := e.profiles.Store().Get(ctx, userID)
	if err != nil || p == nil {
		return nil, err
	}
	return p.Clone(), nil
}

// ResolveEvent marks an event resolved.
func (e *Engine) ResolveEvent(ctx context.Context, id string) error {
	if err := e.events.Resolve(ctx, id); err != nil {
		return err
	}
	e.logger.InfoContext(ctx, "safety event resolved", "event_id", id)
	return nil
}

// record appends ev and returns its id, or an empty id and a
// PersistenceError when the append fails.
func (e *Engine) record(ctx context.Context, ev *safety.Event) (string, error) {
	ev.Timestamp = e.now().UTC()
	if err := e.events.Append(ctx, ev); err != nil {
		return "", e.persistenceError(ctx, "append_event", ev.UserID, err)
	}
	return ev.ID, nil
}

func (e *Engine) persistenceError(ctx context.Context, op, userID string, cause error) error {
	e.metrics.RecordPersistenceError(op)
	e.logger.ErrorContext(ctx, "safety state not persisted",
		"op", op,
		"error", cause,
	)
	return &PersistenceError{Op: op, UserID: userID, Cause: cause}
}

// logVerdict writes the verdict at the slog level matching its severity.
func (e *Engine) logVerdict(ctx context.Context, msg string, v safety.Verdict, attrs ...any) {
	attrs = append(attrs,
		logging.SafetyLevelKey, v.Level.String(),
		"intervention", string(v.Intervention),
	)
	if v.EventID != "" {
		attrs = append(attrs, "event_id", v.EventID)
	}
	e.logger.Log(ctx, logging.LevelFor(v.Level), msg, attrs...)
}

// finish records metrics and span attributes for a completed evaluation.
func (e *Engine) finish(span trace.Span, kind string, start time.Time, v safety.Verdict, err error) {
	e.metrics.RecordEvaluation(kind, v.Level, v.Intervention, e.now().Sub(start))
	tracing.SetVerdictAttributes(span, v)
	tracing.SetStatus(span, err)
	span.End()
}
