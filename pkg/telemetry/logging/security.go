package logging

import (
	"context"
	"errors"
	"log/slog"

	"mercator-hq/vigil/pkg/safety"
)

// SecurityHandler passes every record to a primary handler and copies
// records whose safety level is at least the threshold to a security
// handler. The safety level is read from the SafetyLevelKey attribute,
// either on the record or added through WithAttrs.
type SecurityHandler struct {
	primary   slog.Handler
	security  slog.Handler
	threshold safety.Level

	// preset is the safety level bound through WithAttrs, if any.
	preset    safety.Level
	hasPreset bool
}

// NewSecurityHandler tees CRITICAL and EMERGENCY records to security.
func NewSecurityHandler(primary, security slog.Handler) *SecurityHandler {
	return &SecurityHandler{
		primary:   primary,
		security:  security,
		threshold: safety.LevelCritical,
	}
}

// Enabled reports whether either handler accepts the level.
func (h *SecurityHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.primary.Enabled(ctx, level) || h.security.Enabled(ctx, level)
}

// Handle writes r to the primary handler and, when escalated, to the
// security handler.
func (h *SecurityHandler) Handle(ctx context.Context, r slog.Record) error {
	var errs []error
	if h.primary.Enabled(ctx, r.Level) {
		errs = append(errs, h.primary.Handle(ctx, r.Clone()))
	}
	if h.escalated(r) {
		errs = append(errs, h.security.Handle(ctx, r))
	}
	return errors.Join(errs...)
}

// WithAttrs returns a handler with attrs bound on both sinks.
func (h *SecurityHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	c := *h
	c.primary = h.primary.WithAttrs(attrs)
	c.security = h.security.WithAttrs(attrs)
	for _, a := range attrs {
		if l, ok := safetyLevel(a); ok {
			c.preset, c.hasPreset = l, true
		}
	}
	return &c
}

// WithGroup returns a handler with the group opened on both sinks.
func (h *SecurityHandler) WithGroup(name string) slog.Handler {
	c := *h
	c.primary = h.primary.WithGroup(name)
	c.security = h.security.WithGroup(name)
	return &c
}

func (h *SecurityHandler) escalated(r slog.Record) bool {
	level, found := h.preset, h.hasPreset
	r.Attrs(func(a slog.Attr) bool {
		if l, ok := safetyLevel(a); ok {
			level, found = l, true
			return false
		}
		return true
	})
	return found && level.AtLeast(h.threshold)
}

func safetyLevel(a slog.Attr) (safety.Level, bool) {
	if a.Key != SafetyLevelKey {
		return safety.LevelSafe, false
	}
	l, err := safety.ParseLevel(a.Value.String())
	if err != nil {
		return safety.LevelSafe, false
	}
	return l, true
}
