package logging

import (
	"context"
	"log/slog"

	"go.opentelemetry.io/otel/trace"
)

// Fields identify who and what an entry is about. Loggers built by New
// add the non-empty fields carried by the context to every entry, along
// with the active trace and span IDs.
type Fields struct {
	RequestID string
	// Caller is the name of the API key that authenticated the request.
	Caller    string
	UserID    string
	SessionID string
}

type fieldsKey struct{}

// WithFields returns ctx carrying f merged over any fields already in ctx.
// Empty values in f leave the existing value in place.
func WithFields(ctx context.Context, f Fields) context.Context {
	cur := FieldsFrom(ctx)
	if f.RequestID != "" {
		cur.RequestID = f.RequestID
	}
	if f.Caller != "" {
		cur.Caller = f.Caller
	}
	if f.UserID != "" {
		cur.UserID = f.UserID
	}
	if f.SessionID != "" {
		cur.SessionID = f.SessionID
	}
	return context.WithValue(ctx, fieldsKey{}, cur)
}

// FieldsFrom returns the fields carried by ctx.
func FieldsFrom(ctx context.Context) Fields {
	if ctx == nil {
		return Fields{}
	}
	f, _ := ctx.Value(fieldsKey{}).(Fields)
	return f
}

// RequestID returns the request ID carried by ctx, if any.
func RequestID(ctx context.Context) string {
	return FieldsFrom(ctx).RequestID
}

func (f Fields) appendAttrs(attrs []slog.Attr) []slog.Attr {
	for _, kv := range [...]struct{ key, value string }{
		{"request_id", f.RequestID},
		{"caller", f.Caller},
		{"user_id", f.UserID},
		{"session_id", f.SessionID},
	} {
		if kv.value != "" {
			attrs = append(attrs, slog.String(kv.key, kv.value))
		}
	}
	return attrs
}

func contextAttrs(ctx context.Context) []slog.Attr {
	if ctx == nil {
		return nil
	}
	attrs := FieldsFrom(ctx).appendAttrs(nil)
	if sc := trace.SpanContextFromContext(ctx); sc.IsValid() {
		attrs = append(attrs,
			slog.String("trace_id", sc.TraceID().String()),
			slog.String("span_id", sc.SpanID().String()),
		)
	}
	return attrs
}

// contextHandler adds context fields to every record.
type contextHandler struct {
	next slog.Handler
}

func (h *contextHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.next.Enabled(ctx, level)
}

func (h *contextHandler) Handle(ctx context.Context, r slog.Record) error {
	if attrs := contextAttrs(ctx); len(attrs) > 0 {
		r = r.Clone()
		r.AddAttrs(attrs...)
	}
	return h.next.Handle(ctx, r)
}

func (h *contextHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &contextHandler{next: h.next.WithAttrs(attrs)}
}

func (h *contextHandler) WithGroup(name string) slog.Handler {
	return &contextHandler{next: h.next.WithGroup(name)}
}
