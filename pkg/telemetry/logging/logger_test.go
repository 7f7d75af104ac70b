package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"go.opentelemetry.io/otel/trace"

	"mercator-hq/vigil/pkg/config"
	"mercator-hq/vigil/pkg/safety"
)

func decodeLines(t *testing.T, buf *bytes.Buffer) []map[string]any {
	t.Helper()
	var out []map[string]any
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		if line == "" {
			continue
		}
		var m map[string]any
		if err := json.Unmarshal([]byte(line), &m); err != nil {
			t.Fatalf("invalid JSON log line %q: %v", line, err)
		}
		out = append(out, m)
	}
	return out
}

func TestNew_InvalidSettings(t *testing.T) {
	if _, err := New(Config{Level: "verbose"}); err == nil {
		t.Error("expected error for unknown level")
	}
	if _, err := New(Config{Format: "xml"}); err == nil {
		t.Error("expected error for unknown format")
	}
}

func TestLogger_SetLevel(t *testing.T) {
	var buf bytes.Buffer
	l, err := New(Config{Level: "warn", Format: "json", Writer: &buf})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	l.Slog().Info("dropped")
	if err := l.SetLevel("debug"); err != nil {
		t.Fatalf("SetLevel failed: %v", err)
	}
	l.Slog().Debug("kept")

	entries := decodeLines(t, &buf)
	if len(entries) != 1 || entries[0]["msg"] != "kept" {
		t.Errorf("expected only the post-change entry, got %v", entries)
	}
	if err := l.SetLevel("loud"); err == nil {
		t.Error("expected error for unknown level")
	}
}

func TestLevelFor(t *testing.T) {
	tests := []struct {
		level safety.Level
		want  slog.Level
	}{
		{safety.LevelSafe, slog.LevelInfo},
		{safety.LevelCaution, slog.LevelInfo},
		{safety.LevelWarning, slog.LevelWarn},
		{safety.LevelCritical, slog.LevelError},
		{safety.LevelEmergency, LevelEmergency},
	}
	for _, tt := range tests {
		if got := LevelFor(tt.level); got != tt.want {
			t.Errorf("LevelFor(%s): expected %v, got %v", tt.level, tt.want, got)
		}
	}
}

func TestLogger_EmergencyLevelName(t *testing.T) {
	var buf bytes.Buffer
	l, err := New(Config{Level: "info", Format: "json", Writer: &buf})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	l.Slog().Log(context.Background(), LevelFor(safety.LevelEmergency), "crisis detected",
		SafetyLevelKey, safety.LevelEmergency.String())

	lines := decodeLines(t, &buf)
	if len(lines) != 1 {
		t.Fatalf("expected 1 line, got %d", len(lines))
	}
	if lines[0]["level"] != "EMERGENCY" {
		t.Errorf("expected level EMERGENCY, got %v", lines[0]["level"])
	}
	if lines[0][SafetyLevelKey] != "emergency" {
		t.Errorf("expected safety_level emergency, got %v", lines[0][SafetyLevelKey])
	}
}

func TestLogger_SecurityTee(t *testing.T) {
	var primary, security bytes.Buffer
	l, err := New(Config{Level: "error", Format: "json", Writer: &primary, SecurityWriter: &security})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	log := l.Slog()
	ctx := context.Background()

	log.Log(ctx, LevelFor(safety.LevelWarning), "warning entry", SafetyLevelKey, "warning")
	log.Log(ctx, LevelFor(safety.LevelCritical), "critical entry", SafetyLevelKey, "critical")
	log.Log(ctx, LevelFor(safety.LevelEmergency), "emergency entry", SafetyLevelKey, "emergency")
	log.Error("plain error")

	// Bound through With: the level comes from the handler's attrs.
	log.With(SafetyLevelKey, "critical").Info("bound entry")

	prim := decodeLines(t, &primary)
	if len(prim) != 3 {
		t.Errorf("expected 3 primary entries at error level, got %d", len(prim))
	}

	sec := decodeLines(t, &security)
	var msgs []string
	for _, m := range sec {
		msgs = append(msgs, m["msg"].(string))
	}
	want := []string{"critical entry", "emergency entry", "bound entry"}
	if strings.Join(msgs, ",") != strings.Join(want, ",") {
		t.Errorf("expected security entries %v, got %v", want, msgs)
	}
}

func TestLogger_Redaction(t *testing.T) {
	var buf bytes.Buffer
	l, err := New(Config{
		Level:     "info",
		Format:    "json",
		RedactPII: true,
		Writer:    &buf,
		RedactPatterns: []config.RedactPattern{
			{Name: "member", Pattern: `MBR-\d+`, Replacement: "MBR-***"},
			{Name: "broken", Pattern: `(`, Replacement: "x"},
		},
	})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	l.Slog().Info("contact jane@example.com",
		"input", "call me at 555-123-4567 or mail jane@example.com",
		"member", "MBR-12345",
		"api_token", "abcd1234",
		"event_id", "123-45-6789",
	)

	lines := decodeLines(t, &buf)
	entry := lines[0]
	if strings.Contains(entry["msg"].(string), "jane@example.com") {
		t.Errorf("expected message to be redacted, got %v", entry["msg"])
	}
	input := entry["input"].(string)
	if strings.Contains(input, "555-123-4567") || strings.Contains(input, "jane@example.com") {
		t.Errorf("expected input to be redacted, got %s", input)
	}
	if entry["member"] != "MBR-***" {
		t.Errorf("expected custom pattern to apply, got %v", entry["member"])
	}
	if entry["api_token"] != "***" {
		t.Errorf("expected sensitive key to be masked, got %v", entry["api_token"])
	}
	if entry["event_id"] != "123-45-6789" {
		t.Errorf("expected identifier to be untouched, got %v", entry["event_id"])
	}
}

func TestLogger_ContextFields(t *testing.T) {
	var buf bytes.Buffer
	l, err := New(Config{Level: "info", Format: "json", Writer: &buf})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	traceID, _ := trace.TraceIDFromHex("4bf92f3577b34da6a3ce929d0e0e4736")
	spanID, _ := trace.SpanIDFromHex("00f067aa0ba902b7")
	sc := trace.NewSpanContext(trace.SpanContextConfig{TraceID: traceID, SpanID: spanID, TraceFlags: trace.FlagsSampled})

	ctx := WithFields(context.Background(), Fields{RequestID: "req-1", Caller: "gateway"})
	ctx = WithFields(ctx, Fields{SessionID: "sess-9"})
	ctx = trace.ContextWithSpanContext(ctx, sc)

	l.Slog().InfoContext(ctx, "handled")

	entry := decodeLines(t, &buf)[0]
	if entry["request_id"] != "req-1" || entry["session_id"] != "sess-9" || entry["caller"] != "gateway" {
		t.Errorf("expected context ids, got %v", entry)
	}
	if entry["trace_id"] != "4bf92f3577b34da6a3ce929d0e0e4736" {
		t.Errorf("expected trace id, got %v", entry["trace_id"])
	}
}

func TestWithFieldsMerges(t *testing.T) {
	ctx := context.Background()
	if FieldsFrom(ctx) != (Fields{}) || RequestID(ctx) != "" {
		t.Error("expected empty fields on bare context")
	}

	ctx = WithFields(ctx, Fields{RequestID: "req-1", UserID: "u-1"})
	ctx = WithFields(ctx, Fields{UserID: "u-2", SessionID: "s-1"})

	want := Fields{RequestID: "req-1", UserID: "u-2", SessionID: "s-1"}
	if got := FieldsFrom(ctx); got != want {
		t.Errorf("FieldsFrom() = %+v, want %+v", got, want)
	}
}

func TestNewFromConfig_SecurityFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "security", "security.log")
	var primary bytes.Buffer

	l, err := NewFromConfig(config.LoggingConfig{
		Level:          "info",
		Format:         "json",
		SecurityOutput: path,
	}, &primary)
	if err != nil {
		t.Fatalf("NewFromConfig failed: %v", err)
	}

	l.Slog().Log(context.Background(), LevelFor(safety.LevelCritical), "escalated", SafetyLevelKey, "critical")
	l.Slog().Info("routine", SafetyLevelKey, "safe")
	if err := l.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("failed to read security log: %v", err)
	}
	if !strings.Contains(string(data), "escalated") || strings.Contains(string(data), "routine") {
		t.Errorf("unexpected security log contents: %s", data)
	}
	if !strings.Contains(primary.String(), "routine") {
		t.Error("expected primary log to receive every entry")
	}
}
