package tracing

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"mercator-hq/vigil/pkg/config"
	"mercator-hq/vigil/pkg/safety"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func TestNew(t *testing.T) {
	tests := []struct {
		name    string
		config  *config.TracingConfig
		wantErr bool
	}{
		{
			name:    "nil config",
			config:  nil,
			wantErr: true,
		},
		{
			name:   "disabled tracing",
			config: &config.TracingConfig{Enabled: false, ServiceName: "test-service"},
		},
		{
			name: "enabled without endpoint",
			config: &config.TracingConfig{
				Enabled:     true,
				Sampler:     SamplerAlways,
				ServiceName: "test-service",
			},
			wantErr: true,
		},
		{
			name: "enabled with bad sampler",
			config: &config.TracingConfig{
				Enabled:     true,
				Sampler:     "sometimes",
				Endpoint:    "localhost:4317",
				ServiceName: "test-service",
			},
			wantErr: true,
		},
		{
			name: "enabled with otlp endpoint",
			config: &config.TracingConfig{
				Enabled:     true,
				Sampler:     SamplerParent,
				SampleRatio: 0.5,
				Endpoint:    "localhost:4317",
				ServiceName: "test-service",
				OTLP:        config.OTLPConfig{Insecure: true, Timeout: time.Second},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tracer, err := New(tt.config, "test")
			if (err != nil) != tt.wantErr {
				t.Fatalf("New() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil {
				return
			}
			if tracer.Enabled() != tt.config.Enabled {
				t.Errorf("Enabled() = %v, want %v", tracer.Enabled(), tt.config.Enabled)
			}
			ctx, cancel := context.WithTimeout(context.Background(), time.Second)
			defer cancel()
			_ = tracer.Shutdown(ctx)
		})
	}
}

func TestTracer_DisabledSpans(t *testing.T) {
	tracer, err := New(&config.TracingConfig{Enabled: false}, "test")
	if err != nil {
		t.Fatalf("Failed to create tracer: %v", err)
	}

	ctx, span := tracer.Tracer().Start(context.Background(), "safety.evaluate_session")
	defer span.End()

	if span.SpanContext().IsValid() {
		t.Error("expected noop span context to be invalid")
	}
	if TraceID(ctx) != "" {
		t.Errorf("expected empty trace id, got %q", TraceID(ctx))
	}
	if err := tracer.Shutdown(context.Background()); err != nil {
		t.Errorf("Shutdown() on disabled tracer: %v", err)
	}
}

func TestCreateSampler(t *testing.T) {
	tests := []struct {
		strategy string
		ratio    float64
		wantErr  bool
	}{
		{SamplerAlways, 0, false},
		{SamplerNever, 0, false},
		{SamplerRatio, 0.25, false},
		{SamplerParent, 0.1, false},
		{"", 0.1, false},
		{SamplerRatio, 1.5, true},
		{SamplerParent, -0.1, true},
		{"random", 0.1, true},
	}

	for _, tt := range tests {
		sampler, err := createSampler(tt.strategy, tt.ratio)
		if (err != nil) != tt.wantErr {
			t.Errorf("createSampler(%q, %v) error = %v, wantErr %v", tt.strategy, tt.ratio, err, tt.wantErr)
			continue
		}
		if err == nil && sampler == nil {
			t.Errorf("createSampler(%q) returned nil sampler", tt.strategy)
		}
	}
}

func newRecordingTracer() (*Tracer, *tracetest.SpanRecorder) {
	sr := tracetest.NewSpanRecorder()
	return newSDKTracer(sr, sdktrace.AlwaysSample(), resource.Empty()), sr
}

func TestAttributes(t *testing.T) {
	tracer, sr := newRecordingTracer()

	_, span := tracer.Tracer().Start(context.Background(), "POST /v1/sessions/evaluate")
	SetRequestAttributes(span, http.MethodPost, "/v1/sessions/evaluate", "req-1")
	SetCatalogAttributes(span, "1.2.0", true)
	SetResponseStatus(span, http.StatusServiceUnavailable)
	span.End()

	spans := sr.Ended()
	if len(spans) != 1 {
		t.Fatalf("expected 1 span, got %d", len(spans))
	}
	got := map[attribute.Key]attribute.Value{}
	for _, kv := range spans[0].Attributes() {
		got[kv.Key] = kv.Value
	}
	if got[AttrHTTPRoute].AsString() != "/v1/sessions/evaluate" {
		t.Errorf("unexpected route attribute: %v", got[AttrHTTPRoute])
	}
	if got[AttrRequestID].AsString() != "req-1" {
		t.Errorf("unexpected request id attribute: %v", got[AttrRequestID])
	}
	if got[AttrHTTPStatus].AsInt64() != http.StatusServiceUnavailable {
		t.Errorf("unexpected status attribute: %v", got[AttrHTTPStatus])
	}
	if !got[AttrCatalogChanged].AsBool() {
		t.Error("expected catalog changed attribute")
	}
	if spans[0].Status().Code != codes.Error {
		t.Errorf("expected error status for 503, got %v", spans[0].Status().Code)
	}
}

func TestSetStatus(t *testing.T) {
	tracer, sr := newRecordingTracer()

	_, ok := tracer.Tracer().Start(context.Background(), "ok")
	SetStatus(ok, nil)
	ok.End()

	_, failed := tracer.Tracer().Start(context.Background(), "failed")
	SetStatus(failed, errors.New("store unavailable"))
	failed.End()

	spans := sr.Ended()
	if spans[0].Status().Code != codes.Ok {
		t.Errorf("expected OK status, got %v", spans[0].Status().Code)
	}
	if spans[1].Status().Code != codes.Error || len(spans[1].Events()) == 0 {
		t.Errorf("expected error status with recorded exception, got %v", spans[1].Status())
	}
}

func TestPropagation(t *testing.T) {
	prev := otel.GetTextMapPropagator()
	otel.SetTextMapPropagator(propagation.TraceContext{})
	defer otel.SetTextMapPropagator(prev)

	headers := http.Header{}
	headers.Set("traceparent", "00-4bf92f3577b34da6a3ce929d0e0e4736-00f067aa0ba902b7-01")

	ctx := Extract(context.Background(), headers)
	if got := TraceID(ctx); got != "4bf92f3577b34da6a3ce929d0e0e4736" {
		t.Fatalf("expected extracted trace id, got %q", got)
	}

	if got := TraceID(Extract(context.Background(), http.Header{})); got != "" {
		t.Errorf("expected no trace id without headers, got %q", got)
	}
}

func TestSetVerdictAttributes(t *testing.T) {
	tracer, sr := newRecordingTracer()

	_, safe := tracer.Tracer().Start(context.Background(), "safe")
	SetVerdictAttributes(safe, safety.SafeVerdict)
	safe.End()

	_, flagged := tracer.Tracer().Start(context.Background(), "flagged")
	SetVerdictAttributes(flagged, safety.Verdict{
		Level:        safety.LevelCritical,
		Intervention: safety.InterventionHumanEscalation,
		EventID:      "evt-1",
	})
	flagged.End()

	spans := sr.Ended()
	if len(spans) != 2 {
		t.Fatalf("expected 2 spans, got %d", len(spans))
	}
	attrs := func(s sdktrace.ReadOnlySpan) map[attribute.Key]attribute.Value {
		m := map[attribute.Key]attribute.Value{}
		for _, kv := range s.Attributes() {
			m[kv.Key] = kv.Value
		}
		return m
	}

	got := attrs(spans[0])
	if got[AttrSafetyLevel].AsString() != "safe" {
		t.Errorf("unexpected level attribute: %v", got[AttrSafetyLevel])
	}
	if _, ok := got[AttrSafetyEventID]; ok {
		t.Error("expected no event id on a safe verdict")
	}

	got = attrs(spans[1])
	if got[AttrSafetyLevel].AsString() != "critical" {
		t.Errorf("unexpected level attribute: %v", got[AttrSafetyLevel])
	}
	if got[AttrSafetyIntervention].AsString() != "human_escalation" {
		t.Errorf("unexpected intervention attribute: %v", got[AttrSafetyIntervention])
	}
	if got[AttrSafetyEventID].AsString() != "evt-1" {
		t.Errorf("unexpected event id attribute: %v", got[AttrSafetyEventID])
	}
}
