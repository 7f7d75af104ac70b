package tracing

import (
	"net/http"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"mercator-hq/vigil/pkg/safety"
)

// Attribute keys set on API spans. HTTP keys follow the OpenTelemetry
// semantic conventions; the rest use the vigil.* namespace.
const (
	AttrHTTPMethod = "http.request.method"
	AttrHTTPRoute  = "http.route"
	AttrHTTPStatus = "http.response.status_code"

	AttrRequestID      = "vigil.request_id"
	AttrCatalogVersion = "vigil.catalog.version"
	AttrCatalogChanged = "vigil.catalog.changed"

	AttrSafetyLevel        = "safety.level"
	AttrSafetyIntervention = "safety.intervention"
	AttrSafetyEventID      = "safety.event_id"
)

// SetRequestAttributes records the request identity on span.
func SetRequestAttributes(span trace.Span, method, route, requestID string) {
	attrs := []attribute.KeyValue{
		attribute.String(AttrHTTPMethod, method),
		attribute.String(AttrHTTPRoute, route),
	}
	if requestID != "" {
		attrs = append(attrs, attribute.String(AttrRequestID, requestID))
	}
	span.SetAttributes(attrs...)
}

// SetResponseStatus records the response status. Server errors mark the
// span failed; client errors do not.
func SetResponseStatus(span trace.Span, status int) {
	span.SetAttributes(attribute.Int(AttrHTTPStatus, status))
	if status >= http.StatusInternalServerError {
		span.SetStatus(codes.Error, http.StatusText(status))
	}
}

// SetCatalogAttributes records a catalog reload outcome on span.
func SetCatalogAttributes(span trace.Span, version string, changed bool) {
	span.SetAttributes(
		attribute.String(AttrCatalogVersion, version),
		attribute.Bool(AttrCatalogChanged, changed),
	)
}

// SetVerdictAttributes records an evaluation outcome on span. The event ID
// is omitted for safe verdicts, which are not recorded.
func SetVerdictAttributes(span trace.Span, v safety.Verdict) {
	attrs := []attribute.KeyValue{
		attribute.String(AttrSafetyLevel, v.Level.String()),
		attribute.String(AttrSafetyIntervention, string(v.Intervention)),
	}
	if v.EventID != "" {
		attrs = append(attrs, attribute.String(AttrSafetyEventID, v.EventID))
	}
	span.SetAttributes(attrs...)
}
