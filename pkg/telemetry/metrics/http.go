package metrics

import (
	"net/http"
	"strconv"
	"time"

	"mercator-hq/vigil/pkg/config"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Auth failure reasons.
const (
	AuthMissingKey  = "missing_key"
	AuthInvalidKey  = "invalid_key"
	AuthDisabledKey = "disabled_key"
)

// HTTPMetrics covers the API server.
//
// Metrics:
//   - vigil_http_requests_total{route,method,status}
//   - vigil_http_request_duration_seconds{route}
//   - vigil_http_requests_in_flight
//   - vigil_http_auth_failures_total{reason}
type HTTPMetrics struct {
	requests     *prometheus.CounterVec
	duration     *prometheus.HistogramVec
	inFlight     prometheus.Gauge
	authFailures *prometheus.CounterVec
}

// NewHTTPMetrics creates and registers the API server metrics.
func NewHTTPMetrics(cfg *config.MetricsConfig, registry *prometheus.Registry) *HTTPMetrics {
	m := &HTTPMetrics{
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: cfg.Namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "API requests by route, method and status code",
		}, []string{"route", "method", "status"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: cfg.Namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "API request latency in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"route"}),
		inFlight: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: cfg.Namespace,
			Subsystem: "http",
			Name:      "requests_in_flight",
			Help:      "API requests currently being served",
		}),
		authFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: cfg.Namespace,
			Subsystem: "http",
			Name:      "auth_failures_total",
			Help:      "Rejected API keys by reason",
		}, []string{"reason"}),
	}

	registry.MustRegister(m.requests, m.duration, m.inFlight, m.authFailures)
	return m
}

// RecordRequest records one API request. route is the registered pattern so
// label cardinality stays bounded.
func (c *Collector) RecordRequest(route, method string, status int, duration time.Duration) {
	if !c.config.Enabled {
		return
	}
	c.httpMetrics.requests.WithLabelValues(route, method, strconv.Itoa(status)).Inc()
	c.httpMetrics.duration.WithLabelValues(route).Observe(duration.Seconds())
}

// RequestStarted increments the in-flight gauge and returns the func that
// decrements it.
func (c *Collector) RequestStarted() (done func()) {
	if !c.config.Enabled {
		return func() {}
	}
	c.httpMetrics.inFlight.Inc()
	return c.httpMetrics.inFlight.Dec
}

// RecordAuthFailure counts a rejected request. reason is one of the Auth*
// constants.
func (c *Collector) RecordAuthFailure(reason string) {
	if !c.config.Enabled {
		return
	}
	c.httpMetrics.authFailures.WithLabelValues(reason).Inc()
}

// Handler serves the collector's registry in the Prometheus exposition
// format. Scrapes are themselves counted in the same registry.
//
//	mux.Handle(cfg.Path, collector.Handler())
func (c *Collector) Handler() http.Handler {
	return promhttp.InstrumentMetricHandler(c.registry,
		promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{
			EnableOpenMetrics: true,
			ErrorHandling:     promhttp.ContinueOnError,
			Registry:          c.registry,
		}))
}
