package metrics

import (
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"mercator-hq/vigil/pkg/config"
	"mercator-hq/vigil/pkg/safety"
	"mercator-hq/vigil/pkg/safety/catalog"
	"mercator-hq/vigil/pkg/safety/engine"
	"mercator-hq/vigil/pkg/safety/profile"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

var _ engine.Recorder = (*Collector)(nil)

// Helper function to create test config
func testConfig() *config.MetricsConfig {
	return &config.MetricsConfig{
		Enabled:                   true,
		Namespace:                 "test",
		EvaluationDurationBuckets: []float64{0.001, 0.01, 0.1},
	}
}

func TestCollector_NewCollector(t *testing.T) {
	cfg := &config.MetricsConfig{Enabled: true}
	registry := prometheus.NewRegistry()

	collector := NewCollector(cfg, registry)

	if collector.registry != registry {
		t.Error("Collector registry not set correctly")
	}
	if cfg.Namespace != config.DefaultMetricsNamespace {
		t.Errorf("Expected default namespace, got %q", cfg.Namespace)
	}
	if len(cfg.EvaluationDurationBuckets) == 0 {
		t.Error("Expected default buckets to be filled in")
	}
}

func TestCollector_RecordEvaluation(t *testing.T) {
	collector := NewCollector(testConfig(), nil)

	tests := []struct {
		name         string
		kind         string
		level        safety.Level
		intervention safety.Intervention
	}{
		{"safe session", engine.KindSession, safety.LevelSafe, safety.InterventionNone},
		{"critical session", engine.KindSession, safety.LevelCritical, safety.InterventionTerminateSession},
		{"warning interaction", engine.KindInteraction, safety.LevelWarning, safety.InterventionFirmBoundary},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			collector.RecordEvaluation(tt.kind, tt.level, tt.intervention, 2*time.Millisecond)

			count := testutil.ToFloat64(collector.engineMetrics.evaluationsTotal.WithLabelValues(tt.kind, tt.level.String()))
			if count != 1 {
				t.Errorf("Expected evaluation count 1, got %f", count)
			}
			count = testutil.ToFloat64(collector.engineMetrics.interventionsTotal.WithLabelValues(string(tt.intervention)))
			if count < 1 {
				t.Errorf("Expected intervention count >= 1, got %f", count)
			}
		})
	}

	if n := testutil.CollectAndCount(collector.engineMetrics.evaluationDuration); n != 2 {
		t.Errorf("Expected 2 duration series, got %d", n)
	}
}

func TestCollector_CrisisAndPersistence(t *testing.T) {
	collector := NewCollector(testConfig(), nil)

	collector.RecordCrisis()
	collector.RecordCrisis()
	collector.RecordPersistenceError("save_profile")

	if got := testutil.ToFloat64(collector.engineMetrics.crisisTotal); got != 2 {
		t.Errorf("Expected 2 crisis detections, got %f", got)
	}
	if got := testutil.ToFloat64(collector.engineMetrics.persistenceErrors.WithLabelValues("save_profile")); got != 1 {
		t.Errorf("Expected 1 persistence error, got %f", got)
	}
}

func TestCollector_CatalogReload(t *testing.T) {
	collector := NewCollector(testConfig(), nil)

	collector.RecordCatalogReload(&catalog.ReloadResult{Changed: true, Duration: time.Millisecond}, nil)
	collector.RecordCatalogReload(&catalog.ReloadResult{Changed: false}, nil)
	collector.RecordCatalogReload(nil, errors.New("bad catalog"))
	collector.UpdateCatalog(catalog.Default())

	for result, want := range map[string]float64{ReloadChanged: 1, ReloadUnchanged: 1, ReloadFailed: 1} {
		if got := testutil.ToFloat64(collector.catalogMetrics.reloadsTotal.WithLabelValues(result)); got != want {
			t.Errorf("reloads{result=%s}: expected %f, got %f", result, want, got)
		}
	}
	if got := testutil.ToFloat64(collector.catalogMetrics.patterns); got != float64(catalog.Default().Size()) {
		t.Errorf("Expected pattern gauge %d, got %f", catalog.Default().Size(), got)
	}
}

func TestCollector_UpdateProfiles(t *testing.T) {
	collector := NewCollector(testConfig(), nil)

	collector.UpdateProfiles(&profile.Stats{
		Users:         5,
		HighRiskUsers: 2,
		ByTier: map[safety.Tier]int{
			safety.TierStandard: 3,
			safety.TierEnhanced: 1,
			safety.TierMaximum:  1,
		},
	})

	if got := testutil.ToFloat64(collector.profileMetrics.users); got != 5 {
		t.Errorf("Expected 5 users, got %f", got)
	}
	if got := testutil.ToFloat64(collector.profileMetrics.highRisk); got != 2 {
		t.Errorf("Expected 2 high-risk users, got %f", got)
	}
	if got := testutil.ToFloat64(collector.profileMetrics.byTier.WithLabelValues("standard")); got != 3 {
		t.Errorf("Expected 3 standard users, got %f", got)
	}
}

func TestCollector_Disabled(t *testing.T) {
	cfg := testConfig()
	cfg.Enabled = false
	collector := NewCollector(cfg, nil)

	collector.RecordEvaluation(engine.KindSession, safety.LevelCritical, safety.InterventionTerminateSession, time.Millisecond)
	collector.RecordCrisis()
	collector.RecordRequest("/v1/report", http.MethodGet, http.StatusOK, time.Millisecond)

	if got := testutil.ToFloat64(collector.engineMetrics.crisisTotal); got != 0 {
		t.Errorf("Expected no crisis count when disabled, got %f", got)
	}
	if n := testutil.CollectAndCount(collector.engineMetrics.evaluationsTotal); n != 0 {
		t.Errorf("Expected no evaluation series when disabled, got %d", n)
	}
}

func TestCollector_Handler(t *testing.T) {
	collector := NewCollector(testConfig(), nil)
	collector.RecordEvaluation(engine.KindInteraction, safety.LevelWarning, safety.InterventionFirmBoundary, time.Millisecond)
	collector.RecordRequest("POST /v1/interactions/evaluate", http.MethodPost, http.StatusOK, time.Millisecond)

	rec := httptest.NewRecorder()
	collector.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", rec.Code)
	}
	body, _ := io.ReadAll(rec.Body)
	for _, want := range []string{
		`test_engine_evaluations_total{kind="interaction",level="warning"} 1`,
		`test_http_requests_total{method="POST",route="POST /v1/interactions/evaluate",status="200"} 1`,
	} {
		if !strings.Contains(string(body), want) {
			t.Errorf("Expected exposition to contain %q", want)
		}
	}
}

func TestCollector_HandlerCountsScrapes(t *testing.T) {
	collector := NewCollector(testConfig(), nil)

	collector.Handler().ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/metrics", nil))
	rec := httptest.NewRecorder()
	collector.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	want := `promhttp_metric_handler_requests_total{code="200"} 1`
	if !strings.Contains(rec.Body.String(), want) {
		t.Errorf("Expected exposition to contain %q", want)
	}
}

func TestCollector_HTTPMetrics(t *testing.T) {
	collector := NewCollector(testConfig(), nil)

	done := collector.RequestStarted()
	if got := testutil.ToFloat64(collector.httpMetrics.inFlight); got != 1 {
		t.Errorf("Expected 1 request in flight, got %f", got)
	}
	done()
	if got := testutil.ToFloat64(collector.httpMetrics.inFlight); got != 0 {
		t.Errorf("Expected 0 requests in flight, got %f", got)
	}

	collector.RecordAuthFailure(AuthMissingKey)
	collector.RecordAuthFailure(AuthMissingKey)
	collector.RecordAuthFailure(AuthDisabledKey)
	if got := testutil.ToFloat64(collector.httpMetrics.authFailures.WithLabelValues(AuthMissingKey)); got != 2 {
		t.Errorf("Expected 2 missing key failures, got %f", got)
	}
	if got := testutil.ToFloat64(collector.httpMetrics.authFailures.WithLabelValues(AuthDisabledKey)); got != 1 {
		t.Errorf("Expected 1 disabled key failure, got %f", got)
	}

	cfg := testConfig()
	cfg.Enabled = false
	disabled := NewCollector(cfg, nil)
	disabled.RequestStarted()()
	disabled.RecordAuthFailure(AuthInvalidKey)
	if n := testutil.CollectAndCount(disabled.httpMetrics.authFailures); n != 0 {
		t.Errorf("Expected no auth failure series when disabled, got %d", n)
	}
}
