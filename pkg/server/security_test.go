package server

import (
	"context"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/tls"
	"crypto/x509"
	"crypto/x509/pkix"
	"math/big"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"mercator-hq/vigil/pkg/config"
	"mercator-hq/vigil/pkg/safety/engine"
	"mercator-hq/vigil/pkg/security/auth"
	"mercator-hq/vigil/pkg/telemetry/health"
	"mercator-hq/vigil/pkg/telemetry/logging"
	"mercator-hq/vigil/pkg/telemetry/metrics"
)

func newAuthServer(t *testing.T) *Server {
	t.Helper()
	cfg := config.NewDefaultConfig()
	cfg.Server.RateLimit.Enabled = false
	cfg.Server.Auth.Enabled = true
	cfg.Server.Auth.Keys = []config.APIKeyConfig{
		{Name: "dashboard", Key: "sk-dashboard"},
		{Name: "retired", Key: "sk-retired", Disabled: true},
	}

	keys, err := auth.NewValidator(cfg.Server.Auth.Keys)
	if err != nil {
		t.Fatalf("NewValidator failed: %v", err)
	}
	eng := engine.New()
	checker := health.New(time.Second)
	checker.RegisterCheck("catalog", health.Critical, health.CatalogCheck(eng.Catalog()))
	return NewServer(cfg, Dependencies{Engine: eng, Health: checker, Keys: keys})
}

func TestAuth_ProtectsAPIRoutes(t *testing.T) {
	h := newAuthServer(t).Handler()

	tests := []struct {
		name       string
		header     string
		wantStatus int
	}{
		{name: "no key", wantStatus: http.StatusUnauthorized},
		{name: "unknown key", header: "Bearer sk-nope", wantStatus: http.StatusUnauthorized},
		{name: "disabled key", header: "Bearer sk-retired", wantStatus: http.StatusUnauthorized},
		{name: "valid key", header: "Bearer sk-dashboard", wantStatus: http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/v1/report", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)

			if rec.Code != tt.wantStatus {
				t.Fatalf("expected %d, got %d: %s", tt.wantStatus, rec.Code, rec.Body.String())
			}
			if tt.wantStatus != http.StatusUnauthorized {
				return
			}
			body := decode[ErrorResponse](t, rec)
			if body.Error.Type != ErrorTypeUnauthorized {
				t.Errorf("expected %s, got %s", ErrorTypeUnauthorized, body.Error.Type)
			}
			if rec.Header().Get("WWW-Authenticate") != "Bearer" {
				t.Errorf("expected WWW-Authenticate Bearer, got %q", rec.Header().Get("WWW-Authenticate"))
			}
		})
	}
}

func TestAuth_HealthIsPublic(t *testing.T) {
	h := newAuthServer(t).Handler()

	rec := do(t, h, http.MethodGet, config.DefaultLivenessPath, "")
	if rec.Code != http.StatusOK {
		t.Errorf("expected liveness to bypass auth, got %d", rec.Code)
	}
}

func TestNewServer_AuthWithoutValidatorPanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("expected panic")
		}
	}()
	cfg := config.NewDefaultConfig()
	cfg.Server.Auth.Enabled = true
	NewServer(cfg, Dependencies{Engine: engine.New()})
}

func selfSignedTLS(t *testing.T) (*tls.Config, *x509.CertPool) {
	t.Helper()
	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		t.Fatalf("failed to generate key: %v", err)
	}
	tmpl := &x509.Certificate{
		SerialNumber:          big.NewInt(1),
		Subject:               pkix.Name{CommonName: "vigil-test"},
		NotBefore:             time.Now().Add(-time.Hour),
		NotAfter:              time.Now().Add(time.Hour),
		DNSNames:              []string{"localhost"},
		KeyUsage:              x509.KeyUsageDigitalSignature | x509.KeyUsageCertSign,
		ExtKeyUsage:           []x509.ExtKeyUsage{x509.ExtKeyUsageServerAuth},
		BasicConstraintsValid: true,
		IsCA:                  true,
	}
	der, err := x509.CreateCertificate(rand.Reader, tmpl, tmpl, &key.PublicKey, key)
	if err != nil {
		t.Fatalf("failed to create certificate: %v", err)
	}
	leaf, err := x509.ParseCertificate(der)
	if err != nil {
		t.Fatalf("failed to parse certificate: %v", err)
	}

	roots := x509.NewCertPool()
	roots.AddCert(leaf)
	return &tls.Config{
		Certificates: []tls.Certificate{{Certificate: [][]byte{der}, PrivateKey: key, Leaf: leaf}},
		MinVersion:   tls.VersionTLS13,
	}, roots
}

func TestServer_StartTLS(t *testing.T) {
	serverTLS, roots := selfSignedTLS(t)
	cfg := config.NewDefaultConfig()
	cfg.Server.RateLimit.Enabled = false
	cfg.Server.ListenAddress = "127.0.0.1:0"
	srv := NewServer(cfg, Dependencies{Engine: engine.New(), TLS: serverTLS})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- srv.Start(ctx) }()

	deadline := time.Now().Add(2 * time.Second)
	for srv.Addr() == nil && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	if srv.Addr() == nil {
		t.Fatal("server did not start")
	}
	_, port, _ := strings.Cut(srv.Addr().String(), ":")

	client := &http.Client{
		Timeout: 5 * time.Second,
		Transport: &http.Transport{
			TLSClientConfig: &tls.Config{RootCAs: roots, ServerName: "localhost", MinVersion: tls.VersionTLS12},
		},
	}
	resp, err := client.Get("https://127.0.0.1:" + port + "/v1/catalog")
	if err != nil {
		t.Fatalf("TLS request failed: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("expected 200, got %d", resp.StatusCode)
	}
	if resp.TLS == nil || resp.TLS.Version != tls.VersionTLS13 {
		t.Error("expected a TLS 1.3 connection")
	}

	plain, err := http.Get("http://" + srv.Addr().String() + "/v1/catalog")
	if err == nil {
		plain.Body.Close()
		if plain.StatusCode == http.StatusOK {
			t.Error("expected plain HTTP to be refused")
		}
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Start returned error: %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("server did not shut down")
	}
}

func TestCallerFields(t *testing.T) {
	var got logging.Fields
	h := callerFields(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = logging.FieldsFrom(r.Context())
	}))

	req := httptest.NewRequest(http.MethodGet, "/v1/report", nil)
	ctx := logging.WithFields(req.Context(), logging.Fields{RequestID: "req-1"})
	ctx = auth.NewContext(ctx, auth.Principal{Name: "dashboard"})
	h.ServeHTTP(httptest.NewRecorder(), req.WithContext(ctx))

	if got.Caller != "dashboard" || got.RequestID != "req-1" {
		t.Errorf("unexpected log fields %+v", got)
	}
}

func TestAuth_CountsFailures(t *testing.T) {
	cfg := config.NewDefaultConfig()
	cfg.Server.RateLimit.Enabled = false
	cfg.Server.Auth.Enabled = true
	cfg.Server.Auth.Keys = []config.APIKeyConfig{{Name: "retired", Key: "sk-retired", Disabled: true}}
	cfg.Telemetry.Metrics.Enabled = true

	keys, err := auth.NewValidator(cfg.Server.Auth.Keys)
	if err != nil {
		t.Fatalf("NewValidator failed: %v", err)
	}
	collector := metrics.NewCollector(&cfg.Telemetry.Metrics, nil)
	h := NewServer(cfg, Dependencies{Engine: engine.New(), Metrics: collector, Keys: keys}).Handler()

	for _, header := range []string{"", "Bearer sk-retired", "Bearer sk-nope"} {
		req := httptest.NewRequest(http.MethodGet, "/v1/report", nil)
		if header != "" {
			req.Header.Set("Authorization", header)
		}
		h.ServeHTTP(httptest.NewRecorder(), req)
	}

	rec := httptest.NewRecorder()
	collector.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	for _, reason := range []string{metrics.AuthMissingKey, metrics.AuthDisabledKey, metrics.AuthInvalidKey} {
		want := `vigil_http_auth_failures_total{reason="` + reason + `"} 1`
		if !strings.Contains(rec.Body.String(), want) {
			t.Errorf("expected %q in exposition", want)
		}
	}
}
