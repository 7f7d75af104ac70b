package tls

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"fmt"
	"log/slog"
	"os"

	"mercator-hq/vigil/pkg/config"
)

// NewServerConfig builds a server TLS configuration and starts the
// certificate reloader, which stops when ctx is done. It returns nil when
// TLS is disabled.
func NewServerConfig(ctx context.Context, cfg config.TLSConfig, logger *slog.Logger) (*tls.Config, error) {
	if !cfg.Enabled {
		return nil, nil
	}
	if cfg.CertFile == "" || cfg.KeyFile == "" {
		return nil, fmt.Errorf("cert_file and key_file are required when TLS is enabled")
	}

	minVersion, err := parseTLSVersion(cfg.MinVersion)
	if err != nil {
		return nil, err
	}
	suites, err := parseCipherSuites(cfg.CipherSuites)
	if err != nil {
		return nil, err
	}

	interval := cfg.ReloadInterval
	if interval <= 0 {
		interval = config.DefaultTLSReloadInterval
	}
	reloader := NewCertificateReloader(cfg.CertFile, cfg.KeyFile, interval, logger)
	if err := reloader.Start(ctx); err != nil {
		return nil, fmt.Errorf("failed to load certificate: %w", err)
	}

	// #nosec G402 - MinVersion is 1.2 or 1.3
	tlsConfig := &tls.Config{
		GetCertificate: reloader.GetCertificateFunc(),
		MinVersion:     minVersion,
		CipherSuites:   suites,
	}

	if cfg.ClientCAFile != "" {
		if err := configureClientAuth(tlsConfig, cfg); err != nil {
			return nil, fmt.Errorf("failed to configure client certificates: %w", err)
		}
	}

	return tlsConfig, nil
}

func parseTLSVersion(v string) (uint16, error) {
	switch v {
	case "1.3", "":
		return tls.VersionTLS13, nil
	case "1.2":
		return tls.VersionTLS12, nil
	default:
		return 0, fmt.Errorf("unsupported TLS version %q", v)
	}
}

// parseCipherSuites returns nil for an empty list so Go's defaults apply.
func parseCipherSuites(names []string) ([]uint16, error) {
	if len(names) == 0 {
		return nil, nil
	}

	suites := make([]uint16, 0, len(names))
	for _, name := range names {
		id, ok := cipherSuites[name]
		if !ok {
			return nil, fmt.Errorf("unsupported cipher suite %q", name)
		}
		suites = append(suites, id)
	}
	return suites, nil
}

// cipherSuites lists the TLS 1.2 suites that may be enabled. TLS 1.3
// suites are not configurable.
var cipherSuites = map[string]uint16{
	"TLS_ECDHE_RSA_WITH_AES_128_GCM_SHA256":         tls.TLS_ECDHE_RSA_WITH_AES_128_GCM_SHA256,
	"TLS_ECDHE_RSA_WITH_AES_256_GCM_SHA384":         tls.TLS_ECDHE_RSA_WITH_AES_256_GCM_SHA384,
	"TLS_ECDHE_ECDSA_WITH_AES_128_GCM_SHA256":       tls.TLS_ECDHE_ECDSA_WITH_AES_128_GCM_SHA256,
	"TLS_ECDHE_ECDSA_WITH_AES_256_GCM_SHA384":       tls.TLS_ECDHE_ECDSA_WITH_AES_256_GCM_SHA384,
	"TLS_ECDHE_RSA_WITH_CHACHA20_POLY1305_SHA256":   tls.TLS_ECDHE_RSA_WITH_CHACHA20_POLY1305_SHA256,
	"TLS_ECDHE_ECDSA_WITH_CHACHA20_POLY1305_SHA256": tls.TLS_ECDHE_ECDSA_WITH_CHACHA20_POLY1305_SHA256,
}

func configureClientAuth(tlsConfig *tls.Config, cfg config.TLSConfig) error {
	pem, err := os.ReadFile(cfg.ClientCAFile)
	if err != nil {
		return fmt.Errorf("failed to read client CA: %w", err)
	}
	pool := x509.NewCertPool()
	if !pool.AppendCertsFromPEM(pem) {
		return fmt.Errorf("no certificates found in %s", cfg.ClientCAFile)
	}

	authType, err := parseClientAuth(cfg.ClientAuth)
	if err != nil {
		return err
	}
	tlsConfig.ClientCAs = pool
	tlsConfig.ClientAuth = authType
	return nil
}

func parseClientAuth(s string) (tls.ClientAuthType, error) {
	switch s {
	case "require", "":
		return tls.RequireAndVerifyClientCert, nil
	case "request":
		return tls.RequestClientCert, nil
	case "verify_if_given":
		return tls.VerifyClientCertIfGiven, nil
	default:
		return 0, fmt.Errorf("unsupported client auth %q", s)
	}
}
