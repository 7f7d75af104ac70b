package tls

import (
	"bytes"
	"context"
	"crypto/sha256"
	"crypto/tls"
	"fmt"
	"log/slog"
	"os"
	"sync/atomic"
	"time"
)

// servedPair is a loaded certificate and the digest of the files it came
// from.
type servedPair struct {
	cert   *tls.Certificate
	digest [sha256.Size]byte
}

// CertificateReloader serves a certificate pair from disk and swaps in a
// renewed pair when the file contents change. Handshakes never block on a
// reload.
type CertificateReloader struct {
	certFile string
	keyFile  string
	interval time.Duration
	logger   *slog.Logger
	now      func() time.Time

	current atomic.Pointer[servedPair]
}

// NewCertificateReloader creates a reloader checking the files every
// interval.
func NewCertificateReloader(certFile, keyFile string, interval time.Duration, logger *slog.Logger) *CertificateReloader {
	if logger == nil {
		logger = slog.Default()
	}
	return &CertificateReloader{
		certFile: certFile,
		keyFile:  keyFile,
		interval: interval,
		logger:   logger.With("component", "tls", "cert_file", certFile),
		now:      time.Now,
	}
}

// Start loads the initial pair and checks for renewals until ctx is done.
func (r *CertificateReloader) Start(ctx context.Context) error {
	if _, err := r.Check(); err != nil {
		return err
	}
	go func() {
		ticker := time.NewTicker(r.interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if _, err := r.Check(); err != nil {
					r.logger.Error("certificate reload failed, serving previous pair", "error", err)
				}
			}
		}
	}()
	return nil
}

// Check reads both files and swaps in the pair when their contents differ
// from the one being served. It reports whether a new pair was installed.
// On error the served pair is unchanged.
func (r *CertificateReloader) Check() (bool, error) {
	certPEM, err := os.ReadFile(r.certFile)
	if err != nil {
		return false, fmt.Errorf("failed to read certificate: %w", err)
	}
	keyPEM, err := os.ReadFile(r.keyFile)
	if err != nil {
		return false, fmt.Errorf("failed to read private key: %w", err)
	}

	digest := sha256.Sum256(bytes.Join([][]byte{certPEM, keyPEM}, []byte{0}))
	if cur := r.current.Load(); cur != nil && cur.digest == digest {
		return false, nil
	}

	cert, err := tls.X509KeyPair(certPEM, keyPEM)
	if err != nil {
		return false, fmt.Errorf("failed to parse key pair: %w", err)
	}
	now := r.now()
	leaf, err := ValidateCertificate(&cert, now)
	if err != nil {
		return false, err
	}
	cert.Leaf = leaf
	r.current.Store(&servedPair{cert: &cert, digest: digest})

	soon, days := ExpiresSoon(leaf, now)
	attrs := []any{
		"subject", leaf.Subject.CommonName,
		"expires_in_days", days,
		"not_after", leaf.NotAfter.Format(time.RFC3339),
	}
	if soon {
		r.logger.Warn("serving certificate that expires soon", attrs...)
	} else {
		r.logger.Info("serving certificate", attrs...)
	}
	return true, nil
}

// Certificate returns the pair currently served, or nil before the first
// successful Check.
func (r *CertificateReloader) Certificate() *tls.Certificate {
	if cur := r.current.Load(); cur != nil {
		return cur.cert
	}
	return nil
}

// GetCertificateFunc adapts the reloader to tls.Config.GetCertificate.
func (r *CertificateReloader) GetCertificateFunc() func(*tls.ClientHelloInfo) (*tls.Certificate, error) {
	return func(*tls.ClientHelloInfo) (*tls.Certificate, error) {
		if cert := r.Certificate(); cert != nil {
			return cert, nil
		}
		return nil, fmt.Errorf("no certificate loaded from %s", r.certFile)
	}
}
