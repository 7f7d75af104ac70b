package main

import (
	"context"
	"path/filepath"
	"testing"

	"mercator-hq/vigil/pkg/config"
	"mercator-hq/vigil/pkg/safety/catalog"
)

func TestOpenProfileStore(t *testing.T) {
	ctx := context.Background()

	mem, err := openProfileStore(ctx, config.ProfilesConfig{Backend: "memory"})
	if err != nil {
		t.Fatalf("memory backend: %v", err)
	}
	mem.Close()

	sqlite, err := openProfileStore(ctx, config.ProfilesConfig{
		Backend: "sqlite",
		SQLite:  config.ProfilesSQLiteConfig{Path: filepath.Join(t.TempDir(), "profiles.db")},
	})
	if err != nil {
		t.Fatalf("sqlite backend: %v", err)
	}
	sqlite.Close()

	if _, err := openProfileStore(ctx, config.ProfilesConfig{Backend: "cassandra"}); err == nil {
		t.Error("unknown backend should fail")
	}
}

func TestOpenEventLog(t *testing.T) {
	ctx := context.Background()

	mem, err := openEventLog(ctx, config.EventsConfig{Backend: "memory"})
	if err != nil {
		t.Fatalf("memory backend: %v", err)
	}
	mem.Close()

	sqlite, err := openEventLog(ctx, config.EventsConfig{
		Backend: "sqlite",
		SQLite:  config.EventsSQLiteConfig{Path: filepath.Join(t.TempDir(), "events.db"), WALMode: true},
	})
	if err != nil {
		t.Fatalf("sqlite backend: %v", err)
	}
	sqlite.Close()

	if _, err := openEventLog(ctx, config.EventsConfig{Backend: "kafka"}); err == nil {
		t.Error("unknown backend should fail")
	}
}

func TestOpenCatalog(t *testing.T) {
	ctx := context.Background()

	m, git, err := openCatalog(ctx, config.CatalogConfig{Source: "builtin"})
	if err != nil {
		t.Fatalf("builtin source: %v", err)
	}
	if git != nil {
		t.Error("builtin source should not return a git source")
	}
	if m.Current().Version() != catalog.DefaultVersion {
		t.Errorf("builtin version = %s, want %s", m.Current().Version(), catalog.DefaultVersion)
	}

	path := writeFile(t, t.TempDir(), "catalog.yaml", testCatalog)
	m, _, err = openCatalog(ctx, config.CatalogConfig{Source: "file", FilePath: path})
	if err != nil {
		t.Fatalf("file source: %v", err)
	}
	if m.Current().Version() != "2.0.0" {
		t.Errorf("file version = %s, want 2.0.0", m.Current().Version())
	}

	if _, _, err := openCatalog(ctx, config.CatalogConfig{Source: "s3"}); err == nil {
		t.Error("unknown source should fail")
	}
}

func TestBuildComponents(t *testing.T) {
	cfg := config.NewDefaultConfig()

	comps, err := buildComponents(context.Background(), cfg, nil, nil)
	if err != nil {
		t.Fatalf("buildComponents() error = %v", err)
	}
	defer comps.Close()

	if comps.engine.Catalog() != comps.catalog {
		t.Error("engine should use the opened catalog manager")
	}
	if comps.engine.Events() != comps.log {
		t.Error("engine should use the opened event log")
	}
	if comps.engine.Profiles() != comps.store {
		t.Error("engine should use the opened profile store")
	}
}

func TestOpenSecurity(t *testing.T) {
	ctx := context.Background()

	keys, tlsConfig, err := openSecurity(ctx, config.ServerConfig{}, nil)
	if err != nil {
		t.Fatalf("openSecurity failed: %v", err)
	}
	if keys != nil || tlsConfig != nil {
		t.Error("expected nothing when auth and TLS are disabled")
	}

	t.Setenv("VIGIL_SECRET_OPS_KEY", "sk-from-env")
	cfg := config.ServerConfig{Auth: config.AuthConfig{
		Enabled: true,
		Keys: []config.APIKeyConfig{
			{Name: "ops", Key: "${secret:ops-key}"},
			{Name: "ci", Key: "sk-literal"},
		},
	}}
	keys, _, err = openSecurity(ctx, cfg, nil)
	if err != nil {
		t.Fatalf("openSecurity failed: %v", err)
	}
	p, err := keys.Validate("sk-from-env")
	if err != nil || p.Name != "ops" {
		t.Errorf("expected resolved ops key, got %+v, %v", p, err)
	}

	cfg.Auth.Keys = []config.APIKeyConfig{{Name: "gone", Key: "${secret:not-set}"}}
	if _, _, err := openSecurity(ctx, cfg, nil); err == nil {
		t.Error("expected unresolved secret to fail")
	}

	tlsCfg := config.ServerConfig{TLS: config.TLSConfig{Enabled: true, CertFile: "missing.crt", KeyFile: "missing.key"}}
	if _, _, err := openSecurity(ctx, tlsCfg, nil); err == nil {
		t.Error("expected missing certificate to fail")
	}
}
