package main

import (
	"context"
	cryptotls "crypto/tls"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"mercator-hq/vigil/pkg/cli"
	"mercator-hq/vigil/pkg/config"
	"mercator-hq/vigil/pkg/safety/catalog"
	"mercator-hq/vigil/pkg/safety/engine"
	"mercator-hq/vigil/pkg/safety/events"
	"mercator-hq/vigil/pkg/safety/profile"
	"mercator-hq/vigil/pkg/security/auth"
	"mercator-hq/vigil/pkg/security/secrets"
	"mercator-hq/vigil/pkg/security/tls"
	"mercator-hq/vigil/pkg/telemetry/logging"
)

// loadConfig reads the file named by --config with environment and flag
// overrides applied.
func loadConfig() (*config.Config, error) {
	cfg, err := readConfig(cfgFile)
	if err != nil {
		return nil, cli.NewConfigError(cfgFile, err)
	}
	return cfg, nil
}

func readConfig(path string) (*config.Config, error) {
	cfg, err := config.LoadConfigWithEnvOverrides(path)
	if err != nil {
		return nil, err
	}
	if verbose {
		cfg.Telemetry.Logging.Level = "debug"
	}
	return cfg, nil
}

// newLogger builds the process logger and installs it as the slog default.
func newLogger(cfg *config.Config, w io.Writer) (*logging.Logger, error) {
	l, err := logging.NewFromConfig(cfg.Telemetry.Logging, w)
	if err != nil {
		return nil, cli.NewConfigError(cfgFile, err)
	}
	slog.SetDefault(l.Slog())
	return l, nil
}

// openProfileStore opens the configured profile store backend.
func openProfileStore(ctx context.Context, cfg config.ProfilesConfig) (profile.Store, error) {
	switch cfg.Backend {
	case "", "memory":
		return profile.NewMemoryStore(), nil
	case "sqlite":
		return profile.NewSQLiteStoreWithConfig(profile.SQLiteConfig{
			Path:        cfg.SQLite.Path,
			BusyTimeout: cfg.SQLite.BusyTimeout,
		})
	case "redis":
		return profile.NewRedisStore(ctx, profile.RedisConfig{
			Addr:      cfg.Redis.Address,
			Password:  cfg.Redis.Password,
			DB:        cfg.Redis.DB,
			KeyPrefix: cfg.Redis.KeyPrefix,
			TTL:       cfg.Redis.TTL,
		})
	default:
		return nil, fmt.Errorf("unsupported profile backend: %s", cfg.Backend)
	}
}

// openEventLog opens the configured event log backend.
func openEventLog(ctx context.Context, cfg config.EventsConfig) (events.Log, error) {
	switch cfg.Backend {
	case "", "memory":
		return events.NewMemoryLog(), nil
	case "sqlite":
		return events.NewSQLiteLog(&events.SQLiteConfig{
			Path:        cfg.SQLite.Path,
			WALMode:     cfg.SQLite.WALMode,
			BusyTimeout: cfg.SQLite.BusyTimeout,
		})
	case "postgres":
		return events.NewPostgresLog(ctx, events.PostgresConfig{
			DSN:             cfg.Postgres.DSN,
			MaxOpenConns:    cfg.Postgres.MaxOpenConns,
			ConnMaxLifetime: cfg.Postgres.ConnMaxLifetime,
		})
	default:
		return nil, fmt.Errorf("unsupported event backend: %s", cfg.Backend)
	}
}

// openCatalog loads the configured catalog. For the git source the
// repository is cloned first and the source is returned for polling.
func openCatalog(ctx context.Context, cfg config.CatalogConfig, opts ...catalog.ManagerOption) (*catalog.Manager, *catalog.GitSource, error) {
	opts = append([]catalog.ManagerOption{catalog.WithAllowDowngrade(cfg.AllowDowngrade)}, opts...)

	switch cfg.Source {
	case "", "builtin":
		m, err := catalog.NewManager(ctx, nil, opts...)
		return m, nil, err
	case "file":
		m, err := catalog.NewManager(ctx, catalog.NewFileSource(cfg.FilePath), opts...)
		return m, nil, err
	case "git":
		src, err := catalog.NewGitSource(catalog.GitConfig{
			Repository: cfg.Git.Repository,
			Branch:     cfg.Git.Branch,
			Path:       cfg.Git.Path,
			LocalPath:  cfg.Git.LocalPath,
			Timeout:    cfg.Git.Timeout,
			Auth: catalog.GitAuth{
				Type:          cfg.Git.Auth.Type,
				Token:         cfg.Git.Auth.Token,
				SSHKeyPath:    cfg.Git.Auth.SSHKeyPath,
				SSHPassphrase: cfg.Git.Auth.SSHPassphrase,
			},
		})
		if err != nil {
			return nil, nil, err
		}
		if err := src.Clone(ctx); err != nil {
			return nil, nil, err
		}
		m, err := catalog.NewManager(ctx, src, opts...)
		if err != nil {
			return nil, nil, err
		}
		return m, src, nil
	default:
		return nil, nil, fmt.Errorf("unsupported catalog source: %s", cfg.Source)
	}
}

// components holds the engine and the backends it owns.
type components struct {
	engine   *engine.Engine
	catalog  *catalog.Manager
	git      *catalog.GitSource
	store    profile.Store
	profiles *profile.Updater
	log      events.Log
}

// buildComponents opens every backend named by cfg and assembles an engine
// over them. Close releases the backends.
func buildComponents(ctx context.Context, cfg *config.Config, logger *slog.Logger, catalogOpts []catalog.ManagerOption, engineOpts ...engine.Option) (*components, error) {
	if logger == nil {
		logger = slog.Default()
	}
	manager, git, err := openCatalog(ctx, cfg.Catalog, append(catalogOpts, catalog.WithLogger(logger))...)
	if err != nil {
		return nil, fmt.Errorf("failed to load catalog: %w", err)
	}

	store, err := openProfileStore(ctx, cfg.Profiles)
	if err != nil {
		return nil, fmt.Errorf("failed to open profile store: %w", err)
	}

	log, err := openEventLog(ctx, cfg.Events)
	if err != nil {
		store.Close()
		return nil, fmt.Errorf("failed to open event log: %w", err)
	}

	profiles := profile.NewUpdater(store, nil)
	opts := append([]engine.Option{
		engine.WithCatalog(manager),
		engine.WithProfiles(profiles),
		engine.WithEventLog(log),
		engine.WithLogger(logger),
	}, engineOpts...)

	return &components{
		engine:   engine.New(opts...),
		catalog:  manager,
		git:      git,
		store:    store,
		profiles: profiles,
		log:      log,
	}, nil
}

// Close releases the profile store and the event log.
func (c *components) Close() error {
	return errors.Join(c.log.Close(), c.store.Close())
}

// openOutput returns stdout for an empty path, otherwise a created file.
func openOutput(path string) (io.WriteCloser, error) {
	if path == "" || path == "-" {
		return nopCloser{os.Stdout}, nil
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("failed to create output file: %w", err)
	}
	return f, nil
}

type nopCloser struct {
	io.Writer
}

func (nopCloser) Close() error { return nil }

// openSecurity resolves secret references in the API keys and builds the
// key validator and TLS configuration. Either result is nil when the
// corresponding feature is disabled.
func openSecurity(ctx context.Context, cfg config.ServerConfig, logger *slog.Logger) (*auth.Validator, *cryptotls.Config, error) {
	var keys *auth.Validator
	if cfg.Auth.Enabled {
		providers := []secrets.Provider{secrets.NewEnvProvider(secrets.DefaultEnvPrefix)}
		if cfg.Auth.SecretsDir != "" {
			providers = append([]secrets.Provider{secrets.NewFileProvider(cfg.Auth.SecretsDir)}, providers...)
		}
		resolved, err := secrets.NewResolver(providers...).ResolveKeys(ctx, cfg.Auth.Keys)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to resolve API keys: %w", err)
		}
		keys, err = auth.NewValidator(resolved)
		if err != nil {
			return nil, nil, fmt.Errorf("invalid API keys: %w", err)
		}
	}

	tlsConfig, err := tls.NewServerConfig(ctx, cfg.TLS, logger)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to configure TLS: %w", err)
	}
	return keys, tlsConfig, nil
}
