package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// DefaultConfigPath is the configuration file read when no path is given.
// A missing file at this path is not an error.
const DefaultConfigPath = "vigil.yaml"

// envPrefix starts every environment override.
const envPrefix = "VIGIL_"

// LoadConfig loads configuration from a YAML file at the specified path.
// Keys absent from the file keep their defaults. An empty path, or a
// missing file at DefaultConfigPath, yields the defaults.
// The configuration is not modified by environment variables; use
// LoadConfigWithEnvOverrides for that.
func LoadConfig(path string) (*Config, error) {
	cfg := NewDefaultConfig()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if path == DefaultConfigPath && errors.Is(err, fs.ErrNotExist) {
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to read configuration file %q: %w", path, err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse configuration file %q: %w", path, err)
	}

	ApplyDefaults(cfg)

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// LoadConfigWithEnvOverrides loads configuration from a YAML file and applies
// environment variable overrides. Environment variables follow the naming
// convention VIGIL_SECTION_FIELD (e.g., VIGIL_SERVER_LISTEN_ADDRESS) and
// always take precedence over the file.
//
// The loading sequence is:
// 1. Load YAML from file on top of the defaults
// 2. Apply environment variable overrides
// 3. Validate final configuration
func LoadConfigWithEnvOverrides(path string) (*Config, error) {
	cfg, err := LoadConfig(path)
	if err != nil {
		return nil, err
	}

	applyEnvOverrides(cfg)

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed after environment overrides: %w", err)
	}

	return cfg, nil
}

// applyEnvOverrides applies environment variable overrides to the configuration.
// Unparseable values are ignored.
func applyEnvOverrides(cfg *Config) {
	// Server overrides
	envString("SERVER_LISTEN_ADDRESS", &cfg.Server.ListenAddress)
	envDuration("SERVER_READ_TIMEOUT", &cfg.Server.ReadTimeout)
	envDuration("SERVER_WRITE_TIMEOUT", &cfg.Server.WriteTimeout)
	envDuration("SERVER_SHUTDOWN_TIMEOUT", &cfg.Server.ShutdownTimeout)
	envBool("SERVER_RATE_LIMIT_ENABLED", &cfg.Server.RateLimit.Enabled)
	envFloat("SERVER_RATE_LIMIT_REQUESTS_PER_SECOND", &cfg.Server.RateLimit.RequestsPerSecond)
	envInt("SERVER_RATE_LIMIT_BURST", &cfg.Server.RateLimit.Burst)
	envBool("SERVER_TLS_ENABLED", &cfg.Server.TLS.Enabled)
	envString("SERVER_TLS_CERT_FILE", &cfg.Server.TLS.CertFile)
	envString("SERVER_TLS_KEY_FILE", &cfg.Server.TLS.KeyFile)
	envBool("SERVER_AUTH_ENABLED", &cfg.Server.Auth.Enabled)
	envString("SERVER_AUTH_SECRETS_DIR", &cfg.Server.Auth.SecretsDir)
	if key := os.Getenv(envPrefix + "SERVER_AUTH_KEY"); key != "" {
		cfg.Server.Auth.Keys = append(cfg.Server.Auth.Keys, APIKeyConfig{Name: "env", Key: key})
	}

	// Catalog overrides
	envString("CATALOG_SOURCE", &cfg.Catalog.Source)
	envString("CATALOG_FILE_PATH", &cfg.Catalog.FilePath)
	envBool("CATALOG_WATCH", &cfg.Catalog.Watch)
	envBool("CATALOG_ALLOW_DOWNGRADE", &cfg.Catalog.AllowDowngrade)
	envString("CATALOG_GIT_REPOSITORY", &cfg.Catalog.Git.Repository)
	envString("CATALOG_GIT_BRANCH", &cfg.Catalog.Git.Branch)
	envString("CATALOG_GIT_PATH", &cfg.Catalog.Git.Path)
	envDuration("CATALOG_GIT_POLL_INTERVAL", &cfg.Catalog.Git.PollInterval)
	envString("CATALOG_GIT_AUTH_TYPE", &cfg.Catalog.Git.Auth.Type)
	envString("CATALOG_GIT_AUTH_TOKEN", &cfg.Catalog.Git.Auth.Token)
	envString("CATALOG_GIT_AUTH_SSH_KEY_PATH", &cfg.Catalog.Git.Auth.SSHKeyPath)

	// Profile store overrides
	envString("PROFILES_BACKEND", &cfg.Profiles.Backend)
	envString("PROFILES_SQLITE_PATH", &cfg.Profiles.SQLite.Path)
	envString("PROFILES_REDIS_ADDRESS", &cfg.Profiles.Redis.Address)
	envString("PROFILES_REDIS_PASSWORD", &cfg.Profiles.Redis.Password)
	envInt("PROFILES_REDIS_DB", &cfg.Profiles.Redis.DB)
	envDuration("PROFILES_REDIS_TTL", &cfg.Profiles.Redis.TTL)

	// Event log overrides
	envString("EVENTS_BACKEND", &cfg.Events.Backend)
	envString("EVENTS_SQLITE_PATH", &cfg.Events.SQLite.Path)
	envString("EVENTS_POSTGRES_DSN", &cfg.Events.Postgres.DSN)

	// Maintenance overrides
	envBool("MAINTENANCE_PROFILE_EVICTION_ENABLED", &cfg.Maintenance.ProfileEviction.Enabled)
	envDuration("MAINTENANCE_PROFILE_EVICTION_MAX_IDLE", &cfg.Maintenance.ProfileEviction.MaxIdle)
	envBool("MAINTENANCE_EVENT_ARCHIVE_ENABLED", &cfg.Maintenance.EventArchive.Enabled)
	envString("MAINTENANCE_EVENT_ARCHIVE_DIRECTORY", &cfg.Maintenance.EventArchive.Directory)

	// Telemetry overrides
	envString("TELEMETRY_LOGGING_LEVEL", &cfg.Telemetry.Logging.Level)
	envString("TELEMETRY_LOGGING_FORMAT", &cfg.Telemetry.Logging.Format)
	envString("TELEMETRY_LOGGING_SECURITY_OUTPUT", &cfg.Telemetry.Logging.SecurityOutput)
	envBool("TELEMETRY_METRICS_ENABLED", &cfg.Telemetry.Metrics.Enabled)
	envString("TELEMETRY_METRICS_PATH", &cfg.Telemetry.Metrics.Path)
	envBool("TELEMETRY_TRACING_ENABLED", &cfg.Telemetry.Tracing.Enabled)
	envString("TELEMETRY_TRACING_ENDPOINT", &cfg.Telemetry.Tracing.Endpoint)
	envFloat("TELEMETRY_TRACING_SAMPLE_RATIO", &cfg.Telemetry.Tracing.SampleRatio)
}

func envString(name string, dst *string) {
	if val := os.Getenv(envPrefix + name); val != "" {
		*dst = val
	}
}

func envBool(name string, dst *bool) {
	if val := os.Getenv(envPrefix + name); val != "" {
		if b, err := strconv.ParseBool(val); err == nil {
			*dst = b
		}
	}
}

func envInt(name string, dst *int) {
	if val := os.Getenv(envPrefix + name); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			*dst = i
		}
	}
}

func envFloat(name string, dst *float64) {
	if val := os.Getenv(envPrefix + name); val != "" {
		if f, err := strconv.ParseFloat(val, 64); err == nil {
			*dst = f
		}
	}
}

func envDuration(name string, dst *time.Duration) {
	if val := os.Getenv(envPrefix + name); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			*dst = d
		}
	}
}
