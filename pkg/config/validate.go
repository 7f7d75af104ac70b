package config

import (
	"fmt"
	"strings"

	"github.com/robfig/cron/v3"
)

// FieldError represents a validation error for a specific configuration field.
type FieldError struct {
	// Field is the dotted path to the configuration field (e.g., "server.listen_address").
	Field string

	// Message is a human-readable error message.
	Message string
}

// Error returns the error message for this field error.
func (e FieldError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidationError represents one or more validation errors in a configuration.
type ValidationError struct {
	// Errors contains all validation errors found in the configuration.
	Errors []FieldError
}

// Error returns a formatted string containing all validation errors.
func (e ValidationError) Error() string {
	if len(e.Errors) == 0 {
		return "configuration validation failed"
	}
	if len(e.Errors) == 1 {
		return fmt.Sprintf("configuration validation failed: %s", e.Errors[0].Error())
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("configuration validation failed with %d errors:\n", len(e.Errors)))
	for _, err := range e.Errors {
		sb.WriteString(fmt.Sprintf("  - %s\n", err.Error()))
	}
	return sb.String()
}

// Validate validates the entire configuration and returns a ValidationError
// if any validation rules fail. All validation errors are collected and
// returned together.
func Validate(cfg *Config) error {
	var errs []FieldError

	errs = append(errs, validateServer(&cfg.Server)...)
	errs = append(errs, validateCatalog(&cfg.Catalog)...)
	errs = append(errs, validateProfiles(&cfg.Profiles)...)
	errs = append(errs, validateEvents(&cfg.Events)...)
	errs = append(errs, validateMaintenance(&cfg.Maintenance)...)
	errs = append(errs, validateTelemetry(&cfg.Telemetry)...)

	if len(errs) > 0 {
		return ValidationError{Errors: errs}
	}

	return nil
}

func validateServer(cfg *ServerConfig) []FieldError {
	var errs []FieldError

	if cfg.ListenAddress == "" {
		errs = append(errs, FieldError{
			Field:   "server.listen_address",
			Message: "listen address is required",
		})
	}
	if cfg.ReadTimeout < 0 {
		errs = append(errs, FieldError{
			Field:   "server.read_timeout",
			Message: "read timeout must be positive",
		})
	}
	if cfg.WriteTimeout < 0 {
		errs = append(errs, FieldError{
			Field:   "server.write_timeout",
			Message: "write timeout must be positive",
		})
	}
	if cfg.MaxHeaderBytes < 0 || cfg.MaxHeaderBytes > 10*1024*1024 {
		errs = append(errs, FieldError{
			Field:   "server.max_header_bytes",
			Message: "max header bytes must be between 0 and 10MB",
		})
	}
	if cfg.MaxBodyBytes <= 0 {
		errs = append(errs, FieldError{
			Field:   "server.max_body_bytes",
			Message: "max body bytes must be positive",
		})
	}
	errs = append(errs, validateTLS(&cfg.TLS)...)
	errs = append(errs, validateAuth(&cfg.Auth)...)
	if cfg.RateLimit.Enabled {
		if cfg.RateLimit.RequestsPerSecond <= 0 {
			errs = append(errs, FieldError{
				Field:   "server.rate_limit.requests_per_second",
				Message: "requests per second must be positive when rate limiting is enabled",
			})
		}
		if cfg.RateLimit.Burst <= 0 {
			errs = append(errs, FieldError{
				Field:   "server.rate_limit.burst",
				Message: "burst must be positive when rate limiting is enabled",
			})
		}
	}

	return errs
}

func validateTLS(cfg *TLSConfig) []FieldError {
	var errs []FieldError
	if !cfg.Enabled {
		return nil
	}

	if cfg.CertFile == "" {
		errs = append(errs, FieldError{
			Field:   "server.tls.cert_file",
			Message: "cert file is required when TLS is enabled",
		})
	}
	if cfg.KeyFile == "" {
		errs = append(errs, FieldError{
			Field:   "server.tls.key_file",
			Message: "key file is required when TLS is enabled",
		})
	}
	if cfg.MinVersion != "1.2" && cfg.MinVersion != "1.3" {
		errs = append(errs, FieldError{
			Field:   "server.tls.min_version",
			Message: fmt.Sprintf("invalid min version %q: must be '1.2' or '1.3'", cfg.MinVersion),
		})
	}
	if cfg.ReloadInterval < 0 {
		errs = append(errs, FieldError{
			Field:   "server.tls.reload_interval",
			Message: "reload interval must be positive",
		})
	}
	switch cfg.ClientAuth {
	case "require", "request", "verify_if_given":
	default:
		errs = append(errs, FieldError{
			Field:   "server.tls.client_auth",
			Message: fmt.Sprintf("invalid client auth %q: must be 'require', 'request', or 'verify_if_given'", cfg.ClientAuth),
		})
	}

	return errs
}

func validateAuth(cfg *AuthConfig) []FieldError {
	var errs []FieldError
	if !cfg.Enabled {
		return nil
	}

	if cfg.Header == "" {
		errs = append(errs, FieldError{
			Field:   "server.auth.header",
			Message: "header is required when auth is enabled",
		})
	}
	if len(cfg.Keys) == 0 {
		errs = append(errs, FieldError{
			Field:   "server.auth.keys",
			Message: "at least one key is required when auth is enabled",
		})
	}
	seen := make(map[string]bool, len(cfg.Keys))
	for i, k := range cfg.Keys {
		field := fmt.Sprintf("server.auth.keys[%d]", i)
		if k.Key == "" {
			errs = append(errs, FieldError{Field: field + ".key", Message: "key cannot be empty"})
			continue
		}
		if seen[k.Key] {
			errs = append(errs, FieldError{Field: field + ".key", Message: "duplicate key"})
		}
		seen[k.Key] = true
	}

	return errs
}

func validateCatalog(cfg *CatalogConfig) []FieldError {
	var errs []FieldError

	switch cfg.Source {
	case "builtin":
	case "file":
		if cfg.FilePath == "" {
			errs = append(errs, FieldError{
				Field:   "catalog.file_path",
				Message: "file path is required when source is 'file'",
			})
		}
	case "git":
		if cfg.Git.Repository == "" {
			errs = append(errs, FieldError{
				Field:   "catalog.git.repository",
				Message: "repository is required when source is 'git'",
			})
		}
		if cfg.Git.PollInterval < 0 {
			errs = append(errs, FieldError{
				Field:   "catalog.git.poll_interval",
				Message: "poll interval must be positive",
			})
		}
		switch cfg.Git.Auth.Type {
		case "none":
		case "token":
			if cfg.Git.Auth.Token == "" {
				errs = append(errs, FieldError{
					Field:   "catalog.git.auth.token",
					Message: "token is required when auth type is 'token'",
				})
			}
		case "ssh":
			if cfg.Git.Auth.SSHKeyPath == "" {
				errs = append(errs, FieldError{
					Field:   "catalog.git.auth.ssh_key_path",
					Message: "ssh key path is required when auth type is 'ssh'",
				})
			}
		default:
			errs = append(errs, FieldError{
				Field:   "catalog.git.auth.type",
				Message: fmt.Sprintf("invalid auth type %q: must be 'none', 'token', or 'ssh'", cfg.Git.Auth.Type),
			})
		}
	default:
		errs = append(errs, FieldError{
			Field:   "catalog.source",
			Message: fmt.Sprintf("invalid source %q: must be 'builtin', 'file', or 'git'", cfg.Source),
		})
	}

	if cfg.Watch && cfg.Source != "file" {
		errs = append(errs, FieldError{
			Field:   "catalog.watch",
			Message: "watch is only supported for the 'file' source",
		})
	}

	return errs
}

func validateProfiles(cfg *ProfilesConfig) []FieldError {
	var errs []FieldError

	switch cfg.Backend {
	case "memory":
	case "sqlite":
		if cfg.SQLite.Path == "" {
			errs = append(errs, FieldError{
				Field:   "profiles.sqlite.path",
				Message: "path is required when backend is 'sqlite'",
			})
		}
	case "redis":
		if cfg.Redis.Address == "" {
			errs = append(errs, FieldError{
				Field:   "profiles.redis.address",
				Message: "address is required when backend is 'redis'",
			})
		}
		if cfg.Redis.TTL < 0 {
			errs = append(errs, FieldError{
				Field:   "profiles.redis.ttl",
				Message: "ttl must not be negative",
			})
		}
	default:
		errs = append(errs, FieldError{
			Field:   "profiles.backend",
			Message: fmt.Sprintf("invalid backend %q: must be 'memory', 'sqlite', or 'redis'", cfg.Backend),
		})
	}

	return errs
}

func validateEvents(cfg *EventsConfig) []FieldError {
	var errs []FieldError

	switch cfg.Backend {
	case "memory":
	case "sqlite":
		if cfg.SQLite.Path == "" {
			errs = append(errs, FieldError{
				Field:   "events.sqlite.path",
				Message: "path is required when backend is 'sqlite'",
			})
		}
	case "postgres":
		if cfg.Postgres.DSN == "" {
			errs = append(errs, FieldError{
				Field:   "events.postgres.dsn",
				Message: "dsn is required when backend is 'postgres'",
			})
		}
	default:
		errs = append(errs, FieldError{
			Field:   "events.backend",
			Message: fmt.Sprintf("invalid backend %q: must be 'memory', 'sqlite', or 'postgres'", cfg.Backend),
		})
	}

	return errs
}

func validateMaintenance(cfg *MaintenanceConfig) []FieldError {
	var errs []FieldError

	if cfg.ProfileEviction.Enabled {
		if _, err := cron.ParseStandard(cfg.ProfileEviction.Schedule); err != nil {
			errs = append(errs, FieldError{
				Field:   "maintenance.profile_eviction.schedule",
				Message: fmt.Sprintf("invalid cron expression: %v", err),
			})
		}
		if cfg.ProfileEviction.MaxIdle <= 0 {
			errs = append(errs, FieldError{
				Field:   "maintenance.profile_eviction.max_idle",
				Message: "max idle must be positive",
			})
		}
	}

	if cfg.EventArchive.Enabled {
		if _, err := cron.ParseStandard(cfg.EventArchive.Schedule); err != nil {
			errs = append(errs, FieldError{
				Field:   "maintenance.event_archive.schedule",
				Message: fmt.Sprintf("invalid cron expression: %v", err),
			})
		}
		if cfg.EventArchive.Directory == "" {
			errs = append(errs, FieldError{
				Field:   "maintenance.event_archive.directory",
				Message: "directory is required when the archive is enabled",
			})
		}
		if cfg.EventArchive.Format != "json" && cfg.EventArchive.Format != "jsonl" {
			errs = append(errs, FieldError{
				Field:   "maintenance.event_archive.format",
				Message: fmt.Sprintf("invalid format %q: must be 'json' or 'jsonl'", cfg.EventArchive.Format),
			})
		}
	}

	return errs
}

func validateTelemetry(cfg *TelemetryConfig) []FieldError {
	var errs []FieldError

	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[cfg.Logging.Level] {
		errs = append(errs, FieldError{
			Field:   "telemetry.logging.level",
			Message: fmt.Sprintf("invalid logging level %q: must be 'debug', 'info', 'warn', or 'error'", cfg.Logging.Level),
		})
	}

	validFormats := map[string]bool{"json": true, "text": true}
	if !validFormats[cfg.Logging.Format] {
		errs = append(errs, FieldError{
			Field:   "telemetry.logging.format",
			Message: fmt.Sprintf("invalid logging format %q: must be 'json' or 'text'", cfg.Logging.Format),
		})
	}

	if cfg.Metrics.Enabled && !strings.HasPrefix(cfg.Metrics.Path, "/") {
		errs = append(errs, FieldError{
			Field:   "telemetry.metrics.path",
			Message: "metrics path must start with '/'",
		})
	}

	if cfg.Tracing.Enabled && cfg.Tracing.Endpoint == "" {
		errs = append(errs, FieldError{
			Field:   "telemetry.tracing.endpoint",
			Message: "tracing endpoint is required when tracing is enabled",
		})
	}
	validSamplers := map[string]bool{"always": true, "never": true, "ratio": true, "parent": true}
	if !validSamplers[cfg.Tracing.Sampler] {
		errs = append(errs, FieldError{
			Field:   "telemetry.tracing.sampler",
			Message: fmt.Sprintf("invalid sampler %q: must be 'always', 'never', 'ratio', or 'parent'", cfg.Tracing.Sampler),
		})
	}
	if cfg.Tracing.SampleRatio < 0 || cfg.Tracing.SampleRatio > 1.0 {
		errs = append(errs, FieldError{
			Field:   "telemetry.tracing.sample_ratio",
			Message: "sample ratio must be between 0.0 and 1.0",
		})
	}

	if cfg.Health.Enabled {
		if !strings.HasPrefix(cfg.Health.LivenessPath, "/") {
			errs = append(errs, FieldError{
				Field:   "telemetry.health.liveness_path",
				Message: "liveness path must start with '/'",
			})
		}
		if !strings.HasPrefix(cfg.Health.ReadinessPath, "/") {
			errs = append(errs, FieldError{
				Field:   "telemetry.health.readiness_path",
				Message: "readiness path must start with '/'",
			})
		}
	}

	return errs
}
