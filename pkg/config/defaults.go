package config

import "time"

// Default values for configuration fields.
const (
	// Server defaults
	DefaultListenAddress   = "127.0.0.1:8080"
	DefaultReadTimeout     = 10 * time.Second
	DefaultWriteTimeout    = 10 * time.Second
	DefaultIdleTimeout     = 120 * time.Second
	DefaultShutdownTimeout = 30 * time.Second
	DefaultMaxHeaderBytes  = 1048576 // 1MB
	DefaultMaxBodyBytes    = int64(1048576)

	// Rate limit defaults
	DefaultRateLimitEnabled = true
	DefaultRateLimitRPS     = 20.0
	DefaultRateLimitBurst   = 40

	// TLS and auth defaults
	DefaultTLSMinVersion     = "1.3"
	DefaultTLSReloadInterval = 5 * time.Minute
	DefaultTLSClientAuth     = "require"
	DefaultAuthHeader        = "Authorization"
	DefaultAuthScheme        = "Bearer"

	// Catalog defaults
	DefaultCatalogSource          = "builtin"
	DefaultCatalogFilePath        = "./catalog.yaml"
	DefaultCatalogWatchDebounce   = 100 * time.Millisecond
	DefaultCatalogGitBranch       = "main"
	DefaultCatalogGitPath         = "catalog.yaml"
	DefaultCatalogGitLocalPath    = "data/catalog-repo"
	DefaultCatalogGitPollInterval = 5 * time.Minute
	DefaultCatalogGitTimeout      = 30 * time.Second
	DefaultCatalogGitAuthType     = "none"

	// Profile store defaults
	DefaultProfilesBackend           = "memory"
	DefaultProfilesSQLitePath        = "data/profiles.db"
	DefaultProfilesSQLiteBusyTimeout = 5 * time.Second
	DefaultRedisAddress              = "localhost:6379"
	DefaultRedisKeyPrefix            = "vigil"

	// Event log defaults
	DefaultEventsBackend           = "memory"
	DefaultEventsSQLitePath        = "data/events.db"
	DefaultEventsSQLiteWALMode     = true
	DefaultEventsSQLiteBusyTimeout = 5 * time.Second
	DefaultPostgresMaxOpenConns    = 10
	DefaultPostgresConnMaxLifetime = 30 * time.Minute

	// Maintenance defaults
	DefaultProfileEvictionSchedule = "0 4 * * *"
	DefaultProfileEvictionMaxIdle  = 30 * 24 * time.Hour
	DefaultEventArchiveSchedule    = "0 3 * * *"
	DefaultEventArchiveDirectory   = "data/archives"
	DefaultEventArchiveFormat      = "jsonl"

	// Telemetry defaults
	DefaultLoggingLevel        = "info"
	DefaultLoggingFormat       = "json"
	DefaultLoggingRedactPII    = true
	DefaultMetricsEnabled      = true
	DefaultPrometheusPath      = "/metrics"
	DefaultMetricsNamespace    = "vigil"
	DefaultTracingEnabled      = false
	DefaultTracingSampler      = "parent"
	DefaultTracingSamplingRate = 0.1
	DefaultTracingServiceName  = "vigil"
	DefaultOTLPInsecure        = true
	DefaultOTLPTimeout         = 10 * time.Second
	DefaultHealthEnabled       = true
	DefaultLivenessPath        = "/health"
	DefaultReadinessPath       = "/ready"
	DefaultHealthCheckTimeout  = 5 * time.Second
)

// DefaultEvaluationDurationBuckets covers sub-millisecond regex evaluation up
// to slow storage round trips.
var DefaultEvaluationDurationBuckets = []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5}

// NewDefaultConfig returns a configuration with every default applied,
// including the boolean settings that default to true and the auth scheme,
// which may be deliberately emptied. LoadConfig decodes
// YAML on top of it, so keys absent from the file keep these values.
func NewDefaultConfig() *Config {
	cfg := &Config{}
	cfg.Server.RateLimit.Enabled = DefaultRateLimitEnabled
	cfg.Server.Auth.Scheme = DefaultAuthScheme
	cfg.Events.SQLite.WALMode = DefaultEventsSQLiteWALMode
	cfg.Telemetry.Logging.RedactPII = DefaultLoggingRedactPII
	cfg.Telemetry.Metrics.Enabled = DefaultMetricsEnabled
	cfg.Telemetry.Tracing.Enabled = DefaultTracingEnabled
	cfg.Telemetry.Tracing.OTLP.Insecure = DefaultOTLPInsecure
	cfg.Telemetry.Health.Enabled = DefaultHealthEnabled
	ApplyDefaults(cfg)
	return cfg
}

// ApplyDefaults sets defaults for any fields that have zero values.
// Boolean fields are left alone; see NewDefaultConfig.
// This function is idempotent and safe to call multiple times.
func ApplyDefaults(cfg *Config) {
	applyServerDefaults(&cfg.Server)
	applyCatalogDefaults(&cfg.Catalog)
	applyStorageDefaults(cfg)
	applyMaintenanceDefaults(&cfg.Maintenance)
	applyTelemetryDefaults(&cfg.Telemetry)
}

func applyServerDefaults(s *ServerConfig) {
	if s.ListenAddress == "" {
		s.ListenAddress = DefaultListenAddress
	}
	if s.ReadTimeout == 0 {
		s.ReadTimeout = DefaultReadTimeout
	}
	if s.WriteTimeout == 0 {
		s.WriteTimeout = DefaultWriteTimeout
	}
	if s.IdleTimeout == 0 {
		s.IdleTimeout = DefaultIdleTimeout
	}
	if s.ShutdownTimeout == 0 {
		s.ShutdownTimeout = DefaultShutdownTimeout
	}
	if s.MaxHeaderBytes == 0 {
		s.MaxHeaderBytes = DefaultMaxHeaderBytes
	}
	if s.MaxBodyBytes == 0 {
		s.MaxBodyBytes = DefaultMaxBodyBytes
	}
	if s.RateLimit.RequestsPerSecond == 0 {
		s.RateLimit.RequestsPerSecond = DefaultRateLimitRPS
	}
	if s.RateLimit.Burst == 0 {
		s.RateLimit.Burst = DefaultRateLimitBurst
	}
	if s.TLS.MinVersion == "" {
		s.TLS.MinVersion = DefaultTLSMinVersion
	}
	if s.TLS.ReloadInterval == 0 {
		s.TLS.ReloadInterval = DefaultTLSReloadInterval
	}
	if s.TLS.ClientAuth == "" {
		s.TLS.ClientAuth = DefaultTLSClientAuth
	}
	if s.Auth.Header == "" {
		s.Auth.Header = DefaultAuthHeader
	}
}

func applyCatalogDefaults(c *CatalogConfig) {
	if c.Source == "" {
		c.Source = DefaultCatalogSource
	}
	if c.FilePath == "" {
		c.FilePath = DefaultCatalogFilePath
	}
	if c.WatchDebounce == 0 {
		c.WatchDebounce = DefaultCatalogWatchDebounce
	}
	if c.Git.Branch == "" {
		c.Git.Branch = DefaultCatalogGitBranch
	}
	if c.Git.Path == "" {
		c.Git.Path = DefaultCatalogGitPath
	}
	if c.Git.LocalPath == "" {
		c.Git.LocalPath = DefaultCatalogGitLocalPath
	}
	if c.Git.PollInterval == 0 {
		c.Git.PollInterval = DefaultCatalogGitPollInterval
	}
	if c.Git.Timeout == 0 {
		c.Git.Timeout = DefaultCatalogGitTimeout
	}
	if c.Git.Auth.Type == "" {
		c.Git.Auth.Type = DefaultCatalogGitAuthType
	}
}

func applyStorageDefaults(cfg *Config) {
	p := &cfg.Profiles
	if p.Backend == "" {
		p.Backend = DefaultProfilesBackend
	}
	if p.SQLite.Path == "" {
		p.SQLite.Path = DefaultProfilesSQLitePath
	}
	if p.SQLite.BusyTimeout == 0 {
		p.SQLite.BusyTimeout = DefaultProfilesSQLiteBusyTimeout
	}
	if p.Redis.Address == "" {
		p.Redis.Address = DefaultRedisAddress
	}
	if p.Redis.KeyPrefix == "" {
		p.Redis.KeyPrefix = DefaultRedisKeyPrefix
	}

	e := &cfg.Events
	if e.Backend == "" {
		e.Backend = DefaultEventsBackend
	}
	if e.SQLite.Path == "" {
		e.SQLite.Path = DefaultEventsSQLitePath
	}
	if e.SQLite.BusyTimeout == 0 {
		e.SQLite.BusyTimeout = DefaultEventsSQLiteBusyTimeout
	}
	if e.Postgres.MaxOpenConns == 0 {
		e.Postgres.MaxOpenConns = DefaultPostgresMaxOpenConns
	}
	if e.Postgres.ConnMaxLifetime == 0 {
		e.Postgres.ConnMaxLifetime = DefaultPostgresConnMaxLifetime
	}
}

func applyMaintenanceDefaults(m *MaintenanceConfig) {
	if m.ProfileEviction.Schedule == "" {
		m.ProfileEviction.Schedule = DefaultProfileEvictionSchedule
	}
	if m.ProfileEviction.MaxIdle == 0 {
		m.ProfileEviction.MaxIdle = DefaultProfileEvictionMaxIdle
	}
	if m.EventArchive.Schedule == "" {
		m.EventArchive.Schedule = DefaultEventArchiveSchedule
	}
	if m.EventArchive.Directory == "" {
		m.EventArchive.Directory = DefaultEventArchiveDirectory
	}
	if m.EventArchive.Format == "" {
		m.EventArchive.Format = DefaultEventArchiveFormat
	}
}

func applyTelemetryDefaults(t *TelemetryConfig) {
	if t.Logging.Level == "" {
		t.Logging.Level = DefaultLoggingLevel
	}
	if t.Logging.Format == "" {
		t.Logging.Format = DefaultLoggingFormat
	}
	if t.Metrics.Path == "" {
		t.Metrics.Path = DefaultPrometheusPath
	}
	if t.Metrics.Namespace == "" {
		t.Metrics.Namespace = DefaultMetricsNamespace
	}
	if len(t.Metrics.EvaluationDurationBuckets) == 0 {
		t.Metrics.EvaluationDurationBuckets = append([]float64(nil), DefaultEvaluationDurationBuckets...)
	}
	if t.Tracing.Sampler == "" {
		t.Tracing.Sampler = DefaultTracingSampler
	}
	if t.Tracing.SampleRatio == 0 {
		t.Tracing.SampleRatio = DefaultTracingSamplingRate
	}
	if t.Tracing.ServiceName == "" {
		t.Tracing.ServiceName = DefaultTracingServiceName
	}
	if t.Tracing.OTLP.Timeout == 0 {
		t.Tracing.OTLP.Timeout = DefaultOTLPTimeout
	}
	if t.Health.LivenessPath == "" {
		t.Health.LivenessPath = DefaultLivenessPath
	}
	if t.Health.ReadinessPath == "" {
		t.Health.ReadinessPath = DefaultReadinessPath
	}
	if t.Health.CheckTimeout == 0 {
		t.Health.CheckTimeout = DefaultHealthCheckTimeout
	}
}
