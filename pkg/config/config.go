package config

import "time"

// Config is the root configuration structure for Vigil.
type Config struct {
	// Server contains HTTP API server configuration.
	Server ServerConfig `yaml:"server"`

	// Catalog selects where the pattern catalog is loaded from and how it
	// is reloaded.
	Catalog CatalogConfig `yaml:"catalog"`

	// Profiles selects the user risk profile store backend.
	Profiles ProfilesConfig `yaml:"profiles"`

	// Events selects the safety event log backend.
	Events EventsConfig `yaml:"events"`

	// Maintenance contains scheduled profile eviction and event archive jobs.
	Maintenance MaintenanceConfig `yaml:"maintenance"`

	// Telemetry contains logging, metrics, tracing and health settings.
	Telemetry TelemetryConfig `yaml:"telemetry"`
}

// ServerConfig contains configuration for the HTTP API server.
type ServerConfig struct {
	// ListenAddress is the address and port to listen on.
	// Default: "127.0.0.1:8080"
	ListenAddress string `yaml:"listen_address"`

	// ReadTimeout is the maximum duration for reading the entire request.
	// Default: 10s
	ReadTimeout time.Duration `yaml:"read_timeout"`

	// WriteTimeout is the maximum duration before timing out writes of the
	// response.
	// Default: 10s
	WriteTimeout time.Duration `yaml:"write_timeout"`

	// IdleTimeout is the keep-alive idle timeout.
	// Default: 120s
	IdleTimeout time.Duration `yaml:"idle_timeout"`

	// ShutdownTimeout bounds graceful shutdown.
	// Default: 30s
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`

	// MaxHeaderBytes limits request header size.
	// Default: 1048576 (1MB)
	MaxHeaderBytes int `yaml:"max_header_bytes"`

	// MaxBodyBytes limits request body size.
	// Default: 1048576 (1MB)
	MaxBodyBytes int64 `yaml:"max_body_bytes"`

	// RateLimit throttles requests per client address.
	RateLimit RateLimitConfig `yaml:"rate_limit"`

	// TLS serves HTTPS when enabled.
	TLS TLSConfig `yaml:"tls"`

	// Auth requires an API key on the /v1 routes.
	Auth AuthConfig `yaml:"auth"`
}

// TLSConfig configures HTTPS for the API server.
type TLSConfig struct {
	// Enabled turns TLS on.
	// Default: false
	Enabled bool `yaml:"enabled"`

	// CertFile is the PEM-encoded certificate chain.
	CertFile string `yaml:"cert_file"`

	// KeyFile is the PEM-encoded private key.
	KeyFile string `yaml:"key_file"`

	// MinVersion is the lowest accepted protocol version.
	// Options: "1.2", "1.3"
	// Default: "1.3"
	MinVersion string `yaml:"min_version"`

	// CipherSuites restricts TLS 1.2 cipher suites. Empty uses Go's defaults.
	CipherSuites []string `yaml:"cipher_suites"`

	// ReloadInterval is how often the certificate files are checked for
	// changes.
	// Default: 5m
	ReloadInterval time.Duration `yaml:"reload_interval"`

	// ClientCAFile enables mutual TLS with clients signed by this CA.
	ClientCAFile string `yaml:"client_ca_file"`

	// ClientAuth is the client certificate policy when ClientCAFile is set.
	// Options: "require", "request", "verify_if_given"
	// Default: "require"
	ClientAuth string `yaml:"client_auth"`
}

// AuthConfig configures API key authentication.
type AuthConfig struct {
	// Enabled requires a valid key on every /v1 request.
	// Default: false
	Enabled bool `yaml:"enabled"`

	// Header carries the key.
	// Default: "Authorization"
	Header string `yaml:"header"`

	// Scheme is the prefix stripped from the header value. Empty accepts
	// the raw key.
	// Default: "Bearer"
	Scheme string `yaml:"scheme"`

	// Keys are the accepted API keys.
	Keys []APIKeyConfig `yaml:"keys"`

	// SecretsDir holds one file per secret, readable only by the owner.
	// Key values of the form ${secret:name} are resolved from this
	// directory first and then from VIGIL_SECRET_<NAME> variables.
	SecretsDir string `yaml:"secrets_dir"`
}

// APIKeyConfig is one accepted API key.
type APIKeyConfig struct {
	// Name identifies the key holder in logs.
	Name string `yaml:"name"`

	// Key is the secret value, or a ${secret:name} reference.
	Key string `yaml:"key"`

	// Disabled rejects the key without removing it.
	Disabled bool `yaml:"disabled"`
}

// RateLimitConfig configures the per-client token bucket.
type RateLimitConfig struct {
	// Enabled turns rate limiting on.
	// Default: true
	Enabled bool `yaml:"enabled"`

	// RequestsPerSecond is the refill rate.
	// Default: 20
	RequestsPerSecond float64 `yaml:"requests_per_second"`

	// Burst is the bucket size.
	// Default: 40
	Burst int `yaml:"burst"`
}

// CatalogConfig contains pattern catalog configuration.
type CatalogConfig struct {
	// Source is where the catalog comes from.
	// Options: "builtin", "file", "git"
	// Default: "builtin"
	Source string `yaml:"source"`

	// FilePath is the catalog YAML file for the "file" source.
	// Default: "./catalog.yaml"
	FilePath string `yaml:"file_path"`

	// Watch reloads the file catalog when it changes on disk.
	// Default: false
	Watch bool `yaml:"watch"`

	// WatchDebounce coalesces bursts of file events.
	// Default: 100ms
	WatchDebounce time.Duration `yaml:"watch_debounce"`

	// AllowDowngrade accepts reloads whose version is lower than the
	// active catalog.
	// Default: false
	AllowDowngrade bool `yaml:"allow_downgrade"`

	// Git configures the "git" source.
	Git GitCatalogConfig `yaml:"git"`
}

// GitCatalogConfig locates the catalog inside a git repository.
type GitCatalogConfig struct {
	// Repository is the clone URL.
	Repository string `yaml:"repository"`

	// Branch is the branch to track.
	// Default: "main"
	Branch string `yaml:"branch"`

	// Path is the catalog file inside the repository.
	// Default: "catalog.yaml"
	Path string `yaml:"path"`

	// LocalPath is the clone directory.
	// Default: "data/catalog-repo"
	LocalPath string `yaml:"local_path"`

	// PollInterval is how often the repository is pulled.
	// Default: 5m
	PollInterval time.Duration `yaml:"poll_interval"`

	// Timeout bounds each clone or pull.
	// Default: 30s
	Timeout time.Duration `yaml:"timeout"`

	// Auth contains repository credentials.
	Auth GitAuthConfig `yaml:"auth"`
}

// GitAuthConfig contains git credentials.
type GitAuthConfig struct {
	// Type is the auth method.
	// Options: "none", "token", "ssh"
	// Default: "none"
	Type string `yaml:"type"`

	// Token is a personal access token for HTTPS.
	Token string `yaml:"token"`

	// SSHKeyPath is the private key file for SSH.
	SSHKeyPath string `yaml:"ssh_key_path"`

	// SSHPassphrase unlocks the SSH key.
	SSHPassphrase string `yaml:"ssh_passphrase"`
}

// ProfilesConfig contains user risk profile store configuration.
type ProfilesConfig struct {
	// Backend is the store implementation.
	// Options: "memory", "sqlite", "redis"
	// Default: "memory"
	Backend string `yaml:"backend"`

	// SQLite configures the "sqlite" backend.
	SQLite ProfilesSQLiteConfig `yaml:"sqlite"`

	// Redis configures the "redis" backend.
	Redis RedisConfig `yaml:"redis"`
}

// ProfilesSQLiteConfig configures the SQLite profile store.
type ProfilesSQLiteConfig struct {
	// Path is the database file.
	// Default: "data/profiles.db"
	Path string `yaml:"path"`

	// BusyTimeout is how long to wait for locks.
	// Default: 5s
	BusyTimeout time.Duration `yaml:"busy_timeout"`
}

// RedisConfig configures the Redis profile store.
type RedisConfig struct {
	// Address is the Redis host:port.
	// Default: "localhost:6379"
	Address string `yaml:"address"`

	// Password authenticates to Redis.
	Password string `yaml:"password"`

	// DB is the database number.
	DB int `yaml:"db"`

	// KeyPrefix namespaces keys.
	// Default: "vigil"
	KeyPrefix string `yaml:"key_prefix"`

	// TTL expires idle profiles. Zero keeps them indefinitely.
	TTL time.Duration `yaml:"ttl"`
}

// EventsConfig contains safety event log configuration.
type EventsConfig struct {
	// Backend is the log implementation.
	// Options: "memory", "sqlite", "postgres"
	// Default: "memory"
	Backend string `yaml:"backend"`

	// SQLite configures the "sqlite" backend.
	SQLite EventsSQLiteConfig `yaml:"sqlite"`

	// Postgres configures the "postgres" backend.
	Postgres PostgresConfig `yaml:"postgres"`
}

// EventsSQLiteConfig configures the SQLite event log.
type EventsSQLiteConfig struct {
	// Path is the database file.
	// Default: "data/events.db"
	Path string `yaml:"path"`

	// WALMode enables write-ahead logging.
	// Default: true
	WALMode bool `yaml:"wal_mode"`

	// BusyTimeout is how long to wait for locks.
	// Default: 5s
	BusyTimeout time.Duration `yaml:"busy_timeout"`
}

// PostgresConfig configures the PostgreSQL event log.
type PostgresConfig struct {
	// DSN is the lib/pq connection string.
	DSN string `yaml:"dsn"`

	// MaxOpenConns caps the connection pool.
	// Default: 10
	MaxOpenConns int `yaml:"max_open_conns"`

	// ConnMaxLifetime recycles connections.
	// Default: 30m
	ConnMaxLifetime time.Duration `yaml:"conn_max_lifetime"`
}

// MaintenanceConfig contains scheduled jobs.
type MaintenanceConfig struct {
	// ProfileEviction removes profiles that have been idle for too long.
	ProfileEviction ProfileEvictionConfig `yaml:"profile_eviction"`

	// EventArchive periodically exports the event log to a file.
	EventArchive EventArchiveConfig `yaml:"event_archive"`
}

// ProfileEvictionConfig configures the profile eviction job.
type ProfileEvictionConfig struct {
	// Enabled turns the job on. Profiles otherwise live for the lifetime
	// of their store.
	// Default: false
	Enabled bool `yaml:"enabled"`

	// Schedule is a cron expression.
	// Default: "0 4 * * *" (daily at 4 AM)
	Schedule string `yaml:"schedule"`

	// MaxIdle is how long a profile may go without an update.
	// Default: 720h (30 days)
	MaxIdle time.Duration `yaml:"max_idle"`
}

// EventArchiveConfig configures the event archive job.
type EventArchiveConfig struct {
	// Enabled turns the job on.
	// Default: false
	Enabled bool `yaml:"enabled"`

	// Schedule is a cron expression.
	// Default: "0 3 * * *" (daily at 3 AM)
	Schedule string `yaml:"schedule"`

	// Directory receives the archive files.
	// Default: "data/archives"
	Directory string `yaml:"directory"`

	// Format is "json" or "jsonl".
	// Default: "jsonl"
	Format string `yaml:"format"`
}

// TelemetryConfig contains configuration for observability.
type TelemetryConfig struct {
	// Logging contains logging configuration.
	Logging LoggingConfig `yaml:"logging"`

	// Metrics contains metrics collection configuration.
	Metrics MetricsConfig `yaml:"metrics"`

	// Tracing contains distributed tracing configuration.
	Tracing TracingConfig `yaml:"tracing"`

	// Health contains health check configuration.
	Health HealthConfig `yaml:"health"`
}

// LoggingConfig contains logging configuration.
type LoggingConfig struct {
	// Level is the minimum log level to emit.
	// Options: "debug", "info", "warn", "error"
	// Default: "info"
	Level string `yaml:"level"`

	// Format controls the log output format.
	// Options: "json", "text"
	// Default: "json"
	Format string `yaml:"format"`

	// AddSource includes file and line number in log entries.
	// Default: false
	AddSource bool `yaml:"add_source"`

	// RedactPII masks emails, phone numbers and similar values in log
	// fields.
	// Default: true
	RedactPII bool `yaml:"redact_pii"`

	// SecurityOutput receives a copy of every CRITICAL and EMERGENCY entry.
	// Empty disables the security log.
	SecurityOutput string `yaml:"security_output"`

	// RedactPatterns contains additional redaction patterns.
	RedactPatterns []RedactPattern `yaml:"redact_patterns"`
}

// RedactPattern defines a custom redaction pattern.
type RedactPattern struct {
	// Name is a descriptive name for the pattern.
	Name string `yaml:"name"`

	// Pattern is the regular expression to match.
	Pattern string `yaml:"pattern"`

	// Replacement is the string to replace matches with.
	Replacement string `yaml:"replacement"`
}

// MetricsConfig contains metrics collection configuration.
type MetricsConfig struct {
	// Enabled controls whether metrics collection is active.
	// Default: true
	Enabled bool `yaml:"enabled"`

	// Path is the HTTP path for the Prometheus metrics endpoint.
	// Default: "/metrics"
	Path string `yaml:"path"`

	// Namespace is the metric name prefix.
	// Default: "vigil"
	Namespace string `yaml:"namespace"`

	// EvaluationDurationBuckets defines histogram buckets for evaluation
	// duration (seconds).
	// Default: [0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5]
	EvaluationDurationBuckets []float64 `yaml:"evaluation_duration_buckets"`
}

// TracingConfig contains distributed tracing configuration.
type TracingConfig struct {
	// Enabled controls whether distributed tracing is active.
	// Default: false
	Enabled bool `yaml:"enabled"`

	// Sampler determines the sampling strategy.
	// Options: "always", "never", "ratio", "parent"
	// Default: "parent"
	Sampler string `yaml:"sampler"`

	// SampleRatio is the fraction of traces to sample (0.0 to 1.0).
	// Default: 0.1
	SampleRatio float64 `yaml:"sample_ratio"`

	// Endpoint is the OTLP gRPC collector endpoint.
	// Example: "localhost:4317"
	Endpoint string `yaml:"endpoint"`

	// ServiceName is the service name in traces.
	// Default: "vigil"
	ServiceName string `yaml:"service_name"`

	// OTLP contains OTLP exporter specific configuration.
	OTLP OTLPConfig `yaml:"otlp"`
}

// OTLPConfig contains OTLP exporter configuration.
type OTLPConfig struct {
	// Insecure disables TLS for the OTLP connection.
	// Default: true
	Insecure bool `yaml:"insecure"`

	// Timeout is the timeout for OTLP exports.
	// Default: 10s
	Timeout time.Duration `yaml:"timeout"`
}

// HealthConfig contains health check endpoint configuration.
type HealthConfig struct {
	// Enabled controls whether health check endpoints are served.
	// Default: true
	Enabled bool `yaml:"enabled"`

	// LivenessPath is the path for the liveness probe endpoint.
	// Default: "/health"
	LivenessPath string `yaml:"liveness_path"`

	// ReadinessPath is the path for the readiness probe endpoint.
	// Default: "/ready"
	ReadinessPath string `yaml:"readiness_path"`

	// CheckTimeout is the timeout for individual component checks.
	// Default: 5s
	CheckTimeout time.Duration `yaml:"check_timeout"`
}
