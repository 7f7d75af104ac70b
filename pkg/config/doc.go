// Package config provides configuration management for Vigil.
//
// Configuration is read from a YAML file, layered over built-in defaults and
// overridden by environment variables:
//
//	cfg, err := config.LoadConfigWithEnvOverrides("vigil.yaml")
//
// # Environment Variable Overrides
//
// Environment variables follow the naming convention VIGIL_SECTION_FIELD.
// For example:
//
//   - VIGIL_SERVER_LISTEN_ADDRESS overrides server.listen_address
//   - VIGIL_PROFILES_BACKEND overrides profiles.backend
//   - VIGIL_EVENTS_POSTGRES_DSN overrides events.postgres.dsn
//
// # Configuration Precedence
//
//  1. Default values (defaults.go)
//  2. Values from the YAML file
//  3. Environment variable overrides
//  4. Validation (fails fast if invalid)
//
// # Live Reload
//
// A running server wraps its configuration in a Live. Reload re-reads the
// file, applies the log level in place and reports the sections that only
// change on restart:
//
//	live := config.NewLive(path, cfg, nil)
//	res, err := live.Reload()
package config
