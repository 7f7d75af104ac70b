package config

import (
	"fmt"
	"reflect"
	"sync"
)

// Loader reads a configuration file.
type Loader func(path string) (*Config, error)

// ReloadResult describes what a Live.Reload changed.
type ReloadResult struct {
	// LogLevel is the new log level, empty when it did not change.
	LogLevel string

	// Restart lists the sections whose new values were ignored because
	// they only take effect at startup.
	Restart []string
}

// Live holds the configuration of a running server. Reload re-reads the
// file and applies the settings that can change in place; everything else
// keeps its running value until restart.
type Live struct {
	path string
	load Loader

	mu  sync.RWMutex
	cfg *Config
}

// NewLive wraps cfg, which was loaded from path. load defaults to
// LoadConfigWithEnvOverrides.
func NewLive(path string, cfg *Config, load Loader) *Live {
	if load == nil {
		load = LoadConfigWithEnvOverrides
	}
	return &Live{path: path, load: load, cfg: cfg}
}

// Current returns the running configuration. Callers must not modify it.
func (l *Live) Current() *Config {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.cfg
}

// Reload re-reads the configuration file. On error the running
// configuration is unchanged.
func (l *Live) Reload() (*ReloadResult, error) {
	next, err := l.load(l.path)
	if err != nil {
		return nil, fmt.Errorf("failed to reload configuration: %w", err)
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	res := &ReloadResult{Restart: restartSections(l.cfg, next)}
	if next.Telemetry.Logging.Level != l.cfg.Telemetry.Logging.Level {
		res.LogLevel = next.Telemetry.Logging.Level
	}

	updated := *l.cfg
	updated.Telemetry.Logging.Level = next.Telemetry.Logging.Level
	l.cfg = &updated
	return res, nil
}

// restartSections names the startup-only sections that differ between
// cur and next.
func restartSections(cur, next *Config) []string {
	curLogging, nextLogging := cur.Telemetry.Logging, next.Telemetry.Logging
	curLogging.Level, nextLogging.Level = "", ""

	sections := []struct {
		name      string
		cur, next any
	}{
		{"server", cur.Server, next.Server},
		{"catalog", cur.Catalog, next.Catalog},
		{"profiles", cur.Profiles, next.Profiles},
		{"events", cur.Events, next.Events},
		{"maintenance", cur.Maintenance, next.Maintenance},
		{"telemetry.logging", curLogging, nextLogging},
		{"telemetry.metrics", cur.Telemetry.Metrics, next.Telemetry.Metrics},
		{"telemetry.tracing", cur.Telemetry.Tracing, next.Telemetry.Tracing},
		{"telemetry.health", cur.Telemetry.Health, next.Telemetry.Health},
	}

	var changed []string
	for _, s := range sections {
		if !reflect.DeepEqual(s.cur, s.next) {
			changed = append(changed, s.name)
		}
	}
	return changed
}
