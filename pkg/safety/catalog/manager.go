package catalog

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"
)

// ReloadListener is notified after a successful reload.
type ReloadListener func(c *Catalog)

// ReloadHook observes every reload attempt. Exactly one of result and err
// is non-nil.
type ReloadHook func(result *ReloadResult, err error)

// ReloadResult describes one reload attempt.
type ReloadResult struct {
	FromVersion string
	ToVersion   string
	Changed     bool
	Duration    time.Duration
}

// Manager owns the active catalog. Readers call Current and never block on
// a reload in progress.
type Manager struct {
	source         Source
	allowDowngrade bool
	hook           ReloadHook

	current atomic.Pointer[Catalog]

	// mu serialises reloads and protects listeners.
	mu        sync.Mutex
	listeners []ReloadListener
	lastError error

	logger *slog.Logger
}

// ManagerOption configures a Manager.
type ManagerOption func(*Manager)

// WithAllowDowngrade permits reloading a catalog older than the active one.
func WithAllowDowngrade(allow bool) ManagerOption {
	return func(m *Manager) {
		m.allowDowngrade = allow
	}
}

// WithReloadHook sets a hook called after every reload attempt.
func WithReloadHook(hook ReloadHook) ManagerOption {
	return func(m *Manager) {
		m.hook = hook
	}
}

// WithLogger sets the manager logger.
func WithLogger(logger *slog.Logger) ManagerOption {
	return func(m *Manager) {
		m.logger = logger
	}
}

// NewManager creates a manager and performs the initial load from source.
// A nil source uses the built-in catalog.
func NewManager(ctx context.Context, source Source, opts ...ManagerOption) (*Manager, error) {
	if source == nil {
		source = StaticSource{}
	}
	m := &Manager{
		source: source,
		logger: slog.Default().With("component", "safety.catalog"),
	}
	for _, opt := range opts {
		opt(m)
	}

	c, err := source.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load catalog from %s: %w", source.Name(), err)
	}
	m.current.Store(c)

	m.logger.Info("catalog loaded",
		"source", source.Name(),
		"version", c.Version(),
		"patterns", c.Size())

	return m, nil
}

// NewStaticManager returns a manager serving c without any source I/O.
func NewStaticManager(c *Catalog) *Manager {
	if c == nil {
		c = Default()
	}
	m := &Manager{
		source: StaticSource{Catalog: c},
		logger: slog.Default().With("component", "safety.catalog"),
	}
	m.current.Store(c)
	return m
}

// Current returns the active catalog.
func (m *Manager) Current() *Catalog {
	return m.current.Load()
}

// Source returns the configured source.
func (m *Manager) Source() Source {
	return m.source
}

// OnReload registers a listener called after every successful reload.
func (m *Manager) OnReload(l ReloadListener) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.listeners = append(m.listeners, l)
}

// LastError returns the error of the most recent failed reload, or nil if
// the most recent reload succeeded.
func (m *Manager) LastError() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lastError
}

// Reload loads the source again. On any error the active catalog is kept.
func (m *Manager) Reload(ctx context.Context) (*ReloadResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	result, err := m.reloadLocked(ctx)
	if m.hook != nil {
		m.hook(result, err)
	}
	return result, err
}

func (m *Manager) reloadLocked(ctx context.Context) (*ReloadResult, error) {
	start := time.Now()
	previous := m.current.Load()

	next, err := m.source.Load(ctx)
	if err != nil {
		m.lastError = err
		m.logger.Error("catalog reload failed, keeping active catalog",
			"source", m.source.Name(),
			"version", previous.Version(),
			"error", err)
		return nil, fmt.Errorf("failed to reload catalog: %w", err)
	}

	if !m.allowDowngrade && compareVersions(next.Version(), previous.Version()) < 0 {
		err := fmt.Errorf("catalog downgrade from %s to %s denied", previous.Version(), next.Version())
		m.lastError = err
		m.logger.Warn("catalog reload rejected",
			"source", m.source.Name(),
			"from_version", previous.Version(),
			"to_version", next.Version())
		return nil, err
	}

	m.current.Store(next)
	m.lastError = nil

	result := &ReloadResult{
		FromVersion: previous.Version(),
		ToVersion:   next.Version(),
		Changed:     previous != next,
		Duration:    time.Since(start),
	}

	m.logger.Info("catalog reloaded",
		"source", m.source.Name(),
		"from_version", result.FromVersion,
		"to_version", result.ToVersion,
		"patterns", next.Size(),
		"duration", result.Duration)

	for _, l := range m.listeners {
		l(next)
	}

	return result, nil
}
