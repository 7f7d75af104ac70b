package health

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"
)

// Status values.
const (
	StatusOK        = "ok"
	StatusReady     = "ready"
	StatusDegraded  = "degraded"
	StatusUnhealthy = "unhealthy"
)

// Impact says what a failing check means for the service.
type Impact int

const (
	// Critical checks guard classification itself. A failure makes the
	// service unready.
	Critical Impact = iota
	// Degrading checks guard persistence. Verdicts are still produced while
	// they fail, so the service stays ready but reports itself degraded.
	Degrading
)

// CheckFunc returns nil when the component is healthy.
type CheckFunc func(ctx context.Context) error

// CheckResult is the outcome of one component check.
type CheckResult struct {
	Status   string  `json:"status"`
	Critical bool    `json:"critical"`
	Message  string  `json:"message,omitempty"`
	Duration float64 `json:"duration_ms"`
}

// HealthStatus is the response body of both probes.
type HealthStatus struct {
	Status    string                 `json:"status"`
	Checks    map[string]CheckResult `json:"checks,omitempty"`
	Timestamp time.Time              `json:"timestamp"`
}

// Ready reports whether the service can classify requests.
func (s HealthStatus) Ready() bool {
	return s.Status != StatusUnhealthy
}

// ErrCheckTimeout is reported when a check does not finish in time.
var ErrCheckTimeout = errors.New("health check timeout")

type registeredCheck struct {
	name   string
	impact Impact
	fn     CheckFunc
}

// Checker holds the registered component checks.
type Checker struct {
	timeout time.Duration

	mu     sync.RWMutex
	checks map[string]registeredCheck
}

// New creates a checker. A zero timeout defaults to five seconds.
func New(timeout time.Duration) *Checker {
	if timeout == 0 {
		timeout = 5 * time.Second
	}
	return &Checker{timeout: timeout, checks: make(map[string]registeredCheck)}
}

// RegisterCheck adds or replaces the check for name.
func (c *Checker) RegisterCheck(name string, impact Impact, check CheckFunc) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.checks[name] = registeredCheck{name: name, impact: impact, fn: check}
}

// ListChecks returns the registered check names in sorted order.
func (c *Checker) ListChecks() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()

	names := make([]string, 0, len(c.checks))
	for name := range c.checks {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// CheckLiveness reports the process as alive.
func (c *Checker) CheckLiveness(ctx context.Context) HealthStatus {
	return HealthStatus{Status: StatusOK, Timestamp: time.Now()}
}

// CheckReadiness runs every check concurrently. The status is unhealthy
// when a critical check fails, degraded when only degrading checks fail,
// and ready otherwise, including when nothing is registered.
func (c *Checker) CheckReadiness(ctx context.Context) HealthStatus {
	c.mu.RLock()
	checks := make([]registeredCheck, 0, len(c.checks))
	for _, rc := range c.checks {
		checks = append(checks, rc)
	}
	c.mu.RUnlock()

	results := make([]CheckResult, len(checks))
	var wg sync.WaitGroup
	for i, rc := range checks {
		wg.Add(1)
		go func() {
			defer wg.Done()
			results[i] = c.run(ctx, rc)
		}()
	}
	wg.Wait()

	status := HealthStatus{
		Status:    StatusReady,
		Checks:    make(map[string]CheckResult, len(checks)),
		Timestamp: time.Now(),
	}
	for i, rc := range checks {
		res := results[i]
		status.Checks[rc.name] = res
		if res.Status != StatusUnhealthy {
			continue
		}
		if res.Critical {
			status.Status = StatusUnhealthy
		} else if status.Status == StatusReady {
			status.Status = StatusDegraded
		}
	}
	return status
}

// run executes one check, giving up after the timeout even if the check
// ignores its context.
func (c *Checker) run(ctx context.Context, rc registeredCheck) CheckResult {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	start := time.Now()
	done := make(chan error, 1)
	go func() { done <- rc.fn(ctx) }()

	var err error
	select {
	case err = <-done:
	case <-ctx.Done():
		err = ErrCheckTimeout
	}

	res := CheckResult{
		Status:   StatusOK,
		Critical: rc.impact == Critical,
		Duration: float64(time.Since(start).Microseconds()) / 1000,
	}
	if err != nil {
		res.Status = StatusUnhealthy
		res.Message = err.Error()
	}
	return res
}
