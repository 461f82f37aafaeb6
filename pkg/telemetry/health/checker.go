package health

import (
	"context"
	"errors"
	"maps"
	"slices"
	"sync"
	"time"
)

const (
	StatusReady    = "ready"
	StatusDegraded = "degraded"

	CheckOK        = "ok"
	CheckUnhealthy = "unhealthy"

	defaultCheckTimeout = 5 * time.Second
)

// ErrCheckTimeout is reported for a check that outlives its timeout.
var ErrCheckTimeout = errors.New("health check timeout")

// CheckFunc probes one dependency. nil means it can serve traffic.
type CheckFunc func(ctx context.Context) error

// CheckResult is the outcome of one probe.
type CheckResult struct {
	Status     string  `json:"status"`
	Message    string  `json:"message,omitempty"`
	DurationMS float64 `json:"duration_ms"`
}

// HealthStatus is the readiness report served on /health/readiness.
type HealthStatus struct {
	Status    string                 `json:"status"`
	Checks    map[string]CheckResult `json:"checks,omitempty"`
	Timestamp time.Time              `json:"timestamp"`
}

// Checker runs named readiness probes. The gateway is ready while all of
// them pass; with none registered it is always ready.
type Checker struct {
	mu           sync.RWMutex
	checks       map[string]CheckFunc
	checkTimeout time.Duration
}

// New returns a Checker that gives each probe checkTimeout, 5s when zero.
func New(checkTimeout time.Duration) *Checker {
	if checkTimeout <= 0 {
		checkTimeout = defaultCheckTimeout
	}
	return &Checker{checks: map[string]CheckFunc{}, checkTimeout: checkTimeout}
}

// RegisterCheck adds or replaces the probe called name.
func (c *Checker) RegisterCheck(name string, check CheckFunc) {
	c.mu.Lock()
	c.checks[name] = check
	c.mu.Unlock()
}

func (c *Checker) UnregisterCheck(name string) {
	c.mu.Lock()
	delete(c.checks, name)
	c.mu.Unlock()
}

// ListChecks returns the registered probe names in order.
func (c *Checker) ListChecks() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return slices.Sorted(maps.Keys(c.checks))
}

// CheckReadiness runs every probe in parallel and folds the results.
func (c *Checker) CheckReadiness(ctx context.Context) HealthStatus {
	c.mu.RLock()
	checks := maps.Clone(c.checks)
	c.mu.RUnlock()

	report := HealthStatus{
		Status: StatusReady,
		Checks: make(map[string]CheckResult, len(checks)),
	}

	var (
		wg sync.WaitGroup
		mu sync.Mutex
	)
	for name, check := range checks {
		wg.Go(func() {
			res := c.probe(ctx, check)
			mu.Lock()
			report.Checks[name] = res
			mu.Unlock()
		})
	}
	wg.Wait()

	for _, res := range report.Checks {
		if res.Status != CheckOK {
			report.Status = StatusDegraded
			break
		}
	}
	report.Timestamp = time.Now().UTC()
	return report
}

// probe runs check under the per-check timeout. A check that ignores its
// context is abandoned, not waited for.
func (c *Checker) probe(ctx context.Context, check CheckFunc) CheckResult {
	ctx, cancel := context.WithTimeout(ctx, c.checkTimeout)
	defer cancel()

	start := time.Now()
	done := make(chan error, 1)
	go func() { done <- check(ctx) }()

	var err error
	select {
	case err = <-done:
	case <-ctx.Done():
		err = ErrCheckTimeout
	}

	res := CheckResult{Status: CheckOK, DurationMS: float64(time.Since(start).Microseconds()) / 1000}
	if err != nil {
		res.Status = CheckUnhealthy
		res.Message = err.Error()
	}
	return res
}
