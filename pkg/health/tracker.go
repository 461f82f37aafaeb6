package health

import (
	"fmt"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/igamenovoer/my-litellm-proxy/pkg/registry"
)

// StateListener is notified after a deployment's breaker changes state.
// It runs outside the deployment lock and must not block.
type StateListener func(id string, from, to State)

// Option configures a Tracker.
type Option func(*Tracker)

// WithClock overrides the time source. Intended for tests.
func WithClock(now func() time.Time) Option {
	return func(t *Tracker) { t.now = now }
}

// WithStateListener registers a breaker state change listener.
func WithStateListener(l StateListener) Option {
	return func(t *Tracker) { t.listeners = append(t.listeners, l) }
}

// Tracker owns per-deployment runtime statistics: in-flight counts,
// latency and outcome windows, and the circuit breaker. Each deployment has
// its own lock, so bookkeeping for different deployments never contends.
type Tracker struct {
	settings  Settings
	now       func() time.Time
	listeners []StateListener

	stats sync.Map // map[string]*deploymentStats
}

type deploymentStats struct {
	id            string
	maxConcurrent atomic.Int64
	inFlight      atomic.Int64

	mu            sync.Mutex
	latencies     ring[time.Duration]
	outcomes      ring[bool] // true is a failure
	failures      ring[time.Time]
	state         State
	cooldownUntil time.Time
	probeOut      bool
	successCount  int64
	failureCount  int64
}

// NewTracker creates a tracker. Deployments must be registered with Sync
// before they can be admitted.
func NewTracker(settings Settings, opts ...Option) *Tracker {
	t := &Tracker{
		settings: settings.withDefaults(),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Settings returns the effective settings.
func (t *Tracker) Settings() Settings {
	return t.settings
}

// Sync aligns tracked deployments with the given set. New deployments start
// Closed with empty statistics, existing ones keep their statistics and pick
// up a changed max_concurrent, and deployments no longer present are
// dropped. Tokens already issued for dropped deployments stay valid.
func (t *Tracker) Sync(deployments []*registry.Deployment) {
	keep := make(map[string]struct{}, len(deployments))
	for _, d := range deployments {
		keep[d.ID] = struct{}{}
		v, _ := t.stats.LoadOrStore(d.ID, t.newStats(d.ID))
		v.(*deploymentStats).maxConcurrent.Store(int64(d.MaxConcurrent))
	}
	t.stats.Range(func(key, _ any) bool {
		if _, ok := keep[key.(string)]; !ok {
			t.stats.Delete(key)
		}
		return true
	})
}

func (t *Tracker) newStats(id string) *deploymentStats {
	return &deploymentStats{
		id:        id,
		latencies: newRing[time.Duration](t.settings.StatsWindow),
		outcomes:  newRing[bool](t.settings.StatsWindow),
		failures:  newRing[time.Time](t.settings.StatsWindow),
	}
}

func (t *Tracker) lookup(id string) (*deploymentStats, error) {
	v, ok := t.stats.Load(id)
	if !ok {
		return nil, fmt.Errorf("%w: %q", registry.ErrUnknownDeployment, id)
	}
	return v.(*deploymentStats), nil
}

// Admit reserves a concurrency slot on the deployment. It fails with
// ErrCircuitOpen while the breaker is Open or a Half-Open probe is
// outstanding, and with ErrAtCapacity when max_concurrent slots are taken.
// Admission never waits. The returned token must be released exactly once,
// typically with defer tok.Release().
func (t *Tracker) Admit(id string) (*Token, error) {
	s, err := t.lookup(id)
	if err != nil {
		return nil, err
	}

	now := t.now()
	var changed bool

	s.mu.Lock()
	probe := false
	switch s.state {
	case StateOpen:
		if now.Before(s.cooldownUntil) {
			s.mu.Unlock()
			return nil, ErrCircuitOpen
		}
		s.state = StateHalfOpen
		changed = true
		probe = true
	case StateHalfOpen:
		if s.probeOut {
			s.mu.Unlock()
			return nil, ErrCircuitOpen
		}
		probe = true
	}

	limit := s.maxConcurrent.Load()
	if n := s.inFlight.Add(1); limit > 0 && n > limit {
		s.inFlight.Add(-1)
		s.mu.Unlock()
		if changed {
			t.notify(id, StateOpen, StateHalfOpen)
		}
		return nil, ErrAtCapacity
	}
	if probe {
		s.probeOut = true
	}
	s.mu.Unlock()

	if changed {
		t.notify(id, StateOpen, StateHalfOpen)
	}
	return &Token{tracker: t, stats: s, probe: probe, issued: now}, nil
}

// RecordOutcome records an outcome that is not tied to an admission token.
// It updates the statistics windows and may trip a Closed breaker, but it
// never resolves a Half-Open probe.
func (t *Tracker) RecordOutcome(id string, outcome Outcome, latency time.Duration) error {
	s, err := t.lookup(id)
	if err != nil {
		return err
	}
	t.record(s, false, outcome, latency)
	return nil
}

func (t *Tracker) record(s *deploymentStats, probe bool, outcome Outcome, latency time.Duration) {
	now := t.now()

	s.mu.Lock()
	from := s.state

	if outcome == OutcomeCancelled {
		if probe && s.state == StateHalfOpen {
			// Back to Open with the expired cooldown left as is, so the
			// next admission becomes the probe.
			s.probeOut = false
			s.state = StateOpen
		}
		to := s.state
		s.mu.Unlock()
		if from != to {
			t.notify(s.id, from, to)
		}
		return
	}

	failed := outcome == OutcomeFailure
	s.outcomes.push(failed)
	if failed {
		s.failures.push(now)
		s.failureCount++
	} else {
		s.latencies.push(latency)
		s.successCount++
	}

	switch {
	case probe && s.state == StateHalfOpen:
		s.probeOut = false
		if failed {
			s.trip(now, t.settings.Cooldown)
		} else {
			s.state = StateClosed
			s.cooldownUntil = time.Time{}
			s.outcomes.reset()
		}
	case s.state == StateClosed && failed && t.shouldTrip(s):
		s.trip(now, t.settings.Cooldown)
	}

	to := s.state
	s.mu.Unlock()

	if from != to {
		t.notify(s.id, from, to)
	}
}

func (s *deploymentStats) trip(now time.Time, cooldown time.Duration) {
	s.state = StateOpen
	s.cooldownUntil = now.Add(cooldown)
}

// shouldTrip reports whether the failure ratio over the failure window has
// reached the threshold. Callers hold s.mu.
func (t *Tracker) shouldTrip(s *deploymentStats) bool {
	window := s.outcomes.last(t.settings.FailureWindow)
	if len(window) < t.settings.MinRequests {
		return false
	}
	var failed int
	for _, f := range window {
		if f {
			failed++
		}
	}
	return float64(failed)/float64(len(window)) >= t.settings.FailureThreshold
}

func (t *Tracker) notify(id string, from, to State) {
	for _, l := range t.listeners {
		l(id, from, to)
	}
}

// State returns the breaker state. An Open deployment whose cooldown has
// elapsed is reported as Half-Open since the next admission will probe it.
func (t *Tracker) State(id string) State {
	s, err := t.lookup(id)
	if err != nil {
		return StateClosed
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.effectiveState(t.now())
}

func (s *deploymentStats) effectiveState(now time.Time) State {
	if s.state == StateOpen && !now.Before(s.cooldownUntil) {
		return StateHalfOpen
	}
	return s.state
}

// IsHealthy reports whether the deployment's breaker is Closed.
func (t *Tracker) IsHealthy(id string) bool {
	return t.State(id) == StateClosed
}

// Eligible reports whether Admit would currently succeed. The answer can be
// stale by the time Admit runs; Admit remains authoritative.
func (t *Tracker) Eligible(id string) bool {
	s, err := t.lookup(id)
	if err != nil {
		return false
	}

	s.mu.Lock()
	switch s.effectiveState(t.now()) {
	case StateOpen:
		s.mu.Unlock()
		return false
	case StateHalfOpen:
		if s.probeOut {
			s.mu.Unlock()
			return false
		}
	}
	s.mu.Unlock()

	limit := s.maxConcurrent.Load()
	return limit == 0 || s.inFlight.Load() < limit
}

// InFlight returns the number of admitted, unreleased requests.
func (t *Tracker) InFlight(id string) int64 {
	s, err := t.lookup(id)
	if err != nil {
		return 0
	}
	return s.inFlight.Load()
}

// AvgLatency returns the mean latency of recent healthy outcomes, or zero
// when there are none.
func (t *Tracker) AvgLatency(id string) time.Duration {
	s, err := t.lookup(id)
	if err != nil {
		return 0
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.avgLatency()
}

func (s *deploymentStats) avgLatency() time.Duration {
	vals := s.latencies.values()
	if len(vals) == 0 {
		return 0
	}
	var sum time.Duration
	for _, v := range vals {
		sum += v
	}
	return sum / time.Duration(len(vals))
}

// Snapshot returns statistics for every tracked deployment sorted by id.
func (t *Tracker) Snapshot() []Snapshot {
	now := t.now()
	var out []Snapshot
	t.stats.Range(func(_, value any) bool {
		s := value.(*deploymentStats)

		s.mu.Lock()
		snap := Snapshot{
			ID:             s.id,
			State:          s.effectiveState(now).String(),
			InFlight:       s.inFlight.Load(),
			MaxConcurrent:  s.maxConcurrent.Load(),
			AvgLatency:     s.avgLatency(),
			Successes:      s.successCount,
			Failures:       s.failureCount,
			RecentFailures: s.failures.len(),
		}
		if recent := s.failures.last(1); len(recent) == 1 {
			last := recent[0]
			snap.LastFailure = &last
		}
		if s.state == StateOpen && now.Before(s.cooldownUntil) {
			until := s.cooldownUntil
			snap.CooldownUntil = &until
		}
		s.mu.Unlock()

		snap.AvgLatencyMS = float64(snap.AvgLatency) / float64(time.Millisecond)
		out = append(out, snap)
		return true
	})
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}
