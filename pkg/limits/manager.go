package limits

import (
	"log/slog"
	"sync"

	"github.com/igamenovoer/my-litellm-proxy/pkg/limits/ratelimit"
	"github.com/igamenovoer/my-litellm-proxy/pkg/security/auth"
)

// Options configures a Manager.
type Options struct {
	// Logger defaults to slog.Default().
	Logger *slog.Logger

	// Metrics is optional.
	Metrics *Metrics
}

// Manager owns the limiters of all keys.
type Manager struct {
	mu       sync.Mutex
	limiters map[string]*ratelimit.Limiter

	logger  *slog.Logger
	metrics *Metrics
}

// NewManager creates an empty manager. Limiters are created on first use.
func NewManager(opts Options) *Manager {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{
		limiters: make(map[string]*ratelimit.Limiter),
		logger:   logger.With("component", "limits"),
		metrics:  opts.Metrics,
	}
}

// KeyLimits returns the limits configured for a key.
func KeyLimits(info *auth.KeyInfo) ratelimit.Limits {
	if info == nil {
		return ratelimit.Limits{}
	}
	return ratelimit.Limits{RPM: info.RPMLimit, MaxParallel: info.MaxParallelRequests}
}

// Acquire admits one request for the key. A key without limits is always
// allowed. When allowed, release must be called after the request.
func (m *Manager) Acquire(info *auth.KeyInfo) (ratelimit.Decision, func(), error) {
	limits := KeyLimits(info)
	if limits.IsZero() {
		return ratelimit.Decision{Allowed: true}, func() {}, nil
	}

	limiter := m.limiter(info.Alias, limits)
	d, release := limiter.Acquire()
	if !d.Allowed {
		m.metrics.rejected(info.Alias, d.LimitType)
		return d, nil, &LimitError{KeyAlias: info.Alias, LimitType: d.LimitType, RetryAfter: d.RetryAfter}
	}
	m.metrics.admitted(info.Alias)
	return d, release, nil
}

// limiter returns the limiter for alias. A limiter whose limits no longer
// match, after a key was reconfigured, is replaced.
func (m *Manager) limiter(alias string, limits ratelimit.Limits) *ratelimit.Limiter {
	m.mu.Lock()
	defer m.mu.Unlock()

	if l, ok := m.limiters[alias]; ok && l.Limits() == limits {
		return l
	}
	l := ratelimit.NewLimiter(limits)
	m.limiters[alias] = l
	m.logger.Debug("limiter created",
		"key_alias", alias,
		"rpm_limit", limits.RPM,
		"max_parallel_requests", limits.MaxParallel,
	)
	return l
}

// InFlight returns the admitted requests still running for alias.
func (m *Manager) InFlight(alias string) int64 {
	m.mu.Lock()
	l, ok := m.limiters[alias]
	m.mu.Unlock()
	if !ok {
		return 0
	}
	return l.InFlight()
}
