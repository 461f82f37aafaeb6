package health

import (
	"errors"
	"time"

	"github.com/igamenovoer/my-litellm-proxy/pkg/config"
)

// Outcome classifies how an upstream attempt ended.
type Outcome int

const (
	// OutcomeSuccess is a complete upstream response.
	OutcomeSuccess Outcome = iota

	// OutcomeFailure is a transient upstream failure (timeout, 5xx, 429,
	// connection error, malformed body). Failures count toward tripping.
	OutcomeFailure

	// OutcomeCancelled means the caller went away. It never affects health.
	OutcomeCancelled

	// OutcomeClientError is an upstream 4xx. The deployment answered
	// correctly, so it counts as healthy.
	OutcomeClientError
)

// String returns the outcome label used in logs, metrics and audit records.
func (o Outcome) String() string {
	switch o {
	case OutcomeSuccess:
		return "success"
	case OutcomeFailure:
		return "failure"
	case OutcomeCancelled:
		return "cancelled"
	case OutcomeClientError:
		return "client_error"
	default:
		return "unknown"
	}
}

// State is the circuit breaker state of a deployment.
type State int

const (
	StateClosed State = iota
	StateOpen
	StateHalfOpen
)

// String returns the state name.
func (s State) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateOpen:
		return "open"
	case StateHalfOpen:
		return "half_open"
	default:
		return "unknown"
	}
}

// Admission errors. They never reach clients; the dispatcher records them
// and moves on to the next candidate.
var (
	ErrAtCapacity  = errors.New("deployment at capacity")
	ErrCircuitOpen = errors.New("deployment circuit open")
)

// Settings tunes the breaker and the statistics windows.
type Settings struct {
	// FailureThreshold is the failure ratio over the failure window that
	// trips the breaker.
	FailureThreshold float64

	// FailureWindow is the number of most recent outcomes considered.
	FailureWindow int

	// MinRequests is the minimum number of outcomes in the window before
	// the breaker may trip.
	MinRequests int

	// StatsWindow is the ring buffer capacity for latencies and outcomes.
	StatsWindow int

	// Cooldown is how long a tripped deployment stays Open.
	Cooldown time.Duration
}

// SettingsFromConfig extracts tracker settings from router settings.
func SettingsFromConfig(rs config.RouterSettings) Settings {
	return Settings{
		FailureThreshold: rs.FailureThreshold,
		FailureWindow:    rs.FailureWindow,
		MinRequests:      rs.MinRequests,
		StatsWindow:      rs.StatsWindow,
		Cooldown:         rs.CooldownTime,
	}
}

func (s Settings) withDefaults() Settings {
	if s.FailureThreshold <= 0 {
		s.FailureThreshold = config.DefaultFailureThreshold
	}
	if s.StatsWindow <= 0 {
		s.StatsWindow = config.DefaultStatsWindow
	}
	if s.FailureWindow <= 0 {
		s.FailureWindow = min(config.DefaultFailureWindow, s.StatsWindow)
	}
	if s.FailureWindow > s.StatsWindow {
		s.StatsWindow = s.FailureWindow
	}
	if s.MinRequests <= 0 {
		s.MinRequests = min(config.DefaultMinRequests, s.FailureWindow)
	}
	if s.Cooldown <= 0 {
		s.Cooldown = config.DefaultCooldownTime
	}
	return s
}

// Snapshot is a point-in-time view of one deployment's statistics.
type Snapshot struct {
	ID             string        `json:"id"`
	State          string        `json:"state"`
	InFlight       int64         `json:"in_flight"`
	MaxConcurrent  int64         `json:"max_concurrent"`
	AvgLatency     time.Duration `json:"-"`
	AvgLatencyMS   float64       `json:"avg_latency_ms"`
	Successes      int64         `json:"successes"`
	Failures       int64         `json:"failures"`
	RecentFailures int           `json:"recent_failures"`
	LastFailure    *time.Time    `json:"last_failure,omitempty"`
	CooldownUntil  *time.Time    `json:"cooldown_until,omitempty"`
}
