package routing

import (
	"time"

	"github.com/igamenovoer/my-litellm-proxy/pkg/registry"
)

// Candidate is an eligible deployment together with the load figures a
// strategy may use to choose between candidates.
type Candidate struct {
	Deployment *registry.Deployment

	// InFlight is the number of admitted, unreleased requests.
	InFlight int64

	// AvgLatency is the mean latency of recent healthy outcomes. Zero means
	// no samples yet.
	AvgLatency time.Duration
}

// Strategy picks the primary deployment among eligible candidates.
// It is defined here to avoid import cycles with the strategies package.
//
// Implementations must be safe for concurrent use.
type Strategy interface {
	// Pick returns the index of the chosen candidate. candidates is never
	// empty. group is the model group name, for strategies that keep
	// per-group state.
	Pick(group string, candidates []Candidate) int

	// Name returns the strategy name as it appears in configuration.
	Name() string

	// Reset clears internal state. Used by tests and on reload.
	Reset()
}

// Stats is a point-in-time copy of routing counters.
type Stats struct {
	// TotalRequests is the number of Select calls.
	TotalRequests int64 `json:"total_requests"`

	// PrimaryPerDeployment counts how often each deployment was chosen as
	// the primary candidate.
	PrimaryPerDeployment map[string]int64 `json:"primary_per_deployment"`

	// ExcludedCount is the number of Select calls that excluded at least
	// one deployment as ineligible.
	ExcludedCount int64 `json:"excluded_count"`

	// NoEligibleCount is the number of Select calls that found nothing
	// eligible.
	NoEligibleCount int64 `json:"no_eligible_count"`

	// Strategy is the active strategy name.
	Strategy string `json:"strategy"`

	// LastResetTime is when the counters were last reset.
	LastResetTime time.Time `json:"last_reset_time"`
}
