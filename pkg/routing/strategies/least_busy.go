package strategies

import (
	"github.com/igamenovoer/my-litellm-proxy/pkg/routing"
)

// LeastBusyStrategy picks the candidate with the fewest in-flight requests.
// Ties go to the higher weight, then to the earlier candidate.
type LeastBusyStrategy struct{}

// NewLeastBusyStrategy creates a least-busy strategy.
func NewLeastBusyStrategy() *LeastBusyStrategy {
	return &LeastBusyStrategy{}
}

// Pick selects a candidate index.
func (s *LeastBusyStrategy) Pick(_ string, candidates []routing.Candidate) int {
	best := 0
	for i := 1; i < len(candidates); i++ {
		c, b := candidates[i], candidates[best]
		if c.InFlight < b.InFlight ||
			(c.InFlight == b.InFlight && c.Deployment.Weight > b.Deployment.Weight) {
			best = i
		}
	}
	return best
}

// Name returns the strategy name.
func (s *LeastBusyStrategy) Name() string {
	return NameLeastBusy
}

// Reset is a no-op.
func (s *LeastBusyStrategy) Reset() {}

// LatencyStrategy picks the candidate with the lowest recent average
// latency. Deployments without samples report zero and are therefore tried
// first, which gives new deployments traffic to measure.
type LatencyStrategy struct{}

// NewLatencyStrategy creates a latency-based strategy.
func NewLatencyStrategy() *LatencyStrategy {
	return &LatencyStrategy{}
}

// Pick selects a candidate index.
func (s *LatencyStrategy) Pick(_ string, candidates []routing.Candidate) int {
	best := 0
	for i := 1; i < len(candidates); i++ {
		c, b := candidates[i], candidates[best]
		if c.AvgLatency < b.AvgLatency ||
			(c.AvgLatency == b.AvgLatency && c.Deployment.Weight > b.Deployment.Weight) {
			best = i
		}
	}
	return best
}

// Name returns the strategy name.
func (s *LatencyStrategy) Name() string {
	return NameLatencyBased
}

// Reset is a no-op.
func (s *LatencyStrategy) Reset() {}
