package strategies

import (
	"sync"

	"github.com/igamenovoer/my-litellm-proxy/pkg/routing"
)

// RoundRobinStrategy implements smooth weighted round robin per model group.
// Over any run of requests each deployment is chosen in proportion to its
// weight, and picks of the same deployment are spread out rather than
// bunched (weights 2:1 give A B A, not A A B).
//
// Candidates can differ from call to call because ineligible deployments
// are filtered out first; only the candidates present take part in a pick.
type RoundRobinStrategy struct {
	mu      sync.Mutex
	current map[string]map[string]int // group -> deployment id -> current weight
}

// NewRoundRobinStrategy creates a new round-robin strategy.
func NewRoundRobinStrategy() *RoundRobinStrategy {
	return &RoundRobinStrategy{
		current: make(map[string]map[string]int),
	}
}

// Pick selects the next candidate.
//
// Algorithm:
//  1. Add each candidate's weight to its current weight
//  2. Choose the candidate with the highest current weight
//  3. Subtract the total weight from the chosen candidate
func (s *RoundRobinStrategy) Pick(group string, candidates []routing.Candidate) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	cur, ok := s.current[group]
	if !ok {
		cur = make(map[string]int)
		s.current[group] = cur
	}

	total := 0
	best := -1
	for i, c := range candidates {
		id := c.Deployment.ID
		cur[id] += c.Deployment.Weight
		total += c.Deployment.Weight
		if best < 0 || cur[id] > cur[candidates[best].Deployment.ID] {
			best = i
		}
	}
	if best < 0 {
		return 0
	}
	cur[candidates[best].Deployment.ID] -= total
	return best
}

// Name returns the strategy name.
func (s *RoundRobinStrategy) Name() string {
	return NameRoundRobin
}

// Reset clears all per-group state.
func (s *RoundRobinStrategy) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.current = make(map[string]map[string]int)
}
