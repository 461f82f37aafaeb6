package strategies

import (
	"math/rand/v2"
	"sync"

	"github.com/igamenovoer/my-litellm-proxy/pkg/routing"
)

// WeightedRandomStrategy picks a candidate at random with probability
// proportional to its weight.
type WeightedRandomStrategy struct {
	mu  sync.Mutex
	rng *rand.Rand
}

// NewWeightedRandomStrategy creates a weighted random strategy. A nil source
// uses the runtime's global generator; tests pass a seeded source.
func NewWeightedRandomStrategy(src rand.Source) *WeightedRandomStrategy {
	s := &WeightedRandomStrategy{}
	if src != nil {
		s.rng = rand.New(src)
	}
	return s
}

// Pick selects a candidate index.
func (s *WeightedRandomStrategy) Pick(_ string, candidates []routing.Candidate) int {
	total := 0
	for _, c := range candidates {
		total += c.Deployment.Weight
	}
	if total <= 0 {
		return 0
	}

	n := s.intN(total)
	for i, c := range candidates {
		n -= c.Deployment.Weight
		if n < 0 {
			return i
		}
	}
	return len(candidates) - 1
}

func (s *WeightedRandomStrategy) intN(n int) int {
	if s.rng == nil {
		return rand.IntN(n)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rng.IntN(n)
}

// Name returns the strategy name.
func (s *WeightedRandomStrategy) Name() string {
	return NameSimpleShuffle
}

// Reset is a no-op; the strategy keeps no per-request state.
func (s *WeightedRandomStrategy) Reset() {}
