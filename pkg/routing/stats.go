package routing

import (
	"sync"
	"sync/atomic"
	"time"
)

// AtomicRoutingStats implements thread-safe routing statistics using atomic operations.
type AtomicRoutingStats struct {
	totalRequests atomic.Int64

	// primaryPerDeployment tracks primary selections per deployment
	primaryPerDeployment sync.Map // map[string]*atomic.Int64

	excludedCount   atomic.Int64
	noEligibleCount atomic.Int64

	mu            sync.RWMutex
	lastResetTime time.Time
}

// NewAtomicRoutingStats creates a new atomic routing statistics tracker.
func NewAtomicRoutingStats() *AtomicRoutingStats {
	return &AtomicRoutingStats{
		lastResetTime: time.Now(),
	}
}

// IncrementTotal increments the total request counter.
func (s *AtomicRoutingStats) IncrementTotal() {
	s.totalRequests.Add(1)
}

// IncrementPrimary increments the primary selection counter for a deployment.
func (s *AtomicRoutingStats) IncrementPrimary(deploymentID string) {
	val, _ := s.primaryPerDeployment.LoadOrStore(deploymentID, &atomic.Int64{})
	val.(*atomic.Int64).Add(1)
}

// IncrementExcluded increments the counter of requests that skipped an
// ineligible deployment.
func (s *AtomicRoutingStats) IncrementExcluded() {
	s.excludedCount.Add(1)
}

// IncrementNoEligible increments the no-eligible-deployment counter.
func (s *AtomicRoutingStats) IncrementNoEligible() {
	s.noEligibleCount.Add(1)
}

// Snapshot returns a point-in-time snapshot of the statistics.
func (s *AtomicRoutingStats) Snapshot(strategy string) *Stats {
	s.mu.RLock()
	defer s.mu.RUnlock()

	primary := make(map[string]int64)
	s.primaryPerDeployment.Range(func(key, value any) bool {
		primary[key.(string)] = value.(*atomic.Int64).Load()
		return true
	})

	return &Stats{
		TotalRequests:        s.totalRequests.Load(),
		PrimaryPerDeployment: primary,
		ExcludedCount:        s.excludedCount.Load(),
		NoEligibleCount:      s.noEligibleCount.Load(),
		Strategy:             strategy,
		LastResetTime:        s.lastResetTime,
	}
}

// Reset zeroes all counters.
func (s *AtomicRoutingStats) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.totalRequests.Store(0)
	s.excludedCount.Store(0)
	s.noEligibleCount.Store(0)
	s.primaryPerDeployment.Range(func(key, _ any) bool {
		s.primaryPerDeployment.Delete(key)
		return true
	})
	s.lastResetTime = time.Now()
}
