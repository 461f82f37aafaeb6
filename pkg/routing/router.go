package routing

import (
	"log/slog"
	"sort"
	"time"

	"github.com/igamenovoer/my-litellm-proxy/pkg/health"
	"github.com/igamenovoer/my-litellm-proxy/pkg/registry"
)

// HealthView is the read-only slice of the health tracker the router needs.
type HealthView interface {
	Eligible(id string) bool
	State(id string) health.State
	InFlight(id string) int64
	AvgLatency(id string) time.Duration
}

// Router orders the deployments of a model group for one request.
//
// Ordering is computed fresh on every call and never cached:
//  1. Deployments whose breaker is Open, whose Half-Open probe is in
//     flight, or which are at max_concurrent are excluded.
//  2. The strategy picks the primary candidate. WithTieredPrimary limits
//     the pick to the lowest eligible priority tier.
//  3. The remaining candidates follow by priority tier (lowest first), then
//     lowest average latency, then highest weight, then id.
//
// Router is safe for concurrent use.
type Router struct {
	health   HealthView
	strategy Strategy
	stats    *AtomicRoutingStats
	logger   *slog.Logger

	tieredPrimary bool
}

// Option configures a Router.
type Option func(*Router)

// WithTieredPrimary makes higher tiers pure backups: the primary is picked
// only among eligible deployments of the lowest tier present.
func WithTieredPrimary(enabled bool) Option {
	return func(r *Router) { r.tieredPrimary = enabled }
}

// NewRouter creates a router.
func NewRouter(h HealthView, strategy Strategy, logger *slog.Logger, opts ...Option) *Router {
	if logger == nil {
		logger = slog.Default()
	}
	r := &Router{
		health:   h,
		strategy: strategy,
		stats:    NewAtomicRoutingStats(),
		logger:   logger,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Select returns the eligible deployments of group in attempt order. It
// fails with a *NoEligibleError when nothing is eligible.
func (r *Router) Select(group *registry.ModelGroup) ([]*registry.Deployment, error) {
	r.stats.IncrementTotal()

	candidates := make([]Candidate, 0, len(group.Deployments))
	var excluded map[string]string
	for _, d := range group.Deployments {
		if !r.health.Eligible(d.ID) {
			if excluded == nil {
				excluded = make(map[string]string)
			}
			excluded[d.ID] = r.exclusionReason(d.ID)
			continue
		}
		candidates = append(candidates, Candidate{
			Deployment: d,
			InFlight:   r.health.InFlight(d.ID),
			AvgLatency: r.health.AvgLatency(d.ID),
		})
	}

	if len(excluded) > 0 {
		r.stats.IncrementExcluded()
		r.logger.Debug("deployments excluded from routing",
			"model", group.Name,
			"excluded", len(excluded),
			"eligible", len(candidates),
		)
	}

	if len(candidates) == 0 {
		r.stats.IncrementNoEligible()
		return nil, &NoEligibleError{Model: group.Name, Excluded: excluded}
	}

	primary := r.pickPrimary(group.Name, candidates)
	r.stats.IncrementPrimary(candidates[primary].Deployment.ID)

	rest := make([]Candidate, 0, len(candidates)-1)
	rest = append(rest, candidates[:primary]...)
	rest = append(rest, candidates[primary+1:]...)
	sortFallbacks(rest)

	ordered := make([]*registry.Deployment, 0, len(candidates))
	ordered = append(ordered, candidates[primary].Deployment)
	for _, c := range rest {
		ordered = append(ordered, c.Deployment)
	}
	return ordered, nil
}

// pickPrimary returns the index of the primary within candidates.
func (r *Router) pickPrimary(model string, candidates []Candidate) int {
	pool, index := candidates, []int(nil)
	if r.tieredPrimary {
		pool, index = lowestTier(candidates)
	}
	if len(pool) == 1 {
		if index != nil {
			return index[0]
		}
		return 0
	}

	i := r.strategy.Pick(model, pool)
	if i < 0 || i >= len(pool) {
		i = 0
	}
	if index != nil {
		return index[i]
	}
	return i
}

// lowestTier returns the candidates of the lowest priority tier and their
// positions in cs.
func lowestTier(cs []Candidate) ([]Candidate, []int) {
	low := cs[0].Deployment.Priority
	for _, c := range cs[1:] {
		low = min(low, c.Deployment.Priority)
	}
	var (
		pool  []Candidate
		index []int
	)
	for i, c := range cs {
		if c.Deployment.Priority == low {
			pool = append(pool, c)
			index = append(index, i)
		}
	}
	return pool, index
}

func (r *Router) exclusionReason(id string) string {
	switch r.health.State(id) {
	case health.StateOpen:
		return "circuit open"
	case health.StateHalfOpen:
		return "probe in flight"
	default:
		return "at capacity"
	}
}

// sortFallbacks orders candidates by priority tier, then average latency,
// then weight (descending), then id.
func sortFallbacks(cs []Candidate) {
	sort.SliceStable(cs, func(i, j int) bool {
		a, b := cs[i].Deployment, cs[j].Deployment
		if a.Priority != b.Priority {
			return a.Priority < b.Priority
		}
		if cs[i].AvgLatency != cs[j].AvgLatency {
			return cs[i].AvgLatency < cs[j].AvgLatency
		}
		if a.Weight != b.Weight {
			return a.Weight > b.Weight
		}
		return a.ID < b.ID
	})
}

// Strategy returns the name of the configured strategy.
func (r *Router) Strategy() string {
	return r.strategy.Name()
}

// Stats returns a snapshot of routing counters.
func (r *Router) Stats() *Stats {
	return r.stats.Snapshot(r.strategy.Name())
}

// Reset clears strategy state and counters.
func (r *Router) Reset() {
	r.strategy.Reset()
	r.stats.Reset()
}
