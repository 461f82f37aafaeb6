package metrics

import (
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/igamenovoer/my-litellm-proxy/pkg/config"
	"github.com/igamenovoer/my-litellm-proxy/pkg/health"
)

// DefaultLatencyBuckets span fast cached replies to long generations.
var DefaultLatencyBuckets = []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60, 120}

// maxKeyAliases bounds the key label of requests_total. Virtual keys carry
// free-form aliases, so later aliases are folded into "other".
const maxKeyAliases = 1000

// Collector owns the gateway's Prometheus metrics. It observes requests
// (handlers.RequestObserver), upstream attempts (dispatch.Observer) and
// breaker transitions (health.StateListener).
type Collector struct {
	config   *config.MetricsConfig
	registry *prometheus.Registry

	requests    *RequestMetrics
	deployments *DeploymentMetrics
	keys        *CardinalityLimiter
}

// NewCollector creates a collector and registers its metrics with registry.
// A nil registry gets a fresh one with the Go and process collectors.
func NewCollector(cfg *config.MetricsConfig, registry *prometheus.Registry) *Collector {
	if registry == nil {
		registry = prometheus.NewRegistry()
		registry.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
	}
	if len(cfg.LatencyBuckets) == 0 {
		cfg.LatencyBuckets = DefaultLatencyBuckets
	}

	return &Collector{
		config:      cfg,
		registry:    registry,
		requests:    NewRequestMetrics(cfg, registry),
		deployments: NewDeploymentMetrics(cfg, registry),
		keys:        NewCardinalityLimiter(maxKeyAliases),
	}
}

// WatchHealth exports in-flight counts and breaker state read from src at
// scrape time.
func (c *Collector) WatchHealth(src SnapshotSource) {
	c.registry.MustRegister(newHealthCollector(c.config.Namespace, src))
}

// StateChanged is a health.StateListener counting breaker transitions.
func (c *Collector) StateChanged(id string, from, to health.State) {
	c.deployments.transitions.WithLabelValues(id, from.String(), to.String()).Inc()
}

// Registry returns the Prometheus registry used by this collector.
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

func (c *Collector) keyLabel(alias string) string {
	if alias == "" {
		return "none"
	}
	if !c.keys.Allow(alias) {
		return "other"
	}
	return alias
}

func statusLabel(status int) string {
	return strconv.Itoa(status)
}

func seconds(d time.Duration) float64 {
	return d.Seconds()
}

// CardinalityLimiter caps the number of distinct values admitted for a
// label.
type CardinalityLimiter struct {
	maxCardinality int
	current        map[string]struct{}
	mu             sync.RWMutex
}

// NewCardinalityLimiter creates a new cardinality limiter with the specified
// maximum cardinality.
func NewCardinalityLimiter(maxCardinality int) *CardinalityLimiter {
	return &CardinalityLimiter{
		maxCardinality: maxCardinality,
		current:        make(map[string]struct{}),
	}
}

// Allow reports whether value is admitted: it was seen before or the
// limit is not reached yet.
func (cl *CardinalityLimiter) Allow(value string) bool {
	cl.mu.RLock()
	if _, exists := cl.current[value]; exists {
		cl.mu.RUnlock()
		return true
	}
	cl.mu.RUnlock()

	cl.mu.Lock()
	defer cl.mu.Unlock()

	if _, exists := cl.current[value]; exists {
		return true
	}
	if len(cl.current) >= cl.maxCardinality {
		return false
	}
	cl.current[value] = struct{}{}
	return true
}

// Count returns the current cardinality.
func (cl *CardinalityLimiter) Count() int {
	cl.mu.RLock()
	defer cl.mu.RUnlock()
	return len(cl.current)
}
