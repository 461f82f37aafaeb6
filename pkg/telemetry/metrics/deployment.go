package metrics

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/igamenovoer/my-litellm-proxy/pkg/config"
	"github.com/igamenovoer/my-litellm-proxy/pkg/dispatch"
	"github.com/igamenovoer/my-litellm-proxy/pkg/health"
	"github.com/igamenovoer/my-litellm-proxy/pkg/registry"
)

// DeploymentMetrics tracks upstream attempts per deployment.
//
// Metrics:
//   - <ns>_deployment_attempts_total{deployment,model,result}
//   - <ns>_deployment_latency_seconds{deployment}
//   - <ns>_deployment_circuit_transitions_total{deployment,from,to}
type DeploymentMetrics struct {
	attemptsTotal *prometheus.CounterVec
	latency       *prometheus.HistogramVec
	transitions   *prometheus.CounterVec
}

// NewDeploymentMetrics creates and registers deployment metrics with the
// provided registry.
func NewDeploymentMetrics(cfg *config.MetricsConfig, registry *prometheus.Registry) *DeploymentMetrics {
	dm := &DeploymentMetrics{
		attemptsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Name:      "deployment_attempts_total",
				Help:      "Upstream attempts by deployment and result (success, failure, client_error, cancelled, rejected).",
			},
			[]string{"deployment", "model", "result"},
		),
		latency: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: cfg.Namespace,
				Name:      "deployment_latency_seconds",
				Help:      "Latency of upstream attempts that reached the deployment.",
				Buckets:   cfg.LatencyBuckets,
			},
			[]string{"deployment"},
		),
		transitions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Name:      "deployment_circuit_transitions_total",
				Help:      "Circuit breaker state transitions.",
			},
			[]string{"deployment", "from", "to"},
		),
	}

	registry.MustRegister(dm.attemptsTotal, dm.latency, dm.transitions)
	return dm
}

// ObserveAttempt implements dispatch.Observer.
func (c *Collector) ObserveAttempt(_ *dispatch.RequestContext, d *registry.Deployment, a dispatch.Attempt) {
	c.deployments.attemptsTotal.WithLabelValues(d.ID, d.ModelName, a.Result()).Inc()
	if !a.Rejected {
		c.deployments.latency.WithLabelValues(d.ID).Observe(seconds(a.Latency))
	}
}

// SnapshotSource reports current per-deployment health.
type SnapshotSource interface {
	Snapshot() []health.Snapshot
}

// healthCollector reads tracker state at scrape time so gauges never drift
// from the tracker and removed deployments disappear.
type healthCollector struct {
	src          SnapshotSource
	inFlight     *prometheus.Desc
	maxInFlight  *prometheus.Desc
	circuitState *prometheus.Desc
}

func newHealthCollector(namespace string, src SnapshotSource) *healthCollector {
	return &healthCollector{
		src: src,
		inFlight: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "deployment", "in_flight"),
			"Requests currently admitted to the deployment.",
			[]string{"deployment"}, nil,
		),
		maxInFlight: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "deployment", "max_concurrent"),
			"Configured concurrency cap, 0 when unlimited.",
			[]string{"deployment"}, nil,
		),
		circuitState: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "deployment", "circuit_state"),
			"Breaker state: 0 closed, 1 half_open, 2 open.",
			[]string{"deployment"}, nil,
		),
	}
}

func (h *healthCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- h.inFlight
	ch <- h.maxInFlight
	ch <- h.circuitState
}

func (h *healthCollector) Collect(ch chan<- prometheus.Metric) {
	for _, s := range h.src.Snapshot() {
		ch <- prometheus.MustNewConstMetric(h.inFlight, prometheus.GaugeValue, float64(s.InFlight), s.ID)
		ch <- prometheus.MustNewConstMetric(h.maxInFlight, prometheus.GaugeValue, float64(s.MaxConcurrent), s.ID)
		ch <- prometheus.MustNewConstMetric(h.circuitState, prometheus.GaugeValue, stateValue(s.State), s.ID)
	}
}

func stateValue(state string) float64 {
	switch state {
	case health.StateHalfOpen.String():
		return 1
	case health.StateOpen.String():
		return 2
	default:
		return 0
	}
}
