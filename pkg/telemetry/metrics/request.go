package metrics

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/igamenovoer/my-litellm-proxy/pkg/config"
	"github.com/igamenovoer/my-litellm-proxy/pkg/dispatch"
)

// RequestMetrics tracks client-facing requests.
//
// Metrics:
//   - <ns>_requests_total{model,status,key}
//   - <ns>_request_duration_seconds{model,stream}
//   - <ns>_request_attempts{model}
type RequestMetrics struct {
	requestsTotal   *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	attempts        *prometheus.HistogramVec
}

// NewRequestMetrics creates and registers request metrics with the provided registry.
func NewRequestMetrics(cfg *config.MetricsConfig, registry *prometheus.Registry) *RequestMetrics {
	rm := &RequestMetrics{
		requestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Name:      "requests_total",
				Help:      "Completion requests by model group, response status and key alias.",
			},
			[]string{"model", "status", "key"},
		),
		requestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: cfg.Namespace,
				Name:      "request_duration_seconds",
				Help:      "End-to-end completion request latency, streams included.",
				Buckets:   cfg.LatencyBuckets,
			},
			[]string{"model", "stream"},
		),
		attempts: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: cfg.Namespace,
				Name:      "request_attempts",
				Help:      "Upstream attempts made per routed request.",
				Buckets:   []float64{1, 2, 3, 4, 5, 8},
			},
			[]string{"model"},
		),
	}

	registry.MustRegister(rm.requestsTotal, rm.requestDuration, rm.attempts)
	return rm
}

// ObserveRequest records a finished completion request. Requests rejected
// before routing have no request context and are counted under the model
// label "unrouted".
func (c *Collector) ObserveRequest(_ context.Context, rc *dispatch.RequestContext, status int, _ error) {
	if rc == nil || rc.Group == nil {
		c.requests.requestsTotal.WithLabelValues("unrouted", statusLabel(status), "none").Inc()
		return
	}

	model := rc.Group.Name
	stream := "false"
	if rc.Stream {
		stream = "true"
	}
	c.requests.requestsTotal.WithLabelValues(model, statusLabel(status), c.keyLabel(rc.KeyAlias)).Inc()
	if !rc.Started.IsZero() {
		c.requests.requestDuration.WithLabelValues(model, stream).Observe(seconds(time.Since(rc.Started)))
	}
	if n := rc.UpstreamAttempts(); n > 0 {
		c.requests.attempts.WithLabelValues(model).Observe(float64(n))
	}
}
