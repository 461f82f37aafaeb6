package limits

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics counts limit decisions per key. A nil *Metrics records nothing.
type Metrics struct {
	checks *prometheus.CounterVec
	hits   *prometheus.CounterVec
}

// NewMetrics creates the limit metrics and registers them with reg.
func NewMetrics(namespace string, reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		checks: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "rate_limit_checks_total",
				Help:      "Rate limit checks by key and result.",
			},
			[]string{"key_alias", "result"},
		),
		hits: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "rate_limit_hits_total",
				Help:      "Requests refused by a rate limit, by key and limit.",
			},
			[]string{"key_alias", "limit"},
		),
	}
	reg.MustRegister(m.checks, m.hits)
	return m
}

func (m *Metrics) admitted(alias string) {
	if m == nil {
		return
	}
	m.checks.WithLabelValues(alias, "allowed").Inc()
}

func (m *Metrics) rejected(alias, limit string) {
	if m == nil {
		return
	}
	m.checks.WithLabelValues(alias, "blocked").Inc()
	m.hits.WithLabelValues(alias, limit).Inc()
}
