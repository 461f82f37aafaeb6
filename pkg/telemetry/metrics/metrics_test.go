package metrics

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/igamenovoer/my-litellm-proxy/pkg/config"
	"github.com/igamenovoer/my-litellm-proxy/pkg/dispatch"
	"github.com/igamenovoer/my-litellm-proxy/pkg/health"
	"github.com/igamenovoer/my-litellm-proxy/pkg/registry"
)

func testCollector() *Collector {
	return NewCollector(&config.MetricsConfig{
		Enabled:        true,
		Namespace:      "test",
		LatencyBuckets: []float64{0.1, 1, 10},
	}, prometheus.NewRegistry())
}

func routed(model, alias string, stream bool) *dispatch.RequestContext {
	return &dispatch.RequestContext{
		ID:       "req-1",
		Model:    model,
		Group:    &registry.ModelGroup{Name: model},
		Stream:   stream,
		KeyAlias: alias,
		Started:  time.Now().Add(-200 * time.Millisecond),
	}
}

func TestCollector_ObserveRequest(t *testing.T) {
	c := testCollector()
	ctx := context.Background()

	c.ObserveRequest(ctx, routed("gpt-4", "team-a", false), 200, nil)
	c.ObserveRequest(ctx, routed("gpt-4", "team-a", true), 200, nil)
	c.ObserveRequest(ctx, routed("gpt-4", "", false), 502, errors.New("exhausted"))
	c.ObserveRequest(ctx, nil, 400, errors.New("bad body"))

	tests := []struct {
		labels []string
		want   float64
	}{
		{labels: []string{"gpt-4", "200", "team-a"}, want: 2},
		{labels: []string{"gpt-4", "502", "none"}, want: 1},
		{labels: []string{"unrouted", "400", "none"}, want: 1},
	}
	for _, tt := range tests {
		got := testutil.ToFloat64(c.requests.requestsTotal.WithLabelValues(tt.labels...))
		if got != tt.want {
			t.Errorf("requests_total%v = %v, want %v", tt.labels, got, tt.want)
		}
	}

	if n := testutil.CollectAndCount(c.requests.requestDuration); n != 2 {
		t.Errorf("request_duration_seconds series = %d, want 2 (stream true/false)", n)
	}
}

func TestCollector_KeyCardinality(t *testing.T) {
	c := testCollector()
	c.keys = NewCardinalityLimiter(2)
	ctx := context.Background()

	for _, alias := range []string{"a", "b", "c", "d", "a"} {
		c.ObserveRequest(ctx, routed("gpt-4", alias, false), 200, nil)
	}

	if got := testutil.ToFloat64(c.requests.requestsTotal.WithLabelValues("gpt-4", "200", "other")); got != 2 {
		t.Errorf("other = %v, want 2", got)
	}
	if got := testutil.ToFloat64(c.requests.requestsTotal.WithLabelValues("gpt-4", "200", "a")); got != 2 {
		t.Errorf("a = %v, want 2", got)
	}
}

func TestCollector_ObserveAttempt(t *testing.T) {
	c := testCollector()
	d := &registry.Deployment{ID: "azure-east", ModelName: "gpt-4"}

	c.ObserveAttempt(nil, d, dispatch.Attempt{DeploymentID: d.ID, Outcome: health.OutcomeFailure, StatusCode: 500, Latency: 250 * time.Millisecond})
	c.ObserveAttempt(nil, d, dispatch.Attempt{DeploymentID: d.ID, Outcome: health.OutcomeSuccess, StatusCode: 200, Latency: time.Second})
	c.ObserveAttempt(nil, d, dispatch.Attempt{DeploymentID: d.ID, Rejected: true})

	for result, want := range map[string]float64{"failure": 1, "success": 1, "rejected": 1} {
		got := testutil.ToFloat64(c.deployments.attemptsTotal.WithLabelValues("azure-east", "gpt-4", result))
		if got != want {
			t.Errorf("attempts_total{result=%q} = %v, want %v", result, got, want)
		}
	}

	expected := `
# HELP test_deployment_latency_seconds Latency of upstream attempts that reached the deployment.
# TYPE test_deployment_latency_seconds histogram
test_deployment_latency_seconds_bucket{deployment="azure-east",le="0.1"} 0
test_deployment_latency_seconds_bucket{deployment="azure-east",le="1"} 2
test_deployment_latency_seconds_bucket{deployment="azure-east",le="10"} 2
test_deployment_latency_seconds_bucket{deployment="azure-east",le="+Inf"} 2
test_deployment_latency_seconds_sum{deployment="azure-east"} 1.25
test_deployment_latency_seconds_count{deployment="azure-east"} 2
`
	if err := testutil.CollectAndCompare(c.deployments.latency, strings.NewReader(expected)); err != nil {
		t.Errorf("latency histogram mismatch: %v", err)
	}
}

func TestCollector_HealthGaugesAndTransitions(t *testing.T) {
	c := testCollector()
	tracker := health.NewTracker(
		health.Settings{MinRequests: 1, FailureWindow: 1, Cooldown: time.Minute},
		health.WithStateListener(c.StateChanged),
	)
	tracker.Sync([]*registry.Deployment{
		{ID: "a", ModelName: "gpt-4", MaxConcurrent: 3, Weight: 1},
		{ID: "b", ModelName: "gpt-4", Weight: 1},
	})
	c.WatchHealth(tracker)

	tok, err := tracker.Admit("a")
	if err != nil {
		t.Fatal(err)
	}
	defer tok.Release()
	if err := tracker.RecordOutcome("b", health.OutcomeFailure, 0); err != nil {
		t.Fatal(err)
	}

	expected := `
# HELP test_deployment_circuit_state Breaker state: 0 closed, 1 half_open, 2 open.
# TYPE test_deployment_circuit_state gauge
test_deployment_circuit_state{deployment="a"} 0
test_deployment_circuit_state{deployment="b"} 2
# HELP test_deployment_in_flight Requests currently admitted to the deployment.
# TYPE test_deployment_in_flight gauge
test_deployment_in_flight{deployment="a"} 1
test_deployment_in_flight{deployment="b"} 0
`
	err = testutil.GatherAndCompare(c.Registry(), strings.NewReader(expected),
		"test_deployment_circuit_state", "test_deployment_in_flight")
	if err != nil {
		t.Errorf("health gauges mismatch: %v", err)
	}

	if got := testutil.ToFloat64(c.deployments.transitions.WithLabelValues("b", "closed", "open")); got != 1 {
		t.Errorf("transitions closed->open = %v, want 1", got)
	}
}

func TestCollector_Handler(t *testing.T) {
	c := testCollector()
	c.ObserveRequest(context.Background(), routed("gpt-4", "", false), 200, nil)

	rec := httptest.NewRecorder()
	c.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `test_requests_total{key="none",model="gpt-4",status="200"} 1`) {
		t.Errorf("scrape output missing requests_total:\n%s", rec.Body.String())
	}
}

func TestNewCollector_DefaultRegistry(t *testing.T) {
	c := NewCollector(&config.MetricsConfig{Namespace: "x"}, nil)
	if c.Registry() == nil {
		t.Fatal("nil registry")
	}
	if len(c.config.LatencyBuckets) == 0 {
		t.Error("default latency buckets not applied")
	}
	mfs, err := c.Registry().Gather()
	if err != nil {
		t.Fatal(err)
	}
	var sawGo bool
	for _, mf := range mfs {
		if strings.HasPrefix(mf.GetName(), "go_") {
			sawGo = true
		}
	}
	if !sawGo {
		t.Error("go runtime metrics not registered")
	}
}

func TestCardinalityLimiter(t *testing.T) {
	cl := NewCardinalityLimiter(2)
	for _, v := range []string{"a", "b", "a"} {
		if !cl.Allow(v) {
			t.Errorf("Allow(%q) = false", v)
		}
	}
	if cl.Allow("c") {
		t.Error("Allow(c) past the limit")
	}
	if cl.Count() != 2 {
		t.Errorf("Count() = %d, want 2", cl.Count())
	}
}
