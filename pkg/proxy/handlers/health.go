package handlers

import (
	"net/http"
	"time"

	"github.com/igamenovoer/my-litellm-proxy/pkg/health"
	"github.com/igamenovoer/my-litellm-proxy/pkg/proxy"
	"github.com/igamenovoer/my-litellm-proxy/pkg/proxy/types"
	"github.com/igamenovoer/my-litellm-proxy/pkg/registry"
)

// HealthHandler handles health check requests for liveness probes. It
// reports on the process only: an outage of every upstream does not make
// the gateway unhealthy.
type HealthHandler struct {
	started time.Time
}

// NewHealthHandler creates a new health check handler.
func NewHealthHandler() *HealthHandler {
	return &HealthHandler{started: time.Now()}
}

// ServeHTTP implements http.Handler for liveness checks.
func (h *HealthHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	_ = proxy.WriteJSONResponse(w, http.StatusOK, map[string]interface{}{
		"status":         "ok",
		"timestamp":      time.Now().Unix(),
		"uptime_seconds": int64(time.Since(h.started).Seconds()),
	})
}

// DeploymentSource lists the configured deployments.
type DeploymentSource interface {
	Deployments() []*registry.Deployment
}

// HealthReporter exposes per-deployment health statistics.
type HealthReporter interface {
	Snapshot() []health.Snapshot
}

// DeploymentsHandler reports circuit state and recent statistics for every
// deployment.
type DeploymentsHandler struct {
	Deployments DeploymentSource
	Health      HealthReporter
}

// NewDeploymentsHandler creates the deployment health handler.
func NewDeploymentsHandler(deployments DeploymentSource, h HealthReporter) *DeploymentsHandler {
	return &DeploymentsHandler{Deployments: deployments, Health: h}
}

// ServeHTTP implements http.Handler.
func (h *DeploymentsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	snaps := make(map[string]health.Snapshot)
	for _, s := range h.Health.Snapshot() {
		snaps[s.ID] = s
	}

	out := types.DeploymentHealthList{Deployments: []types.DeploymentHealth{}}
	for _, d := range h.Deployments.Deployments() {
		dh := types.DeploymentHealth{
			ID:            d.ID,
			ModelName:     d.ModelName,
			Provider:      d.ProviderKind,
			State:         health.StateClosed.String(),
			MaxConcurrent: int64(d.MaxConcurrent),
		}
		if s, ok := snaps[d.ID]; ok {
			dh.State = s.State
			dh.InFlight = s.InFlight
			dh.AvgLatencyMs = s.AvgLatencyMS
			dh.Successes = s.Successes
			dh.Failures = s.Failures
			dh.RecentFailures = s.RecentFailures
			dh.CooldownUntil = s.CooldownUntil
		}
		dh.Healthy = dh.State == health.StateClosed.String()
		if dh.Healthy {
			out.HealthyCount++
		} else {
			out.UnhealthyCount++
		}
		out.Deployments = append(out.Deployments, dh)
	}

	_ = proxy.WriteJSONResponse(w, http.StatusOK, out)
}
