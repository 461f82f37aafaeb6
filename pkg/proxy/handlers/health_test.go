package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/igamenovoer/my-litellm-proxy/pkg/health"
	"github.com/igamenovoer/my-litellm-proxy/pkg/proxy/types"
	"github.com/igamenovoer/my-litellm-proxy/pkg/registry"
	"github.com/igamenovoer/my-litellm-proxy/pkg/security/auth"
)

func testRegistry(t *testing.T) *registry.Store {
	t.Helper()
	reg, err := registry.New([]registry.Deployment{
		{ID: "gpt-a", ModelName: "gpt-4", ProviderKind: registry.ProviderOpenAICompatible, Model: "gpt-4o", Weight: 1, MaxConcurrent: 4},
		{ID: "gpt-b", ModelName: "gpt-4", ProviderKind: registry.ProviderOpenAICompatible, Model: "gpt-4o", Weight: 1},
		{ID: "claude", ModelName: "claude", ProviderKind: registry.ProviderOpenAICompatible, Model: "claude-3", Weight: 1},
	}, nil, map[string]string{"gpt-4-latest": "gpt-4"})
	require.NoError(t, err)
	return registry.NewStore(reg)
}

func TestHealthHandler(t *testing.T) {
	rec := httptest.NewRecorder()
	NewHealthHandler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "ok", body["status"])
	assert.Contains(t, body, "uptime_seconds")
}

func TestDeploymentsHandler(t *testing.T) {
	store := testRegistry(t)
	tracker := health.NewTracker(health.Settings{MinRequests: 1, FailureWindow: 1, Cooldown: time.Minute})
	tracker.Sync(store.Deployments())

	require.NoError(t, tracker.RecordOutcome("gpt-b", health.OutcomeFailure, 10*time.Millisecond))
	tok, err := tracker.Admit("gpt-a")
	require.NoError(t, err)
	defer tok.Release()

	rec := httptest.NewRecorder()
	NewDeploymentsHandler(store, tracker).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health/deployments", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	var list types.DeploymentHealthList
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &list))

	assert.Equal(t, 2, list.HealthyCount)
	assert.Equal(t, 1, list.UnhealthyCount)
	require.Len(t, list.Deployments, 3)

	byID := make(map[string]types.DeploymentHealth)
	for _, d := range list.Deployments {
		byID[d.ID] = d
	}
	assert.Equal(t, int64(1), byID["gpt-a"].InFlight)
	assert.Equal(t, int64(4), byID["gpt-a"].MaxConcurrent)
	assert.True(t, byID["gpt-a"].Healthy)

	assert.Equal(t, "open", byID["gpt-b"].State)
	assert.False(t, byID["gpt-b"].Healthy)
	assert.Equal(t, int64(1), byID["gpt-b"].Failures)
	assert.NotNil(t, byID["gpt-b"].CooldownUntil)
}

func TestModelsHandler(t *testing.T) {
	tests := []struct {
		name string
		key  *auth.KeyInfo
		want []string
	}{
		{name: "anonymous", key: nil, want: []string{"claude", "gpt-4", "gpt-4-latest"}},
		{name: "unrestricted key", key: &auth.KeyInfo{Alias: "ops"}, want: []string{"claude", "gpt-4", "gpt-4-latest"}},
		{name: "restricted key", key: &auth.KeyInfo{Alias: "team", Models: []string{"claude"}}, want: []string{"claude"}},
	}

	h := NewModelsHandler(testRegistry(t))
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/v1/models", nil)
			if tt.key != nil {
				req = req.WithContext(auth.WithKeyInfo(context.Background(), tt.key))
			}
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)

			require.Equal(t, http.StatusOK, rec.Code)
			var list types.ModelList
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &list))
			assert.Equal(t, "list", list.Object)

			got := make([]string, 0, len(list.Data))
			for _, m := range list.Data {
				got = append(got, m.ID)
				assert.Equal(t, "model", m.Object)
			}
			assert.Equal(t, tt.want, got)
		})
	}
}
