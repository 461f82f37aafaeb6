package health

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	breaker "github.com/igamenovoer/my-litellm-proxy/pkg/health"
)

func TestNew(t *testing.T) {
	tests := []struct {
		name            string
		timeout         time.Duration
		expectedTimeout time.Duration
	}{
		{name: "default timeout", timeout: 0, expectedTimeout: 5 * time.Second},
		{name: "custom timeout", timeout: 10 * time.Second, expectedTimeout: 10 * time.Second},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			checker := New(tt.timeout)
			if checker.checkTimeout != tt.expectedTimeout {
				t.Errorf("checkTimeout = %v, want %v", checker.checkTimeout, tt.expectedTimeout)
			}
		})
	}
}

func TestCheckReadiness(t *testing.T) {
	tests := []struct {
		name       string
		checks     map[string]CheckFunc
		wantStatus string
		wantFailed []string
	}{
		{
			name:       "no checks",
			checks:     nil,
			wantStatus: "ready",
		},
		{
			name: "all pass",
			checks: map[string]CheckFunc{
				"deployments": func(context.Context) error { return nil },
				"audit":       func(context.Context) error { return nil },
			},
			wantStatus: "ready",
		},
		{
			name: "one fails",
			checks: map[string]CheckFunc{
				"deployments": func(context.Context) error { return nil },
				"audit":       func(context.Context) error { return errors.New("connection refused") },
			},
			wantStatus: "degraded",
			wantFailed: []string{"audit"},
		},
		{
			name: "check times out",
			checks: map[string]CheckFunc{
				"slow": func(ctx context.Context) error {
					<-ctx.Done()
					time.Sleep(10 * time.Millisecond)
					return nil
				},
			},
			wantStatus: "degraded",
			wantFailed: []string{"slow"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			checker := New(50 * time.Millisecond)
			for name, fn := range tt.checks {
				checker.RegisterCheck(name, fn)
			}

			status := checker.CheckReadiness(context.Background())
			if status.Status != tt.wantStatus {
				t.Errorf("Status = %q, want %q", status.Status, tt.wantStatus)
			}
			if len(status.Checks) != len(tt.checks) {
				t.Errorf("got %d results, want %d", len(status.Checks), len(tt.checks))
			}
			for _, name := range tt.wantFailed {
				if status.Checks[name].Status != "unhealthy" {
					t.Errorf("check %q = %+v, want unhealthy", name, status.Checks[name])
				}
			}
		})
	}
}

func TestRegisterAndUnregister(t *testing.T) {
	checker := New(time.Second)
	checker.RegisterCheck("b", func(context.Context) error { return nil })
	checker.RegisterCheck("a", func(context.Context) error { return nil })

	if got := checker.ListChecks(); len(got) != 2 || got[0] != "a" || got[1] != "b" {
		t.Errorf("ListChecks() = %v, want [a b]", got)
	}

	checker.UnregisterCheck("a")
	if got := checker.ListChecks(); len(got) != 1 || got[0] != "b" {
		t.Errorf("ListChecks() after unregister = %v", got)
	}
}

type fakeSnapshots []breaker.Snapshot

func (f fakeSnapshots) Snapshot() []breaker.Snapshot { return f }

func TestDeploymentsCheck(t *testing.T) {
	closed := breaker.StateClosed.String()
	open := breaker.StateOpen.String()
	halfOpen := breaker.StateHalfOpen.String()

	tests := []struct {
		name    string
		snaps   fakeSnapshots
		wantErr bool
	}{
		{name: "none configured", snaps: nil, wantErr: true},
		{name: "one closed", snaps: fakeSnapshots{{ID: "a", State: open}, {ID: "b", State: closed}}},
		{name: "half open counts", snaps: fakeSnapshots{{ID: "a", State: halfOpen}}},
		{name: "all open", snaps: fakeSnapshots{{ID: "a", State: open}, {ID: "b", State: open}}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := DeploymentsCheck(tt.snaps)(context.Background())
			if (err != nil) != tt.wantErr {
				t.Errorf("error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

type pingFunc func(context.Context) error

func (p pingFunc) PingContext(ctx context.Context) error { return p(ctx) }

func TestReadinessHandler(t *testing.T) {
	checker := New(time.Second)
	checker.RegisterCheck("deployments", DeploymentsCheck(fakeSnapshots{{ID: "a", State: breaker.StateClosed.String()}}))

	rec := httptest.NewRecorder()
	checker.ReadinessHandler()(rec, httptest.NewRequest(http.MethodGet, "/health/readiness", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	checker.RegisterCheck("audit", PingCheck(pingFunc(func(context.Context) error {
		return errors.New("database is locked")
	})))

	rec = httptest.NewRecorder()
	checker.ReadinessHandler()(rec, httptest.NewRequest(http.MethodGet, "/health/readiness", nil))
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("status = %d, want 503", rec.Code)
	}

	var status HealthStatus
	if err := json.Unmarshal(rec.Body.Bytes(), &status); err != nil {
		t.Fatal(err)
	}
	if status.Checks["audit"].Message != "database is locked" {
		t.Errorf("audit check = %+v", status.Checks["audit"])
	}

	rec = httptest.NewRecorder()
	checker.ReadinessHandler()(rec, httptest.NewRequest(http.MethodHead, "/health/readiness", nil))
	if rec.Body.Len() != 0 {
		t.Errorf("HEAD returned a body: %q", rec.Body.String())
	}
}

func TestVersionHandler(t *testing.T) {
	rec := httptest.NewRecorder()
	VersionHandler("1.2.3", "abc123", "2026-10-01")(rec, httptest.NewRequest(http.MethodGet, "/version", nil))

	var info VersionInfo
	if err := json.Unmarshal(rec.Body.Bytes(), &info); err != nil {
		t.Fatal(err)
	}
	if info.Version != "1.2.3" || info.Commit != "abc123" || info.GoVersion == "" {
		t.Errorf("info = %+v", info)
	}
}
