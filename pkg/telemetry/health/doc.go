// Package health implements the readiness probe of the gateway.
//
// Liveness (/health) only says the process runs. Readiness
// (/health/readiness) runs every registered check concurrently, each under
// its own timeout:
//
//	checker := health.New(2 * time.Second)
//	checker.RegisterCheck("deployments", health.DeploymentsCheck(tracker))
//	checker.RegisterCheck("audit", health.PingCheck(store))
//	r.Get("/health/readiness", checker.ReadinessHandler())
//
// This package reports on the gateway; per-deployment circuit breaking
// lives in pkg/health.
package health
