// Package limits enforces per-key request limits.
//
// Each authenticated key may carry a requests-per-minute limit and a cap on
// parallel requests (rpm_limit and max_parallel_requests in config). The
// Manager keeps one ratelimit.Limiter per key alias and its Handle
// middleware answers 429 with a Retry-After header when a limit is hit.
//
//	mgr := limits.NewManager(limits.Options{Logger: logger})
//	r.Use(authMiddleware.Handle, mgr.Handle)
//
// Keys without limits pass straight through. The middleware must run after
// authentication since it reads the caller from the request context.
package limits
