// Package health tracks per-deployment load and failure history and runs a
// circuit breaker for each deployment.
//
// Every upstream attempt goes through Admit, which hands out a Token when the
// deployment has a free concurrency slot and its breaker allows traffic:
//
//	tok, err := tracker.Admit(id)
//	if err != nil {
//	    // ErrAtCapacity or ErrCircuitOpen: try the next deployment
//	}
//	defer tok.Release()
//	...
//	tok.Done(health.OutcomeSuccess, time.Since(start))
//
// # Breaker
//
// A Closed breaker trips to Open once at least MinRequests outcomes have
// been seen and the failure ratio over the last FailureWindow outcomes
// reaches FailureThreshold. After Cooldown exactly one request is admitted
// as a probe (Half-Open). A successful probe closes the breaker and clears
// the outcome history; a failed probe reopens it for another cooldown. A
// cancelled probe returns the deployment to Open with the cooldown already
// expired, so the next request probes again.
//
// Cancelled outcomes never count toward failure ratios. Upstream 4xx
// responses count as healthy.
package health
