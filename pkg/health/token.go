package health

import (
	"sync/atomic"
	"time"
)

// Token is an admission slot on one deployment. Done records the attempt's
// outcome and frees the slot; Release frees it without an outcome, which is
// treated as a cancellation. Whichever runs first wins and later calls are
// no-ops, so callers can pair Done with a deferred Release.
type Token struct {
	tracker  *Tracker
	stats    *deploymentStats
	probe    bool
	issued   time.Time
	released atomic.Bool
}

// DeploymentID returns the id of the deployment the token was issued for.
func (k *Token) DeploymentID() string {
	return k.stats.id
}

// Probe reports whether this admission is the Half-Open probe.
func (k *Token) Probe() bool {
	return k.probe
}

// Issued returns when the token was admitted.
func (k *Token) Issued() time.Time {
	return k.issued
}

// Done records outcome and latency, then frees the slot.
func (k *Token) Done(outcome Outcome, latency time.Duration) {
	if !k.released.CompareAndSwap(false, true) {
		return
	}
	k.tracker.record(k.stats, k.probe, outcome, latency)
	k.stats.inFlight.Add(-1)
}

// Release frees the slot if Done has not already done so.
func (k *Token) Release() {
	if !k.released.CompareAndSwap(false, true) {
		return
	}
	k.tracker.record(k.stats, k.probe, OutcomeCancelled, 0)
	k.stats.inFlight.Add(-1)
}
