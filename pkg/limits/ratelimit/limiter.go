package ratelimit

import (
	"sync"
	"time"
)

// Limiter enforces the Limits of one key.
type Limiter struct {
	limits   Limits
	rpm      *TokenBucket
	parallel *ConcurrentLimiter
}

// NewLimiter creates a limiter for limits.
func NewLimiter(limits Limits) *Limiter {
	return newLimiter(limits, time.Now)
}

func newLimiter(limits Limits, now func() time.Time) *Limiter {
	l := &Limiter{limits: limits}
	if limits.RPM > 0 {
		l.rpm = newTokenBucket(int64(limits.RPM), float64(limits.RPM)/60, now)
	}
	if limits.MaxParallel > 0 {
		l.parallel = NewConcurrentLimiter(limits.MaxParallel)
	}
	return l
}

// Limits returns the limits the limiter was built with.
func (l *Limiter) Limits() Limits {
	return l.limits
}

// Acquire admits one request. When the decision is Allowed the returned
// release must be called once the request has finished; further calls are
// no-ops. It is nil otherwise.
//
// The parallel slot is taken first so a request refused for concurrency
// does not spend an RPM token.
func (l *Limiter) Acquire() (Decision, func()) {
	d := Decision{Allowed: true}

	if l.parallel != nil && !l.parallel.Acquire() {
		d.Allowed = false
		d.LimitType = LimitParallel
		d.RetryAfter = time.Second
		l.describeRPM(&d)
		return d, nil
	}

	if l.rpm != nil && !l.rpm.Take(1) {
		if l.parallel != nil {
			l.parallel.Release()
		}
		d.Allowed = false
		d.LimitType = LimitRPM
		d.RetryAfter = l.rpm.TimeUntilAvailable(1)
		l.describeRPM(&d)
		return d, nil
	}

	l.describeRPM(&d)
	release := func() {}
	if l.parallel != nil {
		release = sync.OnceFunc(l.parallel.Release)
	}
	return d, release
}

// InFlight returns the number of admitted requests still running.
func (l *Limiter) InFlight() int64 {
	if l.parallel == nil {
		return 0
	}
	return l.parallel.Current()
}

func (l *Limiter) describeRPM(d *Decision) {
	if l.rpm == nil {
		return
	}
	d.Limit = l.rpm.Capacity()
	d.Remaining = l.rpm.Remaining()
}
