package ratelimit

import "time"

// Limit types reported in a rejected Decision.
const (
	LimitRPM      = "rpm"
	LimitParallel = "parallel"
)

// Limits configures a Limiter. Zero disables a limit.
type Limits struct {
	// RPM is the number of requests allowed per minute. Bursts up to RPM
	// are allowed.
	RPM int

	// MaxParallel is the number of requests allowed in flight at once.
	MaxParallel int
}

// IsZero reports whether no limit is set.
func (l Limits) IsZero() bool {
	return l.RPM <= 0 && l.MaxParallel <= 0
}

// Decision is the result of Limiter.Acquire.
type Decision struct {
	// Allowed reports whether the request may proceed.
	Allowed bool

	// LimitType names the limit that refused the request: LimitRPM or
	// LimitParallel.
	LimitType string

	// Limit and Remaining describe the requests-per-minute bucket. Both are
	// zero when no RPM limit is set.
	Limit     int64
	Remaining int64

	// RetryAfter is a hint for rejected requests.
	RetryAfter time.Duration
}
