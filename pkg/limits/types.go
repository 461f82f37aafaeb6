package limits

import (
	"errors"
	"fmt"
	"time"
)

// ErrLimitExceeded is matched by every LimitError.
var ErrLimitExceeded = errors.New("rate limit exceeded")

// LimitError describes a refused request.
type LimitError struct {
	// KeyAlias is the key that hit the limit.
	KeyAlias string

	// LimitType is ratelimit.LimitRPM or ratelimit.LimitParallel.
	LimitType string

	// RetryAfter is the suggested wait.
	RetryAfter time.Duration
}

// Error implements the error interface.
func (e *LimitError) Error() string {
	return fmt.Sprintf("key %s exceeded its %s limit, retry after %s", e.KeyAlias, e.LimitType, e.RetryAfter)
}

// Is implements error matching for errors.Is().
func (e *LimitError) Is(target error) bool {
	return target == ErrLimitExceeded
}
