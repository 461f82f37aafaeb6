package dispatch

import (
	"context"
	"errors"
	"net/http"

	"github.com/igamenovoer/my-litellm-proxy/pkg/health"
	"github.com/igamenovoer/my-litellm-proxy/pkg/providers"
)

// verdict is what the dispatch loop does after an attempt.
type verdict int

const (
	verdictDone verdict = iota
	verdictRetry
	verdictStop
	verdictCancelled
)

// classify maps an attempt error to a health outcome and a loop verdict.
// parent is the caller's context; attempt is the per-attempt context
// derived from it.
func classify(parent, attempt context.Context, err error) (health.Outcome, verdict) {
	if err == nil {
		return health.OutcomeSuccess, verdictDone
	}
	if parent.Err() != nil {
		return health.OutcomeCancelled, verdictCancelled
	}
	if attempt != nil && errors.Is(context.Cause(attempt), errFirstEventTimeout) {
		return health.OutcomeFailure, verdictRetry
	}

	var perr *providers.ProviderError
	if errors.As(err, &perr) {
		if retryableStatus(perr.StatusCode) {
			return health.OutcomeFailure, verdictRetry
		}
		return health.OutcomeClientError, verdictStop
	}

	// timeouts, connection failures, malformed bodies, stream error events
	// and unusable credentials all point at the deployment
	return health.OutcomeFailure, verdictRetry
}

// retryableStatus reports whether an upstream status is transient.
func retryableStatus(code int) bool {
	switch {
	case code == http.StatusTooManyRequests, code == http.StatusRequestTimeout:
		return true
	case code >= 500:
		return true
	case code >= 400:
		return false
	default:
		// non-2xx outside 4xx/5xx is an upstream misbehaving
		return true
	}
}

func statusOf(err error) int {
	var perr *providers.ProviderError
	if errors.As(err, &perr) {
		return perr.StatusCode
	}
	return 0
}
