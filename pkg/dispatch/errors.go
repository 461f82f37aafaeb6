package dispatch

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/igamenovoer/my-litellm-proxy/pkg/providers"
)

// ErrExhausted is matched by *ExhaustedError.
var ErrExhausted = errors.New("all deployments failed")

// errFirstEventTimeout cancels a stream attempt whose first event is late.
var errFirstEventTimeout = errors.New("timed out waiting for first stream event")

// ExhaustedError is returned when no candidate produced a response. It
// carries the full attempt history for diagnostics.
type ExhaustedError struct {
	Model    string
	Attempts []Attempt
}

// Error implements the error interface.
func (e *ExhaustedError) Error() string {
	parts := make([]string, 0, len(e.Attempts))
	for _, a := range e.Attempts {
		s := a.DeploymentID + ": " + a.Result()
		if a.StatusCode > 0 {
			s += fmt.Sprintf(" (%d)", a.StatusCode)
		}
		parts = append(parts, s)
	}
	return fmt.Sprintf("all deployments for model %q failed after %d attempt(s): %s",
		e.Model, len(e.Attempts), strings.Join(parts, "; "))
}

// Is reports whether target is ErrExhausted.
func (e *ExhaustedError) Is(target error) bool {
	return target == ErrExhausted
}

// Upstream counts attempts that reached an upstream.
func (e *ExhaustedError) Upstream() int {
	n := 0
	for _, a := range e.Attempts {
		if !a.Rejected {
			n++
		}
	}
	return n
}

// NonRetryableError is an upstream 4xx that says the request itself is
// wrong. It is surfaced as is, without trying other deployments.
type NonRetryableError struct {
	Upstream *providers.ProviderError
}

// Error implements the error interface.
func (e *NonRetryableError) Error() string {
	return "non-retryable upstream error: " + e.Upstream.Error()
}

// Unwrap returns the upstream error.
func (e *NonRetryableError) Unwrap() error {
	return e.Upstream
}

// StatusCode returns the upstream status.
func (e *NonRetryableError) StatusCode() int {
	return e.Upstream.StatusCode
}

// Header returns the upstream headers.
func (e *NonRetryableError) Header() http.Header {
	return e.Upstream.Header
}

// Body returns the upstream body.
func (e *NonRetryableError) Body() []byte {
	return e.Upstream.Body
}
