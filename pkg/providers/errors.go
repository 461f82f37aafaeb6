package providers

import (
	"errors"
	"fmt"
	"net/http"
	"time"
)

// ErrMissingCredential is returned when a provider that requires a
// credential has none.
var ErrMissingCredential = errors.New("missing upstream credential")

// ProviderError is a non-2xx upstream reply. The raw status, headers and
// body are preserved so they can be passed through to the client.
type ProviderError struct {
	// Deployment is the id of the deployment that returned the error
	Deployment string

	// StatusCode is the upstream HTTP status code
	StatusCode int

	// Header is the upstream response header
	Header http.Header

	// Body is the upstream response body
	Body []byte

	// RetryAfter is parsed from the Retry-After header, if present
	RetryAfter time.Duration
}

// Error implements the error interface.
func (e *ProviderError) Error() string {
	return fmt.Sprintf("deployment %q returned status %d: %s", e.Deployment, e.StatusCode, truncate(e.Body, 200))
}

// TimeoutError is returned when an attempt exceeds its deadline.
type TimeoutError struct {
	// Deployment is the id of the deployment where the timeout occurred
	Deployment string

	// Cause is the underlying error
	Cause error
}

// Error implements the error interface.
func (e *TimeoutError) Error() string {
	return fmt.Sprintf("deployment %q request timed out", e.Deployment)
}

// Unwrap returns the underlying error for error chain support.
func (e *TimeoutError) Unwrap() error {
	return e.Cause
}

// ConnectionError is returned when the upstream could not be reached or the
// connection broke while reading the response.
type ConnectionError struct {
	Deployment string
	Cause      error
}

// Error implements the error interface.
func (e *ConnectionError) Error() string {
	return fmt.Sprintf("deployment %q connection error: %v", e.Deployment, e.Cause)
}

// Unwrap returns the underlying error for error chain support.
func (e *ConnectionError) Unwrap() error {
	return e.Cause
}

// ParseError represents a malformed upstream body.
type ParseError struct {
	// Deployment is the id of the deployment that returned the malformed response
	Deployment string

	// RawResponse is the raw response body that failed to parse
	RawResponse string

	// Cause is the underlying parse error
	Cause error
}

// Error implements the error interface.
func (e *ParseError) Error() string {
	return fmt.Sprintf("deployment %q response parse error: %v", e.Deployment, e.Cause)
}

// Unwrap returns the underlying error for error chain support.
func (e *ParseError) Unwrap() error {
	return e.Cause
}

// StreamError is an error event delivered inside an otherwise successful
// upstream stream.
type StreamError struct {
	// Deployment is the id of the deployment where the error occurred
	Deployment string

	// Message is the error message
	Message string

	// Event is the raw error event, if the upstream sent one
	Event []byte
}

// Error implements the error interface.
func (e *StreamError) Error() string {
	return fmt.Sprintf("deployment %q stream error: %s", e.Deployment, e.Message)
}

// ConfigError represents a deployment that cannot be served as configured.
type ConfigError struct {
	// Deployment is the id of the deployment with invalid configuration
	Deployment string

	// Field is the configuration field that is invalid
	Field string

	// Message describes the configuration error
	Message string
}

// Error implements the error interface.
func (e *ConfigError) Error() string {
	return fmt.Sprintf("deployment %q configuration error for field %q: %s",
		e.Deployment, e.Field, e.Message)
}

func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n]) + "..."
}

// parseRetryAfter parses the Retry-After header value.
// It supports both delay-seconds and HTTP-date formats.
func parseRetryAfter(header string) time.Duration {
	if header == "" {
		return 0
	}

	var seconds int
	if _, err := fmt.Sscanf(header, "%d", &seconds); err == nil {
		return time.Duration(seconds) * time.Second
	}

	if t, err := http.ParseTime(header); err == nil {
		return time.Until(t)
	}

	return 0
}
