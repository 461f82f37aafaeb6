// Package dispatch executes a request against an ordered list of candidate
// deployments.
//
// Each candidate is admitted through the health tracker, called once, and
// its outcome recorded. Transient upstream failures (timeouts, connection
// errors, 429, 408 and 5xx) move on to the next candidate; other 4xx
// replies are returned unchanged. The loop is bounded by MaxAttempts
// upstream calls and stops as soon as the caller goes away.
//
// Streams fall back only until the first event has been received. After
// that the stream is committed to one deployment and a failure ends it.
package dispatch
