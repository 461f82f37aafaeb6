// Package middleware provides HTTP middleware for cross-cutting concerns:
// request ids, access logging and panic recovery.
//
// # Middleware Chain
//
// The server installs them outermost first:
//
//	Recovery → RequestID → tracing → Logging → CORS → auth → handler
//
// RequestIDMiddleware accepts a client supplied X-Request-ID when it is
// short printable ASCII and otherwise generates a UUID v4:
//
//	X-Request-ID: 550e8400-e29b-41d4-a716-446655440000
//
// The id is placed in the request context (GetRequestID), echoed in the
// response, and attached to every log line and audit record of the request.
//
// LoggingMiddleware logs one line per request at a level derived from the
// status: Info for 2xx/3xx, Warn for 4xx, Error for 5xx. Its response writer
// implements http.Flusher so streamed responses are not buffered.
//
// RecoveryMiddleware turns a handler panic into an OpenAI-style 500 without
// leaking internals. http.ErrAbortHandler passes through untouched.
package middleware
