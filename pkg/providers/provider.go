package providers

import (
	"context"

	"github.com/igamenovoer/my-litellm-proxy/pkg/registry"
)

// Provider sends requests to one upstream deployment.
//
// Bodies are passed through as raw JSON; the caller is responsible for
// rewriting the model field. Providers perform exactly one HTTP exchange
// per call: retries and fallback belong to the dispatcher.
//
// All methods respect context cancellation.
type Provider interface {
	// Send performs a non-streaming call. A non-2xx upstream status is
	// returned as a *ProviderError carrying the raw status, headers and body.
	Send(ctx context.Context, op Operation, body []byte) (*Response, error)

	// Stream performs a streaming call and returns a reader positioned
	// before the first event. Errors before any event is read (connection
	// failures, non-2xx statuses) are returned directly.
	Stream(ctx context.Context, op Operation, body []byte) (StreamReader, error)

	// Deployment returns the deployment this provider serves.
	Deployment() *registry.Deployment

	// Close releases idle connections.
	Close() error
}

// StreamReader reads upstream stream events one at a time.
type StreamReader interface {
	// Recv returns the next event as raw JSON. It returns io.EOF when the
	// upstream signals the end of the stream.
	Recv() ([]byte, error)

	// Close releases the underlying connection. It is safe to call more
	// than once.
	Close() error
}
