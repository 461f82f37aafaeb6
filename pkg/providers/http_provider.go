package providers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/igamenovoer/my-litellm-proxy/pkg/registry"
	"github.com/igamenovoer/my-litellm-proxy/pkg/telemetry/tracing"
)

// Dialect captures what differs between upstream API conventions: how the
// request URL is formed and how the credential is attached.
type Dialect interface {
	// URL returns the full upstream URL for op.
	URL(d *registry.Deployment, op Operation) string

	// Authorize attaches credential to req. An empty credential is passed
	// through so the dialect can decide whether it is acceptable.
	Authorize(req *http.Request, credential string) error
}

// HTTPProvider is the shared implementation behind every provider kind.
// Concrete kinds supply a Dialect.
type HTTPProvider struct {
	deployment  *registry.Deployment
	dialect     Dialect
	client      *http.Client
	credentials CredentialFunc
	maxErrBody  int64
}

// NewHTTPProvider creates a provider for d. client is usually shared across
// deployments; credentials may be nil when the upstream needs none.
func NewHTTPProvider(d *registry.Deployment, dialect Dialect, client *http.Client, credentials CredentialFunc) *HTTPProvider {
	if client == nil {
		client = NewHTTPClient(DefaultTransportConfig())
	}
	return &HTTPProvider{
		deployment:  d,
		dialect:     dialect,
		client:      client,
		credentials: credentials,
		maxErrBody:  DefaultTransportConfig().MaxErrorBodyBytes,
	}
}

// Deployment returns the deployment this provider serves.
func (p *HTTPProvider) Deployment() *registry.Deployment {
	return p.deployment
}

// Close closes idle connections on the underlying client.
func (p *HTTPProvider) Close() error {
	p.client.CloseIdleConnections()
	return nil
}

// Send performs a non-streaming call and returns the complete response.
func (p *HTTPProvider) Send(ctx context.Context, op Operation, body []byte) (*Response, error) {
	resp, err := p.do(ctx, op, body, false)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, p.transportError(ctx, fmt.Errorf("reading response: %w", err))
	}
	if !json.Valid(data) {
		return nil, &ParseError{
			Deployment:  p.deployment.ID,
			RawResponse: truncate(data, 512),
			Cause:       errors.New("response body is not valid JSON"),
		}
	}

	return &Response{
		StatusCode: resp.StatusCode,
		Header:     resp.Header.Clone(),
		Body:       data,
	}, nil
}

// Stream performs a streaming call. The returned reader owns the response
// body and must be closed.
func (p *HTTPProvider) Stream(ctx context.Context, op Operation, body []byte) (StreamReader, error) {
	resp, err := p.do(ctx, op, body, true)
	if err != nil {
		return nil, err
	}
	return NewSSEReader(p.deployment.ID, resp.Body), nil
}

// do sends one request and returns the response for 2xx statuses. Other
// statuses are read and returned as *ProviderError.
func (p *HTTPProvider) do(ctx context.Context, op Operation, body []byte, stream bool) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.dialect.URL(p.deployment, op), bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if stream {
		req.Header.Set("Accept", "text/event-stream")
	} else {
		req.Header.Set("Accept", "application/json")
	}
	for k, v := range p.deployment.Headers {
		req.Header.Set(k, v)
	}

	var credential string
	if p.credentials != nil {
		credential, err = p.credentials()
		if err != nil {
			return nil, fmt.Errorf("resolving credential for deployment %q: %w", p.deployment.ID, err)
		}
	}
	if err := p.dialect.Authorize(req, credential); err != nil {
		return nil, err
	}
	tracing.Inject(ctx, req.Header)

	slog.DebugContext(ctx, "sending request to upstream",
		"deployment", p.deployment.ID,
		"url", req.URL.Redacted(),
		"stream", stream,
	)

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, p.transportError(ctx, err)
	}

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return resp, nil
	}

	defer resp.Body.Close()
	errBody, readErr := io.ReadAll(io.LimitReader(resp.Body, p.maxErrBody))
	if readErr != nil && ctx.Err() != nil {
		return nil, p.transportError(ctx, readErr)
	}
	return nil, &ProviderError{
		Deployment: p.deployment.ID,
		StatusCode: resp.StatusCode,
		Header:     resp.Header.Clone(),
		Body:       errBody,
		RetryAfter: parseRetryAfter(resp.Header.Get("Retry-After")),
	}
}

// transportError classifies an error from the HTTP exchange. Cancellation
// is returned unchanged so callers can tell it apart from upstream faults.
func (p *HTTPProvider) transportError(ctx context.Context, err error) error {
	switch {
	case errors.Is(ctx.Err(), context.DeadlineExceeded):
		return &TimeoutError{Deployment: p.deployment.ID, Cause: err}
	case ctx.Err() != nil:
		return fmt.Errorf("deployment %q: %w", p.deployment.ID, ctx.Err())
	default:
		return &ConnectionError{Deployment: p.deployment.ID, Cause: err}
	}
}
