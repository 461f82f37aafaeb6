package providers

import (
	"context"
	"errors"
	"net"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/igamenovoer/my-litellm-proxy/internal/upstreamtest"
	"github.com/igamenovoer/my-litellm-proxy/pkg/registry"
)

// bearer is a minimal dialect for exercising the base provider.
type bearer struct{}

func (bearer) URL(d *registry.Deployment, op Operation) string {
	return d.Endpoint + "/" + string(op)
}

func (bearer) Authorize(req *http.Request, credential string) error {
	if credential != "" {
		req.Header.Set("Authorization", "Bearer "+credential)
	}
	return nil
}

func newTestProvider(endpoint string) *HTTPProvider {
	dep := &registry.Deployment{ID: "dep-1", Endpoint: endpoint, Weight: 1}
	return NewHTTPProvider(dep, bearer{}, nil, func() (string, error) { return "sk-1", nil })
}

func TestHTTPProvider_SinglePassOn5xx(t *testing.T) {
	mock := upstreamtest.NewServer()
	defer mock.Close()
	mock.SetResponse("/chat/completions", upstreamtest.ServerError())

	p := newTestProvider(mock.URL())
	_, err := p.Send(context.Background(), OpChatCompletions, []byte(`{}`))

	var perr *ProviderError
	require.True(t, errors.As(err, &perr), "expected ProviderError, got %v", err)
	assert.Equal(t, http.StatusInternalServerError, perr.StatusCode)
	assert.Equal(t, "dep-1", perr.Deployment)
	assert.Contains(t, string(perr.Body), "Internal server error")
	assert.Equal(t, 1, mock.RequestCount(), "the provider must not retry")
}

func TestHTTPProvider_RateLimitCarriesRetryAfter(t *testing.T) {
	mock := upstreamtest.NewServer()
	defer mock.Close()
	mock.SetResponse("/chat/completions", upstreamtest.RateLimited(7))

	_, err := newTestProvider(mock.URL()).Send(context.Background(), OpChatCompletions, []byte(`{}`))

	var perr *ProviderError
	require.True(t, errors.As(err, &perr))
	assert.Equal(t, http.StatusTooManyRequests, perr.StatusCode)
	assert.Equal(t, 7*time.Second, perr.RetryAfter)
	assert.Equal(t, "7", perr.Header.Get("Retry-After"))
}

func TestHTTPProvider_MalformedBody(t *testing.T) {
	mock := upstreamtest.NewServer()
	defer mock.Close()
	mock.SetResponse("/chat/completions", upstreamtest.Response{StatusCode: 200, Body: "not json"})

	_, err := newTestProvider(mock.URL()).Send(context.Background(), OpChatCompletions, []byte(`{}`))

	var perr *ParseError
	require.True(t, errors.As(err, &perr), "expected ParseError, got %v", err)
	assert.Equal(t, "not json", perr.RawResponse)
}

func TestHTTPProvider_Timeout(t *testing.T) {
	mock := upstreamtest.NewServer()
	defer mock.Close()
	mock.SetResponse("/chat/completions", upstreamtest.Response{
		StatusCode: 200,
		Body:       upstreamtest.ChatCompletion("slow", "m"),
		Delay:      2 * time.Second,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := newTestProvider(mock.URL()).Send(ctx, OpChatCompletions, []byte(`{}`))

	var terr *TimeoutError
	require.True(t, errors.As(err, &terr), "expected TimeoutError, got %v", err)
}

func TestHTTPProvider_Cancelled(t *testing.T) {
	mock := upstreamtest.NewServer()
	defer mock.Close()
	mock.SetResponse("/chat/completions", upstreamtest.Response{
		StatusCode: 200,
		Body:       upstreamtest.ChatCompletion("slow", "m"),
		Delay:      2 * time.Second,
	})

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		<-mock.Connected()
		cancel()
	}()

	_, err := newTestProvider(mock.URL()).Send(ctx, OpChatCompletions, []byte(`{}`))
	require.ErrorIs(t, err, context.Canceled)

	var terr *TimeoutError
	assert.False(t, errors.As(err, &terr))
	var cerr *ConnectionError
	assert.False(t, errors.As(err, &cerr))
}

func TestHTTPProvider_ConnectionRefused(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := ln.Addr().String()
	ln.Close()

	_, err = newTestProvider("http://"+addr).Send(context.Background(), OpChatCompletions, []byte(`{}`))

	var cerr *ConnectionError
	require.True(t, errors.As(err, &cerr), "expected ConnectionError, got %v", err)
}

func TestHTTPProvider_CredentialError(t *testing.T) {
	mock := upstreamtest.NewServer()
	defer mock.Close()

	dep := &registry.Deployment{ID: "dep-1", Endpoint: mock.URL()}
	boom := errors.New("vault sealed")
	p := NewHTTPProvider(dep, bearer{}, nil, func() (string, error) { return "", boom })

	_, err := p.Send(context.Background(), OpChatCompletions, []byte(`{}`))
	require.ErrorIs(t, err, boom)
	assert.Zero(t, mock.RequestCount())
}

func TestHTTPProvider_StreamNon2xx(t *testing.T) {
	mock := upstreamtest.NewServer()
	defer mock.Close()
	mock.SetResponse("/chat/completions", upstreamtest.ErrorResponse(http.StatusBadRequest, "bad"))

	_, err := newTestProvider(mock.URL()).Stream(context.Background(), OpChatCompletions, []byte(`{}`))

	var perr *ProviderError
	require.True(t, errors.As(err, &perr))
	assert.Equal(t, http.StatusBadRequest, perr.StatusCode)
}

func TestHTTPProvider_ConnectionReuse(t *testing.T) {
	mock := upstreamtest.NewServer()
	defer mock.Close()
	mock.SetResponse("/chat/completions", upstreamtest.OK("hi", "m"))

	p := newTestProvider(mock.URL())
	defer p.Close()
	for i := 0; i < 5; i++ {
		_, err := p.Send(context.Background(), OpChatCompletions, []byte(`{}`))
		require.NoError(t, err)
	}
	assert.Equal(t, 5, mock.RequestCount())
}
