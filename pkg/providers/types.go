package providers

import (
	"net/http"
	"time"
)

// Operation is an upstream API path relative to the deployment base URL.
type Operation string

const (
	OpChatCompletions Operation = "chat/completions"
	OpCompletions     Operation = "completions"
)

// Response is a complete upstream reply, kept raw so the gateway can pass
// status, headers and body through unchanged.
type Response struct {
	StatusCode int
	Header     http.Header
	Body       []byte
}

// CredentialFunc returns the credential to attach to an upstream call.
// It is invoked per request so rotated credentials are picked up.
type CredentialFunc func() (string, error)

// TransportConfig tunes the shared upstream HTTP client.
type TransportConfig struct {
	// MaxIdleConns is the maximum number of idle connections across all hosts.
	MaxIdleConns int

	// MaxIdleConnsPerHost is the maximum number of idle connections per host.
	MaxIdleConnsPerHost int

	// IdleConnTimeout is how long idle connections are kept.
	IdleConnTimeout time.Duration

	// MaxErrorBodyBytes caps how much of an upstream error body is kept.
	MaxErrorBodyBytes int64
}

// DefaultTransportConfig returns pooling defaults suitable for a gateway.
func DefaultTransportConfig() TransportConfig {
	return TransportConfig{
		MaxIdleConns:        200,
		MaxIdleConnsPerHost: 32,
		IdleConnTimeout:     90 * time.Second,
		MaxErrorBodyBytes:   1 << 20,
	}
}

// NewHTTPClient creates the pooled HTTP client shared by all deployments.
// It sets no overall timeout; attempts are bounded by their context.
func NewHTTPClient(cfg TransportConfig) *http.Client {
	transport := &http.Transport{
		Proxy:               http.ProxyFromEnvironment,
		MaxIdleConns:        cfg.MaxIdleConns,
		MaxIdleConnsPerHost: cfg.MaxIdleConnsPerHost,
		IdleConnTimeout:     cfg.IdleConnTimeout,
		ForceAttemptHTTP2:   true,
	}
	return &http.Client{Transport: transport}
}
