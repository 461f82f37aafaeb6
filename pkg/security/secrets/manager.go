package secrets

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

// Cache defaults.
const (
	DefaultCacheSize = 256
	DefaultCacheTTL  = 5 * time.Minute
)

// CacheConfig configures the resolved-credential cache.
type CacheConfig struct {
	// Size is the maximum number of cached credentials.
	Size int

	// TTL bounds how long a resolved credential is reused, so rotated
	// environment variables and files are eventually picked up.
	TTL time.Duration
}

// Manager resolves credential references through its providers. A
// reference no provider supports is treated as a literal credential.
type Manager struct {
	providers []SecretProvider
	cache     *expirable.LRU[string, string]
}

// NewManager creates a manager over providers, consulted in order.
func NewManager(providers []SecretProvider, cacheConfig CacheConfig) *Manager {
	if cacheConfig.Size <= 0 {
		cacheConfig.Size = DefaultCacheSize
	}
	if cacheConfig.TTL <= 0 {
		cacheConfig.TTL = DefaultCacheTTL
	}
	return &Manager{
		providers: providers,
		cache:     expirable.NewLRU[string, string](cacheConfig.Size, nil, cacheConfig.TTL),
	}
}

// NewDefaultManager creates a manager with the env and file providers.
func NewDefaultManager() *Manager {
	return NewManager([]SecretProvider{NewEnvProvider(), NewFileProvider(false)}, CacheConfig{})
}

// Resolve returns the credential ref points at. An empty ref resolves to
// an empty credential.
func (m *Manager) Resolve(ctx context.Context, ref string) (string, error) {
	if ref == "" {
		return "", nil
	}
	if value, ok := m.cache.Get(ref); ok {
		return value, nil
	}

	for _, p := range m.providers {
		if !p.Supports(ref) {
			continue
		}
		value, err := p.GetSecret(ctx, ref)
		if err != nil {
			return "", fmt.Errorf("resolving credential via %s provider: %w", p.Provider(), err)
		}
		m.cache.Add(ref, value)
		slog.Debug("credential resolved", "provider", p.Provider(), "ref", redactRef(ref))
		return value, nil
	}

	// literal key
	return ref, nil
}

// IsReference reports whether ref is handled by a provider rather than
// taken literally.
func (m *Manager) IsReference(ref string) bool {
	for _, p := range m.providers {
		if p.Supports(ref) {
			return true
		}
	}
	return false
}

// Refresh drops every cached credential.
func (m *Manager) Refresh() {
	m.cache.Purge()
	slog.Debug("credential cache cleared")
}

// redactRef keeps the scheme of a reference and hides the rest.
func redactRef(ref string) string {
	for _, prefix := range []string{EnvironPrefix, EnvPrefix, FilePrefix} {
		if len(ref) > len(prefix) && ref[:len(prefix)] == prefix {
			// variable names and paths are not secret
			return ref
		}
	}
	if len(ref) <= 4 {
		return "***"
	}
	return ref[:2] + "..." + ref[len(ref)-2:]
}
