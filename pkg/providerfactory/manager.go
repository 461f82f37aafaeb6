package providerfactory

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"

	"github.com/igamenovoer/my-litellm-proxy/pkg/providers"
	"github.com/igamenovoer/my-litellm-proxy/pkg/registry"
)

// Manager keeps one provider per deployment id, all sharing a pooled HTTP
// client. It is safe for concurrent use.
type Manager struct {
	client   *http.Client
	resolver Resolver

	mu        sync.RWMutex
	providers map[string]entry
}

type entry struct {
	deployment *registry.Deployment
	provider   providers.Provider
}

// NewManager creates a manager. client may be nil to use the default
// pooled client.
func NewManager(client *http.Client, resolver Resolver) *Manager {
	if client == nil {
		client = providers.NewHTTPClient(providers.DefaultTransportConfig())
	}
	return &Manager{
		client:    client,
		resolver:  resolver,
		providers: make(map[string]entry),
	}
}

// Sync makes the manager's providers match deployments. Providers for
// unchanged deployments are kept, changed ones are rebuilt and removed
// ones are closed. A deployment whose provider cannot be built is skipped
// and reported in the returned error; the others are still synced.
func (m *Manager) Sync(deployments []*registry.Deployment) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	seen := make(map[string]struct{}, len(deployments))
	var errs []error

	for _, d := range deployments {
		seen[d.ID] = struct{}{}
		if existing, ok := m.providers[d.ID]; ok && sameDeployment(existing.deployment, d) {
			// transport fields unchanged
			continue
		}

		p, err := NewProvider(d, m.client, m.resolver)
		if err != nil {
			errs = append(errs, err)
			slog.Error("failed to build provider", "deployment", d.ID, "error", err)
			continue
		}
		if old, ok := m.providers[d.ID]; ok {
			slog.Info("replacing provider", "deployment", d.ID)
			_ = old.provider.Close()
		}
		m.providers[d.ID] = entry{deployment: d, provider: p}
	}

	for id, e := range m.providers {
		if _, ok := seen[id]; ok {
			continue
		}
		_ = e.provider.Close()
		delete(m.providers, id)
		slog.Info("provider removed", "deployment", id)
	}

	slog.Debug("providers synced", "total", len(m.providers))
	return errors.Join(errs...)
}

// Get returns the provider for a deployment id.
func (m *Manager) Get(id string) (providers.Provider, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	e, ok := m.providers[id]
	if !ok {
		return nil, fmt.Errorf("%w: %q", registry.ErrUnknownDeployment, id)
	}
	return e.provider, nil
}

// Count returns the number of providers.
func (m *Manager) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.providers)
}

// Close closes every provider.
func (m *Manager) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	var errs []error
	for id, e := range m.providers {
		if err := e.provider.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close provider %q: %w", id, err))
		}
	}
	m.providers = make(map[string]entry)
	return errors.Join(errs...)
}

func sameDeployment(a, b *registry.Deployment) bool {
	if a.ProviderKind != b.ProviderKind ||
		a.Endpoint != b.Endpoint ||
		a.CredentialRef != b.CredentialRef ||
		a.APIVersion != b.APIVersion ||
		a.Model != b.Model ||
		len(a.Headers) != len(b.Headers) {
		return false
	}
	for k, v := range a.Headers {
		if b.Headers[k] != v {
			return false
		}
	}
	return true
}
