package registry

import (
	"sync/atomic"
)

// Store holds the current Registry. Readers always see a complete registry;
// Replace swaps it in one atomic step so in-flight requests keep using the
// registry they resolved against.
type Store struct {
	current atomic.Pointer[Registry]
}

// NewStore creates a store holding r.
func NewStore(r *Registry) *Store {
	s := &Store{}
	s.current.Store(r)
	return s
}

// Load returns the current registry.
func (s *Store) Load() *Registry {
	return s.current.Load()
}

// Replace installs r as the current registry. Replacing with the registry
// already installed is a no-op.
func (s *Store) Replace(r *Registry) {
	s.current.Store(r)
}

// Resolve resolves model against the current registry.
func (s *Store) Resolve(model string) (*ModelGroup, error) {
	return s.Load().Resolve(model)
}

// Get looks up id in the current registry.
func (s *Store) Get(id string) (*Deployment, error) {
	return s.Load().Get(id)
}

// ModelNames lists the model names of the current registry.
func (s *Store) ModelNames() []string {
	return s.Load().ModelNames()
}

// Deployments lists the deployments of the current registry.
func (s *Store) Deployments() []*Deployment {
	return s.Load().Deployments()
}
