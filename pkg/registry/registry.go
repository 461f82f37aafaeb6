package registry

import (
	"fmt"
	"slices"
	"sort"
	"time"
)

// Provider kinds understood by the upstream transport.
const (
	ProviderOpenAI           = "openai"
	ProviderAzure            = "azure"
	ProviderOpenAICompatible = "openai-compatible"
)

// Deployment is one concrete upstream endpoint serving a model.
// Deployments are immutable once a Registry has been built.
type Deployment struct {
	// ID uniquely identifies the deployment.
	ID string

	// ProviderKind selects the upstream wire convention.
	ProviderKind string

	// ModelName is the logical model group the deployment was declared under.
	ModelName string

	// Model is the name sent upstream in the request body.
	Model string

	// Endpoint is the upstream base URL.
	Endpoint string

	// CredentialRef names where the upstream credential comes from.
	CredentialRef string

	// APIVersion is sent as api-version for Azure deployments.
	APIVersion string

	// Headers are extra headers sent on every upstream request.
	Headers map[string]string

	// MaxConcurrent caps in-flight requests. Zero means unlimited.
	MaxConcurrent int

	// Weight is the relative selection weight. Always positive.
	Weight int

	// Priority is the fallback tier; lower values are preferred.
	Priority int

	// Timeout overrides the router-wide per-attempt timeout when non-zero.
	Timeout time.Duration
}

// ModelGroup is a logical model name mapped to the deployments that serve it.
type ModelGroup struct {
	Name        string
	Deployments []*Deployment
}

// IDs returns the member deployment ids in declaration order.
func (g *ModelGroup) IDs() []string {
	ids := make([]string, len(g.Deployments))
	for i, d := range g.Deployments {
		ids[i] = d.ID
	}
	return ids
}

// GroupSpec declares a model group explicitly by deployment id.
type GroupSpec struct {
	Name          string
	DeploymentIDs []string
}

// Registry maps model names to groups and ids to deployments. It is never
// mutated after New returns, so lookups need no locking.
type Registry struct {
	deployments map[string]*Deployment
	order       []*Deployment
	groups      map[string]*ModelGroup
	aliases     map[string]string
}

// New builds a registry. Deployments sharing a ModelName form an implicit
// group; specs add or extend groups by id; aliases map extra names onto
// existing groups. New fails with an error wrapping ErrInvalidRegistry when
// the input is inconsistent.
func New(deployments []Deployment, specs []GroupSpec, aliases map[string]string) (*Registry, error) {
	r := &Registry{
		deployments: make(map[string]*Deployment, len(deployments)),
		order:       make([]*Deployment, 0, len(deployments)),
		groups:      make(map[string]*ModelGroup),
		aliases:     make(map[string]string, len(aliases)),
	}

	for i := range deployments {
		d := deployments[i]
		if err := checkDeployment(&d); err != nil {
			return nil, err
		}
		if _, dup := r.deployments[d.ID]; dup {
			return nil, fmt.Errorf("%w: duplicate deployment id %q", ErrInvalidRegistry, d.ID)
		}
		d.Headers = cloneHeaders(d.Headers)
		r.deployments[d.ID] = &d
		r.order = append(r.order, &d)
		r.addMember(d.ModelName, &d)
	}

	for _, spec := range specs {
		if spec.Name == "" {
			return nil, fmt.Errorf("%w: model group without a name", ErrInvalidRegistry)
		}
		if len(spec.DeploymentIDs) == 0 {
			return nil, fmt.Errorf("%w: model group %q has no deployments", ErrInvalidRegistry, spec.Name)
		}
		for _, id := range spec.DeploymentIDs {
			d, ok := r.deployments[id]
			if !ok {
				return nil, fmt.Errorf("%w: model group %q references unknown deployment %q",
					ErrInvalidRegistry, spec.Name, id)
			}
			r.addMember(spec.Name, d)
		}
	}

	for alias, target := range aliases {
		if _, ok := r.groups[target]; !ok {
			return nil, fmt.Errorf("%w: alias %q targets unknown model group %q",
				ErrInvalidRegistry, alias, target)
		}
		r.aliases[alias] = target
	}

	return r, nil
}

func checkDeployment(d *Deployment) error {
	switch {
	case d.ID == "":
		return fmt.Errorf("%w: deployment without an id", ErrInvalidRegistry)
	case d.ModelName == "":
		return fmt.Errorf("%w: deployment %q has no model name", ErrInvalidRegistry, d.ID)
	case d.Weight <= 0:
		return fmt.Errorf("%w: deployment %q has non-positive weight %d", ErrInvalidRegistry, d.ID, d.Weight)
	case d.MaxConcurrent < 0:
		return fmt.Errorf("%w: deployment %q has negative max_concurrent %d",
			ErrInvalidRegistry, d.ID, d.MaxConcurrent)
	}
	return nil
}

func (r *Registry) addMember(group string, d *Deployment) {
	g, ok := r.groups[group]
	if !ok {
		g = &ModelGroup{Name: group}
		r.groups[group] = g
	}
	if slices.Contains(g.Deployments, d) {
		return
	}
	g.Deployments = append(g.Deployments, d)
}

func cloneHeaders(h map[string]string) map[string]string {
	if len(h) == 0 {
		return nil
	}
	out := make(map[string]string, len(h))
	for k, v := range h {
		out[k] = v
	}
	return out
}

// Resolve returns the model group for a model name or alias.
func (r *Registry) Resolve(model string) (*ModelGroup, error) {
	if g, ok := r.groups[model]; ok {
		return g, nil
	}
	if target, ok := r.aliases[model]; ok {
		return r.groups[target], nil
	}
	return nil, &UnknownModelError{Model: model}
}

// Get returns the deployment with the given id.
func (r *Registry) Get(id string) (*Deployment, error) {
	d, ok := r.deployments[id]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownDeployment, id)
	}
	return d, nil
}

// Deployments returns every deployment in declaration order.
func (r *Registry) Deployments() []*Deployment {
	return slices.Clone(r.order)
}

// ModelNames returns the sorted names of all groups and aliases.
func (r *Registry) ModelNames() []string {
	names := make([]string, 0, len(r.groups)+len(r.aliases))
	for name := range r.groups {
		names = append(names, name)
	}
	for alias := range r.aliases {
		names = append(names, alias)
	}
	sort.Strings(names)
	return names
}
