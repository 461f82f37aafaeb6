package registry

import (
	"github.com/igamenovoer/my-litellm-proxy/pkg/config"
)

// FromConfig builds a registry from the model_list, model_groups and
// router_settings.model_group_alias sections.
func FromConfig(cfg *config.Config) (*Registry, error) {
	deployments := make([]Deployment, 0, len(cfg.ModelList))
	for _, dc := range cfg.ModelList {
		deployments = append(deployments, Deployment{
			ID:            dc.ID,
			ProviderKind:  dc.Provider,
			ModelName:     dc.ModelName,
			Model:         dc.Model,
			Endpoint:      dc.APIBase,
			CredentialRef: dc.APIKey,
			APIVersion:    dc.APIVersion,
			Headers:       dc.Headers,
			MaxConcurrent: dc.MaxConcurrent,
			Weight:        dc.Weight,
			Priority:      dc.Priority,
			Timeout:       dc.Timeout,
		})
	}

	specs := make([]GroupSpec, 0, len(cfg.ModelGroups))
	for _, gc := range cfg.ModelGroups {
		specs = append(specs, GroupSpec{Name: gc.Name, DeploymentIDs: gc.Deployments})
	}

	return New(deployments, specs, cfg.RouterSettings.ModelGroupAlias)
}
