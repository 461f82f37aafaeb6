// Package azure implements the Azure OpenAI upstream dialect.
package azure

import (
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/igamenovoer/my-litellm-proxy/pkg/providers"
	"github.com/igamenovoer/my-litellm-proxy/pkg/registry"
)

// Dialect addresses {base}/openai/deployments/{model}/{op}?api-version=...
// and authenticates with the api-key header.
type Dialect struct{}

// URL implements providers.Dialect.
func (Dialect) URL(dep *registry.Deployment, op providers.Operation) string {
	return fmt.Sprintf("%s/openai/deployments/%s/%s?api-version=%s",
		strings.TrimRight(dep.Endpoint, "/"),
		url.PathEscape(dep.Model),
		op,
		url.QueryEscape(dep.APIVersion),
	)
}

// Authorize implements providers.Dialect.
func (Dialect) Authorize(req *http.Request, credential string) error {
	if credential == "" {
		return fmt.Errorf("%w: azure deployments need api_key", providers.ErrMissingCredential)
	}
	req.Header.Set("api-key", credential)
	return nil
}

// NewProvider creates a provider for an Azure OpenAI deployment.
func NewProvider(dep *registry.Deployment, client *http.Client, credentials providers.CredentialFunc) (*providers.HTTPProvider, error) {
	switch {
	case dep.Endpoint == "":
		return nil, &providers.ConfigError{Deployment: dep.ID, Field: "api_base", Message: "base URL is required"}
	case dep.APIVersion == "":
		return nil, &providers.ConfigError{Deployment: dep.ID, Field: "api_version", Message: "api_version is required"}
	case credentials == nil:
		return nil, &providers.ConfigError{Deployment: dep.ID, Field: "api_key", Message: "an API key is required for azure deployments"}
	}
	return providers.NewHTTPProvider(dep, Dialect{}, client, credentials), nil
}
