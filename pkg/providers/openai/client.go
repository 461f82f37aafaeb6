package openai

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/igamenovoer/my-litellm-proxy/pkg/providers"
	"github.com/igamenovoer/my-litellm-proxy/pkg/registry"
)

// Dialect speaks the OpenAI API: {base}/{op} with a Bearer credential.
type Dialect struct {
	// RequireCredential rejects calls without a credential.
	RequireCredential bool
}

// URL implements providers.Dialect.
func (d Dialect) URL(dep *registry.Deployment, op providers.Operation) string {
	return strings.TrimRight(dep.Endpoint, "/") + "/" + string(op)
}

// Authorize implements providers.Dialect.
func (d Dialect) Authorize(req *http.Request, credential string) error {
	if credential == "" {
		if d.RequireCredential {
			return fmt.Errorf("%w: set api_key for the deployment", providers.ErrMissingCredential)
		}
		return nil
	}
	req.Header.Set("Authorization", "Bearer "+credential)
	return nil
}

// NewProvider creates a provider for an OpenAI deployment.
func NewProvider(dep *registry.Deployment, client *http.Client, credentials providers.CredentialFunc) (*providers.HTTPProvider, error) {
	if dep.Endpoint == "" {
		return nil, &providers.ConfigError{
			Deployment: dep.ID,
			Field:      "api_base",
			Message:    "base URL is required",
		}
	}
	if credentials == nil {
		return nil, &providers.ConfigError{
			Deployment: dep.ID,
			Field:      "api_key",
			Message:    "an API key is required for openai deployments",
		}
	}
	return providers.NewHTTPProvider(dep, Dialect{RequireCredential: true}, client, credentials), nil
}
