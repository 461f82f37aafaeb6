package generic

import (
	"log/slog"
	"net/http"

	"github.com/igamenovoer/my-litellm-proxy/pkg/providers"
	"github.com/igamenovoer/my-litellm-proxy/pkg/providers/openai"
	"github.com/igamenovoer/my-litellm-proxy/pkg/registry"
)

// NewProvider creates a provider for an OpenAI-compatible server such as
// vLLM, Ollama or LM Studio. The API key is optional; local servers
// typically run without one.
func NewProvider(dep *registry.Deployment, client *http.Client, credentials providers.CredentialFunc) (*providers.HTTPProvider, error) {
	if dep.Endpoint == "" {
		return nil, &providers.ConfigError{
			Deployment: dep.ID,
			Field:      "api_base",
			Message:    "base URL is required for openai-compatible deployments",
		}
	}

	slog.Debug("openai-compatible deployment initialized",
		"deployment", dep.ID,
		"base_url", dep.Endpoint,
		"keyed", credentials != nil,
	)

	return providers.NewHTTPProvider(dep, openai.Dialect{}, client, credentials), nil
}
