package providerfactory

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/igamenovoer/my-litellm-proxy/pkg/providers"
	"github.com/igamenovoer/my-litellm-proxy/pkg/providers/azure"
	"github.com/igamenovoer/my-litellm-proxy/pkg/providers/generic"
	"github.com/igamenovoer/my-litellm-proxy/pkg/providers/openai"
	"github.com/igamenovoer/my-litellm-proxy/pkg/registry"
)

// Resolver turns a credential reference into a credential.
type Resolver interface {
	Resolve(ctx context.Context, ref string) (string, error)
}

// NewProvider creates the provider for d according to its provider kind.
//
// Supported kinds:
//   - "openai": OpenAI API, key required
//   - "azure": Azure OpenAI, key and api_version required
//   - "openai-compatible": any OpenAI-compatible server, key optional
//
// The credential is resolved through resolver on every call so rotated
// keys take effect without rebuilding the provider.
func NewProvider(d *registry.Deployment, client *http.Client, resolver Resolver) (providers.Provider, error) {
	creds := credentialFunc(d.CredentialRef, resolver)

	slog.Debug("creating provider",
		"deployment", d.ID,
		"kind", d.ProviderKind,
		"base_url", d.Endpoint,
	)

	var (
		p   *providers.HTTPProvider
		err error
	)
	switch d.ProviderKind {
	case registry.ProviderOpenAI:
		p, err = openai.NewProvider(d, client, creds)
	case registry.ProviderAzure:
		p, err = azure.NewProvider(d, client, creds)
	case registry.ProviderOpenAICompatible:
		p, err = generic.NewProvider(d, client, creds)
	default:
		return nil, &providers.ConfigError{
			Deployment: d.ID,
			Field:      "provider",
			Message:    fmt.Sprintf("unsupported provider kind %q (supported: openai, azure, openai-compatible)", d.ProviderKind),
		}
	}
	if err != nil {
		return nil, fmt.Errorf("failed to create provider for deployment %q: %w", d.ID, err)
	}
	return p, nil
}

// credentialFunc returns nil when the deployment has no credential
// reference, which lets keyless dialects skip authorization.
func credentialFunc(ref string, resolver Resolver) providers.CredentialFunc {
	if ref == "" || resolver == nil {
		return nil
	}
	return func() (string, error) {
		return resolver.Resolve(context.Background(), ref)
	}
}
