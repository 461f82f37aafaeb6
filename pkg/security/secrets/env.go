package secrets

import (
	"context"
	"fmt"
	"os"
	"strings"
)

// Reference prefixes naming an environment variable.
const (
	EnvironPrefix = "os.environ/"
	EnvPrefix     = "env:"
)

// EnvProvider reads credentials from environment variables. Both the
// "os.environ/NAME" and "env:NAME" forms are accepted.
type EnvProvider struct{}

// NewEnvProvider creates an environment variable provider.
func NewEnvProvider() *EnvProvider {
	return &EnvProvider{}
}

// GetSecret returns the value of the referenced variable. An unset or empty
// variable is an error so a misconfigured deployment fails loudly.
func (p *EnvProvider) GetSecret(_ context.Context, ref string) (string, error) {
	name := envName(ref)
	if name == "" {
		return "", fmt.Errorf("empty environment variable name in %q", ref)
	}
	value, ok := os.LookupEnv(name)
	if !ok || value == "" {
		return "", fmt.Errorf("%w: environment variable %s is not set", ErrSecretNotFound, name)
	}
	return value, nil
}

// Provider returns the provider name.
func (p *EnvProvider) Provider() string {
	return "env"
}

// Supports reports whether ref names an environment variable.
func (p *EnvProvider) Supports(ref string) bool {
	return strings.HasPrefix(ref, EnvironPrefix) || strings.HasPrefix(ref, EnvPrefix)
}

func envName(ref string) string {
	if name, ok := strings.CutPrefix(ref, EnvironPrefix); ok {
		return strings.TrimSpace(name)
	}
	name, _ := strings.CutPrefix(ref, EnvPrefix)
	return strings.TrimSpace(name)
}
