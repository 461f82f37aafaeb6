// Package secrets resolves upstream credential references.
package secrets

import (
	"context"
	"errors"
)

// ErrSecretNotFound is returned when a reference names a secret that does
// not exist in its backend.
var ErrSecretNotFound = errors.New("secret not found")

// SecretProvider resolves one family of credential references.
type SecretProvider interface {
	// GetSecret resolves ref. ref is the full reference including its
	// scheme prefix.
	GetSecret(ctx context.Context, ref string) (string, error)

	// Provider returns the provider name (env, file).
	Provider() string

	// Supports reports whether ref uses this provider's syntax.
	Supports(ref string) bool
}
