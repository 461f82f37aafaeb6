package auth

import (
	"errors"
	"slices"
	"time"
)

var (
	// ErrMissingKey is returned when a request carries no API key.
	ErrMissingKey = errors.New("missing API key")

	// ErrInvalidKey is returned when the key matches nothing configured.
	ErrInvalidKey = errors.New("invalid API key")

	// ErrKeyDisabled is returned for a configured key marked disabled.
	ErrKeyDisabled = errors.New("API key disabled")

	// ErrModelNotAllowed is returned when a key may not use a model.
	ErrModelNotAllowed = errors.New("model not allowed for this key")
)

// Key sources.
const (
	SourceMaster    = "master"
	SourceConfig    = "config"
	SourceVirtual   = "virtual"
	SourceAnonymous = "anonymous"
)

// KeyInfo describes an authenticated caller.
type KeyInfo struct {
	// Alias names the key in logs and audit records. It never contains
	// the key itself.
	Alias string

	// Source is where the key was found: master, config, virtual or
	// anonymous when authentication is off.
	Source string

	// Models restricts the model names the key may call. Empty means all.
	Models []string

	// ExpiresAt is set for virtual keys.
	ExpiresAt time.Time

	// RPMLimit and MaxParallelRequests are the key's request limits.
	// Zero means unlimited.
	RPMLimit            int
	MaxParallelRequests int
}

// AllowsModel reports whether the key may call model.
func (k *KeyInfo) AllowsModel(model string) bool {
	if k == nil || len(k.Models) == 0 {
		return true
	}
	return slices.Contains(k.Models, model)
}
