package auth

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// VirtualKeyPrefix marks a key as a signed virtual key.
const VirtualKeyPrefix = "sk-vk-"

const virtualKeyIssuer = "llmproxy"

// VirtualKeyClaims are the claims carried by a virtual key.
type VirtualKeyClaims struct {
	Alias  string   `json:"alias"`
	Models []string `json:"models,omitempty"`

	RPMLimit            int `json:"rpm_limit,omitempty"`
	MaxParallelRequests int `json:"max_parallel_requests,omitempty"`

	jwt.RegisteredClaims
}

// VirtualKeyOption sets an optional claim on a virtual key.
type VirtualKeyOption func(*VirtualKeyClaims)

// WithRPMLimit limits the key to n requests per minute.
func WithRPMLimit(n int) VirtualKeyOption {
	return func(c *VirtualKeyClaims) { c.RPMLimit = n }
}

// WithMaxParallelRequests limits the key to n requests in flight.
func WithMaxParallelRequests(n int) VirtualKeyOption {
	return func(c *VirtualKeyClaims) { c.MaxParallelRequests = n }
}

// IssueVirtualKey mints a virtual key signed with the master key. A zero
// ttl issues a key that does not expire.
func IssueVirtualKey(masterKey, alias string, models []string, ttl time.Duration, opts ...VirtualKeyOption) (string, error) {
	if masterKey == "" {
		return "", errors.New("a master key is required to sign virtual keys")
	}
	if alias == "" {
		return "", errors.New("alias is required")
	}

	now := time.Now()
	claims := &VirtualKeyClaims{
		Alias:  alias,
		Models: models,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:       uuid.NewString(),
			Issuer:   virtualKeyIssuer,
			Subject:  alias,
			IssuedAt: jwt.NewNumericDate(now),
		},
	}
	for _, opt := range opts {
		opt(claims)
	}
	if ttl > 0 {
		claims.ExpiresAt = jwt.NewNumericDate(now.Add(ttl))
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(masterKey))
	if err != nil {
		return "", fmt.Errorf("failed to sign virtual key: %w", err)
	}
	return VirtualKeyPrefix + signed, nil
}

// ParseVirtualKey verifies a virtual key against the master key.
func ParseVirtualKey(masterKey, key string) (*KeyInfo, error) {
	raw, ok := strings.CutPrefix(key, VirtualKeyPrefix)
	if !ok || raw == "" {
		return nil, errors.New("not a virtual key")
	}

	token, err := jwt.ParseWithClaims(raw, &VirtualKeyClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(masterKey), nil
	}, jwt.WithIssuer(virtualKeyIssuer), jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return nil, fmt.Errorf("failed to parse virtual key: %w", err)
	}

	claims, ok := token.Claims.(*VirtualKeyClaims)
	if !ok || !token.Valid {
		return nil, errors.New("invalid virtual key claims or signature")
	}

	info := &KeyInfo{
		Alias:  claims.Alias,
		Source: SourceVirtual,
		Models: claims.Models,

		RPMLimit:            claims.RPMLimit,
		MaxParallelRequests: claims.MaxParallelRequests,
	}
	if claims.ExpiresAt != nil {
		info.ExpiresAt = claims.ExpiresAt.Time
	}
	return info, nil
}

// GenerateKey returns a random "sk-" key suitable for key or master_key.
func GenerateKey() (string, error) {
	b := make([]byte, 24)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("failed to generate key: %w", err)
	}
	return "sk-" + hex.EncodeToString(b), nil
}
