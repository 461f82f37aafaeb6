package auth

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"golang.org/x/crypto/bcrypt"

	"github.com/igamenovoer/my-litellm-proxy/pkg/config"
)

const (
	defaultCacheSize = 1024
	defaultCacheTTL  = 5 * time.Minute

	// unknown keys skip the bcrypt scan for this long
	rejectedCacheTTL = 30 * time.Second
)

type hashedKey struct {
	hash []byte
	info *KeyInfo
}

// Validator checks API keys against the master key, the configured keys
// and virtual keys signed by the master key. It is safe for concurrent use
// and immutable after construction; rebuild it to pick up new keys.
type Validator struct {
	master    string
	plain     map[string]*KeyInfo
	hashed    []hashedKey
	disabled  map[string]struct{}
	verified  *expirable.LRU[string, *KeyInfo]
	rejected  *expirable.LRU[string, struct{}]
	verifyJWT bool
}

// NewValidator builds a validator from general settings.
func NewValidator(gs config.GeneralSettings) *Validator {
	v := &Validator{
		master:    gs.MasterKey,
		plain:     make(map[string]*KeyInfo),
		disabled:  make(map[string]struct{}),
		verified:  expirable.NewLRU[string, *KeyInfo](defaultCacheSize, nil, defaultCacheTTL),
		rejected:  expirable.NewLRU[string, struct{}](defaultCacheSize, nil, rejectedCacheTTL),
		verifyJWT: gs.MasterKey != "",
	}

	for i, kc := range gs.Keys {
		info := &KeyInfo{
			Alias:  kc.Alias,
			Source: SourceConfig,
			Models: kc.Models,

			RPMLimit:            kc.RPMLimit,
			MaxParallelRequests: kc.MaxParallelRequests,
		}
		if info.Alias == "" {
			info.Alias = fmt.Sprintf("key-%d", i+1)
		}

		switch {
		case kc.Key != "":
			if kc.Disabled {
				v.disabled[fingerprint(kc.Key)] = struct{}{}
				continue
			}
			v.plain[fingerprint(kc.Key)] = info
		case kc.KeyHash != "" && !kc.Disabled:
			v.hashed = append(v.hashed, hashedKey{hash: []byte(kc.KeyHash), info: info})
		}
	}
	return v
}

// Enabled reports whether any key is configured. Without keys every request
// is let through.
func (v *Validator) Enabled() bool {
	return v.master != "" || len(v.plain) > 0 || len(v.hashed) > 0 || len(v.disabled) > 0
}

// Validate returns the caller behind key.
func (v *Validator) Validate(key string) (*KeyInfo, error) {
	if key == "" {
		return nil, ErrMissingKey
	}

	if v.master != "" && subtle.ConstantTimeCompare([]byte(key), []byte(v.master)) == 1 {
		return &KeyInfo{Alias: "master", Source: SourceMaster}, nil
	}

	fp := fingerprint(key)
	if info, ok := v.plain[fp]; ok {
		return info, nil
	}
	if _, ok := v.disabled[fp]; ok {
		return nil, ErrKeyDisabled
	}
	if info, ok := v.verified.Get(fp); ok {
		if info.ExpiresAt.IsZero() || time.Now().Before(info.ExpiresAt) {
			return info, nil
		}
		v.verified.Remove(fp)
	}

	if v.verifyJWT && strings.HasPrefix(key, VirtualKeyPrefix) {
		info, err := ParseVirtualKey(v.master, key)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidKey, err)
		}
		v.verified.Add(fp, info)
		return info, nil
	}

	if len(v.hashed) == 0 {
		return nil, ErrInvalidKey
	}
	if v.rejected.Contains(fp) {
		return nil, ErrInvalidKey
	}
	for _, hk := range v.hashed {
		if bcrypt.CompareHashAndPassword(hk.hash, []byte(key)) == nil {
			v.verified.Add(fp, hk.info)
			return hk.info, nil
		}
	}
	v.rejected.Add(fp, struct{}{})

	return nil, ErrInvalidKey
}

// HashKey returns the bcrypt hash of key for use as key_hash in config.
func HashKey(key string) (string, error) {
	if key == "" {
		return "", ErrMissingKey
	}
	h, err := bcrypt.GenerateFromPassword([]byte(key), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("failed to hash key: %w", err)
	}
	return string(h), nil
}

// fingerprint is the cache and map key for an API key, so raw keys are
// not retained beyond config.
func fingerprint(key string) string {
	sum := sha256.Sum256([]byte(key))
	return hex.EncodeToString(sum[:])
}
