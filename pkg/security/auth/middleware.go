package auth

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/igamenovoer/my-litellm-proxy/pkg/proxy/types"
)

// APIKeySource defines where to extract API keys from
type APIKeySource struct {
	Name   string // header name
	Scheme string // "Bearer", etc. (optional)
}

// DefaultSources are the headers OpenAI clients send keys in.
var DefaultSources = []APIKeySource{
	{Name: "Authorization", Scheme: "Bearer"},
	{Name: "X-API-Key"},
	{Name: "Api-Key"},
}

// Middleware is HTTP middleware for API key authentication
type Middleware struct {
	validator *Validator
	sources   []APIKeySource
	logger    *slog.Logger
}

// NewMiddleware creates the authentication middleware. A nil sources uses
// DefaultSources.
func NewMiddleware(validator *Validator, sources []APIKeySource, logger *slog.Logger) *Middleware {
	if sources == nil {
		sources = DefaultSources
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Middleware{
		validator: validator,
		sources:   sources,
		logger:    logger,
	}
}

// Handle wraps an HTTP handler with API key authentication. When no keys
// are configured every request passes as anonymous.
func (m *Middleware) Handle(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !m.validator.Enabled() {
			ctx := WithKeyInfo(r.Context(), &KeyInfo{Alias: SourceAnonymous, Source: SourceAnonymous})
			next.ServeHTTP(w, r.WithContext(ctx))
			return
		}

		info, err := m.validator.Validate(m.extractAPIKey(r))
		if err != nil {
			m.logger.WarnContext(r.Context(), "authentication failed",
				"error", err,
				"remote_addr", r.RemoteAddr,
				"path", r.URL.Path,
			)
			writeAuthError(w, err)
			return
		}

		m.logger.DebugContext(r.Context(), "API key authenticated",
			"key_alias", info.Alias,
			"source", info.Source,
			"path", r.URL.Path,
		)
		next.ServeHTTP(w, r.WithContext(WithKeyInfo(r.Context(), info)))
	})
}

// extractAPIKey returns the first key found in the configured sources.
func (m *Middleware) extractAPIKey(r *http.Request) string {
	for _, source := range m.sources {
		value := strings.TrimSpace(r.Header.Get(source.Name))
		if value == "" {
			continue
		}
		if source.Scheme == "" {
			return value
		}
		if token, ok := cutScheme(value, source.Scheme); ok {
			return token
		}
	}
	return ""
}

func cutScheme(value, scheme string) (string, bool) {
	if len(value) <= len(scheme) || !strings.EqualFold(value[:len(scheme)], scheme) || value[len(scheme)] != ' ' {
		return "", false
	}
	return strings.TrimSpace(value[len(scheme)+1:]), true
}

func writeAuthError(w http.ResponseWriter, err error) {
	code := "invalid_api_key"
	msg := "Invalid API key provided."
	if errors.Is(err, ErrMissingKey) {
		code = "missing_api_key"
		msg = "No API key provided. Pass it as 'Authorization: Bearer <key>'."
	} else if errors.Is(err, ErrKeyDisabled) {
		msg = "This API key has been disabled."
	}

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("WWW-Authenticate", `Bearer realm="llmproxy"`)
	w.WriteHeader(http.StatusUnauthorized)
	_ = json.NewEncoder(w).Encode(types.NewErrorResponse(msg, types.ErrorTypeAuthentication, "", code))
}

// Context key for key info
type contextKey string

// #nosec G101 - This is a context key constant, not a credential
const keyInfoKey contextKey = "key_info"

// WithKeyInfo returns a context carrying info.
func WithKeyInfo(ctx context.Context, info *KeyInfo) context.Context {
	return context.WithValue(ctx, keyInfoKey, info)
}

// GetKeyInfo retrieves key info from request context
func GetKeyInfo(ctx context.Context) (*KeyInfo, bool) {
	info, ok := ctx.Value(keyInfoKey).(*KeyInfo)
	return info, ok
}

// AuthorizeModel checks the caller in ctx may use model. It returns an
// error wrapping ErrModelNotAllowed when it may not.
func AuthorizeModel(ctx context.Context, model string) error {
	info, _ := GetKeyInfo(ctx)
	if info.AllowsModel(model) {
		return nil
	}
	return &ModelNotAllowedError{Alias: info.Alias, Model: model}
}

// ModelNotAllowedError names the key and model of a refused request.
type ModelNotAllowedError struct {
	Alias string
	Model string
}

// Error implements the error interface.
func (e *ModelNotAllowedError) Error() string {
	return "key " + e.Alias + " may not call model " + e.Model
}

// Is implements error matching for errors.Is().
func (e *ModelNotAllowedError) Is(target error) bool {
	return target == ErrModelNotAllowed
}
