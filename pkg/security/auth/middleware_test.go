package auth

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/igamenovoer/my-litellm-proxy/pkg/config"
	"github.com/igamenovoer/my-litellm-proxy/pkg/proxy/types"
)

func TestMiddleware_Handle(t *testing.T) {
	v := NewValidator(config.GeneralSettings{
		MasterKey: "sk-master",
		Keys:      []config.KeyConfig{{Key: "sk-team", Alias: "team"}},
	})
	mw := NewMiddleware(v, nil, nil)

	tests := []struct {
		name       string
		header     string
		value      string
		wantStatus int
		wantAlias  string
	}{
		{name: "bearer", header: "Authorization", value: "Bearer sk-team", wantStatus: http.StatusOK, wantAlias: "team"},
		{name: "lowercase scheme", header: "Authorization", value: "bearer sk-master", wantStatus: http.StatusOK, wantAlias: "master"},
		{name: "x-api-key", header: "x-api-key", value: "sk-team", wantStatus: http.StatusOK, wantAlias: "team"},
		{name: "missing", wantStatus: http.StatusUnauthorized},
		{name: "wrong scheme", header: "Authorization", value: "Basic sk-team", wantStatus: http.StatusUnauthorized},
		{name: "invalid", header: "Authorization", value: "Bearer sk-wrong", wantStatus: http.StatusUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var gotAlias string
			h := mw.Handle(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				info, ok := GetKeyInfo(r.Context())
				if !ok {
					t.Fatal("key info missing from context")
				}
				gotAlias = info.Alias
			}))

			req := httptest.NewRequest(http.MethodPost, "/v1/chat/completions", nil)
			if tt.header != "" {
				req.Header.Set(tt.header, tt.value)
			}
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)

			if rec.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d", rec.Code, tt.wantStatus)
			}
			if tt.wantStatus != http.StatusOK {
				var body types.ErrorResponse
				if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
					t.Fatalf("error body: %v", err)
				}
				if body.Error.Type != types.ErrorTypeAuthentication {
					t.Errorf("error type = %q", body.Error.Type)
				}
				return
			}
			if gotAlias != tt.wantAlias {
				t.Errorf("alias = %q, want %q", gotAlias, tt.wantAlias)
			}
		})
	}
}

func TestMiddleware_DisabledPassesAnonymous(t *testing.T) {
	mw := NewMiddleware(NewValidator(config.GeneralSettings{}), nil, nil)

	var info *KeyInfo
	h := mw.Handle(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		info, _ = GetKeyInfo(r.Context())
	}))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/models", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if info == nil || info.Source != SourceAnonymous {
		t.Fatalf("info = %+v, want anonymous", info)
	}
}

func TestAuthorizeModel(t *testing.T) {
	restricted := WithKeyInfo(context.Background(), &KeyInfo{Alias: "team", Models: []string{"gpt-4"}})

	if err := AuthorizeModel(restricted, "gpt-4"); err != nil {
		t.Errorf("allowed model refused: %v", err)
	}
	err := AuthorizeModel(restricted, "claude-3")
	if !errors.Is(err, ErrModelNotAllowed) {
		t.Errorf("AuthorizeModel() error = %v, want ErrModelNotAllowed", err)
	}
	if err := AuthorizeModel(context.Background(), "anything"); err != nil {
		t.Errorf("missing key info should not restrict: %v", err)
	}
}
