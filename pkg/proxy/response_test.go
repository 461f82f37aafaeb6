package proxy

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/igamenovoer/my-litellm-proxy/pkg/dispatch"
	"github.com/igamenovoer/my-litellm-proxy/pkg/providers"
	"github.com/igamenovoer/my-litellm-proxy/pkg/proxy/types"
	"github.com/igamenovoer/my-litellm-proxy/pkg/registry"
)

func TestWriteJSONResponse(t *testing.T) {
	rec := httptest.NewRecorder()
	if err := WriteJSONResponse(rec, http.StatusCreated, map[string]string{"status": "ok"}); err != nil {
		t.Fatalf("WriteJSONResponse() error = %v", err)
	}

	if rec.Code != http.StatusCreated {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusCreated)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("Content-Type = %q", ct)
	}
	var got map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil || got["status"] != "ok" {
		t.Errorf("body = %s", rec.Body.String())
	}
}

func TestWriteUpstreamResponse(t *testing.T) {
	upstream := http.Header{}
	upstream.Set("Content-Type", "application/json; charset=utf-8")
	upstream.Set("X-Ratelimit-Remaining-Requests", "99")
	upstream.Set("Set-Cookie", "session=secret")

	resp := &dispatch.Response{
		Response: &providers.Response{
			StatusCode: http.StatusOK,
			Header:     upstream,
			Body:       []byte(`{"id":"chatcmpl-1","choices":[]}`),
		},
		Deployment: &registry.Deployment{ID: "azure-east"},
	}

	rec := httptest.NewRecorder()
	if err := WriteUpstreamResponse(rec, resp, 2); err != nil {
		t.Fatalf("WriteUpstreamResponse() error = %v", err)
	}

	if rec.Body.String() != `{"id":"chatcmpl-1","choices":[]}` {
		t.Errorf("body altered: %s", rec.Body.String())
	}
	tests := map[string]string{
		"Content-Type":                   "application/json; charset=utf-8",
		"X-Ratelimit-Remaining-Requests": "99",
		"Set-Cookie":                     "",
		DeploymentHeader:                 "azure-east",
		AttemptsHeader:                   "2",
	}
	for h, want := range tests {
		if got := rec.Header().Get(h); got != want {
			t.Errorf("%s = %q, want %q", h, got, want)
		}
	}
}

func TestWriteUpstreamError(t *testing.T) {
	tests := []struct {
		name     string
		body     string
		wantBody func(t *testing.T, body []byte)
	}{
		{
			name: "json body passes through",
			body: `{"error":{"message":"maximum context length exceeded","type":"invalid_request_error"}}`,
			wantBody: func(t *testing.T, body []byte) {
				if string(body) != `{"error":{"message":"maximum context length exceeded","type":"invalid_request_error"}}` {
					t.Errorf("body altered: %s", body)
				}
			},
		},
		{
			name: "plain text body is wrapped",
			body: "bad request",
			wantBody: func(t *testing.T, body []byte) {
				var resp types.ErrorResponse
				if err := json.Unmarshal(body, &resp); err != nil {
					t.Fatalf("body is not JSON: %s", body)
				}
				if resp.Error.Code != types.CodeProviderError {
					t.Errorf("Code = %q", resp.Error.Code)
				}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			nre := &dispatch.NonRetryableError{Upstream: &providers.ProviderError{
				Deployment: "a",
				StatusCode: http.StatusBadRequest,
				Header:     http.Header{},
				Body:       []byte(tt.body),
			}}

			rec := httptest.NewRecorder()
			if err := WriteUpstreamError(rec, nre); err != nil {
				t.Fatalf("WriteUpstreamError() error = %v", err)
			}
			if rec.Code != http.StatusBadRequest {
				t.Errorf("status = %d, want 400", rec.Code)
			}
			tt.wantBody(t, rec.Body.Bytes())
		})
	}
}

func TestSSEWriters(t *testing.T) {
	rec := httptest.NewRecorder()
	SetSSEHeaders(rec)

	if err := WriteSSEData(rec, []byte(`{"id":"1"}`)); err != nil {
		t.Fatal(err)
	}
	if err := WriteSSEError(rec, types.NewBadGatewayError("upstream stream interrupted")); err != nil {
		t.Fatal(err)
	}
	if err := WriteSSEDone(rec); err != nil {
		t.Fatal(err)
	}

	want := "data: {\"id\":\"1\"}\n\n" +
		"data: {\"error\":{\"message\":\"upstream stream interrupted\",\"type\":\"bad_gateway\",\"code\":\"provider_error\"}}\n\n" +
		"data: [DONE]\n\n"
	if rec.Body.String() != want {
		t.Errorf("body =\n%q\nwant\n%q", rec.Body.String(), want)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "text/event-stream" {
		t.Errorf("Content-Type = %q", ct)
	}
	if !rec.Flushed {
		t.Error("SSE writes were not flushed")
	}
}
