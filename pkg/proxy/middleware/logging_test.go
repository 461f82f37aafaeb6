package middleware

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestLoggingMiddleware(t *testing.T) {
	tests := []struct {
		name      string
		handler   http.HandlerFunc
		cancel    bool
		wantLevel string
		wantCode  float64
	}{
		{
			name:      "success",
			handler:   func(w http.ResponseWriter, r *http.Request) { _, _ = w.Write([]byte("ok")) },
			wantLevel: "INFO",
			wantCode:  200,
		},
		{
			name:      "client error",
			handler:   func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusNotFound) },
			wantLevel: "WARN",
			wantCode:  404,
		},
		{
			name:      "server error",
			handler:   func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusBadGateway) },
			wantLevel: "ERROR",
			wantCode:  502,
		},
		{
			name:      "client went away",
			handler:   func(w http.ResponseWriter, r *http.Request) {},
			cancel:    true,
			wantLevel: "WARN",
			wantCode:  499,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			logger := slog.New(slog.NewJSONHandler(&buf, nil))
			wrapped := RequestIDMiddleware(LoggingMiddleware(logger)(tt.handler))

			req := httptest.NewRequest(http.MethodGet, "/v1/models", nil)
			if tt.cancel {
				ctx, cancel := context.WithCancel(req.Context())
				cancel()
				req = req.WithContext(ctx)
			}
			wrapped.ServeHTTP(httptest.NewRecorder(), req)

			var entry map[string]any
			if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
				t.Fatalf("log line: %v (%s)", err, buf.String())
			}
			if entry["level"] != tt.wantLevel {
				t.Errorf("level = %v, want %s", entry["level"], tt.wantLevel)
			}
			if entry["status"] != tt.wantCode {
				t.Errorf("status = %v, want %v", entry["status"], tt.wantCode)
			}
			if entry["request_id"] == "" {
				t.Error("request_id missing")
			}
		})
	}
}

func TestResponseWriter_Flush(t *testing.T) {
	rec := httptest.NewRecorder()
	rw := newResponseWriter(rec)

	var f http.Flusher = rw
	f.Flush()

	if !rec.Flushed {
		t.Error("Flush was not forwarded")
	}
	if rw.statusCode != http.StatusOK || !rw.written {
		t.Error("Flush should commit a 200 status")
	}
	if http.NewResponseController(rw).Flush() != nil {
		t.Error("ResponseController could not flush through the wrapper")
	}
}
