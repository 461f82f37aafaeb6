package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"
	"testing"

	"go.opentelemetry.io/otel/trace"

	"github.com/igamenovoer/my-litellm-proxy/pkg/config"
)

func decode(t *testing.T, buf *bytes.Buffer) map[string]any {
	t.Helper()
	var m map[string]any
	if err := json.Unmarshal(buf.Bytes(), &m); err != nil {
		t.Fatalf("log line is not JSON: %q", buf.String())
	}
	return m
}

func TestNew_Levels(t *testing.T) {
	tests := []struct {
		level     string
		debug     bool
		wantDebug bool
		wantInfo  bool
	}{
		{level: "debug", wantDebug: true, wantInfo: true},
		{level: "", wantInfo: true},
		{level: "warn"},
		{level: "error", debug: true, wantDebug: true, wantInfo: true},
	}

	for _, tt := range tests {
		t.Run(tt.level, func(t *testing.T) {
			logger, err := New(config.LoggingConfig{Level: tt.level}, Options{Writer: &bytes.Buffer{}, Debug: tt.debug})
			if err != nil {
				t.Fatalf("New() error = %v", err)
			}
			ctx := context.Background()
			if got := logger.Enabled(ctx, slog.LevelDebug); got != tt.wantDebug {
				t.Errorf("debug enabled = %v, want %v", got, tt.wantDebug)
			}
			if got := logger.Enabled(ctx, slog.LevelInfo); got != tt.wantInfo {
				t.Errorf("info enabled = %v, want %v", got, tt.wantInfo)
			}
		})
	}
}

func TestNew_InvalidConfig(t *testing.T) {
	if _, err := New(config.LoggingConfig{Level: "loud"}, Options{}); err == nil {
		t.Error("expected error for unknown level")
	}
	if _, err := New(config.LoggingConfig{Format: "xml"}, Options{}); err == nil {
		t.Error("expected error for unknown format")
	}
	if _, err := New(config.LoggingConfig{}, Options{RedactPatterns: []string{"("}}); err == nil {
		t.Error("expected error for invalid redact pattern")
	}
}

func TestNew_TextFormat(t *testing.T) {
	var buf bytes.Buffer
	logger, err := New(config.LoggingConfig{Format: "text"}, Options{Writer: &buf})
	if err != nil {
		t.Fatal(err)
	}
	logger.Info("hello", "deployment", "a")
	if !strings.Contains(buf.String(), "msg=hello deployment=a") {
		t.Errorf("unexpected text output: %q", buf.String())
	}
}

type ctxKey struct{}

func TestNew_ContextFields(t *testing.T) {
	var buf bytes.Buffer
	logger, err := New(config.LoggingConfig{}, Options{
		Writer: &buf,
		Fields: []ContextField{StringField("request_id", func(ctx context.Context) string {
			v, _ := ctx.Value(ctxKey{}).(string)
			return v
		})},
	})
	if err != nil {
		t.Fatal(err)
	}

	traceID, _ := trace.TraceIDFromHex("4bf92f3577b34da6a3ce929d0e0e4736")
	spanID, _ := trace.SpanIDFromHex("00f067aa0ba902b7")
	ctx := trace.ContextWithSpanContext(context.WithValue(context.Background(), ctxKey{}, "req-1"),
		trace.NewSpanContext(trace.SpanContextConfig{TraceID: traceID, SpanID: spanID}))

	logger.With("component", "test").InfoContext(ctx, "dispatching")

	m := decode(t, &buf)
	if m["request_id"] != "req-1" {
		t.Errorf("request_id = %v", m["request_id"])
	}
	tr, ok := m["trace"].(map[string]any)
	if !ok || tr["trace_id"] != "4bf92f3577b34da6a3ce929d0e0e4736" {
		t.Errorf("trace = %v", m["trace"])
	}
	if m["component"] != "test" {
		t.Errorf("component = %v", m["component"])
	}

	buf.Reset()
	logger.Info("no context")
	if strings.Contains(buf.String(), "request_id") {
		t.Errorf("unexpected request_id without context: %s", buf.String())
	}
}

func TestNew_Redacts(t *testing.T) {
	var buf bytes.Buffer
	logger, err := New(config.LoggingConfig{}, Options{Writer: &buf})
	if err != nil {
		t.Fatal(err)
	}

	logger.Info("auth",
		"api_key", "whatever",
		"Authorization", "Bearer abc",
		"key_alias", "team-a",
		"note", "client sent sk-abcdef1234567890 in body",
		"error", errors.New("dial postgres://audit:hunter2@db:5432/logs failed"),
	)

	m := decode(t, &buf)
	if m["api_key"] != Redacted || m["Authorization"] != Redacted {
		t.Errorf("sensitive keys not redacted: %v", m)
	}
	if m["key_alias"] != "team-a" {
		t.Errorf("key_alias must stay readable, got %v", m["key_alias"])
	}
	if strings.Contains(buf.String(), "sk-abcdef1234567890") || strings.Contains(buf.String(), "hunter2") {
		t.Errorf("secret leaked: %s", buf.String())
	}
	if m["error"] != "dial postgres://"+Redacted+"@db:5432/logs failed" {
		t.Errorf("error = %v", m["error"])
	}
}
