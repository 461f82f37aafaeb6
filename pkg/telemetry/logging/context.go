package logging

import (
	"context"
	"log/slog"

	"go.opentelemetry.io/otel/trace"
)

// ContextField extracts one attribute from a request context. ok is false
// when the context does not carry it.
type ContextField func(ctx context.Context) (attr slog.Attr, ok bool)

// TraceFields adds trace_id and span_id of the active span.
func TraceFields(ctx context.Context) (slog.Attr, bool) {
	sc := trace.SpanContextFromContext(ctx)
	if !sc.IsValid() {
		return slog.Attr{}, false
	}
	return slog.Group("trace",
		slog.String("trace_id", sc.TraceID().String()),
		slog.String("span_id", sc.SpanID().String()),
	), true
}

// StringField builds a ContextField from a getter returning "" when unset.
func StringField(key string, get func(context.Context) string) ContextField {
	return func(ctx context.Context) (slog.Attr, bool) {
		v := get(ctx)
		if v == "" {
			return slog.Attr{}, false
		}
		return slog.String(key, v), true
	}
}

// contextHandler adds context fields to records logged with a context.
type contextHandler struct {
	slog.Handler
	fields []ContextField
}

func (h *contextHandler) Handle(ctx context.Context, rec slog.Record) error {
	if ctx != nil {
		for _, f := range h.fields {
			if a, ok := f(ctx); ok {
				rec.AddAttrs(a)
			}
		}
	}
	return h.Handler.Handle(ctx, rec)
}

func (h *contextHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &contextHandler{Handler: h.Handler.WithAttrs(attrs), fields: h.fields}
}

func (h *contextHandler) WithGroup(name string) slog.Handler {
	return &contextHandler{Handler: h.Handler.WithGroup(name), fields: h.fields}
}
