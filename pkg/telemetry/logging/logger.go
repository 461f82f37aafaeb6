package logging

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/igamenovoer/my-litellm-proxy/pkg/config"
)

// LogFormat represents the output format for logs.
type LogFormat string

const (
	// FormatJSON outputs logs in JSON format.
	FormatJSON LogFormat = "json"
	// FormatText outputs logs in logfmt-style text.
	FormatText LogFormat = "text"
)

// Options tune New beyond what the config file controls.
type Options struct {
	// Writer defaults to os.Stderr.
	Writer io.Writer

	// Debug forces the debug level.
	Debug bool

	// Fields are attributes taken from each record's context.
	Fields []ContextField

	// RedactPatterns are extra regular expressions to mask.
	RedactPatterns []string
}

// New builds the process logger: an slog JSON or text handler with secret
// redaction, enriched with context fields.
func New(cfg config.LoggingConfig, opts Options) (*slog.Logger, error) {
	level, err := ParseLevel(cfg.Level)
	if err != nil {
		return nil, err
	}
	if opts.Debug {
		level = slog.LevelDebug
	}

	format, err := parseFormat(cfg.Format)
	if err != nil {
		return nil, err
	}

	w := opts.Writer
	if w == nil {
		w = os.Stderr
	}

	redactor, invalid := NewRedactor(opts.RedactPatterns...)
	if len(invalid) > 0 {
		return nil, fmt.Errorf("invalid redact pattern(s): %s", strings.Join(invalid, ", "))
	}

	hopts := &slog.HandlerOptions{
		Level:       level,
		AddSource:   cfg.AddSource,
		ReplaceAttr: redactor.ReplaceAttr,
	}

	var handler slog.Handler
	switch format {
	case FormatText:
		handler = slog.NewTextHandler(w, hopts)
	default:
		handler = slog.NewJSONHandler(w, hopts)
	}

	fields := append([]ContextField{TraceFields}, opts.Fields...)
	return slog.New(&contextHandler{Handler: handler, fields: fields}), nil
}

// ParseLevel parses a log level name.
func ParseLevel(levelStr string) (slog.Level, error) {
	switch strings.ToLower(levelStr) {
	case "debug":
		return slog.LevelDebug, nil
	case "info", "":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("unknown log level: %s", levelStr)
	}
}

func parseFormat(formatStr string) (LogFormat, error) {
	switch strings.ToLower(formatStr) {
	case "json", "":
		return FormatJSON, nil
	case "text":
		return FormatText, nil
	default:
		return FormatJSON, fmt.Errorf("unknown log format: %s", formatStr)
	}
}
