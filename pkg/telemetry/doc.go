// Package telemetry groups the observability of the gateway.
//
// # Components
//
//   - logging: slog handlers with request-scoped fields and credential redaction
//   - metrics: Prometheus request, attempt and breaker metrics
//   - tracing: OpenTelemetry spans for requests and upstream attempts
//   - health: readiness checks and the version endpoint
//
// # Usage
//
//	logger, err := logging.New(cfg.Telemetry.Logging, logging.Options{})
//
//	collector := metrics.NewCollector(&cfg.Telemetry.Metrics, nil)
//	tracker := health.NewTracker(settings, health.WithStateListener(collector.StateChanged))
//
//	tracer, err := tracing.New(&cfg.Telemetry.Tracing, version)
//	defer tracer.Shutdown(ctx)
//
// # Redaction
//
// Attributes named like credentials (api_key, authorization, master_key and
// similar) are replaced with [REDACTED]. String values are scanned for
// key-shaped substrings such as sk- keys, bearer tokens, JWTs and passwords
// in database URLs.
package telemetry
