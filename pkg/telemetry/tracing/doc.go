// Package tracing configures OpenTelemetry tracing for the gateway.
//
// Every inbound request gets a server span (Middleware). The dispatcher
// opens one child span per upstream attempt tagged with the deployment,
// attempt number and outcome, and providers inject the trace context into
// upstream requests so traces continue into OpenAI-compatible backends
// that honour traceparent.
//
// Spans are exported over OTLP gRPC when telemetry.tracing.enabled is set;
// otherwise a noop tracer is used and instrumentation costs almost nothing.
package tracing
