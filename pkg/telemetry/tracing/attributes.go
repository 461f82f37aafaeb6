package tracing

import (
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// Attribute keys. Gateway-specific keys live under "llmproxy.".
const (
	AttrRequestID  = "llmproxy.request_id"
	AttrModel      = "llmproxy.model"
	AttrModelGroup = "llmproxy.model_group"
	AttrDeployment = "llmproxy.deployment"
	AttrProvider   = "llmproxy.provider"
	AttrAttempt    = "llmproxy.attempt"
	AttrOutcome    = "llmproxy.outcome"
	AttrProbe      = "llmproxy.probe"
	AttrStream     = "llmproxy.stream"
	AttrKeyAlias   = "llmproxy.key_alias"

	AttrStatusCode   = "http.response.status_code"
	AttrErrorMessage = "error.message"
)

// SetRequestAttributes tags a request span.
func SetRequestAttributes(span trace.Span, requestID, model string, stream bool) {
	span.SetAttributes(
		attribute.String(AttrRequestID, requestID),
		attribute.String(AttrModel, model),
		attribute.Bool(AttrStream, stream),
	)
}

// KeyAliasAttribute identifies the client key by alias.
func KeyAliasAttribute(alias string) attribute.KeyValue {
	return attribute.String(AttrKeyAlias, alias)
}

// DeploymentAttributes returns the attributes identifying an attempt.
func DeploymentAttributes(deploymentID, providerKind, group string, attempt int) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.String(AttrDeployment, deploymentID),
		attribute.String(AttrProvider, providerKind),
		attribute.String(AttrModelGroup, group),
		attribute.Int(AttrAttempt, attempt),
	}
}

// SetOutcome records how an attempt ended.
func SetOutcome(span trace.Span, outcome string, statusCode int) {
	span.SetAttributes(attribute.String(AttrOutcome, outcome))
	if statusCode > 0 {
		span.SetAttributes(attribute.Int(AttrStatusCode, statusCode))
	}
}
