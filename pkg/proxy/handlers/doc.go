// Package handlers provides the HTTP handlers of the gateway.
//
// CompletionsHandler serves both /v1/chat/completions and /v1/completions.
// Each request is parsed and validated, checked against the caller's key,
// resolved to a model group, routed to an ordered list of candidate
// deployments and handed to the dispatcher. Successful upstream replies are
// relayed byte for byte; non-retryable upstream errors are passed through
// with their original status.
//
// Streaming requests are committed only once an upstream produced its first
// event. After that point the status is 200 and a failure is reported as a
// final error frame, without the [DONE] terminator:
//
//	data: {"id":"chatcmpl-1","object":"chat.completion.chunk","choices":[...]}
//	data: {"error":{"message":"upstream stream interrupted","type":"bad_gateway"}}
//
// HealthHandler is a liveness probe. DeploymentsHandler reports breaker
// state and recent statistics per deployment, and ModelsHandler lists the
// model names visible to the caller.
package handlers
