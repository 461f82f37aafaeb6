// Package types defines the OpenAI-compatible wire types of the gateway.
//
// Request types hold only the fields the gateway needs for validation and
// routing (model, messages or prompt, stream). The rest of the body is kept
// raw and forwarded as is, so new upstream parameters work without changes
// here. Successful upstream responses are passed through byte for byte and
// have no type in this package.
//
// Errors use the OpenAI shape:
//
//	{"error": {"message": "...", "type": "invalid_request_error", "param": "model", "code": "model_not_found"}}
package types
