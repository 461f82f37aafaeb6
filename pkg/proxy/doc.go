// Package proxy holds the HTTP plumbing shared by the gateway handlers:
// request parsing and validation, the mapping from gateway errors to
// OpenAI-compatible error bodies, and the writers for upstream replies and
// Server-Sent Events.
//
// Request bodies are decoded twice. The typed view (types.ChatCompletionRequest
// or types.CompletionRequest) is validated with go-playground/validator, and
// the raw top-level object is kept so every field the client sent reaches the
// upstream unchanged:
//
//	req, err := proxy.ParseRequest(r, providers.OpChatCompletions, 0)
//	if err != nil {
//	    status, resp := proxy.HandleError(err)
//	    proxy.WriteErrorResponse(w, status, resp)
//	    return
//	}
//
// # Status codes
//
//	400  malformed or invalid body
//	403  model not allowed for the calling key
//	404  model name not configured
//	499  client went away (logged only)
//	502  every attempted deployment failed
//	503  no deployment eligible
//	504  overall deadline exceeded
//
// Non-retryable upstream errors keep their upstream status and body; see
// WriteUpstreamError.
package proxy
