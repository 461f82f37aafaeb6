package proxy

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	"github.com/igamenovoer/my-litellm-proxy/pkg/dispatch"
	"github.com/igamenovoer/my-litellm-proxy/pkg/proxy/types"
)

// passthroughHeaders are upstream response headers forwarded to clients.
// Hop-by-hop and length headers are left to net/http.
var passthroughHeaders = []string{
	"Content-Type",
	"Retry-After",
	"Openai-Organization",
	"Openai-Processing-Ms",
	"Openai-Version",
	"X-Ratelimit-Limit-Requests",
	"X-Ratelimit-Limit-Tokens",
	"X-Ratelimit-Remaining-Requests",
	"X-Ratelimit-Remaining-Tokens",
	"X-Ratelimit-Reset-Requests",
	"X-Ratelimit-Reset-Tokens",
}

// DeploymentHeader names the deployment that served a request.
const DeploymentHeader = "X-LLMProxy-Deployment"

// AttemptsHeader is the number of upstream attempts made for a request.
const AttemptsHeader = "X-LLMProxy-Attempts"

// WriteJSONResponse writes a JSON response to the HTTP response writer.
// It sets the appropriate content-type header and handles marshaling errors.
func WriteJSONResponse(w http.ResponseWriter, statusCode int, data interface{}) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		return fmt.Errorf("failed to encode JSON response: %w", err)
	}

	return nil
}

// WriteErrorResponse writes an OpenAI-compatible error response.
func WriteErrorResponse(w http.ResponseWriter, statusCode int, errResp *types.ErrorResponse) error {
	return WriteJSONResponse(w, statusCode, errResp)
}

// WriteUpstreamResponse writes a successful upstream reply unchanged.
func WriteUpstreamResponse(w http.ResponseWriter, resp *dispatch.Response, attempts int) error {
	copyHeaders(w.Header(), resp.Header)
	if w.Header().Get("Content-Type") == "" {
		w.Header().Set("Content-Type", "application/json")
	}
	w.Header().Set(DeploymentHeader, resp.Deployment.ID)
	w.Header().Set(AttemptsHeader, strconv.Itoa(attempts))
	w.WriteHeader(resp.StatusCode)

	if _, err := w.Write(resp.Body); err != nil {
		return fmt.Errorf("failed to write response: %w", err)
	}
	return nil
}

// WriteUpstreamError passes a non-retryable upstream error through with its
// original status and body. A body that is not JSON is wrapped in an
// OpenAI error object.
func WriteUpstreamError(w http.ResponseWriter, nre *dispatch.NonRetryableError) error {
	body := nre.Body()
	if !json.Valid(body) {
		return WriteErrorResponse(w, nre.StatusCode(), types.NewInvalidRequestError(
			fmt.Sprintf("upstream returned status %d: %s", nre.StatusCode(), body),
			"",
			types.CodeProviderError,
		))
	}

	copyHeaders(w.Header(), nre.Header())
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(nre.StatusCode())
	if _, err := w.Write(body); err != nil {
		return fmt.Errorf("failed to write upstream error: %w", err)
	}
	return nil
}

func copyHeaders(dst, src http.Header) {
	for _, h := range passthroughHeaders {
		if v := src.Get(h); v != "" {
			dst.Set(h, v)
		}
	}
}

// WriteSSEData writes one raw JSON event in Server-Sent Events format:
//
//	data: {"id":"chatcmpl-123","object":"chat.completion.chunk",...}
//
// Followed by two newlines (\n\n).
func WriteSSEData(w http.ResponseWriter, data []byte) error {
	if _, err := fmt.Fprintf(w, "data: %s\n\n", data); err != nil {
		return fmt.Errorf("failed to write SSE chunk: %w", err)
	}

	// Flush immediately for real-time streaming
	if flusher, ok := w.(http.Flusher); ok {
		flusher.Flush()
	}

	return nil
}

// WriteSSEDone writes the final "[DONE]" marker for SSE streams.
// This signals to the client that the stream has completed.
func WriteSSEDone(w http.ResponseWriter) error {
	return WriteSSEData(w, []byte("[DONE]"))
}

// WriteSSEError writes an error in SSE format.
// This allows errors to be sent mid-stream if something goes wrong.
func WriteSSEError(w http.ResponseWriter, errResp *types.ErrorResponse) error {
	data, err := json.Marshal(errResp)
	if err != nil {
		return fmt.Errorf("failed to marshal SSE error: %w", err)
	}
	return WriteSSEData(w, data)
}

// SetSSEHeaders sets the appropriate headers for Server-Sent Events streaming.
func SetSSEHeaders(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
}
