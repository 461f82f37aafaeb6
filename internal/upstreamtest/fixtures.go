package upstreamtest

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// ChatCompletion returns an OpenAI chat completion body.
func ChatCompletion(content, model string) map[string]any {
	return map[string]any{
		"id":      "chatcmpl-123",
		"object":  "chat.completion",
		"created": time.Now().Unix(),
		"model":   model,
		"choices": []map[string]any{
			{
				"index": 0,
				"message": map[string]any{
					"role":    "assistant",
					"content": content,
				},
				"finish_reason": "stop",
			},
		},
		"usage": map[string]any{
			"prompt_tokens":     10,
			"completion_tokens": 20,
			"total_tokens":      30,
		},
	}
}

// TextCompletion returns an OpenAI legacy completion body.
func TextCompletion(text, model string) map[string]any {
	return map[string]any{
		"id":      "cmpl-123",
		"object":  "text_completion",
		"created": time.Now().Unix(),
		"model":   model,
		"choices": []map[string]any{
			{"index": 0, "text": text, "finish_reason": "stop"},
		},
	}
}

// StreamChunk returns one chat.completion.chunk event.
func StreamChunk(delta, finishReason string) string {
	choice := map[string]any{
		"index": 0,
		"delta": map[string]any{"content": delta},
	}
	if finishReason != "" {
		choice["finish_reason"] = finishReason
	} else {
		choice["finish_reason"] = nil
	}
	b, _ := json.Marshal(map[string]any{
		"id":      "chatcmpl-123",
		"object":  "chat.completion.chunk",
		"created": time.Now().Unix(),
		"model":   "gpt-4",
		"choices": []map[string]any{choice},
	})
	return string(b)
}

// StreamChunks splits words into a sequence of chunks, the last carrying
// finish_reason "stop".
func StreamChunks(words ...string) []string {
	out := make([]string, 0, len(words))
	for i, w := range words {
		finish := ""
		if i == len(words)-1 {
			finish = "stop"
		}
		out = append(out, StreamChunk(w, finish))
	}
	return out
}

// ErrorResponse returns an OpenAI-style error reply.
func ErrorResponse(statusCode int, message string) Response {
	return Response{
		StatusCode: statusCode,
		Body: map[string]any{
			"error": map[string]any{
				"message": message,
				"type":    "invalid_request_error",
				"code":    statusCode,
			},
		},
	}
}

// RateLimited returns a 429 reply with Retry-After.
func RateLimited(retryAfter int) Response {
	resp := ErrorResponse(http.StatusTooManyRequests, "Rate limit exceeded")
	resp.Headers = map[string]string{"Retry-After": fmt.Sprintf("%d", retryAfter)}
	return resp
}

// ServerError returns a 500 reply.
func ServerError() Response {
	return ErrorResponse(http.StatusInternalServerError, "Internal server error")
}

// OK returns a 200 chat completion reply.
func OK(content, model string) Response {
	return Response{StatusCode: http.StatusOK, Body: ChatCompletion(content, model)}
}
