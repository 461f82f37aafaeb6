package types

import "encoding/json"

// ChatCompletionRequest holds the fields of a chat completion request the
// gateway inspects. Every other field is forwarded untouched from the raw
// body.
type ChatCompletionRequest struct {
	// Model is the model group or alias to route to.
	Model string `json:"model" validate:"required,model_name"`

	// Messages is the conversation history. Its contents are not
	// interpreted by the gateway.
	Messages []json.RawMessage `json:"messages" validate:"required,min=1"`

	// Stream enables server-sent events (SSE) streaming.
	Stream bool `json:"stream,omitempty"`
}

// CompletionRequest holds the inspected fields of a legacy text completion
// request.
type CompletionRequest struct {
	// Model is the model group or alias to route to.
	Model string `json:"model" validate:"required,model_name"`

	// Prompt is a string, an array of strings or an array of token arrays.
	Prompt json.RawMessage `json:"prompt" validate:"required"`

	// Stream enables server-sent events (SSE) streaming.
	Stream bool `json:"stream,omitempty"`
}
