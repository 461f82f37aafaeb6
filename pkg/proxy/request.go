package proxy

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"reflect"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/igamenovoer/my-litellm-proxy/pkg/providers"
	"github.com/igamenovoer/my-litellm-proxy/pkg/proxy/types"
)

// DefaultMaxBodyBytes is used when no body limit is configured (10MB).
const DefaultMaxBodyBytes = 10 * 1024 * 1024

// modelNamePattern is the accepted syntax for requested model names.
var modelNamePattern = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9._:/@-]{0,255}$`)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	_ = v.RegisterValidation("model_name", func(fl validator.FieldLevel) bool {
		return modelNamePattern.MatchString(fl.Field().String())
	})
	return v
}

// Request is a parsed inbound completion request.
type Request struct {
	// Model is the requested model name.
	Model string

	// Stream reports whether the client asked for SSE.
	Stream bool

	// Body is the full top-level JSON object, kept raw for passthrough.
	Body map[string]json.RawMessage
}

// ParseRequest reads and validates the body of a chat completion or text
// completion request. The body is limited to maxBytes; a non-positive
// limit means DefaultMaxBodyBytes. Validation failures are *RequestError.
func ParseRequest(r *http.Request, op providers.Operation, maxBytes int64) (*Request, error) {
	if maxBytes <= 0 {
		maxBytes = DefaultMaxBodyBytes
	}

	body, err := io.ReadAll(io.LimitReader(r.Body, maxBytes+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read request body: %w", err)
	}
	if int64(len(body)) > maxBytes {
		return nil, &RequestError{
			Message: fmt.Sprintf("request body exceeds maximum size of %d bytes", maxBytes),
			Code:    types.CodeRequestTooLarge,
			Param:   "body",
		}
	}
	if len(bytes.TrimSpace(body)) == 0 {
		return nil, &RequestError{
			Message: "request body is empty",
			Code:    types.CodeMissingField,
			Param:   "body",
		}
	}

	var raw map[string]json.RawMessage
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, &RequestError{
			Message: fmt.Sprintf("invalid JSON: %v", err),
			Code:    types.CodeInvalidJSON,
			Param:   "body",
		}
	}

	var (
		target any
		model  *string
		stream *bool
	)
	switch op {
	case providers.OpCompletions:
		req := &types.CompletionRequest{}
		target, model, stream = req, &req.Model, &req.Stream
	default:
		req := &types.ChatCompletionRequest{}
		target, model, stream = req, &req.Model, &req.Stream
	}

	if err := json.Unmarshal(body, target); err != nil {
		return nil, typeError(err)
	}
	if err := validate.Struct(target); err != nil {
		return nil, validationError(err)
	}

	return &Request{Model: *model, Stream: *stream, Body: raw}, nil
}

// typeError reports a field of the wrong JSON type.
func typeError(err error) error {
	var ute *json.UnmarshalTypeError
	if errors.As(err, &ute) {
		return &RequestError{
			Message: fmt.Sprintf("'%s' must be of type %s", ute.Field, ute.Type),
			Code:    types.CodeInvalidValue,
			Param:   ute.Field,
		}
	}
	return &RequestError{
		Message: fmt.Sprintf("invalid JSON: %v", err),
		Code:    types.CodeInvalidJSON,
		Param:   "body",
	}
}

// validationError reports the first failed rule.
func validationError(err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return fmt.Errorf("validating request: %w", err)
	}

	fe := verrs[0]
	switch fe.Tag() {
	case "required", "min":
		return &RequestError{
			Message: fmt.Sprintf("'%s' is a required property", fe.Field()),
			Code:    types.CodeMissingField,
			Param:   fe.Field(),
		}
	case "model_name":
		return &RequestError{
			Message: fmt.Sprintf("'%v' is not a valid model name", fe.Value()),
			Code:    types.CodeInvalidValue,
			Param:   fe.Field(),
		}
	default:
		return &RequestError{
			Message: fmt.Sprintf("'%s' failed %q validation", fe.Field(), fe.Tag()),
			Code:    types.CodeInvalidValue,
			Param:   fe.Field(),
		}
	}
}

// RequestError represents a request parsing or validation error.
type RequestError struct {
	Message string
	Code    string
	Param   string
}

// Error implements the error interface.
func (e *RequestError) Error() string {
	return e.Message
}

// ToErrorResponse converts a RequestError to an OpenAI-compatible error response.
func (e *RequestError) ToErrorResponse() *types.ErrorResponse {
	return types.NewInvalidRequestError(e.Message, e.Param, e.Code)
}
