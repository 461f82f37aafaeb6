package proxy

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/igamenovoer/my-litellm-proxy/pkg/dispatch"
	"github.com/igamenovoer/my-litellm-proxy/pkg/proxy/types"
	"github.com/igamenovoer/my-litellm-proxy/pkg/registry"
	"github.com/igamenovoer/my-litellm-proxy/pkg/routing"
	"github.com/igamenovoer/my-litellm-proxy/pkg/security/auth"
)

// StatusClientClosedRequest is logged when the client went away before a
// response was written.
const StatusClientClosedRequest = 499

// HandleError converts gateway errors to an HTTP status and an
// OpenAI-compatible error body. Upstream passthrough errors
// (*dispatch.NonRetryableError) are not handled here; write them with
// WriteUpstreamError so the original body reaches the client.
//
// Example usage:
//
//	if err != nil {
//	    status, errResp := HandleError(err)
//	    WriteErrorResponse(w, status, errResp)
//	    return
//	}
func HandleError(err error) (int, *types.ErrorResponse) {
	var reqErr *RequestError
	if errors.As(err, &reqErr) {
		return http.StatusBadRequest, reqErr.ToErrorResponse()
	}

	var unknown *registry.UnknownModelError
	switch {
	case errors.As(err, &unknown):
		return http.StatusNotFound, types.NewNotFoundError(
			fmt.Sprintf("The model `%s` does not exist or is not configured.", unknown.Model),
			"model",
			types.CodeModelNotFound,
		)

	case errors.Is(err, registry.ErrUnknownModel):
		return http.StatusNotFound, types.NewNotFoundError(err.Error(), "model", types.CodeModelNotFound)

	case errors.Is(err, auth.ErrModelNotAllowed):
		return http.StatusForbidden, types.NewPermissionDeniedError(err.Error(), types.CodeModelNotAllowed)

	case errors.Is(err, routing.ErrNoEligibleDeployment):
		return http.StatusServiceUnavailable, types.NewServiceUnavailableError(
			"No deployment is currently available for this model. " + err.Error(),
		)

	case errors.Is(err, dispatch.ErrExhausted):
		var ex *dispatch.ExhaustedError
		if errors.As(err, &ex) && ex.Upstream() == 0 {
			// every candidate was refused admission
			return http.StatusServiceUnavailable, types.NewServiceUnavailableError(err.Error())
		}
		return http.StatusBadGateway, types.NewErrorResponse(
			err.Error(),
			types.ErrorTypeBadGateway,
			"",
			types.CodeAllDeploymentsFailed,
		)

	case errors.Is(err, context.Canceled):
		return StatusClientClosedRequest, types.NewErrorResponse(
			"Request cancelled by client.",
			types.ErrorTypeInvalidRequest,
			"",
			types.CodeRequestCancelled,
		)

	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout, types.NewGatewayTimeoutError("Request timed out.")
	}

	return http.StatusInternalServerError, types.NewServerError(
		"An internal error occurred. Please try again later.",
	)
}
