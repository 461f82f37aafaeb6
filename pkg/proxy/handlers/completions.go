package handlers

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"go.opentelemetry.io/otel/trace"

	"github.com/igamenovoer/my-litellm-proxy/pkg/dispatch"
	"github.com/igamenovoer/my-litellm-proxy/pkg/providers"
	"github.com/igamenovoer/my-litellm-proxy/pkg/proxy"
	"github.com/igamenovoer/my-litellm-proxy/pkg/proxy/middleware"
	"github.com/igamenovoer/my-litellm-proxy/pkg/proxy/types"
	"github.com/igamenovoer/my-litellm-proxy/pkg/registry"
	"github.com/igamenovoer/my-litellm-proxy/pkg/security/auth"
	"github.com/igamenovoer/my-litellm-proxy/pkg/telemetry/tracing"
)

// CompletionsHandler serves /v1/chat/completions and /v1/completions:
// validate, authorize the model, resolve the group, select candidates,
// dispatch, then write the upstream reply or the mapped error.
type CompletionsHandler struct {
	Operation    providers.Operation
	Models       ModelResolver
	Router       CandidateSelector
	Dispatcher   Dispatcher
	MaxBodyBytes int64
	Observers    []RequestObserver
	Logger       *slog.Logger
}

// NewChatHandler creates the chat completions handler.
func NewChatHandler(models ModelResolver, router CandidateSelector, d Dispatcher, maxBody int64, logger *slog.Logger, observers ...RequestObserver) *CompletionsHandler {
	return newCompletionsHandler(providers.OpChatCompletions, models, router, d, maxBody, logger, observers)
}

// NewCompletionHandler creates the legacy text completions handler.
func NewCompletionHandler(models ModelResolver, router CandidateSelector, d Dispatcher, maxBody int64, logger *slog.Logger, observers ...RequestObserver) *CompletionsHandler {
	return newCompletionsHandler(providers.OpCompletions, models, router, d, maxBody, logger, observers)
}

func newCompletionsHandler(op providers.Operation, models ModelResolver, router CandidateSelector, d Dispatcher, maxBody int64, logger *slog.Logger, observers []RequestObserver) *CompletionsHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &CompletionsHandler{
		Operation:    op,
		Models:       models,
		Router:       router,
		Dispatcher:   d,
		MaxBodyBytes: maxBody,
		Observers:    observers,
		Logger:       logger,
	}
}

// ServeHTTP implements http.Handler.
func (h *CompletionsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := middleware.GetRequestID(ctx)

	req, err := proxy.ParseRequest(r, h.Operation, h.MaxBodyBytes)
	if err != nil {
		h.Logger.WarnContext(ctx, "rejected invalid request",
			"request_id", requestID,
			"error", err,
		)
		h.fail(ctx, w, nil, err)
		return
	}

	span := trace.SpanFromContext(ctx)
	tracing.SetRequestAttributes(span, requestID, req.Model, req.Stream)

	if err := auth.AuthorizeModel(ctx, req.Model); err != nil {
		h.Logger.WarnContext(ctx, "model refused for key",
			"request_id", requestID,
			"model", req.Model,
			"error", err,
		)
		h.fail(ctx, w, nil, err)
		return
	}

	group, err := h.Models.Resolve(req.Model)
	if err != nil {
		h.fail(ctx, w, nil, err)
		return
	}

	rc := &dispatch.RequestContext{
		ID:        requestID,
		Model:     req.Model,
		Group:     group,
		Operation: h.Operation,
		Body:      req.Body,
		Stream:    req.Stream,
		Started:   startTime(ctx),
	}
	if info, ok := auth.GetKeyInfo(ctx); ok {
		rc.KeyAlias = info.Alias
		span.SetAttributes(tracing.KeyAliasAttribute(info.Alias))
	}

	candidates, err := h.Router.Select(group)
	if err != nil {
		h.Logger.WarnContext(ctx, "no eligible deployment",
			"request_id", requestID,
			"model", req.Model,
			"error", err,
		)
		h.fail(ctx, w, rc, err)
		return
	}

	h.Logger.DebugContext(ctx, "dispatching request",
		"request_id", requestID,
		"model", req.Model,
		"group", group.Name,
		"candidates", len(candidates),
		"stream", req.Stream,
	)

	if req.Stream {
		h.serveStream(ctx, w, rc, candidates)
		return
	}

	resp, err := h.Dispatcher.Dispatch(ctx, rc, candidates)
	if err != nil {
		h.fail(ctx, w, rc, err)
		return
	}

	if err := proxy.WriteUpstreamResponse(w, resp, rc.UpstreamAttempts()); err != nil {
		h.Logger.ErrorContext(ctx, "failed to write response",
			"request_id", requestID,
			"error", err,
		)
	}
	h.Logger.InfoContext(ctx, "completion served",
		"request_id", requestID,
		"model", req.Model,
		"deployment", resp.Deployment.ID,
		"attempts", rc.UpstreamAttempts(),
		"total_latency_ms", time.Since(rc.Started).Milliseconds(),
	)
	h.observe(ctx, rc, resp.StatusCode, nil)
}

// serveStream relays a committed upstream stream as SSE. Errors before the
// first event are ordinary JSON errors; once the stream is committed a
// failure is sent as an error frame and the response ends without [DONE].
func (h *CompletionsHandler) serveStream(ctx context.Context, w http.ResponseWriter, rc *dispatch.RequestContext, candidates []*registry.Deployment) {
	stream, err := h.Dispatcher.DispatchStream(ctx, rc, candidates)
	if err != nil {
		h.fail(ctx, w, rc, err)
		return
	}
	defer stream.Close()

	proxy.SetSSEHeaders(w)
	w.Header().Set(proxy.DeploymentHeader, stream.Deployment().ID)
	w.Header().Set(proxy.AttemptsHeader, strconv.Itoa(rc.UpstreamAttempts()))
	w.WriteHeader(http.StatusOK)

	events := 0
	for {
		ev, err := stream.Recv()
		if errors.Is(err, io.EOF) {
			if werr := proxy.WriteSSEDone(w); werr != nil {
				err = werr
				break
			}
			h.Logger.InfoContext(ctx, "stream completed",
				"request_id", rc.ID,
				"model", rc.Model,
				"deployment", stream.Deployment().ID,
				"events", events,
				"attempts", rc.UpstreamAttempts(),
				"total_latency_ms", time.Since(rc.Started).Milliseconds(),
			)
			h.observe(ctx, rc, http.StatusOK, nil)
			return
		}
		if err != nil {
			if ctx.Err() == nil {
				_ = proxy.WriteSSEError(w, streamError(err))
			}
			h.Logger.WarnContext(ctx, "stream ended with error",
				"request_id", rc.ID,
				"deployment", stream.Deployment().ID,
				"events", events,
				"error", err,
			)
			h.observe(ctx, rc, http.StatusOK, err)
			return
		}

		if werr := proxy.WriteSSEData(w, ev); werr != nil {
			err = werr
			h.Logger.InfoContext(ctx, "client stopped reading stream",
				"request_id", rc.ID,
				"events", events,
				"error", err,
			)
			h.observe(ctx, rc, proxy.StatusClientClosedRequest, err)
			return
		}
		events++
	}
	h.observe(ctx, rc, proxy.StatusClientClosedRequest, err)
}

func streamError(err error) *types.ErrorResponse {
	var serr *providers.StreamError
	if errors.As(err, &serr) {
		return types.NewBadGatewayError("upstream stream error: " + serr.Message)
	}
	return types.NewBadGatewayError("upstream stream interrupted")
}

// fail writes the error response for err and notifies observers.
func (h *CompletionsHandler) fail(ctx context.Context, w http.ResponseWriter, rc *dispatch.RequestContext, err error) {
	requestID := middleware.GetRequestID(ctx)

	var nre *dispatch.NonRetryableError
	if errors.As(err, &nre) {
		if werr := proxy.WriteUpstreamError(w, nre); werr != nil {
			h.Logger.ErrorContext(ctx, "failed to write error response", "request_id", requestID, "error", werr)
		}
		h.observe(ctx, rc, nre.StatusCode(), err)
		return
	}

	status, errResp := proxy.HandleError(err)
	if status >= http.StatusInternalServerError {
		h.Logger.ErrorContext(ctx, "request failed",
			"request_id", requestID,
			"status", status,
			"error", err,
		)
	}
	if status != proxy.StatusClientClosedRequest {
		if werr := proxy.WriteErrorResponse(w, status, errResp); werr != nil {
			h.Logger.ErrorContext(ctx, "failed to write error response", "request_id", requestID, "error", werr)
		}
	}
	h.observe(ctx, rc, status, err)
}

func (h *CompletionsHandler) observe(ctx context.Context, rc *dispatch.RequestContext, status int, err error) {
	for _, o := range h.Observers {
		o.ObserveRequest(ctx, rc, status, err)
	}
}

func startTime(ctx context.Context) time.Time {
	if t := middleware.GetStartTime(ctx); !t.IsZero() {
		return t
	}
	return time.Now()
}
