package handlers

import (
	"context"

	"github.com/igamenovoer/my-litellm-proxy/pkg/dispatch"
	"github.com/igamenovoer/my-litellm-proxy/pkg/registry"
)

// ModelResolver maps a requested model name to its model group.
type ModelResolver interface {
	Resolve(model string) (*registry.ModelGroup, error)
}

// CandidateSelector orders a group's eligible deployments for one request.
type CandidateSelector interface {
	Select(group *registry.ModelGroup) ([]*registry.Deployment, error)
}

// Dispatcher runs a request against ordered candidates.
type Dispatcher interface {
	Dispatch(ctx context.Context, rc *dispatch.RequestContext, candidates []*registry.Deployment) (*dispatch.Response, error)
	DispatchStream(ctx context.Context, rc *dispatch.RequestContext, candidates []*registry.Deployment) (*dispatch.Stream, error)
}

// RequestObserver is told about every completion request once its response
// is finished. rc is nil when the request failed before routing (bad body,
// refused model). Implementations must not block.
type RequestObserver interface {
	ObserveRequest(ctx context.Context, rc *dispatch.RequestContext, status int, err error)
}
