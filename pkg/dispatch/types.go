package dispatch

import (
	"encoding/json"
	"slices"
	"sync"
	"time"

	"github.com/igamenovoer/my-litellm-proxy/pkg/health"
	"github.com/igamenovoer/my-litellm-proxy/pkg/providers"
	"github.com/igamenovoer/my-litellm-proxy/pkg/registry"
)

// RequestContext is the per-request state shared by the gateway and the
// dispatcher. It lives until the response, including a streamed one, has
// been fully sent.
type RequestContext struct {
	// ID is the request id, echoed in X-Request-ID.
	ID string

	// Model is the model name the client asked for.
	Model string

	// Group is the resolved model group.
	Group *registry.ModelGroup

	// Operation is the upstream API operation.
	Operation providers.Operation

	// Body is the decoded top-level request object. Values are kept raw so
	// unknown fields are forwarded untouched.
	Body map[string]json.RawMessage

	// Stream reports whether the client asked for a streamed response.
	Stream bool

	// KeyAlias identifies the client key, for audit.
	KeyAlias string

	// Started is when the gateway accepted the request.
	Started time.Time

	mu       sync.Mutex
	attempts []Attempt
}

// Attempts returns a copy of the attempt history.
func (rc *RequestContext) Attempts() []Attempt {
	rc.mu.Lock()
	defer rc.mu.Unlock()
	return slices.Clone(rc.attempts)
}

// UpstreamAttempts counts attempts that reached an upstream.
func (rc *RequestContext) UpstreamAttempts() int {
	rc.mu.Lock()
	defer rc.mu.Unlock()
	n := 0
	for _, a := range rc.attempts {
		if !a.Rejected {
			n++
		}
	}
	return n
}

func (rc *RequestContext) record(a Attempt) {
	rc.mu.Lock()
	rc.attempts = append(rc.attempts, a)
	rc.mu.Unlock()
}

// body returns the upstream request body for d: the client body with the
// model field replaced by the deployment's upstream model.
func (rc *RequestContext) body(d *registry.Deployment) ([]byte, error) {
	out := make(map[string]json.RawMessage, len(rc.Body)+1)
	for k, v := range rc.Body {
		out[k] = v
	}
	model, err := json.Marshal(d.Model)
	if err != nil {
		return nil, err
	}
	out["model"] = model
	return json.Marshal(out)
}

// Attempt is one entry of a request's attempt history.
type Attempt struct {
	// DeploymentID is the deployment tried.
	DeploymentID string `json:"deployment"`

	// Rejected is set when admission was refused and no upstream call was
	// made. Outcome is meaningless in that case.
	Rejected bool `json:"rejected,omitempty"`

	// Outcome is how the upstream call ended.
	Outcome health.Outcome `json:"-"`

	// StatusCode is the upstream HTTP status, when one was received.
	StatusCode int `json:"status,omitempty"`

	// Latency is the time spent on the attempt.
	Latency time.Duration `json:"latency_ns"`

	// Err is the attempt error, if any.
	Err error `json:"-"`
}

// Result returns the attempt result label: rejected, success, failure,
// cancelled or client_error.
func (a Attempt) Result() string {
	if a.Rejected {
		return "rejected"
	}
	return a.Outcome.String()
}

// MarshalJSON adds the result label and error message.
func (a Attempt) MarshalJSON() ([]byte, error) {
	type plain Attempt
	out := struct {
		plain
		Result string `json:"result"`
		Error  string `json:"error,omitempty"`
	}{plain: plain(a), Result: a.Result()}
	if a.Err != nil {
		out.Error = a.Err.Error()
	}
	return json.Marshal(out)
}

// Response is a complete successful upstream reply.
type Response struct {
	*providers.Response

	// Deployment is the deployment that served the request.
	Deployment *registry.Deployment
}

// Settings bounds the dispatch loop.
type Settings struct {
	// MaxAttempts caps upstream attempts per request. Admission rejections
	// do not count.
	MaxAttempts int

	// Timeout is the per-attempt timeout used when a deployment has none.
	// For streams it bounds the wait for the first event.
	Timeout time.Duration
}
