package dispatch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"

	"github.com/igamenovoer/my-litellm-proxy/pkg/health"
	"github.com/igamenovoer/my-litellm-proxy/pkg/providers"
	"github.com/igamenovoer/my-litellm-proxy/pkg/registry"
	"github.com/igamenovoer/my-litellm-proxy/pkg/telemetry/tracing"
)

// Defaults used when Settings leaves a field zero.
const (
	DefaultMaxAttempts = 3
	DefaultTimeout     = 60 * time.Second
)

// ProviderSource looks up the provider serving a deployment.
type ProviderSource interface {
	Get(id string) (providers.Provider, error)
}

// Observer is notified after every attempt, including admission
// rejections. Implementations must not block.
type Observer interface {
	ObserveAttempt(rc *RequestContext, d *registry.Deployment, a Attempt)
}

// Option configures a Dispatcher.
type Option func(*Dispatcher)

// WithTracer sets the tracer used for per-attempt spans.
func WithTracer(t trace.Tracer) Option {
	return func(d *Dispatcher) { d.tracer = t }
}

// WithObserver adds an attempt observer.
func WithObserver(o Observer) Option {
	return func(d *Dispatcher) { d.observers = append(d.observers, o) }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(d *Dispatcher) { d.logger = l }
}

// Dispatcher walks an ordered candidate list, admitting and calling each
// deployment in turn until one succeeds, a non-retryable error occurs, the
// caller goes away or the attempt budget runs out.
type Dispatcher struct {
	providers ProviderSource
	tracker   *health.Tracker
	settings  Settings
	tracer    trace.Tracer
	observers []Observer
	logger    *slog.Logger
}

// New creates a dispatcher.
func New(source ProviderSource, tracker *health.Tracker, settings Settings, opts ...Option) *Dispatcher {
	if settings.MaxAttempts <= 0 {
		settings.MaxAttempts = DefaultMaxAttempts
	}
	if settings.Timeout <= 0 {
		settings.Timeout = DefaultTimeout
	}
	d := &Dispatcher{
		providers: source,
		tracker:   tracker,
		settings:  settings,
		tracer:    noop.NewTracerProvider().Tracer(tracing.InstrumentationName),
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Settings returns the effective settings.
func (d *Dispatcher) Settings() Settings {
	return d.settings
}

// Dispatch performs a non-streaming request. On success the response of
// the first deployment that answered 2xx is returned. Errors are
// *NonRetryableError, *ExhaustedError or a wrapped context error.
func (d *Dispatcher) Dispatch(ctx context.Context, rc *RequestContext, candidates []*registry.Deployment) (*Response, error) {
	upstream := 0
	for _, dep := range candidates {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("dispatch cancelled: %w", err)
		}
		if upstream >= d.settings.MaxAttempts {
			break
		}

		tok, err := d.tracker.Admit(dep.ID)
		if err != nil {
			d.rejected(ctx, rc, dep, err)
			continue
		}
		upstream++

		resp, v, err := d.send(ctx, rc, dep, tok, upstream)
		switch v {
		case verdictDone:
			return resp, nil
		case verdictStop:
			return nil, nonRetryable(err)
		case verdictCancelled:
			return nil, fmt.Errorf("dispatch cancelled: %w", ctx.Err())
		}
	}
	return nil, &ExhaustedError{Model: rc.Model, Attempts: rc.Attempts()}
}

// DispatchStream opens a streamed request. Candidates are tried until one
// delivers its first event; from then on the stream is committed and
// failures terminate it instead of falling back. The returned Stream must
// be closed.
func (d *Dispatcher) DispatchStream(ctx context.Context, rc *RequestContext, candidates []*registry.Deployment) (*Stream, error) {
	upstream := 0
	for _, dep := range candidates {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("dispatch cancelled: %w", err)
		}
		if upstream >= d.settings.MaxAttempts {
			break
		}

		tok, err := d.tracker.Admit(dep.ID)
		if err != nil {
			d.rejected(ctx, rc, dep, err)
			continue
		}
		upstream++

		stream, v, err := d.open(ctx, rc, dep, tok, upstream)
		switch v {
		case verdictDone:
			return stream, nil
		case verdictStop:
			return nil, nonRetryable(err)
		case verdictCancelled:
			return nil, fmt.Errorf("dispatch cancelled: %w", ctx.Err())
		}
	}
	return nil, &ExhaustedError{Model: rc.Model, Attempts: rc.Attempts()}
}

func (d *Dispatcher) send(ctx context.Context, rc *RequestContext, dep *registry.Deployment, tok *health.Token, n int) (*Response, verdict, error) {
	ctx, span := d.startAttempt(ctx, rc, dep, tok, n)
	defer span.End()

	start := time.Now()
	var resp *providers.Response
	p, err := d.providers.Get(dep.ID)
	if err == nil {
		var body []byte
		if body, err = rc.body(dep); err == nil {
			actx, cancel := context.WithTimeout(ctx, d.timeout(dep))
			resp, err = p.Send(actx, rc.Operation, body)
			cancel()
		}
	}
	latency := time.Since(start)

	outcome, v := classify(ctx, nil, err)
	tok.Done(outcome, latency)

	a := Attempt{
		DeploymentID: dep.ID,
		Outcome:      outcome,
		StatusCode:   statusOf(err),
		Latency:      latency,
		Err:          err,
	}
	if resp != nil {
		a.StatusCode = resp.StatusCode
	}
	d.report(ctx, span, rc, dep, a)

	if v != verdictDone {
		return nil, v, err
	}
	return &Response{Response: resp, Deployment: dep}, v, nil
}

func (d *Dispatcher) startAttempt(ctx context.Context, rc *RequestContext, dep *registry.Deployment, tok *health.Token, n int) (context.Context, trace.Span) {
	ctx, span := d.tracer.Start(ctx, "dispatch.attempt",
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(tracing.DeploymentAttributes(dep.ID, dep.ProviderKind, rc.Group.Name, n)...),
	)
	if tok.Probe() {
		span.AddEvent("half-open probe")
	}
	return ctx, span
}

func (d *Dispatcher) timeout(dep *registry.Deployment) time.Duration {
	if dep.Timeout > 0 {
		return dep.Timeout
	}
	return d.settings.Timeout
}

// rejected records an admission refusal. No upstream call was made, so
// health is untouched.
func (d *Dispatcher) rejected(ctx context.Context, rc *RequestContext, dep *registry.Deployment, err error) {
	a := Attempt{DeploymentID: dep.ID, Rejected: true, Err: err}
	rc.record(a)
	for _, o := range d.observers {
		o.ObserveAttempt(rc, dep, a)
	}
	d.logger.DebugContext(ctx, "deployment not admitted",
		"request_id", rc.ID,
		"deployment", dep.ID,
		"reason", err,
	)
}

// report records a finished upstream attempt.
func (d *Dispatcher) report(ctx context.Context, span trace.Span, rc *RequestContext, dep *registry.Deployment, a Attempt) {
	rc.record(a)
	tracing.SetOutcome(span, a.Result(), a.StatusCode)
	if a.Err != nil && a.Outcome != health.OutcomeCancelled {
		tracing.SetError(span, a.Err)
	}
	for _, o := range d.observers {
		o.ObserveAttempt(rc, dep, a)
	}

	switch a.Outcome {
	case health.OutcomeFailure:
		d.logger.WarnContext(ctx, "upstream attempt failed",
			"request_id", rc.ID,
			"deployment", dep.ID,
			"status", a.StatusCode,
			"latency_ms", a.Latency.Milliseconds(),
			"error", a.Err,
		)
	case health.OutcomeCancelled:
		d.logger.InfoContext(ctx, "upstream attempt cancelled by caller",
			"request_id", rc.ID,
			"deployment", dep.ID,
		)
	default:
		d.logger.DebugContext(ctx, "upstream attempt finished",
			"request_id", rc.ID,
			"deployment", dep.ID,
			"result", a.Result(),
			"status", a.StatusCode,
			"latency_ms", a.Latency.Milliseconds(),
		)
	}
}

func nonRetryable(err error) error {
	var perr *providers.ProviderError
	if errors.As(err, &perr) {
		return &NonRetryableError{Upstream: perr}
	}
	return err
}
