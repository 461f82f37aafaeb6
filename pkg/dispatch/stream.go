package dispatch

import (
	"context"
	"errors"
	"io"
	"sync"
	"time"

	"go.opentelemetry.io/otel/trace"

	"github.com/igamenovoer/my-litellm-proxy/pkg/health"
	"github.com/igamenovoer/my-litellm-proxy/pkg/providers"
	"github.com/igamenovoer/my-litellm-proxy/pkg/registry"
)

var (
	errStreamClosed = errors.New("stream closed by consumer")
	errNoEvents     = errors.New("stream ended before first event")
)

// Stream is a committed upstream stream. It is a single-pass reader: call
// Recv until it returns an error, then Close. The admission token is held
// until the stream ends, fails or is closed.
type Stream struct {
	d      *Dispatcher
	rc     *RequestContext
	dep    *registry.Deployment
	reader providers.StreamReader
	tok    *health.Token
	parent context.Context
	cancel context.CancelCauseFunc
	span   trace.Span
	start  time.Time

	first []byte

	once   sync.Once
	done   bool
	events int
}

// open starts a stream attempt and waits for the first event under the
// attempt timeout. Only then is the stream handed to the caller; a stream
// that ends before any event is a failed attempt.
func (d *Dispatcher) open(ctx context.Context, rc *RequestContext, dep *registry.Deployment, tok *health.Token, n int) (*Stream, verdict, error) {
	spanCtx, span := d.startAttempt(ctx, rc, dep, tok, n)

	start := time.Now()
	actx, cancel := context.WithCancelCause(spanCtx)
	timer := time.AfterFunc(d.timeout(dep), func() { cancel(errFirstEventTimeout) })

	var (
		reader providers.StreamReader
		first  []byte
	)
	p, err := d.providers.Get(dep.ID)
	if err == nil {
		var body []byte
		if body, err = rc.body(dep); err == nil {
			reader, err = p.Stream(actx, rc.Operation, body)
		}
	}
	if err == nil {
		first, err = reader.Recv()
	}
	if !timer.Stop() && (err == nil || errors.Is(err, io.EOF)) {
		// the timer won the race against the first event
		err = context.Cause(actx)
	}

	if errors.Is(err, io.EOF) {
		// nothing was relayed yet, so the next deployment may still answer
		err = &providers.ParseError{Deployment: dep.ID, Cause: errNoEvents}
	}
	if err != nil {
		if reader != nil {
			_ = reader.Close()
		}
		outcome, v := classify(ctx, actx, err)
		if errors.Is(context.Cause(actx), errFirstEventTimeout) && v == verdictRetry {
			err = &providers.TimeoutError{Deployment: dep.ID, Cause: errFirstEventTimeout}
		}
		cancel(nil)
		latency := time.Since(start)
		tok.Done(outcome, latency)
		d.report(spanCtx, span, rc, dep, Attempt{
			DeploymentID: dep.ID,
			Outcome:      outcome,
			StatusCode:   statusOf(err),
			Latency:      latency,
			Err:          err,
		})
		span.End()
		return nil, v, err
	}

	return &Stream{
		d:      d,
		rc:     rc,
		dep:    dep,
		reader: reader,
		tok:    tok,
		parent: ctx,
		cancel: cancel,
		span:   span,
		start:  start,
		first:  first,
	}, verdictDone, nil
}

// Deployment returns the deployment serving the stream.
func (s *Stream) Deployment() *registry.Deployment {
	return s.dep
}

// Recv returns the next upstream event. It returns io.EOF once the
// upstream finished. Any other error ends the stream; it is not retried.
func (s *Stream) Recv() ([]byte, error) {
	if s.first != nil {
		ev := s.first
		s.first = nil
		s.events++
		return ev, nil
	}
	if s.done {
		return nil, io.EOF
	}

	ev, err := s.reader.Recv()
	if err != nil {
		if errors.Is(err, io.EOF) {
			s.finish(nil)
			return nil, io.EOF
		}
		s.finish(err)
		return nil, err
	}
	s.events++
	return ev, nil
}

// Close ends the stream. Closing before io.EOF cancels the upstream call
// and records a cancellation, which does not affect deployment health.
func (s *Stream) Close() error {
	s.finish(errStreamClosed)
	return nil
}

func (s *Stream) finish(err error) {
	s.once.Do(func() {
		s.done = true

		outcome := health.OutcomeSuccess
		switch {
		case err == nil:
		case errors.Is(err, errStreamClosed) || s.parent.Err() != nil:
			outcome = health.OutcomeCancelled
		default:
			outcome = health.OutcomeFailure
		}

		s.cancel(nil)
		if s.reader != nil {
			_ = s.reader.Close()
		}
		latency := time.Since(s.start)
		s.tok.Done(outcome, latency)

		a := Attempt{
			DeploymentID: s.dep.ID,
			Outcome:      outcome,
			StatusCode:   200,
			Latency:      latency,
		}
		if outcome == health.OutcomeFailure {
			a.Err = err
		}
		s.d.report(s.parent, s.span, s.rc, s.dep, a)
		s.span.End()
	})
}
