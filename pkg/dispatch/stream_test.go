package dispatch

import (
	"context"
	"errors"
	"io"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/igamenovoer/my-litellm-proxy/internal/upstreamtest"
	"github.com/igamenovoer/my-litellm-proxy/pkg/health"
	"github.com/igamenovoer/my-litellm-proxy/pkg/providers"
)

func drain(t *testing.T, s *Stream) ([][]byte, error) {
	t.Helper()
	var events [][]byte
	for {
		ev, err := s.Recv()
		if err != nil {
			if errors.Is(err, io.EOF) {
				return events, nil
			}
			return events, err
		}
		events = append(events, ev)
	}
}

func TestDispatchStream_Success(t *testing.T) {
	f := newFixture(t, 1, health.Settings{}, Settings{})
	f.servers[0].SetResponse(chatPath, upstreamtest.Response{
		StreamChunks: upstreamtest.StreamChunks("Hello", " world"),
	})

	rc := f.request(true)
	s, err := f.dispatcher.DispatchStream(context.Background(), rc, f.deployments)
	require.NoError(t, err)
	defer s.Close()

	assert.Equal(t, 1, int(f.tracker.InFlight("a")), "token is held while streaming")

	events, err := drain(t, s)
	require.NoError(t, err)
	assert.Len(t, events, 2)
	assert.Contains(t, string(events[0]), "Hello")

	require.Len(t, rc.Attempts(), 1)
	assert.Equal(t, "success", rc.Attempts()[0].Result())
	assert.Equal(t, "text/event-stream", f.servers[0].Requests()[0].Header.Get("Accept"))
	f.assertNoInFlight(t)
}

func TestDispatchStream_FallbackBeforeFirstEvent(t *testing.T) {
	f := newFixture(t, 2, health.Settings{MinRequests: 5}, Settings{})
	f.servers[0].SetResponse(chatPath, upstreamtest.ErrorResponse(http.StatusServiceUnavailable, "overloaded"))
	f.servers[1].SetResponse(chatPath, upstreamtest.Response{
		StreamChunks: upstreamtest.StreamChunks("from", " b"),
	})

	rc := f.request(true)
	s, err := f.dispatcher.DispatchStream(context.Background(), rc, f.deployments)
	require.NoError(t, err)
	defer s.Close()
	assert.Equal(t, "b", s.Deployment().ID)

	events, err := drain(t, s)
	require.NoError(t, err)
	assert.Len(t, events, 2)

	attempts := rc.Attempts()
	require.Len(t, attempts, 2)
	assert.Equal(t, 503, attempts[0].StatusCode)
	assert.Equal(t, "success", attempts[1].Result())
}

func TestDispatchStream_FirstEventTimeoutFallsBack(t *testing.T) {
	f := newFixture(t, 2, health.Settings{MinRequests: 5}, Settings{})
	f.deployments[0].Timeout = 50 * time.Millisecond
	f.servers[0].SetResponse(chatPath, upstreamtest.Response{Hang: true})
	f.servers[1].SetResponse(chatPath, upstreamtest.Response{
		StreamChunks: upstreamtest.StreamChunks("late", " but fine"),
	})

	rc := f.request(true)
	s, err := f.dispatcher.DispatchStream(context.Background(), rc, f.deployments)
	require.NoError(t, err)
	defer s.Close()
	assert.Equal(t, "b", s.Deployment().ID)

	first := rc.Attempts()[0]
	assert.Equal(t, "failure", first.Result())
	var terr *providers.TimeoutError
	assert.True(t, errors.As(first.Err, &terr), "got %v", first.Err)
}

func TestDispatchStream_MidStreamFailureIsNotRetried(t *testing.T) {
	f := newFixture(t, 2, health.Settings{MinRequests: 5}, Settings{})
	f.servers[0].SetResponse(chatPath, upstreamtest.Response{
		StreamChunks: upstreamtest.StreamChunks("one", "two", "three"),
		FailAfter:    2,
	})
	f.servers[1].SetResponse(chatPath, upstreamtest.Response{
		StreamChunks: upstreamtest.StreamChunks("never"),
	})

	rc := f.request(true)
	s, err := f.dispatcher.DispatchStream(context.Background(), rc, f.deployments)
	require.NoError(t, err)
	defer s.Close()

	events, err := drain(t, s)
	require.Error(t, err)
	assert.Len(t, events, 2)

	assert.Zero(t, f.servers[1].RequestCount())
	require.Len(t, rc.Attempts(), 1)
	assert.Equal(t, "failure", rc.Attempts()[0].Result())
	f.assertNoInFlight(t)
}

func TestDispatchStream_ErrorEventEndsStream(t *testing.T) {
	f := newFixture(t, 1, health.Settings{MinRequests: 5}, Settings{})
	f.servers[0].SetResponse(chatPath, upstreamtest.Response{
		StreamChunks: []string{
			upstreamtest.StreamChunk("partial", ""),
			`{"error":{"message":"upstream overloaded"}}`,
		},
	})

	s, err := f.dispatcher.DispatchStream(context.Background(), f.request(true), f.deployments)
	require.NoError(t, err)
	defer s.Close()

	_, err = drain(t, s)
	var serr *providers.StreamError
	require.True(t, errors.As(err, &serr))
	assert.Equal(t, "upstream overloaded", serr.Message)
}

func TestDispatchStream_ConsumerCloseReleasesWithoutPenalty(t *testing.T) {
	f := newFixture(t, 1, health.Settings{MinRequests: 1, FailureWindow: 1}, Settings{})
	f.deployments[0].MaxConcurrent = 1
	f.sync(t)
	f.servers[0].SetResponse(chatPath, upstreamtest.Response{
		StreamChunks: upstreamtest.StreamChunks("a", "b", "c", "d", "e", "f", "g", "h"),
	})

	rc := f.request(true)
	s, err := f.dispatcher.DispatchStream(context.Background(), rc, f.deployments)
	require.NoError(t, err)

	_, err = s.Recv()
	require.NoError(t, err)
	require.NoError(t, s.Close())
	require.NoError(t, s.Close())

	assert.Zero(t, f.tracker.InFlight("a"))
	assert.Equal(t, health.StateClosed, f.tracker.State("a"))
	require.Len(t, rc.Attempts(), 1)
	assert.Equal(t, "cancelled", rc.Attempts()[0].Result())

	tok, err := f.tracker.Admit("a")
	require.NoError(t, err, "slot must be free again")
	tok.Release()
}

func TestDispatchStream_NonRetryable(t *testing.T) {
	f := newFixture(t, 2, health.Settings{}, Settings{})
	f.servers[0].SetResponse(chatPath, upstreamtest.ErrorResponse(http.StatusUnprocessableEntity, "bad tools"))

	_, err := f.dispatcher.DispatchStream(context.Background(), f.request(true), f.deployments)
	var nre *NonRetryableError
	require.True(t, errors.As(err, &nre))
	assert.Equal(t, http.StatusUnprocessableEntity, nre.StatusCode())
	assert.Zero(t, f.servers[1].RequestCount())
	f.assertNoInFlight(t)
}

func TestDispatchStream_NoEventsFallsBack(t *testing.T) {
	tests := []struct {
		name    string
		resp    upstreamtest.Response
		wantRaw string
	}{
		{
			name:    "json body to a stream request",
			resp:    upstreamtest.OK("not streamed", "upstream-model"),
			wantRaw: "not streamed",
		},
		{
			name: "done before any event",
			resp: upstreamtest.Response{
				Body:    "data: [DONE]\n\n",
				Headers: map[string]string{"Content-Type": "text/event-stream"},
			},
		},
		{
			name: "empty body",
			resp: upstreamtest.Response{
				Headers: map[string]string{"Content-Type": "text/event-stream"},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, 2, health.Settings{MinRequests: 5}, Settings{})
			f.servers[0].SetResponse(chatPath, tt.resp)
			f.servers[1].SetResponse(chatPath, upstreamtest.Response{
				StreamChunks: upstreamtest.StreamChunks("from", " b"),
			})

			rc := f.request(true)
			s, err := f.dispatcher.DispatchStream(context.Background(), rc, f.deployments)
			require.NoError(t, err)
			defer s.Close()
			assert.Equal(t, "b", s.Deployment().ID)

			events, err := drain(t, s)
			require.NoError(t, err)
			assert.Len(t, events, 2)

			attempts := rc.Attempts()
			require.Len(t, attempts, 2)
			assert.Equal(t, "a", attempts[0].DeploymentID)
			assert.Equal(t, "failure", attempts[0].Result())
			var perr *providers.ParseError
			require.True(t, errors.As(attempts[0].Err, &perr), "got %v", attempts[0].Err)
			assert.Contains(t, perr.RawResponse, tt.wantRaw)
			assert.Equal(t, "success", attempts[1].Result())
			assert.Equal(t, 1, f.servers[1].RequestCount())
			f.assertNoInFlight(t)
		})
	}
}

func TestDispatchStream_MissingDoneIsAFailure(t *testing.T) {
	f := newFixture(t, 2, health.Settings{MinRequests: 5}, Settings{})
	f.servers[0].SetResponse(chatPath, upstreamtest.Response{
		StreamChunks: upstreamtest.StreamChunks("one", "two", "three"),
		OmitDone:     true,
	})

	rc := f.request(true)
	s, err := f.dispatcher.DispatchStream(context.Background(), rc, f.deployments)
	require.NoError(t, err)
	defer s.Close()

	events, err := drain(t, s)
	assert.Len(t, events, 3)
	assert.ErrorIs(t, err, providers.ErrStreamTruncated)

	assert.Zero(t, f.servers[1].RequestCount(), "a committed stream is never retried")
	require.Len(t, rc.Attempts(), 1)
	assert.Equal(t, "failure", rc.Attempts()[0].Result())
	f.assertNoInFlight(t)
}

func TestDispatchStream_CallerCancelMidStream(t *testing.T) {
	f := newFixture(t, 1, health.Settings{MinRequests: 1, FailureWindow: 1}, Settings{})
	f.servers[0].SetResponse(chatPath, upstreamtest.Response{
		StreamChunks: upstreamtest.StreamChunks("a", "b", "c", "d", "e", "f", "g", "h",
			"i", "j", "k", "l", "m", "n", "o", "p", "q", "r", "s", "t"),
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	rc := f.request(true)
	s, err := f.dispatcher.DispatchStream(ctx, rc, f.deployments)
	require.NoError(t, err)
	defer s.Close()

	_, err = s.Recv()
	require.NoError(t, err)
	cancel()

	events, err := drain(t, s)
	require.Error(t, err)
	assert.Less(t, len(events), 19)

	assert.Zero(t, f.tracker.InFlight("a"))
	assert.Equal(t, health.StateClosed, f.tracker.State("a"))
	require.Len(t, rc.Attempts(), 1)
	assert.Equal(t, "cancelled", rc.Attempts()[0].Result())
}
