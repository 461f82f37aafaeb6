package health

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/igamenovoer/my-litellm-proxy/pkg/registry"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func newTestTracker(t *testing.T, settings Settings, deps ...*registry.Deployment) (*Tracker, *fakeClock) {
	t.Helper()
	clock := newFakeClock()
	tr := NewTracker(settings, WithClock(clock.Now))
	if len(deps) == 0 {
		deps = []*registry.Deployment{{ID: "d1", Weight: 1}}
	}
	tr.Sync(deps)
	return tr, clock
}

func fail(t *testing.T, tr *Tracker, id string) {
	t.Helper()
	tok, err := tr.Admit(id)
	require.NoError(t, err)
	tok.Done(OutcomeFailure, 0)
}

func succeed(t *testing.T, tr *Tracker, id string) {
	t.Helper()
	tok, err := tr.Admit(id)
	require.NoError(t, err)
	tok.Done(OutcomeSuccess, 10*time.Millisecond)
}

func TestAdmit_MaxConcurrentOneUnderContention(t *testing.T) {
	tr, _ := newTestTracker(t, Settings{}, &registry.Deployment{ID: "d1", Weight: 1, MaxConcurrent: 1})

	const workers = 64
	var (
		admitted atomic.Int64
		rejected atomic.Int64
		tokens   = make(chan *Token, workers)
		start    = make(chan struct{})
		wg       sync.WaitGroup
	)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			tok, err := tr.Admit("d1")
			if err != nil {
				if errors.Is(err, ErrAtCapacity) {
					rejected.Add(1)
				}
				return
			}
			admitted.Add(1)
			tokens <- tok
		}()
	}
	close(start)
	wg.Wait()
	close(tokens)

	assert.Equal(t, int64(1), admitted.Load())
	assert.Equal(t, int64(workers-1), rejected.Load())
	assert.Equal(t, int64(1), tr.InFlight("d1"))

	for tok := range tokens {
		tok.Release()
		tok.Release()
	}
	assert.Equal(t, int64(0), tr.InFlight("d1"))

	_, err := tr.Admit("d1")
	assert.NoError(t, err)
}

func TestAdmit_UnlimitedWhenZero(t *testing.T) {
	tr, _ := newTestTracker(t, Settings{})
	var toks []*Token
	for i := 0; i < 100; i++ {
		tok, err := tr.Admit("d1")
		require.NoError(t, err)
		toks = append(toks, tok)
	}
	assert.Equal(t, int64(100), tr.InFlight("d1"))
	for _, tok := range toks {
		tok.Done(OutcomeSuccess, time.Millisecond)
	}
	assert.Equal(t, int64(0), tr.InFlight("d1"))
}

func TestAdmit_UnknownDeployment(t *testing.T) {
	tr, _ := newTestTracker(t, Settings{})
	_, err := tr.Admit("nope")
	assert.True(t, errors.Is(err, registry.ErrUnknownDeployment))
}

func TestToken_DoneThenReleaseCountsOnce(t *testing.T) {
	tr, _ := newTestTracker(t, Settings{})
	tok, err := tr.Admit("d1")
	require.NoError(t, err)

	tok.Done(OutcomeSuccess, 5*time.Millisecond)
	tok.Release()
	tok.Done(OutcomeFailure, 0)

	snap := tr.Snapshot()
	require.Len(t, snap, 1)
	assert.Equal(t, int64(1), snap[0].Successes)
	assert.Equal(t, int64(0), snap[0].Failures)
	assert.Equal(t, int64(0), snap[0].InFlight)
}

func TestBreaker_Trips(t *testing.T) {
	tests := []struct {
		name      string
		settings  Settings
		sequence  []Outcome
		wantState State
	}{
		{
			name:      "all failures over window trips",
			settings:  Settings{FailureThreshold: 0.5, FailureWindow: 5, MinRequests: 5},
			sequence:  []Outcome{OutcomeFailure, OutcomeFailure, OutcomeFailure, OutcomeFailure, OutcomeFailure},
			wantState: StateOpen,
		},
		{
			name:      "below min requests stays closed",
			settings:  Settings{FailureThreshold: 0.5, FailureWindow: 5, MinRequests: 5},
			sequence:  []Outcome{OutcomeFailure, OutcomeFailure, OutcomeFailure, OutcomeFailure},
			wantState: StateClosed,
		},
		{
			name:      "ratio at threshold trips",
			settings:  Settings{FailureThreshold: 0.5, FailureWindow: 4, MinRequests: 4},
			sequence:  []Outcome{OutcomeSuccess, OutcomeSuccess, OutcomeFailure, OutcomeFailure},
			wantState: StateOpen,
		},
		{
			name:      "ratio below threshold stays closed",
			settings:  Settings{FailureThreshold: 0.6, FailureWindow: 5, MinRequests: 5},
			sequence:  []Outcome{OutcomeSuccess, OutcomeSuccess, OutcomeSuccess, OutcomeFailure, OutcomeFailure},
			wantState: StateClosed,
		},
		{
			name:      "only the window counts",
			settings:  Settings{FailureThreshold: 1, FailureWindow: 3, MinRequests: 3},
			sequence:  []Outcome{OutcomeSuccess, OutcomeFailure, OutcomeFailure, OutcomeFailure},
			wantState: StateOpen,
		},
		{
			name:      "client errors count as healthy",
			settings:  Settings{FailureThreshold: 0.5, FailureWindow: 4, MinRequests: 4},
			sequence:  []Outcome{OutcomeClientError, OutcomeClientError, OutcomeClientError, OutcomeFailure},
			wantState: StateClosed,
		},
		{
			name:      "cancellations are ignored",
			settings:  Settings{FailureThreshold: 0.5, FailureWindow: 2, MinRequests: 2},
			sequence:  []Outcome{OutcomeCancelled, OutcomeCancelled, OutcomeCancelled, OutcomeFailure},
			wantState: StateClosed,
		},
		{
			name:      "single sample threshold",
			settings:  Settings{FailureThreshold: 1, FailureWindow: 1, MinRequests: 1},
			sequence:  []Outcome{OutcomeFailure},
			wantState: StateOpen,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.settings.Cooldown = time.Minute
			tr, _ := newTestTracker(t, tt.settings)
			for _, o := range tt.sequence {
				tok, err := tr.Admit("d1")
				require.NoError(t, err)
				tok.Done(o, time.Millisecond)
			}
			assert.Equal(t, tt.wantState, tr.State("d1"))
		})
	}
}

func TestBreaker_OpenRejectsThenProbes(t *testing.T) {
	for _, cooldown := range []time.Duration{time.Second, 30 * time.Second} {
		t.Run(fmt.Sprintf("cooldown=%s", cooldown), func(t *testing.T) {
			tr, clock := newTestTracker(t, Settings{FailureThreshold: 1, FailureWindow: 2, MinRequests: 2, Cooldown: cooldown})
			fail(t, tr, "d1")
			fail(t, tr, "d1")

			require.Equal(t, StateOpen, tr.State("d1"))
			assert.False(t, tr.Eligible("d1"))
			assert.False(t, tr.IsHealthy("d1"))
			_, err := tr.Admit("d1")
			assert.ErrorIs(t, err, ErrCircuitOpen)

			clock.Advance(cooldown - time.Millisecond)
			_, err = tr.Admit("d1")
			assert.ErrorIs(t, err, ErrCircuitOpen)

			clock.Advance(time.Millisecond)
			assert.Equal(t, StateHalfOpen, tr.State("d1"))
			assert.True(t, tr.Eligible("d1"))

			probe, err := tr.Admit("d1")
			require.NoError(t, err)
			assert.True(t, probe.Probe())

			// exactly one probe at a time
			_, err = tr.Admit("d1")
			assert.ErrorIs(t, err, ErrCircuitOpen)
			assert.False(t, tr.Eligible("d1"))

			probe.Done(OutcomeSuccess, time.Millisecond)
			assert.Equal(t, StateClosed, tr.State("d1"))

			// history was cleared: one failure is not enough to trip again
			fail(t, tr, "d1")
			assert.Equal(t, StateClosed, tr.State("d1"))
		})
	}
}

func TestBreaker_FailedProbeRenewsCooldown(t *testing.T) {
	tr, clock := newTestTracker(t, Settings{FailureThreshold: 1, FailureWindow: 1, MinRequests: 1, Cooldown: 10 * time.Second})
	fail(t, tr, "d1")
	clock.Advance(10 * time.Second)

	probe, err := tr.Admit("d1")
	require.NoError(t, err)
	probe.Done(OutcomeFailure, 0)

	assert.Equal(t, StateOpen, tr.State("d1"))
	clock.Advance(9 * time.Second)
	_, err = tr.Admit("d1")
	assert.ErrorIs(t, err, ErrCircuitOpen)

	clock.Advance(time.Second)
	_, err = tr.Admit("d1")
	assert.NoError(t, err)
}

func TestBreaker_CancelledProbeAllowsNextProbe(t *testing.T) {
	tr, clock := newTestTracker(t, Settings{FailureThreshold: 1, FailureWindow: 1, MinRequests: 1, Cooldown: 10 * time.Second})
	fail(t, tr, "d1")
	clock.Advance(10 * time.Second)

	probe, err := tr.Admit("d1")
	require.NoError(t, err)
	probe.Release()

	assert.Equal(t, int64(0), tr.InFlight("d1"))
	next, err := tr.Admit("d1")
	require.NoError(t, err, "cooldown must not be renewed by a cancelled probe")
	assert.True(t, next.Probe())
	next.Done(OutcomeSuccess, time.Millisecond)
	assert.Equal(t, StateClosed, tr.State("d1"))
}

func TestTracker_StateListener(t *testing.T) {
	clock := newFakeClock()
	var mu sync.Mutex
	var transitions []string
	tr := NewTracker(
		Settings{FailureThreshold: 1, FailureWindow: 1, MinRequests: 1, Cooldown: time.Second},
		WithClock(clock.Now),
		WithStateListener(func(id string, from, to State) {
			mu.Lock()
			transitions = append(transitions, fmt.Sprintf("%s:%s->%s", id, from, to))
			mu.Unlock()
		}),
	)
	tr.Sync([]*registry.Deployment{{ID: "d1", Weight: 1}})

	fail(t, tr, "d1")
	clock.Advance(time.Second)
	succeed(t, tr, "d1")

	assert.Equal(t, []string{
		"d1:closed->open",
		"d1:open->half_open",
		"d1:half_open->closed",
	}, transitions)
}

func TestTracker_SyncKeepsStatsAndDropsRemoved(t *testing.T) {
	tr, _ := newTestTracker(t, Settings{},
		&registry.Deployment{ID: "a", Weight: 1},
		&registry.Deployment{ID: "b", Weight: 1},
	)
	succeed(t, tr, "a")

	tr.Sync([]*registry.Deployment{{ID: "a", Weight: 1, MaxConcurrent: 1}})

	snap := tr.Snapshot()
	require.Len(t, snap, 1)
	assert.Equal(t, "a", snap[0].ID)
	assert.Equal(t, int64(1), snap[0].Successes)
	assert.Equal(t, int64(1), snap[0].MaxConcurrent)

	_, err := tr.Admit("b")
	assert.ErrorIs(t, err, registry.ErrUnknownDeployment)
}

func TestTracker_AvgLatencyAndRecordOutcome(t *testing.T) {
	tr, _ := newTestTracker(t, Settings{StatsWindow: 3, FailureWindow: 3, MinRequests: 3})

	require.NoError(t, tr.RecordOutcome("d1", OutcomeSuccess, 10*time.Millisecond))
	require.NoError(t, tr.RecordOutcome("d1", OutcomeSuccess, 20*time.Millisecond))
	assert.Equal(t, 15*time.Millisecond, tr.AvgLatency("d1"))

	// ring capacity is three; the oldest sample is evicted
	require.NoError(t, tr.RecordOutcome("d1", OutcomeSuccess, 30*time.Millisecond))
	require.NoError(t, tr.RecordOutcome("d1", OutcomeSuccess, 40*time.Millisecond))
	assert.Equal(t, 30*time.Millisecond, tr.AvgLatency("d1"))

	assert.Error(t, tr.RecordOutcome("missing", OutcomeSuccess, 0))
}

func TestRing(t *testing.T) {
	r := newRing[int](3)
	assert.Empty(t, r.values())

	for i := 1; i <= 5; i++ {
		r.push(i)
	}
	assert.Equal(t, []int{3, 4, 5}, r.values())
	assert.Equal(t, []int{4, 5}, r.last(2))
	assert.Equal(t, []int{3, 4, 5}, r.last(10))

	r.reset()
	assert.Equal(t, 0, r.len())
	r.push(9)
	assert.Equal(t, []int{9}, r.values())
}
