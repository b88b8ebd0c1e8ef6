package globe

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type manualClock struct {
	now time.Time
}

func (c *manualClock) Now() time.Time { return c.now }

func (c *manualClock) advance(timers *Timers, d time.Duration) {
	c.now = c.now.Add(d)
	timers.Run(c.now)
}

func newTestTimers() (*Timers, *manualClock) {
	clock := &manualClock{now: time.Unix(1700000000, 0)}
	return NewTimers(clock.Now), clock
}

func TestTimersRunOrder(t *testing.T) {
	timers, clock := newTestTimers()
	var got []string
	timers.AfterFunc(30*time.Millisecond, func() { got = append(got, "c") })
	timers.AfterFunc(10*time.Millisecond, func() { got = append(got, "a") })
	timers.AfterFunc(10*time.Millisecond, func() { got = append(got, "b") })

	clock.advance(timers, 5*time.Millisecond)
	assert.Empty(t, got)

	clock.advance(timers, 25*time.Millisecond)
	assert.Equal(t, []string{"a", "b", "c"}, got)
	assert.Equal(t, 0, timers.Len())
}

func TestTimersChainedCallbacks(t *testing.T) {
	timers, clock := newTestTimers()
	fired := 0
	timers.AfterFunc(0, func() {
		fired++
		timers.AfterFunc(0, func() { fired++ })
	})
	clock.advance(timers, 0)
	assert.Equal(t, 2, fired)

	next, ok := timers.Next()
	assert.False(t, ok)
	assert.True(t, next.IsZero())
}

func TestThrottlerCoalesces(t *testing.T) {
	const interval = 100 * time.Millisecond
	timers, clock := newTestTimers()
	th := NewThrottler(interval, timers)

	var calls []time.Duration
	start := clock.now
	work := func() { calls = append(calls, clock.now.Sub(start)) }

	for i := 0; i < 10; i++ {
		th.Execute(work)
		clock.advance(timers, interval/10)
	}
	// Let any trailing run and the following quiet interval elapse.
	for i := 0; i < 30; i++ {
		clock.advance(timers, interval/10)
	}

	require.Len(t, calls, 2)
	assert.Equal(t, time.Duration(0), calls[0])
	assert.Equal(t, interval, calls[1])
	assert.Equal(t, Idle, th.State())
}

func TestThrottlerStates(t *testing.T) {
	timers, clock := newTestTimers()
	th := NewThrottler(50*time.Millisecond, timers)

	assert.Equal(t, Idle, th.State())

	runs := 0
	th.Execute(func() { runs++ })
	assert.Equal(t, Running, th.State())
	assert.Equal(t, 1, runs)

	th.Execute(func() { runs += 10 })
	assert.Equal(t, RunningWithPending, th.State())
	assert.Equal(t, 1, runs)

	clock.advance(timers, 50*time.Millisecond)
	assert.Equal(t, Running, th.State())
	assert.Equal(t, 11, runs)

	clock.advance(timers, 50*time.Millisecond)
	assert.Equal(t, Idle, th.State())
	assert.Equal(t, 11, runs)
}

func TestThrottlerRunsLatestWork(t *testing.T) {
	timers, clock := newTestTimers()
	th := NewThrottler(time.Second, timers)

	var got []string
	th.Execute(func() { got = append(got, "first") })
	th.Execute(func() { got = append(got, "second") })
	th.Execute(func() { got = append(got, "third") })
	clock.advance(timers, time.Second)

	assert.Equal(t, []string{"first", "third"}, got)
}

func TestThrottleStateString(t *testing.T) {
	tests := []struct {
		state ThrottleState
		want  string
	}{
		{Idle, "idle"},
		{Running, "running"},
		{RunningWithPending, "running-with-pending"},
		{ThrottleState(42), "unknown"},
	}
	for _, tt := range tests {
		if got := tt.state.String(); got != tt.want {
			t.Errorf("ThrottleState(%d).String() = %q; want %q", tt.state, got, tt.want)
		}
	}
}
