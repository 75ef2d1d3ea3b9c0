package breaker

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
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

func newTestBreaker(t *testing.T) (*Breaker, *fakeClock) {
	t.Helper()
	clk := &fakeClock{now: time.Date(2026, 10, 16, 9, 0, 0, 0, time.UTC)}
	b := New(Config{}, WithClock(clk.Now))
	return b, clk
}

func TestDefaults(t *testing.T) {
	b := New(Config{})
	cfg := b.Config()
	assert.Equal(t, 10, cfg.FailureThreshold)
	assert.Equal(t, 300*time.Second, cfg.ResetTimeout)
	assert.Equal(t, 3, cfg.HalfOpenMaxAttempts)
	assert.Equal(t, StateClosed, b.State())
	assert.True(t, b.Allow())
}

func TestOpensAfterThreshold(t *testing.T) {
	b, _ := newTestBreaker(t)
	for i := 0; i < 9; i++ {
		b.RecordFailure(CategoryRateLimited)
		require.Equal(t, StateClosed, b.State(), "failure %d", i+1)
	}
	b.RecordFailure(CategoryRateLimited)
	assert.Equal(t, StateOpen, b.State())
	assert.False(t, b.Allow())
}

func TestSuccessResetsConsecutiveFailuresWhileClosed(t *testing.T) {
	b, _ := newTestBreaker(t)
	for i := 0; i < 9; i++ {
		b.RecordFailure(CategoryOther)
	}
	b.RecordSuccess()
	assert.Equal(t, 0, b.Snapshot().ConsecutiveFailures)
	b.RecordFailure(CategoryOther)
	assert.Equal(t, StateClosed, b.State())
	// tally is only cleared on recovery from HALF_OPEN
	assert.Equal(t, 10, b.Snapshot().ErrorTally[CategoryOther])
}

func TestOpenUntilResetTimeoutThenSingleProbeTransition(t *testing.T) {
	b, clk := newTestBreaker(t)
	for i := 0; i < 10; i++ {
		b.RecordFailure(CategoryNetwork)
	}

	clk.Advance(299 * time.Second)
	assert.False(t, b.Allow())
	assert.Equal(t, StateOpen, b.State())
	assert.Equal(t, time.Second, b.Snapshot().RetryAfter)

	clk.Advance(time.Second)
	assert.True(t, b.Allow())
	assert.Equal(t, StateHalfOpen, b.State())
}

func TestHalfOpenClosesAfterMaxSuccesses(t *testing.T) {
	b, clk := newTestBreaker(t)
	for i := 0; i < 10; i++ {
		b.RecordFailure(CategoryRateLimited)
	}
	clk.Advance(5 * time.Minute)
	require.True(t, b.Allow())

	b.RecordSuccess()
	b.RecordSuccess()
	assert.Equal(t, StateHalfOpen, b.State())
	assert.True(t, b.Allow())

	b.RecordSuccess()
	snap := b.Snapshot()
	assert.Equal(t, StateClosed, snap.State)
	assert.Equal(t, 0, snap.ConsecutiveFailures)
	assert.Empty(t, snap.ErrorTally)
}

func TestHalfOpenAdmitsProbesUntilClosed(t *testing.T) {
	clk := &fakeClock{now: time.Date(2026, 10, 16, 9, 0, 0, 0, time.UTC)}
	b := New(Config{FailureThreshold: 1, ResetTimeout: time.Second, HalfOpenMaxAttempts: 2}, WithClock(clk.Now))
	b.RecordFailure(CategoryOther)
	require.Equal(t, StateOpen, b.State())

	clk.Advance(time.Second)
	assert.True(t, b.Allow())
	assert.True(t, b.Allow())
	b.RecordSuccess()
	assert.Equal(t, StateHalfOpen, b.State())
	b.RecordSuccess()
	assert.Equal(t, StateClosed, b.State())
}

func TestFailureWhileHalfOpenReopens(t *testing.T) {
	b, clk := newTestBreaker(t)
	for i := 0; i < 10; i++ {
		b.RecordFailure(CategoryRateLimited)
	}
	clk.Advance(5 * time.Minute)
	require.True(t, b.Allow())
	b.RecordSuccess()

	b.RecordFailure(CategoryNetwork)
	snap := b.Snapshot()
	assert.Equal(t, StateOpen, snap.State)
	assert.Equal(t, 0, snap.HalfOpenSuccesses)
	assert.False(t, b.Allow())

	clk.Advance(5 * time.Minute)
	assert.True(t, b.Allow())
	assert.Equal(t, StateHalfOpen, b.State())
}

func TestStateChangeCallback(t *testing.T) {
	clk := &fakeClock{now: time.Date(2026, 10, 16, 9, 0, 0, 0, time.UTC)}
	var transitions []string
	b := New(Config{FailureThreshold: 2, ResetTimeout: time.Minute, HalfOpenMaxAttempts: 1},
		WithClock(clk.Now),
		WithStateChange(func(from, to State) {
			transitions = append(transitions, from.String()+"->"+to.String())
		}))

	b.RecordFailure(CategoryOther)
	b.RecordFailure(CategoryOther)
	clk.Advance(time.Minute)
	b.Allow()
	b.RecordSuccess()

	assert.Equal(t, []string{"CLOSED->OPEN", "OPEN->HALF_OPEN", "HALF_OPEN->CLOSED"}, transitions)
}

func TestConcurrentUse(t *testing.T) {
	b := New(Config{FailureThreshold: 1000})
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			if b.Allow() {
				if i%2 == 0 {
					b.RecordSuccess()
				} else {
					b.RecordFailure(CategoryOther)
				}
			}
			_ = b.Snapshot()
		}(i)
	}
	wg.Wait()
	assert.Equal(t, StateClosed, b.State())
}
