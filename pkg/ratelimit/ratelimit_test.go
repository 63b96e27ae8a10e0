package ratelimit

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeClock advances only when told to.
type fakeClock struct {
	now time.Time
}

func (c *fakeClock) Now() time.Time          { return c.now }
func (c *fakeClock) Advance(d time.Duration) { c.now = c.now.Add(d) }

func newTestLimiter(max int, window time.Duration) (*Limiter, *fakeClock) {
	clock := &fakeClock{now: time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)}
	return New(max, window, WithClock(clock.Now)), clock
}

func TestLimiter_AllowsUpToMax(t *testing.T) {
	l, _ := newTestLimiter(3, time.Minute)

	for i := range 3 {
		res := l.Allow("k")
		assert.True(t, res.Allowed, "request %d", i+1)
	}
	res := l.Allow("k")
	assert.False(t, res.Allowed)
	assert.Equal(t, 0, res.Remaining)
}

func TestLimiter_IndependentKeys(t *testing.T) {
	l, _ := newTestLimiter(1, time.Minute)

	assert.True(t, l.Allow("a").Allowed)
	assert.True(t, l.Allow("b").Allowed)
	assert.False(t, l.Allow("a").Allowed)
}

func TestLimiter_WindowSlides(t *testing.T) {
	l, clock := newTestLimiter(2, time.Minute)

	require.True(t, l.Allow("k").Allowed)
	require.True(t, l.Allow("k").Allowed)
	require.False(t, l.Allow("k").Allowed)

	// Halfway into the next window the previous one still weighs in.
	clock.Advance(90 * time.Second)
	res := l.Allow("k")
	assert.True(t, res.Allowed)

	// After two full idle windows the counters are gone entirely.
	clock.Advance(2 * time.Minute)
	require.True(t, l.Allow("k").Allowed)
	require.True(t, l.Allow("k").Allowed)
}

func TestLimiter_ResetAt(t *testing.T) {
	l, clock := newTestLimiter(1, time.Minute)

	res := l.Allow("k")
	require.True(t, res.Allowed)
	assert.Equal(t, clock.Now().Add(time.Minute), res.ResetAt)
}

func TestLimiter_EvictStale(t *testing.T) {
	store := NewMemoryStorage()
	clock := &fakeClock{now: time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)}
	l := New(1, time.Minute, WithClock(clock.Now), WithStorage(store))

	l.Allow("old")
	clock.Advance(3 * time.Minute)
	l.Allow("fresh")

	l.EvictStale()

	_, ok := store.Load("old")
	assert.False(t, ok)
	_, ok = store.Load("fresh")
	assert.True(t, ok)
}
