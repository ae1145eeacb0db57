package chi_test

import (
	"testing"
	"time"

	"github.com/fwojciec/chat/chi"
	"github.com/stretchr/testify/assert"
)

// clock is a manually advanced time source.
type clock struct{ t time.Time }

func newClock() *clock { return &clock{t: time.Unix(1_700_000_000, 0)} }

func (c *clock) now() time.Time          { return c.t }
func (c *clock) advance(d time.Duration) { c.t = c.t.Add(d) }

func TestLimiter_Allow(t *testing.T) {
	t.Parallel()
	l := chi.NewLimiter(chi.LimiterConfig{Rate: 0.001, Burst: 2})

	assert.True(t, l.Allow("a"))
	assert.True(t, l.Allow("a"))
	assert.False(t, l.Allow("a"))
	assert.True(t, l.Allow("b"))
}

func TestLimiter_EvictsIdleClients(t *testing.T) {
	t.Parallel()
	c := newClock()
	l := chi.NewLimiter(chi.LimiterConfig{Rate: 10, Burst: 1, IdleTimeout: time.Minute})
	chi.SetLimiterClock(l, c.now)

	for _, key := range []string{"a", "b", "c"} {
		assert.True(t, l.Allow(key))
	}
	assert.Equal(t, 3, l.Len())

	c.advance(30 * time.Second)
	assert.True(t, l.Allow("a"))

	c.advance(45 * time.Second)
	assert.True(t, l.Allow("d"))
	// b and c were idle for 75s; a for 45s.
	assert.Equal(t, 2, l.Len())
}

func TestLimiter_IdleTimeoutCoversRefill(t *testing.T) {
	t.Parallel()
	c := newClock()
	// A full bucket takes 100s to refill, longer than the idle timeout.
	l := chi.NewLimiter(chi.LimiterConfig{Rate: 0.05, Burst: 5, IdleTimeout: time.Second})
	chi.SetLimiterClock(l, c.now)

	for range 5 {
		assert.True(t, l.Allow("a"))
	}
	assert.False(t, l.Allow("a"))

	c.advance(10 * time.Second)
	assert.True(t, l.Allow("b"))
	assert.False(t, l.Allow("a"), "eviction must not reset a's bucket")
	assert.Equal(t, 2, l.Len())
}
