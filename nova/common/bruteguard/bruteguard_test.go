package bruteguard

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

type clock struct{ t time.Time }

func (c *clock) now() time.Time          { return c.t }
func (c *clock) advance(d time.Duration) { c.t = c.t.Add(d) }

func newGuard() (*Guard, *clock) {
	c := &clock{t: time.Date(2026, 10, 16, 0, 0, 0, 0, time.UTC)}
	g := New(Config{MaxFails: 3, Cooldown: time.Hour, BaseBackoff: time.Second, MaxBackoff: 4 * time.Second})
	g.SetClock(c.now)
	return g, c
}

func TestGuard(t *testing.T) {
	t.Run("Should back off exponentially before the lock", func(t *testing.T) {
		g, c := newGuard()
		g.Fail("10.0.0.1")
		ok, wait := g.Allow("10.0.0.1")
		assert.False(t, ok)
		assert.Equal(t, time.Second, wait)

		c.advance(time.Second)
		g.Fail("10.0.0.1")
		_, wait = g.Allow("10.0.0.1")
		assert.Equal(t, 2*time.Second, wait)

		ok, _ = g.Allow("10.0.0.2")
		assert.True(t, ok)
	})

	t.Run("Should cool down after MaxFails", func(t *testing.T) {
		g, _ := newGuard()
		for i := 0; i < 3; i++ {
			g.Fail("ip")
		}
		ok, wait := g.Allow("ip")
		assert.False(t, ok)
		assert.Equal(t, time.Hour, wait)
		keys, blocked := g.Stats()
		assert.Equal(t, 1, keys)
		assert.Equal(t, 1, blocked)
	})

	t.Run("Should clear on success", func(t *testing.T) {
		g, _ := newGuard()
		g.Fail("ip")
		g.Success("ip")
		ok, _ := g.Allow("ip")
		assert.True(t, ok)
		assert.Equal(t, 0, g.Peek("ip").Fails)
	})

	t.Run("Should ignore blank keys", func(t *testing.T) {
		g, _ := newGuard()
		g.Fail("  ")
		ok, _ := g.Allow("")
		assert.True(t, ok)
	})
}
