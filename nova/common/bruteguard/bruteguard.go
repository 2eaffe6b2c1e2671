package bruteguard

import (
	"strings"
	"sync"
	"time"

	"github.com/VeduStorm/NovaCore/nova/common/logx"
)

/********** Config **********/
type Config struct {
	// Window after the last failure at which the fail count soft-resets; locks stay.
	Window time.Duration

	// MaxFails locks the key for Cooldown; below it each failure backs off exponentially.
	MaxFails    int
	Cooldown    time.Duration
	BaseBackoff time.Duration
	MaxBackoff  time.Duration

	GCInterval time.Duration
	AliveFor   time.Duration
}

func DefaultConfig() Config {
	return Config{
		Window:      15 * time.Minute,
		MaxFails:    10,
		Cooldown:    15 * time.Minute,
		BaseBackoff: 2 * time.Second,
		MaxBackoff:  30 * time.Second,
		GCInterval:  time.Minute,
		AliveFor:    24 * time.Hour,
	}
}

type entry struct {
	fails       int
	lastFail    time.Time
	lockedUntil time.Time
	lastSeen    time.Time
}

// Guard throttles repeated failures per key (client IP for license verification).
type Guard struct {
	cfg Config

	mu     sync.Mutex
	store  map[string]*entry
	lastGC time.Time
	now    func() time.Time

	log *logx.Logger
}

func New(cfg Config) *Guard {
	def := DefaultConfig()
	if cfg.Window <= 0 {
		cfg.Window = def.Window
	}
	if cfg.MaxFails <= 0 {
		cfg.MaxFails = def.MaxFails
	}
	if cfg.Cooldown <= 0 {
		cfg.Cooldown = def.Cooldown
	}
	if cfg.BaseBackoff <= 0 {
		cfg.BaseBackoff = def.BaseBackoff
	}
	if cfg.MaxBackoff <= 0 {
		cfg.MaxBackoff = def.MaxBackoff
	}
	if cfg.GCInterval <= 0 {
		cfg.GCInterval = def.GCInterval
	}
	if cfg.AliveFor <= 0 {
		cfg.AliveFor = def.AliveFor
	}
	return &Guard{
		cfg:   cfg,
		store: make(map[string]*entry, 256),
		now:   time.Now,
		log:   logx.New(logx.WithPrefix("bruteguard")),
	}
}

// SetClock replaces the time source.
func (g *Guard) SetClock(now func() time.Time) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.now = now
}

// Allow reports whether key may try again and, if not, how long to wait.
func (g *Guard) Allow(key string) (ok bool, retryAfter time.Duration) {
	key = strings.TrimSpace(key)
	if key == "" {
		return true, 0
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	g.gcIfNeeded()

	now := g.now()
	e := g.get(key, now)
	if e != nil && e.lockedUntil.After(now) {
		wait := e.lockedUntil.Sub(now)
		g.log.Debugf("BLOCK key=%q wait=%s", key, wait)
		return false, wait
	}
	return true, 0
}

// Fail counts one failure for key and extends its lock.
func (g *Guard) Fail(key string) {
	key = strings.TrimSpace(key)
	if key == "" {
		return
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	g.gcIfNeeded()

	now := g.now()
	e := g.get(key, now)
	if e == nil {
		e = &entry{}
		g.store[key] = e
	}
	e.fails++
	e.lastFail = now
	e.lastSeen = now

	if e.fails >= g.cfg.MaxFails {
		e.lockedUntil = now.Add(g.cfg.Cooldown)
		g.log.Debugf("COOL-DOWN key=%q fails=%d until=%s", key, e.fails, e.lockedUntil.Format(time.RFC3339))
		return
	}
	backoff := g.cfg.BaseBackoff
	for i := 1; i < e.fails; i++ {
		backoff *= 2
		if backoff >= g.cfg.MaxBackoff {
			backoff = g.cfg.MaxBackoff
			break
		}
	}
	if until := now.Add(backoff); until.After(e.lockedUntil) {
		e.lockedUntil = until
	}
	g.log.Debugf("FAIL key=%q fails=%d backoff=%s", key, e.fails, backoff)
}

// Success clears the fail count and any lock of key.
func (g *Guard) Success(key string) {
	g.Clear(key)
}

type Snapshot struct {
	Fails       int
	LockedUntil time.Time
}

func (g *Guard) Peek(key string) Snapshot {
	g.mu.Lock()
	defer g.mu.Unlock()
	if e := g.get(strings.TrimSpace(key), g.now()); e != nil {
		return Snapshot{Fails: e.fails, LockedUntil: e.lockedUntil}
	}
	return Snapshot{}
}

func (g *Guard) Stats() (keys int, blocked int) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.gcIfNeeded()
	now := g.now()
	for _, e := range g.store {
		keys++
		if e.lockedUntil.After(now) {
			blocked++
		}
	}
	return
}

func (g *Guard) Clear(key string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	now := g.now()
	if e := g.get(strings.TrimSpace(key), now); e != nil {
		e.fails = 0
		e.lockedUntil = time.Time{}
		e.lastSeen = now
	}
}

/********** internal **********/

func (g *Guard) get(k string, now time.Time) *entry {
	e := g.store[k]
	if e == nil {
		return nil
	}
	if g.cfg.Window > 0 && !e.lastFail.IsZero() && now.Sub(e.lastFail) > g.cfg.Window {
		e.fails = 0
	}
	e.lastSeen = now
	return e
}

func (g *Guard) gcIfNeeded() {
	now := g.now()
	if now.Sub(g.lastGC) < g.cfg.GCInterval {
		return
	}
	g.lastGC = now
	for k, e := range g.store {
		if now.Sub(e.lastSeen) > g.cfg.AliveFor {
			delete(g.store, k)
		}
	}
}
