package app

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/VeduStorm/NovaCore/nova/check"
	"github.com/VeduStorm/NovaCore/nova/common/bruteguard"
	"github.com/VeduStorm/NovaCore/nova/common/config"
	"github.com/VeduStorm/NovaCore/nova/common/logx"
)

type App struct {
	Cfg     *config.Config
	CfgPath string

	*Sinks

	Checker *check.Checker
	Guard   *bruteguard.Guard

	StartedAt time.Time

	last atomic.Pointer[check.Result]

	subMu  sync.Mutex
	subs   map[int]chan *check.Result
	nextID int

	Ctx    context.Context
	Cancel context.CancelFunc
	group  *errgroup.Group

	Log *logx.Logger
}

type Option func(*options)

type options struct {
	checkOpts []check.Option
}

// WithCheckOptions passes extra options to the embedded checker.
func WithCheckOptions(opts ...check.Option) Option {
	return func(o *options) { o.checkOpts = append(o.checkOpts, opts...) }
}

var log = logx.New(logx.WithPrefix("app"))

func New(cfgPath string, opts ...Option) (*App, error) {
	var o options
	for _, fn := range opts {
		fn(&o)
	}

	cfg, cfgP, err := config.Load(cfgPath)
	if err != nil {
		return nil, err
	}
	a := &App{
		Cfg:       cfg,
		CfgPath:   cfgP,
		StartedAt: time.Now(),
		subs:      make(map[int]chan *check.Result),
		Log:       log,
	}
	logx.SetLevelString(cfg.Logging.Level)
	a.Log.Infof("config loaded from %s", cfgP)

	sinks, err := OpenSinks(cfg)
	if err != nil {
		return nil, err
	}
	a.Sinks = sinks
	if a.AuditDB != nil {
		a.Log.Infof("audit db connected (driver=%s), aggregator started (batch=200, flush=1s)", cfg.Audit.Driver)
	} else {
		a.Log.Infof("audit disabled")
	}
	if a.Telemetry != nil {
		a.Log.Infof("telemetry enabled (%s, bucket=%s)", cfg.Telemetry.BaseURL, cfg.Telemetry.Bucket)
	}

	checkOpts := append([]check.Option{check.WithRecorders(sinks.Recorders()...)}, o.checkOpts...)
	a.Checker = check.New(checkOpts...)

	a.Guard = bruteguard.New(bruteguard.Config{
		Window:      10 * time.Minute,
		MaxFails:    5,
		Cooldown:    30 * time.Minute,
		BaseBackoff: 2 * time.Second,
		MaxBackoff:  time.Minute,
		GCInterval:  time.Minute,
		AliveFor:    12 * time.Hour,
	})
	a.Log.Infof("bruteguard ready (maxFails=%d, cooldown=%s)", 5, 30*time.Minute)

	return a, nil
}

/******** lifecycle ********/

func (a *App) Start() error {
	ctx, cancel := context.WithCancel(context.Background())
	a.group, a.Ctx = errgroup.WithContext(ctx)
	a.Cancel = cancel

	a.Recheck(a.Ctx)

	every := time.Duration(a.Cfg.Server.RecheckIntervalSec) * time.Second
	a.group.Go(func() error {
		a.recheckLoop(a.Ctx, every)
		return nil
	})
	a.Log.Infof("recheck loop started (interval=%s)", every)
	return nil
}

func (a *App) recheckLoop(ctx context.Context, every time.Duration) {
	tk := time.NewTicker(every)
	defer tk.Stop()
	for {
		select {
		case <-ctx.Done():
			a.Log.Debugf("recheck loop exit")
			return
		case <-tk.C:
			a.Recheck(ctx)
		}
	}
}

func (a *App) Stop() error {
	if a.Cancel != nil {
		a.Cancel()
	}
	var err error
	if a.group != nil {
		err = a.group.Wait()
	}

	a.subMu.Lock()
	for id, ch := range a.subs {
		close(ch)
		delete(a.subs, id)
	}
	a.subMu.Unlock()

	a.Sinks.Close()
	return err
}

/******** checks ********/

// Recheck runs a no-exit check of the configured file, stores and publishes the result.
func (a *App) Recheck(ctx context.Context) *check.Result {
	res, err := a.Checker.Check(ctx, a.CfgPath, check.ModeNoExit)
	if err != nil {
		a.Log.Errorf("recheck: %v", err)
		res = &check.Result{Mode: check.ModeNoExit, ConfigPath: a.CfgPath, CheckedAt: time.Now(), Error: err.Error()}
	}
	a.last.Store(res)
	a.publish(res)
	return res
}

// Last returns the most recent recheck result, nil before the first one.
func (a *App) Last() *check.Result { return a.last.Load() }

/******** subscriptions ********/

// Subscribe delivers every new result until cancel is called or the app stops.
// Slow subscribers miss results rather than block the publisher.
func (a *App) Subscribe() (<-chan *check.Result, func()) {
	ch := make(chan *check.Result, 8)
	a.subMu.Lock()
	id := a.nextID
	a.nextID++
	a.subs[id] = ch
	a.subMu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			a.subMu.Lock()
			if c, ok := a.subs[id]; ok {
				close(c)
				delete(a.subs, id)
			}
			a.subMu.Unlock()
		})
	}
}

func (a *App) publish(res *check.Result) {
	a.subMu.Lock()
	defer a.subMu.Unlock()
	for id, ch := range a.subs {
		select {
		case ch <- res:
		default:
			a.Log.Debugf("subscriber %d lagging, result dropped", id)
		}
	}
}
