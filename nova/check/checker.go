package check

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/VeduStorm/NovaCore/nova/common"
	"github.com/VeduStorm/NovaCore/nova/common/config"
	"github.com/VeduStorm/NovaCore/nova/common/license"
	"github.com/VeduStorm/NovaCore/nova/common/logx"
)

var (
	ErrConfigNotFound  = config.ErrConfigNotFound
	ErrConfigMalformed = config.ErrConfigMalformed
	ErrLicenseMissing  = errors.New("license missing from config")
	ErrKeyMaterial     = errors.New("invalid key material")
)

var log = logx.New(logx.WithPrefix("check"))

type Checker struct {
	log         *logx.Logger
	term        *Terminator
	now         func() time.Time
	machineCode func() (string, error)

	mu        sync.RWMutex
	recorders []Recorder
}

type Option func(*Checker)

func WithTerminator(t *Terminator) Option { return func(c *Checker) { c.term = t } }
func WithLogger(l *logx.Logger) Option    { return func(c *Checker) { c.log = l } }
func WithClock(now func() time.Time) Option {
	return func(c *Checker) { c.now = now }
}
func WithMachineCode(f func() (string, error)) Option {
	return func(c *Checker) { c.machineCode = f }
}
func WithRecorders(rs ...Recorder) Option {
	return func(c *Checker) { c.recorders = append(c.recorders, rs...) }
}

func New(opts ...Option) *Checker {
	c := &Checker{
		log:         log,
		term:        NewTerminator(),
		now:         time.Now,
		machineCode: common.MachineCode,
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

func (c *Checker) Terminator() *Terminator { return c.term }

func (c *Checker) AddRecorder(r Recorder) {
	if r == nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.recorders = append(c.recorders, r)
}

/******** Entry points ********/

// Login checks the license at path (blank = config/config.json) and exits on mismatch.
func (c *Checker) Login(ctx context.Context, path string) error {
	_, err := c.Check(ctx, path, ModeDefault)
	return err
}

// LoginSilent is Login without any output unless a mismatch is found.
func (c *Checker) LoginSilent(ctx context.Context, path string) error {
	_, err := c.Check(ctx, path, ModeSilent)
	return err
}

// LoginNoExit reports mismatches through the log but never stops the process.
func (c *Checker) LoginNoExit(ctx context.Context, path string) error {
	_, err := c.Check(ctx, path, ModeNoExit)
	return err
}

// Check runs the whole pipeline. Errors are returned in every mode; only mismatches
// in ModeDefault and ModeSilent reach the terminator.
func (c *Checker) Check(ctx context.Context, path string, mode Mode) (*Result, error) {
	cfg, resolved, err := config.Load(path)
	if err != nil {
		c.record(ctx, &Result{Mode: mode, ConfigPath: resolved, CheckedAt: c.now(), Error: err.Error()})
		return nil, err
	}
	if mode != ModeSilent {
		logx.SetLevelString(cfg.Logging.Level)
	}

	res, err := c.Evaluate(ctx, cfg, cfg.License, mode)
	if err != nil {
		err = fmt.Errorf("%s: %w", resolved, err)
		c.record(ctx, &Result{Mode: mode, ConfigPath: resolved, CheckedAt: c.now(), Error: err.Error()})
		return nil, err
	}
	res.ConfigPath = resolved
	c.record(ctx, res)
	c.report(res)
	return res, nil
}

// Evaluate verifies token against cfg without loading files, recording or terminating.
func (c *Checker) Evaluate(_ context.Context, cfg *config.Config, token string, mode Mode) (*Result, error) {
	if strings.TrimSpace(token) == "" {
		return nil, ErrLicenseMissing
	}
	opt, err := verifyOptions(cfg.Keys)
	if err != nil {
		return nil, err
	}

	res := &Result{Mode: mode, CheckedAt: c.now()}
	lic, err := license.Parse(token, opt)
	if err != nil {
		res.Mismatches = []license.Mismatch{{Field: "signature", Want: "valid", Have: err.Error()}}
		return res, nil
	}
	res.License = lic

	mc, err := c.machineCode()
	if err != nil {
		c.log.Debugf("machine code unavailable: %v", err)
		mc = ""
	}
	res.Mismatches = license.Validate(lic, license.Expectation{
		Product:     cfg.Product,
		Owner:       cfg.Owner,
		Features:    cfg.Features,
		MachineCode: mc,
	}, res.CheckedAt)
	return res, nil
}

func verifyOptions(k config.KeysCfg) (license.VerifyOptions, error) {
	pk, err := license.ParseEd25519PublicKey(k.PublicKey)
	if err != nil {
		return license.VerifyOptions{}, fmt.Errorf("%w: %v", ErrKeyMaterial, err)
	}
	secret, err := license.ParseAES256Key(k.AESKey)
	if err != nil {
		return license.VerifyOptions{}, fmt.Errorf("%w: %v", ErrKeyMaterial, err)
	}
	return license.VerifyOptions{PublicKey: pk, SecretKey: secret, AAD: license.ParseAAD(k.AAD)}, nil
}

func (c *Checker) report(res *Result) {
	if res.OK() {
		if res.Mode == ModeSilent {
			return
		}
		c.log.Infof("license ok: product=%s owner=%s serial=%s expires=%s",
			res.License.Product, res.License.Owner, res.License.Serial, res.License.ExpiresAt.Format(time.RFC3339))
		return
	}

	c.log.Errorf("license mismatch (%d) in %s", len(res.Mismatches), res.ConfigPath)
	for _, m := range res.Mismatches {
		c.log.Errorf("  %s", m)
	}
	if res.Mode == ModeNoExit {
		c.log.Warnf("continuing despite license mismatch")
		return
	}
	c.term.Terminate(res.Reason())
}

func (c *Checker) record(ctx context.Context, res *Result) {
	c.mu.RLock()
	rs := append([]Recorder(nil), c.recorders...)
	c.mu.RUnlock()
	for _, r := range rs {
		if err := r.Record(ctx, res); err != nil {
			c.log.Warnf("record outcome: %v", err)
		}
	}
}

/******** Package-level entry points ********/

var Default = New()

func Login(ctx context.Context, path string) error       { return Default.Login(ctx, path) }
func LoginSilent(ctx context.Context, path string) error { return Default.LoginSilent(ctx, path) }
func LoginNoExit(ctx context.Context, path string) error { return Default.LoginNoExit(ctx, path) }
