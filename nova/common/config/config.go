package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/goccy/go-json"
	"gopkg.in/yaml.v3"

	"github.com/VeduStorm/NovaCore/nova/common"
	"github.com/VeduStorm/NovaCore/nova/common/logx"
)

var (
	ErrConfigNotFound  = errors.New("config not found")
	ErrConfigMalformed = errors.New("config malformed")
)

type KeysCfg struct {
	PublicKey string `json:"public_key" yaml:"public_key"`
	AESKey    string `json:"aes_key" yaml:"aes_key"`
	AAD       string `json:"aad" yaml:"aad"`
}

type Logging struct {
	Level string `json:"level" yaml:"level"`
}

type DBPoolCfg struct {
	MaxOpen        int `json:"max_open" yaml:"max_open"`
	MaxIdle        int `json:"max_idle" yaml:"max_idle"`
	MaxLifetimeSec int `json:"max_lifetime_sec" yaml:"max_lifetime_sec"`
}

type AuditCfg struct {
	Enable bool      `json:"enable" yaml:"enable"`
	Driver string    `json:"driver" yaml:"driver"`
	DSN    string    `json:"dsn" yaml:"dsn"`
	Pool   DBPoolCfg `json:"pool" yaml:"pool"`
}

type TelemetryCfg struct {
	Enable             bool   `json:"enable" yaml:"enable"`
	BaseURL            string `json:"base_url" yaml:"base_url"`
	Token              string `json:"token" yaml:"token"`
	Org                string `json:"org" yaml:"org"`
	Bucket             string `json:"bucket" yaml:"bucket"`
	InsecureSkipVerify bool   `json:"insecure_skip_verify" yaml:"insecure_skip_verify"`
}

type ServerCfg struct {
	Listen             string `json:"listen" yaml:"listen"`
	Cert               string `json:"cert" yaml:"cert"`
	Key                string `json:"key" yaml:"key"`
	SniGuard           string `json:"sni_guard" yaml:"sni_guard"`
	MaxConns           int    `json:"max_conns" yaml:"max_conns"`
	AdminSecret        string `json:"admin_secret" yaml:"admin_secret"`
	TokenTTL           int    `json:"token_ttl" yaml:"token_ttl"` // minutes
	RecheckIntervalSec int    `json:"recheck_interval_sec" yaml:"recheck_interval_sec"`
}

type Config struct {
	License  string   `json:"license" yaml:"license"`
	Product  string   `json:"product" yaml:"product"`
	Owner    string   `json:"owner" yaml:"owner"`
	Features []string `json:"features" yaml:"features"`

	Keys      KeysCfg      `json:"keys" yaml:"keys"`
	Logging   Logging      `json:"logging" yaml:"logging"`
	Audit     AuditCfg     `json:"audit" yaml:"audit"`
	Telemetry TelemetryCfg `json:"telemetry" yaml:"telemetry"`
	Server    ServerCfg    `json:"server" yaml:"server"`
}

const (
	DefaultListen          = "127.0.0.1:14260"
	DefaultTokenTTL        = 120
	DefaultRecheckInterval = 600
	DefaultMaxConns        = 256
)

var log = logx.New(logx.WithPrefix("config"))

// Load reads p (blank means config/config.json), decoding YAML for .yaml/.yml and JSON otherwise.
// It returns the resolved path alongside the config.
func Load(p string) (*Config, string, error) {
	p = common.ResolveConfigPath(p)
	b, err := os.ReadFile(p)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			log.Debugf("no config at %s", p)
			return nil, p, fmt.Errorf("%w: %s", ErrConfigNotFound, p)
		}
		return nil, p, fmt.Errorf("read config %s: %w", p, err)
	}

	c, err := Parse(b, filepath.Ext(p))
	if err != nil {
		return nil, p, fmt.Errorf("%s: %w", p, err)
	}
	return c, p, nil
}

// Parse decodes raw config bytes; ext selects the codec.
func Parse(b []byte, ext string) (*Config, error) {
	var c Config
	switch strings.ToLower(ext) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(b, &c); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrConfigMalformed, err)
		}
	default:
		if err := json.Unmarshal(b, &c); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrConfigMalformed, err)
		}
	}
	c.applyDefaults()
	return &c, nil
}

func (c *Config) applyDefaults() {
	if strings.TrimSpace(c.Keys.PublicKey) == "" {
		c.Keys.PublicKey = common.PK
	}
	if strings.TrimSpace(c.Keys.AESKey) == "" {
		c.Keys.AESKey = common.AESKey
	}
	if strings.TrimSpace(c.Keys.AAD) == "" {
		c.Keys.AAD = common.AAD
	}

	if c.Audit.Driver == "" {
		c.Audit.Driver = "sqlite"
	}
	if c.Audit.DSN == "" && isSQLite(c.Audit.Driver) {
		c.Audit.DSN = defaultSQLiteDSN()
	}

	if c.Server.Listen == "" {
		c.Server.Listen = DefaultListen
	}
	if c.Server.TokenTTL <= 0 {
		c.Server.TokenTTL = DefaultTokenTTL
	}
	if c.Server.RecheckIntervalSec <= 0 {
		c.Server.RecheckIntervalSec = DefaultRecheckInterval
	}
	if c.Server.MaxConns <= 0 {
		c.Server.MaxConns = DefaultMaxConns
	}
}

func isSQLite(driver string) bool {
	d := strings.ToLower(driver)
	return d == "sqlite" || d == "sqlite3"
}

func defaultSQLiteDSN() string {
	base := "/var/lib/" + common.AppName
	if common.IsDesktop() {
		base = "./lib"
	}
	p := filepath.ToSlash(filepath.Join(base, "audit.db"))
	return "file:" + p + "?_busy_timeout=5000&_journal_mode=WAL&_synchronous=NORMAL"
}

// EnsureDirForFileDSN creates the directory behind a file: DSN.
func EnsureDirForFileDSN(dsn string) error {
	if !strings.HasPrefix(dsn, "file:") {
		return nil
	}
	p := strings.TrimPrefix(dsn, "file:")
	if i := strings.IndexByte(p, '?'); i >= 0 {
		p = p[:i]
	}
	if p == "" || strings.HasPrefix(p, ":memory:") {
		return nil
	}
	return os.MkdirAll(filepath.Dir(p), 0o755)
}
