package cmd

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"gopkg.in/yaml.v3"

	"github.com/VeduStorm/NovaCore/nova/common"
	"github.com/VeduStorm/NovaCore/nova/common/license"
	"github.com/VeduStorm/NovaCore/nova/common/logx"
)

var ops = logx.New(logx.WithPrefix("ops"))

const (
	EnvSigningKey = "NOVACORE_SIGNING_KEY"
	EnvAESKey     = "NOVACORE_AES_KEY"
	EnvAAD        = "NOVACORE_AAD"
)

var ErrSigningKeyMissing = errors.New(EnvSigningKey + " not set")

/********** license issue **********/

// IssueRequest is the license payload plus how to encode it.
type IssueRequest struct {
	license.License `yaml:",inline"`

	Format    string `json:"format" yaml:"format"`
	Algo      string `json:"algo" yaml:"algo"`
	ValidDays int    `json:"valid_days" yaml:"valid_days"` // used when expires_at is empty
}

// LoadIssueRequest reads a JSON or YAML (by extension) issue request.
func LoadIssueRequest(p string) (*IssueRequest, error) {
	b, err := os.ReadFile(filepath.Clean(p))
	if err != nil {
		return nil, fmt.Errorf("read request: %w", err)
	}
	var req IssueRequest
	switch strings.ToLower(filepath.Ext(p)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(b, &req)
	default:
		err = json.Unmarshal(b, &req)
	}
	if err != nil {
		return nil, fmt.Errorf("parse request %s: %w", p, err)
	}
	return &req, nil
}

// Normalize fills serial, issued_at and expires_at and checks the required fields.
func (r *IssueRequest) Normalize(now time.Time) error {
	r.Product = strings.TrimSpace(r.Product)
	r.Owner = strings.TrimSpace(r.Owner)
	if r.Product == "" || r.Owner == "" {
		return errors.New("request: product and owner required")
	}
	if strings.TrimSpace(r.Serial) == "" {
		var b [6]byte
		if _, err := rand.Read(b[:]); err != nil {
			return err
		}
		r.Serial = "NC-" + strings.ToUpper(hex.EncodeToString(b[:]))
	}
	if r.IssuedAt.IsZero() {
		r.IssuedAt = now.UTC().Truncate(time.Second)
	}
	if r.ExpiresAt.IsZero() {
		if r.ValidDays <= 0 {
			return errors.New("request: expires_at or valid_days required")
		}
		r.ExpiresAt = r.IssuedAt.AddDate(0, 0, r.ValidDays)
	}
	if !r.NotBefore.IsZero() && !r.ExpiresAt.After(r.NotBefore) {
		return errors.New("request: expires_at must be after not_before")
	}
	r.MachineCode = strings.ToUpper(strings.TrimSpace(r.MachineCode))
	return nil
}

// IssueOptionsFromEnv reads the signing material from env.
func IssueOptionsFromEnv(env func(string) string) (license.IssueOptions, error) {
	raw := strings.TrimSpace(env(EnvSigningKey))
	if raw == "" {
		return license.IssueOptions{}, ErrSigningKeyMissing
	}
	sk, err := license.ParseEd25519PrivateKey(raw)
	if err != nil {
		return license.IssueOptions{}, err
	}
	opt := license.IssueOptions{SigningKey: sk, AAD: license.ParseAAD(common.AAD)}
	if v := strings.TrimSpace(env(EnvAESKey)); v != "" {
		if opt.SecretKey, err = license.ParseAES256Key(v); err != nil {
			return license.IssueOptions{}, err
		}
	}
	if v := strings.TrimSpace(env(EnvAAD)); v != "" {
		opt.AAD = license.ParseAAD(v)
	}
	return opt, nil
}

// IssueFromRequest issues a license for the request file and writes it to out (stdout when blank).
func IssueFromRequest(reqPath, out string, env func(string) string) error {
	req, err := LoadIssueRequest(reqPath)
	if err != nil {
		return err
	}
	if err := req.Normalize(time.Now()); err != nil {
		return err
	}
	opt, err := IssueOptionsFromEnv(env)
	if err != nil {
		return err
	}
	opt.Format = req.Format
	opt.Algo = req.Algo

	token, err := license.Issue(req.License, opt)
	if err != nil {
		return fmt.Errorf("issue: %w", err)
	}
	if out == "" {
		_, err = fmt.Fprintln(os.Stdout, token)
		return err
	}
	if err := os.MkdirAll(filepath.Dir(out), 0o755); err != nil {
		return err
	}
	if err := os.WriteFile(out, []byte(token+"\n"), 0o600); err != nil {
		return err
	}
	ops.Infof("[issue] serial=%s product=%s owner=%s expires=%s -> %s",
		req.Serial, req.Product, req.Owner, req.ExpiresAt.Format(time.RFC3339), out)
	return nil
}

/********** keys / machine **********/

func Keygen(w io.Writer) error {
	pk, sk, err := license.GenerateEd25519Key()
	if err != nil {
		return err
	}
	aesB64, aesHex, err := license.GenerateAES256KeyStrings()
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(w, "public_key:  %s\nsigning_key: %s\naes_key:     %s\naes_key_hex: %s\n",
		license.EncodeKey(pk), license.EncodeKey(sk.Seed()), aesB64, aesHex)
	return err
}

func Machine(w io.Writer) error {
	mc, err := common.MachineCode()
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(w, mc)
	return err
}
