package license

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

var (
	ErrMalformed   = errors.New("malformed license")
	ErrUnsupported = errors.New("unsupported license format")
	ErrSignature   = errors.New("license signature verify failed")
	ErrDecrypt     = errors.New("license decrypt failed")
	ErrKey         = errors.New("invalid key material")
)

// License is the signed payload. Field order is the canonical encoding order.
type License struct {
	Serial      string    `json:"serial" yaml:"serial"`
	Product     string    `json:"product" yaml:"product"`
	Owner       string    `json:"owner" yaml:"owner"`
	Features    []string  `json:"features" yaml:"features"`
	IssuedAt    time.Time `json:"issued_at" yaml:"issued_at"`
	NotBefore   time.Time `json:"not_before" yaml:"not_before"`
	ExpiresAt   time.Time `json:"expires_at" yaml:"expires_at"`
	MachineCode string    `json:"machine_code" yaml:"machine_code"` // empty = not bound to a machine
}

func (l *License) HasFeature(f string) bool {
	f = strings.TrimSpace(f)
	for _, have := range l.Features {
		if strings.EqualFold(strings.TrimSpace(have), f) {
			return true
		}
	}
	return false
}

// Expectation is what the running installation requires from its license.
type Expectation struct {
	Product     string
	Owner       string
	Features    []string
	MachineCode string
}

// Mismatch is one discrepancy between a license and its Expectation.
type Mismatch struct {
	Field string `json:"field"`
	Want  string `json:"want"`
	Have  string `json:"have"`
}

func (m Mismatch) String() string {
	return fmt.Sprintf("%s: want %q, have %q", m.Field, m.Want, m.Have)
}

const timeLayout = time.RFC3339

// Validate compares lic against exp at now. An empty result means the license fits.
func Validate(lic *License, exp Expectation, now time.Time) []Mismatch {
	var out []Mismatch
	if lic == nil {
		return []Mismatch{{Field: "license", Want: "present", Have: "missing"}}
	}

	if want := strings.TrimSpace(exp.Product); want != "" && !strings.EqualFold(want, strings.TrimSpace(lic.Product)) {
		out = append(out, Mismatch{Field: "product", Want: want, Have: lic.Product})
	}
	if want := strings.TrimSpace(exp.Owner); want != "" && !strings.EqualFold(want, strings.TrimSpace(lic.Owner)) {
		out = append(out, Mismatch{Field: "owner", Want: want, Have: lic.Owner})
	}
	for _, f := range exp.Features {
		if strings.TrimSpace(f) == "" || lic.HasFeature(f) {
			continue
		}
		out = append(out, Mismatch{Field: "feature", Want: f, Have: strings.Join(lic.Features, ",")})
	}

	if !lic.NotBefore.IsZero() && now.Before(lic.NotBefore) {
		out = append(out, Mismatch{Field: "not_before", Want: lic.NotBefore.Format(timeLayout), Have: now.Format(timeLayout)})
	}
	switch {
	case lic.ExpiresAt.IsZero():
		out = append(out, Mismatch{Field: "expires_at", Want: "set", Have: "missing"})
	case now.After(lic.ExpiresAt):
		out = append(out, Mismatch{Field: "expires_at", Want: "after " + now.Format(timeLayout), Have: lic.ExpiresAt.Format(timeLayout)})
	}

	if want := strings.TrimSpace(lic.MachineCode); want != "" {
		have := strings.TrimSpace(exp.MachineCode)
		if have == "" {
			have = "unknown"
		}
		if !strings.EqualFold(want, have) {
			out = append(out, Mismatch{Field: "machine_code", Want: want, Have: have})
		}
	}
	return out
}
