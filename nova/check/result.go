package check

import (
	"context"
	"strings"
	"time"

	"github.com/VeduStorm/NovaCore/nova/common/license"
)

type Mode int

const (
	ModeDefault Mode = iota
	ModeSilent
	ModeNoExit
)

func (m Mode) String() string {
	switch m {
	case ModeSilent:
		return "silent"
	case ModeNoExit:
		return "noexit"
	default:
		return "default"
	}
}

func (m Mode) MarshalText() ([]byte, error) { return []byte(m.String()), nil }

// Result is the outcome of one check.
type Result struct {
	Mode       Mode               `json:"mode"`
	ConfigPath string             `json:"config_path"`
	CheckedAt  time.Time          `json:"checked_at"`
	License    *license.License   `json:"license,omitempty"`
	Mismatches []license.Mismatch `json:"mismatches"`
	Error      string             `json:"error,omitempty"` // set only for recorders when the check failed
}

func (r *Result) OK() bool { return r != nil && r.Error == "" && len(r.Mismatches) == 0 }

// Reason joins the mismatches into one line.
func (r *Result) Reason() string {
	if r == nil {
		return ""
	}
	if r.Error != "" {
		return r.Error
	}
	return r.MismatchText()
}

// MismatchText joins the mismatches with "; ".
func (r *Result) MismatchText() string {
	if r == nil {
		return ""
	}
	parts := make([]string, 0, len(r.Mismatches))
	for _, m := range r.Mismatches {
		parts = append(parts, m.String())
	}
	return strings.Join(parts, "; ")
}

// Recorder receives every outcome, failed checks included.
type Recorder interface {
	Record(ctx context.Context, r *Result) error
}

type RecorderFunc func(ctx context.Context, r *Result) error

func (f RecorderFunc) Record(ctx context.Context, r *Result) error { return f(ctx, r) }
