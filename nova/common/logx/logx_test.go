package logx

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseLevel(t *testing.T) {
	cases := map[string]Level{
		"trace":   Trace,
		"DEBUG":   Debug,
		"":        Info,
		" info ":  Info,
		"warning": Warn,
		"silent":  Off,
		"bogus":   Error,
	}
	for in, want := range cases {
		assert.Equal(t, want, ParseLevel(in), "input %q", in)
	}
}

func TestLogger(t *testing.T) {
	t.Run("Should split info and error sinks and keep the prefix", func(t *testing.T) {
		var info, errs bytes.Buffer
		restore := SetOutput(&info, &errs)
		defer restore()

		l := New(WithPrefix("check"), WithLogLevel(Info))
		l.Infof("hello %s", "world")
		l.Errorf("broken")
		l.Debugf("hidden")

		assert.Contains(t, info.String(), "[INFO] check - hello world")
		assert.NotContains(t, info.String(), "hidden")
		assert.Contains(t, errs.String(), "[ERROR] check - broken")
		assert.Contains(t, info.String(), "logx_test.go:")
	})

	t.Run("Should follow the global level when no own level is set", func(t *testing.T) {
		var info bytes.Buffer
		restore := SetOutput(&info, &info)
		defer restore()
		prev := GetLevel()
		defer SetLevel(prev)

		SetLevelString("warn")
		l := New()
		l.Infof("dropped")
		l.Warnf("kept")

		assert.False(t, strings.Contains(info.String(), "dropped"))
		assert.Contains(t, info.String(), "[WARN] - kept")
	})
}

func TestGinDetect(t *testing.T) {
	lvl, msg := ginDetect("[GIN-debug] [WARNING] Running in debug mode")
	assert.Equal(t, Warn, lvl)
	assert.Equal(t, "Running in debug mode", msg)

	lvl, msg = ginDetect("[GIN-debug] GET /api/health --> handler (2 handlers)")
	assert.Equal(t, Debug, lvl)
	assert.Equal(t, "GET /api/health --> handler (2 handlers)", msg)
}
