package logx

import (
	"bytes"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/VeduStorm/NovaCore/nova/common"
)

/******** Levels ********/
type Level int32

const (
	Trace Level = iota
	Debug
	Info
	Warn
	Error
	Off
)

const tsLayout = "2006/01/02 15:04:05.000000"

var globalLevel = int32(Info)

func ParseLevel(s string) Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "trace":
		return Trace
	case "debug":
		return Debug
	case "", "info":
		return Info
	case "warn", "warning":
		return Warn
	case "off", "silent":
		return Off
	default:
		return Error
	}
}

func (l Level) String() string {
	switch l {
	case Trace:
		return "trace"
	case Debug:
		return "debug"
	case Info:
		return "info"
	case Warn:
		return "warn"
	case Off:
		return "off"
	default:
		return "error"
	}
}

func levelTag(l Level) string {
	switch l {
	case Trace:
		return "[TRACE]"
	case Debug:
		return "[DEBUG]"
	case Info:
		return "[INFO]"
	case Warn:
		return "[WARN]"
	default:
		return "[ERROR]"
	}
}

func SetLevel(l Level)        { atomic.StoreInt32(&globalLevel, int32(l)) }
func SetLevelString(s string) { SetLevel(ParseLevel(s)) }
func GetLevel() Level         { return Level(atomic.LoadInt32(&globalLevel)) }
func GetLevelString() string  { return GetLevel().String() }

/******** Sinks ********/

type sinks struct {
	mu   sync.RWMutex
	info io.Writer
	err  io.Writer
}

var out = &sinks{info: os.Stdout, err: os.Stderr}

// SetOutput swaps the process-wide info/error writers and returns a restore func.
func SetOutput(info, errW io.Writer) (restore func()) {
	out.mu.Lock()
	prevInfo, prevErr := out.info, out.err
	out.info, out.err = info, errW
	out.mu.Unlock()
	return func() {
		out.mu.Lock()
		out.info, out.err = prevInfo, prevErr
		out.mu.Unlock()
	}
}

func infoWriter() io.Writer {
	out.mu.RLock()
	defer out.mu.RUnlock()
	return out.info
}

func errWriter() io.Writer {
	out.mu.RLock()
	defer out.mu.RUnlock()
	return out.err
}

func logDir() string {
	if common.IsDesktop() {
		return "log"
	}
	return "/var/log/" + common.AppName
}

func openAppend(path string) (*os.File, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}
	return os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
}

var onceInit atomic.Bool

// Files are the log files opened by InitFiles; Close releases them.
type Files struct {
	Info *os.File
	Err  *os.File
}

func (f *Files) Close() {
	if f == nil {
		return
	}
	if f.Info != nil {
		_ = f.Info.Close()
	}
	if f.Err != nil {
		_ = f.Err.Close()
	}
}

// InitFiles tees the app sinks into info.log / error.log. Only the first call does work.
func InitFiles() (*Files, error) {
	if onceInit.Load() {
		return &Files{}, nil
	}
	d := logDir()
	infoF, err := openAppend(filepath.Join(d, "info.log"))
	if err != nil {
		return nil, err
	}
	errF, err := openAppend(filepath.Join(d, "error.log"))
	if err != nil {
		_ = infoF.Close()
		return nil, err
	}
	SetOutput(io.MultiWriter(os.Stdout, infoF), io.MultiWriter(os.Stderr, errF))
	onceInit.Store(true)
	return &Files{Info: infoF, Err: errF}, nil
}

/******** level-gated writer ********/
type levelWriter struct {
	min Level
	dst func() io.Writer
}

func (w levelWriter) Write(p []byte) (int, error) {
	if GetLevel() <= w.min {
		return w.dst().Write(p)
	}
	return len(p), nil
}

/******** Component Logger ********/
type Logger struct {
	level int32
	pfx   atomic.Value
}

type Option func(*Logger)

func WithPrefix(p string) Option { return func(l *Logger) { l.pfx.Store(strings.TrimSpace(p)) } }
func WithLogLevel(lvl Level) Option {
	return func(l *Logger) { atomic.StoreInt32(&l.level, int32(lvl)) }
}

func New(opts ...Option) *Logger {
	l := &Logger{level: -1}
	l.pfx.Store("")
	for _, o := range opts {
		o(l)
	}
	return l
}

func (l *Logger) effLevel() Level {
	if lv := atomic.LoadInt32(&l.level); lv >= 0 {
		return Level(lv)
	}
	return GetLevel()
}

func (l *Logger) Prefix() string          { return l.pfx.Load().(string) }
func (l *Logger) SetPrefix(p string)      { l.pfx.Store(strings.TrimSpace(p)) }
func (l *Logger) SetLevel(lv Level)       { atomic.StoreInt32(&l.level, int32(lv)) }
func (l *Logger) Enabled(at Level) bool   { return l.shouldLog(at) }
func (l *Logger) shouldLog(at Level) bool { return l.effLevel() <= at && at < Off }

// Only ERROR goes to the error sink.
func (l *Logger) dstFor(at Level) io.Writer {
	if at >= Error {
		return errWriter()
	}
	return infoWriter()
}

func site(skip int) string {
	if _, f, ln, ok := runtime.Caller(skip); ok {
		return fmt.Sprintf("%s:%d", filepath.Base(f), ln)
	}
	return "-"
}

// ts file:line: [LEVEL] prefix - message
func (l *Logger) out(at Level, format string, args ...any) {
	var b bytes.Buffer
	writeHeader(&b, at, site(3), l.Prefix())
	fmt.Fprintf(&b, format, args...)
	b.WriteByte('\n')
	_, _ = l.dstFor(at).Write(b.Bytes())
}

func writeHeader(b *bytes.Buffer, at Level, where, pfx string) {
	ts := time.Now().Format(tsLayout)
	if pfx != "" {
		fmt.Fprintf(b, "%s %s: %s %s - ", ts, where, levelTag(at), pfx)
		return
	}
	fmt.Fprintf(b, "%s %s: %s - ", ts, where, levelTag(at))
}

func (l *Logger) Tracef(format string, args ...any) {
	if l.shouldLog(Trace) {
		l.out(Trace, format, args...)
	}
}
func (l *Logger) Debugf(format string, args ...any) {
	if l.shouldLog(Debug) {
		l.out(Debug, format, args...)
	}
}
func (l *Logger) Infof(format string, args ...any) {
	if l.shouldLog(Info) {
		l.out(Info, format, args...)
	}
}
func (l *Logger) Warnf(format string, args ...any) {
	if l.shouldLog(Warn) {
		l.out(Warn, format, args...)
	}
}
func (l *Logger) Errorf(format string, args ...any) {
	if l.shouldLog(Error) {
		l.out(Error, format, args...)
	}
}

/******** std log helpers (boot logs) ********/
func NewStdInfo() *log.Logger {
	flags := log.LstdFlags | log.Lmicroseconds | log.Lshortfile | log.Lmsgprefix
	return log.New(levelWriter{min: Info, dst: infoWriter}, "[INFO] ", flags)
}

func NewStdErr() *log.Logger {
	flags := log.LstdFlags | log.Lmicroseconds | log.Lshortfile | log.Lmsgprefix
	return log.New(levelWriter{min: Error, dst: errWriter}, "[ERROR] ", flags)
}

/******** Stack helper: first frame outside the excluded libraries ********/
func findCaller(excludes []string, additionalSkip int) string {
	pcs := make([]uintptr, 64)
	n := runtime.Callers(2+additionalSkip, pcs)
	frames := runtime.CallersFrames(pcs[:n])
	for {
		fr, more := frames.Next()
		if fr.File != "" {
			skip := false
			for _, e := range excludes {
				if strings.Contains(fr.File, e) {
					skip = true
					break
				}
			}
			if !skip {
				return fmt.Sprintf("%s:%d", filepath.Base(fr.File), fr.Line)
			}
		}
		if !more {
			break
		}
	}
	return "-"
}

// writeLines prefixes each non-blank line of msg with the standard header.
func writeLines(dst io.Writer, lvl Level, where, pfx, msg string) int {
	written := 0
	for _, line := range strings.Split(strings.TrimRight(msg, "\n"), "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		var b bytes.Buffer
		writeHeader(&b, lvl, where, pfx)
		b.WriteString(line)
		b.WriteByte('\n')
		m, _ := dst.Write(b.Bytes())
		written += m
	}
	return written
}
