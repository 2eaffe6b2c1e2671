package logx

import (
	"bytes"
	"fmt"
	"io"
	"strings"

	"github.com/gin-gonic/gin"
)

var ginExclude = []string{
	"github.com/gin-gonic/gin", "/gin-gonic/gin",
	"/net/http", "runtime/", "/logx/",
}

// InstallGin routes gin's own writers and debug printers through the logx format.
func InstallGin() {
	gr := &ginRewriter{
		infoW: levelWriter{min: Info, dst: infoWriter},
		errW:  levelWriter{min: Error, dst: errWriter},
	}
	gin.DefaultWriter = gr
	gin.DefaultErrorWriter = gr

	gin.DebugPrintRouteFunc = func(method, path, handler string, nHandlers int) {
		msg := fmt.Sprintf("%-6s %-30s --> %s (%d handlers)", method, path, handler, nHandlers)
		writeLines(gr.infoW, Debug, findCaller(ginExclude, 1), "gin", msg)
	}
	gin.DebugPrintFunc = func(format string, values ...any) {
		lvl, msg := ginDetect(fmt.Sprintf(format, values...))
		dst := gr.infoW
		if lvl >= Error {
			dst = gr.errW
		}
		writeLines(dst, lvl, findCaller(ginExclude, 1), "gin", msg)
	}
}

type ginRewriter struct {
	infoW io.Writer
	errW  io.Writer
}

func (w *ginRewriter) Write(p []byte) (int, error) {
	for _, ln := range bytes.Split(p, []byte{'\n'}) {
		ln = bytes.TrimSpace(ln)
		if len(ln) == 0 {
			continue
		}
		lvl, msg := ginDetect(string(ln))
		dst := w.infoW
		if lvl >= Error {
			dst = w.errW
		}
		writeLines(dst, lvl, findCaller(ginExclude, 1), "gin", msg)
	}
	// gin treats short writes as failures; report the input as consumed.
	return len(p), nil
}

func ginDetect(s string) (Level, string) {
	switch {
	case strings.Contains(s, "[WARNING]") || strings.Contains(s, "[WARN]"):
		return Warn, stripGinPrefix(s)
	case strings.Contains(s, "[ERROR]"):
		return Error, stripGinPrefix(s)
	case strings.HasPrefix(s, "[GIN-debug]") || strings.Contains(s, "-->"):
		return Debug, stripGinPrefix(s)
	case strings.HasPrefix(s, "- ") || strings.HasPrefix(s, " - "):
		return Info, strings.TrimSpace(strings.TrimPrefix(strings.TrimPrefix(s, "- "), " - "))
	default:
		return Info, stripGinPrefix(s)
	}
}

func stripGinPrefix(s string) string {
	for i := 0; i < 2; i++ {
		if !strings.HasPrefix(s, "[") {
			break
		}
		j := strings.Index(s, "]")
		if j < 0 || j+1 >= len(s) {
			break
		}
		s = strings.TrimSpace(s[j+1:])
	}
	return s
}
