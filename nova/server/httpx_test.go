package server

import (
	"bytes"
	"log"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/VeduStorm/NovaCore/nova/common/config"
)

func TestBuildHTTPServer(t *testing.T) {
	var buf bytes.Buffer
	errL := log.New(&buf, "", 0)

	t.Run("Should serve plain HTTP without a key pair", func(t *testing.T) {
		srv, useTLS := buildHTTPServer(config.ServerCfg{Listen: "127.0.0.1:0"}, http.NotFoundHandler(), errL)
		assert.False(t, useTLS)
		assert.Equal(t, "127.0.0.1:0", srv.Addr)
	})

	t.Run("Should fall back to HTTP when the pair cannot load", func(t *testing.T) {
		_, useTLS := buildHTTPServer(config.ServerCfg{Cert: "/nonexistent.crt", Key: "/nonexistent.key"}, http.NotFoundHandler(), errL)
		assert.False(t, useTLS)
		assert.Contains(t, buf.String(), "tls disabled")
	})
}

func TestListenServe(t *testing.T) {
	ln, err := listen("127.0.0.1:0", 2)
	require.NoError(t, err)

	srv := &http.Server{Handler: http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})}
	errs := serveAsync(srv, ln, false)

	client := &http.Client{Timeout: 5 * time.Second}
	resp, err := client.Get("http://" + ln.Addr().String())
	require.NoError(t, err)
	_ = resp.Body.Close()
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)

	require.NoError(t, srv.Close())
	select {
	case err := <-errs:
		t.Fatalf("unexpected serve error: %v", err)
	case <-time.After(100 * time.Millisecond):
	}
}

func TestListenBadAddr(t *testing.T) {
	_, err := listen("256.0.0.1:bad", 0)
	assert.Error(t, err)
}
