package server

import (
	"context"
	"errors"
	"log"
	"net"
	"net/http"
	"time"

	"golang.org/x/net/netutil"

	"github.com/VeduStorm/NovaCore/nova/app"
	"github.com/VeduStorm/NovaCore/nova/common/config"
	"github.com/VeduStorm/NovaCore/nova/common/ttls"
)

// buildHTTPServer returns an HTTPS server when cert/key load, else plain HTTP.
func buildHTTPServer(sc config.ServerCfg, handler http.Handler, errLog *log.Logger) (*http.Server, bool) {
	srv := &http.Server{
		Addr:              sc.Listen,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		ErrorLog:          errLog,
	}
	if !ttls.Enabled(sc.Cert, sc.Key) {
		return srv, false
	}
	cfg, err := ttls.LoadServerConfig(sc.Cert, sc.Key, sc.SniGuard)
	if err != nil {
		errLog.Printf("[boot] tls disabled (load error): %v", err)
		return srv, false
	}
	srv.TLSConfig = cfg
	return srv, true
}

// listen caps concurrent connections at maxConns (0 means unlimited).
func listen(addr string, maxConns int) (net.Listener, error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, err
	}
	if maxConns > 0 {
		ln = netutil.LimitListener(ln, maxConns)
	}
	return ln, nil
}

// serveAsync reports the first serve error other than http.ErrServerClosed.
func serveAsync(srv *http.Server, ln net.Listener, useTLS bool) <-chan error {
	ch := make(chan error, 1)
	go func() {
		var err error
		if useTLS {
			err = srv.ServeTLS(ln, "", "")
		} else {
			err = srv.Serve(ln)
		}
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			ch <- err
		}
	}()
	return ch
}

func shutdownAll(srv *http.Server, a *app.App, errLog *log.Logger) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		errLog.Printf("shutdown: %v", err)
	}
	if err := a.Stop(); err != nil {
		errLog.Printf("stop error: %v", err)
	}
}

func printListenHints(bindAddr string, useTLS bool, infoLog *log.Logger) {
	scheme := "http"
	if useTLS {
		scheme = "https"
	}
	host, port, err := net.SplitHostPort(bindAddr)
	if err != nil {
		infoLog.Printf("[boot] listening: %s://%s", scheme, bindAddr)
		return
	}

	var urls []string
	if host != "" && host != "0.0.0.0" && host != "::" {
		urls = append(urls, scheme+"://"+net.JoinHostPort(host, port))
	} else {
		urls = append(urls, scheme+"://"+net.JoinHostPort("127.0.0.1", port))
		if ip := firstLANIPv4(); ip != "" {
			urls = append(urls, scheme+"://"+net.JoinHostPort(ip, port))
		}
	}

	infoLog.Printf("[boot] listening (%s):", scheme)
	for _, u := range urls {
		infoLog.Printf("       -> %s", u)
	}
}

func firstLANIPv4() string {
	ifcs, _ := net.Interfaces()
	for _, itf := range ifcs {
		if itf.Flags&net.FlagUp == 0 || itf.Flags&net.FlagLoopback != 0 {
			continue
		}
		addrs, _ := itf.Addrs()
		for _, a := range addrs {
			var ip net.IP
			switch v := a.(type) {
			case *net.IPNet:
				ip = v.IP
			case *net.IPAddr:
				ip = v.IP
			}
			if ip = ip.To4(); ip == nil {
				continue
			}
			if ip[0] == 127 || (ip[0] == 169 && ip[1] == 254) {
				continue
			}
			return ip.String()
		}
	}
	return ""
}
