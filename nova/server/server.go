package server

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/VeduStorm/NovaCore/nova/api"
	"github.com/VeduStorm/NovaCore/nova/app"
	"github.com/VeduStorm/NovaCore/nova/common/logx"
)

// Run serves the status API for cfgPath until SIGINT/SIGTERM.
func Run(cfgPath string) error {
	files, err := logx.InitFiles()
	if err != nil {
		return err
	}
	defer files.Close()
	logx.InstallGin()
	info := logx.NewStdInfo()
	errL := logx.NewStdErr()

	a, err := app.New(cfgPath)
	if err != nil {
		return err
	}
	if err := a.Start(); err != nil {
		return err
	}
	info.Println("[boot] started")

	r := api.New(a).Router()

	srv, useTLS := buildHTTPServer(a.Cfg.Server, r, errL)
	ln, err := listen(srv.Addr, a.Cfg.Server.MaxConns)
	if err != nil {
		_ = a.Stop()
		return err
	}
	printListenHints(srv.Addr, useTLS, info)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	serveErr := serveAsync(srv, ln, useTLS)
	select {
	case <-ctx.Done():
		info.Println("[boot] stopping...")
	case err = <-serveErr:
		errL.Printf("[boot] serve: %v", err)
	}

	shutdownAll(srv, a, errL)
	info.Println("[boot] bye")
	return err
}
