package api

import (
	"time"

	"golang.org/x/time/rate"

	"github.com/VeduStorm/NovaCore/nova/app"
	"github.com/VeduStorm/NovaCore/nova/common/logx"
)

var log = logx.New(logx.WithPrefix("api"))

type Server struct {
	App *app.App

	// global cap on /api/license/verify on top of the per-IP guard
	verifyLimiter *rate.Limiter
	now           func() time.Time
}

func New(a *app.App) *Server {
	return &Server{
		App:           a,
		verifyLimiter: rate.NewLimiter(rate.Every(100*time.Millisecond), 20),
		now:           time.Now,
	}
}
