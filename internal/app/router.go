package app

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/heartmarshall/roomcast/internal/auth"
	"github.com/heartmarshall/roomcast/internal/config"
	"github.com/heartmarshall/roomcast/internal/transport/middleware"
	"github.com/heartmarshall/roomcast/internal/transport/rest"
	"github.com/heartmarshall/roomcast/internal/transport/ws"
)

type routerDeps struct {
	log     *slog.Logger
	cfg     config.Config
	jwt     *auth.JWTManager
	limiter *middleware.RateLimiter
	health  *rest.HealthHandler
	widgets *rest.WidgetHandler
	gateway *ws.Gateway
}

func newRouter(d routerDeps) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Chain(
		middleware.RequestID,
		middleware.Recovery(d.log),
		middleware.Logger(d.log),
		middleware.CORS(d.cfg.CORS),
	))

	r.Get("/live", d.health.Live)
	r.Get("/ready", d.health.Ready)
	r.Get("/health", d.health.Health)

	r.Group(func(r chi.Router) {
		r.Use(middleware.Auth(d.jwt))
		d.widgets.Routes(r)

		r.With(d.limiter.Limit(d.cfg.Realtime.ConnectsPerMinute)).
			Method(http.MethodGet, "/ws", d.gateway)
	})

	return r
}
