// Package app wires configuration, storage, the realtime layer and the HTTP
// surface into a running server.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/heartmarshall/roomcast/internal/adapter/postgres"
	userrepo "github.com/heartmarshall/roomcast/internal/adapter/postgres/user"
	widgetrepo "github.com/heartmarshall/roomcast/internal/adapter/postgres/widget"
	"github.com/heartmarshall/roomcast/internal/auth"
	"github.com/heartmarshall/roomcast/internal/changefeed"
	"github.com/heartmarshall/roomcast/internal/config"
	"github.com/heartmarshall/roomcast/internal/domain"
	"github.com/heartmarshall/roomcast/internal/loader"
	widgetsvc "github.com/heartmarshall/roomcast/internal/service/widget"
	"github.com/heartmarshall/roomcast/internal/transport/middleware"
	"github.com/heartmarshall/roomcast/internal/transport/rest"
	"github.com/heartmarshall/roomcast/internal/transport/ws"
	"github.com/heartmarshall/roomcast/migrations"
)

// Run is the application entry point. It blocks until ctx is cancelled or a
// component fails, then shuts everything down.
func Run(ctx context.Context) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	logger := NewLogger(cfg.Log)
	logger.Info("starting application",
		slog.String("version", BuildVersion()),
		slog.String("log_level", cfg.Log.Level),
		slog.String("realtime_mode", cfg.Realtime.Mode),
	)

	pool, err := postgres.NewPool(ctx, logger, cfg.Database)
	if err != nil {
		return err
	}
	defer pool.Close()

	if cfg.Database.AutoMigrate {
		if err := postgres.Migrate(ctx, logger, pool, migrations.FS); err != nil {
			return err
		}
	}

	users := loader.NewUserLoader(userrepo.New(pool))

	rt, err := newRealtime(ctx, logger, *cfg, users)
	if err != nil {
		return err
	}
	defer rt.close()

	gateway := ws.New(logger, rt.sessions, users, rt.sink, rt.bus, ws.Options{
		SendBuffer:     cfg.Realtime.SendBuffer,
		AllowedOrigins: splitList(cfg.CORS.AllowedOrigins),
	})

	feed := changefeed.New[*domain.Widget](logger, domain.WidgetKind)
	widgets := widgetsvc.NewService(logger, widgetrepo.New(pool), postgres.NewTxManager(pool), feed)

	dispatcher, err := newWidgetDispatcher(logger, rt, gateway, cfg.Realtime.DispatchConcurrency)
	if err != nil {
		return fmt.Errorf("widget dispatcher: %w", err)
	}
	dispatcher.Connect(feed)
	gateway.Handle(WidgetsNamespace, widgetActions(dispatcher, widgets))

	limiter := middleware.NewRateLimiter(time.Minute)
	defer limiter.Stop()

	handler := newRouter(routerDeps{
		log:     logger,
		cfg:     *cfg,
		jwt:     auth.FromConfig(cfg.Auth),
		limiter: limiter,
		health: rest.NewHealthHandler(BuildVersion(),
			rest.Check{Name: "database", Pinger: pool},
			rest.Check{Name: "bus", Pinger: rt.bus},
		),
		widgets: rest.NewWidgetHandler(widgets, logger),
		gateway: gateway,
	})

	srv := &http.Server{
		Addr:         net.JoinHostPort(cfg.Server.Host, strconv.Itoa(cfg.Server.Port)),
		Handler:      handler,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	return serve(ctx, logger, srv, rt, gateway, cfg.Server.ShutdownTimeout)
}

// serve runs the HTTP server and the bus listener until ctx is done or one
// of them fails.
func serve(ctx context.Context, logger *slog.Logger, srv *http.Server, rt *realtime, gateway *ws.Gateway, shutdownTimeout time.Duration) error {
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info("http server listening", slog.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		return rt.run(gctx)
	})

	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down")

		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
		defer cancel()

		if err := gateway.Close(shutdownCtx); err != nil {
			logger.Warn("websocket connections not drained", slog.String("error", err.Error()))
		}
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("http shutdown: %w", err)
		}
		return nil
	})

	err := g.Wait()
	logger.Info("stopped", slog.Any("error", err))
	return err
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
