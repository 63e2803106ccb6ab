package app

import (
	"context"
	"log/slog"

	goredis "github.com/redis/go-redis/v9"

	redisadapter "github.com/heartmarshall/roomcast/internal/adapter/redis"
	"github.com/heartmarshall/roomcast/internal/config"
	"github.com/heartmarshall/roomcast/internal/realtime/pubsub"
	"github.com/heartmarshall/roomcast/internal/realtime/registry"
	"github.com/heartmarshall/roomcast/internal/realtime/scope"
)

type bus interface {
	pubsub.Transport
	Ping(ctx context.Context) error
}

type subscriptionSink interface {
	Subscribe(ctx context.Context, room string, sc *scope.Scope) error
	Unsubscribe(ctx context.Context, room string, sc *scope.Scope) error
	Disconnect(ctx context.Context, connectionID string) ([]string, error)
}

// realtime bundles the subscription state of this process with the bus that
// spans processes.
type realtime struct {
	registry *registry.Registry
	sessions scope.SessionStore
	bus      bus
	sink     subscriptionSink

	run   func(ctx context.Context) error
	close func()
}

func newRealtime(ctx context.Context, log *slog.Logger, cfg config.Config, users scope.UserLoader) (*realtime, error) {
	reg := registry.New()

	if !cfg.Realtime.IsRedis() {
		log.Info("realtime mode", slog.String("mode", config.ModeMemory))
		return &realtime{
			registry: reg,
			sessions: scope.NewMemorySessions(),
			bus:      pubsub.NewMemory(),
			sink:     registry.NewLocalSink(reg),
			run:      func(context.Context) error { return nil },
			close:    func() {},
		}, nil
	}

	client, err := redisadapter.NewClient(ctx, log, cfg.Redis)
	if err != nil {
		return nil, err
	}
	return newRedisRealtime(log, client, reg, cfg.Realtime, users), nil
}

func newRedisRealtime(log *slog.Logger, client *goredis.Client, reg *registry.Registry, cfg config.RealtimeConfig, users scope.UserLoader) *realtime {
	sessions := redisadapter.NewSessionStore(client, cfg.SessionTTL)
	transport := pubsub.NewRedis(log, client, reg, scope.NewReconstructor(sessions, users), pubsub.RedisOptions{
		Channel:        cfg.Channel,
		NodeID:         cfg.NodeID,
		Workers:        cfg.Workers,
		QueueSize:      cfg.QueueSize,
		BackoffInitial: cfg.BackoffInitial,
		BackoffMax:     cfg.BackoffMax,
	})

	log.Info("realtime mode",
		slog.String("mode", config.ModeRedis),
		slog.String("node_id", cfg.NodeID),
		slog.String("channel", cfg.Channel),
	)

	return &realtime{
		registry: reg,
		sessions: sessions,
		bus:      transport,
		sink:     pubsub.NewReplicator(log, reg, transport),
		run:      transport.Run,
		close: func() {
			if err := transport.Close(); err != nil {
				log.Warn("close bus subscription", slog.String("error", err.Error()))
			}
			if err := client.Close(); err != nil {
				log.Warn("close redis client", slog.String("error", err.Error()))
			}
		},
	}
}
