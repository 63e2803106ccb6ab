package pubsub

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/cespare/xxhash/v2"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"

	"github.com/heartmarshall/roomcast/internal/realtime/registry"
	"github.com/heartmarshall/roomcast/internal/realtime/scope"
)

const (
	DefaultChannel        = "ROOMCAST_SOCKET_MANAGER"
	DefaultWorkers        = 4
	DefaultQueueSize      = 1024
	DefaultBackoffInitial = time.Second
	DefaultBackoffMax     = 60 * time.Second
)

// Client is the subset of the go-redis client the transport uses.
type Client interface {
	Publish(ctx context.Context, channel string, message any) *redis.IntCmd
	Subscribe(ctx context.Context, channels ...string) *redis.PubSub
	Ping(ctx context.Context) *redis.StatusCmd
}

// LocalRegistry is the registry that inbound control messages mutate.
type LocalRegistry interface {
	Subscribe(room string, sc *scope.Scope)
	Unsubscribe(room string, sc *scope.Scope) error
	DisconnectAll(pred registry.Predicate) []string
}

// ScopeDecoder rebuilds scopes carried by control messages.
type ScopeDecoder interface {
	FromWire(ctx context.Context, w scope.Wire) (*scope.Scope, error)
}

// RedisOptions configures a Redis transport. Zero values take defaults.
// QueueSize bounds the control queue of each worker.
type RedisOptions struct {
	Channel        string
	NodeID         string
	Workers        int
	QueueSize      int
	BackoffInitial time.Duration
	BackoffMax     time.Duration
}

type subscription interface {
	ReceiveMessage(ctx context.Context) (*redis.Message, error)
	Close() error
}

// Redis is a Transport over one Redis pub/sub channel. Run must be running
// for inbound messages to be processed.
type Redis struct {
	client   Client
	registry LocalRegistry
	scopes   ScopeDecoder
	opts     RedisOptions
	log      *slog.Logger

	listeners listeners
	control   []chan Message
	backoff   backoff.BackOff

	subscribe func(ctx context.Context, channel string) (subscription, error)
	sleep     func(ctx context.Context, d time.Duration) error

	mu     sync.Mutex
	active subscription
}

// NewRedis creates a Redis transport.
func NewRedis(log *slog.Logger, client Client, reg LocalRegistry, scopes ScopeDecoder, opts RedisOptions) *Redis {
	if opts.Channel == "" {
		opts.Channel = DefaultChannel
	}
	if opts.Workers <= 0 {
		opts.Workers = DefaultWorkers
	}
	if opts.QueueSize <= 0 {
		opts.QueueSize = DefaultQueueSize
	}

	control := make([]chan Message, opts.Workers)
	for i := range control {
		control[i] = make(chan Message, opts.QueueSize)
	}

	r := &Redis{
		client:   client,
		registry: reg,
		scopes:   scopes,
		opts:     opts,
		log:      log.With("component", "pubsub", "channel", opts.Channel, "node", opts.NodeID),
		control:  control,
		backoff:  newBackoff(opts.BackoffInitial, opts.BackoffMax),
		sleep:    sleepCtx,
	}
	r.subscribe = r.subscribeClient
	return r
}

// newBackoff yields doubling delays without jitter, capped at ceiling and
// never giving up. Non-positive values fall back to the defaults.
func newBackoff(initial, ceiling time.Duration) backoff.BackOff {
	if initial <= 0 {
		initial = DefaultBackoffInitial
	}
	if ceiling <= 0 {
		ceiling = DefaultBackoffMax
	}

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = initial
	b.Multiplier = 2
	b.MaxInterval = max(initial, ceiling)
	b.RandomizationFactor = 0
	b.MaxElapsedTime = 0
	b.Reset()
	return b
}

// Publish sends msg on the channel. A failed publish is retried once on a
// fresh pooled connection; the second failure is returned.
func (r *Redis) Publish(ctx context.Context, msg Message) error {
	if err := msg.Validate(); err != nil {
		return fmt.Errorf("publish: %w", err)
	}
	if msg.Origin == "" {
		msg.Origin = r.opts.NodeID
	}

	body, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("publish: marshal: %w", err)
	}

	err = r.client.Publish(ctx, r.opts.Channel, body).Err()
	if err == nil {
		return nil
	}
	if ctx.Err() != nil {
		return fmt.Errorf("publish %s: %w", msg.Type, err)
	}

	r.log.WarnContext(ctx, "publish failed, retrying", slog.String("type", string(msg.Type)), slog.Any("error", err))

	if err := r.client.Publish(ctx, r.opts.Channel, body).Err(); err != nil {
		return fmt.Errorf("publish %s: %w", msg.Type, err)
	}
	return nil
}

func (r *Redis) Listen(cb Callback, filter Filter) {
	r.listeners.add(cb, filter)
}

// Ping checks the Redis connection.
func (r *Redis) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

// Run subscribes to the channel and processes inbound messages until ctx is
// cancelled. Transient failures are retried with backoff; Run returns only
// after ctx is done and the subscription has been released.
func (r *Redis) Run(ctx context.Context) error {
	var workers errgroup.Group
	for _, queue := range r.control {
		workers.Go(func() error {
			r.work(ctx, queue)
			return nil
		})
	}
	defer func() { _ = workers.Wait() }()

	for {
		err := r.listen(ctx)
		if ctx.Err() != nil {
			r.log.InfoContext(ctx, "bus listener stopped")
			return nil
		}

		delay := r.backoff.NextBackOff()
		r.log.WarnContext(ctx, "bus listener failed, reconnecting",
			slog.Any("error", err),
			slog.Duration("delay", delay),
		)
		if err := r.sleep(ctx, delay); err != nil {
			r.log.InfoContext(ctx, "bus listener stopped")
			return nil
		}
	}
}

// Close releases the active subscription, if any. The client itself is
// owned by the caller.
func (r *Redis) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.active == nil {
		return nil
	}
	err := r.active.Close()
	r.active = nil
	return err
}

func (r *Redis) listen(ctx context.Context) error {
	sub, err := r.subscribe(ctx, r.opts.Channel)
	if err != nil {
		return fmt.Errorf("subscribe: %w", err)
	}
	r.backoff.Reset()

	r.mu.Lock()
	r.active = sub
	r.mu.Unlock()

	stop := context.AfterFunc(ctx, func() { _ = r.Close() })
	defer func() {
		stop()
		_ = r.Close()
	}()

	r.log.InfoContext(ctx, "bus subscribed")

	for {
		msg, err := sub.ReceiveMessage(ctx)
		if err != nil {
			return fmt.Errorf("receive: %w", err)
		}
		r.handle(ctx, []byte(msg.Payload))
	}
}

func (r *Redis) subscribeClient(ctx context.Context, channel string) (subscription, error) {
	ps := r.client.Subscribe(ctx, channel)
	if _, err := ps.Receive(ctx); err != nil {
		_ = ps.Close()
		return nil, err
	}
	return ps, nil
}

// handle never blocks the read loop: control messages go to the queue of the
// worker owning their connection, data messages are fanned out inline.
func (r *Redis) handle(ctx context.Context, payload []byte) {
	var msg Message
	if err := json.Unmarshal(payload, &msg); err != nil {
		r.log.ErrorContext(ctx, "malformed bus message", slog.Any("error", err))
		return
	}
	if err := msg.Validate(); err != nil {
		r.log.ErrorContext(ctx, "invalid bus message", slog.Any("error", err))
		return
	}
	if msg.Origin != "" && msg.Origin == r.opts.NodeID {
		return
	}

	if !msg.IsControl() {
		if err := r.listeners.notify(ctx, msg); err != nil {
			r.log.ErrorContext(ctx, "bus listener failed", slog.Any("error", err))
		}
		return
	}

	select {
	case r.control[r.shard(msg)] <- msg:
	default:
		r.log.ErrorContext(ctx, "control queue full, message dropped",
			slog.String("type", string(msg.Type)),
			slog.String("room", msg.Room),
			slog.String("origin", msg.Origin),
		)
	}
}

// shard picks the worker of msg. Messages of one connection always share a
// worker, so they are applied in publish order.
func (r *Redis) shard(msg Message) int {
	key := msg.ConnectionID
	if msg.Scope != nil {
		key = msg.Scope.ConnectionID
	}
	return int(xxhash.Sum64String(key) % uint64(len(r.control)))
}

func (r *Redis) work(ctx context.Context, queue <-chan Message) {
	for {
		select {
		case <-ctx.Done():
			return
		case msg := <-queue:
			if err := r.apply(ctx, msg); err != nil {
				r.log.ErrorContext(ctx, "apply control message",
					slog.String("type", string(msg.Type)),
					slog.String("room", msg.Room),
					slog.String("origin", msg.Origin),
					slog.Any("error", err),
				)
			}
		}
	}
}

func (r *Redis) apply(ctx context.Context, msg Message) (err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("panic: %v", rec)
		}
	}()

	switch msg.Type {
	case TypeSubscribe:
		sc, err := r.scopes.FromWire(ctx, *msg.Scope)
		if err != nil {
			return err
		}
		r.registry.Subscribe(msg.Room, sc)
	case TypeUnsubscribe:
		sc, err := r.scopes.FromWire(ctx, *msg.Scope)
		if err != nil {
			return err
		}
		return r.registry.Unsubscribe(msg.Room, sc)
	case TypeDisconnect:
		r.registry.DisconnectAll(registry.ByConnection(msg.ConnectionID))
	default:
		return errors.New("not a control message")
	}
	return nil
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
