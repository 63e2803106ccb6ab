// Package dispatch turns entity mutations into addressed messages for the
// clients subscribed to the affected rooms.
package dispatch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/heartmarshall/roomcast/internal/changefeed"
	"github.com/heartmarshall/roomcast/internal/domain"
	"github.com/heartmarshall/roomcast/internal/realtime/scope"
)

// ErrNoSerializer is returned by New when no serializer is configured and
// the entity type offers no primary key for the default one.
var ErrNoSerializer = errors.New("dispatch: no serializer configured and entity does not implement Keyed")

// Emitter delivers one payload to one physical connection.
type Emitter interface {
	Emit(ctx context.Context, namespace string, payload any, connectionID string) error
}

// SubscriptionSink receives subscribe/unsubscribe requests: the registry
// itself in single-process mode, a replicating sink otherwise.
type SubscriptionSink interface {
	Subscribe(ctx context.Context, room string, sc *scope.Scope) error
	Unsubscribe(ctx context.Context, room string, sc *scope.Scope) error
}

type participantSource interface {
	Participants(room string) []*scope.Scope
}

// Payload is the change notification a subscriber receives.
type Payload struct {
	Method    string        `json:"method"`
	Action    string        `json:"action"`
	Type      domain.Action `json:"type"`
	Status    int           `json:"status"`
	RequestID string        `json:"requestId"`
	Data      any           `json:"data"`
}

// Dispatcher watches one entity kind. It never caches participants: every
// dispatch reads the registry.
type Dispatcher[T any] struct {
	kind        string
	opts        Options[T]
	concurrency int

	participants participantSource
	sink         SubscriptionSink
	emitter      Emitter
	log          *slog.Logger
}

// New creates a Dispatcher for kind. Configuration errors are reported here
// rather than at dispatch time.
func New[T any](
	log *slog.Logger,
	kind string,
	participants participantSource,
	sink SubscriptionSink,
	emitter Emitter,
	opts Options[T],
) (*Dispatcher[T], error) {
	if kind == "" {
		return nil, fmt.Errorf("dispatch: kind is required")
	}
	if participants == nil || sink == nil || emitter == nil {
		return nil, fmt.Errorf("dispatch %s: participants, sink and emitter are required", kind)
	}
	if opts.Serialize == nil {
		if _, ok := any(*new(T)).(Keyed); !ok {
			return nil, fmt.Errorf("%w (kind %s)", ErrNoSerializer, kind)
		}
	}

	concurrency := opts.Concurrency
	if concurrency <= 0 {
		concurrency = DefaultConcurrency
	}

	return &Dispatcher[T]{
		kind:         kind,
		opts:         opts,
		concurrency:  concurrency,
		participants: participants,
		sink:         sink,
		emitter:      emitter,
		log:          log.With("component", "dispatch", "kind", kind),
	}, nil
}

// Kind returns the entity kind this dispatcher watches.
func (d *Dispatcher[T]) Kind() string { return d.kind }

// Rooms returns the rooms a change of instance is broadcast to.
func (d *Dispatcher[T]) Rooms(action domain.Action, instance T) []string {
	if d.opts.Rooms != nil {
		return d.opts.Rooms(action, instance)
	}
	return []string{d.kind}
}

// SubscribingRooms returns the rooms a subscribe request of sc joins.
func (d *Dispatcher[T]) SubscribingRooms(sc *scope.Scope) []string {
	if d.opts.SubscribingRooms != nil {
		return d.opts.SubscribingRooms(sc)
	}
	return []string{d.kind}
}

// Dispatch sends one message per room and participant. Deliveries are
// independent: a failed recipient does not stop the others. The returned
// error joins every per-recipient failure.
func (d *Dispatcher[T]) Dispatch(ctx context.Context, action domain.Action, instance T) error {
	rooms := d.Rooms(action, instance)

	var (
		g    errgroup.Group
		mu   sync.Mutex
		errs []error
		sent int
	)
	g.SetLimit(d.concurrency)

	for _, room := range rooms {
		participants := d.participants.Participants(room)
		if d.opts.ParticipantsFilter != nil {
			participants = d.opts.ParticipantsFilter(participants, instance, action)
		}

		for _, sc := range participants {
			g.Go(func() error {
				err := d.deliver(ctx, action, instance, room, sc)

				mu.Lock()
				defer mu.Unlock()
				if err != nil {
					errs = append(errs, err)
				} else {
					sent++
				}
				return nil
			})
		}
	}
	_ = g.Wait()

	err := errors.Join(errs...)
	if err != nil {
		d.log.WarnContext(ctx, "dispatch partially failed",
			slog.String("action", action.String()),
			slog.Any("rooms", rooms),
			slog.Int("sent", sent),
			slog.Int("failed", len(errs)),
			slog.Any("error", err),
		)
		return err
	}

	d.log.DebugContext(ctx, "dispatched",
		slog.String("action", action.String()),
		slog.Any("rooms", rooms),
		slog.Int("sent", sent),
	)
	return nil
}

func (d *Dispatcher[T]) deliver(ctx context.Context, action domain.Action, instance T, room string, sc *scope.Scope) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("deliver to %s in %s: panic: %v", sc.ConnectionID(), room, r)
		}
	}()

	data, err := d.serialize(ctx, action, instance, Recipient{Room: room, Scope: sc})
	if err != nil {
		return fmt.Errorf("serialize for %s in %s: %w", sc.ConnectionID(), room, err)
	}

	payload := Payload{
		Method:    scope.MethodSubscription,
		Action:    sc.Action(),
		Type:      action,
		Status:    http.StatusOK,
		RequestID: sc.RequestID(),
		Data:      data,
	}

	if err := d.emitter.Emit(ctx, sc.Namespace(), payload, sc.ConnectionID()); err != nil {
		return fmt.Errorf("emit to %s in %s: %w", sc.ConnectionID(), room, err)
	}
	return nil
}

func (d *Dispatcher[T]) serialize(ctx context.Context, action domain.Action, instance T, rc Recipient) (any, error) {
	if d.opts.Serialize != nil {
		return d.opts.Serialize(ctx, action, instance, rc)
	}
	return map[string]any{"pk": any(instance).(Keyed).PrimaryKey()}, nil
}

// Subscribe joins sc to its subscribing rooms. It is all or nothing: when
// one room fails, the rooms already joined are left again.
func (d *Dispatcher[T]) Subscribe(ctx context.Context, sc *scope.Scope) error {
	rooms := d.SubscribingRooms(sc)
	for i, room := range rooms {
		if err := d.sink.Subscribe(ctx, room, sc); err != nil {
			d.leave(ctx, sc, rooms[:i])
			return fmt.Errorf("subscribe %s to %s: %w", sc.RequestID(), room, err)
		}
	}

	d.log.DebugContext(ctx, "subscribed",
		slog.String("connection_id", sc.ConnectionID()),
		slog.String("request_id", sc.RequestID()),
	)
	return nil
}

func (d *Dispatcher[T]) leave(ctx context.Context, sc *scope.Scope, rooms []string) {
	for _, room := range rooms {
		if err := d.sink.Unsubscribe(ctx, room, sc); err != nil {
			d.log.WarnContext(ctx, "roll back subscribe",
				slog.String("connection_id", sc.ConnectionID()),
				slog.String("room", room),
				slog.Any("error", err),
			)
		}
	}
}

// Unsubscribe removes sc from its subscribing rooms. Every room is tried;
// failures are joined.
func (d *Dispatcher[T]) Unsubscribe(ctx context.Context, sc *scope.Scope) error {
	var errs []error
	for _, room := range d.SubscribingRooms(sc) {
		if err := d.sink.Unsubscribe(ctx, room, sc); err != nil {
			errs = append(errs, fmt.Errorf("unsubscribe %s from %s: %w", sc.RequestID(), room, err))
		}
	}
	return errors.Join(errs...)
}

// PostSave is the save-notification callback.
func (d *Dispatcher[T]) PostSave(ctx context.Context, instance T, created bool) {
	// Failures are already logged by Dispatch.
	_ = d.Dispatch(ctx, domain.SaveAction(created), instance)
}

// PostDelete is the delete-notification callback.
func (d *Dispatcher[T]) PostDelete(ctx context.Context, instance T) {
	_ = d.Dispatch(ctx, domain.ActionRemoved, instance)
}

// Connect attaches the dispatcher to a mutation feed.
func (d *Dispatcher[T]) Connect(feed *changefeed.Feed[T]) {
	feed.OnSave(d.PostSave)
	feed.OnDelete(d.PostDelete)
}
