package pubsub

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/heartmarshall/roomcast/internal/realtime/registry"
	"github.com/heartmarshall/roomcast/internal/realtime/scope"
)

// Replicator is the subscription sink of multi-process deployments. Every
// change is applied to the local registry first and then published so the
// other processes apply it too.
type Replicator struct {
	reg *registry.Registry
	pub Publisher
	log *slog.Logger
}

// NewReplicator creates a Replicator.
func NewReplicator(log *slog.Logger, reg *registry.Registry, pub Publisher) *Replicator {
	return &Replicator{
		reg: reg,
		pub: pub,
		log: log.With("component", "replicator"),
	}
}

// Subscribe undoes the local subscription when it cannot be published, so a
// failed subscribe leaves no process subscribed.
func (r *Replicator) Subscribe(ctx context.Context, room string, sc *scope.Scope) error {
	r.reg.Subscribe(room, sc)

	w := scope.ToWire(sc)
	if err := r.pub.Publish(ctx, Message{Type: TypeSubscribe, Room: room, Scope: &w}); err != nil {
		_ = r.reg.Unsubscribe(room, sc)
		return fmt.Errorf("replicate subscribe to %s: %w", room, err)
	}
	return nil
}

// Unsubscribe fails without publishing when the room is unknown locally.
func (r *Replicator) Unsubscribe(ctx context.Context, room string, sc *scope.Scope) error {
	if err := r.reg.Unsubscribe(room, sc); err != nil {
		return err
	}

	w := scope.ToWire(sc)
	if err := r.pub.Publish(ctx, Message{Type: TypeUnsubscribe, Room: room, Scope: &w}); err != nil {
		return fmt.Errorf("replicate unsubscribe from %s: %w", room, err)
	}
	return nil
}

// Disconnect purges the connection locally and on every other process.
func (r *Replicator) Disconnect(ctx context.Context, connectionID string) ([]string, error) {
	rooms := r.reg.DisconnectAll(registry.ByConnection(connectionID))

	if err := r.pub.Publish(ctx, Message{Type: TypeDisconnect, ConnectionID: connectionID}); err != nil {
		return rooms, fmt.Errorf("replicate disconnect of %s: %w", connectionID, err)
	}

	r.log.DebugContext(ctx, "connection purged",
		slog.String("connection_id", connectionID),
		slog.Any("rooms", rooms),
	)
	return rooms, nil
}
