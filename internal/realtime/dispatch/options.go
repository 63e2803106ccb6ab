package dispatch

import (
	"context"

	"github.com/heartmarshall/roomcast/internal/domain"
	"github.com/heartmarshall/roomcast/internal/realtime/scope"
)

// DefaultConcurrency bounds parallel per-recipient deliveries of one dispatch.
const DefaultConcurrency = 16

// Recipient is the per-recipient context handed to the serializer.
type Recipient struct {
	Room  string
	Scope *scope.Scope
}

// Keyed entities get the default {"pk": ...} serialization.
type Keyed interface {
	PrimaryKey() string
}

// Options customizes a Dispatcher. Nil function fields fall back to the
// built-in strategies.
type Options[T any] struct {
	// Rooms lists the rooms a change is broadcast to. Default: the kind.
	Rooms func(action domain.Action, instance T) []string

	// Serialize renders the change for one recipient. Default: {"pk": key}
	// when T implements Keyed.
	Serialize func(ctx context.Context, action domain.Action, instance T, rc Recipient) (any, error)

	// ParticipantsFilter narrows the participants of a room for one change.
	ParticipantsFilter func(scopes []*scope.Scope, instance T, action domain.Action) []*scope.Scope

	// SubscribingRooms lists the rooms a subscribe request joins. Default: the kind.
	SubscribingRooms func(sc *scope.Scope) []string

	// Concurrency bounds parallel deliveries. Default: DefaultConcurrency.
	Concurrency int
}
