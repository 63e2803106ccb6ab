// Package registry holds the process-local mapping from room name to the
// scopes subscribed to it.
package registry

import (
	"fmt"
	"slices"
	"sort"
	"sync"

	"github.com/heartmarshall/roomcast/internal/domain"
	"github.com/heartmarshall/roomcast/internal/realtime/scope"
)

// Predicate selects scopes for DisconnectAll.
type Predicate func(*scope.Scope) bool

// Registry maps room names to ordered, request-id-unique scope sequences.
// It is safe for concurrent use. Rooms disappear when their last
// subscriber leaves.
type Registry struct {
	mu    sync.RWMutex
	rooms map[string][]*scope.Scope
}

// New creates an empty Registry.
func New() *Registry {
	return &Registry{rooms: make(map[string][]*scope.Scope)}
}

// Subscribe appends sc to room, creating the room if needed. A scope whose
// request id is already present in the room replaces the existing entry in
// place; the room never holds two entries for one request id.
func (r *Registry) Subscribe(room string, sc *scope.Scope) {
	r.mu.Lock()
	defer r.mu.Unlock()

	scopes := r.rooms[room]
	for i, existing := range scopes {
		if existing.SameSubscription(sc) {
			scopes[i] = sc
			return
		}
	}
	r.rooms[room] = append(scopes, sc)
}

// Unsubscribe removes every entry of room sharing sc's request id.
// Unknown rooms fail with an error wrapping domain.ErrNotFound.
func (r *Registry) Unsubscribe(room string, sc *scope.Scope) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	scopes, ok := r.rooms[room]
	if !ok {
		return fmt.Errorf("room %q: %w", room, domain.ErrNotFound)
	}

	scopes = slices.DeleteFunc(scopes, sc.SameSubscription)
	r.store(room, scopes)
	return nil
}

// Participants returns a copy of the scopes subscribed to room, in
// subscription order. Unknown rooms yield an empty slice.
func (r *Registry) Participants(room string) []*scope.Scope {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return slices.Clone(r.rooms[room])
}

// DisconnectAll removes every scope matching pred from every room and
// returns the sorted names of the rooms that lost at least one subscriber.
func (r *Registry) DisconnectAll(pred Predicate) []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	var affected []string
	for room, scopes := range r.rooms {
		kept := slices.DeleteFunc(scopes, pred)
		if len(kept) == len(scopes) {
			continue
		}
		affected = append(affected, room)
		r.store(room, kept)
	}

	sort.Strings(affected)
	return affected
}

// Rooms returns the sorted names of all rooms with subscribers.
func (r *Registry) Rooms() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	rooms := make([]string, 0, len(r.rooms))
	for room := range r.rooms {
		rooms = append(rooms, room)
	}
	sort.Strings(rooms)
	return rooms
}

// Len returns the number of scopes subscribed to room.
func (r *Registry) Len(room string) int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.rooms[room])
}

// ByConnection returns a predicate matching scopes of one connection.
func ByConnection(connectionID string) Predicate {
	return func(sc *scope.Scope) bool {
		return sc.ConnectionID() == connectionID
	}
}

// store must be called with mu held.
func (r *Registry) store(room string, scopes []*scope.Scope) {
	if len(scopes) == 0 {
		delete(r.rooms, room)
		return
	}
	r.rooms[room] = scopes
}
