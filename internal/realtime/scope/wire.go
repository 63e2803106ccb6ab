package scope

import (
	"context"
	"errors"
	"fmt"
	"maps"

	"github.com/google/uuid"

	"github.com/heartmarshall/roomcast/internal/domain"
)

// Wire is the transport-safe form of a Scope. It carries a durable user id
// instead of the user itself; the receiving process resolves it again.
type Wire struct {
	ConnectionID string         `json:"connectionId"`
	UserID       *uuid.UUID     `json:"userId"`
	RawPayload   map[string]any `json:"rawPayload"`
	Namespace    string         `json:"namespace"`
}

// ToWire converts s to its wire form.
func ToWire(s *Scope) Wire {
	w := Wire{
		ConnectionID: s.connectionID,
		RawPayload:   maps.Clone(s.raw),
		Namespace:    s.namespace,
	}
	if s.user != nil {
		id := s.user.ID
		w.UserID = &id
	}
	return w
}

// UserLoader resolves a user by durable id.
type UserLoader interface {
	GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error)
}

// Reconstructor rebuilds scopes received from other processes.
type Reconstructor struct {
	sessions SessionStore
	users    UserLoader
}

// NewReconstructor creates a Reconstructor.
func NewReconstructor(sessions SessionStore, users UserLoader) *Reconstructor {
	return &Reconstructor{sessions: sessions, users: users}
}

// FromWire rebuilds a Scope. A missing session is tolerated (the scope is
// returned without one); a user id that no longer resolves fails with an
// error wrapping domain.ErrNotFound.
func (r *Reconstructor) FromWire(ctx context.Context, w Wire) (*Scope, error) {
	if w.ConnectionID == "" {
		return nil, domain.NewValidationError("connectionId", "required")
	}

	session, err := r.sessions.Get(ctx, w.ConnectionID)
	if err != nil {
		if !errors.Is(err, domain.ErrNotFound) {
			return nil, fmt.Errorf("load session: %w", err)
		}
		session = nil
	}

	var user *domain.User
	if w.UserID != nil && *w.UserID != uuid.Nil {
		user, err = r.users.GetByID(ctx, *w.UserID)
		if err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				return nil, fmt.Errorf("can't decode scope, user %s does not exist: %w", *w.UserID, domain.ErrNotFound)
			}
			return nil, fmt.Errorf("resolve user %s: %w", *w.UserID, err)
		}
	}

	return New(w.ConnectionID, w.Namespace, w.RawPayload, user, session), nil
}
