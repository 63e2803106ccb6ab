package scope

import (
	"context"
	"fmt"
	"maps"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/heartmarshall/roomcast/internal/domain"
)

// Session is the live connection state saved by the gateway at connect time.
type Session struct {
	ConnectionID string            `json:"connectionId"`
	UserID       uuid.UUID         `json:"userId"`
	Environ      map[string]string `json:"environ"`
	ConnectedAt  time.Time         `json:"connectedAt"`
}

// SessionStore resolves a connection id to its session.
// Get returns an error wrapping domain.ErrNotFound for unknown connections.
type SessionStore interface {
	Save(ctx context.Context, s Session) error
	Get(ctx context.Context, connectionID string) (*Session, error)
	Delete(ctx context.Context, connectionID string) error
}

// MemorySessions is a process-local SessionStore.
type MemorySessions struct {
	mu       sync.RWMutex
	sessions map[string]Session
}

// NewMemorySessions creates an empty in-memory session store.
func NewMemorySessions() *MemorySessions {
	return &MemorySessions{sessions: make(map[string]Session)}
}

func (m *MemorySessions) Save(_ context.Context, s Session) error {
	s.Environ = maps.Clone(s.Environ)

	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions[s.ConnectionID] = s
	return nil
}

func (m *MemorySessions) Get(_ context.Context, connectionID string) (*Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	s, ok := m.sessions[connectionID]
	if !ok {
		return nil, fmt.Errorf("session %s: %w", connectionID, domain.ErrNotFound)
	}
	s.Environ = maps.Clone(s.Environ)
	return &s, nil
}

func (m *MemorySessions) Delete(_ context.Context, connectionID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, connectionID)
	return nil
}
