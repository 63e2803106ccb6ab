// Package scope describes one client request as seen by the realtime layer:
// the connection it arrived on, the namespace it addressed, the user behind
// it and the raw fields the client sent.
package scope

import (
	"maps"
	"net/url"
	"time"

	"github.com/google/uuid"

	"github.com/heartmarshall/roomcast/internal/domain"
)

// Raw payload keys with a fixed meaning.
const (
	KeyRequestID = "requestId"
	KeyAction    = "action"
	KeyMethod    = "method"
	KeyData      = "data"
	KeyQuery     = "query"
	KeyHeaders   = "headers"
)

// MethodSubscription is the method carried by change notifications and
// subscribe/unsubscribe requests.
const MethodSubscription = "SUBSCRIPTION"

// Scope is an immutable snapshot of one inbound client message.
// Two scopes denote the same subscription iff their request ids match.
type Scope struct {
	connectionID string
	namespace    string
	user         *domain.User
	raw          map[string]any
	session      *Session
}

// New builds a Scope. raw is copied; when it carries no request id a
// timestamp is generated once and stored in the copy, so the id survives
// serialization to other processes.
func New(connectionID, namespace string, raw map[string]any, user *domain.User, session *Session) *Scope {
	cp := make(map[string]any, len(raw)+1)
	maps.Copy(cp, raw)
	if id, ok := cp[KeyRequestID].(string); !ok || id == "" {
		cp[KeyRequestID] = time.Now().UTC().Format(time.RFC3339Nano)
	}

	return &Scope{
		connectionID: connectionID,
		namespace:    namespace,
		user:         user,
		raw:          cp,
		session:      session,
	}
}

func (s *Scope) ConnectionID() string { return s.connectionID }

func (s *Scope) Namespace() string { return s.namespace }

// User returns the authenticated user, or nil for anonymous connections.
func (s *Scope) User() *domain.User { return s.user }

// UserID returns the user id, or uuid.Nil for anonymous connections.
func (s *Scope) UserID() uuid.UUID {
	if s.user == nil {
		return uuid.Nil
	}
	return s.user.ID
}

func (s *Scope) IsAnonymous() bool { return s.user == nil }

// Session returns the live session of the connection, if known.
func (s *Scope) Session() *Session { return s.session }

func (s *Scope) RequestID() string {
	id, _ := s.raw[KeyRequestID].(string)
	return id
}

func (s *Scope) Action() string {
	a, _ := s.raw[KeyAction].(string)
	return a
}

// Method returns the request method, GET when the client sent none.
func (s *Scope) Method() string {
	if m, ok := s.raw[KeyMethod].(string); ok && m != "" {
		return m
	}
	return "GET"
}

// Data returns a copy of the "data" object of the request, never nil.
func (s *Scope) Data() map[string]any {
	if d, ok := s.raw[KeyData].(map[string]any); ok {
		return maps.Clone(d)
	}
	return map[string]any{}
}

// Headers returns a copy of the client-supplied headers object, never nil.
func (s *Scope) Headers() map[string]any {
	if h, ok := s.raw[KeyHeaders].(map[string]any); ok {
		return maps.Clone(h)
	}
	return map[string]any{}
}

// Query converts the "query" object into url.Values. Array values become
// repeated keys; other values are formatted with their JSON scalar form.
func (s *Scope) Query() url.Values {
	q := url.Values{}
	m, ok := s.raw[KeyQuery].(map[string]any)
	if !ok {
		return q
	}
	for k, v := range m {
		switch vv := v.(type) {
		case []any:
			for _, item := range vv {
				q.Add(k, scalarString(item))
			}
		default:
			q.Add(k, scalarString(vv))
		}
	}
	return q
}

// Get returns a raw field by name.
func (s *Scope) Get(key string) (any, bool) {
	v, ok := s.raw[key]
	return v, ok
}

// String returns a raw string field, or "" when absent or not a string.
func (s *Scope) String(key string) string {
	v, _ := s.raw[key].(string)
	return v
}

// Raw returns a copy of the client-supplied payload.
func (s *Scope) Raw() map[string]any {
	return maps.Clone(s.raw)
}

// SameSubscription reports whether s and other denote the same subscription.
func (s *Scope) SameSubscription(other *Scope) bool {
	return other != nil && s.RequestID() == other.RequestID()
}
