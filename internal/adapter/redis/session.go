package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/heartmarshall/roomcast/internal/domain"
	"github.com/heartmarshall/roomcast/internal/realtime/scope"
)

const sessionKeyPrefix = "roomcast:session:"

// SessionStore keeps connection sessions in Redis so every process can
// resolve a connection id. Entries expire after ttl.
type SessionStore struct {
	client goredis.Cmdable
	ttl    time.Duration
}

// NewSessionStore creates a SessionStore. A non-positive ttl keeps entries
// until deleted.
func NewSessionStore(client goredis.Cmdable, ttl time.Duration) *SessionStore {
	if ttl < 0 {
		ttl = 0
	}
	return &SessionStore{client: client, ttl: ttl}
}

func (s *SessionStore) Save(ctx context.Context, sess scope.Session) error {
	body, err := json.Marshal(sess)
	if err != nil {
		return fmt.Errorf("marshal session %s: %w", sess.ConnectionID, err)
	}
	if err := s.client.Set(ctx, sessionKey(sess.ConnectionID), body, s.ttl).Err(); err != nil {
		return fmt.Errorf("save session %s: %w", sess.ConnectionID, err)
	}
	return nil
}

func (s *SessionStore) Get(ctx context.Context, connectionID string) (*scope.Session, error) {
	body, err := s.client.Get(ctx, sessionKey(connectionID)).Bytes()
	if err != nil {
		if errors.Is(err, goredis.Nil) {
			return nil, fmt.Errorf("session %s: %w", connectionID, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("get session %s: %w", connectionID, err)
	}

	var sess scope.Session
	if err := json.Unmarshal(body, &sess); err != nil {
		return nil, fmt.Errorf("decode session %s: %w", connectionID, err)
	}
	return &sess, nil
}

func (s *SessionStore) Delete(ctx context.Context, connectionID string) error {
	if err := s.client.Del(ctx, sessionKey(connectionID)).Err(); err != nil {
		return fmt.Errorf("delete session %s: %w", connectionID, err)
	}
	return nil
}

func sessionKey(connectionID string) string {
	return sessionKeyPrefix + connectionID
}
