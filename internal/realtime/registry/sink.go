package registry

import (
	"context"

	"github.com/heartmarshall/roomcast/internal/realtime/scope"
)

// LocalSink applies subscription changes straight to a Registry. It is the
// subscription sink of single-process deployments.
type LocalSink struct {
	reg *Registry
}

// NewLocalSink creates a LocalSink over reg.
func NewLocalSink(reg *Registry) *LocalSink {
	return &LocalSink{reg: reg}
}

func (s *LocalSink) Subscribe(_ context.Context, room string, sc *scope.Scope) error {
	s.reg.Subscribe(room, sc)
	return nil
}

func (s *LocalSink) Unsubscribe(_ context.Context, room string, sc *scope.Scope) error {
	return s.reg.Unsubscribe(room, sc)
}

// Disconnect drops every subscription held by the connection and returns
// the rooms that lost a subscriber.
func (s *LocalSink) Disconnect(_ context.Context, connectionID string) ([]string, error) {
	return s.reg.DisconnectAll(ByConnection(connectionID)), nil
}
