package pubsub

import (
	"context"
	"fmt"
)

// Memory is an in-process Transport. Publish delivers synchronously to the
// listeners in registration order and returns their joined errors.
type Memory struct {
	listeners listeners
}

// NewMemory creates a Memory transport.
func NewMemory() *Memory {
	return &Memory{}
}

func (m *Memory) Publish(ctx context.Context, msg Message) error {
	if err := msg.Validate(); err != nil {
		return fmt.Errorf("publish: %w", err)
	}
	return m.listeners.notify(ctx, msg)
}

func (m *Memory) Listen(cb Callback, filter Filter) {
	m.listeners.add(cb, filter)
}

// Ping always succeeds.
func (m *Memory) Ping(context.Context) error { return nil }
