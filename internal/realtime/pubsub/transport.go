// Package pubsub carries subscription changes and addressed data between
// processes. Memory serves a single process; Redis spans several.
package pubsub

import (
	"context"
	"encoding/json"
	"fmt"
)

// Transport publishes messages and delivers inbound ones to listeners.
type Transport interface {
	Publish(ctx context.Context, msg Message) error
	Listen(cb Callback, filter Filter)
}

// Publisher is the publishing half of a Transport.
type Publisher interface {
	Publish(ctx context.Context, msg Message) error
}

// PublishData marshals data and publishes it as a data message.
func PublishData(ctx context.Context, t Publisher, data any, filter map[string]string) error {
	raw, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("marshal data: %w", err)
	}
	return t.Publish(ctx, Message{Type: TypeData, Data: raw, Filter: filter})
}
