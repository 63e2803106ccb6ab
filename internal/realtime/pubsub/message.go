package pubsub

import (
	"encoding/json"
	"fmt"

	"github.com/heartmarshall/roomcast/internal/domain"
	"github.com/heartmarshall/roomcast/internal/realtime/scope"
)

// MessageType discriminates bus messages.
type MessageType string

const (
	TypeSubscribe   MessageType = "subscribe"
	TypeUnsubscribe MessageType = "unsubscribe"
	TypeDisconnect  MessageType = "disconnect"
	TypeData        MessageType = "data"
)

// Message is the envelope carried on the bus. Control messages use Room and
// Scope (a disconnect uses ConnectionID); data messages use Data and Filter.
type Message struct {
	Type         MessageType       `json:"type"`
	Room         string            `json:"room,omitempty"`
	Scope        *scope.Wire       `json:"scope,omitempty"`
	ConnectionID string            `json:"connectionId,omitempty"`
	Origin       string            `json:"origin,omitempty"`
	Data         json.RawMessage   `json:"data,omitempty"`
	Filter       map[string]string `json:"filter,omitempty"`
}

// IsControl reports whether m mutates registries rather than carrying data.
func (m Message) IsControl() bool {
	switch m.Type {
	case TypeSubscribe, TypeUnsubscribe, TypeDisconnect:
		return true
	}
	return false
}

// Validate checks that the fields required by the message type are present.
func (m Message) Validate() error {
	switch m.Type {
	case TypeSubscribe, TypeUnsubscribe:
		if m.Room == "" {
			return domain.NewValidationError("room", "required")
		}
		if m.Scope == nil {
			return domain.NewValidationError("scope", "required")
		}
	case TypeDisconnect:
		if m.ConnectionID == "" {
			return domain.NewValidationError("connectionId", "required")
		}
	case TypeData:
	default:
		return domain.NewValidationError("type", fmt.Sprintf("unknown message type %q", m.Type))
	}
	return nil
}
