package domain

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// WidgetKind is the change-source kind used for widget rooms.
const WidgetKind = "widget"

// Widget is the example entity whose mutations are broadcast to subscribers.
type Widget struct {
	ID        uuid.UUID       `db:"id"`
	OwnerID   uuid.UUID       `db:"owner_id"`
	Name      string          `db:"name"`
	Payload   json.RawMessage `db:"payload"`
	CreatedAt time.Time       `db:"created_at"`
	UpdatedAt time.Time       `db:"updated_at"`
}

// PrimaryKey returns the widget id in string form.
func (w *Widget) PrimaryKey() string {
	return w.ID.String()
}
