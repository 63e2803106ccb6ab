package app

import (
	"context"
	"log/slog"

	"github.com/google/uuid"

	"github.com/heartmarshall/roomcast/internal/domain"
	"github.com/heartmarshall/roomcast/internal/realtime/dispatch"
	"github.com/heartmarshall/roomcast/internal/realtime/scope"
	"github.com/heartmarshall/roomcast/internal/transport/ws"
)

// WidgetsNamespace is the websocket namespace of widget requests.
const WidgetsNamespace = "widgets"

// ownerRoom is the room of the widgets owned by one user.
func ownerRoom(id uuid.UUID) string {
	return domain.WidgetKind + "_" + id.String()
}

// widgetDispatchOptions broadcasts every change to the kind room and to the
// owner room. Clients sending scope "own" follow only their own widgets.
func widgetDispatchOptions(concurrency int) dispatch.Options[*domain.Widget] {
	return dispatch.Options[*domain.Widget]{
		Rooms: func(_ domain.Action, w *domain.Widget) []string {
			return []string{domain.WidgetKind, ownerRoom(w.OwnerID)}
		},
		SubscribingRooms: func(sc *scope.Scope) []string {
			if sc.String("scope") == "own" && !sc.IsAnonymous() {
				return []string{ownerRoom(sc.UserID())}
			}
			return []string{domain.WidgetKind}
		},
		Serialize: func(_ context.Context, action domain.Action, w *domain.Widget, _ dispatch.Recipient) (any, error) {
			data := map[string]any{"pk": w.PrimaryKey()}
			if action != domain.ActionRemoved {
				data["name"] = w.Name
				data["ownerId"] = w.OwnerID.String()
				data["payload"] = w.Payload
			}
			return data, nil
		},
		Concurrency: concurrency,
	}
}

type widgetGetter interface {
	Get(ctx context.Context, id uuid.UUID) (*domain.Widget, error)
}

// widgetActions serves the widgets namespace: subscriptions plus a retrieve
// action for reading a widget over the socket.
func widgetActions(d *dispatch.Dispatcher[*domain.Widget], widgets widgetGetter) ws.Actions {
	actions := ws.SubscriptionHandler(d)

	subscribe := actions["subscribe"]
	actions["subscribe"] = func(ctx context.Context, sc *scope.Scope) (any, error) {
		if sc.String("scope") == "own" && sc.IsAnonymous() {
			return nil, domain.ErrUnauthorized
		}
		return subscribe(ctx, sc)
	}

	actions["retrieve"] = func(ctx context.Context, sc *scope.Scope) (any, error) {
		id, err := uuid.Parse(sc.String("pk"))
		if err != nil {
			return nil, domain.NewValidationError("pk", "must be a UUID")
		}
		w, err := widgets.Get(ctx, id)
		if err != nil {
			return nil, err
		}
		return map[string]any{
			"pk":      w.PrimaryKey(),
			"name":    w.Name,
			"ownerId": w.OwnerID.String(),
			"payload": w.Payload,
		}, nil
	}
	return actions
}

func newWidgetDispatcher(log *slog.Logger, rt *realtime, gw *ws.Gateway, concurrency int) (*dispatch.Dispatcher[*domain.Widget], error) {
	return dispatch.New[*domain.Widget](log, domain.WidgetKind, rt.registry, rt.sink, gw, widgetDispatchOptions(concurrency))
}
