package dispatch

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sort"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/heartmarshall/roomcast/internal/changefeed"
	"github.com/heartmarshall/roomcast/internal/domain"
	"github.com/heartmarshall/roomcast/internal/realtime/registry"
	"github.com/heartmarshall/roomcast/internal/realtime/scope"
)

//go:generate moq -out emitter_mock_test.go -pkg dispatch . Emitter

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func okEmitter() *emitterMock {
	return &emitterMock{
		EmitFunc: func(ctx context.Context, namespace string, payload any, connectionID string) error {
			return nil
		},
	}
}

func subscribeScope(conn, requestID string) *scope.Scope {
	return scope.New(conn, "widgets", map[string]any{
		"requestId": requestID,
		"action":    "subscribe_widgets",
		"method":    scope.MethodSubscription,
	}, nil, nil)
}

func newWidgetDispatcher(t *testing.T, reg *registry.Registry, emitter Emitter, opts Options[*domain.Widget]) *Dispatcher[*domain.Widget] {
	t.Helper()
	d, err := New(discardLogger(), domain.WidgetKind, reg, registry.NewLocalSink(reg), emitter, opts)
	require.NoError(t, err)
	return d
}

func recipients(calls []struct {
	Ctx          context.Context
	Namespace    string
	Payload      any
	ConnectionID string
}) []string {
	out := make([]string, 0, len(calls))
	for _, c := range calls {
		out = append(out, c.ConnectionID)
	}
	sort.Strings(out)
	return out
}

func TestNew_ConfigErrors(t *testing.T) {
	t.Parallel()

	reg := registry.New()
	sink := registry.NewLocalSink(reg)

	type plain struct{ Name string }

	_, err := New(discardLogger(), "plain", reg, sink, okEmitter(), Options[plain]{})
	require.ErrorIs(t, err, ErrNoSerializer)

	_, err = New(discardLogger(), "plain", reg, sink, okEmitter(), Options[plain]{
		Serialize: func(ctx context.Context, action domain.Action, instance plain, rc Recipient) (any, error) {
			return instance.Name, nil
		},
	})
	require.NoError(t, err)

	_, err = New(discardLogger(), "", reg, sink, okEmitter(), Options[*domain.Widget]{})
	require.Error(t, err)

	_, err = New[*domain.Widget](discardLogger(), "widget", reg, sink, nil, Options[*domain.Widget]{})
	require.Error(t, err)
}

func TestDispatch_OneMessagePerRoomParticipant(t *testing.T) {
	t.Parallel()

	reg := registry.New()
	reg.Subscribe("widget", subscribeScope("c1", "r1"))
	reg.Subscribe("widget", subscribeScope("c2", "r2"))
	reg.Subscribe("widget_owner", subscribeScope("c3", "r3"))
	reg.Subscribe("gadget", subscribeScope("c4", "r4"))

	emitter := okEmitter()
	d := newWidgetDispatcher(t, reg, emitter, Options[*domain.Widget]{
		Rooms: func(action domain.Action, w *domain.Widget) []string {
			return []string{"widget", "widget_owner"}
		},
	})

	err := d.Dispatch(context.Background(), domain.ActionModified, &domain.Widget{ID: uuid.New()})
	require.NoError(t, err)

	assert.Equal(t, []string{"c1", "c2", "c3"}, recipients(emitter.EmitCalls()))
}

func TestDispatch_ScopeInTwoRoomsGetsTwoMessages(t *testing.T) {
	t.Parallel()

	reg := registry.New()
	sc := subscribeScope("c1", "r1")
	reg.Subscribe("a", sc)
	reg.Subscribe("b", sc)

	emitter := okEmitter()
	d := newWidgetDispatcher(t, reg, emitter, Options[*domain.Widget]{
		Rooms: func(domain.Action, *domain.Widget) []string { return []string{"a", "b"} },
	})

	require.NoError(t, d.Dispatch(context.Background(), domain.ActionCreated, &domain.Widget{ID: uuid.New()}))
	assert.Len(t, emitter.EmitCalls(), 2)
}

func TestDispatch_ParticipantsFilter(t *testing.T) {
	t.Parallel()

	reg := registry.New()
	reg.Subscribe("widget", subscribeScope("actor", "r1"))
	reg.Subscribe("widget", subscribeScope("other", "r2"))

	emitter := okEmitter()
	d := newWidgetDispatcher(t, reg, emitter, Options[*domain.Widget]{
		ParticipantsFilter: func(scopes []*scope.Scope, w *domain.Widget, action domain.Action) []*scope.Scope {
			var out []*scope.Scope
			for _, sc := range scopes {
				if sc.ConnectionID() != "actor" {
					out = append(out, sc)
				}
			}
			return out
		},
	})

	require.NoError(t, d.Dispatch(context.Background(), domain.ActionModified, &domain.Widget{ID: uuid.New()}))

	assert.Equal(t, []string{"other"}, recipients(emitter.EmitCalls()))
	assert.Equal(t, 2, reg.Len("widget"), "filtering must not touch the registry")
}

func TestDispatch_FailedRecipientDoesNotAbortOthers(t *testing.T) {
	t.Parallel()

	reg := registry.New()
	for _, c := range []string{"c1", "c2", "c3", "c4"} {
		reg.Subscribe("widget", subscribeScope(c, "r-"+c))
	}

	boom := errors.New("connection gone")
	emitter := &emitterMock{
		EmitFunc: func(ctx context.Context, namespace string, payload any, connectionID string) error {
			if connectionID == "c2" {
				return boom
			}
			return nil
		},
	}
	d := newWidgetDispatcher(t, reg, emitter, Options[*domain.Widget]{Concurrency: 2})

	err := d.Dispatch(context.Background(), domain.ActionRemoved, &domain.Widget{ID: uuid.New()})

	require.ErrorIs(t, err, boom)
	assert.Equal(t, []string{"c1", "c2", "c3", "c4"}, recipients(emitter.EmitCalls()))
}

func TestDispatch_SerializerPanicIsIsolated(t *testing.T) {
	t.Parallel()

	reg := registry.New()
	reg.Subscribe("widget", subscribeScope("c1", "r1"))
	reg.Subscribe("widget", subscribeScope("c2", "r2"))

	emitter := okEmitter()
	d := newWidgetDispatcher(t, reg, emitter, Options[*domain.Widget]{
		Serialize: func(ctx context.Context, action domain.Action, w *domain.Widget, rc Recipient) (any, error) {
			if rc.Scope.ConnectionID() == "c1" {
				panic("bad serializer")
			}
			return w.Name, nil
		},
	})

	err := d.Dispatch(context.Background(), domain.ActionCreated, &domain.Widget{ID: uuid.New(), Name: "w"})

	require.Error(t, err)
	assert.Equal(t, []string{"c2"}, recipients(emitter.EmitCalls()))
}

func TestDispatch_PerRecipientSerialization(t *testing.T) {
	t.Parallel()

	reg := registry.New()
	reg.Subscribe("widget", subscribeScope("c1", "r1"))
	reg.Subscribe("widget", subscribeScope("c2", "r2"))

	emitter := okEmitter()
	d := newWidgetDispatcher(t, reg, emitter, Options[*domain.Widget]{
		Serialize: func(ctx context.Context, action domain.Action, w *domain.Widget, rc Recipient) (any, error) {
			return map[string]string{"for": rc.Scope.ConnectionID(), "room": rc.Room}, nil
		},
	})

	require.NoError(t, d.Dispatch(context.Background(), domain.ActionCreated, &domain.Widget{ID: uuid.New()}))

	for _, call := range emitter.EmitCalls() {
		p := call.Payload.(Payload)
		data := p.Data.(map[string]string)
		assert.Equal(t, call.ConnectionID, data["for"])
		assert.Equal(t, "widget", data["room"])
	}
}

func TestEndToEnd_SubscribeDispatchUnsubscribe(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	reg := registry.New()
	emitter := okEmitter()
	d := newWidgetDispatcher(t, reg, emitter, Options[*domain.Widget]{})

	feed := changefeed.New[*domain.Widget](discardLogger(), domain.WidgetKind)
	d.Connect(feed)

	a := subscribeScope("conn-a", "req-a")
	require.NoError(t, d.Subscribe(ctx, a))
	assert.Equal(t, []string{"widget"}, reg.Rooms())

	w7 := &domain.Widget{ID: uuid.New(), Name: "widget #7"}
	feed.Saved(ctx, w7, true)

	calls := emitter.EmitCalls()
	require.Len(t, calls, 1)
	assert.Equal(t, "conn-a", calls[0].ConnectionID)
	assert.Equal(t, "widgets", calls[0].Namespace)
	assert.Equal(t, Payload{
		Method:    "SUBSCRIPTION",
		Action:    "subscribe_widgets",
		Type:      domain.ActionCreated,
		Status:    200,
		RequestID: "req-a",
		Data:      map[string]any{"pk": w7.ID.String()},
	}, calls[0].Payload)
	assert.Equal(t, "added", string(calls[0].Payload.(Payload).Type))

	require.NoError(t, d.Unsubscribe(ctx, a))
	feed.Saved(ctx, w7, true)

	assert.Len(t, emitter.EmitCalls(), 1, "no message after unsubscribe")
}

func TestPostDelete_RemovedType(t *testing.T) {
	t.Parallel()

	reg := registry.New()
	reg.Subscribe("widget", subscribeScope("c1", "r1"))
	emitter := okEmitter()
	d := newWidgetDispatcher(t, reg, emitter, Options[*domain.Widget]{})

	d.PostDelete(context.Background(), &domain.Widget{ID: uuid.New()})
	d.PostSave(context.Background(), &domain.Widget{ID: uuid.New()}, false)

	calls := emitter.EmitCalls()
	require.Len(t, calls, 2)
	assert.Equal(t, domain.ActionRemoved, calls[0].Payload.(Payload).Type)
	assert.Equal(t, domain.ActionModified, calls[1].Payload.(Payload).Type)
}

func TestSubscribe_SubscribingRoomsOverride(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	reg := registry.New()
	d := newWidgetDispatcher(t, reg, okEmitter(), Options[*domain.Widget]{
		SubscribingRooms: func(sc *scope.Scope) []string {
			return []string{"widget_" + sc.String("owner")}
		},
	})

	sc := scope.New("c1", "widgets", map[string]any{"requestId": "r1", "owner": "42"}, nil, nil)
	require.NoError(t, d.Subscribe(ctx, sc))
	assert.Equal(t, []string{"widget_42"}, reg.Rooms())

	require.NoError(t, d.Unsubscribe(ctx, sc))
	assert.Empty(t, reg.Rooms())
}

type failingRoomSink struct {
	*registry.LocalSink
	room string
}

func (s failingRoomSink) Subscribe(ctx context.Context, room string, sc *scope.Scope) error {
	if room == s.room {
		return errors.New("sink unavailable")
	}
	return s.LocalSink.Subscribe(ctx, room, sc)
}

func TestSubscribe_FailureLeavesJoinedRooms(t *testing.T) {
	t.Parallel()

	reg := registry.New()
	sink := failingRoomSink{LocalSink: registry.NewLocalSink(reg), room: "widget_b"}
	d, err := New(discardLogger(), domain.WidgetKind, reg, sink, okEmitter(), Options[*domain.Widget]{
		SubscribingRooms: func(*scope.Scope) []string {
			return []string{"widget_a", "widget_b", "widget_c"}
		},
	})
	require.NoError(t, err)

	err = d.Subscribe(context.Background(), subscribeScope("c1", "r1"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "widget_b")
	assert.Empty(t, reg.Rooms())
}

func TestUnsubscribe_UnknownRoom(t *testing.T) {
	t.Parallel()

	d := newWidgetDispatcher(t, registry.New(), okEmitter(), Options[*domain.Widget]{})

	err := d.Unsubscribe(context.Background(), subscribeScope("c1", "r1"))
	require.ErrorIs(t, err, domain.ErrNotFound)
}
