// Package ws is the client gateway: it accepts websocket connections, routes
// inbound requests to namespace handlers and delivers change notifications
// to connections held by this or another process.
package ws

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/heartmarshall/roomcast/internal/domain"
	"github.com/heartmarshall/roomcast/internal/realtime/pubsub"
	"github.com/heartmarshall/roomcast/internal/realtime/scope"
	"github.com/heartmarshall/roomcast/pkg/ctxutil"
)

const (
	DefaultSendBuffer = 256
	cleanupTimeout    = 5 * time.Second
)

// Sink drops the subscriptions of a closed connection.
type Sink interface {
	Disconnect(ctx context.Context, connectionID string) ([]string, error)
}

type userLoader interface {
	GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error)
}

// Bus carries frames for connections held by other processes.
type Bus interface {
	Publish(ctx context.Context, msg pubsub.Message) error
	Listen(cb pubsub.Callback, filter pubsub.Filter)
}

// Options tunes a Gateway.
type Options struct {
	SendBuffer     int
	AllowedOrigins []string
}

// Gateway owns the websocket connections of this process.
type Gateway struct {
	upgrader   websocket.Upgrader
	sendBuffer int

	mu       sync.RWMutex
	handlers map[string]Handler
	conns    map[string]*conn
	closed   bool
	serving  sync.WaitGroup

	sessions scope.SessionStore
	users    userLoader
	sink     Sink
	bus      Bus
	log      *slog.Logger
}

// New creates a Gateway and registers it on bus for remote frames.
func New(log *slog.Logger, sessions scope.SessionStore, users userLoader, sink Sink, bus Bus, opts Options) *Gateway {
	if opts.SendBuffer <= 0 {
		opts.SendBuffer = DefaultSendBuffer
	}

	g := &Gateway{
		sendBuffer: opts.SendBuffer,
		handlers:   make(map[string]Handler),
		conns:      make(map[string]*conn),
		sessions:   sessions,
		users:      users,
		sink:       sink,
		bus:        bus,
		log:        log.With("component", "ws"),
	}
	g.upgrader = websocket.Upgrader{
		ReadBufferSize:  4096,
		WriteBufferSize: 4096,
		CheckOrigin:     originChecker(opts.AllowedOrigins),
	}

	bus.Listen(g.deliverRemote, g.holds)
	return g
}

// Handle registers h for namespace, replacing any previous handler.
func (g *Gateway) Handle(namespace string, h Handler) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.handlers[namespace] = h
}

// Connections returns the number of open connections.
func (g *Gateway) Connections() int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return len(g.conns)
}

// ServeHTTP upgrades the request and serves the connection until it closes.
// The caller is resolved from the request context set by the auth middleware.
func (g *Gateway) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var user *domain.User
	if userID, ok := ctxutil.UserIDFromCtx(ctx); ok {
		u, err := g.users.GetByID(ctx, userID)
		if err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}
			g.log.ErrorContext(ctx, "resolve user", slog.String("user_id", userID.String()), slog.String("error", err.Error()))
			http.Error(w, "internal server error", http.StatusInternalServerError)
			return
		}
		user = u
	}

	g.mu.RLock()
	closed := g.closed
	g.mu.RUnlock()
	if closed {
		http.Error(w, "shutting down", http.StatusServiceUnavailable)
		return
	}

	wsConn, err := g.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade has already written the error response.
		g.log.WarnContext(ctx, "upgrade failed", slog.String("error", err.Error()))
		return
	}

	session := scope.Session{
		ConnectionID: uuid.NewString(),
		Environ:      environ(r),
		ConnectedAt:  time.Now().UTC(),
	}
	if user != nil {
		session.UserID = user.ID
	}
	if err := g.sessions.Save(ctx, session); err != nil {
		g.log.ErrorContext(ctx, "save session", slog.String("connection_id", session.ConnectionID), slog.String("error", err.Error()))
	}

	c := newConn(session.ConnectionID, wsConn, user, &session, g.sendBuffer)
	g.mu.Lock()
	if g.closed {
		g.mu.Unlock()
		_ = wsConn.Close()
		g.disconnect(context.WithoutCancel(ctx), c)
		return
	}
	g.conns[c.id] = c
	g.serving.Add(1)
	g.mu.Unlock()
	defer g.serving.Done()

	g.log.InfoContext(ctx, "connected",
		slog.String("connection_id", c.id),
		slog.Bool("anonymous", user == nil),
	)

	go c.writePump()
	g.readPump(ctx, c)
	g.disconnect(context.WithoutCancel(ctx), c)
}

func (g *Gateway) readPump(ctx context.Context, c *conn) {
	c.ws.SetReadLimit(maxMsgSize)
	c.ws.SetReadDeadline(time.Now().Add(pongWait)) //nolint:errcheck
	c.ws.SetPongHandler(func(string) error {
		return c.ws.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, message, err := c.ws.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				g.log.WarnContext(ctx, "read failed", slog.String("connection_id", c.id), slog.String("error", err.Error()))
			}
			return
		}
		g.dispatch(ctx, c, message)
	}
}

// dispatch handles one inbound request. Requests of one connection are
// served in arrival order.
func (g *Gateway) dispatch(ctx context.Context, c *conn, message []byte) {
	var raw map[string]any
	if err := json.Unmarshal(message, &raw); err != nil || raw == nil {
		g.reply(ctx, c, "", Response{
			Status: http.StatusBadRequest,
			Data:   ErrorData{Error: "invalid JSON"},
		})
		return
	}

	namespace, _ := raw["namespace"].(string)
	sc := scope.New(c.id, namespace, raw, c.user, c.session)

	g.mu.RLock()
	h, ok := g.handlers[namespace]
	g.mu.RUnlock()
	if !ok {
		g.reply(ctx, c, namespace, respondError(sc, fmt.Errorf("namespace %q: %w", namespace, domain.ErrNotFound)))
		return
	}

	data, err := g.call(ctx, h, sc)
	if err != nil {
		if StatusFor(err) == http.StatusInternalServerError {
			g.log.ErrorContext(ctx, "handler failed",
				slog.String("connection_id", c.id),
				slog.String("namespace", namespace),
				slog.String("action", sc.Action()),
				slog.String("error", err.Error()),
			)
		}
		g.reply(ctx, c, namespace, respondError(sc, err))
		return
	}
	g.reply(ctx, c, namespace, respond(sc, data))
}

func (g *Gateway) call(ctx context.Context, h Handler, sc *scope.Scope) (data any, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("handler panic: %v", r)
		}
	}()
	return h.Handle(ctx, sc)
}

func (g *Gateway) reply(ctx context.Context, c *conn, namespace string, resp Response) {
	frame, err := json.Marshal(Frame{Namespace: namespace, Payload: resp})
	if err != nil {
		g.log.ErrorContext(ctx, "marshal response", slog.String("connection_id", c.id), slog.String("error", err.Error()))
		return
	}
	if err := c.enqueue(frame); err != nil {
		g.log.WarnContext(ctx, "response dropped", slog.String("connection_id", c.id), slog.String("error", err.Error()))
	}
}

// Emit delivers payload to a connection. Connections held elsewhere are
// reached through a data message filtered by connection id.
func (g *Gateway) Emit(ctx context.Context, namespace string, payload any, connectionID string) error {
	raw, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}

	if c, ok := g.conn(connectionID); ok {
		frame, err := json.Marshal(Frame{Namespace: namespace, Payload: json.RawMessage(raw)})
		if err != nil {
			return fmt.Errorf("marshal frame: %w", err)
		}
		return c.enqueue(frame)
	}

	err = pubsub.PublishData(ctx, g.bus, remoteFrame{
		ConnectionID: connectionID,
		Namespace:    namespace,
		Payload:      raw,
	}, map[string]string{FilterConnectionID: connectionID})
	if err != nil {
		return fmt.Errorf("forward to %s: %w", connectionID, err)
	}
	return nil
}

// holds is the bus listener filter: only frames for local connections.
func (g *Gateway) holds(filter map[string]string) bool {
	_, ok := g.conn(filter[FilterConnectionID])
	return ok
}

func (g *Gateway) deliverRemote(ctx context.Context, msg pubsub.Message) error {
	if msg.Type != pubsub.TypeData {
		return nil
	}

	var rf remoteFrame
	if err := json.Unmarshal(msg.Data, &rf); err != nil {
		return fmt.Errorf("decode remote frame: %w", err)
	}
	c, ok := g.conn(rf.ConnectionID)
	if !ok {
		return nil
	}

	frame, err := json.Marshal(Frame{Namespace: rf.Namespace, Payload: rf.Payload})
	if err != nil {
		return fmt.Errorf("marshal frame: %w", err)
	}
	return c.enqueue(frame)
}

func (g *Gateway) conn(id string) (*conn, bool) {
	if id == "" {
		return nil, false
	}
	g.mu.RLock()
	defer g.mu.RUnlock()
	c, ok := g.conns[id]
	return c, ok
}

func (g *Gateway) disconnect(ctx context.Context, c *conn) {
	g.mu.Lock()
	delete(g.conns, c.id)
	g.mu.Unlock()
	c.close()

	ctx, cancel := context.WithTimeout(ctx, cleanupTimeout)
	defer cancel()

	rooms, err := g.sink.Disconnect(ctx, c.id)
	if err != nil {
		g.log.ErrorContext(ctx, "drop subscriptions", slog.String("connection_id", c.id), slog.String("error", err.Error()))
	}
	if err := g.sessions.Delete(ctx, c.id); err != nil && !errors.Is(err, domain.ErrNotFound) {
		g.log.ErrorContext(ctx, "delete session", slog.String("connection_id", c.id), slog.String("error", err.Error()))
	}

	g.log.InfoContext(ctx, "disconnected",
		slog.String("connection_id", c.id),
		slog.Any("rooms", rooms),
	)
}

// Close ends every connection and refuses new ones. It returns once every
// connection has finished its disconnect cleanup, or with ctx's error when
// ctx ends first.
func (g *Gateway) Close(ctx context.Context) error {
	g.mu.Lock()
	g.closed = true
	conns := make([]*conn, 0, len(g.conns))
	for _, c := range g.conns {
		conns = append(conns, c)
	}
	g.mu.Unlock()

	for _, c := range conns {
		c.close()
	}

	done := make(chan struct{})
	go func() {
		g.serving.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("close gateway: %w", ctx.Err())
	}
}

func environ(r *http.Request) map[string]string {
	query := r.URL.Query()
	query.Del("token")

	env := map[string]string{
		"REMOTE_ADDR":    r.RemoteAddr,
		"PATH_INFO":      r.URL.Path,
		"QUERY_STRING":   query.Encode(),
		"REQUEST_METHOD": r.Method,
	}
	for _, h := range []string{"User-Agent", "Origin", "X-Forwarded-For", "X-Request-Id"} {
		if v := r.Header.Get(h); v != "" {
			env["HTTP_"+strings.ToUpper(strings.ReplaceAll(h, "-", "_"))] = v
		}
	}
	return env
}

func originChecker(allowed []string) func(*http.Request) bool {
	if len(allowed) == 0 || slices.Contains(allowed, "*") {
		return func(*http.Request) bool { return true }
	}
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		return origin == "" || slices.Contains(allowed, origin)
	}
}
