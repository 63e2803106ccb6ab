package ws

import (
	"errors"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/heartmarshall/roomcast/internal/domain"
	"github.com/heartmarshall/roomcast/internal/realtime/scope"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
	maxMsgSize = 1 << 20
)

var (
	// ErrSendBufferFull is returned when a client does not drain its frames.
	ErrSendBufferFull = errors.New("ws: send buffer full")
	// ErrConnectionClosed is returned for frames addressed to a closed connection.
	ErrConnectionClosed = errors.New("ws: connection closed")
)

// conn is one client websocket.
type conn struct {
	id      string
	ws      *websocket.Conn
	user    *domain.User
	session *scope.Session

	send      chan []byte
	done      chan struct{}
	closeOnce sync.Once
}

func newConn(id string, ws *websocket.Conn, user *domain.User, session *scope.Session, buffer int) *conn {
	return &conn{
		id:      id,
		ws:      ws,
		user:    user,
		session: session,
		send:    make(chan []byte, buffer),
		done:    make(chan struct{}),
	}
}

// enqueue hands a frame to the write pump without blocking.
func (c *conn) enqueue(frame []byte) error {
	select {
	case <-c.done:
		return ErrConnectionClosed
	default:
	}
	select {
	case c.send <- frame:
		return nil
	case <-c.done:
		return ErrConnectionClosed
	default:
		return ErrSendBufferFull
	}
}

// close stops the write pump; the read pump ends when the socket closes.
func (c *conn) close() {
	c.closeOnce.Do(func() {
		close(c.done)
	})
}

func (c *conn) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.ws.Close()
	}()

	for {
		select {
		case frame := <-c.send:
			c.ws.SetWriteDeadline(time.Now().Add(writeWait)) //nolint:errcheck
			if err := c.ws.WriteMessage(websocket.TextMessage, frame); err != nil {
				return
			}

		case <-ticker.C:
			c.ws.SetWriteDeadline(time.Now().Add(writeWait)) //nolint:errcheck
			if err := c.ws.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}

		case <-c.done:
			c.ws.SetWriteDeadline(time.Now().Add(writeWait)) //nolint:errcheck
			c.ws.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")) //nolint:errcheck
			return
		}
	}
}
