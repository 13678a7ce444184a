// Package ws is the websocket transport adapter: it authenticates the
// handshake, pumps frames, and translates wire events into gateway calls.
package ws

import (
	"errors"
	"sync"

	"github.com/gorilla/websocket"

	"github.com/avoronov/huddle/internal/core"
)

var (
	ErrBackpressure = errors.New("backpressure")
	ErrConnClosed   = errors.New("connection closed")
)

// wireConn wraps one websocket with a buffered outbound channel. Sends
// never block: a full buffer is reported to the caller instead.
type wireConn struct {
	conn *websocket.Conn
	send chan core.Frame

	mu     sync.RWMutex
	closed bool
}

func newWireConn(conn *websocket.Conn, buffer int) *wireConn {
	return &wireConn{
		conn: conn,
		send: make(chan core.Frame, buffer),
	}
}

func (c *wireConn) TrySend(f core.Frame) error {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.closed {
		return ErrConnClosed
	}
	select {
	case c.send <- f:
		return nil
	default:
		return ErrBackpressure
	}
}

func (c *wireConn) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.closed = true
	close(c.send)
	_ = c.conn.Close()
}
