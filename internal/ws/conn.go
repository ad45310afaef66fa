package ws

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 64 * 1024
)

// Conn carries a terminal session over a WebSocket. Every server→client
// frame is a text frame; inbound text and binary frames are both accepted.
type Conn struct {
	conn *websocket.Conn

	writeMu   sync.Mutex
	closing   atomic.Bool
	done      chan struct{}
	closeOnce sync.Once
	closeErr  error
}

// NewConn wraps an upgraded connection and starts its keepalive pings
func NewConn(conn *websocket.Conn) *Conn {
	c := &Conn{
		conn: conn,
		done: make(chan struct{}),
	}

	conn.SetReadLimit(maxMessageSize)
	conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		// A pong must not undo a deadline set to unblock a cancelled read
		if c.closing.Load() {
			return nil
		}
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	go c.pingLoop()
	return c
}

// ReadMessage returns the next inbound message. Cancelling ctx unblocks
// a pending read; the connection is not usable for reading afterwards.
func (c *Conn) ReadMessage(ctx context.Context) (string, error) {
	stop := context.AfterFunc(ctx, func() {
		c.closing.Store(true)
		c.conn.SetReadDeadline(time.Now())
	})
	defer stop()

	for {
		messageType, data, err := c.conn.ReadMessage()
		if err != nil {
			if ctx.Err() != nil {
				return "", ctx.Err()
			}
			return "", fmt.Errorf("websocket read: %w", err)
		}
		switch messageType {
		case websocket.TextMessage, websocket.BinaryMessage:
			return string(data), nil
		}
	}
}

// WriteMessage sends msg as one text frame
func (c *Conn) WriteMessage(msg string) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	c.conn.SetWriteDeadline(time.Now().Add(writeWait))
	if err := c.conn.WriteMessage(websocket.TextMessage, []byte(msg)); err != nil {
		return fmt.Errorf("websocket write: %w", err)
	}
	return nil
}

// Close sends a normal close frame and closes the connection.
// Safe to call more than once.
func (c *Conn) Close() error {
	c.closeOnce.Do(func() {
		c.closing.Store(true)
		close(c.done)
		msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
		c.conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(writeWait))
		c.closeErr = c.conn.Close()
	})
	return c.closeErr
}

func (c *Conn) pingLoop() {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if err := c.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				return
			}
		case <-c.done:
			return
		}
	}
}
