package ws

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/Temutjin2k/ride-dispatch/pkg/uuid"
	"github.com/gorilla/websocket"
)

const (
	writeWait  = 5 * time.Second
	pongWait   = 60 * time.Second
	maxMsgSize = 4096
)

var ErrConnClosed = errors.New("connection is closed")

// Conn is one websocket subscriber. Writes are serialized.
type Conn struct {
	id      uuid.UUID
	conn    *websocket.Conn
	doneCtx context.Context
	cancel  context.CancelFunc
	mu      sync.Mutex
	once    sync.Once
}

func NewConn(ctx context.Context, conn *websocket.Conn) *Conn {
	ctx, cancel := context.WithCancel(ctx)

	return &Conn{
		id:      uuid.New(),
		conn:    conn,
		doneCtx: ctx,
		cancel:  cancel,
	}
}

func (c *Conn) ID() uuid.UUID {
	return c.id
}

// Done is closed once the connection is closed.
func (c *Conn) Done() <-chan struct{} {
	return c.doneCtx.Done()
}

// Ping writes a ping control frame.
func (c *Conn) Ping() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.alive(); err != nil {
		return err
	}
	if err := c.conn.WriteControl(websocket.PingMessage, []byte("ping"), time.Now().Add(writeWait)); err != nil {
		return fmt.Errorf("ping failed: %w", err)
	}
	return nil
}

// Send writes msg as a JSON text frame.
func (c *Conn) Send(msg any) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.alive(); err != nil {
		return err
	}
	if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		return fmt.Errorf("send failed: %w", err)
	}
	if err := c.conn.WriteJSON(msg); err != nil {
		return fmt.Errorf("send failed: %w", err)
	}
	return nil
}

func (c *Conn) alive() error {
	if c.conn == nil {
		return ErrConnClosed
	}
	select {
	case <-c.doneCtx.Done():
		return ErrConnClosed
	default:
		return nil
	}
}

// ReadLoop discards client messages and returns when the peer goes away
// or stops answering pings.
func (c *Conn) ReadLoop() error {
	c.conn.SetReadLimit(maxMsgSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		if _, _, err := c.conn.NextReader(); err != nil {
			if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				return nil
			}
			return fmt.Errorf("read failed: %w", err)
		}
	}
}

// Close sends a close frame and closes the connection. Safe to call more than once.
func (c *Conn) Close() error {
	var err error
	c.once.Do(func() {
		c.mu.Lock()
		defer c.mu.Unlock()

		c.cancel()
		if c.conn == nil {
			return
		}
		_ = c.conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(writeWait))
		err = c.conn.Close()
	})
	return err
}
