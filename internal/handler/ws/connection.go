// Package ws adapts gorilla/websocket connections to the room hub's
// Connection interface.
package ws

import (
	"encoding/json"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"pathway/internal/domain/models/room"
	roomSvc "pathway/internal/domain/services/room"
)

var (
	// ErrClosed is returned by Send after Close
	ErrClosed = errors.New("connection closed")

	// ErrSendBufferFull is returned when the peer is too slow to keep up
	ErrSendBufferFull = errors.New("send buffer full")
)

// Connection owns one websocket. Send only queues; a single write pump
// goroutine performs all data writes.
type Connection struct {
	id     string
	ws     *websocket.Conn
	cfg    *Config
	logger *slog.Logger

	send chan room.Event
	done chan struct{}
	once sync.Once
}

var _ roomSvc.Connection = (*Connection)(nil)

// NewConnection wraps an upgraded socket
func NewConnection(conn *websocket.Conn, cfg *Config, logger *slog.Logger) *Connection {
	return &Connection{
		id:     uuid.NewString(),
		ws:     conn,
		cfg:    cfg,
		logger: logger,
		send:   make(chan room.Event, cfg.SendBuffer),
		done:   make(chan struct{}),
	}
}

// ID returns the connection id
func (c *Connection) ID() string { return c.id }

// Send queues an event without blocking
func (c *Connection) Send(event room.Event) error {
	select {
	case <-c.done:
		return ErrClosed
	default:
	}

	select {
	case c.send <- event:
		return nil
	case <-c.done:
		return ErrClosed
	default:
		return ErrSendBufferFull
	}
}

// Close stops the write pump; the pump sends a close frame on its way out
func (c *Connection) Close() {
	c.once.Do(func() { close(c.done) })
}

// Done is closed once the connection is closed
func (c *Connection) Done() <-chan struct{} { return c.done }

// WriteKeepAlive sends a ping control frame. WriteControl may run
// concurrently with the write pump.
func (c *Connection) WriteKeepAlive() error {
	return c.ws.WriteControl(websocket.PingMessage, nil, time.Now().Add(c.cfg.WriteWait))
}

// WritePump drains queued events to the socket until Close or a write error
func (c *Connection) WritePump() {
	defer c.ws.Close()

	for {
		select {
		case event := <-c.send:
			if err := c.write(event); err != nil {
				c.Close()
				return
			}
		case <-c.done:
			// events queued before Close (room-deactivated) still go out
			if err := c.drain(); err != nil {
				return
			}
			c.ws.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
				time.Now().Add(c.cfg.WriteWait))
			return
		}
	}
}

func (c *Connection) drain() error {
	for {
		select {
		case event := <-c.send:
			if err := c.write(event); err != nil {
				return err
			}
		default:
			return nil
		}
	}
}

func (c *Connection) write(event room.Event) error {
	c.ws.SetWriteDeadline(time.Now().Add(c.cfg.WriteWait))
	if err := c.ws.WriteJSON(event); err != nil {
		c.logger.Debug("websocket write failed",
			"connection_id", c.id,
			"error", err,
		)
		return err
	}
	return nil
}

// ReadFrames reads inbound frames until the peer goes away and calls
// handle for each one. Any frame, pong included, extends the read deadline.
func (c *Connection) ReadFrames(handle func(room.InboundFrame)) error {
	c.ws.SetReadLimit(c.cfg.MaxFrameBytes)
	c.ws.SetReadDeadline(time.Now().Add(c.cfg.PongWait))
	c.ws.SetPongHandler(func(string) error {
		return c.ws.SetReadDeadline(time.Now().Add(c.cfg.PongWait))
	})

	for {
		var frame room.InboundFrame
		err := c.ws.ReadJSON(&frame)
		var syntaxErr *json.SyntaxError
		var typeErr *json.UnmarshalTypeError
		switch {
		case err == nil:
		case errors.As(err, &syntaxErr), errors.As(err, &typeErr):
			// the rest of a malformed frame is discarded by the next read
			c.logger.Debug("malformed frame ignored", "connection_id", c.id, "error", err)
			continue
		case websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway):
			return err
		default:
			return nil
		}

		c.ws.SetReadDeadline(time.Now().Add(c.cfg.PongWait))
		handle(frame)
	}
}
