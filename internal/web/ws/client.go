package ws

import (
	"log/slog"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/mcoot/pongarena/internal/model"
)

const (
	// Time allowed to write a message to the peer
	writeWait = 10 * time.Second

	// Time allowed to read the next pong from the peer
	pongWait = 60 * time.Second

	// Send pings at this period. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// Largest inbound frame accepted
	maxMessageSize = 4096

	// Buffer size for outgoing messages
	sendBufferSize = 256
)

// Client is one authenticated socket. It implements session.Conn.
type Client struct {
	id       model.ConnID
	identity model.Identity
	conn     *websocket.Conn
	logger   *slog.Logger

	send      chan []byte
	done      chan struct{}
	closeOnce sync.Once
}

func newClient(id model.ConnID, identity model.Identity, conn *websocket.Conn, logger *slog.Logger) *Client {
	return &Client{
		id:       id,
		identity: identity,
		conn:     conn,
		logger: logger.With(
			slog.String("conn_id", string(id)),
			slog.String("player_id", string(identity.ID))),
		send: make(chan []byte, sendBufferSize),
		done: make(chan struct{}),
	}
}

// ID returns the connection id
func (c *Client) ID() model.ConnID {
	return c.id
}

// PlayerID returns the authenticated player
func (c *Client) PlayerID() model.PlayerID {
	return c.identity.ID
}

// Send queues an event without blocking. A slow reader gets
// ErrSendBufferFull rather than stalling a match tick.
func (c *Client) Send(event model.Event) error {
	select {
	case <-c.done:
		return model.ErrStaleConnection
	default:
	}

	data, err := encodeEvent(event)
	if err != nil {
		return err
	}

	select {
	case c.send <- data:
		return nil
	case <-c.done:
		return model.ErrStaleConnection
	default:
		return model.ErrSendBufferFull
	}
}

// Close stops the write pump, which sends a close frame and closes the socket
func (c *Client) Close() {
	c.closeOnce.Do(func() {
		close(c.done)
	})
}

// readPump delivers inbound frames to handle until the socket fails
func (c *Client) readPump(handle func(c *Client, data []byte)) {
	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		messageType, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.logger.Debug("socket read failed", slog.String("error", err.Error()))
			}
			return
		}
		if messageType == websocket.TextMessage {
			handle(c, data)
		}
	}
}

// writePump drains the send buffer and keeps the socket alive with pings
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case message := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				c.Close()
				return
			}

		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				c.Close()
				return
			}

		case <-c.done:
			// Flush what is already queued, then say goodbye
			for {
				select {
				case message := <-c.send:
					_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
					if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
						return
					}
				default:
					_ = c.conn.SetWriteDeadline(time.Now().Add(time.Second))
					_ = c.conn.WriteMessage(websocket.CloseMessage,
						websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
					return
				}
			}
		}
	}
}
