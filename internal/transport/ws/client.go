package ws

import (
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"votaya-server/internal/domain"
	"votaya-server/internal/protocol"
)

const (
	// Time allowed to write a message to the peer
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer
	pongWait = 60 * time.Second

	// Send pings to peer with this period (must be less than pongWait)
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer
	maxMessageSize = 4096

	// Size of the send channel buffer
	sendBufferSize = 256
)

// Client is one authenticated WebSocket connection. It implements
// protocol.Conn: the identity is fixed at the handshake and the room
// binding is set by the router on create/join.
type Client struct {
	conn     *websocket.Conn
	router   *protocol.Router
	id       string
	identity domain.Identity
	send     chan []byte
	done     chan struct{}
	logger   *slog.Logger

	mu       sync.Mutex
	roomCode string
	closed   bool
}

// NewClient creates a client for an upgraded, authenticated connection.
func NewClient(conn *websocket.Conn, router *protocol.Router, id string, identity domain.Identity, logger *slog.Logger) *Client {
	return &Client{
		conn:     conn,
		router:   router,
		id:       id,
		identity: identity,
		send:     make(chan []byte, sendBufferSize),
		done:     make(chan struct{}),
		logger:   logger,
	}
}

// ID returns the connection's unique ID.
func (c *Client) ID() string {
	return c.id
}

// Identity returns the identity bound at connection setup.
func (c *Client) Identity() domain.Identity {
	return c.identity
}

// BindRoom records the room this connection belongs to.
func (c *Client) BindRoom(code string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.roomCode = code
}

// BoundRoom returns the bound room code, or "" if none.
func (c *Client) BoundRoom() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.roomCode
}

// Send marshals a frame and enqueues it without blocking. A full buffer
// drops the frame for this peer only.
func (c *Client) Send(message interface{}) error {
	data, err := json.Marshal(message)
	if err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return nil
	}

	select {
	case c.send <- data:
		return nil
	default:
		// Buffer full, message dropped
		c.logger.Warn("send buffer full, message dropped", "connID", c.id)
		return nil
	}
}

// Close shuts down the connection. Safe to call more than once.
func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return nil
	}

	c.closed = true
	close(c.done)
	return c.conn.Close()
}

// Run starts the client's read and write pumps. It returns when the
// connection is gone, after the disconnect supervisor has run.
func (c *Client) Run() {
	go c.writePump()
	c.readPump()
}

// readPump pumps messages from the WebSocket connection into the router
func (c *Client) readPump() {
	defer func() {
		c.router.HandleDisconnect(c)
		c.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.logger.Debug("websocket read error", "connID", c.id, "error", err)
			}
			break
		}

		c.router.Handle(c, message)
	}
}

// writePump pumps messages from the send channel to the WebSocket connection
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case <-c.done:
			return
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			w, err := c.conn.NextWriter(websocket.TextMessage)
			if err != nil {
				return
			}
			w.Write(message)

			if err := w.Close(); err != nil {
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
