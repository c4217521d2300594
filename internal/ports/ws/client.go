package ws

import (
	"log/slog"
	"time"

	"settlers/internal/logger"

	"github.com/gorilla/websocket"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 30 * time.Second
	pingPeriod     = 25 * time.Second
	maxMessageSize = 4096
	sendBuffer     = 256
)

// Client is one websocket connection attached to a room.
type Client struct {
	UserID string
	Name   string
	Ticket string // rejoin ticket presented on connect, if any

	conn *websocket.Conn
	send chan []byte
	room *Room
	log  *slog.Logger
}

// NewClient wraps conn for userID. The connection is not read until Run.
func NewClient(userID, name, ticket string, conn *websocket.Conn, log *slog.Logger) *Client {
	if log == nil {
		log = logger.Get()
	}
	return &Client{
		UserID: userID,
		Name:   name,
		Ticket: ticket,
		conn:   conn,
		send:   make(chan []byte, sendBuffer),
		log:    log.With("user_id", userID),
	}
}

// Run registers the client with room and pumps the connection until it
// closes.
func (c *Client) Run(room *Room) {
	c.room = room
	go c.writePump()
	if !room.attach(c) {
		close(c.send)
		return
	}
	c.readPump()
}

// deliver queues data for the writer. A client that cannot keep up loses
// the message.
func (c *Client) deliver(data []byte) {
	select {
	case c.send <- data:
	default:
		c.log.Warn("send buffer full, dropping message", "bytes", len(data))
	}
}

func (c *Client) readPump() {
	defer func() {
		c.room.detach(c)
		_ = c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, msg, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.log.Warn("read failed", "error", err)
			}
			return
		}
		c.room.receive(c, msg)
	}
}

func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case msg, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				c.log.Warn("write failed", "error", err)
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
