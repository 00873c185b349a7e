// internal/realtime/client.go
package realtime

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/v1kassh/escrawl-connect/internal/models"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = 54 * time.Second
	maxMessageSize = 64 * 1024
	sendBuffer     = 256
)

// Client represents one authenticated duplex connection.
type Client struct {
	ID     string
	conn   *websocket.Conn
	server *Server
	user   models.User
	send   chan []byte
}

func newClient(conn *websocket.Conn, server *Server, user models.User) *Client {
	return &Client{
		ID:     uuid.NewString(),
		conn:   conn,
		server: server,
		user:   user,
		send:   make(chan []byte, sendBuffer),
	}
}

// User returns the authenticated identity bound to the connection.
func (c *Client) User() models.User {
	return c.user
}

// enqueue hands a pre-marshalled frame to the write pump. A client whose
// buffer is full loses the frame rather than blocking the broadcaster.
func (c *Client) enqueue(frame []byte) {
	select {
	case c.send <- frame:
	default:
		droppedFrames.Inc()
	}
}

// ReadPump pumps events from the WebSocket connection into the server.
func (c *Client) ReadPump() {
	defer func() {
		c.server.UnregisterClient(c)
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.server.logger.Warn("WebSocket read error", "client_id", c.ID, "error", err)
			}
			break
		}

		var env Envelope
		if err := json.Unmarshal(raw, &env); err != nil {
			continue
		}
		c.server.handleEvent(c, env)
	}
}

// WritePump pumps frames from the send channel to the WebSocket
// connection and keeps the connection alive with pings.
func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case frame, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, frame); err != nil {
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
