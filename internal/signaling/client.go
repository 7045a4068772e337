package signaling

import (
	"encoding/json"
	"log/slog"
	"time"

	"github.com/gorilla/websocket"

	"github.com/niggl1/interfoneapp/internal/auth"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = 54 * time.Second
	sendBufferSize = 256
)

// Client is one live signaling connection. Outbound messages go through the
// buffered send channel drained by writePump; a full buffer drops the
// message rather than blocking the relay.
type Client struct {
	ID       string
	Identity auth.Identity

	conn *websocket.Conn
	send chan []byte
	log  *slog.Logger
}

func NewClient(id string, identity auth.Identity, conn *websocket.Conn, log *slog.Logger) *Client {
	if log == nil {
		log = slog.Default()
	}
	return &Client{
		ID:       id,
		Identity: identity,
		conn:     conn,
		send:     make(chan []byte, sendBufferSize),
		log:      log,
	}
}

// Send queues an envelope for delivery. Transport failures are swallowed
// and logged; they are never surfaced to other parties.
func (c *Client) Send(env Envelope) {
	data, err := json.Marshal(env)
	if err != nil {
		c.log.Error("marshal outbound event failed", "event", env.Event, "err", err)
		return
	}
	select {
	case c.send <- data:
	default:
		c.log.Warn("send buffer full, dropping event", "socket_id", c.ID, "event", env.Event)
	}
}

// readPump reads inbound events and hands them to the relay. It owns the
// connection's read side and runs until the socket closes.
func (c *Client) readPump(r *Relay) {
	defer func() {
		r.Disconnect(c)
		_ = c.conn.Close()
	}()

	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.log.Warn("websocket read failed", "socket_id", c.ID, "err", err)
			}
			break
		}

		var env Envelope
		if err := json.Unmarshal(message, &env); err != nil {
			c.log.Warn("unparseable inbound event", "socket_id", c.ID, "err", err)
			continue
		}
		r.HandleEvent(c, env)
	}
}

// writePump drains the send channel and keeps the connection alive with
// pings. It owns the connection's write side.
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				c.log.Warn("websocket write failed", "socket_id", c.ID, "err", err)
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
