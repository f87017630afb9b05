package gateway

import (
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"blossom-cafe/internal/domain"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 4096
)

// Client pumps events from the hub to one WebSocket connection.
type Client struct {
	hub      *Hub
	conn     *websocket.Conn
	send     chan domain.Event
	operator string
	lg       zerolog.Logger
}

func newClient(hub *Hub, conn *websocket.Conn, operator string, lg zerolog.Logger) *Client {
	return &Client{
		hub:      hub,
		conn:     conn,
		send:     make(chan domain.Event, 64),
		operator: operator,
		lg:       lg,
	}
}

func (c *Client) start() {
	c.hub.register <- c
	go c.writePump()
	go c.readPump()
}

// readPump exists to notice disconnects and answer pings; dashboards never
// send application messages upstream.
func (c *Client) readPump() {
	defer func() {
		c.hub.unregister <- c
		_ = c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseAbnormalClosure) {
				c.lg.Warn().Str("action", "ws_read_failed").Str("operator", c.operator).Err(err).Msg("unexpected close")
			}
			return
		}
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
		case ev, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteJSON(ev); err != nil {
				c.lg.Warn().Str("action", "ws_write_failed").Str("operator", c.operator).Err(err).Msg("write failed")
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
