package ws

import (
	"encoding/json"
	"time"

	"service-dispatch-go/internal/domain"
	"service-dispatch-go/internal/logx"

	"github.com/gorilla/websocket"
)

// Client is one authenticated websocket connection.
type Client struct {
	id     string
	UserID string
	Role   domain.Role

	conn *websocket.Conn
	send chan []byte
	hub  *Hub
}

// Send marshals and enqueues one frame to this connection.
func (c *Client) Send(event string, payload any) {
	msg, err := marshalFrame(event, payload)
	if err != nil {
		c.hub.logger.Error("ws marshal failed",
			logx.String("event", "ws_marshal_failed"),
			logx.String("ws_event", event),
			logx.Err(err),
		)
		return
	}
	c.enqueue(msg)
}

// enqueue is non-blocking: a full buffer means a reader too slow to keep,
// the frame is dropped.
func (c *Client) enqueue(msg []byte) {
	select {
	case c.send <- msg:
	default:
	}
}

func (c *Client) readPump() {
	defer func() {
		c.hub.unregister(c)
		_ = c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)

	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.hub.logger.Warn("ws read error",
					logx.String("event", "ws_read_error"),
					logx.String("user_id", c.UserID),
					logx.Err(err),
				)
			}
			return
		}

		var f Frame
		if err := json.Unmarshal(raw, &f); err != nil {
			c.hub.logger.Warn("ws bad frame",
				logx.String("event", "ws_bad_frame"),
				logx.String("user_id", c.UserID),
				logx.Err(err),
			)
			continue
		}

		if c.hub.handler == nil {
			continue
		}
		if err := c.hub.handler(c, f.Event, f.Data); err != nil {
			c.hub.logger.Warn("ws message rejected",
				logx.String("event", "ws_message_rejected"),
				logx.String("ws_event", f.Event),
				logx.String("user_id", c.UserID),
				logx.Err(err),
			)
		}
	}
}

func (c *Client) writePump() {
	ticker := time.NewTicker(pingInterval)
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
