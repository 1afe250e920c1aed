// Package ws is the websocket notification transport: one hub holds
// every live connection and delivers addressed payloads best-effort.
package ws

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"service-dispatch-go/internal/auth"
	"service-dispatch-go/internal/domain"
	"service-dispatch-go/internal/logx"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"
)

const (
	// authTimeout bounds the wait for the first (token) message.
	authTimeout = 5 * time.Second

	pingInterval   = 30 * time.Second
	pongWait       = 60 * time.Second
	writeWait      = 10 * time.Second
	maxMessageSize = 8192

	sendBuffer = 64
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(*http.Request) bool { return true },
}

// AuthFunc validates the token from the client's first message.
type AuthFunc func(token string) (auth.Identity, error)

// MessageHandler consumes one inbound frame from an authenticated client.
type MessageHandler func(c *Client, event string, data json.RawMessage) error

// Frame is the wire envelope in both directions.
type Frame struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// Hub tracks live connections and routes addressed payloads to them.
// Delivery is best-effort: no connection, slow reader, closed socket -
// the payload is dropped, never an error.
type Hub struct {
	authFn  AuthFunc
	handler MessageHandler
	logger  logx.Logger
	active  prometheus.Gauge

	mu      sync.RWMutex
	clients map[string]*Client
}

// NewHub creates a hub authenticating connects with authFn. active may be
// nil when connection count is not scraped.
func NewHub(authFn AuthFunc, logger logx.Logger, active prometheus.Gauge) *Hub {
	return &Hub{
		authFn:  authFn,
		logger:  logger,
		active:  active,
		clients: make(map[string]*Client),
	}
}

// SetMessageHandler installs the inbound frame handler. Must be called
// before the hub starts serving.
func (h *Hub) SetMessageHandler(fn MessageHandler) {
	h.handler = fn
}

// ServeHTTP upgrades the request and runs the connection until it drops.
// The client must send {"token": "..."} within authTimeout.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("ws upgrade failed",
			logx.String("event", "ws_upgrade_failed"),
			logx.Err(err),
		)
		return
	}

	_ = conn.SetReadDeadline(time.Now().Add(authTimeout))

	var hello struct {
		Token string `json:"token"`
	}
	if err := conn.ReadJSON(&hello); err != nil {
		_ = conn.WriteMessage(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.ClosePolicyViolation, "auth required"))
		_ = conn.Close()
		return
	}

	id, err := h.authFn(hello.Token)
	if err != nil {
		_ = conn.WriteJSON(map[string]string{"error": "invalid token"})
		_ = conn.Close()
		h.logger.Warn("ws auth rejected",
			logx.String("event", "ws_auth_rejected"),
		)
		return
	}

	c := &Client{
		id:     uuid.NewString(),
		UserID: id.UserID,
		Role:   id.Role,
		conn:   conn,
		send:   make(chan []byte, sendBuffer),
		hub:    h,
	}

	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	h.register(c)
	_ = conn.WriteJSON(map[string]string{"status": "authenticated", "userId": id.UserID})

	go c.writePump()
	go c.readPump()
}

func (h *Hub) register(c *Client) {
	h.mu.Lock()
	h.clients[c.id] = c
	h.mu.Unlock()

	if h.active != nil {
		h.active.Inc()
	}
	h.logger.Info("ws client connected",
		logx.String("event", "ws_connected"),
		logx.String("user_id", c.UserID),
		logx.String("role", string(c.Role)),
	)
}

func (h *Hub) unregister(c *Client) {
	h.mu.Lock()
	_, ok := h.clients[c.id]
	if ok {
		delete(h.clients, c.id)
		close(c.send)
	}
	h.mu.Unlock()
	if !ok {
		return
	}

	if h.active != nil {
		h.active.Dec()
	}
	h.logger.Info("ws client disconnected",
		logx.String("event", "ws_disconnected"),
		logx.String("user_id", c.UserID),
	)
}

// ToUser delivers the event to every connection of the user.
func (h *Hub) ToUser(userID, event string, payload any) {
	msg, err := marshalFrame(event, payload)
	if err != nil {
		h.logger.Error("ws marshal failed",
			logx.String("event", "ws_marshal_failed"),
			logx.String("ws_event", event),
			logx.Err(err),
		)
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, c := range h.clients {
		if c.UserID == userID {
			c.enqueue(msg)
		}
	}
}

// ToRole delivers the event to every connection held by the role.
func (h *Hub) ToRole(role domain.Role, event string, payload any) {
	msg, err := marshalFrame(event, payload)
	if err != nil {
		h.logger.Error("ws marshal failed",
			logx.String("event", "ws_marshal_failed"),
			logx.String("ws_event", event),
			logx.Err(err),
		)
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, c := range h.clients {
		if c.Role == role {
			c.enqueue(msg)
		}
	}
}

// Connected reports whether the user holds at least one live connection.
func (h *Hub) Connected(userID string) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, c := range h.clients {
		if c.UserID == userID {
			return true
		}
	}
	return false
}

func marshalFrame(event string, payload any) ([]byte, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return json.Marshal(Frame{Event: event, Data: data})
}
