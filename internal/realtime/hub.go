// Package realtime implements the websocket hub that pushes wellness alerts
// and metric updates to connected clients.
package realtime

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/edupulse/wellness-api/internal/models"
	"github.com/edupulse/wellness-api/pkg/config"
)

// TokenValidator verifies an access token and returns its claims.
type TokenValidator interface {
	ValidateToken(token string) (*models.JWTClaims, error)
}

// Client is one registered websocket connection.
type Client struct {
	UserID   string
	SchoolID string
	Role     string

	conn *websocket.Conn
	send chan []byte
	hub  *Hub
	once sync.Once
}

// Hub maintains the connection registry keyed by user ID. A user has at most
// one live connection; a new one replaces the old.
type Hub struct {
	cfg       config.RealtimeConfig
	validator TokenValidator
	upgrader  websocket.Upgrader
	logger    *zap.Logger
	gauge     prometheus.Gauge

	mu      sync.RWMutex
	clients map[string]*Client
}

func NewHub(cfg config.RealtimeConfig, validator TokenValidator, gauge prometheus.Gauge, logger *zap.Logger) *Hub {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.SendBufferSize <= 0 {
		cfg.SendBufferSize = 16
	}
	if cfg.WriteTimeout <= 0 {
		cfg.WriteTimeout = 10 * time.Second
	}
	if cfg.PongWait <= 0 {
		cfg.PongWait = 60 * time.Second
	}
	if cfg.MaxMessageBytes <= 0 {
		cfg.MaxMessageBytes = 1024
	}
	return &Hub{
		cfg:       cfg,
		validator: validator,
		logger:    logger,
		gauge:     gauge,
		clients:   make(map[string]*Client),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
	}
}

// HandleConnection upgrades the request and registers the client. A missing
// or invalid token still upgrades so the client receives a proper close frame
// (policy violation) instead of a bare HTTP error.
func (h *Hub) HandleConnection(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", zap.Error(err))
		return
	}

	token := r.URL.Query().Get("token")
	claims, err := h.authenticate(token)
	if err != nil {
		deadline := time.Now().Add(h.cfg.WriteTimeout)
		_ = conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.ClosePolicyViolation, "unauthorized"), deadline)
		_ = conn.Close()
		return
	}

	client := &Client{
		UserID:   claims.UserID,
		SchoolID: claims.SchoolID,
		Role:     claims.Role,
		conn:     conn,
		send:     make(chan []byte, h.cfg.SendBufferSize),
		hub:      h,
	}
	h.register(client)

	go client.writePump()
	go client.readPump()

	client.enqueue(models.Notification{
		Type: models.MsgConnectionEstablished,
		Data: map[string]string{"user_id": claims.UserID},
	})
}

func (h *Hub) authenticate(token string) (*models.JWTClaims, error) {
	if token == "" {
		return nil, websocket.ErrBadHandshake
	}
	return h.validator.ValidateToken(token)
}

func (h *Hub) register(client *Client) {
	h.mu.Lock()
	old := h.clients[client.UserID]
	h.clients[client.UserID] = client
	count := len(h.clients)
	h.mu.Unlock()

	if old != nil {
		old.close(websocket.ClosePolicyViolation, "replaced by newer connection")
	}
	if h.gauge != nil {
		h.gauge.Set(float64(count))
	}
	h.logger.Debug("client registered",
		zap.String("user_id", client.UserID),
		zap.String("school_id", client.SchoolID),
		zap.Int("connections", count))
}

func (h *Hub) unregister(client *Client) {
	h.mu.Lock()
	if current, ok := h.clients[client.UserID]; ok && current == client {
		delete(h.clients, client.UserID)
	}
	count := len(h.clients)
	h.mu.Unlock()

	if h.gauge != nil {
		h.gauge.Set(float64(count))
	}
}

// SendToUser delivers a notification to one user. Returns false when the user
// has no live connection or their buffer is full.
func (h *Hub) SendToUser(userID string, notification models.Notification) bool {
	h.mu.RLock()
	client, ok := h.clients[userID]
	h.mu.RUnlock()
	if !ok {
		return false
	}
	return client.enqueue(notification)
}

// SendToSchool fans a notification out to every connection of a school,
// optionally excluding one user. Returns the delivered count.
func (h *Hub) SendToSchool(schoolID string, notification models.Notification, excludeUserID string) int {
	h.mu.RLock()
	targets := make([]*Client, 0)
	for _, client := range h.clients {
		if client.SchoolID != schoolID || client.UserID == excludeUserID {
			continue
		}
		targets = append(targets, client)
	}
	h.mu.RUnlock()

	sent := 0
	for _, client := range targets {
		if client.enqueue(notification) {
			sent++
		}
	}
	return sent
}

// SendToRole delivers to every connection of a school whose role is in the
// given set. Returns the delivered count.
func (h *Hub) SendToRole(schoolID string, roles []string, notification models.Notification) int {
	roleSet := make(map[string]bool, len(roles))
	for _, role := range roles {
		roleSet[role] = true
	}

	h.mu.RLock()
	targets := make([]*Client, 0)
	for _, client := range h.clients {
		if client.SchoolID != schoolID || !roleSet[client.Role] {
			continue
		}
		targets = append(targets, client)
	}
	h.mu.RUnlock()

	sent := 0
	for _, client := range targets {
		if client.enqueue(notification) {
			sent++
		}
	}
	return sent
}

// Count returns the number of registered connections.
func (h *Hub) Count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// CloseAll disconnects every client with a going-away frame. Used during
// graceful shutdown.
func (h *Hub) CloseAll() {
	h.mu.Lock()
	clients := make([]*Client, 0, len(h.clients))
	for _, client := range h.clients {
		clients = append(clients, client)
	}
	h.clients = make(map[string]*Client)
	h.mu.Unlock()

	for _, client := range clients {
		client.close(websocket.CloseGoingAway, "server shutting down")
	}
	if h.gauge != nil {
		h.gauge.Set(0)
	}
}

// enqueue pushes a marshalled notification onto the client's send channel
// without blocking. A full buffer drops the message.
func (c *Client) enqueue(notification models.Notification) bool {
	raw, err := json.Marshal(notification)
	if err != nil {
		c.hub.logger.Warn("notification marshal failed", zap.Error(err))
		return false
	}
	select {
	case c.send <- raw:
		return true
	default:
		c.hub.logger.Warn("send buffer full, dropping message",
			zap.String("user_id", c.UserID),
			zap.String("type", notification.Type))
		return false
	}
}

// close sends a close frame and tears down the connection. The send channel
// is left open; writePump exits on the next failed write so senders can never
// hit a closed channel.
func (c *Client) close(code int, reason string) {
	c.once.Do(func() {
		deadline := time.Now().Add(c.hub.cfg.WriteTimeout)
		_ = c.conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(code, reason), deadline)
		_ = c.conn.Close()
	})
}

func (c *Client) readPump() {
	defer func() {
		c.hub.unregister(c)
		c.close(websocket.CloseNormalClosure, "")
	}()

	c.conn.SetReadLimit(c.hub.cfg.MaxMessageBytes)
	_ = c.conn.SetReadDeadline(time.Now().Add(c.hub.cfg.PongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(c.hub.cfg.PongWait))
	})

	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				c.hub.logger.Debug("read error", zap.String("user_id", c.UserID), zap.Error(err))
			}
			return
		}
		c.handleInbound(raw)
	}
}

// handleInbound processes a client message. Subscription requests are
// advisory; routing is derived from the client's identity, so they are just
// confirmed.
func (c *Client) handleInbound(raw []byte) {
	var msg models.Notification
	if err := json.Unmarshal(raw, &msg); err != nil {
		c.hub.logger.Debug("malformed client message", zap.String("user_id", c.UserID))
		return
	}
	switch msg.Type {
	case models.MsgPing:
		c.enqueue(models.Notification{Type: models.MsgPong})
	case models.MsgSubscribeWellness, models.MsgSubscribeAlerts:
		c.enqueue(models.Notification{
			Type: models.MsgSubscriptionConfirmed,
			Data: map[string]string{"subscription": msg.Type},
		})
	default:
		c.hub.logger.Debug("unknown client message type",
			zap.String("user_id", c.UserID),
			zap.String("type", msg.Type))
	}
}

func (c *Client) writePump() {
	pingInterval := c.hub.cfg.PongWait * 9 / 10
	ticker := time.NewTicker(pingInterval)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case raw := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(c.hub.cfg.WriteTimeout))
			if err := c.conn.WriteMessage(websocket.TextMessage, raw); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(c.hub.cfg.WriteTimeout))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
