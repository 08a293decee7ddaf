package api

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/nerrad567/beacon-bridge/internal/device"
	"github.com/nerrad567/beacon-bridge/internal/infrastructure/config"
	"github.com/nerrad567/beacon-bridge/internal/infrastructure/logging"
)

// Frame types.
const (
	WSTypeSubscribe   = "subscribe"
	WSTypeUnsubscribe = "unsubscribe"
	WSTypePing        = "ping"
	WSTypePong        = "pong"
	WSTypeEvent       = "event"
	WSTypeResponse    = "response"
	WSTypeError       = "error"
)

// ChannelReadingUpdated carries a device.Snapshot after every registry
// update. Clients are subscribed to it on connect.
const ChannelReadingUpdated = "reading.updated"

const (
	wsSendBufferSize = 256

	defaultPingInterval = 30 * time.Second
	defaultPongTimeout  = 10 * time.Second
)

// WSMessage is one JSON frame in either direction.
type WSMessage struct {
	Type      string `json:"type"`
	ID        string `json:"id,omitempty"`
	EventType string `json:"event_type,omitempty"`
	Timestamp string `json:"timestamp,omitempty"`
	Payload   any    `json:"payload,omitempty"`
}

// WSSubscribePayload lists the channels of a subscribe or unsubscribe frame.
type WSSubscribePayload struct {
	Channels []string `json:"channels"`
}

// Hub fans reading events out to connected dashboards.
type Hub struct {
	cfg    config.WebSocketConfig
	logger *logging.Logger

	mu      sync.RWMutex
	clients map[*WSClient]struct{}
}

// WSClient is one dashboard connection. Broadcasts to a client whose
// buffer is full are dropped for that client only.
type WSClient struct {
	hub  *Hub
	conn *websocket.Conn

	// mu guards subscriptions and closed; send is closed exactly once,
	// under mu, so trySend never writes to a closed channel.
	mu            sync.RWMutex
	send          chan []byte
	subscriptions map[string]struct{}
	closed        bool
}

// NewHub creates an empty hub.
func NewHub(cfg config.WebSocketConfig, logger *logging.Logger) *Hub {
	return &Hub{cfg: cfg, logger: logger, clients: make(map[*WSClient]struct{})}
}

// Run blocks until ctx is done, then disconnects every client.
func (h *Hub) Run(ctx context.Context) {
	<-ctx.Done()

	h.mu.Lock()
	clients := h.clients
	h.clients = make(map[*WSClient]struct{})
	h.mu.Unlock()

	for c := range clients {
		c.close()
	}
}

// Register adds a client.
func (h *Hub) Register(c *WSClient) {
	h.mu.Lock()
	h.clients[c] = struct{}{}
	n := len(h.clients)
	h.mu.Unlock()
	h.logger.Debug("websocket client connected", "clients", n)
}

// Unregister removes a client and closes its send buffer. Calling it again
// for the same client is a no-op.
func (h *Hub) Unregister(c *WSClient) {
	h.mu.Lock()
	_, ok := h.clients[c]
	delete(h.clients, c)
	n := len(h.clients)
	h.mu.Unlock()

	if ok {
		c.close()
		h.logger.Debug("websocket client disconnected", "clients", n)
	}
}

// Broadcast sends payload as an event on channel to each subscribed client.
func (h *Hub) Broadcast(channel string, payload any) {
	data, err := json.Marshal(WSMessage{
		Type:      WSTypeEvent,
		EventType: channel,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Payload:   payload,
	})
	if err != nil {
		h.logger.Error("failed to marshal broadcast message", "error", err)
		return
	}

	// Collect first so hub and client locks are never held together.
	h.mu.RLock()
	clients := make([]*WSClient, 0, len(h.clients))
	for c := range h.clients {
		clients = append(clients, c)
	}
	h.mu.RUnlock()

	for _, c := range clients {
		if c.isSubscribed(channel) && !c.trySend(data) {
			h.logger.Debug("websocket client too slow, event dropped", "channel", channel)
		}
	}
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

func (s *Server) broadcastReading(snap device.Snapshot) {
	s.hub.Broadcast(ChannelReadingUpdated, snap)
}

// handleWebSocket upgrades to a WebSocket. Browser origins must pass the
// CORS allow-list; non-browser clients send no Origin and are let through.
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	upgrader := websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			origin := r.Header.Get("Origin")
			return origin == "" || s.isAllowedOrigin(origin)
		},
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("websocket upgrade failed", "error", err)
		return
	}

	c := &WSClient{
		hub:           s.hub,
		conn:          conn,
		send:          make(chan []byte, wsSendBufferSize),
		subscriptions: map[string]struct{}{ChannelReadingUpdated: {}},
	}
	s.hub.Register(c)

	t := newWSTimings(s.hub.cfg)
	go c.writeLoop(t)
	go c.readLoop(t, s.hub.cfg.MaxMessageSize)
}

// wsTimings holds the keepalive schedule. A client that sends nothing and
// answers no ping for ping+pong is dropped.
type wsTimings struct {
	ping time.Duration
	pong time.Duration
}

func newWSTimings(cfg config.WebSocketConfig) wsTimings {
	t := wsTimings{
		ping: time.Duration(cfg.PingInterval) * time.Second,
		pong: time.Duration(cfg.PongTimeout) * time.Second,
	}
	if t.ping <= 0 {
		t.ping = defaultPingInterval
	}
	if t.pong <= 0 {
		t.pong = defaultPongTimeout
	}
	return t
}

func (t wsTimings) readDeadline() time.Time {
	return time.Now().Add(t.ping + t.pong)
}

func (c *WSClient) readLoop(t wsTimings, maxMessageSize int) {
	defer func() {
		c.hub.Unregister(c)
		c.conn.Close()
	}()

	if maxMessageSize > 0 {
		c.conn.SetReadLimit(int64(maxMessageSize))
	}
	//nolint:errcheck // a failed deadline surfaces as a read error
	c.conn.SetReadDeadline(t.readDeadline())
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(t.readDeadline())
	})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.hub.logger.Warn("websocket read error", "error", err)
			}
			return
		}
		//nolint:errcheck // a failed deadline surfaces as a read error
		c.conn.SetReadDeadline(t.readDeadline())
		c.handleFrame(data)
	}
}

func (c *WSClient) writeLoop(t wsTimings) {
	ticker := time.NewTicker(t.ping)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		var (
			kind = websocket.PingMessage
			data []byte
		)
		select {
		case msg, ok := <-c.send:
			if !ok {
				//nolint:errcheck // closing anyway
				c.conn.WriteMessage(websocket.CloseMessage, nil)
				return
			}
			kind, data = websocket.TextMessage, msg
		case <-ticker.C:
		}

		//nolint:errcheck // a failed deadline surfaces as a write error
		c.conn.SetWriteDeadline(time.Now().Add(t.pong))
		if err := c.conn.WriteMessage(kind, data); err != nil {
			return
		}
	}
}

func (c *WSClient) handleFrame(data []byte) {
	var msg WSMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		c.reply("", WSTypeError, errorPayload("invalid JSON message"))
		return
	}

	switch msg.Type {
	case WSTypeSubscribe, WSTypeUnsubscribe:
		c.changeSubscriptions(msg)
	case WSTypePing:
		c.reply(msg.ID, WSTypePong, nil)
	default:
		c.reply(msg.ID, WSTypeError, errorPayload("unknown message type: "+msg.Type))
	}
}

// changeSubscriptions applies a subscribe or unsubscribe frame. Unknown
// channel names are accepted; they simply never carry events.
func (c *WSClient) changeSubscriptions(msg WSMessage) {
	// Payload arrives as a generic map; round-trip it into the typed form.
	raw, err := json.Marshal(msg.Payload)
	var sub WSSubscribePayload
	if err == nil {
		err = json.Unmarshal(raw, &sub)
	}
	if err != nil {
		c.reply(msg.ID, WSTypeError, errorPayload("invalid "+msg.Type+" payload"))
		return
	}

	subscribe := msg.Type == WSTypeSubscribe
	c.mu.Lock()
	for _, ch := range sub.Channels {
		if subscribe {
			c.subscriptions[ch] = struct{}{}
		} else {
			delete(c.subscriptions, ch)
		}
	}
	c.mu.Unlock()

	key := "unsubscribed"
	if subscribe {
		key = "subscribed"
		c.hub.logger.Debug("websocket client subscribed", "channels", sub.Channels)
	}
	c.reply(msg.ID, WSTypeResponse, map[string]any{key: sub.Channels})
}

func errorPayload(message string) map[string]string {
	return map[string]string{"message": message}
}

func (c *WSClient) reply(id, msgType string, payload any) {
	data, err := json.Marshal(WSMessage{
		Type:      msgType,
		ID:        id,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Payload:   payload,
	})
	if err != nil {
		return
	}
	c.trySend(data)
}

// trySend queues data without blocking. It reports false when the client
// is closed or its buffer is full.
func (c *WSClient) trySend(data []byte) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.closed {
		return false
	}
	select {
	case c.send <- data:
		return true
	default:
		return false
	}
}

func (c *WSClient) close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.closed = true
	close(c.send)
	if c.conn != nil {
		c.conn.Close()
	}
}

func (c *WSClient) isSubscribed(channel string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	_, ok := c.subscriptions[channel]
	return ok
}
