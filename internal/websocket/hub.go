package websocket

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	// Time allowed to write a message to the peer
	writeWait = 10 * time.Second
	// Time allowed to read the next pong message from the peer
	pongWait = 60 * time.Second
	// Send pings to peer with this period (must be less than pongWait)
	pingPeriod = (pongWait * 9) / 10
	// Maximum message size allowed from peer
	maxMessageSize = 512
)

// HubConfig holds the hub's broadcast and access settings
type HubConfig struct {
	BroadcastScrambles   bool
	BroadcastRequestLogs bool
	BroadcastSystem      bool
	BroadcastConnections bool
	Username             string
	Password             string
	AllowedOrigins       []string
}

// HubStats tracks hub activity
type HubStats struct {
	TotalConnections  int64     `json:"total_connections"`
	ActiveConnections int64     `json:"active_connections"`
	EventsSent        int64     `json:"events_sent"`
	EventsDropped     int64     `json:"events_dropped"`
	LastEventTime     time.Time `json:"last_event_time"`
}

// Hub maintains active WebSocket connections and broadcasts events
type Hub struct {
	clients    map[*Client]bool
	broadcast  chan Event
	register   chan *Client
	unregister chan *Client
	done       chan struct{}
	doneOnce   sync.Once
	config     HubConfig
	upgrader   websocket.Upgrader
	logger     *zap.Logger
	mu         sync.Mutex
	stats      HubStats
}

// NewHub creates a new WebSocket hub
func NewHub(config HubConfig, logger *zap.Logger) *Hub {
	h := &Hub{
		clients:    make(map[*Client]bool),
		broadcast:  make(chan Event, 256),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		done:       make(chan struct{}),
		config:     config,
		logger:     logger,
	}
	h.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     h.checkOrigin,
	}
	return h
}

// Run starts the hub's main event loop
func (h *Hub) Run() {
	h.logger.Info("WebSocket hub started")
	for {
		select {
		case client := <-h.register:
			h.registerClient(client)
		case client := <-h.unregister:
			h.unregisterClient(client)
		case event := <-h.broadcast:
			h.broadcastEvent(event)
		case <-h.done:
			h.closeAllClients()
			h.logger.Info("WebSocket hub stopped")
			return
		}
	}
}

// Stop shuts down the hub and disconnects all clients
func (h *Hub) Stop() {
	h.doneOnce.Do(func() {
		close(h.done)
	})
}

func (h *Hub) registerClient(client *Client) {
	h.mu.Lock()
	h.clients[client] = true
	h.stats.TotalConnections++
	h.stats.ActiveConnections = int64(len(h.clients))
	active := len(h.clients)
	h.mu.Unlock()

	h.logger.Info("WebSocket client connected",
		zap.String("client_id", client.ID),
		zap.String("client_ip", client.IP),
		zap.Int("active_connections", active))

	if h.config.BroadcastConnections {
		h.broadcastToOthers(client, Event{
			Type:      EventTypeConnection,
			Timestamp: time.Now(),
			Data: ConnectionEvent{
				Action:   "connected",
				ClientID: client.ID,
				ClientIP: client.IP,
			},
		})
	}
}

func (h *Hub) unregisterClient(client *Client) {
	h.mu.Lock()
	if _, ok := h.clients[client]; !ok {
		h.mu.Unlock()
		return
	}
	delete(h.clients, client)
	close(client.Send)
	h.stats.ActiveConnections = int64(len(h.clients))
	active := len(h.clients)
	h.mu.Unlock()

	h.logger.Info("WebSocket client disconnected",
		zap.String("client_id", client.ID),
		zap.String("client_ip", client.IP),
		zap.Int("active_connections", active))

	if h.config.BroadcastConnections {
		h.broadcastToOthers(client, Event{
			Type:      EventTypeConnection,
			Timestamp: time.Now(),
			Data: ConnectionEvent{
				Action:   "disconnected",
				ClientID: client.ID,
				ClientIP: client.IP,
			},
		})
	}
}

func (h *Hub) closeAllClients() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for client := range h.clients {
		close(client.Send)
		delete(h.clients, client)
	}
	h.stats.ActiveConnections = 0
}

// broadcastEvent sends an event to all subscribed clients. Clients whose
// send channel is full are evicted so one slow reader cannot stall the hub.
func (h *Hub) broadcastEvent(event Event) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for client := range h.clients {
		if !h.shouldSendToClient(client, event) {
			continue
		}
		select {
		case client.Send <- event:
			h.stats.EventsSent++
		default:
			h.stats.EventsDropped++
			close(client.Send)
			delete(h.clients, client)
			h.logger.Warn("WebSocket client send buffer full, disconnecting",
				zap.String("client_id", client.ID))
		}
	}
	h.stats.ActiveConnections = int64(len(h.clients))
	h.stats.LastEventTime = time.Now()
}

// broadcastToOthers sends an event to all clients except the given one
func (h *Hub) broadcastToOthers(exclude *Client, event Event) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for client := range h.clients {
		if client == exclude || !h.shouldSendToClient(client, event) {
			continue
		}
		select {
		case client.Send <- event:
			h.stats.EventsSent++
		default:
			h.stats.EventsDropped++
			close(client.Send)
			delete(h.clients, client)
		}
	}
	h.stats.ActiveConnections = int64(len(h.clients))
}

// shouldSendToClient checks the client's subscription against the event.
// Clients with no subscription receive everything.
func (h *Hub) shouldSendToClient(client *Client, event Event) bool {
	if client.Subscription == nil {
		return true
	}
	subscribed := false
	for _, eventType := range client.Subscription.Events {
		if eventType == event.Type {
			subscribed = true
			break
		}
	}
	if !subscribed {
		return false
	}
	return h.applyEventFilter(client.Subscription.Filter, event)
}

// applyEventFilter narrows scramble events to the entity types the
// client asked for. Other event types pass through unfiltered.
func (h *Hub) applyEventFilter(filter *EventFilter, event Event) bool {
	if filter == nil || len(filter.Entities) == 0 {
		return true
	}
	scrambleEvent, ok := event.Data.(ScrambleEvent)
	if !ok {
		return true
	}
	for _, finding := range scrambleEvent.Findings {
		for _, entity := range filter.Entities {
			if finding.Entity == entity {
				return true
			}
		}
	}
	return false
}

// BroadcastEvent sends an event to all connected clients if the hub's
// configuration allows that event type
func (h *Hub) BroadcastEvent(event Event) {
	if !h.shouldBroadcastEvent(event.Type) {
		return
	}
	select {
	case h.broadcast <- event:
	default:
		h.mu.Lock()
		h.stats.EventsDropped++
		h.mu.Unlock()
		h.logger.Warn("WebSocket broadcast buffer full, dropping event",
			zap.String("event_type", string(event.Type)))
	}
}

// shouldBroadcastEvent checks if an event type should be broadcast
func (h *Hub) shouldBroadcastEvent(eventType EventType) bool {
	switch eventType {
	case EventTypeScramble:
		return h.config.BroadcastScrambles
	case EventTypeRequestLog:
		return h.config.BroadcastRequestLogs
	case EventTypeSystemStatus:
		return h.config.BroadcastSystem
	case EventTypeConnection:
		return h.config.BroadcastConnections
	default:
		return false
	}
}

// HandleWebSocket handles WebSocket upgrade requests
func (h *Hub) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	if h.config.Username != "" {
		username, password, ok := parseBasicAuth(r)
		if !ok || username != h.config.Username || password != h.config.Password {
			h.logger.Warn("WebSocket authentication failed",
				zap.String("client_ip", getClientIP(r)))
			w.Header().Set("WWW-Authenticate", `Basic realm="scrambletron"`)
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Error("WebSocket upgrade failed", zap.Error(err))
		return
	}

	client := &Client{
		ID:          generateClientID(),
		Conn:        conn,
		Send:        make(chan Event, 64),
		ConnectedAt: time.Now(),
		LastPing:    time.Now(),
		IP:          getClientIP(r),
		UserAgent:   r.UserAgent(),
	}

	h.register <- client

	go h.handleClientWrite(client)
	go h.handleClientRead(client)
}

// checkOrigin validates the Origin header against the configured allowlist.
// Requests without an Origin header (non-browser clients) are allowed.
func (h *Hub) checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" || len(h.config.AllowedOrigins) == 0 {
		return true
	}
	for _, allowed := range h.config.AllowedOrigins {
		if allowed == "*" || strings.EqualFold(allowed, origin) {
			return true
		}
	}
	return false
}

// parseBasicAuth extracts username and password from the Authorization header
func parseBasicAuth(r *http.Request) (username, password string, ok bool) {
	auth := r.Header.Get("Authorization")
	if auth == "" {
		return "", "", false
	}
	const prefix = "Basic "
	if !strings.HasPrefix(auth, prefix) {
		return "", "", false
	}
	decoded, err := base64.StdEncoding.DecodeString(auth[len(prefix):])
	if err != nil {
		return "", "", false
	}
	credentials := string(decoded)
	idx := strings.IndexByte(credentials, ':')
	if idx < 0 {
		return "", "", false
	}
	return credentials[:idx], credentials[idx+1:], true
}

// handleClientWrite pumps events from the hub to the WebSocket connection
func (h *Hub) handleClientWrite(client *Client) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		client.Conn.Close()
	}()

	for {
		select {
		case event, ok := <-client.Send:
			client.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				client.Conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := client.Conn.WriteJSON(event); err != nil {
				h.logger.Debug("WebSocket write failed",
					zap.String("client_id", client.ID),
					zap.Error(err))
				return
			}
		case <-ticker.C:
			client.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := client.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// handleClientRead pumps messages from the WebSocket connection to the hub
func (h *Hub) handleClientRead(client *Client) {
	defer func() {
		h.unregister <- client
		client.Conn.Close()
	}()

	client.Conn.SetReadLimit(maxMessageSize)
	client.Conn.SetReadDeadline(time.Now().Add(pongWait))
	client.Conn.SetPongHandler(func(string) error {
		client.Conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		var msg ClientMessage
		if err := client.Conn.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				h.logger.Debug("WebSocket read error",
					zap.String("client_id", client.ID),
					zap.Error(err))
			}
			return
		}
		h.handleClientMessage(client, msg)
	}
}

// handleClientMessage processes messages received from clients
func (h *Hub) handleClientMessage(client *Client, msg ClientMessage) {
	switch msg.Type {
	case "subscribe":
		var subscription SubscriptionRequest
		raw, err := json.Marshal(msg.Data)
		if err == nil {
			err = json.Unmarshal(raw, &subscription)
		}
		if err != nil {
			h.logger.Warn("Invalid subscription request",
				zap.String("client_id", client.ID),
				zap.Error(err))
			return
		}
		h.mu.Lock()
		client.Subscription = &subscription
		h.mu.Unlock()
		h.logger.Debug("WebSocket client subscribed",
			zap.String("client_id", client.ID),
			zap.Int("event_types", len(subscription.Events)))
	case "ping":
		client.LastPing = time.Now()
		select {
		case client.Send <- Event{
			Type:      EventTypeConnection,
			Timestamp: time.Now(),
			Data:      ConnectionEvent{Action: "pong", ClientID: client.ID},
		}:
		default:
		}
	default:
		h.logger.Debug("Unknown WebSocket message type",
			zap.String("client_id", client.ID),
			zap.String("type", msg.Type))
	}
}

// GetStats returns a snapshot of the hub's statistics
func (h *Hub) GetStats() HubStats {
	h.mu.Lock()
	defer h.mu.Unlock()
	stats := h.stats
	stats.ActiveConnections = int64(len(h.clients))
	return stats
}

// ClientCount returns the number of connected clients
func (h *Hub) ClientCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

func generateClientID() string {
	return fmt.Sprintf("client_%d", time.Now().UnixNano())
}

// getClientIP extracts the client IP from the request
func getClientIP(r *http.Request) string {
	if forwarded := r.Header.Get("X-Forwarded-For"); forwarded != "" {
		if idx := strings.IndexByte(forwarded, ','); idx >= 0 {
			return strings.TrimSpace(forwarded[:idx])
		}
		return strings.TrimSpace(forwarded)
	}
	if realIP := r.Header.Get("X-Real-IP"); realIP != "" {
		return realIP
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
