package feed

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"socsim/internal/logger"
	"socsim/internal/metrics"
	"socsim/pkg/models"
)

// MessageNewAttack is the only message type pushed to clients.
const MessageNewAttack = "newAttack"

// Message is the envelope sent to every connected client.
type Message struct {
	Type string           `json:"type"`
	Data *models.Incident `json:"data"`
}

// Config configures the websocket hub.
type Config struct {
	SendBuffer     int
	WriteTimeout   time.Duration
	PingInterval   time.Duration
	PongTimeout    time.Duration
	MaxMessageSize int64
}

// DefaultConfig returns the hub defaults.
func DefaultConfig() Config {
	return Config{
		SendBuffer:     64,
		WriteTimeout:   10 * time.Second,
		PingInterval:   30 * time.Second,
		PongTimeout:    60 * time.Second,
		MaxMessageSize: 4096,
	}
}

type client struct {
	id   string
	conn *websocket.Conn
	send chan []byte
	once sync.Once
}

// Hub fans incidents out to websocket clients. Clients whose send buffer
// is full are disconnected.
type Hub struct {
	cfg      Config
	upgrader websocket.Upgrader
	metrics  *metrics.Metrics

	mu      sync.RWMutex
	clients map[string]*client
	closed  bool
}

// NewHub creates a hub.
func NewHub(cfg Config, m *metrics.Metrics) *Hub {
	def := DefaultConfig()
	if cfg.SendBuffer <= 0 {
		cfg.SendBuffer = def.SendBuffer
	}
	if cfg.WriteTimeout <= 0 {
		cfg.WriteTimeout = def.WriteTimeout
	}
	if cfg.PingInterval <= 0 {
		cfg.PingInterval = def.PingInterval
	}
	if cfg.PongTimeout <= 0 {
		cfg.PongTimeout = def.PongTimeout
	}
	if cfg.MaxMessageSize <= 0 {
		cfg.MaxMessageSize = def.MaxMessageSize
	}
	// A client must get at least one ping before its read deadline passes.
	if cfg.PongTimeout <= cfg.PingInterval {
		cfg.PongTimeout = 2 * cfg.PingInterval
	}
	return &Hub{
		cfg: cfg,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
		metrics: m,
		clients: make(map[string]*client),
	}
}

// Publish broadcasts a newAttack message without blocking the caller.
func (h *Hub) Publish(inc *models.Incident) {
	if inc == nil {
		return
	}
	data, err := json.Marshal(Message{Type: MessageNewAttack, Data: inc})
	if err != nil {
		logger.Errorf("Failed to marshal feed message for %s: %v", inc.IncidentID, err)
		return
	}

	var slow []*client
	h.mu.RLock()
	for _, c := range h.clients {
		select {
		case c.send <- data:
		default:
			slow = append(slow, c)
		}
	}
	h.mu.RUnlock()

	for _, c := range slow {
		logger.Warnf("Dropping slow feed client %s", c.id)
		h.remove(c)
	}
}

// ServeHTTP upgrades the request and serves the client until it disconnects.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.Warnf("Feed upgrade failed: %v", err)
		return
	}

	c := &client{id: uuid.NewString(), conn: conn, send: make(chan []byte, h.cfg.SendBuffer)}
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		conn.Close()
		return
	}
	h.clients[c.id] = c
	n := len(h.clients)
	h.mu.Unlock()
	h.metrics.FeedClients(n)
	logger.Infof("Feed client connected: %s (%d total)", c.id, n)

	go h.writePump(c)
	h.readPump(c)
}

// Clients returns the number of connected clients.
func (h *Hub) Clients() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Close disconnects every client and rejects new ones.
func (h *Hub) Close() {
	h.mu.Lock()
	h.closed = true
	clients := make([]*client, 0, len(h.clients))
	for _, c := range h.clients {
		clients = append(clients, c)
	}
	h.mu.Unlock()

	for _, c := range clients {
		h.remove(c)
	}
}

func (h *Hub) remove(c *client) {
	c.once.Do(func() {
		h.mu.Lock()
		delete(h.clients, c.id)
		n := len(h.clients)
		h.mu.Unlock()
		close(c.send)
		h.metrics.FeedClients(n)
		logger.Infof("Feed client disconnected: %s (%d total)", c.id, n)
	})
}

// readPump discards client input and keeps the pong deadline fresh.
func (h *Hub) readPump(c *client) {
	defer func() {
		h.remove(c)
		c.conn.Close()
	}()

	c.conn.SetReadLimit(h.cfg.MaxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(h.cfg.PongTimeout))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(h.cfg.PongTimeout))
	})
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (h *Hub) writePump(c *client) {
	ticker := time.NewTicker(h.cfg.PingInterval)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case msg, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(h.cfg.WriteTimeout))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				h.remove(c)
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(h.cfg.WriteTimeout))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				h.remove(c)
				return
			}
		}
	}
}
