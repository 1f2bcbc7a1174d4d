package feed

import (
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/polkiloo/labtracker/internal/domain/model"
)

// Hub fans order change events out to every connected browser.
type Hub struct {
	mu       sync.RWMutex
	clients  map[string]*Client
	closed   bool
	logger   *slog.Logger
	upgrader websocket.Upgrader
}

// NewHub creates a hub. Cross-origin upgrades are accepted only from
// allowedOrigins.
func NewHub(logger *slog.Logger, allowedOrigins []string) *Hub {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	h := &Hub{clients: make(map[string]*Client), logger: logger}
	h.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     originChecker(allowedOrigins),
	}
	return h
}

func originChecker(allowed []string) func(*http.Request) bool {
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true
		}
		u, err := url.Parse(origin)
		if err != nil {
			return false
		}
		if strings.EqualFold(u.Host, r.Host) {
			return true
		}
		for _, a := range allowed {
			if a == "*" || strings.EqualFold(a, origin) {
				return true
			}
		}
		return false
	}
}

// ServeWS upgrades the request and subscribes the connection. An empty
// clientID gets a generated one.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request, clientID string) error {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return err
	}
	if clientID == "" {
		clientID = uuid.NewString()
	}
	client := &Client{id: clientID + ":" + uuid.NewString(), hub: h, conn: conn, send: make(chan []byte, sendBuffer)}
	if !h.register(client) {
		_ = conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseGoingAway, "shutting down"))
		conn.Close()
		return nil
	}

	go client.writePump()
	go client.readPump()
	return nil
}

func (h *Hub) register(c *Client) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return false
	}
	h.clients[c.id] = c
	h.logger.Info("feed client connected", slog.String("client", c.id))
	return true
}

func (h *Hub) unregister(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if cur, ok := h.clients[c.id]; ok && cur == c {
		delete(h.clients, c.id)
		c.closeSend()
		h.logger.Info("feed client disconnected", slog.String("client", c.id))
	}
}

// Broadcast sends ev to every client and returns how many received it.
// Clients whose buffer is full are dropped.
func (h *Hub) Broadcast(ev model.ChangeEvent) int {
	msg, err := model.EncodeChangeEvent(ev)
	if err != nil {
		h.logger.Error("encode change event", slog.String("error", err.Error()))
		return 0
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	sent := 0
	for id, c := range h.clients {
		select {
		case c.send <- msg:
			sent++
		default:
			delete(h.clients, id)
			c.closeSend()
			h.logger.Warn("feed client too slow, dropped", slog.String("client", id))
		}
	}
	return sent
}

// Len reports the number of connected clients.
func (h *Hub) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Close disconnects every client and refuses new ones.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.closed = true
	for id, c := range h.clients {
		delete(h.clients, id)
		c.closeSend()
	}
}
