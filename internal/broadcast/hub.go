// Package broadcast fans out binary chunk updates to websocket viewers.
package broadcast

import (
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"voxelwater/internal/logger"
)

const writeWait = 5 * time.Second

type client struct {
	conn *websocket.Conn
	send chan []byte
}

// Hub tracks connected viewers. Publish never blocks: a viewer whose send
// buffer is full is disconnected.
type Hub struct {
	upgrader   websocket.Upgrader
	sendBuffer int

	mu      sync.Mutex
	clients map[*client]struct{}
	closed  bool

	log *zap.Logger
}

// NewHub creates a hub that buffers up to sendBuffer messages per viewer.
func NewHub(sendBuffer int) *Hub {
	return &Hub{
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		sendBuffer: max(sendBuffer, 1),
		clients:    make(map[*client]struct{}),
		log:        logger.Named("broadcast"),
	}
}

// ServeHTTP upgrades the request to a websocket and registers the viewer.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.mu.Lock()
	closed := h.closed
	h.mu.Unlock()
	if closed {
		http.Error(w, "shutting down", http.StatusServiceUnavailable)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warn("websocket upgrade failed", zap.Error(err))
		return
	}
	c := &client{conn: conn, send: make(chan []byte, h.sendBuffer)}

	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		conn.Close()
		return
	}
	h.clients[c] = struct{}{}
	n := len(h.clients)
	h.mu.Unlock()
	h.log.Info("viewer connected", zap.String("addr", conn.RemoteAddr().String()), zap.Int("viewers", n))

	go h.writePump(c)
	go h.readPump(c)
}

func (h *Hub) writePump(c *client) {
	for msg := range c.send {
		c.conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := c.conn.WriteMessage(websocket.BinaryMessage, msg); err != nil {
			h.log.Debug("viewer write failed", zap.Error(err))
			h.remove(c)
			break
		}
	}
	c.conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(writeWait))
	c.conn.Close()
}

// readPump only watches for the viewer going away.
func (h *Hub) readPump(c *client) {
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			h.remove(c)
			return
		}
	}
}

// remove unregisters c. The write pump closes the connection.
func (h *Hub) remove(c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[c]; !ok {
		return
	}
	delete(h.clients, c)
	close(c.send)
	h.log.Info("viewer disconnected", zap.String("addr", c.conn.RemoteAddr().String()), zap.Int("viewers", len(h.clients)))
}

// Publish queues payload for every viewer and returns how many accepted it.
func (h *Hub) Publish(payload []byte) int {
	h.mu.Lock()
	var slow []*client
	sent := 0
	for c := range h.clients {
		select {
		case c.send <- payload:
			sent++
		default:
			slow = append(slow, c)
		}
	}
	h.mu.Unlock()

	for _, c := range slow {
		h.log.Warn("dropping slow viewer", zap.String("addr", c.conn.RemoteAddr().String()))
		h.remove(c)
	}
	return sent
}

// ClientCount returns the number of connected viewers.
func (h *Hub) ClientCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// Close disconnects every viewer and refuses new ones.
func (h *Hub) Close() {
	h.mu.Lock()
	h.closed = true
	clients := make([]*client, 0, len(h.clients))
	for c := range h.clients {
		clients = append(clients, c)
	}
	h.mu.Unlock()

	for _, c := range clients {
		h.remove(c)
	}
}
