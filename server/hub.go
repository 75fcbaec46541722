package server

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/TFMV/versegraph/snapshot"
)

const (
	// Time allowed to write a message to the peer
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer
	pongWait = 60 * time.Second

	// Send pings to peer with this period (must be less than pongWait)
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer
	maxMessageSize = 4 * 1024

	// Send buffer size; a slow client loses frames rather than stalling the layout
	sendBufferSize = 32
)

// Stream message types
const (
	messageSnapshot = "snapshot"
	messageSelect   = "select"
	messageDrag     = "drag"
)

// message is one frame on /api/stream
type message struct {
	Type     string             `json:"type"`
	Snapshot *snapshot.Snapshot `json:"snapshot,omitempty"`
	NodeID   string             `json:"nodeId,omitempty"`
	X        float64            `json:"x,omitempty"`
	Y        float64            `json:"y,omitempty"`
}

// hub tracks connected stream clients
type hub struct {
	logger *zap.Logger

	mu      sync.Mutex
	clients map[*client]struct{}
}

func newHub(logger *zap.Logger) *hub {
	return &hub{logger: logger, clients: make(map[*client]struct{})}
}

func (h *hub) add(c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.clients[c] = struct{}{}
}

// remove unregisters c and closes its send channel once
func (h *hub) remove(c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[c]; ok {
		delete(h.clients, c)
		close(c.send)
	}
}

func (h *hub) count() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// broadcast queues m for every client without blocking
func (h *hub) broadcast(m message) {
	data, err := json.Marshal(m)
	if err != nil {
		h.logger.Error("failed to encode stream message", zap.String("type", m.Type), zap.Error(err))
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.clients {
		select {
		case c.send <- data:
		default:
			c.logger.Debug("stream client is behind, frame dropped", zap.String("type", m.Type))
		}
	}
}

func (h *hub) closeAll() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.clients {
		delete(h.clients, c)
		close(c.send)
	}
}

// client represents a WebSocket stream connection
type client struct {
	id     string
	hub    *hub
	conn   *websocket.Conn
	send   chan []byte
	logger *zap.Logger
}

func newClient(h *hub, conn *websocket.Conn, logger *zap.Logger) *client {
	id := uuid.New().String()
	return &client{
		id:     id,
		hub:    h,
		conn:   conn,
		send:   make(chan []byte, sendBufferSize),
		logger: logger.With(zap.String("connectionID", id)),
	}
}

// readPump discards inbound messages and unregisters the client once the
// peer goes away
func (c *client) readPump() {
	defer func() {
		c.hub.remove(c)
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.logger.Warn("stream read error", zap.Error(err))
			}
			return
		}
	}
}

// writePump pumps queued messages to the connection
func (c *client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case data, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				c.logger.Debug("stream write failed", zap.Error(err))
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
