package realtime

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/AngelCh415/fakestat/internal/models"
	"github.com/AngelCh415/fakestat/internal/store"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // local testing tool
	},
}

// OpSnapshot is the op of the first message a client receives.
const OpSnapshot = "snapshot"

const (
	sendBuffer = 16
	writeWait  = 10 * time.Second
)

type client struct {
	conn *websocket.Conn
	send chan []byte
}

// Hub pushes store events to connected WebSocket clients. Each client has
// its own writer goroutine; a client whose queue fills up is dropped.
type Hub struct {
	mu      sync.Mutex // guards clients and last
	clients map[*client]struct{}
	last    []byte // latest collection, sent on connect
	log     *slog.Logger
}

// NewHub creates a hub whose first snapshot is initial. Later snapshots come
// from Broadcast.
func NewHub(log *slog.Logger, initial []models.TrafficStat) *Hub {
	h := &Hub{
		clients: make(map[*client]struct{}),
		log:     log,
	}
	if initial == nil {
		initial = []models.TrafficStat{}
	}
	h.last, _ = json.Marshal(store.Event{Op: OpSnapshot, Records: initial})
	return h
}

// HandleWebSocket upgrades the connection, queues the current snapshot and
// registers the client.
func (h *Hub) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warn("websocket upgrade", slog.String("err", err.Error()))
		return
	}

	c := &client{conn: conn, send: make(chan []byte, sendBuffer)}
	h.mu.Lock()
	c.send <- h.last
	h.clients[c] = struct{}{}
	h.mu.Unlock()

	go h.writeLoop(c)

	// read loop: only detects disconnects
	go func() {
		defer h.remove(c)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()
}

// Broadcast is a store subscriber. It never blocks on a client.
func (h *Hub) Broadcast(e store.Event) {
	data, err := json.Marshal(e)
	if err != nil {
		h.log.Error("websocket marshal", slog.String("err", err.Error()))
		return
	}
	snap, err := json.Marshal(store.Event{Op: OpSnapshot, Records: e.Records})
	if err != nil {
		h.log.Error("websocket marshal", slog.String("err", err.Error()))
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	h.last = snap
	for c := range h.clients {
		select {
		case c.send <- data:
		default:
			h.log.Warn("websocket client too slow, dropping")
			h.dropLocked(c)
			c.conn.Close()
		}
	}
}

func (h *Hub) writeLoop(c *client) {
	for msg := range c.send {
		c.conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
			h.log.Debug("websocket write", slog.String("err", err.Error()))
			c.conn.Close() // the read loop unregisters it
			for range c.send {
			}
			return
		}
	}
	c.conn.Close()
}

func (h *Hub) remove(c *client) {
	h.mu.Lock()
	h.dropLocked(c)
	h.mu.Unlock()
	c.conn.Close()
}

// dropLocked unregisters c and stops its writer. Safe to call twice.
func (h *Hub) dropLocked(c *client) {
	if _, ok := h.clients[c]; !ok {
		return
	}
	delete(h.clients, c)
	close(c.send)
}

func (h *Hub) ClientCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}
