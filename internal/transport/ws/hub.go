package ws

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/corray333/backend-labs/kitchen/internal/service/services/kitchensvc"
	"github.com/gorilla/websocket"
)

const writeWait = 5 * time.Second

var upgrader = websocket.Upgrader{
	CheckOrigin: func(*http.Request) bool {
		return true
	},
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
}

// Hub pushes board change notifications to connected screens.
type Hub struct {
	clients   map[*websocket.Conn]struct{}
	broadcast chan []byte
	mutex     sync.RWMutex
}

// NewHub creates a hub with a buffered broadcast queue.
func NewHub() *Hub {
	return &Hub{
		clients:   make(map[*websocket.Conn]struct{}),
		broadcast: make(chan []byte, 256),
	}
}

// Run delivers queued messages until ctx is done, then closes every client.
func (h *Hub) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			h.closeAll()

			return
		case msg := <-h.broadcast:
			h.deliver(msg)
		}
	}
}

func (h *Hub) deliver(msg []byte) {
	h.mutex.RLock()
	var failed []*websocket.Conn
	for client := range h.clients {
		_ = client.SetWriteDeadline(time.Now().Add(writeWait))
		if err := client.WriteMessage(websocket.TextMessage, msg); err != nil {
			failed = append(failed, client)
		}
	}
	h.mutex.RUnlock()

	for _, client := range failed {
		h.RemoveClient(client)
	}
}

func (h *Hub) closeAll() {
	h.mutex.Lock()
	defer h.mutex.Unlock()

	for client := range h.clients {
		_ = client.WriteControl(
			websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseGoingAway, "shutting down"),
			time.Now().Add(writeWait),
		)
		_ = client.Close()
		delete(h.clients, client)
	}
}

// AddClient registers a connection.
func (h *Hub) AddClient(conn *websocket.Conn) {
	h.mutex.Lock()
	h.clients[conn] = struct{}{}
	h.mutex.Unlock()
}

// RemoveClient unregisters and closes a connection.
func (h *Hub) RemoveClient(conn *websocket.Conn) {
	h.mutex.Lock()
	if _, ok := h.clients[conn]; ok {
		delete(h.clients, conn)
		_ = conn.Close()
	}
	h.mutex.Unlock()
}

// ClientsCount returns the number of connected screens.
func (h *Hub) ClientsCount() int {
	h.mutex.RLock()
	defer h.mutex.RUnlock()

	return len(h.clients)
}

// BroadcastMessage queues message for every client. A full queue drops it;
// screens still poll.
func (h *Hub) BroadcastMessage(message []byte) {
	select {
	case h.broadcast <- message:
	default:
		slog.Warn("Board notification dropped, broadcast queue is full")
	}
}

// Notify broadcasts a board change.
func (h *Hub) Notify(n kitchensvc.Notification) {
	msg, err := json.Marshal(n)
	if err != nil {
		slog.Error("Failed to encode board notification", "error", err)

		return
	}

	h.BroadcastMessage(msg)
}

// NotifyWarnings broadcasts that orders were escalated.
func (h *Hub) NotifyWarnings(count int64) {
	h.Notify(kitchensvc.Notification{Type: "warnings", OrderIDs: []string{}})
	slog.Info("Overdue orders escalated", "count", count)
}

// ServeWS upgrades the request and keeps the connection until the client leaves.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Warn("Failed to upgrade websocket connection", "error", err)

		return
	}

	h.AddClient(conn)
	slog.Info("Board connected", "clients", h.ClientsCount())

	defer func() {
		h.RemoveClient(conn)
		slog.Info("Board disconnected", "clients", h.ClientsCount())
	}()

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				slog.Warn("Websocket read failed", "error", err)
			}

			return
		}
	}
}
