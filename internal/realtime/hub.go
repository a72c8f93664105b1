// Package realtime pushes committed lifecycle notices to staff browsers
// watching the live board.
package realtime

import (
	"context"
	"errors"
	"log"
	"net/http"
	"sync"
	"time"

	"eventos-backend/internal/models"

	"github.com/gorilla/websocket"
)

const writeWait = 10 * time.Second

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// ErrBacklog is returned when the broadcast queue is full and a notice is dropped
var ErrBacklog = errors.New("cola del tablero llena")

type Hub struct {
	clients    map[*websocket.Conn]bool
	clientsMux sync.Mutex
	broadcast  chan models.Notice
	logger     *log.Logger
}

func NewHub(logger *log.Logger) *Hub {
	if logger == nil {
		logger = log.Default()
	}
	return &Hub{
		clients:   make(map[*websocket.Conn]bool),
		broadcast: make(chan models.Notice, 64),
		logger:    logger,
	}
}

// Run fans notices out to every connected client until ctx is done
func (h *Hub) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			h.closeAll()
			return
		case n := <-h.broadcast:
			h.send(n)
		}
	}
}

// Notify queues a notice for broadcast without blocking the caller
func (h *Hub) Notify(ctx context.Context, n models.Notice) error {
	select {
	case h.broadcast <- n:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	default:
		return ErrBacklog
	}
}

// Clients returns the number of connected browsers
func (h *Hub) Clients() int {
	h.clientsMux.Lock()
	defer h.clientsMux.Unlock()
	return len(h.clients)
}

// ServeWS upgrades the request and keeps the connection until the client leaves
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Printf("[Tablero] WebSocket upgrade error: %v", err)
		return
	}

	h.clientsMux.Lock()
	h.clients[conn] = true
	h.clientsMux.Unlock()

	// Clients only listen; reading detects the close
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			h.remove(conn)
			return
		}
	}
}

func (h *Hub) send(n models.Notice) {
	h.clientsMux.Lock()
	defer h.clientsMux.Unlock()
	for client := range h.clients {
		client.SetWriteDeadline(time.Now().Add(writeWait))
		if err := client.WriteJSON(n); err != nil {
			client.Close()
			delete(h.clients, client)
		}
	}
}

func (h *Hub) remove(conn *websocket.Conn) {
	h.clientsMux.Lock()
	defer h.clientsMux.Unlock()
	if h.clients[conn] {
		delete(h.clients, conn)
		conn.Close()
	}
}

func (h *Hub) closeAll() {
	h.clientsMux.Lock()
	defer h.clientsMux.Unlock()
	for client := range h.clients {
		client.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseGoingAway, ""), time.Now().Add(writeWait))
		client.Close()
		delete(h.clients, client)
	}
}
