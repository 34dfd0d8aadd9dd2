package handlers

import (
	"encoding/json"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/nyagrik/nyay-api/api"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// ChatHub tracks the websocket connection of each connected user so new
// messages can be pushed to the other participant in real time.
type ChatHub struct {
	mu      sync.Mutex
	clients map[string]*websocket.Conn
}

// NewChatHub creates an empty hub
func NewChatHub() *ChatHub {
	return &ChatHub{
		clients: make(map[string]*websocket.Conn),
	}
}

// ServeWS upgrades the request and registers the session's user. The
// connection is held open until the client disconnects; inbound frames are
// drained and discarded since delivery is push-only.
func (h *ChatHub) ServeWS(w http.ResponseWriter, r *http.Request) {
	claims := api.SessionFromContext(r.Context())

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade has already replied with an error status
		zap.S().Errorw("failed to upgrade connection",
			"userId", claims.UserID,
			"error", err)
		return
	}

	h.register(claims.UserID, conn)
	zap.S().Debugw("websocket connected", "userId", claims.UserID)

	go func() {
		defer h.unregister(claims.UserID, conn)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()
}

func (h *ChatHub) register(userID string, conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if old, ok := h.clients[userID]; ok {
		old.Close()
	}
	h.clients[userID] = conn
}

func (h *ChatHub) unregister(userID string, conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.clients[userID] == conn {
		delete(h.clients, userID)
	}
	conn.Close()
}

// Broadcast pushes a JSON payload to a user if they are connected. Offline
// users simply miss the push and catch up on the next chat fetch.
func (h *ChatHub) Broadcast(userID string, payload interface{}) {
	h.mu.Lock()
	conn, ok := h.clients[userID]
	h.mu.Unlock()
	if !ok {
		return
	}

	b, err := json.Marshal(payload)
	if err != nil {
		zap.S().Errorw("failed to marshal websocket payload",
			"userId", userID,
			"error", err)
		return
	}
	if err := conn.WriteMessage(websocket.TextMessage, b); err != nil {
		zap.S().Debugw("failed to push websocket message",
			"userId", userID,
			"error", err)
		h.unregister(userID, conn)
	}
}
