package ws

import (
	"log"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"docsync/backend/internal/cache"
	"docsync/backend/internal/collab"
	"docsync/backend/internal/docs"
)

var upgrader = websocket.Upgrader{CheckOrigin: func(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" || origin == "null" {
		return true
	}
	allowedPrefixes := []string{
		"http://localhost",
		"http://127.0.0.1",
		"https://localhost",
		"https://127.0.0.1",
	}
	for _, p := range allowedPrefixes {
		if strings.HasPrefix(origin, p) {
			return true
		}
	}
	return false
}}

// Manager owns the dependencies shared by all gateway connections. Its
// lifecycle is tied to server startup/shutdown; nothing here is a package
// singleton.
type Manager struct {
	hub           *Hub
	worker        *collab.Worker
	events        *collab.KafkaDispatcher
	presence      cache.PresenceCache
	adapter       docs.Adapter
	hydrateOnJoin bool
}

type ManagerOptions struct {
	Events        *collab.KafkaDispatcher
	Presence      cache.PresenceCache
	Adapter       docs.Adapter
	HydrateOnJoin bool
}

func NewManager(hub *Hub, worker *collab.Worker, opt ManagerOptions) *Manager {
	return &Manager{
		hub:           hub,
		worker:        worker,
		events:        opt.Events,
		presence:      opt.Presence,
		adapter:       opt.Adapter,
		hydrateOnJoin: opt.HydrateOnJoin,
	}
}

// WebSocketConnect upgrades the request and services the connection until it
// closes. Auth middleware has already stored userId/username on the context.
func (m *Manager) WebSocketConnect(c *gin.Context) {
	userID := c.GetUint64("userId")
	username := c.GetString("username")

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Printf("ws: upgrade error: %v (origin=%s)", err, c.Request.Header.Get("Origin"))
		return
	}
	defer conn.Close()

	wsConn := NewConn(conn, m, userID, username)

	// Start the write loop first so anything queued during the read loop is
	// flushed promptly.
	go wsConn.writeLoop()
	wsConn.readLoop(c.Request.Context())
}
