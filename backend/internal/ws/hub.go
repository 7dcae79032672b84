package ws

import "sync"

// Hub maps a document to the set of connections subscribed to it. It holds
// membership only; connection lifecycle belongs to the transport layer. A
// room is created on first join and evicted the moment its last subscriber
// leaves, so many short-lived documents do not accumulate.
type Hub struct {
	mu    sync.RWMutex
	rooms map[string]*room
}

type room struct {
	// Keyed by connection, not user: one user may hold several tabs or
	// devices, and each needs its own delivery.
	conns map[*Conn]struct{}
	// Last content broadcast for this document; may be stale relative to
	// the backend. Used for optional hydrate on join.
	lastContent string
	hasContent  bool
}

func NewHub() *Hub {
	return &Hub{rooms: make(map[string]*room)}
}

func (h *Hub) Join(docID string, c *Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	r := h.rooms[docID]
	if r == nil {
		r = &room{conns: make(map[*Conn]struct{})}
		h.rooms[docID] = r
	}
	r.conns[c] = struct{}{}
}

func (h *Hub) Leave(docID string, c *Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if r, ok := h.rooms[docID]; ok {
		delete(r.conns, c)
		if len(r.conns) == 0 {
			delete(h.rooms, docID)
		}
	}
}

// Broadcast delivers msg to every subscriber of docID except exclude.
// Delivery goes through each connection's send queue, so a subscriber sees
// broadcasts for one document in the order the gateway issued them.
func (h *Hub) Broadcast(docID string, msg ServerMessage, exclude *Conn) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	r := h.rooms[docID]
	if r == nil {
		return
	}
	for c := range r.conns {
		if c == exclude {
			continue
		}
		c.enqueue(msg)
	}
}

// SetSnapshot records the latest content seen for a document's room.
func (h *Hub) SetSnapshot(docID, content string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if r, ok := h.rooms[docID]; ok {
		r.lastContent = content
		r.hasContent = true
	}
}

// Snapshot returns the room's last-known content, if any.
func (h *Hub) Snapshot(docID string) (string, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if r, ok := h.rooms[docID]; ok && r.hasContent {
		return r.lastContent, true
	}
	return "", false
}

// Rooms reports how many document sessions are live.
func (h *Hub) Rooms() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms)
}

// Subscribers reports the subscriber count of one document.
func (h *Hub) Subscribers(docID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if r, ok := h.rooms[docID]; ok {
		return len(r.conns)
	}
	return 0
}
