package ws

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"docsync/backend/internal/collab"
)

const presenceTTL = 600 * time.Second

var connSeq uint64

// Conn is one subscriber connection. The read loop is the only goroutine
// touching joined, so the joined-set needs no lock; outbound traffic goes
// through the buffered send queue consumed by the write loop.
type Conn struct {
	ws       *websocket.Conn
	mgr      *Manager
	connID   string
	userID   uint64
	username string
	send     chan ServerMessage
	joined   map[string]struct{}
}

func NewConn(wsConn *websocket.Conn, mgr *Manager, userID uint64, username string) *Conn {
	return &Conn{
		ws:       wsConn,
		mgr:      mgr,
		connID:   fmt.Sprintf("c-%d", atomic.AddUint64(&connSeq, 1)),
		userID:   userID,
		username: username,
		send:     make(chan ServerMessage, 32),
		joined:   make(map[string]struct{}),
	}
}

// enqueue queues msg for delivery, dropping it if the subscriber cannot keep
// up. FIFO is preserved for everything that is delivered.
func (c *Conn) enqueue(msg ServerMessage) {
	select {
	case c.send <- msg:
	default:
	}
}

func (c *Conn) readLoop(ctx context.Context) {
	defer func() {
		c.leaveAll(ctx)
		close(c.send)
	}()
	for {
		var m ClientMessage
		if err := c.ws.ReadJSON(&m); err != nil {
			log.Printf("ws: read error (conn=%s user=%d): %v", c.connID, c.userID, err)
			return
		}
		switch m.Type {
		case MsgJoinDocument:
			c.handleJoin(ctx, m)
		case MsgSendChanges:
			c.handleSendChanges(ctx, m)
		case MsgLeaveDocument:
			c.handleLeave(ctx, m)
		case MsgHeartbeat:
			c.handleHeartbeat(ctx)
		default:
			log.Printf("ws: ignoring message type %q (conn=%s)", m.Type, c.connID)
		}
	}
}

func (c *Conn) writeLoop() {
	for msg := range c.send {
		_ = c.ws.WriteJSON(msg)
	}
}

func (c *Conn) handleJoin(ctx context.Context, m ClientMessage) {
	if m.DocID == "" {
		log.Printf("ws: join without docId dropped (conn=%s)", c.connID)
		return
	}
	c.mgr.hub.Join(m.DocID, c)
	c.joined[m.DocID] = struct{}{}

	if c.mgr.presence != nil {
		if err := c.mgr.presence.AddMember(ctx, m.DocID, c.userID, c.username, presenceTTL); err != nil {
			log.Printf("ws: presence add failed (doc=%s user=%d): %v", m.DocID, c.userID, err)
		}
	}

	// The joining client normally pulls current content from the backend
	// itself; hydrate is opt-in.
	if c.mgr.hydrateOnJoin {
		c.hydrate(ctx, m.DocID)
	}
}

func (c *Conn) hydrate(ctx context.Context, docID string) {
	if content, ok := c.mgr.hub.Snapshot(docID); ok {
		c.enqueue(ServerMessage{Type: MsgLoadDocument, DocID: docID, Content: content})
		return
	}
	if c.mgr.adapter == nil {
		return
	}
	doc, err := c.mgr.adapter.Get(ctx, docID)
	if err != nil {
		log.Printf("ws: hydrate fetch failed (doc=%s): %v", docID, err)
		return
	}
	c.enqueue(ServerMessage{Type: MsgLoadDocument, DocID: docID, Content: doc.PlainText()})
}

// handleSendChanges applies one edit event: normalize, schedule the backend
// write, fan out to the other room members, publish the event. A malformed
// event is dropped and logged; the connection stays up. Broadcast does not
// depend on the backend write succeeding.
func (c *Conn) handleSendChanges(ctx context.Context, m ClientMessage) {
	if m.DocID == "" {
		log.Printf("ws: edit without docId dropped (conn=%s)", c.connID)
		return
	}
	var content string
	if m.Content == nil || json.Unmarshal(m.Content, &content) != nil {
		log.Printf("ws: edit with invalid content dropped (conn=%s doc=%s)", c.connID, m.DocID)
		return
	}

	normalized := collab.NormalizeContent(content)

	c.mgr.hub.SetSnapshot(m.DocID, normalized)
	c.mgr.worker.Enqueue(collab.Job{DocID: m.DocID, Content: normalized})
	c.mgr.hub.Broadcast(m.DocID, ServerMessage{
		Type:    MsgReceiveChanges,
		DocID:   m.DocID,
		Content: normalized,
	}, c)

	if c.mgr.events != nil {
		evtCtx, cancel := context.WithTimeout(ctx, 200*time.Millisecond)
		err := c.mgr.events.Enqueue(evtCtx, collab.DocEditEvent{
			EventType: "EDIT_APPLIED",
			DocID:     m.DocID,
			AuthorID:  c.userID,
			ConnID:    c.connID,
			Content:   normalized,
			AppliedAt: time.Now(),
		})
		cancel()
		if err != nil {
			log.Printf("ws: edit event dropped (doc=%s): %v", m.DocID, err)
		}
	}
}

func (c *Conn) handleLeave(ctx context.Context, m ClientMessage) {
	if m.DocID == "" {
		return
	}
	c.leaveDoc(ctx, m.DocID)
}

func (c *Conn) handleHeartbeat(ctx context.Context) {
	if c.mgr.presence == nil {
		return
	}
	for docID := range c.joined {
		if err := c.mgr.presence.AddMember(ctx, docID, c.userID, c.username, presenceTTL); err != nil {
			log.Printf("ws: presence refresh failed (doc=%s user=%d): %v", docID, c.userID, err)
		}
	}
}

func (c *Conn) leaveDoc(ctx context.Context, docID string) {
	delete(c.joined, docID)
	c.mgr.hub.Leave(docID, c)
	if c.mgr.presence != nil {
		if err := c.mgr.presence.RemoveMember(ctx, docID, c.userID); err != nil {
			log.Printf("ws: presence remove failed (doc=%s user=%d): %v", docID, c.userID, err)
		}
	}
}

// leaveAll runs on transport teardown: a disconnect implicitly leaves every
// joined document.
func (c *Conn) leaveAll(ctx context.Context) {
	for docID := range c.joined {
		c.leaveDoc(ctx, docID)
	}
}
