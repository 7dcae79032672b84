package ws

import (
	"context"
	"errors"
	"net"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"docsync/backend/internal/collab"
	"docsync/backend/internal/docs"
)

// stubAdapter records backend calls; endIndex simulates the current length.
type stubAdapter struct {
	mu       sync.Mutex
	endIndex int64
	deletes  [][2]int64
	inserts  []string
}

func (f *stubAdapter) Get(ctx context.Context, docID string) (*docs.Document, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return &docs.Document{
		DocumentID: docID,
		Body:       docs.Body{Content: []docs.StructuralElement{{EndIndex: f.endIndex}}},
	}, nil
}

func (f *stubAdapter) DeleteRange(ctx context.Context, docID string, start, end int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deletes = append(f.deletes, [2]int64{start, end})
	return nil
}

func (f *stubAdapter) InsertText(ctx context.Context, docID string, index int64, text string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.inserts = append(f.inserts, text)
	return nil
}

func (f *stubAdapter) state() (deletes [][2]int64, inserts []string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([][2]int64{}, f.deletes...), append([]string{}, f.inserts...)
}

type gatewayFixture struct {
	srv     *httptest.Server
	hub     *Hub
	worker  *collab.Worker
	adapter *stubAdapter
}

func newGatewayFixture(t *testing.T, hydrate bool) *gatewayFixture {
	t.Helper()
	gin.SetMode(gin.TestMode)

	adapter := &stubAdapter{endIndex: 13}
	worker := collab.NewWorker(adapter, nil, 2*time.Second)
	hub := NewHub()
	mgr := NewManager(hub, worker, ManagerOptions{Adapter: adapter, HydrateOnJoin: hydrate})

	r := gin.New()
	r.GET("/ws", mgr.WebSocketConnect)
	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)

	return &gatewayFixture{srv: srv, hub: hub, worker: worker, adapter: adapter}
}

func (f *gatewayFixture) dial(t *testing.T) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(f.srv.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func (f *gatewayFixture) waitSubscribers(t *testing.T, docID string, n int) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for f.hub.Subscribers(docID) != n {
		if time.Now().After(deadline) {
			t.Fatalf("subscribers of %s never reached %d", docID, n)
		}
		time.Sleep(2 * time.Millisecond)
	}
}

func readServerMessage(t *testing.T, conn *websocket.Conn) ServerMessage {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var msg ServerMessage
	if err := conn.ReadJSON(&msg); err != nil {
		t.Fatalf("read: %v", err)
	}
	return msg
}

func expectSilence(t *testing.T, conn *websocket.Conn) {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(150 * time.Millisecond))
	var msg ServerMessage
	err := conn.ReadJSON(&msg)
	if err == nil {
		t.Fatalf("unexpected message: %+v", msg)
	}
	var netErr net.Error
	if !errors.As(err, &netErr) || !netErr.Timeout() {
		t.Fatalf("read failed with %v, want timeout", err)
	}
}

func TestGateway_EndToEndEditFlow(t *testing.T) {
	f := newGatewayFixture(t, false)

	a := f.dial(t)
	b := f.dial(t)
	a.WriteJSON(ClientMessage{Type: MsgJoinDocument, DocID: "doc1"})
	b.WriteJSON(ClientMessage{Type: MsgJoinDocument, DocID: "doc1"})
	f.waitSubscribers(t, "doc1", 2)

	if err := a.WriteJSON(map[string]any{
		"type":    MsgSendChanges,
		"docId":   "doc1",
		"content": "Hello\n\n\n\nWorld",
	}); err != nil {
		t.Fatalf("write: %v", err)
	}

	// The other subscriber sees the normalized content live.
	msg := readServerMessage(t, b)
	if msg.Type != MsgReceiveChanges || msg.DocID != "doc1" {
		t.Fatalf("message = %+v, want receive-changes for doc1", msg)
	}
	if msg.Content != "Hello\n\nWorld" {
		t.Fatalf("content = %q, want %q", msg.Content, "Hello\n\nWorld")
	}

	// The origin never hears its own edit echoed back.
	expectSilence(t, a)

	// The backend sees one clear followed by one insert of the
	// normalized content.
	f.worker.Wait()
	deletes, inserts := f.adapter.state()
	if len(deletes) != 1 || deletes[0] != [2]int64{1, 12} {
		t.Fatalf("deletes = %v, want one [1,12)", deletes)
	}
	if len(inserts) != 1 || inserts[0] != "Hello\n\nWorld" {
		t.Fatalf("inserts = %v, want [Hello\\n\\nWorld]", inserts)
	}
}

func TestGateway_MalformedEditDroppedConnectionSurvives(t *testing.T) {
	f := newGatewayFixture(t, false)

	a := f.dial(t)
	b := f.dial(t)
	a.WriteJSON(ClientMessage{Type: MsgJoinDocument, DocID: "doc1"})
	b.WriteJSON(ClientMessage{Type: MsgJoinDocument, DocID: "doc1"})
	f.waitSubscribers(t, "doc1", 2)

	// Missing docId, then non-string content: both dropped.
	a.WriteJSON(map[string]any{"type": MsgSendChanges, "content": "orphan"})
	a.WriteJSON(map[string]any{"type": MsgSendChanges, "docId": "doc1", "content": 42})
	expectSilence(t, b)

	// The same connection still works afterwards.
	a.WriteJSON(map[string]any{"type": MsgSendChanges, "docId": "doc1", "content": "still alive"})
	msg := readServerMessage(t, b)
	if msg.Content != "still alive" {
		t.Fatalf("content = %q, want %q", msg.Content, "still alive")
	}
}

func TestGateway_DisconnectImplicitlyLeaves(t *testing.T) {
	f := newGatewayFixture(t, false)

	a := f.dial(t)
	a.WriteJSON(ClientMessage{Type: MsgJoinDocument, DocID: "doc1"})
	a.WriteJSON(ClientMessage{Type: MsgJoinDocument, DocID: "doc2"})
	f.waitSubscribers(t, "doc1", 1)
	f.waitSubscribers(t, "doc2", 1)

	a.Close()

	deadline := time.Now().Add(2 * time.Second)
	for f.hub.Rooms() != 0 {
		if time.Now().After(deadline) {
			t.Fatalf("rooms = %d after disconnect, want 0", f.hub.Rooms())
		}
		time.Sleep(2 * time.Millisecond)
	}
}

func TestGateway_LeaveDocumentStopsDelivery(t *testing.T) {
	f := newGatewayFixture(t, false)

	a := f.dial(t)
	b := f.dial(t)
	a.WriteJSON(ClientMessage{Type: MsgJoinDocument, DocID: "doc1"})
	b.WriteJSON(ClientMessage{Type: MsgJoinDocument, DocID: "doc1"})
	f.waitSubscribers(t, "doc1", 2)

	b.WriteJSON(ClientMessage{Type: MsgLeaveDocument, DocID: "doc1"})
	f.waitSubscribers(t, "doc1", 1)

	a.WriteJSON(map[string]any{"type": MsgSendChanges, "docId": "doc1", "content": "after leave"})
	expectSilence(t, b)
}

func TestGateway_HydrateOnJoinServesSnapshot(t *testing.T) {
	f := newGatewayFixture(t, true)

	a := f.dial(t)
	a.WriteJSON(ClientMessage{Type: MsgJoinDocument, DocID: "doc1"})
	f.waitSubscribers(t, "doc1", 1)
	a.WriteJSON(map[string]any{"type": MsgSendChanges, "docId": "doc1", "content": "Latest\n\n\n\ndraft"})

	// The backend write finishing implies the room snapshot is in place.
	deadline := time.Now().Add(2 * time.Second)
	for {
		if _, inserts := f.adapter.state(); len(inserts) == 1 {
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("edit never reached the backend")
		}
		time.Sleep(2 * time.Millisecond)
	}

	// Late joiner gets the room's normalized snapshot.
	c := f.dial(t)
	c.WriteJSON(ClientMessage{Type: MsgJoinDocument, DocID: "doc1"})
	msg := readServerMessage(t, c)
	if msg.Type != MsgLoadDocument || msg.Content != "Latest\n\ndraft" {
		t.Fatalf("message = %+v, want load-document with normalized snapshot", msg)
	}
}
