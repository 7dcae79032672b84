package client

import (
	"context"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"docsync/backend/internal/collab"
	"docsync/backend/internal/docs"
	"docsync/backend/internal/ws"
)

type nullAdapter struct{}

func (nullAdapter) Get(ctx context.Context, docID string) (*docs.Document, error) {
	return &docs.Document{DocumentID: docID}, nil
}
func (nullAdapter) DeleteRange(ctx context.Context, docID string, start, end int64) error {
	return nil
}
func (nullAdapter) InsertText(ctx context.Context, docID string, index int64, text string) error {
	return nil
}

type updates struct {
	mu   sync.Mutex
	seen []string
}

func (u *updates) add(content string) {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.seen = append(u.seen, content)
}

func (u *updates) snapshot() []string {
	u.mu.Lock()
	defer u.mu.Unlock()
	out := make([]string, len(u.seen))
	copy(out, u.seen)
	return out
}

func startGateway(t *testing.T) (wsURL string, hub *ws.Hub) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	hub = ws.NewHub()
	worker := collab.NewWorker(nullAdapter{}, nil, time.Second)
	mgr := ws.NewManager(hub, worker, ws.ManagerOptions{})

	r := gin.New()
	r.GET("/ws", mgr.WebSocketConnect)
	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws", hub
}

func waitSubscribers(t *testing.T, hub *ws.Hub, docID string, n int) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for hub.Subscribers(docID) != n {
		if time.Now().After(deadline) {
			t.Fatalf("subscribers of %s never reached %d", docID, n)
		}
		time.Sleep(2 * time.Millisecond)
	}
}

func TestClient_DebouncedEditReachesCollaborator(t *testing.T) {
	url, hub := startGateway(t)
	ctx := context.Background()

	received := &updates{}
	a, err := Dial(ctx, Options{URL: url, Quiet: 50 * time.Millisecond})
	if err != nil {
		t.Fatalf("dial a: %v", err)
	}
	defer a.Close()
	b, err := Dial(ctx, Options{
		URL:              url,
		Quiet:            50 * time.Millisecond,
		OnReceiveChanges: func(docID, content string) { received.add(content) },
	})
	if err != nil {
		t.Fatalf("dial b: %v", err)
	}
	defer b.Close()

	if err := a.JoinDocument("doc1"); err != nil {
		t.Fatalf("join a: %v", err)
	}
	if err := b.JoinDocument("doc1"); err != nil {
		t.Fatalf("join b: %v", err)
	}
	waitSubscribers(t, hub, "doc1", 2)

	// Rapid keystrokes collapse into one send-changes with the latest
	// content; the gateway normalizes before fan-out.
	a.Edit("doc1", "H")
	a.Edit("doc1", "He")
	a.Edit("doc1", "Hello\n\n\n\nWorld")

	deadline := time.Now().Add(2 * time.Second)
	for len(received.snapshot()) == 0 {
		if time.Now().After(deadline) {
			t.Fatal("collaborator never received the edit")
		}
		time.Sleep(5 * time.Millisecond)
	}
	// Allow any stray extra emission to surface before asserting.
	time.Sleep(150 * time.Millisecond)

	got := received.snapshot()
	if len(got) != 1 {
		t.Fatalf("received %v, want exactly one update", got)
	}
	if got[0] != "Hello\n\nWorld" {
		t.Fatalf("content = %q, want normalized %q", got[0], "Hello\n\nWorld")
	}
}

func TestClient_WhitespaceOnlyEditNeverSent(t *testing.T) {
	url, hub := startGateway(t)
	ctx := context.Background()

	received := &updates{}
	a, err := Dial(ctx, Options{URL: url, Quiet: 30 * time.Millisecond})
	if err != nil {
		t.Fatalf("dial a: %v", err)
	}
	defer a.Close()
	b, err := Dial(ctx, Options{
		URL:              url,
		OnReceiveChanges: func(docID, content string) { received.add(content) },
	})
	if err != nil {
		t.Fatalf("dial b: %v", err)
	}
	defer b.Close()

	a.JoinDocument("doc1")
	b.JoinDocument("doc1")
	waitSubscribers(t, hub, "doc1", 2)

	a.Edit("doc1", "   \n\t ")
	time.Sleep(150 * time.Millisecond)

	if got := received.snapshot(); len(got) != 0 {
		t.Fatalf("received %v, want nothing for whitespace-only edit", got)
	}
}

func TestClient_FlushSendsPendingImmediately(t *testing.T) {
	url, hub := startGateway(t)
	ctx := context.Background()

	received := &updates{}
	a, err := Dial(ctx, Options{URL: url, Quiet: time.Hour})
	if err != nil {
		t.Fatalf("dial a: %v", err)
	}
	defer a.Close()
	b, err := Dial(ctx, Options{
		URL:              url,
		OnReceiveChanges: func(docID, content string) { received.add(content) },
	})
	if err != nil {
		t.Fatalf("dial b: %v", err)
	}
	defer b.Close()

	a.JoinDocument("doc1")
	b.JoinDocument("doc1")
	waitSubscribers(t, hub, "doc1", 2)

	a.Edit("doc1", "final words")
	a.Flush("doc1")

	deadline := time.Now().Add(2 * time.Second)
	for len(received.snapshot()) == 0 {
		if time.Now().After(deadline) {
			t.Fatal("flush never delivered the edit")
		}
		time.Sleep(5 * time.Millisecond)
	}
	if got := received.snapshot(); got[0] != "final words" {
		t.Fatalf("content = %q, want %q", got[0], "final words")
	}
}
