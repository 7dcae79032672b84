// Package client is a Go editing client for the sync gateway: it joins
// document rooms, debounces local edits into send-changes events, and
// surfaces live updates from other collaborators.
package client

import (
	"context"
	"log"
	"net/url"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"docsync/backend/internal/debounce"
	"docsync/backend/internal/ws"
)

const defaultQuietPeriod = 1000 * time.Millisecond

type Options struct {
	URL   string // ws:// or wss:// endpoint
	Token string // access token, sent as ?token=

	// Quiet is the debounce interval for Edit; edits settle for this long
	// before one send-changes event carries the latest content.
	Quiet time.Duration

	OnLoadDocument   func(docID, content string)
	OnReceiveChanges func(docID, content string)
}

type Client struct {
	conn *websocket.Conn
	opts Options

	writeMu sync.Mutex

	mu       sync.Mutex
	emitters map[string]*debounce.Emitter
	closed   bool
}

func Dial(ctx context.Context, opts Options) (*Client, error) {
	if opts.Quiet <= 0 {
		opts.Quiet = defaultQuietPeriod
	}
	endpoint := opts.URL
	if opts.Token != "" {
		u, err := url.Parse(endpoint)
		if err != nil {
			return nil, err
		}
		q := u.Query()
		q.Set("token", opts.Token)
		u.RawQuery = q.Encode()
		endpoint = u.String()
	}

	conn, _, err := websocket.DefaultDialer.DialContext(ctx, endpoint, nil)
	if err != nil {
		return nil, err
	}
	c := &Client{
		conn:     conn,
		opts:     opts,
		emitters: make(map[string]*debounce.Emitter),
	}
	go c.readLoop()
	return c, nil
}

func (c *Client) JoinDocument(docID string) error {
	return c.writeJSON(ws.ClientMessage{Type: ws.MsgJoinDocument, DocID: docID})
}

func (c *Client) LeaveDocument(docID string) error {
	c.mu.Lock()
	if e, ok := c.emitters[docID]; ok {
		e.Stop()
		delete(c.emitters, docID)
	}
	c.mu.Unlock()
	return c.writeJSON(ws.ClientMessage{Type: ws.MsgLeaveDocument, DocID: docID})
}

// Edit records a local content change. Nothing is sent until the quiet
// period elapses without further edits; then one send-changes event carries
// the latest content. Whitespace-only content is never sent.
func (c *Client) Edit(docID, content string) {
	c.emitter(docID).Update(content)
}

// Flush forces any pending edit for docID out immediately.
func (c *Client) Flush(docID string) {
	c.mu.Lock()
	e, ok := c.emitters[docID]
	c.mu.Unlock()
	if ok {
		e.Flush()
	}
}

func (c *Client) Heartbeat() error {
	return c.writeJSON(ws.ClientMessage{Type: ws.MsgHeartbeat})
}

// Close flushes pending edits and tears down the connection. The gateway
// treats the disconnect as leaving every joined document.
func (c *Client) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	emitters := make([]*debounce.Emitter, 0, len(c.emitters))
	for _, e := range c.emitters {
		emitters = append(emitters, e)
	}
	c.mu.Unlock()

	for _, e := range emitters {
		e.Flush()
	}
	return c.conn.Close()
}

func (c *Client) emitter(docID string) *debounce.Emitter {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.emitters[docID]
	if !ok {
		e = debounce.NewEmitter(c.opts.Quiet, func(content string) {
			c.sendChanges(docID, content)
		})
		c.emitters[docID] = e
	}
	return e
}

func (c *Client) sendChanges(docID, content string) {
	msg := map[string]any{
		"type":    ws.MsgSendChanges,
		"docId":   docID,
		"content": content,
	}
	if err := c.writeJSONAny(msg); err != nil {
		log.Printf("client: send-changes failed (doc=%s): %v", docID, err)
	}
}

func (c *Client) writeJSON(msg ws.ClientMessage) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	return c.conn.WriteJSON(msg)
}

func (c *Client) writeJSONAny(msg any) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	return c.conn.WriteJSON(msg)
}

func (c *Client) readLoop() {
	for {
		var msg ws.ServerMessage
		if err := c.conn.ReadJSON(&msg); err != nil {
			return
		}
		switch msg.Type {
		case ws.MsgLoadDocument:
			if c.opts.OnLoadDocument != nil {
				c.opts.OnLoadDocument(msg.DocID, msg.Content)
			}
		case ws.MsgReceiveChanges:
			if c.opts.OnReceiveChanges != nil {
				c.opts.OnReceiveChanges(msg.DocID, msg.Content)
			}
		}
	}
}
