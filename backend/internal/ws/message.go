package ws

import "encoding/json"

// ClientMessage is the inbound wire format. Content stays raw so one
// malformed edit (wrong type, missing field) can be dropped without tearing
// down the connection.
type ClientMessage struct {
	Type    string          `json:"type"`
	DocID   string          `json:"docId"`
	Content json.RawMessage `json:"content,omitempty"`
}

type ServerMessage struct {
	Type    string `json:"type"`
	DocID   string `json:"docId,omitempty"`
	Content string `json:"content,omitempty"`
}

const (
	// client -> gateway
	MsgJoinDocument  = "join-document"
	MsgSendChanges   = "send-changes"
	MsgLeaveDocument = "leave-document"
	MsgHeartbeat     = "heartbeat"

	// gateway -> client
	MsgLoadDocument   = "load-document"
	MsgReceiveChanges = "receive-changes"
)
