package collab

import "time"

// DocEditEvent is published to Kafka for every edit the gateway applies,
// keyed by docID so one document's events stay on one partition.
type DocEditEvent struct {
	EventType string    `json:"eventType"` // fixed "EDIT_APPLIED"
	DocID     string    `json:"docId"`
	AuthorID  uint64    `json:"authorId"`
	ConnID    string    `json:"connId"`
	Content   string    `json:"content"` // normalized full content
	AppliedAt time.Time `json:"appliedAt"`
}
