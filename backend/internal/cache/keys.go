package cache

import "fmt"

// Key semantics:
// - roomKey(docID):           candidate member set (Set<userId>)
// - memberKey(docID,userID):  member heartbeat key (String "1" with TTL)
// - namesKey(docID):          userId -> username map (Hash)

const (
	keyRoomFmt   = "presence:room:%s"
	keyMemberFmt = "presence:member:%s:%d"
	keyNamesFmt  = "presence:room:names:%s"
)

func roomKey(docID string) string                  { return fmt.Sprintf(keyRoomFmt, docID) }
func memberKey(docID string, userID uint64) string { return fmt.Sprintf(keyMemberFmt, docID, userID) }
func namesKey(docID string) string                 { return fmt.Sprintf(keyNamesFmt, docID) }
