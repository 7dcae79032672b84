package cache

import (
	"context"
	"strconv"
	"time"

	redis "github.com/redis/go-redis/v9"
)

// PresenceCache shares which users are live in which document room, so
// presence survives across processes. Liveness rides on per-member TTL keys
// refreshed by client heartbeats.
type PresenceCache interface {
	AddMember(ctx context.Context, docID string, userID uint64, username string, ttl time.Duration) error
	RemoveMember(ctx context.Context, docID string, userID uint64) error
	GetAliveMembers(ctx context.Context, docID string) ([]PresenceMember, error)
}

type PresenceMember struct {
	UserID   uint64
	Username string
}

type redisPresence struct {
	rdb redis.UniversalClient
}

func NewRedisPresence(rdb redis.UniversalClient) PresenceCache {
	return &redisPresence{rdb: rdb}
}

func (p *redisPresence) AddMember(ctx context.Context, docID string, userID uint64, username string, ttl time.Duration) error {
	pipe := p.rdb.Pipeline()
	pipe.SAdd(ctx, roomKey(docID), userID)
	pipe.Set(ctx, memberKey(docID, userID), "1", ttl)
	pipe.HSet(ctx, namesKey(docID), userID, username)
	_, err := pipe.Exec(ctx)
	return err
}

func (p *redisPresence) RemoveMember(ctx context.Context, docID string, userID uint64) error {
	pipe := p.rdb.Pipeline()
	pipe.SRem(ctx, roomKey(docID), userID)
	pipe.Del(ctx, memberKey(docID, userID))
	pipe.HDel(ctx, namesKey(docID), strconv.FormatUint(userID, 10))
	_, err := pipe.Exec(ctx)
	return err
}

// GetAliveMembers returns room members whose heartbeat key has not expired,
// with usernames resolved from the room's name hash.
func (p *redisPresence) GetAliveMembers(ctx context.Context, docID string) ([]PresenceMember, error) {
	userIDs, err := p.rdb.SMembers(ctx, roomKey(docID)).Result()
	if err != nil {
		return nil, err
	}
	if len(userIDs) == 0 {
		return nil, nil
	}

	existsCmds := make([]*redis.IntCmd, 0, len(userIDs))
	pipe := p.rdb.Pipeline()
	for _, raw := range userIDs {
		uid, err := strconv.ParseUint(raw, 10, 64)
		if err != nil {
			return nil, err
		}
		existsCmds = append(existsCmds, pipe.Exists(ctx, memberKey(docID, uid)))
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return nil, err
	}

	aliveIDs := make([]uint64, 0, len(userIDs))
	aliveFields := make([]string, 0, len(userIDs))
	for i, cmd := range existsCmds {
		if cmd.Val() == 1 {
			uid, err := strconv.ParseUint(userIDs[i], 10, 64)
			if err != nil {
				return nil, err
			}
			aliveIDs = append(aliveIDs, uid)
			aliveFields = append(aliveFields, userIDs[i])
		}
	}
	if len(aliveIDs) == 0 {
		return nil, nil
	}

	names, err := p.rdb.HMGet(ctx, namesKey(docID), aliveFields...).Result()
	if err != nil {
		return nil, err
	}
	members := make([]PresenceMember, 0, len(aliveIDs))
	for i, v := range names {
		name := ""
		if v != nil {
			name, _ = v.(string)
		}
		members = append(members, PresenceMember{UserID: aliveIDs[i], Username: name})
	}
	return members, nil
}
