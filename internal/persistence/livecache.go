package persistence

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// LiveCache keeps the current serialized position of each active match in
// Redis so a reconnecting client can re-fetch state without replaying moves.
type LiveCache struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewLiveCache(rdb *redis.Client, ttl time.Duration) *LiveCache {
	return &LiveCache{rdb: rdb, ttl: ttl}
}

func liveKey(matchID string) string { return "match:live:" + matchID }

func (c *LiveCache) CacheLiveState(ctx context.Context, matchID, fen string) error {
	return c.rdb.Set(ctx, liveKey(matchID), fen, c.ttl).Err()
}

func (c *LiveCache) LiveState(ctx context.Context, matchID string) (string, error) {
	fen, err := c.rdb.Get(ctx, liveKey(matchID)).Result()
	if err == redis.Nil {
		return "", fmt.Errorf("no live state for match %s", matchID)
	}
	if err != nil {
		return "", err
	}
	return fen, nil
}

func (c *LiveCache) DropLiveState(ctx context.Context, matchID string) error {
	return c.rdb.Del(ctx, liveKey(matchID)).Err()
}
