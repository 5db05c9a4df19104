package persistence

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"
)

// Service bundles the SQL repository and the Redis live-state cache into the
// single persistence collaborator the coordinator consumes.
type Service struct {
	*Repository
	cache *LiveCache
}

func NewService(db *sqlx.DB, rdb *redis.Client, liveTTL time.Duration) *Service {
	return &Service{
		Repository: NewRepository(db),
		cache:      NewLiveCache(rdb, liveTTL),
	}
}

func (s *Service) CacheLiveState(ctx context.Context, matchID, fen string) error {
	return s.cache.CacheLiveState(ctx, matchID, fen)
}

func (s *Service) LiveState(ctx context.Context, matchID string) (string, error) {
	return s.cache.LiveState(ctx, matchID)
}

func (s *Service) DropLiveState(ctx context.Context, matchID string) error {
	return s.cache.DropLiveState(ctx, matchID)
}
