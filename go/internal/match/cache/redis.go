package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/mcdev12/futsal/go/internal/models"
)

const (
	DefaultTTL  = 6 * time.Hour
	FinishedTTL = time.Hour
)

// RedisCache keeps the latest snapshot of each match under a single key.
type RedisCache struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisCache(client *redis.Client, ttl time.Duration) *RedisCache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &RedisCache{client: client, ttl: ttl}
}

func snapshotKey(matchID string) string {
	return fmt.Sprintf("match:%s:snapshot", matchID)
}

// ttlFor shortens the lifetime of finished matches, the durable store is
// authoritative for them.
func (c *RedisCache) ttlFor(state models.MatchState) time.Duration {
	if state.Status == models.MatchStatusFinished {
		return min(c.ttl, FinishedTTL)
	}
	return c.ttl
}

func (c *RedisCache) Get(ctx context.Context, matchID string) (models.MatchState, bool, error) {
	data, err := c.client.Get(ctx, snapshotKey(matchID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return models.MatchState{}, false, nil
	}
	if err != nil {
		return models.MatchState{}, false, fmt.Errorf("reading snapshot: %w", err)
	}

	var state models.MatchState
	if err := json.Unmarshal(data, &state); err != nil {
		return models.MatchState{}, false, fmt.Errorf("unmarshaling snapshot: %w", err)
	}
	return state, true, nil
}

func (c *RedisCache) Put(ctx context.Context, state models.MatchState) error {
	data, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("marshaling snapshot: %w", err)
	}
	return c.client.Set(ctx, snapshotKey(state.MatchID), data, c.ttlFor(state)).Err()
}

func (c *RedisCache) Delete(ctx context.Context, matchID string) error {
	return c.client.Del(ctx, snapshotKey(matchID)).Err()
}

// Ping is used by the health check.
func (c *RedisCache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}
