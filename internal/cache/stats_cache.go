package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/maheshrc27/tupae-api/internal/transfer"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const (
	keyStatsOverview = "tupae:stats:overview"
	defaultStatsTTL  = time.Minute
)

// Connect opens a Redis client and checks it with a ping.
func Connect(ctx context.Context, addr string) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         addr,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
		PoolSize:     10,
		MinIdleConns: 2,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("ping redis %s: %w", addr, err)
	}
	return client, nil
}

// StatsCache keeps the undated stats overview of each user in Redis. Redis
// errors are logged and read as misses, so a cache outage only costs a
// recomputation.
type StatsCache struct {
	client redis.Cmdable
	ttl    time.Duration
}

func NewStatsCache(client redis.Cmdable, ttl time.Duration) *StatsCache {
	if ttl <= 0 {
		ttl = defaultStatsTTL
	}
	return &StatsCache{client: client, ttl: ttl}
}

func StatsKey(userID int64) string {
	return fmt.Sprintf("%s:%d", keyStatsOverview, userID)
}

func (c *StatsCache) Get(ctx context.Context, userID int64) (*transfer.PostStats, bool) {
	data, err := c.client.Get(ctx, StatsKey(userID)).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			zap.S().Warnw("stats cache get failed", "user_id", userID, "error", err)
		}
		return nil, false
	}

	var stats transfer.PostStats
	if err := json.Unmarshal(data, &stats); err != nil {
		zap.S().Warnw("stats cache entry unreadable", "user_id", userID, "error", err)
		return nil, false
	}
	return &stats, true
}

func (c *StatsCache) Set(ctx context.Context, userID int64, stats *transfer.PostStats) {
	data, err := json.Marshal(stats)
	if err != nil {
		zap.S().Warnw("stats cache marshal failed", "user_id", userID, "error", err)
		return
	}
	if err := c.client.Set(ctx, StatsKey(userID), data, c.ttl).Err(); err != nil {
		zap.S().Warnw("stats cache set failed", "user_id", userID, "error", err)
	}
}

func (c *StatsCache) Invalidate(ctx context.Context, userID int64) {
	if err := c.client.Del(ctx, StatsKey(userID)).Err(); err != nil {
		zap.S().Warnw("stats cache invalidate failed", "user_id", userID, "error", err)
	}
}
