package match

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/jobradar/jobradar/internal/domain"
	"github.com/jobradar/jobradar/internal/logger"
)

// RedisCache stores rankings in Redis so repeated requests across
// processes share one cache. TTL expiry is delegated to Redis.
type RedisCache struct {
	client *redis.Client
	ttl    time.Duration
	log    logger.Interface
}

// NewRedisCache creates a Redis-backed ranking cache.
func NewRedisCache(client *redis.Client, ttl time.Duration, log logger.Interface) *RedisCache {
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	return &RedisCache{client: client, ttl: ttl, log: log.WithComponent("match.cache")}
}

// Get returns the cached ranking when present. Redis failures degrade to a
// cache miss.
func (c *RedisCache) Get(ctx context.Context, candidateID string, filters Filters) ([]domain.MatchResult, bool) {
	data, err := c.client.Get(ctx, cacheKey(candidateID, filters)).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			c.log.Warn("ranking cache read failed", "candidate", candidateID, "error", err)
		}
		return nil, false
	}

	var results []domain.MatchResult
	if unmarshalErr := json.Unmarshal(data, &results); unmarshalErr != nil {
		c.log.Warn("ranking cache entry corrupt", "candidate", candidateID, "error", unmarshalErr)
		return nil, false
	}
	return results, true
}

// Set stores a ranking with TTL. Failures are logged, not propagated.
func (c *RedisCache) Set(ctx context.Context, candidateID string, filters Filters, results []domain.MatchResult) {
	data, err := json.Marshal(results)
	if err != nil {
		c.log.Warn("ranking cache encode failed", "candidate", candidateID, "error", err)
		return
	}
	if setErr := c.client.Set(ctx, cacheKey(candidateID, filters), data, c.ttl).Err(); setErr != nil {
		c.log.Warn("ranking cache write failed", "candidate", candidateID, "error", setErr)
	}
}
