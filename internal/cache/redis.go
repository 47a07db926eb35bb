package cache

import (
	"context"
	"errors"
	"time"

	"catalog-chat/internal/common/logger"
	"catalog-chat/internal/common/metrics"

	"github.com/redis/go-redis/v9"
)

// redisStore is the shared remote tier. Expiry is delegated to Redis's
// native TTL.
type redisStore struct {
	client *redis.Client
	logger logger.Logger
}

// NewRedis wraps an existing Redis client without the startup probe.
func NewRedis(client *redis.Client, log logger.Logger) Store {
	return &redisStore{client: client, logger: log}
}

func (s *redisStore) Get(ctx context.Context, key string) ([]byte, bool) {
	val, err := s.client.Get(ctx, key).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			s.logger.Warn("cache read failed", map[string]interface{}{
				"key":   key,
				"error": err.Error(),
			})
			metrics.CacheRequests.WithLabelValues("redis", "error").Inc()
			return nil, false
		}
		metrics.CacheRequests.WithLabelValues("redis", "miss").Inc()
		return nil, false
	}

	metrics.CacheRequests.WithLabelValues("redis", "hit").Inc()
	return val, true
}

func (s *redisStore) Set(ctx context.Context, key string, value []byte, ttl time.Duration) {
	if err := s.client.Set(ctx, key, value, ttl).Err(); err != nil {
		s.logger.Warn("cache write failed", map[string]interface{}{
			"key":   key,
			"error": err.Error(),
		})
	}
}
