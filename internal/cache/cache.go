// Package cache is a process-wide TTL key/value store. It prefers a shared
// Redis backend when one is reachable at startup and falls back to an
// in-process map otherwise. Caching here is purely an optimization: every
// failure degrades to a miss for reads and a no-op for writes, so callers
// must always keep a path to the source of truth.
package cache

import (
	"context"
	"sync"
	"time"

	"catalog-chat/internal/common/logger"
	"catalog-chat/internal/common/metrics"

	"github.com/redis/go-redis/v9"
)

// Store is the cache contract. Values are opaque bytes; callers marshal.
type Store interface {
	// Get returns the cached value, or ok=false when the key is absent,
	// expired, or the backend failed.
	Get(ctx context.Context, key string) ([]byte, bool)

	// Set stores value under key for ttl. Backend failures are swallowed.
	Set(ctx context.Context, key string, value []byte, ttl time.Duration)
}

// New selects the backend once at startup: Redis when a client is provided
// and answers a ping, the in-process map otherwise.
func New(redisClient *redis.Client, log logger.Logger) Store {
	if redisClient != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := redisClient.Ping(ctx).Err(); err == nil {
			log.Info("cache backed by redis", nil)
			return &redisStore{client: redisClient, logger: log}
		}
		log.Warn("redis unreachable, falling back to local cache", nil)
	}
	return NewLocal()
}

// localStore keeps entries in memory with an absolute expiry per entry.
// Expired entries are evicted lazily on read.
type localStore struct {
	mu      sync.RWMutex
	entries map[string]localEntry
}

type localEntry struct {
	value     []byte
	expiresAt time.Time
}

// NewLocal creates the in-process backend directly. Used by tests and as
// the startup fallback.
func NewLocal() Store {
	return &localStore{entries: make(map[string]localEntry)}
}

func (s *localStore) Get(_ context.Context, key string) ([]byte, bool) {
	s.mu.RLock()
	entry, ok := s.entries[key]
	s.mu.RUnlock()

	if !ok {
		metrics.CacheRequests.WithLabelValues("local", "miss").Inc()
		return nil, false
	}

	if time.Now().After(entry.expiresAt) {
		s.mu.Lock()
		// Re-check under the write lock; a concurrent Set may have renewed it.
		if cur, ok := s.entries[key]; ok && time.Now().After(cur.expiresAt) {
			delete(s.entries, key)
		}
		s.mu.Unlock()
		metrics.CacheRequests.WithLabelValues("local", "miss").Inc()
		return nil, false
	}

	metrics.CacheRequests.WithLabelValues("local", "hit").Inc()
	return entry.value, true
}

func (s *localStore) Set(_ context.Context, key string, value []byte, ttl time.Duration) {
	s.mu.Lock()
	s.entries[key] = localEntry{
		value:     value,
		expiresAt: time.Now().Add(ttl),
	}
	s.mu.Unlock()
}
