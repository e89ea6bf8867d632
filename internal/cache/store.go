package cache

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Stats holds basic cache counters reported by the admin endpoint.
type Stats struct {
	Status           string `json:"status"`
	ConnectedClients int64  `json:"connected_clients,omitempty"`
	UsedMemoryHuman  string `json:"used_memory_human,omitempty"`
	KeyspaceHits     int64  `json:"keyspace_hits,omitempty"`
	KeyspaceMisses   int64  `json:"keyspace_misses,omitempty"`
}

// Store is a key/value cache with per-key TTL backed by Redis.
//
// Caching is a pure optimization: every method degrades to a miss,
// zero or disabled state when Redis is unreachable. A Store never
// returns an error to its caller.
type Store struct {
	client  *redis.Client
	logger  *zap.Logger
	enabled bool
}

// NewStore connects to Redis and probes it once. When the probe fails
// or enabled is false, the store runs in disabled (no-cache) mode.
func NewStore(client *redis.Client, enabled bool, logger *zap.Logger) *Store {
	s := &Store{client: client, logger: logger}

	if !enabled || client == nil {
		logger.Info("Cache disabled by configuration")
		return s
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		logger.Warn("Redis unreachable, running without cache", zap.Error(err))
		return s
	}

	logger.Info("Connected to Redis cache")
	s.enabled = true
	return s
}

// Enabled reports whether the store accepted its initial probe.
func (s *Store) Enabled() bool {
	return s.enabled
}

// Get returns the value stored under key, or ok=false on a miss,
// expiry or any Redis failure.
func (s *Store) Get(ctx context.Context, key string) (string, bool) {
	if !s.enabled {
		return "", false
	}

	value, err := s.client.Get(ctx, key).Result()
	if err != nil {
		if err != redis.Nil {
			s.logger.Warn("Cache read failed", zap.String("key", key), zap.Error(err))
		}
		return "", false
	}

	return value, true
}

// Set stores value under key for ttl. Failures are logged and dropped.
func (s *Store) Set(ctx context.Context, key, value string, ttl time.Duration) {
	if !s.enabled {
		return
	}

	if err := s.client.Set(ctx, key, value, ttl).Err(); err != nil {
		s.logger.Warn("Cache write failed", zap.String("key", key), zap.Error(err))
	}
}

// DeleteMatching removes all keys matching the glob pattern and
// returns how many were deleted.
func (s *Store) DeleteMatching(ctx context.Context, pattern string) int {
	if !s.enabled {
		return 0
	}

	var deleted int
	iter := s.client.Scan(ctx, 0, pattern, 100).Iterator()
	for iter.Next(ctx) {
		if err := s.client.Del(ctx, iter.Val()).Err(); err != nil {
			s.logger.Warn("Cache delete failed", zap.String("key", iter.Val()), zap.Error(err))
			continue
		}
		deleted++
	}
	if err := iter.Err(); err != nil {
		s.logger.Warn("Cache scan failed", zap.String("pattern", pattern), zap.Error(err))
	}

	s.logger.Info("Cleared cache keys", zap.String("pattern", pattern), zap.Int("deleted", deleted))
	return deleted
}

// Stats returns basic counters from Redis INFO, or a disabled status.
func (s *Store) Stats(ctx context.Context) Stats {
	if !s.enabled {
		return Stats{Status: "disabled"}
	}

	info, err := s.client.Info(ctx).Result()
	if err != nil {
		s.logger.Warn("Cache stats failed", zap.Error(err))
		return Stats{Status: "error"}
	}

	stats := Stats{Status: "enabled"}
	for _, line := range strings.Split(info, "\n") {
		name, value, found := strings.Cut(strings.TrimSpace(line), ":")
		if !found {
			continue
		}
		switch name {
		case "connected_clients":
			stats.ConnectedClients, _ = strconv.ParseInt(value, 10, 64)
		case "used_memory_human":
			stats.UsedMemoryHuman = value
		case "keyspace_hits":
			stats.KeyspaceHits, _ = strconv.ParseInt(value, 10, 64)
		case "keyspace_misses":
			stats.KeyspaceMisses, _ = strconv.ParseInt(value, 10, 64)
		}
	}

	return stats
}

// SearchKey derives the cache key for a search query. Equivalent
// queries share an entry, so the query is normalized first.
func SearchKey(query string) string {
	return "search:" + strings.ToLower(strings.TrimSpace(query))
}

// PopularKey derives the cache key for a popular-items listing.
func PopularKey(category string, limit int) string {
	return "popular:" + strings.ToLower(strings.TrimSpace(category)) + ":" + strconv.Itoa(limit)
}
