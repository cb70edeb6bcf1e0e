package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
)

// LabelCache handles Redis-based caching of classified name labels so
// repeated names skip the database lookup.
type LabelCache struct {
	client *redis.Client
	config *Config
	logger *zap.Logger
	stats  *cacheStats
}

// cacheStats tracks cache performance metrics
type cacheStats struct {
	hits   int64
	misses int64
}

// NewLabelCache creates a new Redis-based label cache
func NewLabelCache(config *Config, logger *zap.Logger) (*LabelCache, error) {
	// Parse Redis URL
	opts, err := redis.ParseURL(config.RedisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
	}

	// Configure connection pool
	opts.PoolSize = config.MaxConnections
	opts.MinIdleConns = config.MinIdleConns

	client := redis.NewClient(opts)

	cache := &LabelCache{
		client: client,
		config: config,
		logger: logger,
		stats:  &cacheStats{},
	}

	// Test connection
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := cache.ping(ctx); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	logger.Info("Label cache initialized successfully",
		zap.String("redis_url", maskRedisURL(config.RedisURL)),
		zap.Int("max_connections", config.MaxConnections),
		zap.Duration("default_ttl", config.DefaultTTL))

	return cache, nil
}

// ping tests the Redis connection
func (lc *LabelCache) ping(ctx context.Context) error {
	_, err := lc.client.Ping(ctx).Result()
	return err
}

// Get retrieves the cached label for a name. The bool reports whether
// the name was present; a miss is not an error.
func (lc *LabelCache) Get(ctx context.Context, name string) (string, bool, error) {
	cacheKey := lc.generateNameKey(name)

	label, err := lc.client.Get(ctx, cacheKey).Result()
	if err == redis.Nil {
		atomic.AddInt64(&lc.stats.misses, 1)
		lc.logger.Debug("Cache miss", zap.String("key", cacheKey))
		return "", false, nil
	} else if err != nil {
		atomic.AddInt64(&lc.stats.misses, 1)
		return "", false, fmt.Errorf("cache lookup failed: %w", err)
	}

	atomic.AddInt64(&lc.stats.hits, 1)
	return label, true, nil
}

// Set caches a label for a name with the configured TTL.
func (lc *LabelCache) Set(ctx context.Context, name, label string) error {
	cacheKey := lc.generateNameKey(name)

	if err := lc.client.Set(ctx, cacheKey, label, lc.config.DefaultTTL).Err(); err != nil {
		lc.logger.Error("Failed to cache label", zap.Error(err))
		return fmt.Errorf("failed to cache label: %w", err)
	}

	lc.logger.Debug("Label cached successfully",
		zap.String("key", cacheKey),
		zap.String("label", label))

	return nil
}

// SetBatch caches multiple labels efficiently using Redis pipeline.
// The ETL pipeline uses this to warm the cache after a dataset load.
func (lc *LabelCache) SetBatch(ctx context.Context, labels map[string]string) error {
	if len(labels) == 0 {
		return nil
	}

	pipe := lc.client.Pipeline()

	for name, label := range labels {
		pipe.Set(ctx, lc.generateNameKey(name), label, lc.config.DefaultTTL)
	}

	// Execute pipeline
	_, err := pipe.Exec(ctx)
	if err != nil {
		lc.logger.Error("Batch cache operation failed", zap.Error(err))
		return fmt.Errorf("batch cache operation failed: %w", err)
	}

	lc.logger.Debug("Batch cache operation completed",
		zap.Int("cached_labels", len(labels)))

	return nil
}

// GetStats returns cache performance statistics
func (lc *LabelCache) GetStats(ctx context.Context) (*CacheStats, error) {
	// Get Redis info
	info, err := lc.client.Info(ctx, "memory", "stats").Result()
	if err != nil {
		return nil, fmt.Errorf("failed to get Redis info: %w", err)
	}

	stats := &CacheStats{
		Hits:   atomic.LoadInt64(&lc.stats.hits),
		Misses: atomic.LoadInt64(&lc.stats.misses),
	}

	// Calculate hit rate
	total := stats.Hits + stats.Misses
	if total > 0 {
		stats.HitRate = float64(stats.Hits) / float64(total) * 100
	}

	// Parse memory usage from Redis info
	lines := strings.Split(info, "\r\n")
	for _, line := range lines {
		if strings.HasPrefix(line, "used_memory:") {
			if memStr := strings.TrimPrefix(line, "used_memory:"); memStr != "" {
				if mem, err := strconv.ParseInt(memStr, 10, 64); err == nil {
					stats.MemoryUsage = mem
				}
			}
		}
	}

	// Get total keys count
	keys, err := lc.client.DBSize(ctx).Result()
	if err == nil {
		stats.TotalKeys = keys
	}

	return stats, nil
}

// Clear removes all cached labels
func (lc *LabelCache) Clear(ctx context.Context) error {
	pattern := lc.config.KeyPrefix + "*"

	// Use SCAN to find all keys with our prefix
	iter := lc.client.Scan(ctx, 0, pattern, 0).Iterator()
	var keys []string

	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}

	if err := iter.Err(); err != nil {
		return fmt.Errorf("failed to scan cache keys: %w", err)
	}

	if len(keys) == 0 {
		return nil
	}

	// Delete keys in batches
	batchSize := 100
	for i := 0; i < len(keys); i += batchSize {
		end := i + batchSize
		if end > len(keys) {
			end = len(keys)
		}

		if err := lc.client.Del(ctx, keys[i:end]...).Err(); err != nil {
			lc.logger.Error("Failed to delete cache keys", zap.Error(err))
			return fmt.Errorf("failed to delete cache keys: %w", err)
		}
	}

	lc.logger.Info("Cache cleared", zap.Int("deleted_keys", len(keys)))
	return nil
}

// Close closes the Redis connection
func (lc *LabelCache) Close() error {
	if lc.client != nil {
		return lc.client.Close()
	}
	return nil
}

// generateNameKey creates a cache key for a name. Names are lowercased
// before hashing so equivalent spellings share an entry, and hashed so
// raw names never appear in the Redis keyspace.
func (lc *LabelCache) generateNameKey(name string) string {
	hash := sha256.Sum256([]byte(strings.ToLower(name)))
	return fmt.Sprintf("%s:name:%s", lc.config.KeyPrefix, hex.EncodeToString(hash[:])[:16])
}

// maskRedisURL masks sensitive information in Redis URL for logging
func maskRedisURL(url string) string {
	if strings.Contains(url, "@") {
		parts := strings.Split(url, "@")
		if len(parts) >= 2 {
			userPart := parts[0]
			if strings.Contains(userPart, ":") {
				userParts := strings.Split(userPart, ":")
				if len(userParts) >= 3 {
					userParts[len(userParts)-1] = "***"
					parts[0] = strings.Join(userParts, ":")
				}
			}
			return strings.Join(parts, "@")
		}
	}
	return url
}
