package cache

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/tendant/doc-convert-pipeline/internal/storage"
)

const resultKeyPrefix = "convert:"

// RedisCache implements ResultCache and Counter on a Redis backend.
// Lookups cross-check the artifact store so that an entry pointing at a
// file the sweeper already removed reads as a miss, never as a hit.
type RedisCache struct {
	client    *redis.Client
	ttl       time.Duration
	artifacts storage.Store
}

// NewRedisCache creates a cache backed by an existing client
func NewRedisCache(client *redis.Client, ttl time.Duration, artifacts storage.Store) *RedisCache {
	return &RedisCache{
		client:    client,
		ttl:       ttl,
		artifacts: artifacts,
	}
}

// Connect dials Redis at url, verifies the connection with PING, and
// returns a cache backed by it
func Connect(ctx context.Context, url string, ttl time.Duration, artifacts storage.Store) (*RedisCache, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("invalid redis url: %w", err)
	}

	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}

	return NewRedisCache(client, ttl, artifacts), nil
}

// Close releases the underlying client
func (c *RedisCache) Close() error {
	return c.client.Close()
}

func resultKey(fingerprint, engine string) string {
	return fmt.Sprintf("%s%s:%s", resultKeyPrefix, fingerprint, engine)
}

// Lookup returns the cached artifact name, or a miss on expiry, backend
// failure, or a stale entry whose artifact no longer exists
func (c *RedisCache) Lookup(ctx context.Context, fingerprint, engine string) (string, bool) {
	name, err := c.client.Get(ctx, resultKey(fingerprint, engine)).Result()
	if err == redis.Nil {
		return "", false
	}
	if err != nil {
		log.Printf("cache lookup failed, treating as miss: %v", err)
		return "", false
	}

	exists, err := c.artifacts.Exists(ctx, name)
	if err != nil {
		log.Printf("cache artifact check failed, treating as miss: %v", err)
		return "", false
	}
	if !exists {
		// Stale entry: artifact was swept. Drop the key so the next
		// lookup skips the round trip.
		if err := c.client.Del(ctx, resultKey(fingerprint, engine)).Err(); err != nil {
			log.Printf("failed to drop stale cache entry: %v", err)
		}
		return "", false
	}

	return name, true
}

// Store records the artifact name with a fresh TTL. Failures are logged
// and swallowed.
func (c *RedisCache) Store(ctx context.Context, fingerprint, engine, artifactName string) {
	if err := c.client.Set(ctx, resultKey(fingerprint, engine), artifactName, c.ttl).Err(); err != nil {
		log.Printf("cache store failed: %v", err)
	}
}

// Available reports that a backend is connected
func (c *RedisCache) Available() bool {
	return true
}

// Increment adds one to the named counter. Counter keys carry no TTL.
func (c *RedisCache) Increment(ctx context.Context, name string) (int64, error) {
	n, err := c.client.Incr(ctx, name).Result()
	if err != nil {
		return 0, fmt.Errorf("counter increment failed: %w", err)
	}
	return n, nil
}
