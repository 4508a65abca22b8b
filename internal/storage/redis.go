package storage

import (
	"context" // Context for Redis operations
	"errors"  // Error inspection
	"fmt"     // Error wrapping

	"github.com/redis/go-redis/v9" // Redis client
)

// RedisBlob stores the value under a single Redis key with no expiry
type RedisBlob struct {
	rdb *redis.Client // Redis client
	key string        // Fixed key
}

// NewRedisBlob creates a blob bound to key
func NewRedisBlob(rdb *redis.Client, key string) *RedisBlob {
	return &RedisBlob{rdb: rdb, key: key}
}

// Get reads the value from Redis
func (b *RedisBlob) Get(ctx context.Context) ([]byte, error) {
	val, err := b.rdb.Get(ctx, b.key).Bytes() // Get value from Redis
	if errors.Is(err, redis.Nil) {
		return nil, ErrBlobMissing // Key does not exist
	} else if err != nil {
		return nil, fmt.Errorf("redis get %s: %w", b.key, err) // Other Redis error
	}
	return val, nil
}

// Set writes the value to Redis
func (b *RedisBlob) Set(ctx context.Context, value []byte) error {
	if err := b.rdb.Set(ctx, b.key, value, 0).Err(); err != nil { // Persist without TTL
		return fmt.Errorf("redis set %s: %w", b.key, err)
	}
	return nil
}
