package memcheck

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisConfig holds Redis configuration
type RedisConfig struct {
	Addr     string        // Redis server address (e.g., "localhost:6379")
	Password string        // Redis password (if any)
	DB       int           // Redis database number
	Prefix   string        // Key prefix for namespacing
	TTL      time.Duration // Time-to-live for keys (0 means no expiration)
}

// RedisChecker implements Checker on Redis so repeated-question state
// survives restarts and is shared between processes.
type RedisChecker struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

// NewRedis creates a Redis-backed checker.
func NewRedis(config *RedisConfig) *RedisChecker {
	if config == nil {
		config = &RedisConfig{
			Addr:   "localhost:6379",
			Prefix: "daytrip:memcheck:",
			TTL:    24 * time.Hour,
		}
	}
	if config.Prefix == "" {
		config.Prefix = "daytrip:memcheck:"
	}

	client := redis.NewClient(&redis.Options{
		Addr:     config.Addr,
		Password: config.Password,
		DB:       config.DB,
	})

	return &RedisChecker{
		client: client,
		prefix: config.Prefix,
		ttl:    config.TTL,
	}
}

func (r *RedisChecker) key(userTag, query string) string {
	return r.prefix + Key(userTag, query)
}

func (r *RedisChecker) Seen(ctx context.Context, userTag, query string) (bool, error) {
	n, err := r.client.Exists(ctx, r.key(userTag, query)).Result()
	if err != nil {
		return false, fmt.Errorf("redis exists: %w", err)
	}
	return n > 0, nil
}

func (r *RedisChecker) Record(ctx context.Context, userTag, query string) error {
	if err := r.client.Set(ctx, r.key(userTag, query), time.Now().Unix(), r.ttl).Err(); err != nil {
		return fmt.Errorf("redis set: %w", err)
	}
	return nil
}

// Ping checks if Redis connection is alive
func (r *RedisChecker) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

// Close closes the Redis connection
func (r *RedisChecker) Close() error {
	return r.client.Close()
}

var _ Checker = (*RedisChecker)(nil)
