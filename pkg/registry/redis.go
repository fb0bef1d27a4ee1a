package registry

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// keyPrefix namespaces registry entries so the instance can share a Redis
// database with other tenants.
const keyPrefix = "timesync:token:"

// RedisConfig holds Redis connection settings for the token registry.
type RedisConfig struct {
	// Addr is the host:port of the Redis server.
	Addr string

	// Password is the optional AUTH password.
	Password string

	// DB selects the logical Redis database (default 0).
	DB int
}

// RedisRegistry is a Redis-backed Registry. SETNX with a TTL gives the
// atomic insert-if-absent the issuer relies on; Redis evicts expired keys
// on its own.
type RedisRegistry struct {
	client redis.UniversalClient
}

var _ Registry = (*RedisRegistry)(nil)

// NewRedis connects to Redis and verifies connectivity before returning.
func NewRedis(ctx context.Context, cfg RedisConfig) (*RedisRegistry, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("connecting to redis: %w", err)
	}

	return &RedisRegistry{client: client}, nil
}

// NewRedisWithClient wraps a pre-configured client. Used by tests with
// miniredis.
func NewRedisWithClient(client redis.UniversalClient) *RedisRegistry {
	return &RedisRegistry{client: client}
}

// Register inserts the token only if absent, expiring after ttl.
func (r *RedisRegistry) Register(ctx context.Context, token string, ttl time.Duration) error {
	ok, err := r.client.SetNX(ctx, keyPrefix+token, "1", ttl).Result()
	if err != nil {
		return fmt.Errorf("registering token: %w", err)
	}
	if !ok {
		return ErrDuplicateToken
	}
	return nil
}

// Exists reports whether the token is still registered.
func (r *RedisRegistry) Exists(ctx context.Context, token string) (bool, error) {
	n, err := r.client.Exists(ctx, keyPrefix+token).Result()
	if err != nil {
		return false, fmt.Errorf("checking token: %w", err)
	}
	return n > 0, nil
}

// Revoke deletes the token.
func (r *RedisRegistry) Revoke(ctx context.Context, token string) error {
	if err := r.client.Del(ctx, keyPrefix+token).Err(); err != nil {
		return fmt.Errorf("revoking token: %w", err)
	}
	return nil
}

// Close closes the Redis client connection.
func (r *RedisRegistry) Close() error {
	return r.client.Close()
}
