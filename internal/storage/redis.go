// Package storage holds the clients for external state: the Redis embedding
// cache and the MinIO report archive.
package storage

import (
	"context"
	stderrors "errors"
	"time"

	"atsfit/internal/config"
	"atsfit/internal/errors"

	"github.com/redis/go-redis/extra/redisotel/v9"
	"github.com/redis/go-redis/v9"
)

const pingTimeout = 5 * time.Second

// NewRedisClient connects to Redis with OpenTelemetry tracing and verifies the connection
func NewRedisClient(ctx context.Context, cfg config.CacheConfig) (*redis.Client, error) {
	if cfg.Address == "" {
		return nil, errors.NewConfigError(errors.ErrCodeInvalidConfig, "redis address is required", nil)
	}

	client := redis.NewClient(&redis.Options{
		Addr:         cfg.Address,
		Password:     cfg.Password,
		DB:           cfg.DB,
		DialTimeout:  pingTimeout,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	})

	if err := redisotel.InstrumentTracing(client); err != nil {
		_ = client.Close()
		return nil, errors.NewInternalError(errors.ErrCodeStorageFailed, "failed to instrument redis tracing", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, errors.NewNetworkError(errors.ErrCodeStorageFailed, "failed to connect to redis", err).
			WithContext("address", cfg.Address)
	}

	return client, nil
}

// RedisStore adapts a Redis client to a byte key-value store
type RedisStore struct {
	client redis.UniversalClient
}

// NewRedisStore wraps client
func NewRedisStore(client redis.UniversalClient) *RedisStore {
	return &RedisStore{client: client}
}

// Get returns the value under key and whether it exists
func (s *RedisStore) Get(ctx context.Context, key string) ([]byte, bool, error) {
	raw, err := s.client.Get(ctx, key).Bytes()
	if stderrors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return raw, true, nil
}

// Set stores value under key for ttl; a zero ttl keeps the key forever
func (s *RedisStore) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	return s.client.Set(ctx, key, value, ttl).Err()
}

// Ping checks the connection, used by health checks
func (s *RedisStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

func (s *RedisStore) Close() error {
	return s.client.Close()
}
