package repositories

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v7"
	"github.com/samrat-shrestha/toptracks/internal/shared"
)

const redisKeyPrefix = "session:"

// RedisRepository persists session payloads as Redis strings.
type RedisRepository struct {
	client *redis.Client
}

// NewRedisRepository connects to Redis and verifies the connection.
func NewRedisRepository(conf shared.RedisConfig) (*RedisRepository, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     conf.Addr,
		Password: conf.Password,
		DB:       conf.DB,
	})

	if err := client.Ping().Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("%w: redis %s: %v", shared.ErrServiceUnavailable, conf.Addr, err)
	}

	return &RedisRepository{client: client}, nil
}

// Get returns the payload stored for id.
func (r *RedisRepository) Get(ctx context.Context, id string) (string, error) {
	data, err := r.client.WithContext(ctx).Get(redisKeyPrefix + id).Result()
	if errors.Is(err, redis.Nil) {
		return "", fmt.Errorf("%w: %s", shared.ErrSessionNotFound, id)
	}
	if err != nil {
		return "", fmt.Errorf("failed to get session: %w", err)
	}
	return data, nil
}

// Set stores the payload for id. A non-positive ttl stores the key without expiry.
func (r *RedisRepository) Set(ctx context.Context, id, data string, ttl time.Duration) error {
	if ttl < 0 {
		ttl = 0
	}
	if err := r.client.WithContext(ctx).Set(redisKeyPrefix+id, data, ttl).Err(); err != nil {
		return fmt.Errorf("failed to save session: %w", err)
	}
	return nil
}

// Delete removes the session key.
func (r *RedisRepository) Delete(ctx context.Context, id string) error {
	if err := r.client.WithContext(ctx).Del(redisKeyPrefix + id).Err(); err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	return nil
}

// Close releases the client's connections.
func (r *RedisRepository) Close() error {
	return r.client.Close()
}
