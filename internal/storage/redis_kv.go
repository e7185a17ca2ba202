package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Compile-time check to ensure redisKV implements KV
var _ KV = (*redisKV)(nil)

type redisKV struct {
	client *redis.Client
	logger *zap.Logger
}

// NewRedisKV создает KV поверх Redis. Документы хранятся как строки без
// TTL: жизненным циклом управляют вышележащие сторы.
func NewRedisKV(client *redis.Client, logger *zap.Logger) KV {
	return &redisKV{
		client: client,
		logger: logger.Named("RedisKV"),
	}
}

func (r *redisKV) Get(ctx context.Context, key string) ([]byte, error) {
	data, err := r.client.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrKeyNotFound
		}
		r.logger.Error("Failed to get key from redis", zap.String("key", key), zap.Error(err))
		return nil, fmt.Errorf("failed to get key %s from redis: %w", key, err)
	}
	return data, nil
}

func (r *redisKV) Set(ctx context.Context, key string, value []byte) error {
	if err := r.client.Set(ctx, key, value, 0).Err(); err != nil {
		r.logger.Error("Failed to set key in redis", zap.String("key", key), zap.Error(err))
		return fmt.Errorf("failed to set key %s in redis: %w", key, err)
	}
	r.logger.Debug("Key stored in redis", zap.String("key", key), zap.Int("bytes", len(value)))
	return nil
}

func (r *redisKV) Delete(ctx context.Context, key string) error {
	if err := r.client.Del(ctx, key).Err(); err != nil {
		r.logger.Error("Failed to delete key from redis", zap.String("key", key), zap.Error(err))
		return fmt.Errorf("failed to delete key %s from redis: %w", key, err)
	}
	return nil
}
