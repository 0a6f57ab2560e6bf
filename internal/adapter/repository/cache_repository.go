package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	domainRepo "github.com/tarzihub/payment-service/internal/domain/repository"
	"github.com/tarzihub/payment-service/pkg/messaging"
	"go.uber.org/zap"
)

// redisCacheRepository implements CacheRepository on top of redis
type redisCacheRepository struct {
	client messaging.RedisClient
	logger *zap.Logger
}

// NewRedisCacheRepository creates a new redis-backed cache repository
func NewRedisCacheRepository(client messaging.RedisClient, logger *zap.Logger) domainRepo.CacheRepository {
	return &redisCacheRepository{
		client: client,
		logger: logger,
	}
}

func (r *redisCacheRepository) Get(ctx context.Context, key string, dest interface{}) (bool, error) {
	data, found, err := r.client.Get(ctx, key)
	if err != nil {
		r.logger.Warn("Cache read failed",
			zap.String("key", key),
			zap.Error(err))
		return false, fmt.Errorf("cache read failed: %w", err)
	}
	if !found {
		return false, nil
	}

	if err := json.Unmarshal(data, dest); err != nil {
		return false, fmt.Errorf("failed to decode cached value: %w", err)
	}

	return true, nil
}

func (r *redisCacheRepository) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	return r.client.Set(ctx, key, value, ttl)
}

func (r *redisCacheRepository) Delete(ctx context.Context, key string) error {
	return r.client.Delete(ctx, key)
}
