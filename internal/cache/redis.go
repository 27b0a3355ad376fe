package cache

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	"vetdesk/internal/models"
	"vetdesk/internal/pkg/logger"
)

const keyPrefix = "vetdesk:result:"

// RedisStore shares cached results between stub instances.
type RedisStore struct {
	client *redis.Client
}

func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{client: client}
}

func (s *RedisStore) Get(ctx context.Context, email string) (models.ValidationResult, bool) {
	var r models.ValidationResult
	data, err := s.client.Get(ctx, keyPrefix+email).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			logger.Warn("redis cache get", "email", email, "error", err)
		}
		return r, false
	}
	if err := json.Unmarshal(data, &r); err != nil {
		logger.Warn("redis cache decode", "email", email, "error", err)
		return r, false
	}
	return r, true
}

func (s *RedisStore) Set(ctx context.Context, email string, r models.ValidationResult, ttl time.Duration) error {
	data, err := json.Marshal(r)
	if err != nil {
		return err
	}
	return s.client.Set(ctx, keyPrefix+email, data, ttl).Err()
}
