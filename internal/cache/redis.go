package cache

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/Domenick1991/medlaw-booking/config"
	"github.com/Domenick1991/medlaw-booking/internal/domain"
	"github.com/redis/go-redis/v9"
)

func NewRedisClient(cfg config.RedisConfig) *redis.Client {
	return redis.NewClient(&redis.Options{Addr: cfg.Addr, Password: cfg.Password, DB: cfg.DB})
}

type RedisCache struct {
	client        *redis.Client
	eventTypesTTL time.Duration
}

func NewRedisCache(client *redis.Client, eventTypesTTL time.Duration) *RedisCache {
	return &RedisCache{client: client, eventTypesTTL: eventTypesTTL}
}

// GetEventTypes returns nil, nil on a cache miss.
func (c *RedisCache) GetEventTypes(ctx context.Context) ([]domain.EventType, error) {
	data, err := c.client.Get(ctx, eventTypesKey()).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, err
	}

	var types []domain.EventType
	if err := json.Unmarshal(data, &types); err != nil {
		return nil, err
	}
	return types, nil
}

func (c *RedisCache) SetEventTypes(ctx context.Context, types []domain.EventType) error {
	payload, err := json.Marshal(types)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, eventTypesKey(), payload, c.eventTypesTTL).Err()
}

func (c *RedisCache) InvalidateEventTypes(ctx context.Context) error {
	return c.client.Del(ctx, eventTypesKey()).Err()
}

func (c *RedisCache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

func eventTypesKey() string {
	return "cache:event_types"
}
