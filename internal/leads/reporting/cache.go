package reporting

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// Cache stores computed reports per company. Implementations must treat a
// miss and a backend failure the same way from the caller's point of view.
type Cache interface {
	Get(ctx context.Context, companyID uuid.UUID, key string, dest any) (bool, error)
	Set(ctx context.Context, companyID uuid.UUID, key string, value any) error
	InvalidateCompany(ctx context.Context, companyID uuid.UUID) error
}

// NoopCache never stores anything.
type NoopCache struct{}

func (NoopCache) Get(context.Context, uuid.UUID, string, any) (bool, error) { return false, nil }
func (NoopCache) Set(context.Context, uuid.UUID, string, any) error         { return nil }
func (NoopCache) InvalidateCompany(context.Context, uuid.UUID) error        { return nil }

const cachePrefix = "leadcrm:stats"

// RedisCache keeps JSON-encoded reports under leadcrm:stats:<company>:<key>.
type RedisCache struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisCache(client *redis.Client, ttl time.Duration) *RedisCache {
	return &RedisCache{client: client, ttl: ttl}
}

func cacheKey(companyID uuid.UUID, key string) string {
	return fmt.Sprintf("%s:%s:%s", cachePrefix, companyID, key)
}

func (c *RedisCache) Get(ctx context.Context, companyID uuid.UUID, key string, dest any) (bool, error) {
	raw, err := c.client.Get(ctx, cacheKey(companyID, key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if err := json.Unmarshal(raw, dest); err != nil {
		return false, err
	}
	return true, nil
}

func (c *RedisCache) Set(ctx context.Context, companyID uuid.UUID, key string, value any) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, cacheKey(companyID, key), raw, c.ttl).Err()
}

// InvalidateCompany drops every cached report of the company.
func (c *RedisCache) InvalidateCompany(ctx context.Context, companyID uuid.UUID) error {
	pattern := fmt.Sprintf("%s:%s:*", cachePrefix, companyID)
	iter := c.client.Scan(ctx, 0, pattern, 100).Iterator()

	keys := make([]string, 0)
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return err
	}
	if len(keys) == 0 {
		return nil
	}
	return c.client.Del(ctx, keys...).Err()
}
