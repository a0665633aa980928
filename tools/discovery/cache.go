package discovery

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/mohammad-safakhou/careergraph/models"
)

const keyPrefix = "careergraph:discovery:"

// Cache stores discovery results keyed by kind, cap and topic.
type Cache interface {
	Get(ctx context.Context, key string) ([]models.Resource, bool, error)
	Set(ctx context.Context, key string, resources []models.Resource) error
}

func cacheKey(kind models.ResourceKind, max int, topic string) string {
	sum := sha256.Sum256([]byte(strings.ToLower(topic)))
	return fmt.Sprintf("%s%s:%d:%s", keyPrefix, kind, max, hex.EncodeToString(sum[:]))
}

// RedisCache keeps discovery results in redis with a fixed TTL.
type RedisCache struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisCache(client *redis.Client, ttl time.Duration) *RedisCache {
	return &RedisCache{client: client, ttl: ttl}
}

// Conn dials redis and checks it answers PING.
func Conn(ctx context.Context, addr, pass string, db int, timeout time.Duration) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         addr,
		Password:     pass,
		DB:           db,
		DialTimeout:  timeout,
		ReadTimeout:  timeout,
		WriteTimeout: timeout,
	})
	pong, err := client.Ping(ctx).Result()
	if err != nil {
		_ = client.Close()
		return nil, err
	}
	if pong != "PONG" {
		_ = client.Close()
		return nil, fmt.Errorf("expected PONG, got %s", pong)
	}
	return client, nil
}

func (c *RedisCache) Get(ctx context.Context, key string) ([]models.Resource, bool, error) {
	val, err := c.client.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, false, nil
		}
		return nil, false, err
	}
	var out []models.Resource
	if err := json.Unmarshal(val, &out); err != nil {
		return nil, false, fmt.Errorf("decode cached resources: %w", err)
	}
	return out, true, nil
}

func (c *RedisCache) Set(ctx context.Context, key string, resources []models.Resource) error {
	data, err := json.Marshal(resources)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, key, data, c.ttl).Err()
}
