package storage

import (
	"context"
	"fmt"
	"strings"

	"github.com/redis/go-redis/v9"
)

// redisClient stores objects as plain Redis string values. The key prefix
// namespaces the bot's objects away from other users of the same database.
type redisClient struct {
	rdb       *redis.Client
	keyPrefix string
}

// NewRedisClient creates a storage client backed by Redis.
func NewRedisClient(rdb *redis.Client, keyPrefix string) Client {
	keyPrefix = strings.TrimSuffix(keyPrefix, "/")
	return &redisClient{rdb: rdb, keyPrefix: keyPrefix}
}

func (c *redisClient) fullKey(key string) string {
	if c.keyPrefix == "" {
		return key
	}
	return c.keyPrefix + "/" + key
}

func (c *redisClient) SaveJSON(ctx context.Context, key string, v interface{}) error {
	data, err := marshalJSON(v)
	if err != nil {
		return fmt.Errorf("failed to marshal object for %s: %w", key, err)
	}
	return c.SaveBytes(ctx, key, data)
}

func (c *redisClient) LoadJSON(ctx context.Context, key string, out interface{}) (bool, error) {
	data, found, err := c.LoadBytes(ctx, key)
	if err != nil || !found {
		return found, err
	}
	if err := unmarshalJSON(data, out); err != nil {
		return true, fmt.Errorf("failed to unmarshal object at %s: %w", key, err)
	}
	return true, nil
}

func (c *redisClient) SaveBytes(ctx context.Context, key string, data []byte) error {
	return c.rdb.Set(ctx, c.fullKey(key), data, 0).Err()
}

func (c *redisClient) LoadBytes(ctx context.Context, key string) ([]byte, bool, error) {
	data, err := c.rdb.Get(ctx, c.fullKey(key)).Bytes()
	if err == redis.Nil {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return data, true, nil
}

func (c *redisClient) ListKeys(ctx context.Context, prefix string) ([]string, error) {
	var keys []string
	pattern := c.fullKey(prefix) + "*"
	iter := c.rdb.Scan(ctx, 0, pattern, 100).Iterator()
	for iter.Next(ctx) {
		key := iter.Val()
		if c.keyPrefix != "" {
			key = strings.TrimPrefix(key, c.keyPrefix+"/")
		}
		keys = append(keys, key)
	}
	if err := iter.Err(); err != nil {
		return nil, err
	}
	return keys, nil
}

func (c *redisClient) CopyPrefix(ctx context.Context, src, dst string) (int, error) {
	src = strings.TrimSuffix(src, "/")
	dst = strings.TrimSuffix(dst, "/")

	keys, err := c.ListKeys(ctx, src+"/")
	if err != nil {
		return 0, err
	}

	copied := 0
	for _, key := range keys {
		data, found, err := c.LoadBytes(ctx, key)
		if err != nil {
			return copied, err
		}
		if !found {
			continue
		}
		dstKey := dst + strings.TrimPrefix(key, src)
		if err := c.SaveBytes(ctx, dstKey, data); err != nil {
			return copied, err
		}
		copied++
	}
	return copied, nil
}

func (c *redisClient) Delete(ctx context.Context, key string) error {
	return c.rdb.Del(ctx, c.fullKey(key)).Err()
}
