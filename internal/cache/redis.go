package cache

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/ZizzPj/fly-nyasa-ops/config"
	"github.com/redis/go-redis/v9"
)

const scanBatch = 100

// RedisCache keeps rendered view data in one hash per dashboard path.
// Invalidating a path drops every field stored under it.
type RedisCache struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisCache(cfg config.RedisConfig, ttl time.Duration) *RedisCache {
	return &RedisCache{
		client: redis.NewClient(&redis.Options{Addr: cfg.Addr, Password: cfg.Password, DB: cfg.DB}),
		ttl:    ttl,
	}
}

// GetView decodes the cached field of a view into dst and reports whether it was present.
func (c *RedisCache) GetView(ctx context.Context, path, field string, dst any) (bool, error) {
	data, err := c.client.HGet(ctx, viewKey(path), field).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return false, nil
		}
		return false, err
	}
	if err := json.Unmarshal(data, dst); err != nil {
		return false, err
	}
	return true, nil
}

func (c *RedisCache) SetView(ctx context.Context, path, field string, v any) error {
	payload, err := json.Marshal(v)
	if err != nil {
		return err
	}

	key := viewKey(path)
	pipe := c.client.TxPipeline()
	pipe.HSet(ctx, key, field, payload)
	// the first write sets the deadline so a busy view is still refreshed every ttl
	pipe.ExpireNX(ctx, key, c.ttl)
	_, err = pipe.Exec(ctx)
	return err
}

// Invalidate drops the views at paths. A path ending in "/*" drops every view under that prefix.
func (c *RedisCache) Invalidate(ctx context.Context, paths ...string) error {
	if len(paths) == 0 {
		return nil
	}
	keys, patterns := splitPaths(paths)
	for _, match := range patterns {
		iter := c.client.Scan(ctx, 0, match, scanBatch).Iterator()
		for iter.Next(ctx) {
			keys = append(keys, iter.Val())
		}
		if err := iter.Err(); err != nil {
			return err
		}
	}
	if len(keys) == 0 {
		return nil
	}
	return c.client.Del(ctx, keys...).Err()
}

func splitPaths(paths []string) (keys, patterns []string) {
	for _, p := range paths {
		if IsPattern(p) {
			patterns = append(patterns, viewKey(p))
			continue
		}
		keys = append(keys, viewKey(p))
	}
	return keys, patterns
}

func (c *RedisCache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

func (c *RedisCache) Close() error {
	return c.client.Close()
}

func viewKey(path string) string {
	return "view:" + path
}
