package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const redisKeyPrefix = "tubequiz:transcript:"

// RedisCache is a transcript cache shared between instances.
type RedisCache struct {
	client redis.Cmdable
	ttl    time.Duration
}

// NewRedisCache wraps client. ttl <= 0 stores keys without expiry.
func NewRedisCache(client redis.Cmdable, ttl time.Duration) *RedisCache {
	if ttl < 0 {
		ttl = 0
	}
	return &RedisCache{client: client, ttl: ttl}
}

// DialRedis connects to addr and checks the connection.
func DialRedis(ctx context.Context, addr, password string, db int) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("ping redis %s: %w", addr, err)
	}
	return client, nil
}

func redisKey(videoID string) string {
	return redisKeyPrefix + videoID
}

// Get returns the cached transcript for videoID.
func (c *RedisCache) Get(ctx context.Context, videoID string) (string, bool, error) {
	text, err := c.client.HGet(ctx, redisKey(videoID), "text").Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("redis get %s: %w", videoID, err)
	}
	return text, true, nil
}

// Put stores the transcript and its source, refreshing the expiry.
func (c *RedisCache) Put(ctx context.Context, videoID, text, source string) error {
	key := redisKey(videoID)
	_, err := c.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HSet(ctx, key, "text", text, "source", source)
		if c.ttl > 0 {
			pipe.Expire(ctx, key, c.ttl)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("redis put %s: %w", videoID, err)
	}
	return nil
}

// Delete removes videoID from the cache.
func (c *RedisCache) Delete(ctx context.Context, videoID string) error {
	return c.client.Del(ctx, redisKey(videoID)).Err()
}
