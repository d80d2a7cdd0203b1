package cache

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
)

const scanBatch = 100

// Redis stores entries as plain string keys under a prefix.
type Redis struct {
	rdb    *redis.Client
	prefix string
}

func NewRedis(rdb *redis.Client, prefix string) *Redis {
	return &Redis{rdb: rdb, prefix: prefix}
}

// DialRedis connects and pings the server.
func DialRedis(ctx context.Context, addr string, db int, prefix string) (*Redis, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr: addr,
		DB:   db,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("ping redis %s: %w", addr, err)
	}
	return NewRedis(rdb, prefix), nil
}

func (r *Redis) Get(ctx context.Context, key string) (string, bool, error) {
	val, err := r.rdb.Get(ctx, r.prefix+key).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("cache get %s: %w", key, err)
	}
	return val, true, nil
}

func (r *Redis) Set(ctx context.Context, key, value string) error {
	if err := r.rdb.Set(ctx, r.prefix+key, value, 0).Err(); err != nil {
		return fmt.Errorf("cache set %s: %w", key, err)
	}
	return nil
}

func (r *Redis) Remove(ctx context.Context, key string) error {
	if err := r.rdb.Del(ctx, r.prefix+key).Err(); err != nil {
		return fmt.Errorf("cache remove %s: %w", key, err)
	}
	return nil
}

// Clear deletes the keys under the prefix only.
func (r *Redis) Clear(ctx context.Context) error {
	iter := r.rdb.Scan(ctx, 0, r.prefix+"*", scanBatch).Iterator()
	var batch []string
	for iter.Next(ctx) {
		batch = append(batch, iter.Val())
		if len(batch) == scanBatch {
			if err := r.rdb.Del(ctx, batch...).Err(); err != nil {
				return fmt.Errorf("cache clear: %w", err)
			}
			batch = batch[:0]
		}
	}
	if err := iter.Err(); err != nil {
		return fmt.Errorf("cache clear: %w", err)
	}
	if len(batch) > 0 {
		if err := r.rdb.Del(ctx, batch...).Err(); err != nil {
			return fmt.Errorf("cache clear: %w", err)
		}
	}
	return nil
}

func (r *Redis) Close() error { return r.rdb.Close() }
