package ledger

import (
	"context"

	"github.com/redis/go-redis/v9"
)

// RedisKV backs the ledger with Redis. SetNX keeps the first write for a key
// even when two requests race past the ledger's read check.
type RedisKV struct {
	rdb *redis.Client
}

func NewRedisKV(rdb *redis.Client) *RedisKV {
	return &RedisKV{rdb: rdb}
}

func (r *RedisKV) Get(ctx context.Context, key string) (string, bool, error) {
	v, err := r.rdb.Get(ctx, key).Result()
	if err == redis.Nil {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return v, true, nil
}

func (r *RedisKV) Set(ctx context.Context, key, value string) error {
	return r.rdb.SetNX(ctx, key, value, 0).Err()
}
