package ratesvc

import (
	"context"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/pkg/errors"

	"github.com/brainypal/backend/core"
)

// Limiter throttles generation requests per key within a sliding window.
type Limiter interface {
	Allow(ctx context.Context, key string) (bool, error)
}

// redisLimiter keeps request timestamps in a sorted set per key so limits
// hold across multiple API instances.
type redisLimiter struct {
	client *redis.Client
	window time.Duration
	limit  int
}

var _ Limiter = (*redisLimiter)(nil)

func NewRedisLimiter() (*redisLimiter, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     core.Conf.Redis.Addr,
		Password: core.Conf.Redis.Password,
		DB:       core.Conf.Redis.DB,
	})
	if err := client.Ping(context.Background()).Err(); err != nil {
		return nil, errors.Wrap(err, "pinging redis")
	}
	return &redisLimiter{
		client: client,
		window: core.Conf.GenerationRateWindow,
		limit:  core.Conf.GenerationRateLimit,
	}, nil
}

func (rl *redisLimiter) Close() error {
	return rl.client.Close()
}

func (rl *redisLimiter) Allow(ctx context.Context, key string) (bool, error) {
	now := time.Now()
	windowStart := now.Add(-rl.window)
	rkey := "ratelimit:" + key

	pipe := rl.client.TxPipeline()
	pipe.ZRemRangeByScore(ctx, rkey, "0", fmt.Sprintf("%d", windowStart.UnixNano()))
	count := pipe.ZCard(ctx, rkey)
	if _, err := pipe.Exec(ctx); err != nil {
		return false, errors.Wrap(err, "counting requests")
	}
	if int(count.Val()) >= rl.limit {
		return false, nil
	}

	pipe = rl.client.TxPipeline()
	pipe.ZAdd(ctx, rkey, &redis.Z{Score: float64(now.UnixNano()), Member: now.UnixNano()})
	pipe.Expire(ctx, rkey, rl.window)
	_, err := pipe.Exec(ctx)
	return true, errors.Wrap(err, "recording request")
}
