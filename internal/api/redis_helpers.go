package api

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

type redisRateCounter interface {
	Incr(ctx context.Context, key string) *redis.IntCmd
	Expire(ctx context.Context, key string, expiration time.Duration) *redis.BoolCmd
}

func incrWithTTL(ctx context.Context, client redisRateCounter, key string, ttl time.Duration) (int64, error) {
	count, err := client.Incr(ctx, key).Result()
	if err != nil {
		return 0, err
	}
	if count == 1 {
		_ = client.Expire(ctx, key, ttl).Err()
	}
	return count, nil
}

// hourlyRateKey 按 UTC 小时分桶，key 在桶结束后自然过期。
func hourlyRateKey(scope, clientIP string, now time.Time) string {
	return fmt.Sprintf("rate:%s:%s:%s", scope, clientIP, now.UTC().Format("2006010215"))
}
