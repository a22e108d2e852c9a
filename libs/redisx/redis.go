package redisx

import (
	"context"
	"errors"
	"strings"

	"github.com/sitefolio/scheduling/libs/config"
	"github.com/redis/go-redis/v9"
)

// FromEnv returns a client for REDIS_ADDR, or nil when Redis is not configured.
func FromEnv() *redis.Client {
	addr := strings.TrimSpace(config.String("REDIS_ADDR", ""))
	if addr == "" {
		return nil
	}
	redisDB := 0
	if v := config.Int("REDIS_DB", 0); v > 0 {
		redisDB = v
	}
	return redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: config.String("REDIS_PASSWORD", ""),
		DB:       redisDB,
	})
}

func ReadyCheck(rdb *redis.Client) func(context.Context) error {
	return func(ctx context.Context) error {
		if rdb == nil {
			return errors.New("redis not configured")
		}
		return rdb.Ping(ctx).Err()
	}
}
