package redis

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/spf13/viper"
)

// MustNewClient connects to Redis using redis.url from config.
// It returns nil when no url is configured; callers treat that as "no cache".
func MustNewClient() *redis.Client {
	url := viper.GetString("redis.url")
	if url == "" {
		slog.Info("Redis is not configured, caching disabled")

		return nil
	}

	opt, err := redis.ParseURL(url)
	if err != nil {
		panic(fmt.Sprintf("Failed to parse Redis URL: %v", err))
	}
	if poolSize := viper.GetInt("redis.pool_size"); poolSize > 0 {
		opt.PoolSize = poolSize
	}
	opt.MaxRetries = 3

	client := redis.NewClient(opt)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		panic(fmt.Sprintf("Failed to connect to Redis: %v", err))
	}

	slog.Info("Redis connected", "addr", opt.Addr, "db", opt.DB)

	return client
}
