package database

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

// ConnectRedis parses a redis:// URI, applies pool limits and pings.
func ConnectRedis(ctx context.Context, redisURI string, log logrus.FieldLogger) (*redis.Client, error) {
	opt, err := redis.ParseURL(redisURI)
	if err != nil {
		return nil, fmt.Errorf("redis url: %w", err)
	}

	opt.PoolSize = 10
	opt.MinIdleConns = 2
	// the limiter fails open, so a slow Redis must not stall requests
	opt.MaxRetries = 1
	opt.DialTimeout = 5 * time.Second
	opt.ReadTimeout = 500 * time.Millisecond
	opt.WriteTimeout = 500 * time.Millisecond
	opt.PoolTimeout = time.Second
	opt.ConnMaxIdleTime = 5 * time.Minute

	client := redis.NewClient(opt)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}

	log.Info("connected to Redis")
	return client, nil
}
