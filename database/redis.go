package database

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// NewRedisClient initializes a Redis client for the catalog cache.
// The cache is an optimization only, so any failure here returns nil and
// the cart runs without it.
func NewRedisClient(redisURL string, log *zap.Logger) *redis.Client {
	if redisURL == "" {
		return nil
	}

	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		log.Warn("invalid Redis URL, catalog cache disabled", zap.Error(err))
		return nil
	}

	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		log.Warn("failed to connect to Redis, catalog cache disabled", zap.Error(err))
		_ = client.Close()
		return nil
	}

	log.Info("Connected to Redis")
	return client
}
