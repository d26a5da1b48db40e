package common

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/SamSjosten/FitChallenge-sub003/internal/logging"
)

// NewRedisClient builds the shared client for the Redis cache and stream publisher
func NewRedisClient(addr, password string) *redis.Client {
	redisDB := 0 // Default DB

	logging.Info("Initializing Redis client", "addr", addr, "db", redisDB)

	client := redis.NewClient(&redis.Options{
		Addr:         addr,
		Password:     password,
		DB:           redisDB,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
		PoolSize:     10,
	})

	// Test connection
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		logging.Warn("Failed to ping Redis, pool will keep retrying", "error", err)
		return client
	}

	logging.Info("Successfully connected to Redis")
	return client
}
