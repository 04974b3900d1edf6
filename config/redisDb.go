package config

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/bsm/redislock"
	"github.com/redis/go-redis/v9"
)

// ConnectRedis returns a pinged Redis client and a lock client on top of it.
// It gives up after REDIS_CONNECT_ATTEMPTS (default 5).
func ConnectRedis(ctx context.Context) (*redis.Client, *redislock.Client, error) {
	redisAddr := os.Getenv("REDIS_ADDRESS")
	if redisAddr == "" {
		redisAddr = "localhost:6379"
		GetLogger().Infof("REDIS_ADDRESS not set; defaulting to %s", redisAddr)
	}
	maxAttempts := intFromEnv("REDIS_CONNECT_ATTEMPTS", 5)

	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		client := redis.NewClient(&redis.Options{
			Addr:     redisAddr,
			Password: os.Getenv("REDIS_PASSWORD"),
			DB:       intFromEnv("REDIS_DB", 0),
		})
		err := client.Ping(ctx).Err()
		if err == nil {
			GetLogger().WithField("addr", redisAddr).Info("connected to redis")
			return client, redislock.New(client), nil
		}
		_ = client.Close()
		lastErr = err

		sleep := backoff(attempt)
		GetLogger().WithField("addr", redisAddr).Warnf("failed to connect redis (attempt=%d): %v; retrying in %s", attempt, err, sleep)
		select {
		case <-ctx.Done():
			return nil, nil, ctx.Err()
		case <-time.After(sleep):
		}
	}
	return nil, nil, fmt.Errorf("connect redis after %d attempts: %w", maxAttempts, lastErr)
}

// RedisCounterLockTTL is how long the counter lock lives between refreshes.
// Set via REDIS_COUNTER_LOCK_TTL_SECONDS (default 600).
func RedisCounterLockTTL() time.Duration {
	return time.Duration(intFromEnv("REDIS_COUNTER_LOCK_TTL_SECONDS", 600)) * time.Second
}
