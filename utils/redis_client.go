package utils

import (
	"context"
	"net"
	"strconv"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/wirdly/wirdbot/config"
)

var (
	redisClient  *redis.Client
	redisHealthy bool
	redisOnce    sync.Once
)

// GetRedis returns a singleton Redis client based on loaded config, or nil
// when the server was unreachable at startup. Callers are expected to have
// an in-memory fallback for the nil case.
func GetRedis() *redis.Client {
	redisOnce.Do(func() {
		cfg := config.Get()
		redisClient = redis.NewClient(&redis.Options{
			Addr:         net.JoinHostPort(cfg.RedisHost, strconv.Itoa(cfg.RedisPort)),
			Password:     cfg.RedisPassword,
			DB:           cfg.RedisDB,
			DialTimeout:  3 * time.Second,
			ReadTimeout:  2 * time.Second,
			WriteTimeout: 2 * time.Second,
		})
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		redisHealthy = redisClient.Ping(ctx).Err() == nil
	})
	if !redisHealthy {
		return nil
	}
	return redisClient
}
