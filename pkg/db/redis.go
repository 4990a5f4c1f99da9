package db

import (
	"github.com/redis/go-redis/v9"

	"example.com/storefront/pkg/config"
)

// ConnectRedis создаёт клиент Redis.
// Используется для blacklist JWT токенов при logout.
func ConnectRedis(cfg config.RedisConfig) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     cfg.Addr(),
		Password: cfg.Password,
		DB:       cfg.DB,
	})
}
