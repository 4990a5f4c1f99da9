// Package jwt — blacklist для отзыва JWT токенов через Redis.
package jwt

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// prefixToken — префикс ключей Redis: jwt:blacklist:{jti}
const prefixToken = "jwt:blacklist:"

// Blacklist управляет отозванными токенами в Redis.
// Используется при logout: токен остаётся криптографически валидным,
// но отклоняется до истечения срока действия.
type Blacklist struct {
	redis *redis.Client
}

// NewBlacklist создаёт новый blacklist.
func NewBlacklist(client *redis.Client) *Blacklist {
	return &Blacklist{redis: client}
}

// Add добавляет токен в blacklist.
// TTL ключа = время до истечения токена (автоочистка).
func (b *Blacklist) Add(ctx context.Context, jti string, expiresAt time.Time) error {
	ttl := time.Until(expiresAt)
	if ttl <= 0 {
		return nil // Токен уже истёк, нет смысла добавлять
	}

	if err := b.redis.Set(ctx, prefixToken+jti, "1", ttl).Err(); err != nil {
		return fmt.Errorf("ошибка добавления токена в blacklist: %w", err)
	}
	return nil
}

// Check проверяет, находится ли токен в blacklist.
func (b *Blacklist) Check(ctx context.Context, jti string) (bool, error) {
	exists, err := b.redis.Exists(ctx, prefixToken+jti).Result()
	if err != nil {
		return false, fmt.Errorf("ошибка проверки blacklist: %w", err)
	}
	return exists > 0, nil
}
