// Package middleware содержит HTTP middleware магазина.
//
// Авторизация привилегированных операций выполняется здесь, по набору
// ролей на маршрут. Сервисный слой ролей не проверяет: одна точка
// принятия решения вместо размазанных по сервисам проверок.
package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"example.com/storefront/internal/domain"
	"example.com/storefront/pkg/jwt"
	"example.com/storefront/pkg/logger"
)

// Ключи контекста Gin, заполняемые после аутентификации.
const (
	ContextUserID = "user_id"
	ContextRole   = "role"
	ContextJTI    = "jti"
)

// TokenValidator — интерфейс валидации токенов.
// Позволяет замокать jwt.Manager в тестах.
type TokenValidator interface {
	ValidateWithBlacklist(ctx context.Context, tokenString string) (*jwt.Claims, error)
}

// AuthMiddleware проверяет JWT токены: подпись, срок действия, blacklist.
type AuthMiddleware struct {
	validator TokenValidator
}

// NewAuthMiddleware создаёт middleware аутентификации.
func NewAuthMiddleware(validator TokenValidator) *AuthMiddleware {
	return &AuthMiddleware{validator: validator}
}

// Handle возвращает Gin handler для middleware.
func (m *AuthMiddleware) Handle() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()
		log := logger.FromContext(ctx)

		token := extractBearerToken(c)
		if token == "" {
			log.Debug().Msg("Отсутствует токен авторизации")
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error":   "unauthorized",
				"message": "Требуется авторизация",
			})
			return
		}

		claims, err := m.validator.ValidateWithBlacklist(ctx, token)
		if err != nil {
			log.Warn().Err(err).Msg("Ошибка валидации токена")
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error":   "unauthorized",
				"message": "Невалидный токен",
			})
			return
		}

		c.Set(ContextUserID, claims.UserID)
		c.Set(ContextRole, claims.Role)
		c.Set(ContextJTI, claims.ID)

		log.Debug().
			Str("user_id", claims.UserID).
			Str("role", claims.Role).
			Msg("Пользователь аутентифицирован")

		c.Next()
	}
}

// RequireRole возвращает middleware авторизации по набору ролей.
// Вешается на группу маршрутов ПОСЛЕ AuthMiddleware.
func RequireRole(roles ...domain.Role) gin.HandlerFunc {
	allowed := make(map[domain.Role]struct{}, len(roles))
	for _, r := range roles {
		allowed[r] = struct{}{}
	}

	return func(c *gin.Context) {
		role := domain.Role(c.GetString(ContextRole))

		if _, ok := allowed[role]; !ok {
			log := logger.FromContext(c.Request.Context())
			log.Warn().
				Str("user_id", c.GetString(ContextUserID)).
				Str("role", string(role)).
				Str("path", c.FullPath()).
				Msg("Доступ запрещён: недостаточно прав")
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{
				"error":   "forbidden",
				"message": "Недостаточно прав для операции",
			})
			return
		}

		c.Next()
	}
}

// extractBearerToken извлекает токен из заголовка Authorization.
func extractBearerToken(c *gin.Context) string {
	header := c.GetHeader("Authorization")
	if header == "" {
		return ""
	}

	const prefix = "Bearer "
	if !strings.HasPrefix(header, prefix) {
		return ""
	}
	return strings.TrimSpace(strings.TrimPrefix(header, prefix))
}
