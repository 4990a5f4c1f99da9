package jwt

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"testing"
	"time"

	jwtlib "github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestManager(t *testing.T, ttl time.Duration) *Manager {
	t.Helper()

	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)

	return NewManagerWithKeys(key, &key.PublicKey, "storefront-test", ttl)
}

func TestGenerateAndValidateToken(t *testing.T) {
	m := newTestManager(t, 15*time.Minute)

	token, expiry, err := m.GenerateToken("user-123", "ADMIN")
	require.NoError(t, err)
	assert.NotEmpty(t, token)
	assert.True(t, expiry.After(time.Now()))

	claims, err := m.ValidateToken(token)
	require.NoError(t, err)

	assert.Equal(t, "user-123", claims.UserID)
	assert.Equal(t, "ADMIN", claims.Role)
	assert.Equal(t, "user-123", claims.Subject)
	assert.Equal(t, "storefront-test", claims.Issuer)
	assert.NotEmpty(t, claims.ID) // jti должен присутствовать для blacklist
}

func TestValidateToken_Expired(t *testing.T) {
	m := newTestManager(t, -1*time.Minute) // Токен сразу истёкший

	token, _, err := m.GenerateToken("user-123", "USER")
	require.NoError(t, err)

	_, err = m.ValidateToken(token)
	assert.Error(t, err)
}

func TestValidateToken_WrongKey(t *testing.T) {
	m1 := newTestManager(t, 15*time.Minute)
	m2 := newTestManager(t, 15*time.Minute)

	token, _, err := m1.GenerateToken("user-123", "USER")
	require.NoError(t, err)

	// Валидация чужим ключом должна провалиться
	_, err = m2.ValidateToken(token)
	assert.Error(t, err)
}

func TestValidateToken_WrongAlgorithm(t *testing.T) {
	m := newTestManager(t, 15*time.Minute)

	// Токен, подписанный HS256 — должен быть отклонён
	hsToken := jwtlib.NewWithClaims(jwtlib.SigningMethodHS256, jwtlib.MapClaims{
		"user_id": "user-123",
		"role":    "ADMIN",
	})
	signed, err := hsToken.SignedString([]byte("secret"))
	require.NoError(t, err)

	_, err = m.ValidateToken(signed)
	assert.Error(t, err)
}

func TestGenerateToken_NoPrivateKey(t *testing.T) {
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)

	m := NewManagerWithKeys(nil, &key.PublicKey, "storefront-test", 15*time.Minute)
	assert.False(t, m.CanSign())

	_, _, err = m.GenerateToken("user-123", "USER")
	assert.Error(t, err)
}

func TestValidateWithBlacklist_NoBlacklist(t *testing.T) {
	m := newTestManager(t, 15*time.Minute)

	token, _, err := m.GenerateToken("user-123", "RIDER")
	require.NoError(t, err)

	// Без blacklist валидация работает как обычная
	claims, err := m.ValidateWithBlacklist(context.Background(), token)
	require.NoError(t, err)
	assert.Equal(t, "RIDER", claims.Role)
}
