package jwt

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestBlacklist(t *testing.T) *Blacklist {
	t.Helper()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	return NewBlacklist(client)
}

func TestBlacklist_AddAndCheck(t *testing.T) {
	bl := newTestBlacklist(t)
	ctx := context.Background()

	// До добавления токена нет в blacklist
	found, err := bl.Check(ctx, "jti-1")
	require.NoError(t, err)
	assert.False(t, found)

	err = bl.Add(ctx, "jti-1", time.Now().Add(15*time.Minute))
	require.NoError(t, err)

	found, err = bl.Check(ctx, "jti-1")
	require.NoError(t, err)
	assert.True(t, found)
}

func TestBlacklist_ExpiredTokenNotAdded(t *testing.T) {
	bl := newTestBlacklist(t)
	ctx := context.Background()

	// Истёкший токен добавлять бессмысленно — Add молча пропускает
	err := bl.Add(ctx, "jti-expired", time.Now().Add(-1*time.Minute))
	require.NoError(t, err)

	found, err := bl.Check(ctx, "jti-expired")
	require.NoError(t, err)
	assert.False(t, found)
}

func TestValidateWithBlacklist_RevokedToken(t *testing.T) {
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)

	m := NewManagerWithKeys(key, &key.PublicKey, "storefront-test", 15*time.Minute)
	m.SetBlacklist(newTestBlacklist(t))

	ctx := context.Background()

	token, expiry, err := m.GenerateToken("user-123", "USER")
	require.NoError(t, err)

	// До отзыва валидация проходит
	claims, err := m.ValidateWithBlacklist(ctx, token)
	require.NoError(t, err)

	// Отзываем токен (logout)
	err = m.Blacklist().Add(ctx, claims.ID, expiry)
	require.NoError(t, err)

	_, err = m.ValidateWithBlacklist(ctx, token)
	assert.ErrorContains(t, err, "отозван")
}
