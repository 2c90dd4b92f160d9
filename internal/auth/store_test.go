package auth

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInMemoryTokenStore(t *testing.T) {
	ctx := context.Background()
	store := NewInMemoryTokenStore()
	expires := time.Now().Add(time.Hour)

	t.Run("StoreAndGet", func(t *testing.T) {
		err := store.StoreToken(ctx, 1, "uuid-1", "refresh", "token-1", expires)
		require.NoError(t, err)

		token, err := store.GetToken(ctx, "uuid-1")
		require.NoError(t, err)
		assert.Equal(t, uint(1), token.UserID)
		assert.Equal(t, "refresh", token.Type)
	})

	t.Run("Duplicate", func(t *testing.T) {
		err := store.StoreToken(ctx, 1, "uuid-1", "refresh", "token-1", expires)
		assert.ErrorIs(t, err, ErrDuplicateToken)
	})

	t.Run("NotFound", func(t *testing.T) {
		_, err := store.GetToken(ctx, "missing")
		assert.ErrorIs(t, err, ErrTokenNotFound)
	})

	t.Run("Blacklist", func(t *testing.T) {
		err := store.BlacklistToken(ctx, "uuid-1")
		require.NoError(t, err)

		blacklisted, err := store.IsTokenBlacklisted(ctx, "uuid-1")
		require.NoError(t, err)
		assert.True(t, blacklisted)

		_, err = store.GetToken(ctx, "uuid-1")
		assert.ErrorIs(t, err, ErrTokenBlacklisted)
	})

	t.Run("Expired", func(t *testing.T) {
		err := store.StoreToken(ctx, 2, "uuid-2", "refresh", "token-2", time.Now().Add(-time.Minute))
		require.NoError(t, err)

		_, err = store.GetToken(ctx, "uuid-2")
		assert.ErrorIs(t, err, ErrTokenExpired)

		deleted, err := store.DeleteExpiredTokens(ctx)
		require.NoError(t, err)
		assert.Equal(t, 1, deleted)
	})

	t.Run("DeleteUserTokens", func(t *testing.T) {
		require.NoError(t, store.StoreToken(ctx, 3, "uuid-3a", "refresh", "t", expires))
		require.NoError(t, store.StoreToken(ctx, 3, "uuid-3b", "refresh", "t", expires))

		deleted, err := store.DeleteUserTokens(ctx, 3)
		require.NoError(t, err)
		assert.Equal(t, 2, deleted)

		_, err = store.GetToken(ctx, "uuid-3a")
		assert.ErrorIs(t, err, ErrTokenNotFound)
	})
}
