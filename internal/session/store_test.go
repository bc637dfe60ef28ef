package session

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStore(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	sess := &Session{ID: "s1", Username: "admin", ExpiresAt: time.Now().Add(time.Hour)}
	require.NoError(t, store.Create(ctx, sess))

	got, err := store.Get(ctx, "s1")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "admin", got.Username)

	expired := &Session{ID: "s2", ExpiresAt: time.Now().Add(-time.Second)}
	require.NoError(t, store.Create(ctx, expired))
	got, err = store.Get(ctx, "s2")
	require.NoError(t, err)
	assert.Nil(t, got)

	require.NoError(t, store.Delete(ctx, "s1"))
	got, _ = store.Get(ctx, "s1")
	assert.Nil(t, got)
}

func TestRedisStore(t *testing.T) {
	s, err := miniredis.Run()
	require.NoError(t, err)
	defer s.Close()

	client := redis.NewClient(&redis.Options{Addr: s.Addr()})
	defer client.Close()

	store := NewRedisStore(client)
	ctx := context.Background()

	t.Run("CreateAndGet", func(t *testing.T) {
		sess := &Session{ID: "abc", Username: "admin", CreatedAt: time.Now(), ExpiresAt: time.Now().Add(time.Hour)}
		require.NoError(t, store.Create(ctx, sess))

		got, err := store.Get(ctx, "abc")
		require.NoError(t, err)
		require.NotNil(t, got)
		assert.Equal(t, "admin", got.Username)
		assert.True(t, s.Exists("admin_session:abc"))
	})

	t.Run("Missing", func(t *testing.T) {
		got, err := store.Get(ctx, "nope")
		require.NoError(t, err)
		assert.Nil(t, got)
	})

	t.Run("TTLExpires", func(t *testing.T) {
		sess := &Session{ID: "short", Username: "admin", ExpiresAt: time.Now().Add(2 * time.Second)}
		require.NoError(t, store.Create(ctx, sess))
		s.FastForward(3 * time.Second)
		assert.False(t, s.Exists("admin_session:short"))
	})

	t.Run("Delete", func(t *testing.T) {
		require.NoError(t, store.Create(ctx, &Session{ID: "del", ExpiresAt: time.Now().Add(time.Hour)}))
		require.NoError(t, store.Delete(ctx, "del"))
		got, _ := store.Get(ctx, "del")
		assert.Nil(t, got)
	})

	t.Run("NilClient", func(t *testing.T) {
		_, err := NewRedisStore(nil).Get(ctx, "x")
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "redis client is nil")
	})

	t.Run("Ping", func(t *testing.T) {
		assert.NoError(t, Ping(ctx, client))
	})
}
