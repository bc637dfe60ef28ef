package session

import (
	"context"
	"testing"
	"time"

	"guesthouse/internal/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func TestAuthenticator(t *testing.T) {
	ctx := context.Background()

	auth, err := NewAuthenticator(config.AdminConfig{
		Username:   "admin",
		Password:   "lodge2025",
		SessionTTL: time.Hour,
	}, NewMemoryStore())
	require.NoError(t, err)
	require.True(t, auth.Enabled())

	t.Run("LoginSuccess", func(t *testing.T) {
		sess, err := auth.Login(ctx, "admin", "lodge2025")
		require.NoError(t, err)
		assert.NotEmpty(t, sess.ID)

		got, err := auth.Validate(ctx, sess.ID)
		require.NoError(t, err)
		assert.Equal(t, "admin", got.Username)

		require.NoError(t, auth.Logout(ctx, sess.ID))
		_, err = auth.Validate(ctx, sess.ID)
		assert.ErrorIs(t, err, ErrInvalidSession)
	})

	t.Run("WrongPassword", func(t *testing.T) {
		_, err := auth.Login(ctx, "admin", "wrong")
		assert.ErrorIs(t, err, ErrInvalidCredentials)
	})

	t.Run("WrongUser", func(t *testing.T) {
		_, err := auth.Login(ctx, "root", "lodge2025")
		assert.ErrorIs(t, err, ErrInvalidCredentials)
	})

	t.Run("EmptySession", func(t *testing.T) {
		_, err := auth.Validate(ctx, "")
		assert.ErrorIs(t, err, ErrInvalidSession)
	})

	t.Run("ExpiredSession", func(t *testing.T) {
		sess, err := auth.Login(ctx, "admin", "lodge2025")
		require.NoError(t, err)
		auth.now = func() time.Time { return time.Now().Add(2 * time.Hour) }
		defer func() { auth.now = time.Now }()

		_, err = auth.Validate(ctx, sess.ID)
		assert.ErrorIs(t, err, ErrInvalidSession)
	})
}

func TestAuthenticatorWithHash(t *testing.T) {
	hash, err := bcrypt.GenerateFromPassword([]byte("s3cret"), bcrypt.MinCost)
	require.NoError(t, err)

	auth, err := NewAuthenticator(config.AdminConfig{Username: "admin", PasswordHash: string(hash)}, NewMemoryStore())
	require.NoError(t, err)

	sess, err := auth.Login(context.Background(), "admin", "s3cret")
	require.NoError(t, err)
	assert.True(t, sess.ExpiresAt.IsZero())
}

func TestAuthenticatorDisabled(t *testing.T) {
	auth, err := NewAuthenticator(config.AdminConfig{}, NewMemoryStore())
	require.NoError(t, err)
	assert.False(t, auth.Enabled())

	_, err = auth.Login(context.Background(), "", "")
	assert.ErrorIs(t, err, ErrLoginDisabled)
}
