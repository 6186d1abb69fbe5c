package auth

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vovakirdan/livepoll-server/internal/store/sqlite"
)

func testJWTConfig() *JWTConfig {
	return &JWTConfig{
		Secret:   []byte("test-secret-change-me"),
		Issuer:   "test",
		Audience: "test",
		TTL:      24 * time.Hour,
	}
}

func newTestAuthService(t *testing.T) *Service {
	t.Helper()

	st, err := sqlite.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })

	return NewService(st, testJWTConfig())
}

func TestRegister_RejectsInvalidInput(t *testing.T) {
	svc := newTestAuthService(t)
	ctx := context.Background()

	_, err := svc.Register(ctx, "  ", "a@example.com", "password123")
	assert.ErrorIs(t, err, ErrInvalidName)

	_, err = svc.Register(ctx, "Alice", "not-an-email", "password123")
	assert.ErrorIs(t, err, ErrInvalidEmail)

	_, err = svc.Register(ctx, "Alice", "a@example.com", "12345")
	assert.ErrorIs(t, err, ErrInvalidPassword)
}

func TestRegister_NormalizesEmailAndRejectsDuplicate(t *testing.T) {
	svc := newTestAuthService(t)
	ctx := context.Background()

	user, err := svc.Register(ctx, " Alice ", " Alice@Example.com ", "password123")
	require.NoError(t, err)
	assert.Equal(t, "Alice", user.Name)
	assert.Equal(t, "alice@example.com", user.Email)
	assert.NotEqual(t, "password123", user.PasswordHash)

	_, err = svc.Register(ctx, "Other", "alice@example.com", "password123")
	assert.ErrorIs(t, err, ErrUserExists)
}

func TestLogin_IssuesTokenForUser(t *testing.T) {
	svc := newTestAuthService(t)
	ctx := context.Background()

	user, err := svc.Register(ctx, "Alice", "alice@example.com", "password123")
	require.NoError(t, err)

	token, got, err := svc.Login(ctx, "ALICE@example.com", "password123")
	require.NoError(t, err)
	assert.Equal(t, user.ID, got.ID)

	claims, err := svc.ValidateToken(token)
	require.NoError(t, err)
	id, err := claims.UserID()
	require.NoError(t, err)
	assert.Equal(t, user.ID, id)
	assert.Equal(t, "Alice", claims.Name)

	_, _, err = svc.Login(ctx, "alice@example.com", "wrong-password")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	_, _, err = svc.Login(ctx, "nobody@example.com", "password123")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestUserLookup(t *testing.T) {
	svc := newTestAuthService(t)
	ctx := context.Background()

	user, err := svc.Register(ctx, "Alice", "alice@example.com", "password123")
	require.NoError(t, err)

	got, err := svc.User(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, "alice@example.com", got.Email)

	_, err = svc.User(ctx, user.ID+1)
	assert.ErrorIs(t, err, ErrUserNotFound)

	users, err := svc.Users(ctx)
	require.NoError(t, err)
	assert.Len(t, users, 1)
}
