package services

import (
	"context"
	"testing"

	"github.com/isdelr/task-manager-api/internal/auth"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAuthService_Register(t *testing.T) {
	ctx := context.Background()
	env := setupEnv(t)

	user, err := env.auth.Register(ctx, " A ", "  A@X.com ", "pw123456")
	require.NoError(t, err)
	assert.NotZero(t, user.ID)
	assert.Equal(t, "A", user.Name)
	assert.Equal(t, "a@x.com", user.Email)
	assert.NotEqual(t, "pw123456", user.PasswordHash)

	_, err = env.auth.Register(ctx, "B", "a@x.com", "another-pw")
	assert.ErrorIs(t, err, ErrEmailTaken)
}

func TestAuthService_LoginUniformFailure(t *testing.T) {
	ctx := context.Background()
	env := setupEnv(t)
	env.register(t, "a@x.com")

	resp, err := env.auth.Login(ctx, "A@x.com", "pw123456")
	require.NoError(t, err)
	assert.NotEmpty(t, resp.AccessToken)
	assert.Equal(t, "Bearer", resp.TokenType)
	assert.Equal(t, int64(3600), resp.ExpiresIn)

	_, wrongPassword := env.auth.Login(ctx, "a@x.com", "wrong-password")
	_, unknownEmail := env.auth.Login(ctx, "nobody@x.com", "pw123456")
	assert.ErrorIs(t, wrongPassword, ErrInvalidCredentials)
	assert.ErrorIs(t, unknownEmail, ErrInvalidCredentials)
	assert.Equal(t, wrongPassword.Error(), unknownEmail.Error())
}

func TestAuthService_Authenticate(t *testing.T) {
	ctx := context.Background()
	env := setupEnv(t)
	user := env.register(t, "a@x.com")

	resp, err := env.auth.Login(ctx, "a@x.com", "pw123456")
	require.NoError(t, err)

	identity, err := env.auth.Authenticate(ctx, resp.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, user.ID, identity.User.ID)
	assert.NotEmpty(t, identity.Claims.ID)

	_, err = env.auth.Authenticate(ctx, "")
	assert.ErrorIs(t, err, auth.ErrTokenMissing)

	_, err = env.auth.Authenticate(ctx, "garbage")
	assert.ErrorIs(t, err, auth.ErrTokenInvalid)
}

func TestAuthService_AuthenticateDeletedUser(t *testing.T) {
	ctx := context.Background()
	env := setupEnv(t)
	user := env.register(t, "a@x.com")

	resp, err := env.auth.Login(ctx, "a@x.com", "pw123456")
	require.NoError(t, err)

	_, err = env.db.ExecContext(ctx, "DELETE FROM users WHERE id = ?", user.ID)
	require.NoError(t, err)

	_, err = env.auth.Authenticate(ctx, resp.AccessToken)
	assert.ErrorIs(t, err, auth.ErrTokenInvalid)
}

func TestAuthService_Logout(t *testing.T) {
	ctx := context.Background()
	env := setupEnv(t)
	env.register(t, "a@x.com")

	resp, err := env.auth.Login(ctx, "a@x.com", "pw123456")
	require.NoError(t, err)
	identity, err := env.auth.Authenticate(ctx, resp.AccessToken)
	require.NoError(t, err)

	require.NoError(t, env.auth.Logout(ctx, identity.Claims))
	require.NoError(t, env.auth.Logout(ctx, identity.Claims), "revoking twice is a no-op")

	_, err = env.auth.Authenticate(ctx, resp.AccessToken)
	assert.ErrorIs(t, err, auth.ErrTokenRevoked)
}

func TestAuthService_Refresh(t *testing.T) {
	ctx := context.Background()
	env := setupEnv(t)
	user := env.register(t, "a@x.com")

	resp, err := env.auth.Login(ctx, "a@x.com", "pw123456")
	require.NoError(t, err)
	identity, err := env.auth.Authenticate(ctx, resp.AccessToken)
	require.NoError(t, err)

	refreshed, err := env.auth.Refresh(ctx, identity.Claims)
	require.NoError(t, err)
	assert.NotEqual(t, resp.AccessToken, refreshed.AccessToken)

	_, err = env.auth.Authenticate(ctx, resp.AccessToken)
	assert.ErrorIs(t, err, auth.ErrTokenRevoked)

	next, err := env.auth.Authenticate(ctx, refreshed.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, user.ID, next.User.ID)
}

func TestAuthService_GetUser(t *testing.T) {
	ctx := context.Background()
	env := setupEnv(t)
	user := env.register(t, "a@x.com")

	got, err := env.auth.GetUser(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, user.Email, got.Email)

	_, err = env.auth.GetUser(ctx, user.ID+100)
	assert.ErrorIs(t, err, ErrUserNotFound)
}
