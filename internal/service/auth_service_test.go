package service

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stemsi/speaking-backend/internal/config"
	"github.com/stretchr/testify/require"
)

func testAuth(expiry time.Duration) *AuthService {
	return NewAuthService(&config.Config{
		JWTSecret:  "test-secret",
		JWTExpiry:  expiry,
		BcryptCost: 4,
	}, nil)
}

func TestAdminTokenRoundTrip(t *testing.T) {
	auth := testAuth(time.Hour)

	token, err := auth.GenerateAdminToken(7, 2, []string{"scores:read"})
	require.NoError(t, err)

	claims, err := auth.ValidateToken(token)
	require.NoError(t, err)
	require.Equal(t, TokenTypeAdmin, claims.TokenType)
	require.Equal(t, 7, claims.UserID)
	require.Equal(t, 2, claims.RoleID)
	require.Equal(t, []string{"scores:read"}, claims.Permissions)
	require.Equal(t, "7", claims.Subject)
	require.NotEmpty(t, claims.ID)
}

func TestValidateTokenRejects(t *testing.T) {
	auth := testAuth(time.Hour)
	token, err := auth.GenerateAdminToken(1, 1, nil)
	require.NoError(t, err)

	t.Run("wrong secret", func(t *testing.T) {
		other := NewAuthService(&config.Config{JWTSecret: "other", JWTExpiry: time.Hour}, nil)
		_, err := other.ValidateToken(token)
		require.Error(t, err)
	})

	t.Run("expired", func(t *testing.T) {
		expired, err := testAuth(-time.Minute).GenerateAdminToken(1, 1, nil)
		require.NoError(t, err)
		_, err = auth.ValidateToken(expired)
		require.ErrorIs(t, err, jwt.ErrTokenExpired)
	})

	t.Run("foreign issuer", func(t *testing.T) {
		claims := auth.newClaims(TokenTypeAdmin, 1)
		claims.Issuer = "someone-else"
		forged, err := auth.sign(claims)
		require.NoError(t, err)
		_, err = auth.ValidateToken(forged)
		require.Error(t, err)
	})

	t.Run("unknown token type", func(t *testing.T) {
		forged, err := auth.sign(auth.newClaims("proctor", 1))
		require.NoError(t, err)
		_, err = auth.ValidateToken(forged)
		require.ErrorIs(t, err, errInvalidClaims)
	})

	t.Run("garbage", func(t *testing.T) {
		_, err := auth.ValidateToken("not.a.token")
		require.Error(t, err)
	})
}

func TestPasswordHashing(t *testing.T) {
	auth := testAuth(time.Hour)

	hash, err := auth.HashPassword("correct horse")
	require.NoError(t, err)
	require.NoError(t, auth.CheckPassword(hash, "correct horse"))
	require.ErrorIs(t, auth.CheckPassword(hash, "battery staple"), ErrInvalidCredentials)
}
