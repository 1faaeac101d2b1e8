package utils

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func signed(t *testing.T, exp time.Time) string {
	t.Helper()
	claims := Claims{
		UserID:           "u1",
		RegisteredClaims: jwt.RegisteredClaims{ExpiresAt: jwt.NewNumericDate(exp)},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("server-secret"))
	require.NoError(t, err)
	return token
}

func TestTokenExpired(t *testing.T) {
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)

	assert.False(t, TokenExpired(signed(t, now.Add(time.Hour)), now))
	assert.True(t, TokenExpired(signed(t, now.Add(-time.Hour)), now))
	// opaque tokens are left to the server
	assert.False(t, TokenExpired("opaque-token", now))

	claims, err := ParseTokenUnverified(signed(t, now.Add(time.Hour)))
	require.NoError(t, err)
	assert.Equal(t, "u1", claims.UserID)
}

func TestPagePath(t *testing.T) {
	assert.Equal(t, "/v1.0/topics?page=1", PagePath("/v1.0/topics", Pagination{}))
	assert.Equal(t, "/v1.0/topics?limit=20&page=3", PagePath("/v1.0/topics", Pagination{Page: 3, Limit: 20}))
	assert.Equal(t, "/v1.0/topics?limit=100&page=2", PagePath("/v1.0/topics", Pagination{Page: 2, Limit: 500}))
}
