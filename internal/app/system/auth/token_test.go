package auth_test

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/dalemusser/registryhub/internal/app/system/auth"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-jwt-secret-must-be-32-chars-long!"

func newTokens(t *testing.T) *auth.TokenManager {
	t.Helper()
	tm, err := auth.NewTokenManager(testSecret, "registryhub", time.Hour)
	require.NoError(t, err)
	return tm
}

func TestNewTokenManager_Rejects(t *testing.T) {
	_, err := auth.NewTokenManager("short", "registryhub", time.Hour)
	assert.Error(t, err)

	_, err = auth.NewTokenManager(testSecret, "registryhub", 0)
	assert.Error(t, err)
}

func TestTokenManager_RoundTrip(t *testing.T) {
	tm := newTokens(t)

	tok, exp, err := tm.Issue("64b000000000000000000001", "admin")
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(time.Hour), exp, 5*time.Second)

	claims, err := tm.Parse(tok)
	require.NoError(t, err)
	assert.Equal(t, "64b000000000000000000001", claims.UserID())
	assert.Equal(t, "admin", claims.Role)
	assert.NotEmpty(t, claims.ID, "jti should be set")
}

func TestTokenManager_UniqueJTI(t *testing.T) {
	tm := newTokens(t)
	a, _, err := tm.Issue("u1", "admin")
	require.NoError(t, err)
	b, _, err := tm.Issue("u1", "admin")
	require.NoError(t, err)
	assert.NotEqual(t, a, b)
}

func TestTokenManager_Expired(t *testing.T) {
	tm := newTokens(t)
	tm.SetNow(func() time.Time { return time.Now().Add(-2 * time.Hour) })
	tok, _, err := tm.Issue("u1", "admin")
	require.NoError(t, err)

	tm.SetNow(time.Now)
	_, err = tm.Parse(tok)
	assert.True(t, errors.Is(err, auth.ErrTokenExpired), "got %v", err)
}

func TestTokenManager_Invalid(t *testing.T) {
	tm := newTokens(t)
	good, _, err := tm.Issue("u1", "admin")
	require.NoError(t, err)

	other, err := auth.NewTokenManager(strings.Repeat("x", 40), "registryhub", time.Hour)
	require.NoError(t, err)
	foreign, _, err := other.Issue("u1", "admin")
	require.NoError(t, err)

	wrongIssuer, err := auth.NewTokenManager(testSecret, "someone-else", time.Hour)
	require.NoError(t, err)
	otherIss, _, err := wrongIssuer.Issue("u1", "admin")
	require.NoError(t, err)

	none := jwt.NewWithClaims(jwt.SigningMethodNone, auth.Claims{Role: "admin",
		RegisteredClaims: jwt.RegisteredClaims{Subject: "u1", Issuer: "registryhub",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour))}})
	unsigned, err := none.SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	tests := map[string]string{
		"garbage":      "not.a.token",
		"tampered":     good[:len(good)-2] + "xx",
		"other secret": foreign,
		"other issuer": otherIss,
		"alg none":     unsigned,
		"empty":        "",
	}
	for name, tok := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := tm.Parse(tok)
			assert.ErrorIs(t, err, auth.ErrInvalidToken)
		})
	}
}
