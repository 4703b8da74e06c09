package auth

import (
	"context"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func signHMAC(t *testing.T, secret string, claims jwt.MapClaims) string {
	t.Helper()
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	require.NoError(t, err)
	return signed
}

func TestHMACVerifier(t *testing.T) {
	verifier := NewHMACVerifier("local-secret")
	exp := time.Now().Add(time.Hour).Unix()

	id, err := verifier.Verify(context.Background(), signHMAC(t, "local-secret", jwt.MapClaims{
		"sub": "admin", "email": "admin@plant.local", "exp": exp,
	}))
	require.NoError(t, err)
	assert.Equal(t, "admin", id.UID)
	assert.Equal(t, "admin@plant.local", id.Email)
	assert.Equal(t, "admin", id.Claims["sub"])

	tests := []struct {
		name  string
		token string
	}{
		{"wrong secret", signHMAC(t, "other", jwt.MapClaims{"sub": "admin", "exp": exp})},
		{"expired", signHMAC(t, "local-secret", jwt.MapClaims{"sub": "admin", "exp": time.Now().Add(-time.Hour).Unix()})},
		{"no expiry", signHMAC(t, "local-secret", jwt.MapClaims{"sub": "admin"})},
		{"no subject", signHMAC(t, "local-secret", jwt.MapClaims{"exp": exp})},
		{"garbage", "abc"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := verifier.Verify(context.Background(), tt.token)
			assert.ErrorIs(t, err, ErrAuthInvalid)
		})
	}
}
