package auth

import (
	"crypto/rand"
	"crypto/rsa"
	"encoding/base64"
	"encoding/json"
	"io"
	"log/slog"
	"math/big"
	"testing"
	"time"

	"github.com/MicahParks/keyfunc/v3"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pathway/internal/domain"
	"pathway/internal/domain/models"
)

const testKeyID = "test-key"

func newTestVerifier(t *testing.T) (*JWKSVerifier, *rsa.PrivateKey) {
	t.Helper()

	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)

	set := map[string]any{
		"keys": []map[string]string{{
			"kty": "RSA",
			"kid": testKeyID,
			"alg": "RS256",
			"use": "sig",
			"n":   base64.RawURLEncoding.EncodeToString(key.N.Bytes()),
			"e":   base64.RawURLEncoding.EncodeToString(big.NewInt(int64(key.E)).Bytes()),
		}},
	}
	raw, err := json.Marshal(set)
	require.NoError(t, err)

	jwks, err := keyfunc.NewJWKSetJSON(raw)
	require.NoError(t, err)

	return newJWKSVerifier(jwks, slog.New(slog.NewTextHandler(io.Discard, nil))), key
}

func sign(t *testing.T, key *rsa.PrivateKey, claims *models.Claims) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodRS256, claims)
	token.Header["kid"] = testKeyID
	signed, err := token.SignedString(key)
	require.NoError(t, err)
	return signed
}

func claimsFor(subject, role string, expiresIn time.Duration) *models.Claims {
	c := &models.Claims{Role: role}
	c.Subject = subject
	c.ExpiresAt = jwt.NewNumericDate(time.Now().Add(expiresIn))
	return c
}

func TestJWKSVerifier(t *testing.T) {
	v, key := newTestVerifier(t)
	other, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)

	tests := []struct {
		name    string
		token   string
		wantSub string
	}{
		{
			name:    "valid token",
			token:   sign(t, key, claimsFor("mentee-1", "authenticated", time.Hour)),
			wantSub: "mentee-1",
		},
		{
			name:  "expired",
			token: sign(t, key, claimsFor("mentee-1", "authenticated", -time.Hour)),
		},
		{
			name:  "anonymous",
			token: sign(t, key, claimsFor("anon-1", "anon", time.Hour)),
		},
		{
			name:  "missing subject",
			token: sign(t, key, claimsFor("", "authenticated", time.Hour)),
		},
		{
			name:  "wrong key",
			token: sign(t, other, claimsFor("mentee-1", "authenticated", time.Hour)),
		},
		{
			name:  "garbage",
			token: "not-a-token",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			claims, err := v.VerifyToken(tt.token)
			if tt.wantSub == "" {
				assert.ErrorIs(t, err, domain.ErrUnauthorized)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantSub, claims.GetUserID())
		})
	}
}

func TestDevVerifier(t *testing.T) {
	v := NewDevVerifier(slog.New(slog.NewTextHandler(io.Discard, nil)))

	claims, err := v.VerifyToken(" mentor-1 ")
	require.NoError(t, err)
	assert.Equal(t, "mentor-1", claims.GetUserID())

	_, err = v.VerifyToken("")
	assert.ErrorIs(t, err, domain.ErrUnauthorized)
}
