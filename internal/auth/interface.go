package auth

import "pathway/internal/domain/models"

// JWTVerifier defines the interface for bearer token verification.
// The middleware only needs the subject; everything else stays behind this
// interface.
type JWTVerifier interface {
	// VerifyToken validates a token string and returns the parsed claims.
	// Returns domain.ErrUnauthorized if the token is invalid or expired.
	VerifyToken(tokenString string) (*models.Claims, error)

	// Close releases any resources held by the verifier
	Close() error
}
