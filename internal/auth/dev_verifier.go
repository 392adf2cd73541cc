package auth

import (
	"log/slog"
	"strings"

	"pathway/internal/domain"
	"pathway/internal/domain/models"
)

// DevVerifier trusts the presented token as the participant id. It is used
// when no JWKS_URL is configured (dev and test) and is refused in prod by
// config.Load.
type DevVerifier struct {
	logger *slog.Logger
}

// NewDevVerifier creates a verifier that performs no credential checks
func NewDevVerifier(logger *slog.Logger) *DevVerifier {
	logger.Warn("DEV AUTH: bearer tokens are trusted as user ids (NEVER use in production!)")
	return &DevVerifier{logger: logger}
}

// VerifyToken returns claims whose subject is the token itself
func (v *DevVerifier) VerifyToken(tokenString string) (*models.Claims, error) {
	subject := strings.TrimSpace(tokenString)
	if subject == "" {
		return nil, domain.ErrUnauthorized
	}
	claims := &models.Claims{Role: "authenticated"}
	claims.Subject = subject
	return claims, nil
}

// Close is a no-op
func (v *DevVerifier) Close() error { return nil }
