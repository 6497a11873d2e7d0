package providers

import (
	"context"
	"errors"
	"fmt"

	"github.com/civicmatch/civic-match/internal/auth/constants"
	"github.com/civicmatch/civic-match/internal/auth/models"
	"github.com/civicmatch/civic-match/internal/config"
	"github.com/golang-jwt/jwt/v5"
)

// BackendClaims are the claims of an access token issued by the managed backend.
type BackendClaims struct {
	Email        string                 `json:"email"`
	Role         string                 `json:"role"`
	UserMetadata map[string]interface{} `json:"user_metadata,omitempty"`
	jwt.RegisteredClaims
}

// BackendProvider verifies HS256 access tokens signed with the backend's JWT secret.
type BackendProvider struct {
	secret   []byte
	audience string
}

// NewBackendProvider creates a provider for cfg.JWTSecret.
func NewBackendProvider(cfg *config.BackendConfig) *BackendProvider {
	audience := cfg.JWTAudience
	if audience == "" {
		audience = constants.DefaultAudience
	}
	return &BackendProvider{
		secret:   []byte(cfg.JWTSecret),
		audience: audience,
	}
}

func (p *BackendProvider) ValidateAccessToken(_ context.Context, token string) (*models.UserInfo, error) {
	if len(p.secret) == 0 {
		return nil, fmt.Errorf("%w: jwt secret is not configured", ErrInvalidToken)
	}

	claims := &BackendClaims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("invalid signing method")
		}
		return p.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithAudience(p.audience),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidToken, err)
	}
	if !parsed.Valid || claims.Subject == "" {
		return nil, fmt.Errorf("%w: missing subject", ErrInvalidToken)
	}

	return &models.UserInfo{
		ID:       claims.Subject,
		Email:    claims.Email,
		Role:     claims.Role,
		Metadata: claims.UserMetadata,
	}, nil
}
