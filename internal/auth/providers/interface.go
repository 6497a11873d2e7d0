package providers

import (
	"context"
	"errors"

	"github.com/civicmatch/civic-match/internal/auth/models"
)

// ErrInvalidToken is returned for tokens that fail verification.
var ErrInvalidToken = errors.New("invalid access token")

// Provider validates access tokens issued by an identity provider
type Provider interface {
	// ValidateAccessToken validates a raw access token and returns user info
	ValidateAccessToken(ctx context.Context, token string) (*models.UserInfo, error)
}
