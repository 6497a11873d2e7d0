// Package auth verifies access tokens issued by the managed backend and
// exposes them to handlers as middleware.
package auth

import (
	"net/http"

	"github.com/civicmatch/civic-match/internal/auth/middleware"
	"github.com/civicmatch/civic-match/internal/auth/providers"
	"github.com/civicmatch/civic-match/internal/config"
	"github.com/gin-gonic/gin"
	"go.uber.org/fx"
)

// Service represents the auth service
type Service struct {
	provider providers.Provider
	origins  []string
}

// NewService creates a new auth service
func NewService(provider providers.Provider, server *config.ServerConfig) *Service {
	return &Service{
		provider: provider,
		origins:  server.AllowOrigins,
	}
}

// WrapWithCors wraps handler with the CORS middleware
func (s *Service) WrapWithCors(handler http.Handler) http.Handler {
	return middleware.CORSWithOrigins(s.origins)(handler)
}

// RequireUser returns the gin authentication middleware
func (s *Service) RequireUser() gin.HandlerFunc {
	return middleware.RequireUser(s.provider)
}

// Module provides the auth service backed by the managed backend's tokens
var Module = fx.Module("auth",
	fx.Provide(
		fx.Annotate(
			providers.NewBackendProvider,
			fx.As(new(providers.Provider)),
		),
		NewService,
	),
)
