package middleware

import (
	"context"
	"net/http"
	"slices"
	"strings"

	"github.com/civicmatch/civic-match/internal/auth/constants"
	"github.com/civicmatch/civic-match/internal/auth/providers"
	"github.com/civicmatch/civic-match/internal/logger"
	"go.uber.org/zap"
)

// AuthContext is the key type for the context
type authContextKey string

const (
	// AuthContextKey is used to store auth info in the request context
	AuthContextKey authContextKey = "auth"
)

// AuthInfo represents the authentication information stored in context
type AuthInfo struct {
	UserID string
	Email  string
	Role   string
	Token  string
}

// FromContext returns the authenticated user, or nil.
func FromContext(ctx context.Context) *AuthInfo {
	info, _ := ctx.Value(AuthContextKey).(*AuthInfo)
	return info
}

// WithAuthInfo returns a copy of ctx carrying info.
func WithAuthInfo(ctx context.Context, info *AuthInfo) context.Context {
	return context.WithValue(ctx, AuthContextKey, info)
}

// Resolve validates the request's token. It returns nil without an error when
// the request carries no token.
func Resolve(r *http.Request, provider providers.Provider) (*AuthInfo, error) {
	token := ExtractToken(r)
	if token == "" {
		return nil, nil
	}
	userInfo, err := provider.ValidateAccessToken(r.Context(), token)
	if err != nil {
		return nil, err
	}
	return &AuthInfo{
		UserID: userInfo.ID,
		Email:  userInfo.Email,
		Role:   userInfo.Role,
		Token:  token,
	}, nil
}

// OptionalAuthenticate allows both authenticated and unauthenticated access
func OptionalAuthenticate(provider providers.Provider) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			info, err := Resolve(r, provider)
			if err != nil {
				logger.FromContext(r.Context()).Debug("Ignoring invalid access token",
					zap.String("path", r.URL.Path),
					zap.Error(err),
				)
			}
			if info == nil {
				next.ServeHTTP(w, r)
				return
			}
			next.ServeHTTP(w, r.WithContext(WithAuthInfo(r.Context(), info)))
		})
	}
}

// CORSWithOrigins allows the listed origins; "*" or an empty list allows any.
func CORSWithOrigins(origins []string) func(http.Handler) http.Handler {
	anyOrigin := len(origins) == 0 || slices.Contains(origins, "*")
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			origin := r.Header.Get("Origin")
			switch {
			case anyOrigin:
				w.Header().Set("Access-Control-Allow-Origin", "*")
			case origin != "" && slices.Contains(origins, origin):
				w.Header().Set("Access-Control-Allow-Origin", origin)
				w.Header().Add("Vary", "Origin")
			}
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS, DELETE")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
			w.Header().Set("Access-Control-Expose-Headers", "WWW-Authenticate")

			if r.Method == http.MethodOptions && r.Header.Get("Access-Control-Request-Method") != "" {
				w.WriteHeader(http.StatusNoContent)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// ExtractToken returns the Bearer token of the request, falling back to the
// access token cookie
func ExtractToken(r *http.Request) string {
	authHeader := r.Header.Get(constants.AuthHeaderName)
	if strings.HasPrefix(authHeader, constants.AuthHeaderPrefix) {
		return strings.TrimSpace(strings.TrimPrefix(authHeader, constants.AuthHeaderPrefix))
	}
	if c, err := r.Cookie(constants.AccessTokenCookie); err == nil {
		return c.Value
	}
	return ""
}
