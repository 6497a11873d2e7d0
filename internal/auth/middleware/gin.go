package middleware

import (
	"net/http"

	"github.com/civicmatch/civic-match/internal/auth/providers"
	"github.com/gin-gonic/gin"
)

// ContextKeyUser is the gin context key of the authenticated *AuthInfo.
const ContextKeyUser = "user"

// RequireUser rejects requests without a valid access token with 401.
func RequireUser(provider providers.Provider) gin.HandlerFunc {
	return func(c *gin.Context) {
		info, err := Resolve(c.Request, provider)
		if err != nil || info == nil {
			message := "No authorization token provided"
			if err != nil {
				message = "Access token is invalid or expired"
			}
			c.Header("WWW-Authenticate", `Bearer realm="Civic Match"`)
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error":   "Unauthorized",
				"message": message,
				"code":    "UNAUTHORIZED",
			})
			return
		}

		c.Set(ContextKeyUser, info)
		c.Request = c.Request.WithContext(WithAuthInfo(c.Request.Context(), info))
		c.Next()
	}
}

// User returns the user stored by RequireUser.
func User(c *gin.Context) *AuthInfo {
	v, ok := c.Get(ContextKeyUser)
	if !ok {
		return nil
	}
	info, _ := v.(*AuthInfo)
	return info
}
