package constants

const (
	// TokenType for Bearer authentication
	TokenType = "Bearer"

	// AuthHeaderName is the name of the Authorization header
	AuthHeaderName = "Authorization"

	// AuthHeaderPrefix is the prefix for the Authorization header value
	AuthHeaderPrefix = "Bearer "

	// AccessTokenCookie carries the access token for page loads, where the
	// browser sends no Authorization header
	AccessTokenCookie = "cm-access-token"

	// DefaultAudience is the audience of tokens issued to signed-in users
	DefaultAudience = "authenticated"
)
