package requester

import (
	"fmt"
	"net/http"

	"github.com/civicmatch/civic-match/internal/config"
)

// AuthManager handles request authentication
type AuthManager interface {
	ApplyAuth(req *http.Request) error
}

// HTTPAuthManager implements the AuthManager interface
type HTTPAuthManager struct {
	authType   config.AuthType
	authConfig map[string]string
}

// NewHTTPAuthManager creates a new HTTPAuthManager
func NewHTTPAuthManager(authType config.AuthType, authConfig map[string]string) *HTTPAuthManager {
	return &HTTPAuthManager{
		authType:   authType,
		authConfig: authConfig,
	}
}

// NewBackendAuthManager authenticates admin calls to the managed backend.
func NewBackendAuthManager(cfg *config.BackendConfig) *HTTPAuthManager {
	authType := cfg.AuthType
	if authType == "" {
		authType = config.AuthTypeServiceRole
	}
	return NewHTTPAuthManager(authType, map[string]string{
		"key":   cfg.ServiceRoleKey,
		"token": cfg.ServiceRoleKey,
	})
}

// ApplyAuth adds authentication to the request
func (a *HTTPAuthManager) ApplyAuth(req *http.Request) error {
	switch a.authType {
	case config.AuthTypeNone, "":
		return nil
	case config.AuthTypeBasic:
		req.SetBasicAuth(a.authConfig["username"], a.authConfig["password"])
	case config.AuthTypeBearer:
		req.Header.Set("Authorization", "Bearer "+a.authConfig["token"])
	case config.AuthTypeAPIKey:
		header := a.authConfig["header"]
		if header == "" {
			header = "apikey"
		}
		req.Header.Set(header, a.authConfig["key"])
	case config.AuthTypeServiceRole:
		// the managed backend expects the key twice: as apikey and as bearer
		key := a.authConfig["key"]
		if key == "" {
			return fmt.Errorf("service role key is not configured")
		}
		req.Header.Set("apikey", key)
		req.Header.Set("Authorization", "Bearer "+key)
	default:
		return fmt.Errorf("unsupported auth type: %s", a.authType)
	}
	return nil
}
