package requester

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/civicmatch/civic-match/internal/apperr"
	"github.com/civicmatch/civic-match/internal/config"
	"github.com/civicmatch/civic-match/internal/logger"
	"go.uber.org/zap"
)

// BackendClient calls the managed backend's admin API with service credentials.
type BackendClient struct {
	client  *http.Client
	baseURL string
	authMgr AuthManager
}

// NewBackendClient creates a BackendClient for cfg.URL.
func NewBackendClient(cfg *config.BackendConfig) *BackendClient {
	return &BackendClient{
		client:  &http.Client{Timeout: 15 * time.Second},
		baseURL: strings.TrimRight(cfg.URL, "/"),
		authMgr: NewBackendAuthManager(cfg),
	}
}

// DeleteUser removes an auth user. A user that is already gone is not an error.
func (c *BackendClient) DeleteUser(ctx context.Context, userID string) error {
	if c.baseURL == "" {
		return &apperr.UpstreamError{Service: "auth", Err: fmt.Errorf("backend.url is not configured")}
	}

	endpoint := fmt.Sprintf("%s/auth/v1/admin/users/%s", c.baseURL, url.PathEscape(userID))
	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, endpoint, http.NoBody)
	if err != nil {
		return fmt.Errorf("failed to create HTTP request: %w", err)
	}
	if err := c.authMgr.ApplyAuth(req); err != nil {
		return fmt.Errorf("failed to apply authentication: %w", err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return &apperr.UpstreamError{Service: "auth", Err: err}
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 4<<10))

	switch {
	case resp.StatusCode == http.StatusNotFound:
		logger.Warn("Auth user already deleted", zap.String("user_id", userID))
		return nil
	case resp.StatusCode >= http.StatusBadRequest:
		logger.Error("Auth user deletion failed",
			zap.String("user_id", userID),
			zap.Int("status", resp.StatusCode),
			zap.ByteString("body", body),
		)
		return &apperr.UpstreamError{Service: "auth", Status: resp.StatusCode}
	}
	return nil
}
