package requester

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"net/url"
	"path"
	"strings"

	"github.com/civicmatch/civic-match/internal/models"
)

// HTTPRequestBuilder turns worker requests into outbound HTTP requests.
type HTTPRequestBuilder struct {
	origin      *url.URL
	upstream    *url.URL // nil when the origin is served in-process
	passthrough map[string]bool
	headers     map[string]string
	authMgr     AuthManager
}

// SameOrigin reports whether u has the origin's scheme, host and port.
func (b *HTTPRequestBuilder) SameOrigin(u *url.URL) bool {
	return SameOrigin(b.origin, u)
}

// SameOrigin compares scheme, host and port, applying default ports.
func SameOrigin(origin, u *url.URL) bool {
	if origin == nil || u == nil {
		return false
	}
	return strings.EqualFold(origin.Scheme, u.Scheme) &&
		strings.EqualFold(origin.Hostname(), u.Hostname()) &&
		effectivePort(origin) == effectivePort(u)
}

func effectivePort(u *url.URL) string {
	if p := u.Port(); p != "" {
		return p
	}
	switch strings.ToLower(u.Scheme) {
	case "https":
		return "443"
	default:
		return "80"
	}
}

// BuildRequest builds the outbound request for req.
func (b *HTTPRequestBuilder) BuildRequest(ctx context.Context, req *models.Request) (*http.Request, error) {
	if req == nil || req.URL == nil {
		return nil, fmt.Errorf("request has no URL")
	}

	target, err := b.targetURL(req.URL)
	if err != nil {
		return nil, err
	}

	var body *bytes.Reader
	if len(req.Body) > 0 {
		body = bytes.NewReader(req.Body)
	}

	var httpReq *http.Request
	if body != nil {
		httpReq, err = http.NewRequestWithContext(ctx, req.Method, target.String(), body)
	} else {
		httpReq, err = http.NewRequestWithContext(ctx, req.Method, target.String(), http.NoBody)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to create HTTP request: %w", err)
	}

	httpReq.Header = req.Header.Clone()
	if httpReq.Header == nil {
		httpReq.Header = http.Header{}
	}
	removeHopHeaders(httpReq.Header)
	// let the transport negotiate compression so stored bodies are plain
	httpReq.Header.Del("Accept-Encoding")
	for k, v := range b.headers {
		httpReq.Header.Set(k, v)
	}

	if b.upstream != nil && b.SameOrigin(req.URL) {
		httpReq.Host = b.upstream.Host
		httpReq.Header.Set("X-Forwarded-Host", req.URL.Host)
		httpReq.Header.Set("X-Forwarded-Proto", req.URL.Scheme)
	}

	if b.authMgr != nil {
		if err := b.authMgr.ApplyAuth(httpReq); err != nil {
			return nil, fmt.Errorf("failed to apply authentication: %w", err)
		}
	}

	return httpReq, nil
}

func (b *HTTPRequestBuilder) targetURL(u *url.URL) (*url.URL, error) {
	if !b.SameOrigin(u) {
		if !b.passthrough[strings.ToLower(u.Hostname())] {
			return nil, fmt.Errorf("%w: %s", ErrHostNotAllowed, u.Host)
		}
		return u, nil
	}
	if b.upstream == nil {
		return u, nil
	}

	target := *b.upstream
	target.Path = joinPath(b.upstream.Path, u.Path)
	target.RawPath = ""
	target.RawQuery = u.RawQuery
	target.Fragment = ""
	return &target, nil
}

func joinPath(base, p string) string {
	if base == "" || base == "/" {
		return p
	}
	joined := path.Join(base, p)
	if strings.HasSuffix(p, "/") && !strings.HasSuffix(joined, "/") {
		joined += "/"
	}
	return joined
}

func splitTokens(v string) []string {
	var out []string
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
