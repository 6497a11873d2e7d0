package requester

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/civicmatch/civic-match/internal/config"
	"github.com/civicmatch/civic-match/internal/logger"
	"github.com/civicmatch/civic-match/internal/models"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// HTTPRequester fetches worker requests from the network: the origin (remote
// upstream or in-process handler) and allowed passthrough hosts.
type HTTPRequester struct {
	client  *http.Client
	builder *HTTPRequestBuilder
}

type HTTPRequesterParams struct {
	fx.In

	NetworkConfig *config.NetworkConfig
	WorkerConfig  *config.WorkerConfig
	// Origin serves same-origin requests when no upstream is configured.
	Origin http.Handler `name:"origin" optional:"true"`
}

// NewHTTPRequester creates a new HTTPRequester
func NewHTTPRequester(params HTTPRequesterParams) (*HTTPRequester, error) {
	origin, err := url.Parse(params.WorkerConfig.Origin)
	if err != nil {
		return nil, fmt.Errorf("invalid origin: %w", err)
	}

	var upstream *url.URL
	if params.NetworkConfig.Upstream != "" {
		upstream, err = url.Parse(params.NetworkConfig.Upstream)
		if err != nil {
			return nil, fmt.Errorf("invalid upstream: %w", err)
		}
	}

	passthrough := make(map[string]bool, len(params.NetworkConfig.PassthroughHosts))
	for _, h := range params.NetworkConfig.PassthroughHosts {
		passthrough[strings.ToLower(h)] = true
	}

	timeout := params.NetworkConfig.Timeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}

	transport := http.DefaultTransport
	if upstream == nil && params.Origin != nil {
		transport = &originTransport{
			origin:   origin,
			handler:  params.Origin,
			fallback: http.DefaultTransport,
		}
	}

	return &HTTPRequester{
		client: &http.Client{
			Timeout:   timeout,
			Transport: transport,
			// redirects are returned to the client untouched
			CheckRedirect: func(*http.Request, []*http.Request) error {
				return http.ErrUseLastResponse
			},
		},
		builder: &HTTPRequestBuilder{
			origin:      origin,
			upstream:    upstream,
			passthrough: passthrough,
			headers:     params.NetworkConfig.Headers,
			authMgr:     NewHTTPAuthManager(config.AuthTypeNone, nil),
		},
	}, nil
}

// SetTimeout sets the timeout for the HTTP client
func (r *HTTPRequester) SetTimeout(timeout time.Duration) {
	r.client.Timeout = timeout
}

// Fetch performs req and buffers the response.
func (r *HTTPRequester) Fetch(ctx context.Context, req *models.Request) (*models.Response, error) {
	httpReq, err := r.builder.BuildRequest(ctx, req)
	if err != nil {
		return nil, err
	}
	logger.Debug("network fetch",
		zap.String("method", httpReq.Method),
		zap.String("url", httpReq.URL.String()),
	)

	resp, err := r.execute(httpReq)
	if err != nil {
		logger.Debug("network fetch failed", zap.String("url", req.URL.String()), zap.Error(err))
		return nil, err
	}
	return resp, nil
}

func (r *HTTPRequester) execute(httpReq *http.Request) (*models.Response, error) {
	resp, err := r.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	bodyBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	header := resp.Header.Clone()
	removeHopHeaders(header)
	header.Del("Content-Length")

	return &models.Response{
		StatusCode: resp.StatusCode,
		Header:     header,
		Body:       bodyBytes,
	}, nil
}
