package server

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"github.com/civicmatch/civic-match/internal/config"
	"github.com/civicmatch/civic-match/internal/logger"
	"github.com/civicmatch/civic-match/internal/models"
	"github.com/civicmatch/civic-match/internal/requester"
	"github.com/civicmatch/civic-match/internal/utils"
	"github.com/civicmatch/civic-match/internal/worker"
	"go.uber.org/zap"
)

// maxBodyBytes bounds request bodies buffered for the network.
const maxBodyBytes = 10 << 20

// FrontHandler hosts the caching worker: every request goes to the active
// controller, and to the network when there is none or it passes.
type FrontHandler struct {
	registration *worker.Registration
	network      requester.Fetcher
	origin       *url.URL
	retryInstall bool
}

// NewFrontHandler creates the handler that sits in front of the origin.
func NewFrontHandler(cfg *config.WorkerConfig, registration *worker.Registration, network requester.Fetcher) (*FrontHandler, error) {
	origin, err := url.Parse(cfg.Origin)
	if err != nil || origin.Scheme == "" || origin.Host == "" {
		return nil, fmt.Errorf("invalid worker origin %q", cfg.Origin)
	}
	return &FrontHandler{
		registration: registration,
		network:      network,
		origin:       origin,
		retryInstall: cfg.Enabled,
	}, nil
}

func (f *FrontHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			utils.WriteError(w, http.StatusRequestEntityTooLarge, "PAYLOAD_TOO_LARGE", "request body too large")
			return
		}
		utils.WriteError(w, http.StatusBadRequest, "BAD_REQUEST", "failed to read request body")
		return
	}

	req := models.NewRequest(r, f.origin, body)
	// origin-form requests are addressed to this server, which is the origin
	if r.URL.Host == "" {
		req.URL.Scheme = f.origin.Scheme
		req.URL.Host = f.origin.Host
	}

	resp, err := f.fetch(r.Context(), req)
	if err != nil {
		if r.Context().Err() != nil {
			return
		}
		logger.FromContext(r.Context()).Warn("Network request failed",
			zap.String("method", req.Method),
			zap.String("url", req.URL.String()),
			zap.Error(err),
		)
		utils.WriteError(w, http.StatusBadGateway, "NETWORK_ERROR", "the network request failed")
		return
	}
	writeResponse(w, r, resp)
}

func (f *FrontHandler) fetch(ctx context.Context, req *models.Request) (*models.Response, error) {
	controller := f.registration.Controller()
	if controller == nil {
		if f.retryInstall && req.IsNavigation() && f.registration.RetryOnLoad(ctx) {
			logger.FromContext(ctx).Debug("Retrying caching worker install", zap.String("url", req.URL.String()))
		}
		return f.network.Fetch(ctx, req)
	}

	resp, err := controller.OnFetch(ctx, req)
	if errors.Is(err, worker.ErrNotIntercepted) {
		return f.network.Fetch(ctx, req)
	}
	return resp, err
}

func writeResponse(w http.ResponseWriter, r *http.Request, resp *models.Response) {
	h := w.Header()
	for k, vv := range resp.Header {
		h[k] = append([]string(nil), vv...)
	}
	h.Del("Content-Length")
	w.WriteHeader(resp.StatusCode)
	if r.Method == http.MethodHead {
		return
	}
	_, _ = w.Write(resp.Body)
}
