// Package server runs the HTTP server: the caching worker host in front of
// the origin, which serves the API and the UI shell.
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/civicmatch/civic-match/internal/api"
	"github.com/civicmatch/civic-match/internal/config"
	"github.com/civicmatch/civic-match/internal/logger"
	"github.com/civicmatch/civic-match/internal/server/handler"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"
)

const (
	// defaultShutdownTimeout is used when server.shutdown_timeout is unset
	defaultShutdownTimeout = 5 * time.Second
)

// Server is the HTTP server of the application.
type Server struct {
	config  *config.ServerConfig
	front   *FrontHandler
	handler *handler.Handler
}

// NewServer creates a new server serving front through the middleware stack.
func NewServer(cfg *config.ServerConfig, front *FrontHandler, h *handler.Handler) *Server {
	return &Server{
		config:  cfg,
		front:   front,
		handler: h,
	}
}

// Handler returns the complete handler, accepting HTTP/2 without TLS.
func (s *Server) Handler() http.Handler {
	return h2c.NewHandler(s.handler.CreateHTTPHandler(s.front), &http2.Server{})
}

// Start serves until ctx is canceled, then shuts down gracefully.
func (s *Server) Start(ctx context.Context) error {
	return s.serveHTTP(ctx, s.Handler())
}

func (s *Server) serveHTTP(ctx context.Context, handler http.Handler) error {
	addr := fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)
	server := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: s.config.ReadHeaderTimeout,
	}

	// Channel for server errors
	errChan := make(chan error, 1)

	go func() {
		logger.Info("Starting server",
			zap.String("name", s.config.Name),
			zap.String("address", addr),
		)

		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errChan <- fmt.Errorf("server error: %w", err)
		}
	}()

	select {
	case <-ctx.Done():
		timeout := s.config.ShutdownTimeout
		if timeout <= 0 {
			timeout = defaultShutdownTimeout
		}
		logger.Info("Shutting down server", zap.Duration("timeout", timeout))

		shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server shutdown error: %w", err)
		}
		return nil

	case err := <-errChan:
		return err
	}
}

// newOriginMux routes /api to the API router and everything else to the UI
// shell. It is what the caching worker calls "the network".
func newOriginMux(apiHandler, webHandler http.Handler) http.Handler {
	mux := http.NewServeMux()
	mux.Handle(api.BasePath+"/", apiHandler)
	mux.Handle(api.BasePath, apiHandler)
	mux.Handle("/", webHandler)
	return mux
}

// Module provides the server and the origin handler
var Module = fx.Module("server",
	fx.Provide(
		fx.Annotate(
			newOriginMux,
			fx.ParamTags(`name:"api"`, `name:"web"`),
			fx.ResultTags(`name:"origin"`),
		),
		NewFrontHandler,
		handler.NewHandler,
		NewServer,
	),
)
