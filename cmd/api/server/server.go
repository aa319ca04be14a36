package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"

	ginhandler "usuarios-service/internal/adapter/gin/handler"
	"usuarios-service/internal/adapter/gin/middleware"
	ginrouter "usuarios-service/internal/adapter/gin/router"
	"usuarios-service/internal/config"

	"go.uber.org/zap"
)

// Server struct holds all server dependencies
type Server struct {
	Config *config.Config
	Logger *zap.Logger
	HTTP   *http.Server
}

// New creates a new server instance
func New(cfg *config.Config, l *zap.Logger, handler *ginhandler.UserHandler, rateLimiter *middleware.RateLimiter) *Server {
	opts := ginrouter.Options{
		ServiceName:  cfg.Logger.ServiceName,
		MaxBodyBytes: cfg.App.MaxBodyBytes,
		RateLimiter:  rateLimiter,
	}

	return &Server{
		Config: cfg,
		Logger: l,
		HTTP:   SetupGinServer(handler, opts, cfg.App.Environment, httpAddress(cfg), l),
	}
}

// Start listens on the configured port and serves until Shutdown.
// A server closed by Shutdown returns nil.
func (s *Server) Start() error {
	lc := net.ListenConfig{}
	lis, err := lc.Listen(context.Background(), "tcp", s.HTTP.Addr)
	if err != nil {
		return fmt.Errorf("failed to listen: %w", err)
	}
	return s.Serve(lis)
}

// Serve accepts connections on lis.
func (s *Server) Serve(lis net.Listener) error {
	s.Logger.Info("HTTP server running", zap.String("address", lis.Addr().String()))

	if err := s.HTTP.Serve(lis); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("failed to serve: %w", err)
	}
	return nil
}

// Shutdown stops accepting connections and waits for in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	s.Logger.Info("shutting down HTTP server...")
	return s.HTTP.Shutdown(ctx)
}

// httpAddress returns the HTTP server address
func httpAddress(cfg *config.Config) string {
	return ":" + cfg.App.HTTPPort
}
