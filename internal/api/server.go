package api

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"time"

	"golang.org/x/net/netutil"

	"github.com/yegors/flightsurety/internal/config"
	"github.com/yegors/flightsurety/pkg/logger"
)

// Server serves the read API and the status request relay
type Server struct {
	httpServer      *http.Server
	addr            string
	maxConnections  int
	shutdownTimeout time.Duration
	logger          *logger.Logger
}

// NewServer creates a server for router using the [server] settings
func NewServer(router *Router, cfg config.ServerConfig, log *logger.Logger) *Server {
	return &Server{
		httpServer: &http.Server{
			Handler:      router.Routes(),
			ReadTimeout:  time.Duration(cfg.ReadTimeoutSeconds) * time.Second,
			WriteTimeout: time.Duration(cfg.WriteTimeoutSeconds) * time.Second,
		},
		addr:            net.JoinHostPort(cfg.Host, strconv.Itoa(cfg.Port)),
		maxConnections:  cfg.MaxConnections,
		shutdownTimeout: time.Duration(cfg.ShutdownTimeoutSeconds) * time.Second,
		logger:          log.Named("api-server"),
	}
}

// ListenAndServe listens on the configured address and serves until ctx ends
func (s *Server) ListenAndServe(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.addr, err)
	}
	return s.Serve(ctx, ln)
}

// Serve accepts connections on ln until ctx ends, then shuts down gracefully.
// Concurrent connections are capped at max_connections when it is positive.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	if s.maxConnections > 0 {
		ln = netutil.LimitListener(ln, s.maxConnections)
	}

	serveErr := make(chan error, 1)
	s.logger.Info("API server listening",
		logger.String("addr", ln.Addr().String()),
		logger.Int("max_connections", s.maxConnections))
	go func() {
		serveErr <- s.httpServer.Serve(ln)
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), s.shutdownTimeout)
		defer cancel()
		if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("failed to shut down API server: %w", err)
		}
		s.logger.Info("API server stopped")
		return nil
	case err := <-serveErr:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("failed to serve API: %w", err)
	}
}
