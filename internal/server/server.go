// Package server owns the process lifecycle: it runs the HTTP transport and
// shuts it down gracefully on SIGTERM, SIGINT or SIGQUIT.
package server

import (
	"context"
	"net/http"
	"os/signal"
	"syscall"

	"github.com/tavern-tools/register/internal/config"
	"github.com/tavern-tools/register/internal/logger"
)

type server struct {
	httpServer *httpServer
	logger     *logger.Logger
}

// NewServer builds the HTTP server around the given handler mux.
func NewServer(mux http.Handler, cfg config.Server, logger *logger.Logger) Server {
	logger.Info().Str("address", cfg.Address).Msg("creating new server...")

	return &server{
		httpServer: newHTTPServer(mux, cfg, logger),
		logger:     logger,
	}
}

func (s *server) RunServer() {
	if err := s.run(); err != nil {
		s.logger.Err(err).Msg("error running server")
	}
}

func (s *server) Shutdown() {
	s.httpServer.Shutdown()
}

func (s *server) run() error {
	idleConnectionsClosed := make(chan struct{})
	ctx, stop := signal.NotifyContext(
		context.Background(),
		syscall.SIGTERM,
		syscall.SIGINT,
		syscall.SIGQUIT,
	)
	defer stop()

	// listen for stop signals
	go func() {
		<-ctx.Done()

		s.Shutdown()

		close(idleConnectionsClosed)
	}()

	s.logger.Info().Msg("launching HTTP server")
	go s.httpServer.RunServer()

	<-idleConnectionsClosed
	s.logger.Info().Msg("server shut down gracefully")

	return nil
}
