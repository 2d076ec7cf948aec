package http

import (
	"github.com/tavern-tools/register/internal/config"
	"github.com/tavern-tools/register/internal/logger"
	"github.com/tavern-tools/register/internal/service"
	"github.com/tavern-tools/register/internal/session"
)

// Handler is the HTTP transport layer: route handlers plus the middleware
// chain (tracing, logging, sessions, admin auth) in front of the services.
type Handler struct {
	services *service.Services
	sessions session.Store
	cfg      *config.Config

	logger *logger.Logger
}

func NewHandler(services *service.Services, sessions session.Store, cfg *config.Config, logger *logger.Logger) *Handler {
	logger.Info().Msg("http handler created")
	return &Handler{
		services: services,
		sessions: sessions,
		cfg:      cfg,
		logger:   logger,
	}
}
