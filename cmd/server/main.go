package main

import (
	"context"
	"fmt"

	"github.com/tavern-tools/register/internal/config"
	handlers "github.com/tavern-tools/register/internal/handler/http"
	"github.com/tavern-tools/register/internal/limiter"
	"github.com/tavern-tools/register/internal/logger"
	"github.com/tavern-tools/register/internal/oauth"
	"github.com/tavern-tools/register/internal/provision"
	"github.com/tavern-tools/register/internal/server"
	"github.com/tavern-tools/register/internal/service"
	"github.com/tavern-tools/register/internal/session"
	"github.com/tavern-tools/register/internal/store"
	"github.com/tavern-tools/register/internal/workers"
)

var (
	buildVersion string
	buildDate    string
	buildCommit  string
)

func main() {
	printBuildInfo()

	log := logger.NewLogger("register-server")

	cfg, err := config.GetConfig()
	if err != nil {
		log.Fatal().Err(err).Msg("error getting configs")
	}

	if cfg.Admin.PanelPassword == "admin123" {
		log.Warn().Msg("default administrator password in use, change ADMIN_PANEL_PASSWORD before exposing the service")
	}

	storages, err := store.NewStorages(context.Background(), cfg.Storage, log)
	if err != nil {
		log.Fatal().Err(err).Msg("error creating storages")
	}

	sessions := session.NewMemoryStore(cfg.Session.TTL)
	attempts := limiter.New(cfg.Admin.MaxLoginAttempts, cfg.Admin.LockoutTime)

	services := service.NewServices(service.Deps{
		Config:      &cfg,
		Storages:    storages,
		Sessions:    sessions,
		Attempts:    attempts,
		Federation:  oauth.NewClient(cfg.OAuth),
		Provisioner: provision.NewClient(),
		Log:         log,
	})

	background := workers.NewWorkers(sessions, attempts, cfg.Workers.CleanupInterval, log)
	background.Run()

	handler := handlers.NewHandler(services, sessions, &cfg, log)

	srv := server.NewServer(handler.Init(), cfg.Server, log)
	srv.RunServer()
}

func printBuildInfo() {
	if buildVersion == "" {
		buildVersion = "N/A"
	}

	if buildDate == "" {
		buildDate = "N/A"
	}

	if buildCommit == "" {
		buildCommit = "N/A"
	}

	fmt.Printf("Build version: %s\n", buildVersion)
	fmt.Printf("Build date: %s\n", buildDate)
	fmt.Printf("Build commit: %s\n", buildCommit)
}
