// Package service holds the business logic between the HTTP handlers and
// the persistence gateway: the onboarding orchestrator, the invite-code
// ledger and the administrator panel operations.
package service

import (
	"github.com/tavern-tools/register/internal/config"
	"github.com/tavern-tools/register/internal/limiter"
	"github.com/tavern-tools/register/internal/logger"
	"github.com/tavern-tools/register/internal/session"
	"github.com/tavern-tools/register/internal/store"
	"github.com/tavern-tools/register/models"
)

// Services bundles the service layer for injection into the handlers.
type Services struct {
	Onboarding *OnboardingService
	Invites    *InviteService
	Admin      *AdminService
}

// Deps carries everything the service layer is built from.
type Deps struct {
	Config      *config.Config
	Storages    *store.Storages
	Sessions    session.Store
	Attempts    *limiter.Limiter
	Federation  Federation
	Provisioner Provisioner
	Log         *logger.Logger
}

// NewServices wires the full service layer.
func NewServices(deps Deps) *Services {
	invites := NewInviteService(deps.Storages.InviteCodes, deps.Log)

	onboarding := NewOnboardingService(OnboardingDeps{
		Users:         deps.Storages.Users,
		Servers:       deps.Storages.Servers,
		Settings:      deps.Storages.Settings,
		Invites:       invites,
		Sessions:      deps.Sessions,
		Federation:    deps.Federation,
		Provisioner:   deps.Provisioner,
		RequireInvite: deps.Config.RequireInviteCode,
		BaseURL:       deps.Config.BaseRegisterURL,
		SeedPolicy: models.GuildPolicy{
			RequiredGuildID: deps.Config.OAuth.DiscordRequiredGuildID,
			MinJoinDays:     deps.Config.OAuth.DiscordMinJoinDays,
		},
		Log: deps.Log,
	})

	admin := NewAdminService(AdminDeps{
		Users:       deps.Storages.Users,
		Servers:     deps.Storages.Servers,
		Settings:    deps.Storages.Settings,
		Invites:     invites,
		Provisioner: deps.Provisioner,
		Attempts:    deps.Attempts,
		Config:      deps.Config.Admin,
		Log:         deps.Log,
	})

	return &Services{
		Onboarding: onboarding,
		Invites:    invites,
		Admin:      admin,
	}
}
