package http

import (
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

func (h *Handler) Init() *chi.Mux {
	router := chi.NewRouter()
	router.Use(middleware.Recoverer)
	router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type", "X-Trace-ID"},
		AllowCredentials: true,
		MaxAge:           300,
	}))
	router.Use(h.withTraceID)
	router.Use(h.withLogging)

	router.Get("/health", h.health)

	// onboarding routes, all running under a session cookie
	router.Group(func(r chi.Router) {
		r.Use(h.withSession)

		r.Get("/api/config", h.publicConfig)
		r.Post("/api/register", h.register)
		r.Post("/api/login", h.login)
		r.Post("/api/logout", h.logout)
		r.Get("/api/user/status", h.userStatus)
		r.Get("/api/user/credentials", h.revealCredentials)
		r.Post("/api/user/select-server", h.selectServer)
		r.Get("/api/servers/available", h.availableServers)

		r.Get("/oauth/providers", h.oauthProviders)
		r.Get("/oauth/authorize/{provider}", h.oauthAuthorize)
		r.Get("/oauth/callback/{provider}", h.oauthCallback)
		r.Post("/oauth/invite", h.oauthInvite)
	})

	// administrator login is public but limiter-guarded inside the service;
	// the page path is configurable so the panel can hide behind an
	// unguessable URL
	router.Get(h.cfg.Admin.LoginPath, h.adminLoginPage)
	router.Post("/api/admin/login", h.adminLogin)
	router.Post("/api/admin/logout", h.adminLogout)

	// administrator API behind the signed session token
	router.Group(func(r chi.Router) {
		r.Use(h.adminAuth)

		r.Get(h.cfg.Admin.PanelPath, h.adminPanel)

		r.Get("/api/admin/users", h.adminListUsers)

		r.Get("/api/admin/servers", h.adminListServers)
		r.Post("/api/admin/servers", h.adminCreateServer)
		r.Put("/api/admin/servers/{id}", h.adminUpdateServer)
		r.Delete("/api/admin/servers/{id}", h.adminDeleteServer)
		r.Post("/api/admin/servers/{id}/test", h.adminTestServer)

		r.Get("/api/admin/invite-codes", h.adminListInviteCodes)
		r.Post("/api/admin/invite-codes", h.adminCreateInviteCodes)
		r.Delete("/api/admin/invite-codes/{code}", h.adminDeleteInviteCode)
		r.Patch("/api/admin/invite-codes/{code}", h.adminToggleInviteCode)

		r.Get("/api/admin/stats", h.adminStats)
		r.Get("/api/admin/settings", h.adminGetSettings)
		r.Put("/api/admin/settings", h.adminUpdateSettings)
	})

	return router
}
