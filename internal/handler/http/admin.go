package http

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/tavern-tools/register/internal/logger"
	"github.com/tavern-tools/register/internal/service"
	"github.com/tavern-tools/register/internal/utils"
	"github.com/tavern-tools/register/models"
)

func (h *Handler) adminLogin(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := logger.FromRequest(r)

	var req struct {
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		log.Err(err).Msg("Invalid JSON was passed")
		http.Error(w, "Invalid JSON was passed", http.StatusBadRequest)
		return
	}

	result, err := h.services.Admin.Login(ctx, utils.ClientIP(r), req.Password)
	if err != nil {
		status := statusFromError(err)
		response := struct {
			models.APIResponse
			RemainingAttempts int    `json:"remainingAttempts"`
			LockedUntil       string `json:"lockedUntil,omitempty"`
		}{
			APIResponse:       models.APIResponse{Success: false, Message: err.Error()},
			RemainingAttempts: result.RemainingAttempts,
		}
		if !result.LockUntil.IsZero() {
			response.LockedUntil = result.LockUntil.UTC().Format(time.RFC3339)
		}

		utils.WriteJSON(w, response, status) //nolint:errcheck
		return
	}

	h.setAdminCookie(w, result.Token)

	utils.WriteJSON(w, models.APIResponse{Success: true}, http.StatusOK) //nolint:errcheck
}

func (h *Handler) adminLogout(w http.ResponseWriter, r *http.Request) {
	h.clearAdminCookie(w)

	utils.WriteJSON(w, models.APIResponse{Success: true}, http.StatusOK) //nolint:errcheck
}

// adminLoginPage marks the configured login page path so the panel frontend
// can probe whether it guessed the right URL before showing the form.
func (h *Handler) adminLoginPage(w http.ResponseWriter, r *http.Request) {
	utils.WriteJSON(w, models.APIResponse{Success: true}, http.StatusOK) //nolint:errcheck
}

// adminPanel answers the obscured panel path. It only confirms the session
// is valid; the panel content itself is served as static assets elsewhere.
func (h *Handler) adminPanel(w http.ResponseWriter, r *http.Request) {
	utils.WriteJSON(w, models.APIResponse{Success: true}, http.StatusOK) //nolint:errcheck
}

func (h *Handler) adminListUsers(w http.ResponseWriter, r *http.Request) {
	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))

	users, pagination, err := h.services.Admin.ListUsers(r.Context(), page, limit)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	response := struct {
		Users      []service.UserListEntry `json:"users"`
		Pagination models.Pagination       `json:"pagination"`
	}{Users: users, Pagination: pagination}

	utils.WriteJSON(w, response, http.StatusOK) //nolint:errcheck
}

func (h *Handler) adminListServers(w http.ResponseWriter, r *http.Request) {
	servers, err := h.services.Admin.ListServers(r.Context())
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	utils.WriteJSON(w, servers, http.StatusOK) //nolint:errcheck
}

// serverPayload is the administrator create/update request body. The
// credential fields are write-only: responses never echo them.
type serverPayload struct {
	Name          string `json:"name"`
	URL           string `json:"url"`
	AdminUsername string `json:"adminUsername"`
	AdminPassword string `json:"adminPassword"`
	Description   string `json:"description"`
	Provider      string `json:"provider"`
	Maintainer    string `json:"maintainer"`
	Contact       string `json:"contact"`
	Announcement  string `json:"announcement"`
	IsActive      *bool  `json:"isActive"`
}

func (p serverPayload) toModel() models.Server {
	server := models.Server{
		Name:          p.Name,
		URL:           p.URL,
		AdminUsername: p.AdminUsername,
		AdminPassword: p.AdminPassword,
		Description:   p.Description,
		Provider:      p.Provider,
		Maintainer:    p.Maintainer,
		Contact:       p.Contact,
		Announcement:  p.Announcement,
		IsActive:      true,
	}
	if p.IsActive != nil {
		server.IsActive = *p.IsActive
	}

	return server
}

func (h *Handler) adminCreateServer(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := logger.FromRequest(r)

	var req serverPayload
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		log.Err(err).Msg("Invalid JSON was passed")
		http.Error(w, "Invalid JSON was passed", http.StatusBadRequest)
		return
	}

	created, err := h.services.Admin.CreateServer(ctx, req.toModel())
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	utils.WriteJSON(w, created, http.StatusCreated) //nolint:errcheck
}

func (h *Handler) adminUpdateServer(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := logger.FromRequest(r)

	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		http.Error(w, "invalid server id", http.StatusBadRequest)
		return
	}

	var req serverPayload
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		log.Err(err).Msg("Invalid JSON was passed")
		http.Error(w, "Invalid JSON was passed", http.StatusBadRequest)
		return
	}

	server := req.toModel()
	server.ID = id

	updated, err := h.services.Admin.UpdateServer(ctx, server)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	utils.WriteJSON(w, updated, http.StatusOK) //nolint:errcheck
}

func (h *Handler) adminDeleteServer(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		http.Error(w, "invalid server id", http.StatusBadRequest)
		return
	}

	if err := h.services.Admin.DeleteServer(r.Context(), id); err != nil {
		h.writeError(w, r, err)
		return
	}

	utils.WriteJSON(w, models.APIResponse{Success: true}, http.StatusOK) //nolint:errcheck
}

// adminTestServer verifies the stored administrator credentials against the
// live target. Failures are reported in the envelope, not as HTTP errors,
// so the panel can show the message inline.
func (h *Handler) adminTestServer(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		http.Error(w, "invalid server id", http.StatusBadRequest)
		return
	}

	if err := h.services.Admin.TestServer(r.Context(), id); err != nil {
		logger.FromRequest(r).Warn().Err(err).Int64("server_id", id).Msg("server connection test failed")
		utils.WriteJSON(w, models.APIResponse{Success: false, Message: err.Error()}, http.StatusOK) //nolint:errcheck
		return
	}

	utils.WriteJSON(w, models.APIResponse{Success: true, Message: "connection ok"}, http.StatusOK) //nolint:errcheck
}

func (h *Handler) adminListInviteCodes(w http.ResponseWriter, r *http.Request) {
	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))

	codes, pagination, err := h.services.Invites.List(r.Context(), page, limit)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	response := struct {
		Codes      []models.InviteCode `json:"codes"`
		Pagination models.Pagination   `json:"pagination"`
	}{Codes: codes, Pagination: pagination}

	utils.WriteJSON(w, response, http.StatusOK) //nolint:errcheck
}

func (h *Handler) adminCreateInviteCodes(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := logger.FromRequest(r)

	var req struct {
		Count         int `json:"count"`
		MaxUses       int `json:"maxUses"`
		ExpiresInDays int `json:"expiresInDays"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		log.Err(err).Msg("Invalid JSON was passed")
		http.Error(w, "Invalid JSON was passed", http.StatusBadRequest)
		return
	}
	if req.Count == 0 {
		req.Count = 1
	}
	if req.MaxUses == 0 {
		req.MaxUses = 1
	}

	codes, err := h.services.Invites.CreateBatch(ctx, req.Count, req.MaxUses, req.ExpiresInDays, "admin")
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	utils.WriteJSON(w, codes, http.StatusCreated) //nolint:errcheck
}

func (h *Handler) adminDeleteInviteCode(w http.ResponseWriter, r *http.Request) {
	code := chi.URLParam(r, "code")

	if err := h.services.Invites.Delete(r.Context(), code); err != nil {
		h.writeError(w, r, err)
		return
	}

	utils.WriteJSON(w, models.APIResponse{Success: true}, http.StatusOK) //nolint:errcheck
}

func (h *Handler) adminToggleInviteCode(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := logger.FromRequest(r)

	code := chi.URLParam(r, "code")

	var req struct {
		IsActive bool `json:"isActive"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		log.Err(err).Msg("Invalid JSON was passed")
		http.Error(w, "Invalid JSON was passed", http.StatusBadRequest)
		return
	}

	if err := h.services.Invites.SetActive(ctx, code, req.IsActive); err != nil {
		h.writeError(w, r, err)
		return
	}

	utils.WriteJSON(w, models.APIResponse{Success: true}, http.StatusOK) //nolint:errcheck
}

func (h *Handler) adminStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.services.Admin.Stats(r.Context())
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	utils.WriteJSON(w, stats, http.StatusOK) //nolint:errcheck
}

func (h *Handler) adminGetSettings(w http.ResponseWriter, r *http.Request) {
	settings, err := h.services.Admin.GetSettings(r.Context())
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	utils.WriteJSON(w, settings, http.StatusOK) //nolint:errcheck
}

func (h *Handler) adminUpdateSettings(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := logger.FromRequest(r)

	var req models.Settings
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		log.Err(err).Msg("Invalid JSON was passed")
		http.Error(w, "Invalid JSON was passed", http.StatusBadRequest)
		return
	}

	updated, err := h.services.Admin.UpdateSettings(ctx, req)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	utils.WriteJSON(w, updated, http.StatusOK) //nolint:errcheck
}
