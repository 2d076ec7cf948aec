package http

import (
	"encoding/json"
	"net/http"

	"github.com/tavern-tools/register/internal/logger"
	"github.com/tavern-tools/register/internal/service"
	"github.com/tavern-tools/register/internal/utils"
	"github.com/tavern-tools/register/models"
)

// writeError logs the failure and answers with the JSON error envelope.
// Internal failures get a generic message so internals never leak; 502
// keeps the sentinel text, which names the upstream step and status the
// operator needs.
func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	log := logger.FromRequest(r)

	status := statusFromError(err)

	message := err.Error()
	if status >= http.StatusInternalServerError && status != http.StatusBadGateway {
		message = http.StatusText(status)
	}

	log.Err(err).Int("status", status).Msg("request failed")
	utils.WriteJSON(w, models.APIResponse{Success: false, Message: message}, status) //nolint:errcheck
}

func (h *Handler) health(w http.ResponseWriter, r *http.Request) {
	utils.WriteJSON(w, models.APIResponse{Success: true, Message: "ok"}, http.StatusOK) //nolint:errcheck
}

// publicConfig reports the feature switches the registration page needs to
// decide which forms to show.
func (h *Handler) publicConfig(w http.ResponseWriter, r *http.Request) {
	cfg, err := h.services.Onboarding.PublicConfig(r.Context())
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	utils.WriteJSON(w, cfg, http.StatusOK) //nolint:errcheck
}

func (h *Handler) register(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := logger.FromRequest(r)
	sess := sessionFromRequest(r)

	var req struct {
		Handle      string `json:"handle"`
		DisplayName string `json:"displayName"`
		Password    string `json:"password"`
		InviteCode  string `json:"inviteCode"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		log.Err(err).Msg("Invalid JSON was passed")
		http.Error(w, "Invalid JSON was passed", http.StatusBadRequest)
		return
	}

	user, err := h.services.Onboarding.RegisterManual(ctx, sess, service.ManualRegistration{
		Handle:      req.Handle,
		DisplayName: req.DisplayName,
		Password:    req.Password,
		InviteCode:  req.InviteCode,
		OriginIP:    utils.ClientIP(r),
	})
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	h.saveSession(sess)

	utils.WriteJSON(w, user, http.StatusCreated) //nolint:errcheck
}

func (h *Handler) login(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := logger.FromRequest(r)
	sess := sessionFromRequest(r)

	var req struct {
		Handle   string `json:"handle"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		log.Err(err).Msg("Invalid JSON was passed")
		http.Error(w, "Invalid JSON was passed", http.StatusBadRequest)
		return
	}

	user, err := h.services.Onboarding.LoginManual(ctx, sess, req.Handle, req.Password)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	h.saveSession(sess)

	utils.WriteJSON(w, user, http.StatusOK) //nolint:errcheck
}

func (h *Handler) logout(w http.ResponseWriter, r *http.Request) {
	sess := sessionFromRequest(r)

	h.sessions.Delete(sess.Token)
	h.clearSessionCookie(w)

	utils.WriteJSON(w, models.APIResponse{Success: true}, http.StatusOK) //nolint:errcheck
}

func (h *Handler) userStatus(w http.ResponseWriter, r *http.Request) {
	sess := sessionFromRequest(r)

	view, err := h.services.Onboarding.Status(r.Context(), sess)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	utils.WriteJSON(w, view, http.StatusOK) //nolint:errcheck
}

func (h *Handler) availableServers(w http.ResponseWriter, r *http.Request) {
	servers, err := h.services.Onboarding.AvailableServers(r.Context())
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	utils.WriteJSON(w, servers, http.StatusOK) //nolint:errcheck
}

// selectServer binds the session's pending account to the chosen backend
// server, running the remote provisioning handshake first.
func (h *Handler) selectServer(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := logger.FromRequest(r)
	sess := sessionFromRequest(r)

	var req struct {
		ServerID int64 `json:"serverId"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		log.Err(err).Msg("Invalid JSON was passed")
		http.Error(w, "Invalid JSON was passed", http.StatusBadRequest)
		return
	}

	user, err := h.services.Onboarding.BindServer(ctx, sess, req.ServerID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	h.saveSession(sess)

	log.Info().Str("handle", user.Handle).Msg("server binding completed")

	utils.WriteJSON(w, user, http.StatusOK) //nolint:errcheck
}

// revealCredentials hands out the generated password exactly once; the
// session forgets it on the first read.
func (h *Handler) revealCredentials(w http.ResponseWriter, r *http.Request) {
	sess := sessionFromRequest(r)

	creds, err := h.services.Onboarding.RevealCredentials(sess.Token)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	response := struct {
		Handle   string `json:"handle"`
		Password string `json:"password"`
	}{creds.Handle, creds.Password}

	utils.WriteJSON(w, response, http.StatusOK) //nolint:errcheck
}
