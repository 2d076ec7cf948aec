package http

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/tavern-tools/register/internal/logger"
	"github.com/tavern-tools/register/internal/service"
	"github.com/tavern-tools/register/internal/utils"
	"github.com/tavern-tools/register/models"
)

func (h *Handler) oauthProviders(w http.ResponseWriter, r *http.Request) {
	cfg, err := h.services.Onboarding.PublicConfig(r.Context())
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	utils.WriteJSON(w, cfg.OAuthProviders, http.StatusOK) //nolint:errcheck
}

// oauthAuthorize starts the handshake and redirects the browser to the
// provider's consent page.
func (h *Handler) oauthAuthorize(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	sess := sessionFromRequest(r)

	provider := chi.URLParam(r, "provider")

	redirectURL, err := h.services.Onboarding.BeginOAuth(ctx, sess, provider, utils.RequestBaseURL(r))
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	h.saveSession(sess)

	http.Redirect(w, r, redirectURL, http.StatusFound)
}

// oauthCallback finishes the handshake. The state parameter is compared
// against the session before anything goes upstream.
func (h *Handler) oauthCallback(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := logger.FromRequest(r)
	sess := sessionFromRequest(r)

	provider := chi.URLParam(r, "provider")
	code := r.URL.Query().Get("code")
	state := r.URL.Query().Get("state")

	if upstreamErr := r.URL.Query().Get("error"); upstreamErr != "" {
		log.Warn().Str("provider", provider).Str("oauth-error", upstreamErr).Msg("provider denied authorization")
		utils.WriteJSON(w, models.APIResponse{Success: false, Message: "authorization denied by provider"}, http.StatusForbidden) //nolint:errcheck
		return
	}

	result, err := h.services.Onboarding.CompleteOAuth(ctx, sess, provider, code, state, utils.ClientIP(r))
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	h.saveSession(sess)

	response := struct {
		Outcome service.Outcome `json:"outcome"`
		User    *models.User    `json:"user,omitempty"`
	}{Outcome: result.Outcome}
	if result.Outcome != service.OutcomeInviteRequired {
		response.User = &result.User
	}

	utils.WriteJSON(w, response, http.StatusOK) //nolint:errcheck
}

// oauthInvite redeems an invite code for a federated identity parked on the
// session and creates the account.
func (h *Handler) oauthInvite(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := logger.FromRequest(r)
	sess := sessionFromRequest(r)

	var req struct {
		InviteCode string `json:"inviteCode"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		log.Err(err).Msg("Invalid JSON was passed")
		http.Error(w, "Invalid JSON was passed", http.StatusBadRequest)
		return
	}

	user, err := h.services.Onboarding.SubmitInvite(ctx, sess, req.InviteCode, utils.ClientIP(r))
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	h.saveSession(sess)

	utils.WriteJSON(w, user, http.StatusCreated) //nolint:errcheck
}
