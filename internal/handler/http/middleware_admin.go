package http

import (
	"net/http"

	"github.com/tavern-tools/register/internal/logger"
)

const adminCookieName = "admin_token"

// adminAuth guards the administrator API. The signed session token issued
// by the panel login travels in an HttpOnly cookie; anything missing,
// expired or tampered with is rejected with 401.
func (h *Handler) adminAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		log := logger.FromRequest(r)

		cookie, err := r.Cookie(adminCookieName)
		if err != nil {
			log.Warn().Str("uri", r.RequestURI).Msg("administrator request without session token")
			http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
			return
		}

		if err := h.services.Admin.VerifyToken(cookie.Value); err != nil {
			log.Err(err).Msg("administrator session token rejected")
			http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
			return
		}

		next.ServeHTTP(w, r)
	})
}

func (h *Handler) setAdminCookie(w http.ResponseWriter, token string) {
	http.SetCookie(w, &http.Cookie{
		Name:     adminCookieName,
		Value:    token,
		Path:     "/",
		MaxAge:   int(h.services.Admin.SessionDuration().Seconds()),
		HttpOnly: true,
		Secure:   h.cfg.Session.CookieSecure,
		SameSite: http.SameSiteStrictMode,
	})
}

func (h *Handler) clearAdminCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     adminCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.cfg.Session.CookieSecure,
		SameSite: http.SameSiteStrictMode,
	})
}
