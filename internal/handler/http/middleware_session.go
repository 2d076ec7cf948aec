package http

import (
	"context"
	"net/http"

	"github.com/tavern-tools/register/internal/session"
)

const sessionCookieName = "tavern_session"

type sessionCtxKey struct{}

// withSession attaches the caller's onboarding session to the request
// context, creating a fresh anonymous one when the cookie is missing,
// unknown or expired. Handlers mutate the session through the context
// pointer and persist it with saveSession.
func (h *Handler) withSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var sess session.Session

		cookie, err := r.Cookie(sessionCookieName)
		if err == nil {
			if found, ok := h.sessions.Get(cookie.Value); ok {
				sess = found
			}
		}

		if sess.Token == "" {
			sess = h.sessions.Create()
			h.setSessionCookie(w, sess.Token)
		}

		ctx := context.WithValue(r.Context(), sessionCtxKey{}, &sess)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// sessionFromRequest returns the session attached by withSession. The
// middleware guarantees presence on every route under it.
func sessionFromRequest(r *http.Request) *session.Session {
	sess, _ := r.Context().Value(sessionCtxKey{}).(*session.Session)
	return sess
}

// saveSession writes the mutated session back to the store, refreshing its
// idle deadline.
func (h *Handler) saveSession(sess *session.Session) {
	h.sessions.Save(*sess)
}

func (h *Handler) setSessionCookie(w http.ResponseWriter, token string) {
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookieName,
		Value:    token,
		Path:     "/",
		MaxAge:   int(h.cfg.Session.TTL.Seconds()),
		HttpOnly: true,
		Secure:   h.cfg.Session.CookieSecure,
		SameSite: http.SameSiteLaxMode,
	})
}

func (h *Handler) clearSessionCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.cfg.Session.CookieSecure,
		SameSite: http.SameSiteLaxMode,
	})
}
