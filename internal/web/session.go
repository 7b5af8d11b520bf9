package web

// session.go binds a browser to its server-held form state. The session ID
// travels in an HttpOnly cookie; the state itself never leaves the server.

import (
	"context"
	"net/http"
	"strings"

	"github.com/formforge/formforge/internal/form"
	"github.com/formforge/formforge/internal/i18n"
)

// sessionCookie is the name of the session ID cookie.
const sessionCookie = "formforge_session"

type ctxKey int

const sessionKey ctxKey = iota

// withSession resolves the request's form session, creating one (and setting
// the cookie) when the browser presents no ID or a stale one.
func (s *Server) withSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var id string
		if c, err := r.Cookie(sessionCookie); err == nil {
			id = c.Value
		}

		sess, created := s.store.GetOrCreate(id)
		if created {
			http.SetCookie(w, &http.Cookie{
				Name:     sessionCookie,
				Value:    sess.ID,
				Path:     "/",
				HttpOnly: true,
				SameSite: http.SameSiteLaxMode,
			})
		}

		ctx := context.WithValue(r.Context(), sessionKey, sess)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// session returns the form session attached by withSession.
func session(r *http.Request) *form.Session {
	sess, _ := r.Context().Value(sessionKey).(*form.Session)
	return sess
}

// locale picks the display locale for a request: an explicit locale form or
// query value wins, then the Accept-Language header, then the default.
func (s *Server) locale(r *http.Request) string {
	if v := r.FormValue("locale"); v != "" && s.bundle.Supported(v) {
		return v
	}
	if v := r.URL.Query().Get("locale"); v != "" && s.bundle.Supported(v) {
		return v
	}

	accept := r.Header.Get("Accept-Language")
	for _, part := range strings.Split(accept, ",") {
		tag := strings.TrimSpace(strings.SplitN(part, ";", 2)[0])
		if i := strings.IndexByte(tag, '-'); i > 0 {
			tag = tag[:i]
		}
		if tag != "" && s.bundle.Supported(tag) {
			return tag
		}
	}

	return i18n.DefaultLocale
}
