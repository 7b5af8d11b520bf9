package web

import (
	"net/http"
)

// handleIndex renders the page shell with the session's current state.
func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	sess := session(r)
	locale := s.locale(r)

	page := PageState{
		Title:      s.bundle.T(locale, "app.title"),
		Locale:     locale,
		Locales:    s.bundle.Locales(),
		Form:       s.formState(sess),
		Files:      filesState(sess),
		Configured: s.client.Configured(),
	}
	if !page.Configured {
		page.ConfigWarning = s.bundle.T(locale, "errors.configMissing")
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	pageShell(page).Render(r.Context(), w)
}

// handleHealthz reports liveness.
func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, struct {
		Status   string `json:"status"`
		Sessions int    `json:"sessions"`
	}{Status: "ok", Sessions: s.store.Len()})
}
