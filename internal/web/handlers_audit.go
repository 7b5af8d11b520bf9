package web

import (
	"net/http"
	"strconv"

	"github.com/formforge/formforge/internal/audit"
)

// handleAuditLog returns recent submission audit rows, newest first. The
// endpoint 404s when no audit database is configured.
func (s *Server) handleAuditLog(w http.ResponseWriter, r *http.Request) {
	if !s.audit.Enabled() {
		http.NotFound(w, r)
		return
	}

	limit := 50
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			limit = n
		}
	}

	records, err := s.audit.Recent(r.Context(), limit)
	if err != nil {
		s.respondError(w, r, err, http.StatusInternalServerError)
		return
	}
	if records == nil {
		records = []audit.Record{}
	}

	writeJSON(w, struct {
		Entries []audit.Record `json:"entries"`
		Count   int            `json:"count"`
	}{Entries: records, Count: len(records)})
}
