package web

// errors.go provides unified error response handling for the web layer.
//
// Handlers call respondError with the technical error; the error is mapped
// to a localized user message, logged with the request ID for correlation,
// and rendered as an HTMX fragment, JSON, or plain HTML depending on the
// request type.

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5/middleware"

	"github.com/formforge/formforge/internal/form"
	"github.com/formforge/formforge/internal/inference"
	"github.com/formforge/formforge/internal/logging"
	"github.com/formforge/formforge/internal/render"
)

// ErrorResponse represents the JSON structure for API error responses.
type ErrorResponse struct {
	Error   string `json:"error"`
	Code    string `json:"code"`
	TraceID string `json:"trace_id,omitempty"`
}

// userMessage is a localized, client-safe description of an error.
type userMessage struct {
	Message string
	Code    string
	TraceID string
}

// mapError resolves an error to a user message in the given locale.
// Unrecognized errors collapse to a generic failure message so internals
// never leak to the client.
func (s *Server) mapError(err error, locale string) userMessage {
	t := func(key string) string { return s.bundle.T(locale, key) }

	switch {
	case errors.Is(err, form.ErrSubmissionInFlight):
		return userMessage{Message: t("status.busy"), Code: "SUBMISSION_IN_FLIGHT"}
	case errors.Is(err, form.ErrSizeOverLimit):
		return userMessage{Message: t("errors.sizeExceeded"), Code: "SIZE_OVER_LIMIT"}
	case errors.Is(err, inference.ErrNoEndpoint):
		return userMessage{Message: t("errors.configMissing"), Code: "NOT_CONFIGURED"}
	}

	var appErr *inference.AppError
	if errors.As(err, &appErr) {
		msg := appErr.Message
		if msg == "" {
			msg = t("results.error")
		}
		return userMessage{Message: msg, Code: "APP_ERROR", TraceID: appErr.TraceID}
	}

	return userMessage{Message: t("results.error"), Code: "INTERNAL"}
}

// respondError logs the technical error and writes a user-friendly response
// in the format the client asked for.
func (s *Server) respondError(w http.ResponseWriter, r *http.Request, err error, statusCode int) {
	msg := s.mapError(err, s.locale(r))

	logging.FromContext(r.Context()).Error("request error",
		"path", r.URL.Path,
		"method", r.Method,
		"status", statusCode,
		"error", err.Error(),
		"code", msg.Code,
		"request_id", middleware.GetReqID(r.Context()),
	)

	if isHTMX(r) {
		s.renderErrorPartial(w, r, msg, statusCode)
	} else if wantsJSON(r) {
		respondErrorJSON(w, msg, statusCode)
	} else {
		http.Error(w, msg.Message+" ("+msg.Code+")", statusCode)
	}
}

// respondErrorJSON writes a JSON error response.
func respondErrorJSON(w http.ResponseWriter, msg userMessage, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(ErrorResponse{
		Error:   msg.Message,
		Code:    msg.Code,
		TraceID: msg.TraceID,
	})
}

// renderErrorPartial renders an HTMX-compatible error fragment.
func (s *Server) renderErrorPartial(w http.ResponseWriter, r *http.Request, msg userMessage, statusCode int) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(statusCode)

	render.ErrorBanner(msg.Message).Render(r.Context(), w)
}

// isHTMX checks if the request is an HTMX request.
func isHTMX(r *http.Request) bool {
	return r.Header.Get("HX-Request") == "true"
}

// wantsJSON checks if the client prefers a JSON response.
func wantsJSON(r *http.Request) bool {
	if strings.Contains(r.Header.Get("Accept"), "application/json") {
		return true
	}
	if strings.Contains(r.Header.Get("Content-Type"), "application/json") {
		return true
	}
	// API routes default to JSON
	return strings.HasPrefix(r.URL.Path, "/api/")
}
