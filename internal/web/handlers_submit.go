package web

// handlers_submit.go runs the submission pipeline and maps every outcome to
// a response and an audit entry. The order of rejection checks lives in the
// controller; this file only translates its verdicts.

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/formforge/formforge/internal/audit"
	"github.com/formforge/formforge/internal/form"
	"github.com/formforge/formforge/internal/inference"
	"github.com/formforge/formforge/internal/render"
)

// handleSubmit runs validate, compile, transmit and render for the session.
func (s *Server) handleSubmit(w http.ResponseWriter, r *http.Request) {
	sess := session(r)

	if err := r.ParseForm(); err != nil {
		s.respondError(w, r, errors.New("malformed submit form"), http.StatusBadRequest)
		return
	}

	if v := r.FormValue("wrap"); v != "" {
		if wrap, err := strconv.ParseBool(v); err == nil {
			sess.SetWrapAsList(wrap)
		}
	}

	locale := s.locale(r)
	in := form.SubmitInput{
		Prompt:            r.FormValue("prompt"),
		SystemInstruction: r.FormValue("system_instruction"),
		Model:             r.FormValue("model"),
		Locale:            locale,
		WrapAsList:        sess.WrapAsList(),
	}

	start := time.Now()
	resp, err := sess.Controller.Submit(r.Context(), sess.Fields, sess.Files, in)
	duration := time.Since(start)

	entry := audit.Entry{
		SessionID:  sess.ID,
		Model:      in.Model,
		Locale:     locale,
		FieldCount: sess.Fields.Len(),
		FileCount:  sess.Files.Len(),
		TotalBytes: sess.Files.Budget().TotalBytes,
		Duration:   duration,
	}

	if err != nil {
		s.respondSubmitError(w, r, err, locale)

		entry.Outcome, entry.ErrorMessage = classifySubmitError(err)
		var appErr *inference.AppError
		if errors.As(err, &appErr) {
			entry.TraceID = appErr.TraceID
		}
		s.audit.Log(r.Context(), entry)
		return
	}

	entry.Outcome = audit.OutcomeSuccess
	entry.TraceID = resp.TraceID
	entry.Model = resp.Model
	s.audit.Log(r.Context(), entry)

	if isHTMX(r) || !wantsJSON(r) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		render.Result(resp.Data, resp.Model, resp.TraceID, sess.Fields.Names(), s.resultLabels(locale)).Render(r.Context(), w)
		return
	}
	writeJSON(w, resp)
}

// respondSubmitError writes the response for a failed submission.
func (s *Server) respondSubmitError(w http.ResponseWriter, r *http.Request, err error, locale string) {
	var vErr *form.ValidationFailedError
	if errors.As(err, &vErr) {
		s.respondValidationFailed(w, r, vErr, locale)
		return
	}

	switch {
	case errors.Is(err, form.ErrSubmissionInFlight):
		s.respondError(w, r, err, http.StatusConflict)
	case errors.Is(err, form.ErrSizeOverLimit):
		s.respondError(w, r, err, http.StatusRequestEntityTooLarge)
	case errors.Is(err, inference.ErrNoEndpoint):
		s.respondError(w, r, err, http.StatusServiceUnavailable)
	default:
		// Application and transport failures both surface as the banner.
		s.respondError(w, r, err, http.StatusBadGateway)
	}
}

// respondValidationFailed returns the validation result with the focus
// target, as JSON or as an error-summary fragment.
func (s *Server) respondValidationFailed(w http.ResponseWriter, r *http.Request, vErr *form.ValidationFailedError, locale string) {
	if isHTMX(r) {
		messages := make([]string, 0, 3)
		for _, code := range vErr.Result.Codes() {
			messages = append(messages, s.translateCode(locale, code))
		}

		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.WriteHeader(http.StatusUnprocessableEntity)
		validationSummary(s.bundle.T(locale, "errors.pleaseFix"), messages, vErr.FocusID).Render(r.Context(), w)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnprocessableEntity)
	json.NewEncoder(w).Encode(struct {
		Error      string                `json:"error"`
		Code       string                `json:"code"`
		Validation form.ValidationResult `json:"validation"`
		FocusID    string                `json:"focusId,omitempty"`
	}{
		Error:      s.bundle.T(locale, "errors.pleaseFix"),
		Code:       "VALIDATION_FAILED",
		Validation: vErr.Result,
		FocusID:    vErr.FocusID,
	})
}

// translateCode maps a symbolic validation code to its display text.
func (s *Server) translateCode(locale string, code form.ErrorCode) string {
	switch code {
	case form.CodeNameRequired:
		return s.bundle.T(locale, "errors.nameRequired")
	case form.CodeDuplicateName:
		return s.bundle.T(locale, "errors.duplicateName")
	case form.CodeNoFields:
		return s.bundle.T(locale, "errors.noFields")
	default:
		return string(code)
	}
}

// resultLabels builds the renderer's localized label set.
func (s *Server) resultLabels(locale string) render.Labels {
	return render.Labels{
		ErrorResult: s.bundle.T(locale, "results.error"),
		EmptyResult: s.bundle.T(locale, "results.empty"),
		Model:       s.bundle.T(locale, "results.model"),
		Trace:       s.bundle.T(locale, "results.trace"),
	}
}

// classifySubmitError maps a submission failure to its audit outcome.
func classifySubmitError(err error) (outcome, message string) {
	var vErr *form.ValidationFailedError
	var appErr *inference.AppError

	switch {
	case errors.As(err, &vErr):
		return audit.OutcomeValidationFailed, ""
	case errors.Is(err, form.ErrSizeOverLimit):
		return audit.OutcomeSizeBlocked, ""
	case errors.Is(err, form.ErrSubmissionInFlight):
		return audit.OutcomeRejected, ""
	case errors.As(err, &appErr):
		return audit.OutcomeAppError, appErr.Message
	default:
		return audit.OutcomeTransportError, err.Error()
	}
}

// handleClear resets fields, staged files and any open preview.
func (s *Server) handleClear(w http.ResponseWriter, r *http.Request) {
	sess := session(r)
	sess.Clear()
	writeJSON(w, s.formState(sess))
}
