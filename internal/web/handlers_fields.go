package web

// handlers_fields.go implements the field definition commands. Every mutation
// responds with the full form state so the page can re-render the field list,
// the validation display and the schema preview in one round trip.

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/formforge/formforge/internal/form"
)

// FormState is the JSON view of a session's form-building state.
type FormState struct {
	Fields     []form.Field          `json:"fields"`
	Validation form.ValidationResult `json:"validation"`
	Schema     string                `json:"schema"`
	WrapAsList bool                  `json:"wrapAsList"`
	Budget     form.SizeBudget       `json:"budget"`
	Configured bool                  `json:"configured"`
}

// formState assembles the current state snapshot for a session.
func (s *Server) formState(sess *form.Session) FormState {
	fields := sess.Fields.Fields()
	return FormState{
		Fields:     fields,
		Validation: form.Validate(fields),
		Schema:     form.Compile(fields, sess.WrapAsList()).EncodeIndent(),
		WrapAsList: sess.WrapAsList(),
		Budget:     sess.Files.Budget(),
		Configured: s.client.Configured(),
	}
}

// handleCreateField appends a new field with defaults.
func (s *Server) handleCreateField(w http.ResponseWriter, r *http.Request) {
	sess := session(r)
	id := sess.Fields.Append()

	state := s.formState(sess)
	writeJSON(w, struct {
		ID string `json:"id"`
		FormState
	}{ID: id, FormState: state})
}

// fieldPatchRequest is the JSON body of a field update.
type fieldPatchRequest struct {
	Name        *string `json:"name"`
	Type        *string `json:"type"`
	Required    *bool   `json:"required"`
	Description *string `json:"description"`
}

// handleUpdateField applies a partial update to one field.
func (s *Server) handleUpdateField(w http.ResponseWriter, r *http.Request) {
	sess := session(r)
	id := chi.URLParam(r, "id")

	var body fieldPatchRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		s.respondError(w, r, errors.New("malformed field patch"), http.StatusBadRequest)
		return
	}

	patch := form.FieldPatch{
		Name:        body.Name,
		Required:    body.Required,
		Description: body.Description,
	}
	if body.Type != nil {
		ft := form.FieldType(*body.Type)
		if !form.RecognizedType(ft) {
			s.respondError(w, r, errors.New("unrecognized field type "+*body.Type), http.StatusBadRequest)
			return
		}
		patch.Type = &ft
	}

	sess.Fields.Update(id, patch)
	writeJSON(w, s.formState(sess))
}

// handleDeleteField removes one field. Unknown IDs succeed silently.
func (s *Server) handleDeleteField(w http.ResponseWriter, r *http.Request) {
	sess := session(r)
	sess.Fields.Remove(chi.URLParam(r, "id"))
	writeJSON(w, s.formState(sess))
}

// handleMoveField reorders the field list. The target index counts positions
// in the list with the moved field already taken out.
func (s *Server) handleMoveField(w http.ResponseWriter, r *http.Request) {
	sess := session(r)

	var body struct {
		From int `json:"from"`
		To   int `json:"to"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		s.respondError(w, r, errors.New("malformed move request"), http.StatusBadRequest)
		return
	}

	sess.Fields.Move(body.From, body.To)
	writeJSON(w, s.formState(sess))
}

// handleSchema returns the compiled schema preview. A wrap query parameter
// updates the session's wrap-as-list setting before compiling.
func (s *Server) handleSchema(w http.ResponseWriter, r *http.Request) {
	sess := session(r)

	if v := r.URL.Query().Get("wrap"); v != "" {
		wrap, err := strconv.ParseBool(v)
		if err != nil {
			s.respondError(w, r, errors.New("malformed wrap parameter"), http.StatusBadRequest)
			return
		}
		sess.SetWrapAsList(wrap)
	}

	doc := form.Compile(sess.Fields.Fields(), sess.WrapAsList())
	writeJSON(w, struct {
		Schema     string `json:"schema"`
		WrapAsList bool   `json:"wrapAsList"`
	}{Schema: doc.EncodeIndent(), WrapAsList: sess.WrapAsList()})
}
