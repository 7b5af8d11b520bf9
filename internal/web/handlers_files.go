package web

// handlers_files.go implements file staging and the preview lifecycle. Staged
// bytes live in the session only; the browser gets them back exclusively
// through a live preview token.

import (
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/formforge/formforge/internal/form"
)

// multipartMemoryLimit caps how much of an upload is buffered in memory
// before spilling to disk during parsing.
const multipartMemoryLimit = 8 << 20

// FileView is the JSON view of one staged file.
type FileView struct {
	Index     int           `json:"index"`
	Name      string        `json:"name"`
	Size      int64         `json:"size"`
	SizeLabel string        `json:"sizeLabel"`
	MimeType  string        `json:"mimeType"`
	Kind      form.FileKind `json:"kind"`
}

// FilesState is the JSON view of the staging area.
type FilesState struct {
	Files  []FileView      `json:"files"`
	Budget form.SizeBudget `json:"budget"`
}

func filesState(sess *form.Session) FilesState {
	staged := sess.Files.Files()
	views := make([]FileView, len(staged))
	for i, f := range staged {
		views[i] = FileView{
			Index:     i,
			Name:      f.Name,
			Size:      f.Size,
			SizeLabel: form.FormatSize(f.Size),
			MimeType:  f.MimeType,
			Kind:      form.Classify(f.Name, f.MimeType),
		}
	}
	return FilesState{Files: views, Budget: sess.Files.Budget()}
}

// handleListFiles returns the staged files and the size budget.
func (s *Server) handleListFiles(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, filesState(session(r)))
}

// handleUploadFiles stages uploaded files. The request body is capped at
// twice the byte budget so an oversized batch still lands in the staging
// area and surfaces as the OVER banner instead of a connection reset.
func (s *Server) handleUploadFiles(w http.ResponseWriter, r *http.Request) {
	sess := session(r)

	limit := sess.Files.Budget().LimitBytes
	r.Body = http.MaxBytesReader(w, r.Body, 2*limit+multipartMemoryLimit)

	if err := r.ParseMultipartForm(multipartMemoryLimit); err != nil {
		s.respondError(w, r, errors.New("malformed multipart upload"), http.StatusBadRequest)
		return
	}
	defer r.MultipartForm.RemoveAll()

	headers := r.MultipartForm.File["files[]"]
	if len(headers) == 0 {
		headers = r.MultipartForm.File["files"]
	}

	var staged []form.StagedFile
	for _, hdr := range headers {
		f, err := hdr.Open()
		if err != nil {
			s.respondError(w, r, err, http.StatusBadRequest)
			return
		}
		data, err := io.ReadAll(f)
		f.Close()
		if err != nil {
			s.respondError(w, r, err, http.StatusBadRequest)
			return
		}

		staged = append(staged, form.StagedFile{
			Name:     hdr.Filename,
			Size:     int64(len(data)),
			MimeType: hdr.Header.Get("Content-Type"),
			Data:     data,
		})
	}

	sess.Files.Add(staged...)
	writeJSON(w, filesState(sess))
}

// handleDeleteFile removes one staged file by position.
func (s *Server) handleDeleteFile(w http.ResponseWriter, r *http.Request) {
	sess := session(r)

	index, err := strconv.Atoi(chi.URLParam(r, "index"))
	if err != nil {
		s.respondError(w, r, errors.New("malformed file index"), http.StatusBadRequest)
		return
	}

	sess.Files.Remove(index)
	writeJSON(w, filesState(sess))
}

// handleOpenPreview opens a preview for a staged file. PDFs and images get a
// one-use token; every other kind opens as a placeholder.
func (s *Server) handleOpenPreview(w http.ResponseWriter, r *http.Request) {
	sess := session(r)

	index, err := strconv.Atoi(chi.URLParam(r, "index"))
	if err != nil {
		s.respondError(w, r, errors.New("malformed file index"), http.StatusBadRequest)
		return
	}

	f, ok := sess.Files.File(index)
	if !ok {
		s.respondError(w, r, errors.New("no staged file at index "+strconv.Itoa(index)), http.StatusNotFound)
		return
	}

	pv := sess.Preview.Open(f, form.Classify(f.Name, f.MimeType), r.FormValue("returnFocus"))
	writeJSON(w, pv)
}

// handleClosePreview dismisses the open preview, revoking its token.
func (s *Server) handleClosePreview(w http.ResponseWriter, r *http.Request) {
	sess := session(r)

	returnFocus, wasOpen := sess.Preview.Close()
	writeJSON(w, struct {
		ReturnFocus string `json:"returnFocus,omitempty"`
		WasOpen     bool   `json:"wasOpen"`
	}{ReturnFocus: returnFocus, WasOpen: wasOpen})
}

// handleServePreview serves the bytes behind a live preview token. Revoked or
// unknown tokens are indistinguishable: both 404.
func (s *Server) handleServePreview(w http.ResponseWriter, r *http.Request) {
	sess := session(r)

	data, mimeType, ok := sess.Preview.Resolve(chi.URLParam(r, "token"))
	if !ok {
		http.NotFound(w, r)
		return
	}

	if mimeType == "" {
		mimeType = "application/octet-stream"
	}
	w.Header().Set("Content-Type", mimeType)
	w.Header().Set("Content-Disposition", "inline")
	w.Header().Set("Cache-Control", "no-store")
	w.Write(data)
}
