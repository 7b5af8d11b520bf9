package form

// staging.go holds candidate files for submission and tracks their aggregate
// size against the configured byte budget. Files are kept in insertion order;
// duplicates by name are allowed and never collapsed.

import (
	"fmt"
	"math"
	"strings"
	"sync"
)

// StagedFile wraps a user-supplied binary attachment awaiting submission.
type StagedFile struct {
	Name     string
	Size     int64
	MimeType string
	Data     []byte
}

// BudgetState classifies aggregate staged size relative to the limit.
type BudgetState string

const (
	BudgetOK   BudgetState = "OK"
	BudgetWarn BudgetState = "WARN" // above 80% of the limit
	BudgetOver BudgetState = "OVER" // above the limit; hard-blocks submission
)

// SizeBudget is the derived size accounting for the staging area.
type SizeBudget struct {
	TotalBytes int64       `json:"totalBytes"`
	LimitBytes int64       `json:"limitBytes"`
	State      BudgetState `json:"state"`
}

// StagingArea is the ordered set of files staged for submission.
type StagingArea struct {
	mu    sync.RWMutex
	files []StagedFile
	limit int64
}

// NewStagingArea creates an empty staging area with the given byte limit.
func NewStagingArea(limitBytes int64) *StagingArea {
	return &StagingArea{limit: limitBytes}
}

// Add appends files to the staging set.
func (a *StagingArea) Add(files ...StagedFile) {
	a.mu.Lock()
	defer a.mu.Unlock()

	next := make([]StagedFile, 0, len(a.files)+len(files))
	next = append(next, a.files...)
	next = append(next, files...)
	a.files = next
}

// Remove deletes the file at the given index. Out-of-range indices are a
// no-op.
func (a *StagingArea) Remove(index int) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if index < 0 || index >= len(a.files) {
		return
	}

	next := make([]StagedFile, 0, len(a.files)-1)
	next = append(next, a.files[:index]...)
	next = append(next, a.files[index+1:]...)
	a.files = next
}

// File returns the staged file at the given index.
func (a *StagingArea) File(index int) (StagedFile, bool) {
	a.mu.RLock()
	defer a.mu.RUnlock()

	if index < 0 || index >= len(a.files) {
		return StagedFile{}, false
	}
	return a.files[index], true
}

// Files returns a snapshot of the staged files in insertion order.
func (a *StagingArea) Files() []StagedFile {
	a.mu.RLock()
	defer a.mu.RUnlock()

	out := make([]StagedFile, len(a.files))
	copy(out, a.files)
	return out
}

// Len returns the number of staged files.
func (a *StagingArea) Len() int {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return len(a.files)
}

// Clear removes all staged files.
func (a *StagingArea) Clear() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.files = nil
}

// Budget recomputes the size budget from the current staging set.
func (a *StagingArea) Budget() SizeBudget {
	a.mu.RLock()
	defer a.mu.RUnlock()

	var total int64
	for _, f := range a.files {
		total += f.Size
	}

	state := BudgetOK
	switch {
	case total > a.limit:
		state = BudgetOver
	case float64(total) > 0.8*float64(a.limit):
		state = BudgetWarn
	}

	return SizeBudget{TotalBytes: total, LimitBytes: a.limit, State: state}
}

// FileKind classifies a staged file for icon display and preview support.
type FileKind string

const (
	KindImage       FileKind = "IMAGE"
	KindSpreadsheet FileKind = "SPREADSHEET"
	KindSlides      FileKind = "SLIDES"
	KindDocument    FileKind = "DOCUMENT"
	KindTextOrJSON  FileKind = "TEXT_OR_JSON"
	KindPDF         FileKind = "PDF"
	KindGeneric     FileKind = "GENERIC"
)

var imageExtensions = map[string]bool{
	"jpeg": true, "jpg": true, "png": true, "webp": true, "heic": true, "heif": true,
}

var imageMimeTypes = map[string]bool{
	"image/jpeg": true, "image/png": true, "image/webp": true,
	"image/heic": true, "image/heif": true,
}

// Classify maps a file's MIME type and name to a FileKind. The MIME type
// takes precedence; the extension is a case-insensitive fallback for absent
// or generic types.
func Classify(name, mimeType string) FileKind {
	mt := strings.ToLower(mimeType)
	ext := fileExt(name)

	if mt == "application/pdf" || ext == "pdf" {
		return KindPDF
	}
	if strings.HasPrefix(mt, "image/") && (imageExtensions[ext] || imageMimeTypes[mt]) {
		return KindImage
	}
	switch ext {
	case "docx":
		return KindDocument
	case "xlsx":
		return KindSpreadsheet
	case "pptx":
		return KindSlides
	}
	if mt == "text/plain" || mt == "application/json" || ext == "txt" || ext == "json" {
		return KindTextOrJSON
	}
	return KindGeneric
}

// fileExt returns the lower-cased extension of name without the dot.
func fileExt(name string) string {
	i := strings.LastIndexByte(name, '.')
	if i < 0 {
		return ""
	}
	return strings.ToLower(name[i+1:])
}

// FormatSize renders a byte count for display. Below 1024 bytes it shows
// integer bytes; at each higher unit it shows one decimal when the value is
// under 10 and a rounded integer otherwise.
func FormatSize(bytes int64) string {
	if bytes < 1024 {
		return fmt.Sprintf("%d B", bytes)
	}
	kb := float64(bytes) / 1024
	if kb < 1024 {
		return formatUnit(kb, "KB")
	}
	mb := kb / 1024
	if mb < 1024 {
		return formatUnit(mb, "MB")
	}
	return formatUnit(mb/1024, "GB")
}

func formatUnit(v float64, unit string) string {
	if v < 10 {
		return fmt.Sprintf("%.1f %s", v, unit)
	}
	return fmt.Sprintf("%d %s", int64(math.Round(v)), unit)
}
