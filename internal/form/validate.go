package form

// validate.go computes validation state for the field set. Validation is a
// pure snapshot: it is run on demand (every submit, and whenever the web
// layer wants to refresh the error display) and never mutates the store.
//
// Errors are symbolic codes. The web layer resolves them to display text via
// the i18n bundle at render time; nothing in this package deals in localized
// strings.

import "strings"

// ErrorCode is a symbolic validation error.
type ErrorCode string

const (
	// CodeNameRequired flags a field whose trimmed name is empty.
	CodeNameRequired ErrorCode = "NAME_REQUIRED"

	// CodeDuplicateName flags the second and later occurrences of a name,
	// compared case-insensitively after trimming. The first occurrence is
	// never flagged.
	CodeDuplicateName ErrorCode = "DUPLICATE_NAME"

	// CodeNoFields is the global error raised when no field is both named
	// and of a recognized type.
	CodeNoFields ErrorCode = "NO_FIELDS"
)

// ValidationResult holds per-field error sets aligned index-for-index with
// the field sequence the validation ran against, plus global errors.
type ValidationResult struct {
	PerField [][]ErrorCode `json:"perField"`
	Global   []ErrorCode   `json:"global"`
}

// OK reports whether the result carries no errors at all.
func (r ValidationResult) OK() bool {
	if len(r.Global) > 0 {
		return false
	}
	for _, errs := range r.PerField {
		if len(errs) > 0 {
			return false
		}
	}
	return true
}

// FirstInvalid returns the index of the first field with at least one error,
// or -1. Used to pick the focus target after a rejected submit.
func (r ValidationResult) FirstInvalid() int {
	for i, errs := range r.PerField {
		if len(errs) > 0 {
			return i
		}
	}
	return -1
}

// Codes returns the de-duplicated union of all error codes in the result,
// global first, then per-field in order. Used to build the error summary.
func (r ValidationResult) Codes() []ErrorCode {
	seen := make(map[ErrorCode]bool)
	var out []ErrorCode
	add := func(c ErrorCode) {
		if !seen[c] {
			seen[c] = true
			out = append(out, c)
		}
	}
	for _, c := range r.Global {
		add(c)
	}
	for _, errs := range r.PerField {
		for _, c := range errs {
			add(c)
		}
	}
	return out
}

// Validate checks the given field snapshot and returns all errors.
func Validate(fields []Field) ValidationResult {
	result := ValidationResult{
		PerField: make([][]ErrorCode, len(fields)),
	}

	hasAny := false
	for _, f := range fields {
		if f.Name != "" && RecognizedType(f.Type) {
			hasAny = true
			break
		}
	}

	seen := make(map[string]bool)
	for i, f := range fields {
		var errs []ErrorCode

		name := strings.TrimSpace(f.Name)
		if name == "" {
			errs = append(errs, CodeNameRequired)
		}

		key := strings.ToLower(name)
		if name != "" && seen[key] {
			errs = append(errs, CodeDuplicateName)
		}
		seen[key] = true

		result.PerField[i] = errs
	}

	if !hasAny {
		result.Global = append(result.Global, CodeNoFields)
	}

	return result
}
