package web

// views.go holds the page shell and the handful of fragments the handlers
// render directly. Result rendering lives in internal/render; these
// components only lay out the form around it.

import (
	"context"
	"io"
	"strconv"
	"strings"

	"github.com/a-h/templ"
)

// PageState is everything the page shell needs to render.
type PageState struct {
	Title         string
	Locale        string
	Locales       []string
	ConfigWarning string
	Configured    bool
	Form          FormState
	Files         FilesState
}

// pageShell renders the full page: configuration warning, field editor,
// schema preview, staged files with budget, prompt form and result area.
func pageShell(p PageState) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		var b strings.Builder

		b.WriteString(`<!DOCTYPE html><html lang="` + templ.EscapeString(p.Locale) + `"><head><meta charset="utf-8">`)
		b.WriteString(`<title>` + templ.EscapeString(p.Title) + `</title>`)
		b.WriteString(`<meta name="viewport" content="width=device-width, initial-scale=1">`)
		b.WriteString(`</head><body>`)
		b.WriteString(`<main class="app" data-locale="` + templ.EscapeString(p.Locale) + `">`)
		b.WriteString(`<h1>` + templ.EscapeString(p.Title) + `</h1>`)

		if p.ConfigWarning != "" {
			b.WriteString(`<div class="banner banner-warning" id="config-warning">` + templ.EscapeString(p.ConfigWarning) + `</div>`)
		}

		b.WriteString(`<section id="fields" data-count="` + strconv.Itoa(len(p.Form.Fields)) + `">`)
		for _, f := range p.Form.Fields {
			b.WriteString(`<div class="field-row" data-field-id="` + templ.EscapeString(f.ID) + `">`)
			b.WriteString(`<input name="name" value="` + templ.EscapeString(f.Name) + `">`)
			b.WriteString(`<span class="field-type">` + templ.EscapeString(string(f.Type)) + `</span>`)
			if f.Required {
				b.WriteString(`<span class="field-required">*</span>`)
			}
			b.WriteString(`</div>`)
		}
		b.WriteString(`</section>`)

		b.WriteString(`<pre id="schema-preview">` + templ.EscapeString(p.Form.Schema) + `</pre>`)

		b.WriteString(`<section id="files" data-budget-state="` + string(p.Files.Budget.State) + `">`)
		for _, f := range p.Files.Files {
			b.WriteString(`<div class="file-row" data-index="` + strconv.Itoa(f.Index) + `">`)
			b.WriteString(`<span class="file-name">` + templ.EscapeString(f.Name) + `</span>`)
			b.WriteString(`<span class="file-size">` + templ.EscapeString(f.SizeLabel) + `</span>`)
			b.WriteString(`<span class="file-kind">` + string(f.Kind) + `</span>`)
			b.WriteString(`</div>`)
		}
		b.WriteString(`</section>`)

		b.WriteString(`<section id="result" aria-live="polite"></section>`)
		b.WriteString(`</main></body></html>`)

		_, err := io.WriteString(w, b.String())
		return err
	})
}

// validationSummary renders the error summary fragment returned for a
// rejected submission. The focus target rides along as a data attribute.
func validationSummary(heading string, messages []string, focusID string) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		var b strings.Builder

		b.WriteString(`<div class="banner banner-error" role="alert"`)
		if focusID != "" {
			b.WriteString(` data-focus-id="` + templ.EscapeString(focusID) + `"`)
		}
		b.WriteString(`>`)
		b.WriteString(`<p>` + templ.EscapeString(heading) + `</p><ul>`)
		for _, m := range messages {
			b.WriteString(`<li>` + templ.EscapeString(m) + `</li>`)
		}
		b.WriteString(`</ul></div>`)

		_, err := io.WriteString(w, b.String())
		return err
	})
}
