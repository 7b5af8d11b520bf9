package form

// preview.go implements the scoped preview resource. A preview is a transient
// token under which a staged file's bytes are served to the browser; it is
// the server-side analogue of an object URL. At most one token is live per
// session, and every exit path (replacement by a new preview, explicit close,
// escape dismissal, session reset) funnels through the same release path, so
// no path can leak a live token.

import (
	"sync"

	"github.com/google/uuid"
)

// PreviewKind describes how an open preview is displayed.
type PreviewKind string

const (
	PreviewPDF   PreviewKind = "PDF"
	PreviewImage PreviewKind = "IMAGE"
	PreviewNone  PreviewKind = "NONE" // placeholder; no token is minted
)

// Preview describes the currently open preview resource.
type Preview struct {
	Token       string      `json:"token,omitempty"`
	Kind        PreviewKind `json:"kind"`
	FileName    string      `json:"fileName"`
	ReturnFocus string      `json:"returnFocus,omitempty"`
}

// Previewer owns the at-most-one-active preview resource for a session.
type Previewer struct {
	mu        sync.Mutex
	current   *Preview
	data      []byte
	mimeType  string
	onRelease func(token string)
}

// NewPreviewer returns a Previewer with nothing open.
func NewPreviewer() *Previewer {
	return &Previewer{}
}

// OnRelease registers a hook invoked exactly once per released token, with
// the token value. Placeholder previews mint no token and trigger no hook.
func (p *Previewer) OnRelease(fn func(token string)) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.onRelease = fn
}

// Open replaces any open preview with one for the given file. A previously
// held token is released before the new one is acquired, so two tokens are
// never live at once. PDF and image files get a token-backed preview; every
// other kind opens in the placeholder state. returnFocus names the page
// element focus should return to on close.
func (p *Previewer) Open(f StagedFile, kind FileKind, returnFocus string) Preview {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.releaseLocked()

	pv := Preview{
		Kind:        PreviewNone,
		FileName:    f.Name,
		ReturnFocus: returnFocus,
	}

	switch kind {
	case KindPDF:
		pv.Kind = PreviewPDF
		pv.Token = uuid.NewString()
	case KindImage:
		pv.Kind = PreviewImage
		pv.Token = uuid.NewString()
	}

	p.current = &pv
	if pv.Token != "" {
		p.data = f.Data
		p.mimeType = f.MimeType
	}

	return pv
}

// Close releases the open preview, if any, and returns the element focus
// should move back to. Safe to call when nothing is open.
func (p *Previewer) Close() (returnFocus string, wasOpen bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.current == nil {
		return "", false
	}
	returnFocus = p.current.ReturnFocus
	p.releaseLocked()
	return returnFocus, true
}

// Active returns the open preview, if any.
func (p *Previewer) Active() (Preview, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.current == nil {
		return Preview{}, false
	}
	return *p.current, true
}

// Resolve returns the bytes and MIME type held under a live token. Once the
// token has been released, Resolve fails regardless of the value presented.
func (p *Previewer) Resolve(token string) (data []byte, mimeType string, ok bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.current == nil || p.current.Token == "" || p.current.Token != token {
		return nil, "", false
	}
	return p.data, p.mimeType, true
}

// releaseLocked revokes the held token and clears all preview state. It is
// the single release path; callers must hold the lock.
func (p *Previewer) releaseLocked() {
	if p.current == nil {
		return
	}
	token := p.current.Token
	p.current = nil
	p.data = nil
	p.mimeType = ""
	if token != "" && p.onRelease != nil {
		p.onRelease(token)
	}
}
