package web

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/formforge/formforge/internal/config"
	"github.com/formforge/formforge/internal/form"
	"github.com/formforge/formforge/internal/i18n"
	"github.com/formforge/formforge/internal/inference"
)

// fakeTransport implements form.Transport with a canned outcome.
type fakeTransport struct {
	resp *inference.Response
	err  error
	last *inference.Request
}

func (t *fakeTransport) Submit(ctx context.Context, req inference.Request) (*inference.Response, error) {
	t.last = &req
	if t.err != nil {
		return nil, t.err
	}
	if t.resp != nil {
		return t.resp, nil
	}
	return &inference.Response{
		OK:      true,
		Data:    json.RawMessage(`[{"title":"invoice","amount":42}]`),
		Model:   "gemini-2.5-flash",
		TraceID: "trace-1",
	}, nil
}

func testConfig() *config.Config {
	return &config.Config{
		Server: config.ServerConfig{
			Host:            "127.0.0.1",
			Port:            0,
			ShutdownTimeout: time.Second,
		},
		Inference: config.InferenceConfig{
			URL:     "http://inference.test/extract",
			Timeout: time.Second,
		},
		Upload:  config.UploadConfig{MaxTotalBytes: 1 << 20},
		Session: config.SessionConfig{IdleTTL: time.Hour, SweepInterval: time.Minute},
		Logging: config.LoggingConfig{Level: "error", Format: "text"},
	}
}

// testServer wires a full server over a fake transport and keeps the session
// cookie across calls.
type testServer struct {
	t      *testing.T
	srv    *Server
	cookie *http.Cookie
}

func newTestServer(t *testing.T, transport form.Transport, endpoint string) *testServer {
	t.Helper()

	bundle, err := i18n.Load()
	if err != nil {
		t.Fatalf("i18n.Load: %v", err)
	}

	cfg := testConfig()
	cfg.Inference.URL = endpoint

	client := inference.NewClient(endpoint, cfg.Inference.Timeout, nil)
	if transport == nil {
		// No stub: route submissions through the real client so an empty
		// endpoint surfaces as ErrNoEndpoint.
		transport = client
	}

	store := form.NewStore(form.StoreConfig{
		MaxTotalBytes: cfg.Upload.MaxTotalBytes,
		IdleTTL:       cfg.Session.IdleTTL,
		Defaults: form.Defaults{
			Model:             "gemini-2.5-flash",
			SystemInstruction: "default instruction",
			Locale:            "en",
		},
	}, transport)

	srv := NewServer(cfg, store, bundle, client, nil)

	return &testServer{t: t, srv: srv}
}

// do performs a request against the router, carrying the session cookie.
func (ts *testServer) do(method, target string, body io.Reader, header map[string]string) *httptest.ResponseRecorder {
	ts.t.Helper()

	req := httptest.NewRequest(method, target, body)
	for k, v := range header {
		req.Header.Set(k, v)
	}
	if ts.cookie != nil {
		req.AddCookie(ts.cookie)
	}

	w := httptest.NewRecorder()
	ts.srv.Router().ServeHTTP(w, req)

	for _, c := range w.Result().Cookies() {
		if c.Name == sessionCookie {
			ts.cookie = c
		}
	}
	return w
}

func (ts *testServer) doJSON(method, target string, payload any) *httptest.ResponseRecorder {
	ts.t.Helper()
	var body io.Reader
	if payload != nil {
		b, err := json.Marshal(payload)
		if err != nil {
			ts.t.Fatalf("marshal payload: %v", err)
		}
		body = bytes.NewReader(b)
	}
	return ts.do(method, target, body, map[string]string{"Content-Type": "application/json"})
}

func decodeState(t *testing.T, w *httptest.ResponseRecorder) FormState {
	t.Helper()
	var state FormState
	if err := json.Unmarshal(w.Body.Bytes(), &state); err != nil {
		t.Fatalf("decode state: %v (body: %s)", err, w.Body.String())
	}
	return state
}

func TestFieldLifecycle(t *testing.T) {
	ts := newTestServer(t, &fakeTransport{}, "http://inference.test/extract")

	// Create
	w := ts.doJSON(http.MethodPost, "/api/fields", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("create field: status %d: %s", w.Code, w.Body.String())
	}
	var created struct {
		ID string `json:"id"`
		FormState
	}
	if err := json.Unmarshal(w.Body.Bytes(), &created); err != nil {
		t.Fatalf("decode create response: %v", err)
	}
	if created.ID == "" || len(created.Fields) != 1 {
		t.Fatalf("create response = %s", w.Body.String())
	}

	// Update
	w = ts.doJSON(http.MethodPatch, "/api/fields/"+created.ID, map[string]any{
		"name": "amount",
		"type": "NUMBER",
	})
	state := decodeState(t, w)
	if state.Fields[0].Name != "amount" || state.Fields[0].Type != form.TypeNumber {
		t.Errorf("field after patch = %+v", state.Fields[0])
	}
	if !strings.Contains(state.Schema, `"amount"`) {
		t.Errorf("schema not recompiled: %s", state.Schema)
	}

	// Delete
	w = ts.doJSON(http.MethodDelete, "/api/fields/"+created.ID, nil)
	state = decodeState(t, w)
	if len(state.Fields) != 0 {
		t.Errorf("fields after delete = %+v", state.Fields)
	}
}

func TestUpdateFieldRejectsUnknownType(t *testing.T) {
	ts := newTestServer(t, &fakeTransport{}, "http://inference.test/extract")

	w := ts.doJSON(http.MethodPost, "/api/fields", nil)
	var created struct {
		ID string `json:"id"`
	}
	json.Unmarshal(w.Body.Bytes(), &created)

	w = ts.doJSON(http.MethodPatch, "/api/fields/"+created.ID, map[string]any{"type": "TIMESTAMP"})
	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", w.Code)
	}
}

func TestMoveField(t *testing.T) {
	ts := newTestServer(t, &fakeTransport{}, "http://inference.test/extract")

	names := []string{"x", "y", "z"}
	for _, name := range names {
		w := ts.doJSON(http.MethodPost, "/api/fields", nil)
		var created struct {
			ID string `json:"id"`
		}
		json.Unmarshal(w.Body.Bytes(), &created)
		ts.doJSON(http.MethodPatch, "/api/fields/"+created.ID, map[string]any{"name": name})
	}

	w := ts.doJSON(http.MethodPost, "/api/fields/move", map[string]int{"from": 0, "to": 2})
	state := decodeState(t, w)

	got := []string{state.Fields[0].Name, state.Fields[1].Name, state.Fields[2].Name}
	if got[0] != "y" || got[1] != "z" || got[2] != "x" {
		t.Errorf("order after move = %v, want [y z x]", got)
	}
}

func TestSchemaWrapToggle(t *testing.T) {
	ts := newTestServer(t, &fakeTransport{}, "http://inference.test/extract")
	ts.doJSON(http.MethodPost, "/api/fields", nil)

	w := ts.do(http.MethodGet, "/api/schema?wrap=false", nil, nil)
	var out struct {
		Schema     string `json:"schema"`
		WrapAsList bool   `json:"wrapAsList"`
	}
	json.Unmarshal(w.Body.Bytes(), &out)
	if out.WrapAsList {
		t.Error("wrap=false did not stick")
	}
	if strings.Contains(out.Schema, `"ARRAY"`) {
		t.Errorf("unwrapped schema still an array: %s", out.Schema)
	}

	w = ts.do(http.MethodGet, "/api/schema?wrap=true", nil, nil)
	json.Unmarshal(w.Body.Bytes(), &out)
	if !strings.Contains(out.Schema, `"ARRAY"`) {
		t.Errorf("wrapped schema is not an array: %s", out.Schema)
	}
}

func uploadBody(t *testing.T, names map[string][]byte) (io.Reader, string) {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	for name, data := range names {
		part, err := w.CreateFormFile("files[]", name)
		if err != nil {
			t.Fatalf("create part: %v", err)
		}
		part.Write(data)
	}
	w.Close()
	return &buf, w.FormDataContentType()
}

func TestFileUploadAndDelete(t *testing.T) {
	ts := newTestServer(t, &fakeTransport{}, "http://inference.test/extract")

	body, contentType := uploadBody(t, map[string][]byte{"doc.pdf": []byte("%PDF-fake")})
	w := ts.do(http.MethodPost, "/api/files", body, map[string]string{"Content-Type": contentType})
	if w.Code != http.StatusOK {
		t.Fatalf("upload: status %d: %s", w.Code, w.Body.String())
	}

	var state FilesState
	json.Unmarshal(w.Body.Bytes(), &state)
	if len(state.Files) != 1 || state.Files[0].Name != "doc.pdf" {
		t.Fatalf("files = %+v", state.Files)
	}
	if state.Files[0].Kind != form.KindPDF {
		t.Errorf("Kind = %q, want PDF", state.Files[0].Kind)
	}
	if state.Budget.TotalBytes != int64(len("%PDF-fake")) {
		t.Errorf("TotalBytes = %d", state.Budget.TotalBytes)
	}

	w = ts.do(http.MethodDelete, "/api/files/0", nil, nil)
	json.Unmarshal(w.Body.Bytes(), &state)
	if len(state.Files) != 0 {
		t.Errorf("files after delete = %+v", state.Files)
	}
}

func TestPreviewTokenLifecycle(t *testing.T) {
	ts := newTestServer(t, &fakeTransport{}, "http://inference.test/extract")

	body, contentType := uploadBody(t, map[string][]byte{"doc.pdf": []byte("%PDF-fake")})
	ts.do(http.MethodPost, "/api/files", body, map[string]string{"Content-Type": contentType})

	w := ts.do(http.MethodPost, "/api/files/0/preview", strings.NewReader("returnFocus=btn-0"),
		map[string]string{"Content-Type": "application/x-www-form-urlencoded"})
	if w.Code != http.StatusOK {
		t.Fatalf("open preview: status %d: %s", w.Code, w.Body.String())
	}

	var pv form.Preview
	json.Unmarshal(w.Body.Bytes(), &pv)
	if pv.Kind != form.PreviewPDF || pv.Token == "" {
		t.Fatalf("preview = %+v", pv)
	}

	// Live token serves the bytes.
	w = ts.do(http.MethodGet, "/preview/"+pv.Token, nil, nil)
	if w.Code != http.StatusOK || w.Body.String() != "%PDF-fake" {
		t.Errorf("serve preview: status %d body %q", w.Code, w.Body.String())
	}

	// Closing revokes the token.
	w = ts.do(http.MethodDelete, "/api/preview", nil, nil)
	var closed struct {
		ReturnFocus string `json:"returnFocus"`
		WasOpen     bool   `json:"wasOpen"`
	}
	json.Unmarshal(w.Body.Bytes(), &closed)
	if !closed.WasOpen || closed.ReturnFocus != "btn-0" {
		t.Errorf("close = %+v", closed)
	}

	w = ts.do(http.MethodGet, "/preview/"+pv.Token, nil, nil)
	if w.Code != http.StatusNotFound {
		t.Errorf("revoked token: status %d, want 404", w.Code)
	}
}

func TestPreviewNonPreviewableKind(t *testing.T) {
	ts := newTestServer(t, &fakeTransport{}, "http://inference.test/extract")

	body, contentType := uploadBody(t, map[string][]byte{"notes.txt": []byte("hello")})
	ts.do(http.MethodPost, "/api/files", body, map[string]string{"Content-Type": contentType})

	w := ts.do(http.MethodPost, "/api/files/0/preview", nil, nil)
	var pv form.Preview
	json.Unmarshal(w.Body.Bytes(), &pv)
	if pv.Kind != form.PreviewNone || pv.Token != "" {
		t.Errorf("preview = %+v, want placeholder with no token", pv)
	}
}

func submitForm(ts *testServer, values url.Values, header map[string]string) *httptest.ResponseRecorder {
	if header == nil {
		header = map[string]string{}
	}
	header["Content-Type"] = "application/x-www-form-urlencoded"
	return ts.do(http.MethodPost, "/api/submit", strings.NewReader(values.Encode()), header)
}

func TestSubmitValidationFailure(t *testing.T) {
	transport := &fakeTransport{}
	ts := newTestServer(t, transport, "http://inference.test/extract")

	// One unnamed field: NAME_REQUIRED plus NO_FIELDS.
	ts.doJSON(http.MethodPost, "/api/fields", nil)

	w := submitForm(ts, url.Values{"prompt": {"go"}}, map[string]string{"Accept": "application/json"})
	if w.Code != http.StatusUnprocessableEntity {
		t.Fatalf("status = %d, want 422: %s", w.Code, w.Body.String())
	}

	var out struct {
		Code       string                `json:"code"`
		Validation form.ValidationResult `json:"validation"`
		FocusID    string                `json:"focusId"`
	}
	json.Unmarshal(w.Body.Bytes(), &out)
	if out.Code != "VALIDATION_FAILED" || out.FocusID == "" {
		t.Errorf("response = %s", w.Body.String())
	}
	if transport.last != nil {
		t.Error("transport called despite validation failure")
	}
}

func TestSubmitSuccessJSON(t *testing.T) {
	transport := &fakeTransport{}
	ts := newTestServer(t, transport, "http://inference.test/extract")

	w := ts.doJSON(http.MethodPost, "/api/fields", nil)
	var created struct {
		ID string `json:"id"`
	}
	json.Unmarshal(w.Body.Bytes(), &created)
	ts.doJSON(http.MethodPatch, "/api/fields/"+created.ID, map[string]any{"name": "title"})

	w = submitForm(ts, url.Values{"prompt": {"extract"}}, map[string]string{"Accept": "application/json"})
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", w.Code, w.Body.String())
	}

	var resp inference.Response
	json.Unmarshal(w.Body.Bytes(), &resp)
	if !resp.OK || resp.TraceID != "trace-1" {
		t.Errorf("response = %s", w.Body.String())
	}

	if transport.last.Model != "gemini-2.5-flash" {
		t.Errorf("default model not applied: %q", transport.last.Model)
	}
	if !strings.Contains(transport.last.Schema, `"title"`) {
		t.Errorf("schema = %s", transport.last.Schema)
	}
}

func TestSubmitSuccessHTMXFragment(t *testing.T) {
	ts := newTestServer(t, &fakeTransport{}, "http://inference.test/extract")

	w := ts.doJSON(http.MethodPost, "/api/fields", nil)
	var created struct {
		ID string `json:"id"`
	}
	json.Unmarshal(w.Body.Bytes(), &created)
	ts.doJSON(http.MethodPatch, "/api/fields/"+created.ID, map[string]any{"name": "title"})

	w = submitForm(ts, url.Values{"prompt": {"extract"}}, map[string]string{"HX-Request": "true"})
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", w.Code, w.Body.String())
	}

	html := w.Body.String()
	if !strings.Contains(html, "<table") || !strings.Contains(html, "<th>title</th>") {
		t.Errorf("fragment = %s", html)
	}
	if !strings.Contains(html, "trace-1") {
		t.Errorf("metadata missing from fragment: %s", html)
	}
}

func TestSubmitWithoutEndpoint(t *testing.T) {
	ts := newTestServer(t, nil, "")

	w := ts.doJSON(http.MethodPost, "/api/fields", nil)
	var created struct {
		ID string `json:"id"`
	}
	json.Unmarshal(w.Body.Bytes(), &created)
	ts.doJSON(http.MethodPatch, "/api/fields/"+created.ID, map[string]any{"name": "title"})

	w = submitForm(ts, url.Values{"prompt": {"x"}}, map[string]string{"Accept": "application/json"})
	if w.Code != http.StatusServiceUnavailable {
		t.Errorf("status = %d, want 503: %s", w.Code, w.Body.String())
	}
}

func TestSubmitAppErrorSurfacesBanner(t *testing.T) {
	transport := &fakeTransport{err: &inference.AppError{Message: "schema rejected", TraceID: "t-2"}}
	ts := newTestServer(t, transport, "http://inference.test/extract")

	w := ts.doJSON(http.MethodPost, "/api/fields", nil)
	var created struct {
		ID string `json:"id"`
	}
	json.Unmarshal(w.Body.Bytes(), &created)
	ts.doJSON(http.MethodPatch, "/api/fields/"+created.ID, map[string]any{"name": "title"})

	w = submitForm(ts, url.Values{"prompt": {"x"}}, map[string]string{"HX-Request": "true"})
	if w.Code != http.StatusBadGateway {
		t.Errorf("status = %d, want 502", w.Code)
	}
	if !strings.Contains(w.Body.String(), "schema rejected") {
		t.Errorf("banner = %s", w.Body.String())
	}
}

func TestSubmitSizeOverLimit(t *testing.T) {
	ts := newTestServer(t, &fakeTransport{}, "http://inference.test/extract")

	// Budget is 1 MiB; stage past it.
	big := bytes.Repeat([]byte("a"), (1<<20)+1)
	body, contentType := uploadBody(t, map[string][]byte{"big.bin": big})
	w := ts.do(http.MethodPost, "/api/files", body, map[string]string{"Content-Type": contentType})
	if w.Code != http.StatusOK {
		t.Fatalf("upload: status %d", w.Code)
	}

	w = ts.doJSON(http.MethodPost, "/api/fields", nil)
	var created struct {
		ID string `json:"id"`
	}
	json.Unmarshal(w.Body.Bytes(), &created)
	ts.doJSON(http.MethodPatch, "/api/fields/"+created.ID, map[string]any{"name": "title"})

	w = submitForm(ts, url.Values{"prompt": {"x"}}, map[string]string{"Accept": "application/json"})
	if w.Code != http.StatusRequestEntityTooLarge {
		t.Errorf("status = %d, want 413: %s", w.Code, w.Body.String())
	}
}

func TestClearResetsSession(t *testing.T) {
	ts := newTestServer(t, &fakeTransport{}, "http://inference.test/extract")

	ts.doJSON(http.MethodPost, "/api/fields", nil)
	body, contentType := uploadBody(t, map[string][]byte{"doc.pdf": []byte("x")})
	ts.do(http.MethodPost, "/api/files", body, map[string]string{"Content-Type": contentType})

	w := ts.doJSON(http.MethodPost, "/api/clear", nil)
	state := decodeState(t, w)
	if len(state.Fields) != 0 || state.Budget.TotalBytes != 0 {
		t.Errorf("state after clear = %s", w.Body.String())
	}
}

func TestSessionCookiePersistsState(t *testing.T) {
	ts := newTestServer(t, &fakeTransport{}, "http://inference.test/extract")

	ts.doJSON(http.MethodPost, "/api/fields", nil)
	if ts.cookie == nil {
		t.Fatal("no session cookie set")
	}
	if !ts.cookie.HttpOnly {
		t.Error("session cookie is not HttpOnly")
	}

	// Same cookie sees the field; a fresh browser does not.
	w := ts.doJSON(http.MethodPost, "/api/fields", nil)
	var second struct {
		Fields []form.Field `json:"fields"`
	}
	json.Unmarshal(w.Body.Bytes(), &second)
	if len(second.Fields) != 2 {
		t.Errorf("returning session sees %d fields, want 2", len(second.Fields))
	}

	fresh := newTestServer(t, &fakeTransport{}, "http://inference.test/extract")
	w = fresh.doJSON(http.MethodPost, "/api/fields", nil)
	var other struct {
		Fields []form.Field `json:"fields"`
	}
	json.Unmarshal(w.Body.Bytes(), &other)
	if len(other.Fields) != 1 {
		t.Errorf("fresh session sees %d fields, want 1", len(other.Fields))
	}
}

func TestIndexShowsConfigWarningWhenUnconfigured(t *testing.T) {
	ts := newTestServer(t, nil, "")

	w := ts.do(http.MethodGet, "/", nil, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), "config-warning") {
		t.Errorf("page missing configuration warning: %s", w.Body.String())
	}

	configured := newTestServer(t, &fakeTransport{}, "http://inference.test/extract")
	w = configured.do(http.MethodGet, "/", nil, nil)
	if strings.Contains(w.Body.String(), "config-warning") {
		t.Error("configured server still shows the warning")
	}
}

func TestHealthz(t *testing.T) {
	ts := newTestServer(t, &fakeTransport{}, "http://inference.test/extract")

	w := ts.do(http.MethodGet, "/healthz", nil, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), `"ok"`) {
		t.Errorf("body = %s", w.Body.String())
	}
}

func TestAuditEndpointDisabledWithoutDatabase(t *testing.T) {
	ts := newTestServer(t, &fakeTransport{}, "http://inference.test/extract")

	w := ts.do(http.MethodGet, "/api/audit", nil, nil)
	if w.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", w.Code)
	}
}

func TestLocalePicksSpanishFromHeader(t *testing.T) {
	ts := newTestServer(t, nil, "")

	w := ts.do(http.MethodGet, "/", nil, map[string]string{"Accept-Language": "es-ES,es;q=0.9"})
	if !strings.Contains(w.Body.String(), `lang="es"`) {
		t.Errorf("page not rendered in Spanish: %s", w.Body.String())
	}
}
