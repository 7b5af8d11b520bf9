// Package inference is the outbound client for the remote structured-output
// endpoint. A request carries the prompt, system instruction, stringified
// schema, model identifier and locale; when files are attached the request is
// encoded as multipart form data with repeated files[] parts, otherwise as a
// single JSON document. The endpoint always answers with a JSON envelope
// {ok, data, error, model, trace_id, usage}.
package inference

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"strings"
	"time"
)

// ErrNoEndpoint is returned when no endpoint URL is configured. The web
// layer surfaces this as a persistent configuration warning rather than a
// request failure.
var ErrNoEndpoint = errors.New("inference endpoint not configured")

// genericFailure is the fallback message when the endpoint reports failure
// without an error string.
const genericFailure = "request failed"

// File is a binary attachment sent alongside the prompt.
type File struct {
	Name     string
	MimeType string
	Data     []byte
}

// Request is a single extraction request.
type Request struct {
	Prompt            string
	SystemInstruction string
	Schema            string
	Model             string
	Locale            string
	Files             []File
}

// Response is the endpoint's reply envelope. Data is kept raw; the renderer
// decides how to interpret it.
type Response struct {
	OK      bool            `json:"ok"`
	Data    json.RawMessage `json:"data"`
	Error   string          `json:"error,omitempty"`
	Model   string          `json:"model,omitempty"`
	TraceID string          `json:"trace_id,omitempty"`
	Usage   map[string]any  `json:"usage,omitempty"`
}

// AppError is an application-level failure: the transport succeeded but the
// endpoint reported ok=false (or omitted the acknowledgement entirely).
type AppError struct {
	Message string
	TraceID string
}

func (e *AppError) Error() string {
	return e.Message
}

// Client submits extraction requests over HTTP.
type Client struct {
	endpoint string
	http     *http.Client
	limiter  *Limiter
}

// NewClient creates a client for the given endpoint URL. An empty endpoint
// is allowed; Submit then fails with ErrNoEndpoint until one is configured.
// The limiter may be nil to disable concurrency capping.
func NewClient(endpoint string, timeout time.Duration, limiter *Limiter) *Client {
	return &Client{
		endpoint: endpoint,
		http:     &http.Client{Timeout: timeout},
		limiter:  limiter,
	}
}

// Configured reports whether an endpoint URL is set.
func (c *Client) Configured() bool {
	return c.endpoint != ""
}

// Submit sends the request and decodes the response envelope. It returns an
// *AppError when the endpoint answers without a positive acknowledgement,
// and a wrapped transport error when the call or the decode fails.
func (c *Client) Submit(ctx context.Context, req Request) (*Response, error) {
	if c.endpoint == "" {
		return nil, ErrNoEndpoint
	}

	if c.limiter != nil {
		if err := c.limiter.Acquire(ctx); err != nil {
			return nil, err
		}
		defer c.limiter.Release()
	}

	var body io.Reader
	var contentType string
	var err error

	if len(req.Files) > 0 {
		body, contentType, err = encodeMultipart(req)
	} else {
		body, contentType, err = encodeJSON(req)
	}
	if err != nil {
		return nil, fmt.Errorf("encode request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, body)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	httpReq.Header.Set("Content-Type", contentType)

	httpResp, err := c.http.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("call inference endpoint: %w", err)
	}
	defer httpResp.Body.Close()

	var resp Response
	if err := json.NewDecoder(httpResp.Body).Decode(&resp); err != nil {
		return nil, fmt.Errorf("decode response (status %d): %w", httpResp.StatusCode, err)
	}

	if !resp.OK {
		msg := resp.Error
		if msg == "" {
			msg = genericFailure
		}
		return nil, &AppError{Message: msg, TraceID: resp.TraceID}
	}

	return &resp, nil
}

// encodeJSON builds the no-files request body.
func encodeJSON(req Request) (io.Reader, string, error) {
	payload := map[string]string{
		"prompt":             req.Prompt,
		"system_instruction": req.SystemInstruction,
		"schema":             req.Schema,
		"model":              req.Model,
		"locale":             req.Locale,
	}
	b, err := json.Marshal(payload)
	if err != nil {
		return nil, "", err
	}
	return bytes.NewReader(b), "application/json", nil
}

// encodeMultipart builds the with-files request body: one files[] part per
// attachment carrying its original name and MIME type, plus the same five
// text fields as the JSON encoding.
func encodeMultipart(req Request) (io.Reader, string, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	for _, f := range req.Files {
		hdr := make(textproto.MIMEHeader)
		hdr.Set("Content-Disposition",
			fmt.Sprintf(`form-data; name="files[]"; filename="%s"`, escapeQuotes(f.Name)))
		mt := f.MimeType
		if mt == "" {
			mt = "application/octet-stream"
		}
		hdr.Set("Content-Type", mt)

		part, err := w.CreatePart(hdr)
		if err != nil {
			return nil, "", err
		}
		if _, err := part.Write(f.Data); err != nil {
			return nil, "", err
		}
	}

	fields := map[string]string{
		"prompt":             req.Prompt,
		"system_instruction": req.SystemInstruction,
		"schema":             req.Schema,
		"model":              req.Model,
		"locale":             req.Locale,
	}
	for _, name := range []string{"prompt", "system_instruction", "schema", "model", "locale"} {
		if err := w.WriteField(name, fields[name]); err != nil {
			return nil, "", err
		}
	}

	if err := w.Close(); err != nil {
		return nil, "", err
	}
	return &buf, w.FormDataContentType(), nil
}

func escapeQuotes(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `"`, `\"`)
	return r.Replace(s)
}
