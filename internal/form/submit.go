package form

// submit.go is the submission state machine. The controller has exactly two
// states, idle and submitting, and serializes submissions per session: a
// submit arriving while one is in flight is rejected outright, never queued.
// Field and file editing stays unlocked while a submission is outstanding.
//
// Submit order of checks matters and mirrors the form's behavior:
//  1. a size budget in the OVER state aborts silently, before validation,
//  2. validation errors abort with the result and a focus target,
//  3. only then is the schema compiled and the request transmitted.

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/formforge/formforge/internal/inference"
)

// ErrSubmissionInFlight is returned when a submit arrives while another is
// outstanding for the same session.
var ErrSubmissionInFlight = errors.New("submission already in progress")

// ErrSizeOverLimit is returned when the staged files exceed the byte budget.
// It deliberately carries no validation detail: the size banner is the only
// feedback for this state.
var ErrSizeOverLimit = errors.New("staged files exceed the size limit")

// ValidationFailedError aborts a submission on field errors. FocusID names
// the first invalid field so the page can move focus to it.
type ValidationFailedError struct {
	Result  ValidationResult
	FocusID string
}

func (e *ValidationFailedError) Error() string {
	return "validation failed"
}

// Transport sends a prepared request to the inference endpoint.
type Transport interface {
	Submit(ctx context.Context, req inference.Request) (*inference.Response, error)
}

// Defaults are the fallback values applied when a submission omits them.
type Defaults struct {
	Model             string
	SystemInstruction string
	Locale            string
}

// SubmitInput is the free-text portion of a submission.
type SubmitInput struct {
	Prompt            string
	SystemInstruction string
	Model             string
	Locale            string
	WrapAsList        bool
}

// Controller orchestrates validate, serialize, transport and result
// dispatch for one session.
type Controller struct {
	transport Transport
	defaults  Defaults

	mu         sync.Mutex
	submitting bool
}

// NewController creates a controller over the given transport.
func NewController(transport Transport, defaults Defaults) *Controller {
	return &Controller{transport: transport, defaults: defaults}
}

// Submitting reports whether a submission is in flight.
func (c *Controller) Submitting() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.submitting
}

// Submit runs the full pipeline against the current field and file state.
// On success it returns the endpoint's response for rendering. All failure
// modes return the controller to idle; there is no retry state.
func (c *Controller) Submit(ctx context.Context, fields *FieldSet, files *StagingArea, in SubmitInput) (*inference.Response, error) {
	if !c.begin() {
		return nil, ErrSubmissionInFlight
	}
	defer c.end()

	// The size gate outranks validation: an over-budget form never shows
	// field errors and never reaches the network.
	if files.Budget().State == BudgetOver {
		return nil, ErrSizeOverLimit
	}

	snapshot := fields.Fields()
	result := Validate(snapshot)
	if !result.OK() {
		focusID := ""
		if i := result.FirstInvalid(); i >= 0 {
			focusID = snapshot[i].ID
		}
		return nil, &ValidationFailedError{Result: result, FocusID: focusID}
	}

	schema := Compile(snapshot, in.WrapAsList)

	req := inference.Request{
		Prompt:            in.Prompt,
		SystemInstruction: in.SystemInstruction,
		Schema:            schema.EncodeIndent(),
		Model:             in.Model,
		Locale:            in.Locale,
	}
	if req.SystemInstruction == "" {
		req.SystemInstruction = c.defaults.SystemInstruction
	}
	if req.Model == "" {
		req.Model = c.defaults.Model
	}
	if req.Locale == "" {
		req.Locale = c.defaults.Locale
	}

	for _, f := range files.Files() {
		req.Files = append(req.Files, inference.File{
			Name:     f.Name,
			MimeType: f.MimeType,
			Data:     f.Data,
		})
	}

	resp, err := c.transport.Submit(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("submit extraction: %w", err)
	}
	return resp, nil
}

// begin transitions idle -> submitting; it fails if already submitting.
func (c *Controller) begin() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.submitting {
		return false
	}
	c.submitting = true
	return true
}

// end transitions back to idle unconditionally.
func (c *Controller) end() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.submitting = false
}
