// Package form implements the form-building core: the ordered set of output
// field definitions, schema compilation, validation, file staging with a byte
// budget, the preview resource lifecycle, and the submission state machine.
//
// All state in this package is session-scoped. Mutations replace the backing
// sequence atomically under a lock, so concurrent readers never observe a
// partially applied edit.
package form

import (
	"sync"

	"github.com/google/uuid"
)

// FieldType is the declared output type of a field definition.
type FieldType string

// Recognized field types. DATE has no native primitive in the target schema
// representation; the compiler lowers it to a string with a date format hint.
const (
	TypeString  FieldType = "STRING"
	TypeNumber  FieldType = "NUMBER"
	TypeBoolean FieldType = "BOOLEAN"
	TypeDate    FieldType = "DATE"
)

// RecognizedType reports whether t is one of the four declared field types.
func RecognizedType(t FieldType) bool {
	switch t {
	case TypeString, TypeNumber, TypeBoolean, TypeDate:
		return true
	}
	return false
}

// Field is a single user-declared output property. Identity is the ID,
// assigned once at creation and stable across edits and reorders.
type Field struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Type        FieldType `json:"type"`
	Required    bool      `json:"required"`
	Description string    `json:"description"`
}

// FieldPatch is a partial update to a field. Nil members are left unchanged.
type FieldPatch struct {
	Name        *string
	Type        *FieldType
	Required    *bool
	Description *string
}

// FieldSet is an ordered, mutable collection of field definitions. Order is
// significant: it drives schema property order and result column order.
type FieldSet struct {
	mu     sync.RWMutex
	fields []Field
}

// NewFieldSet returns an empty field set.
func NewFieldSet() *FieldSet {
	return &FieldSet{}
}

// Append creates a new field with defaults (type STRING, required, empty name
// and description) and returns its ID.
func (fs *FieldSet) Append() string {
	f := Field{
		ID:       uuid.NewString(),
		Type:     TypeString,
		Required: true,
	}

	fs.mu.Lock()
	defer fs.mu.Unlock()

	next := make([]Field, len(fs.fields)+1)
	copy(next, fs.fields)
	next[len(fs.fields)] = f
	fs.fields = next

	return f.ID
}

// Remove deletes the field with the given ID. Unknown IDs are a no-op.
func (fs *FieldSet) Remove(id string) {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	idx := fs.indexOf(id)
	if idx < 0 {
		return
	}

	next := make([]Field, 0, len(fs.fields)-1)
	next = append(next, fs.fields[:idx]...)
	next = append(next, fs.fields[idx+1:]...)
	fs.fields = next
}

// Move relocates the field at index from to position to. The target position
// is interpreted against the sequence with the source element already
// removed, so Move(0, 2) on [X,Y,Z] yields [Y,Z,X] and Move(2, 0) yields
// [Z,X,Y]. Out-of-range indices are clamped; a target at or past the end
// appends. Equal indices are a no-op.
func (fs *FieldSet) Move(from, to int) {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	n := len(fs.fields)
	if n == 0 {
		return
	}
	if from < 0 {
		from = 0
	}
	if from >= n {
		from = n - 1
	}
	if to < 0 {
		to = 0
	}
	if to > n-1 {
		to = n - 1
	}
	if from == to {
		return
	}

	moved := fs.fields[from]
	next := make([]Field, 0, n)
	next = append(next, fs.fields[:from]...)
	next = append(next, fs.fields[from+1:]...)
	next = append(next[:to], append([]Field{moved}, next[to:]...)...)
	fs.fields = next
}

// Update applies a partial change to the field with the given ID. Unknown IDs
// are a silent no-op.
func (fs *FieldSet) Update(id string, patch FieldPatch) {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	idx := fs.indexOf(id)
	if idx < 0 {
		return
	}

	next := make([]Field, len(fs.fields))
	copy(next, fs.fields)

	f := &next[idx]
	if patch.Name != nil {
		f.Name = *patch.Name
	}
	if patch.Type != nil {
		f.Type = *patch.Type
	}
	if patch.Required != nil {
		f.Required = *patch.Required
	}
	if patch.Description != nil {
		f.Description = *patch.Description
	}

	fs.fields = next
}

// Fields returns a snapshot of the current sequence.
func (fs *FieldSet) Fields() []Field {
	fs.mu.RLock()
	defer fs.mu.RUnlock()

	out := make([]Field, len(fs.fields))
	copy(out, fs.fields)
	return out
}

// Names returns the non-empty field names in store order. This is the column
// ordering hint handed to the result renderer.
func (fs *FieldSet) Names() []string {
	fs.mu.RLock()
	defer fs.mu.RUnlock()

	var names []string
	for _, f := range fs.fields {
		if f.Name != "" {
			names = append(names, f.Name)
		}
	}
	return names
}

// Len returns the number of fields.
func (fs *FieldSet) Len() int {
	fs.mu.RLock()
	defer fs.mu.RUnlock()
	return len(fs.fields)
}

// Clear removes all fields.
func (fs *FieldSet) Clear() {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	fs.fields = nil
}

// indexOf returns the position of the field with the given ID, or -1.
// Caller must hold the lock.
func (fs *FieldSet) indexOf(id string) int {
	for i, f := range fs.fields {
		if f.ID == id {
			return i
		}
	}
	return -1
}
