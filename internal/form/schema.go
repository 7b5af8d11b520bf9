package form

// schema.go compiles the field set into the structured-output schema sent to
// the inference endpoint. The endpoint's schema dialect uses upper-case type
// names (OBJECT, ARRAY, STRING, NUMBER, BOOLEAN) and an optional per-property
// format hint.
//
// Compilation is a pure function of the field snapshot: no side effects, and
// identical input always produces byte-identical output. Property order in
// the emitted document equals field-set order, which requires hand-rolled
// JSON marshalling since map-backed objects would not preserve it.

import (
	"bytes"
	"encoding/json"
)

// Property is a single compiled schema property in declaration order.
type Property struct {
	Name        string
	Type        string
	Format      string
	Description string
}

// SchemaDoc is a compiled schema document: either an object schema with
// ordered properties, or an array schema wrapping an item schema.
type SchemaDoc struct {
	Type       string
	Properties []Property
	Required   []string
	Items      *SchemaDoc
}

// Compile derives the schema document for the given fields. Fields with an
// empty name are skipped entirely. DATE fields emit as STRING with a "date"
// format hint. The required list contains the de-duplicated names of fields
// marked required, in first-occurrence order. When wrapAsList is true the
// object schema is wrapped as the item schema of an array.
func Compile(fields []Field, wrapAsList bool) SchemaDoc {
	obj := SchemaDoc{
		Type:     "OBJECT",
		Required: []string{},
	}

	seen := make(map[string]bool)
	for _, f := range fields {
		if f.Name == "" {
			continue
		}

		p := Property{Name: f.Name, Description: f.Description}
		if f.Type == TypeDate {
			p.Type = string(TypeString)
			p.Format = "date"
		} else {
			p.Type = string(f.Type)
		}
		obj.Properties = append(obj.Properties, p)

		if f.Required && !seen[f.Name] {
			seen[f.Name] = true
			obj.Required = append(obj.Required, f.Name)
		}
	}

	if wrapAsList {
		return SchemaDoc{Type: "ARRAY", Items: &obj}
	}
	return obj
}

// MarshalJSON emits the document with properties in declaration order.
func (d SchemaDoc) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	if err := d.encode(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (d SchemaDoc) encode(buf *bytes.Buffer) error {
	buf.WriteByte('{')
	buf.WriteString(`"type":`)
	if err := writeJSON(buf, d.Type); err != nil {
		return err
	}

	if d.Items != nil {
		buf.WriteString(`,"items":`)
		if err := d.Items.encode(buf); err != nil {
			return err
		}
		buf.WriteByte('}')
		return nil
	}

	buf.WriteString(`,"properties":{`)
	for i, p := range d.Properties {
		if i > 0 {
			buf.WriteByte(',')
		}
		if err := writeJSON(buf, p.Name); err != nil {
			return err
		}
		buf.WriteByte(':')
		if err := p.encode(buf); err != nil {
			return err
		}
	}
	buf.WriteByte('}')

	buf.WriteString(`,"required":`)
	if err := writeJSON(buf, d.Required); err != nil {
		return err
	}

	buf.WriteByte('}')
	return nil
}

func (p Property) encode(buf *bytes.Buffer) error {
	buf.WriteByte('{')
	buf.WriteString(`"type":`)
	if err := writeJSON(buf, p.Type); err != nil {
		return err
	}
	if p.Format != "" {
		buf.WriteString(`,"format":`)
		if err := writeJSON(buf, p.Format); err != nil {
			return err
		}
	}
	if p.Description != "" {
		buf.WriteString(`,"description":`)
		if err := writeJSON(buf, p.Description); err != nil {
			return err
		}
	}
	buf.WriteByte('}')
	return nil
}

func writeJSON(buf *bytes.Buffer, v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	buf.Write(b)
	return nil
}

// Encode returns the compact JSON encoding of the document. The result is
// deterministic, so it doubles as the canonical wire form of the schema.
func (d SchemaDoc) Encode() string {
	b, err := json.Marshal(d)
	if err != nil {
		// Only reachable if a name contains invalid UTF-8, which json.Marshal
		// replaces rather than rejecting; keep the signature infallible.
		return ""
	}
	return string(b)
}

// EncodeIndent returns the two-space indented encoding used for the on-page
// schema preview.
func (d SchemaDoc) EncodeIndent() string {
	compact := d.Encode()
	var out bytes.Buffer
	if err := json.Indent(&out, []byte(compact), "", "  "); err != nil {
		return compact
	}
	return out.String()
}
