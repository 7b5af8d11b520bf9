// Package render turns inference responses into HTML fragments. Components
// are built with templ's ComponentFunc API so handlers can compose and serve
// them the same way as page templates.
//
// The column ordering rule is the whole point of this package: columns the
// user declared come first, in the order they declared them, and any extra
// keys the endpoint returned are appended in first-seen order. That keeps the
// rendered table aligned with the schema the user built even when the
// response carries extra or missing keys.
package render

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/a-h/templ"
)

// Labels carries the localized display strings the renderer needs. The
// renderer itself never performs translation lookups.
type Labels struct {
	ErrorResult string // banner text for an unrenderable payload
	EmptyResult string // notice text for an empty array result
	Model       string // metadata label for the model name
	Trace       string // metadata label for the trace identifier
}

// Result renders the response payload. Dispatch follows the payload's data
// member: null or a scalar renders the error view, an empty array the empty
// view, a non-empty array a table with one row per element, and a single
// object a one-row table.
func Result(data []byte, model, traceID string, fieldOrder []string, labels Labels) templ.Component {
	v, err := decodeOrdered(data)
	if err != nil {
		return ErrorBanner(labels.ErrorResult)
	}

	meta := fmt.Sprintf("%s: %s · %s: %s", labels.Model, model, labels.Trace, traceID)

	switch val := v.(type) {
	case nil:
		return ErrorBanner(labels.ErrorResult)

	case []any:
		if len(val) == 0 {
			return EmptyNotice(labels.EmptyResult)
		}
		columns := orderColumns(columnUnion(val), fieldOrder)
		rows := make([][]string, 0, len(val))
		for _, el := range val {
			rows = append(rows, buildRow(el, columns))
		}
		return resultTable(columns, rows, meta)

	case *orderedObject:
		columns := orderColumns(val.keys, fieldOrder)
		return resultTable(columns, [][]string{buildRow(val, columns)}, meta)

	default:
		// Strings, numbers and booleans are not renderable results.
		return ErrorBanner(labels.ErrorResult)
	}
}

// ErrorBanner renders a terminal error banner for the result area.
func ErrorBanner(msg string) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		_, err := io.WriteString(w,
			`<div class="banner banner-error">`+templ.EscapeString(msg)+`</div>`)
		return err
	})
}

// EmptyNotice renders the empty-result view.
func EmptyNotice(msg string) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		_, err := io.WriteString(w,
			`<div class="status">`+templ.EscapeString(msg)+`</div>`)
		return err
	})
}

// resultTable renders the column headers, one row per record, and the
// metadata line naming the model and trace identifier.
func resultTable(columns []string, rows [][]string, meta string) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		var b strings.Builder
		b.WriteString(`<table class="result-table"><thead><tr>`)
		for _, col := range columns {
			b.WriteString(`<th>` + templ.EscapeString(col) + `</th>`)
		}
		b.WriteString(`</tr></thead><tbody>`)
		for _, row := range rows {
			b.WriteString(`<tr>`)
			for _, cell := range row {
				b.WriteString(`<td>` + templ.EscapeString(cell) + `</td>`)
			}
			b.WriteString(`</tr>`)
		}
		b.WriteString(`</tbody></table>`)
		b.WriteString(`<div class="status">` + templ.EscapeString(meta) + `</div>`)

		_, err := io.WriteString(w, b.String())
		return err
	})
}

// columnUnion collects the union of keys across all rows in first-seen
// order. Non-object rows contribute no keys.
func columnUnion(rows []any) []string {
	var union []string
	seen := make(map[string]bool)
	for _, row := range rows {
		obj, ok := row.(*orderedObject)
		if !ok {
			continue
		}
		for _, k := range obj.keys {
			if !seen[k] {
				seen[k] = true
				union = append(union, k)
			}
		}
	}
	return union
}

// orderColumns applies the declared-fields-first rule to the key union.
func orderColumns(union, fieldOrder []string) []string {
	inUnion := make(map[string]bool, len(union))
	for _, k := range union {
		inUnion[k] = true
	}

	ordered := make([]string, 0, len(union))
	taken := make(map[string]bool, len(union))
	for _, k := range fieldOrder {
		if inUnion[k] && !taken[k] {
			taken[k] = true
			ordered = append(ordered, k)
		}
	}
	for _, k := range union {
		if !taken[k] {
			taken[k] = true
			ordered = append(ordered, k)
		}
	}
	return ordered
}

// buildRow renders one table row. Missing keys produce empty cells; explicit
// nulls render as the literal text "null".
func buildRow(row any, columns []string) []string {
	cells := make([]string, len(columns))
	obj, ok := row.(*orderedObject)
	if !ok {
		return cells
	}
	for i, col := range columns {
		v, present := obj.values[col]
		if !present {
			continue
		}
		cells[i] = formatValue(v)
	}
	return cells
}

// formatValue renders a decoded JSON value as cell text.
func formatValue(v any) string {
	switch val := v.(type) {
	case nil:
		return "null"
	case string:
		return val
	case json.Number:
		return val.String()
	case bool:
		return strconv.FormatBool(val)
	default:
		// Nested objects and arrays render as compact JSON.
		b, err := json.Marshal(val)
		if err != nil {
			return ""
		}
		return string(b)
	}
}

// orderedObject is a JSON object with its key order preserved.
type orderedObject struct {
	keys   []string
	values map[string]any
}

// MarshalJSON re-emits the object with its original key order, for nested
// values rendered as compact JSON.
func (o *orderedObject) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, k := range o.keys {
		if i > 0 {
			buf.WriteByte(',')
		}
		kb, err := json.Marshal(k)
		if err != nil {
			return nil, err
		}
		buf.Write(kb)
		buf.WriteByte(':')
		vb, err := json.Marshal(o.values[k])
		if err != nil {
			return nil, err
		}
		buf.Write(vb)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// decodeOrdered parses JSON preserving object key order. encoding/json maps
// randomize iteration order, which would break the first-seen column rule,
// so objects decode into orderedObject via the token stream.
func decodeOrdered(data []byte) (any, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, nil
	}

	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	v, err := decodeValue(dec)
	if err != nil {
		return nil, err
	}
	return v, nil
}

func decodeValue(dec *json.Decoder) (any, error) {
	tok, err := dec.Token()
	if err != nil {
		return nil, err
	}

	switch t := tok.(type) {
	case json.Delim:
		switch t {
		case '{':
			obj := &orderedObject{values: make(map[string]any)}
			for dec.More() {
				keyTok, err := dec.Token()
				if err != nil {
					return nil, err
				}
				key, ok := keyTok.(string)
				if !ok {
					return nil, fmt.Errorf("unexpected object key token %v", keyTok)
				}
				val, err := decodeValue(dec)
				if err != nil {
					return nil, err
				}
				if _, dup := obj.values[key]; !dup {
					obj.keys = append(obj.keys, key)
				}
				obj.values[key] = val
			}
			// Consume the closing brace.
			if _, err := dec.Token(); err != nil {
				return nil, err
			}
			return obj, nil

		case '[':
			arr := []any{}
			for dec.More() {
				val, err := decodeValue(dec)
				if err != nil {
					return nil, err
				}
				arr = append(arr, val)
			}
			if _, err := dec.Token(); err != nil {
				return nil, err
			}
			return arr, nil
		}
		return nil, fmt.Errorf("unexpected delimiter %v", t)

	default:
		// nil, string, json.Number or bool.
		return tok, nil
	}
}
