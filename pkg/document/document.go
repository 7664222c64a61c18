// Package document defines the document model shared by the stores and the
// service layer: an open field mapping with reserved identifier and timestamp
// fields, plus the query/params shapes used by find operations.
package document

import (
	"encoding/json"
	"strconv"
)

// Reserved field names present on every persisted document.
const (
	FieldID       = "id"
	FieldCreated  = "created"
	FieldUpdated  = "updated"
	FieldInternal = "internal"
)

// Document is an open mapping from field name to value. Values follow JSON
// conventions: strings, bools, numbers, []any and nested Documents.
type Document map[string]any

// ID returns the document identifier, or "" when unset.
func (d Document) ID() string {
	id, _ := d[FieldID].(string)
	return id
}

// SetID assigns the document identifier.
func (d Document) SetID(id string) {
	d[FieldID] = id
}

// Created returns the creation timestamp in unix milliseconds, 0 when unset.
func (d Document) Created() int64 {
	return Int64Value(d[FieldCreated])
}

// Updated returns the update timestamp in unix milliseconds, 0 when unset.
func (d Document) Updated() int64 {
	return Int64Value(d[FieldUpdated])
}

// Internal reports whether the document is a reserved internal record, such
// as an allocator counter, that should be hidden from normal listings.
func (d Document) Internal() bool {
	b, _ := d[FieldInternal].(bool)
	return b
}

// Clone returns a copy of the document. Top-level map and slice values are
// copied one level deep; deeper structures are shared and treated as
// immutable by the service layer.
func (d Document) Clone() Document {
	if d == nil {
		return nil
	}
	out := make(Document, len(d))
	for k, v := range d {
		switch val := v.(type) {
		case Document:
			inner := make(Document, len(val))
			for ik, iv := range val {
				inner[ik] = iv
			}
			out[k] = inner
		case map[string]any:
			inner := make(map[string]any, len(val))
			for ik, iv := range val {
				inner[ik] = iv
			}
			out[k] = inner
		case []any:
			inner := make([]any, len(val))
			copy(inner, val)
			out[k] = inner
		default:
			out[k] = v
		}
	}
	return out
}

// Merge copies every field of src into d, overwriting existing values.
func (d Document) Merge(src Document) {
	for k, v := range src {
		d[k] = v
	}
}

// Int64Value coerces the numeric encodings that appear after JSON or store
// round-trips into an int64. Non-numeric values yield 0.
func Int64Value(v any) int64 {
	switch n := v.(type) {
	case int64:
		return n
	case int:
		return int64(n)
	case float64:
		return int64(n)
	case json.Number:
		i, _ := n.Int64()
		return i
	case string:
		i, _ := strconv.ParseInt(n, 10, 64)
		return i
	default:
		return 0
	}
}
