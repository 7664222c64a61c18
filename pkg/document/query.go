package document

import (
	"encoding/json"
	"sort"
	"strconv"
)

// Query is a field-equality filter. An empty or nil query matches everything.
type Query map[string]any

// Matches reports whether every query field equals the corresponding
// document field. Numeric values compare by value so that an int 5 matches
// a float64 5 after a JSON round-trip.
func (q Query) Matches(d Document) bool {
	for field, want := range q {
		got, ok := d[field]
		if !ok {
			return false
		}
		if CompareValues(got, want) != 0 {
			return false
		}
	}
	return true
}

// Sort describes a single-field ordering.
type Sort struct {
	Field      string `json:"field"`
	Descending bool   `json:"descending,omitempty"`
}

// Params carries the caller-supplied find/get modifiers.
type Params struct {
	Sort  *Sort `json:"$sort,omitempty"`
	Limit int   `json:"$limit,omitempty"`
	Skip  int   `json:"$skip,omitempty"`
}

// WithSort returns a copy of p carrying the given sort. A nil receiver is
// treated as empty params.
func (p *Params) WithSort(s *Sort) *Params {
	var out Params
	if p != nil {
		out = *p
	}
	out.Sort = s
	return &out
}

// CompareValues orders two field values: numbers by value, strings that both
// parse as integers numerically (so incremental ids "9" and "10" order
// correctly), other strings lexicographically, bools false before true.
// Mismatched kinds order by kind name for stability.
func CompareValues(a, b any) int {
	an, aok := numeric(a)
	bn, bok := numeric(b)
	if aok && bok {
		switch {
		case an < bn:
			return -1
		case an > bn:
			return 1
		default:
			return 0
		}
	}
	as, aIsStr := a.(string)
	bs, bIsStr := b.(string)
	if aIsStr && bIsStr {
		if ai, err := strconv.ParseInt(as, 10, 64); err == nil {
			if bi, err := strconv.ParseInt(bs, 10, 64); err == nil {
				switch {
				case ai < bi:
					return -1
				case ai > bi:
					return 1
				default:
					return 0
				}
			}
		}
		switch {
		case as < bs:
			return -1
		case as > bs:
			return 1
		default:
			return 0
		}
	}
	ab, aIsBool := a.(bool)
	bb, bIsBool := b.(bool)
	if aIsBool && bIsBool {
		switch {
		case ab == bb:
			return 0
		case !ab:
			return -1
		default:
			return 1
		}
	}
	ka, kb := kindName(a), kindName(b)
	switch {
	case ka < kb:
		return -1
	case ka > kb:
		return 1
	default:
		return 0
	}
}

func numeric(v any) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case float64:
		return n, true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	default:
		return 0, false
	}
}

func kindName(v any) string {
	switch v.(type) {
	case nil:
		return "nil"
	case bool:
		return "bool"
	case string:
		return "string"
	case int, int64, float64, json.Number:
		return "number"
	default:
		return "other"
	}
}

// SortDocs orders docs in place by the given sort. Documents missing the
// sort field group before those carrying it in ascending order.
func SortDocs(docs []Document, s *Sort) {
	if s == nil || s.Field == "" {
		return
	}
	sort.SliceStable(docs, func(i, j int) bool {
		c := CompareValues(docs[i][s.Field], docs[j][s.Field])
		if s.Descending {
			return c > 0
		}
		return c < 0
	})
}

// FindKey returns the canonical cache key for a find operation. Map keys are
// serialized in sorted order by encoding/json, so equal queries always yield
// equal keys.
func FindKey(q Query, p *Params) string {
	return cacheKey(struct {
		Query  Query   `json:"query"`
		Params *Params `json:"params"`
	}{q, p})
}

// GetKey returns the canonical cache key for a get operation.
func GetKey(id string, p *Params) string {
	return cacheKey(struct {
		ID     string  `json:"id"`
		Params *Params `json:"params"`
	}{id, p})
}

func cacheKey(v any) string {
	b, err := json.Marshal(v)
	if err != nil {
		// Queries are built from JSON-decoded values; marshal cannot fail for
		// those. Fall back to an uncacheable key rather than panic.
		return "!" + err.Error()
	}
	return string(b)
}
