package canonical

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"
)

// Registry resolves the many spellings evidence extractors use for the same
// concept down to one canonical field key. Lookup order is fixed: the
// canonical key itself first, then each synonym in table order, first hit
// wins. Registries are immutable after construction so they can be shared
// across goroutines.
type Registry struct {
	version  string
	synonyms map[string][]string
	reverse  map[string]string
}

// Entry declares one canonical key and the synonym spellings it accepts,
// in resolution order.
type Entry struct {
	Key      string
	Synonyms []string
}

// NewRegistry builds a registry from an ordered synonym table. The first
// canonical key to claim a spelling owns it; later duplicates are ignored,
// so table order decides ownership deterministically.
func NewRegistry(version string, entries []Entry) *Registry {
	r := &Registry{
		version:  version,
		synonyms: make(map[string][]string, len(entries)),
		reverse:  make(map[string]string),
	}
	for _, e := range entries {
		kept := make([]string, 0, len(e.Synonyms))
		for _, s := range e.Synonyms {
			if s == e.Key {
				continue
			}
			if _, taken := r.reverse[s]; taken {
				continue
			}
			r.reverse[s] = e.Key
			kept = append(kept, s)
		}
		r.synonyms[e.Key] = kept
	}
	return r
}

func (r *Registry) Version() string { return r.version }

// Canonicalize maps a raw key to its canonical spelling. Unknown keys pass
// through unchanged, so canonicalization is total.
func (r *Registry) Canonicalize(raw string) string {
	if _, ok := r.synonyms[raw]; ok {
		return raw
	}
	if canon, ok := r.reverse[raw]; ok {
		return canon
	}
	return raw
}

// Field returns the value stored under the canonical key or any of its
// synonyms. The canonical spelling is checked first, then synonyms in table
// order; when a record carries two spellings of the same concept the
// first-by-table-order value wins.
func (r *Registry) Field(data map[string]any, canonicalKey string) (any, bool) {
	if v, ok := data[canonicalKey]; ok && v != nil {
		return v, true
	}
	for _, syn := range r.synonyms[canonicalKey] {
		if v, ok := data[syn]; ok && v != nil {
			return v, true
		}
	}
	return nil, false
}

// StringField returns the field as a trimmed string, or "" when absent or
// not string-like.
func (r *Registry) StringField(data map[string]any, canonicalKey string) string {
	v, ok := r.Field(data, canonicalKey)
	if !ok {
		return ""
	}
	switch s := v.(type) {
	case string:
		return strings.TrimSpace(s)
	case json.Number:
		return s.String()
	case float64:
		return strconv.FormatFloat(s, 'f', -1, 64)
	case int:
		return strconv.Itoa(s)
	case bool:
		return strconv.FormatBool(s)
	default:
		return ""
	}
}

// ArrayField returns the field as a slice. A bare string is coerced to a
// single-element slice because extractors sometimes emit a scalar where an
// array is expected; anything that is neither slice nor string yields nil.
func (r *Registry) ArrayField(data map[string]any, canonicalKey string) []any {
	v, ok := r.Field(data, canonicalKey)
	if !ok {
		return nil
	}
	switch a := v.(type) {
	case []any:
		return a
	case []string:
		out := make([]any, len(a))
		for i, s := range a {
			out[i] = s
		}
		return out
	case []map[string]any:
		out := make([]any, len(a))
		for i, m := range a {
			out[i] = m
		}
		return out
	case string:
		if strings.TrimSpace(a) == "" {
			return nil
		}
		return []any{a}
	default:
		return nil
	}
}

// NumberField returns the field as a float64. Non-numeric and NaN values
// report absent rather than erroring.
func (r *Registry) NumberField(data map[string]any, canonicalKey string) (float64, bool) {
	v, ok := r.Field(data, canonicalKey)
	if !ok {
		return 0, false
	}
	var f float64
	switch n := v.(type) {
	case float64:
		f = n
	case float32:
		f = float64(n)
	case int:
		f = float64(n)
	case int64:
		f = float64(n)
	case json.Number:
		parsed, err := n.Float64()
		if err != nil {
			return 0, false
		}
		f = parsed
	case string:
		parsed, err := strconv.ParseFloat(strings.TrimSpace(n), 64)
		if err != nil {
			return 0, false
		}
		f = parsed
	default:
		return 0, false
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}
