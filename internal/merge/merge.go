// Package merge implements the reconciliation policies used to fold new
// evidence into a persisted dossier. Every policy reports whether it changed
// anything so callers can skip writes that would be no-ops.
package merge

import (
	"reflect"
	"strings"
)

// String merges a scalar text field. minLen raises the bar for what counts
// as populated; zero means any non-blank text. Under overwrite the incoming
// value wins when populated, otherwise existing text is never displaced.
func String(existing, incoming string, overwrite bool, minLen int) (string, bool) {
	if minLen < 1 {
		minLen = 1
	}
	populated := func(s string) bool { return len(strings.TrimSpace(s)) >= minLen }

	out := existing
	if overwrite {
		if populated(incoming) {
			out = incoming
		}
	} else if !populated(existing) && populated(incoming) {
		out = incoming
	}
	return out, out != existing
}

// Value merges an optional scalar. Presence is the pointer, not truthiness,
// so zero is a real value and never mistaken for absent.
func Value[T comparable](existing, incoming *T, overwrite bool) (*T, bool) {
	out := existing
	if overwrite {
		if incoming != nil {
			out = incoming
		}
	} else if existing == nil && incoming != nil {
		out = incoming
	}
	changed := (out == nil) != (existing == nil) || (out != nil && existing != nil && *out != *existing)
	return out, changed
}

// Set merges lists of scalars as unordered sets. Under overwrite a non-empty
// incoming list replaces the existing one; otherwise the union is returned,
// existing entries first, then unseen incoming entries in their own order.
// An empty incoming list never changes the stored value.
func Set(existing, incoming []string, overwrite bool) ([]string, bool) {
	if len(incoming) == 0 {
		return existing, false
	}
	if overwrite {
		out := dedupe(incoming)
		return out, !equalSlices(existing, out)
	}
	out := dedupe(append(append([]string{}, existing...), incoming...))
	return out, !equalSlices(existing, out)
}

func dedupe(in []string) []string {
	seen := make(map[string]bool, len(in))
	out := make([]string, 0, len(in))
	for _, s := range in {
		s = strings.TrimSpace(s)
		if s == "" || seen[s] {
			continue
		}
		seen[s] = true
		out = append(out, s)
	}
	return out
}

func equalSlices(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if strings.TrimSpace(a[i]) != b[i] {
			return false
		}
	}
	return true
}

// Identified is implemented by array-of-object entries carrying a stable id.
type Identified interface {
	MergeID() string
}

// ByID merges two object lists keyed by their stable identifier. New ids are
// appended in incoming order. On a colliding id, overwrite replaces the
// entry wholesale while fill-only mode delegates to fill, which must copy
// incoming fields onto dst only where dst has none. Entries without an id
// are appended only when no existing entry equals them, so re-merging stays
// idempotent. The result never contains two entries with the same id.
func ByID[T Identified](existing, incoming []T, overwrite bool, fill func(dst, src T) (T, bool)) ([]T, bool) {
	out := append([]T{}, existing...)
	index := make(map[string]int, len(existing))
	for i, e := range out {
		if id := e.MergeID(); id != "" {
			index[id] = i
		}
	}

	changed := false
	for _, inc := range incoming {
		id := inc.MergeID()
		if id == "" {
			if containsEqual(out, inc) {
				continue
			}
			out = append(out, inc)
			changed = true
			continue
		}
		at, exists := index[id]
		if !exists {
			index[id] = len(out)
			out = append(out, inc)
			changed = true
			continue
		}
		if overwrite {
			if !reflect.DeepEqual(out[at], inc) {
				out[at] = inc
				changed = true
			}
			continue
		}
		merged, filled := fill(out[at], inc)
		if filled {
			out[at] = merged
			changed = true
		}
	}
	return out, changed
}

func containsEqual[T any](list []T, v T) bool {
	for _, e := range list {
		if reflect.DeepEqual(e, v) {
			return true
		}
	}
	return false
}

// FillString backs the fill funcs used with ByID: src supplies a field only
// when dst has no usable text there.
func FillString(dst, src string) (string, bool) {
	if strings.TrimSpace(dst) != "" || strings.TrimSpace(src) == "" {
		return dst, false
	}
	return src, true
}
