package reconcile

import (
	"strings"
	"time"

	"github.com/josephbrant/regdossier/internal/canonical"
	"github.com/josephbrant/regdossier/internal/evidence"
)

// Field pickers over a confidence-ranked atom slice. When several atoms
// contend for the same field, the highest-confidence atom that actually
// carries the field supplies the value; lower-ranked atoms are not
// consulted for it.

func topString(reg *canonical.Registry, ranked []evidence.Atom, key string) string {
	for _, a := range ranked {
		if v := reg.StringField(a.NormalizedData, key); strings.TrimSpace(v) != "" {
			return strings.TrimSpace(v)
		}
	}
	return ""
}

func topNumber(reg *canonical.Registry, ranked []evidence.Atom, key string) *float64 {
	for _, a := range ranked {
		if v, ok := reg.NumberField(a.NormalizedData, key); ok {
			out := v
			return &out
		}
	}
	return nil
}

func topStringList(reg *canonical.Registry, ranked []evidence.Atom, key string) []string {
	for _, a := range ranked {
		raw := reg.ArrayField(a.NormalizedData, key)
		if len(raw) == 0 {
			continue
		}
		out := make([]string, 0, len(raw))
		for _, item := range raw {
			if s, ok := item.(string); ok && strings.TrimSpace(s) != "" {
				out = append(out, strings.TrimSpace(s))
			}
		}
		if len(out) > 0 {
			return out
		}
	}
	return nil
}

// entryString reads the first non-empty key variant from a map entry
// found inside an evidence array. Entries keep whatever spelling the
// extraction produced, so each caller lists the variants it accepts.
func entryString(entry map[string]any, keys ...string) string {
	for _, k := range keys {
		if v, ok := entry[k]; ok {
			if s, ok := v.(string); ok && strings.TrimSpace(s) != "" {
				return strings.TrimSpace(s)
			}
		}
	}
	return ""
}

// asEntry coerces an array element to a map entry, tolerating both
// decoded JSON objects and pre-typed maps.
func asEntry(item any) (map[string]any, bool) {
	m, ok := item.(map[string]any)
	return m, ok
}

// parseDate accepts the date shapes extraction produces: bare dates,
// RFC 3339 timestamps, and year-month values.
func parseDate(s string) *time.Time {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	for _, layout := range []string{"2006-01-02", time.RFC3339, time.RFC3339Nano, "2006-01"} {
		if t, err := time.Parse(layout, s); err == nil {
			return &t
		}
	}
	return nil
}
