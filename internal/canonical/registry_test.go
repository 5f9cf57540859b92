package canonical

import "testing"

func TestCanonicalizeEverySynonym(t *testing.T) {
	r := Default()
	for _, e := range defaultEntries {
		if got := r.Canonicalize(e.Key); got != e.Key {
			t.Errorf("Canonicalize(%q) = %q, want identity", e.Key, got)
		}
		for _, syn := range e.Synonyms {
			if got := r.Canonicalize(syn); got != e.Key {
				t.Errorf("Canonicalize(%q) = %q, want %q", syn, got, e.Key)
			}
		}
	}
}

func TestCanonicalizeUnknownPassesThrough(t *testing.T) {
	r := Default()
	for _, raw := range []string{"totally_unknown", "", "TradeName "} {
		if got := r.Canonicalize(raw); got != raw {
			t.Errorf("Canonicalize(%q) = %q, want passthrough", raw, got)
		}
	}
}

func TestFieldPrefersCanonicalThenTableOrder(t *testing.T) {
	r := NewRegistry("test", []Entry{
		{Key: "trade_name", Synonyms: []string{"tradeName", "product_name"}},
	})

	cases := []struct {
		name string
		data map[string]any
		want string
	}{
		{"canonical wins over synonym", map[string]any{"trade_name": "A", "product_name": "B"}, "A"},
		{"earlier synonym wins", map[string]any{"product_name": "B", "tradeName": "A"}, "A"},
		{"lone synonym resolves", map[string]any{"product_name": "B"}, "B"},
		{"nil value is treated as absent", map[string]any{"trade_name": nil, "tradeName": "A"}, "A"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := r.StringField(tc.data, "trade_name"); got != tc.want {
				t.Errorf("StringField = %q, want %q", got, tc.want)
			}
		})
	}
}

func TestArrayFieldCoercion(t *testing.T) {
	r := Default()
	cases := []struct {
		name string
		data map[string]any
		want int
	}{
		{"slice passes through", map[string]any{"indications": []any{"a", "b"}}, 2},
		{"string slice converts", map[string]any{"indications": []string{"a"}}, 1},
		{"bare string coerced", map[string]any{"indications": "chronic pain"}, 1},
		{"blank string is absent", map[string]any{"indications": "  "}, 0},
		{"number yields empty", map[string]any{"indications": 7}, 0},
		{"missing yields empty", map[string]any{}, 0},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := r.ArrayField(tc.data, KeyIndications); len(got) != tc.want {
				t.Errorf("ArrayField len = %d, want %d", len(got), tc.want)
			}
		})
	}
}

func TestNumberFieldNeverPanics(t *testing.T) {
	r := Default()
	cases := []struct {
		name   string
		value  any
		want   float64
		wantOK bool
	}{
		{"float", 5.0, 5.0, true},
		{"int", 3, 3.0, true},
		{"numeric string", "4.5", 4.5, true},
		{"padded numeric string", " 2 ", 2.0, true},
		{"garbage string", "abc", 0, false},
		{"bool", true, 0, false},
		{"nil", nil, 0, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, ok := r.NumberField(map[string]any{"confidence": tc.value}, KeyConfidence)
			if ok != tc.wantOK || got != tc.want {
				t.Errorf("NumberField = (%v, %v), want (%v, %v)", got, ok, tc.want, tc.wantOK)
			}
		})
	}
}

func TestSynonymOwnershipIsFirstClaim(t *testing.T) {
	r := NewRegistry("test", []Entry{
		{Key: "a", Synonyms: []string{"shared"}},
		{Key: "b", Synonyms: []string{"shared", "only_b"}},
	})
	if got := r.Canonicalize("shared"); got != "a" {
		t.Errorf("Canonicalize(shared) = %q, want a", got)
	}
	if got := r.Canonicalize("only_b"); got != "b" {
		t.Errorf("Canonicalize(only_b) = %q, want b", got)
	}
}
