package merge

import (
	"reflect"
	"testing"
)

func TestStringFillOnlyNeverLosesData(t *testing.T) {
	cases := []struct {
		name        string
		existing    string
		incoming    string
		overwrite   bool
		minLen      int
		want        string
		wantChanged bool
	}{
		{"fill-only keeps existing", "Acme V1", "Acme V2", false, 0, "Acme V1", false},
		{"overwrite replaces", "Acme V1", "Acme V2", true, 0, "Acme V2", true},
		{"fill into empty", "", "Acme V2", false, 0, "Acme V2", true},
		{"fill into whitespace", "   ", "Acme V2", false, 0, "Acme V2", true},
		{"overwrite with blank keeps existing", "Acme V1", "  ", true, 0, "Acme V1", false},
		{"short existing below minLen is refillable", "tbd", "a proper intended purpose statement", false, 10, "a proper intended purpose statement", true},
		{"short incoming below minLen is ignored", "", "tbd", false, 10, "", false},
		{"both empty stays empty", "", "", false, 0, "", false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, changed := String(tc.existing, tc.incoming, tc.overwrite, tc.minLen)
			if got != tc.want || changed != tc.wantChanged {
				t.Errorf("String = (%q, %v), want (%q, %v)", got, changed, tc.want, tc.wantChanged)
			}
		})
	}
}

func TestValueZeroIsAValue(t *testing.T) {
	zero := 0.0
	five := 5.0

	got, changed := Value(&zero, &five, false)
	if changed || *got != 0 {
		t.Errorf("fill-only replaced a stored zero: got %v changed=%v", *got, changed)
	}

	got, changed = Value[float64](nil, &five, false)
	if !changed || got == nil || *got != 5 {
		t.Errorf("fill into nil failed: got %v changed=%v", got, changed)
	}

	got, changed = Value(&zero, &five, true)
	if !changed || *got != 5 {
		t.Errorf("overwrite failed: got %v changed=%v", *got, changed)
	}

	got, changed = Value(&five, nil, true)
	if changed || *got != 5 {
		t.Errorf("overwrite with nil incoming lost data: got %v changed=%v", got, changed)
	}
}

func TestSetUnionIsIncomingOrderStable(t *testing.T) {
	got, changed := Set([]string{"a", "b"}, []string{"c", "b", "d"}, false)
	want := []string{"a", "b", "c", "d"}
	if !reflect.DeepEqual(got, want) || !changed {
		t.Errorf("Set union = %v changed=%v, want %v true", got, changed, want)
	}

	got, changed = Set([]string{"a", "b"}, []string{"b", "a"}, false)
	if changed {
		t.Errorf("union with no new members reported change: %v", got)
	}
}

func TestSetOverwrite(t *testing.T) {
	got, changed := Set([]string{"a", "b"}, []string{"c"}, true)
	if !reflect.DeepEqual(got, []string{"c"}) || !changed {
		t.Errorf("overwrite = %v changed=%v", got, changed)
	}

	got, changed = Set([]string{"a"}, nil, true)
	if !reflect.DeepEqual(got, []string{"a"}) || changed {
		t.Errorf("overwrite with empty incoming should keep existing, got %v changed=%v", got, changed)
	}
}

func TestSetEmptyIncomingNeverReportsChange(t *testing.T) {
	// A stored list that would not survive dedupe untouched must still be
	// left alone when nothing is incoming, in both merge modes.
	dirty := []string{" a ", "a", "b"}
	for _, overwrite := range []bool{false, true} {
		got, changed := Set(dirty, nil, overwrite)
		if changed {
			t.Errorf("overwrite=%v: empty incoming reported change, got %v", overwrite, got)
		}
		if !reflect.DeepEqual(got, dirty) {
			t.Errorf("overwrite=%v: stored list rewritten to %v", overwrite, got)
		}
	}
}

type risk struct {
	RiskID   string
	Hazard   string
	Harm     string
	Severity string
}

func (r risk) MergeID() string { return r.RiskID }

func fillRisk(dst, src risk) (risk, bool) {
	changed := false
	dst.Hazard, changed = fillField(dst.Hazard, src.Hazard, changed)
	dst.Harm, changed = fillField(dst.Harm, src.Harm, changed)
	dst.Severity, changed = fillField(dst.Severity, src.Severity, changed)
	return dst, changed
}

func fillField(dst, src string, already bool) (string, bool) {
	out, c := FillString(dst, src)
	return out, already || c
}

func TestByIDCollisionUnionsFields(t *testing.T) {
	existing := []risk{{RiskID: "risk_1", Hazard: "X"}}
	incoming := []risk{{RiskID: "risk_1", Hazard: "X", Harm: "Y"}}

	got, changed := ByID(existing, incoming, false, fillRisk)
	if !changed || len(got) != 1 {
		t.Fatalf("ByID = %v changed=%v", got, changed)
	}
	want := risk{RiskID: "risk_1", Hazard: "X", Harm: "Y"}
	if got[0] != want {
		t.Errorf("merged entry = %+v, want %+v", got[0], want)
	}
}

func TestByIDFillOnlyKeepsExistingFields(t *testing.T) {
	existing := []risk{{RiskID: "risk_1", Hazard: "X", Severity: "major"}}
	incoming := []risk{{RiskID: "risk_1", Hazard: "different", Severity: "minor", Harm: "Y"}}

	got, _ := ByID(existing, incoming, false, fillRisk)
	if got[0].Hazard != "X" || got[0].Severity != "major" || got[0].Harm != "Y" {
		t.Errorf("fill-only collision = %+v", got[0])
	}
}

func TestByIDOverwriteReplacesEntry(t *testing.T) {
	existing := []risk{{RiskID: "risk_1", Hazard: "X", Harm: "old"}}
	incoming := []risk{{RiskID: "risk_1", Hazard: "Z"}}

	got, changed := ByID(existing, incoming, true, fillRisk)
	if !changed || got[0].Hazard != "Z" || got[0].Harm != "" {
		t.Errorf("overwrite collision = %+v changed=%v", got[0], changed)
	}
}

func TestByIDNeverDuplicatesIDs(t *testing.T) {
	existing := []risk{{RiskID: "a", Hazard: "1"}, {RiskID: "b", Hazard: "2"}}
	incoming := []risk{
		{RiskID: "b", Harm: "h"},
		{RiskID: "c", Hazard: "3"},
		{RiskID: "c", Harm: "again"},
	}
	got, _ := ByID(existing, incoming, false, fillRisk)
	seen := map[string]bool{}
	for _, r := range got {
		if seen[r.RiskID] {
			t.Fatalf("duplicate id %q in %+v", r.RiskID, got)
		}
		seen[r.RiskID] = true
	}
	if len(got) != 3 {
		t.Errorf("expected 3 entries, got %d", len(got))
	}
}

func TestByIDUnkeyedEntriesAppendOnce(t *testing.T) {
	existing := []risk{{Hazard: "unkeyed"}}
	incoming := []risk{{Hazard: "unkeyed"}, {Hazard: "new"}}

	got, changed := ByID(existing, incoming, false, fillRisk)
	if len(got) != 2 || !changed {
		t.Errorf("unkeyed append = %+v changed=%v", got, changed)
	}

	again, changed := ByID(got, incoming, false, fillRisk)
	if len(again) != 2 || changed {
		t.Errorf("re-merge not idempotent: %+v changed=%v", again, changed)
	}
}
