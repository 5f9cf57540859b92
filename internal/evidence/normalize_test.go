package evidence

import (
	"strings"
	"testing"
	"time"
)

func testContext() Context {
	return Context{
		DeviceCode: "DEV-001",
		Period:     "2025-H1",
		UploadID:   7,
		Clock: func() time.Time {
			return time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
		},
	}
}

func TestContentHashIgnoresKeyOrder(t *testing.T) {
	n := NewNormalizer(nil)
	a := n.Normalize([]Raw{{EvidenceType: "risk_assessment", Data: map[string]any{
		"alpha": "1", "beta": "2", "gamma": map[string]any{"x": 1.0, "y": 2.0},
	}}}, testContext())
	b := n.Normalize([]Raw{{EvidenceType: "risk_assessment", Data: map[string]any{
		"gamma": map[string]any{"y": 2.0, "x": 1.0}, "beta": "2", "alpha": "1",
	}}}, testContext())
	if len(a) != 1 || len(b) != 1 {
		t.Fatalf("expected one atom each, got %d and %d", len(a), len(b))
	}
	if a[0].ContentHash != b[0].ContentHash {
		t.Errorf("hashes differ for semantically identical records: %s vs %s", a[0].ContentHash, b[0].ContentHash)
	}
	if a[0].AtomID != b[0].AtomID {
		t.Errorf("atom ids differ: %s vs %s", a[0].AtomID, b[0].AtomID)
	}
}

func TestAtomIDShape(t *testing.T) {
	n := NewNormalizer(nil)
	atoms := n.Normalize([]Raw{{EvidenceType: "fsca", Data: map[string]any{"fsca_id": "F-1"}}}, testContext())
	if len(atoms) != 1 {
		t.Fatalf("expected one atom, got %d", len(atoms))
	}
	id := atoms[0].AtomID
	if !strings.HasPrefix(id, "fsca:") || len(id) != len("fsca:")+12 {
		t.Errorf("unexpected atom id %q", id)
	}
}

func TestTypeInferencePriority(t *testing.T) {
	n := NewNormalizer(nil)
	cases := []struct {
		name string
		data map[string]any
		want string
	}{
		{"complaint id wins over generic fields", map[string]any{"complaint_id": "C-1", "units_sold": 10}, TypeComplaintSummary},
		{"complaint beats incident", map[string]any{"incident_id": "I-1", "complaint_id": "C-1"}, TypeComplaintSummary},
		{"incident beats fsca", map[string]any{"fsca_id": "F-1", "incident_id": "I-1"}, TypeSeriousIncident},
		{"fsca beats study", map[string]any{"study_id": "S-1", "fsca_id": "F-1"}, TypeFSCA},
		{"study beats literature", map[string]any{"pmid": "123", "study_id": "S-1"}, TypeClinicalStudy},
		{"literature id alone", map[string]any{"doi": "10.1/x"}, TypeLiteratureReview},
		{"synonym spelling triggers signal", map[string]any{"complaintNumber": "C-2"}, TypeComplaintSummary},
		{"no signal defaults to sales volume", map[string]any{"units_sold": 10}, TypeSalesVolume},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			atoms := n.Normalize([]Raw{{Data: tc.data}}, testContext())
			if atoms[0].Type != tc.want {
				t.Errorf("inferred type %q, want %q", atoms[0].Type, tc.want)
			}
		})
	}
}

func TestExplicitTypeNormalized(t *testing.T) {
	n := NewNormalizer(nil)
	atoms := n.Normalize([]Raw{{EvidenceType: " Risk-Assessment ", Data: map[string]any{"x": 1}}}, testContext())
	if atoms[0].Type != TypeRiskAssessment {
		t.Errorf("type = %q, want %q", atoms[0].Type, TypeRiskAssessment)
	}
}

func TestProvenanceSynthesis(t *testing.T) {
	ctx := testContext()
	n := NewNormalizer(nil)
	atoms := n.Normalize([]Raw{{Data: map[string]any{"units_sold": 5}}}, ctx)
	p := atoms[0].Provenance
	if p.SourceFile != "unknown" {
		t.Errorf("SourceFile = %q, want unknown", p.SourceFile)
	}
	if p.DeviceRef != "DEV-001" {
		t.Errorf("DeviceRef = %q, want ctx device code", p.DeviceRef)
	}
	if p.Period != "2025-H1" {
		t.Errorf("Period = %q, want ctx period", p.Period)
	}
	if p.UploadID != 7 {
		t.Errorf("UploadID = %d, want 7", p.UploadID)
	}
	if !p.ExtractedAt.Equal(ctx.Clock()) {
		t.Errorf("ExtractedAt = %v, want clock time", p.ExtractedAt)
	}

	empty := n.Normalize([]Raw{{Data: map[string]any{"units_sold": 5}}}, Context{Clock: ctx.Clock})
	if empty[0].Provenance.DeviceRef != "UNKNOWN_DEVICE" || empty[0].Provenance.Period != "UNKNOWN" {
		t.Errorf("empty context provenance = %+v", empty[0].Provenance)
	}
}

func TestSourceUnknownTracksSynthesizedSource(t *testing.T) {
	n := NewNormalizer(nil)
	atoms := n.Normalize([]Raw{
		{Data: map[string]any{"units_sold": 5}},
		{SourceFile: "q1.xlsx", Data: map[string]any{"units_sold": 5}},
	}, testContext())
	if !atoms[0].Provenance.SourceUnknown() {
		t.Errorf("synthesized source not reported unknown: %+v", atoms[0].Provenance)
	}
	if atoms[1].Provenance.SourceUnknown() {
		t.Errorf("explicit source reported unknown: %+v", atoms[1].Provenance)
	}
}

func TestRepeatedRowsKeepDistinctIDs(t *testing.T) {
	n := NewNormalizer(nil)
	raw := Raw{EvidenceType: "sales_volume", SourceFile: "q1.xlsx", Data: map[string]any{"units_sold": 100}}
	atoms := n.Normalize([]Raw{raw, raw, raw}, testContext())
	if len(atoms) != 3 {
		t.Fatalf("expected 3 atoms, got %d", len(atoms))
	}
	ids := map[string]bool{}
	for _, a := range atoms {
		if ids[a.AtomID] {
			t.Errorf("duplicate atom id %s", a.AtomID)
		}
		ids[a.AtomID] = true
	}
}

func TestReIngestionProducesSameIDs(t *testing.T) {
	n := NewNormalizer(nil)
	batch := []Raw{
		{EvidenceType: "sales_volume", SourceFile: "q1.xlsx", Data: map[string]any{"units_sold": 100}},
		{EvidenceType: "fsca", SourceFile: "fsca.docx", Data: map[string]any{"fsca_id": "F-1"}},
	}
	first := n.Normalize(batch, testContext())
	second := n.Normalize(batch, testContext())
	for i := range first {
		if first[i].AtomID != second[i].AtomID {
			t.Errorf("atom %d id changed across ingestions: %s vs %s", i, first[i].AtomID, second[i].AtomID)
		}
	}
}

func TestConfidenceClamped(t *testing.T) {
	n := NewNormalizer(nil)
	over := 1.7
	atoms := n.Normalize([]Raw{{EvidenceType: "fsca", Confidence: &over, Data: map[string]any{"fsca_id": "F"}}}, testContext())
	if atoms[0].Provenance.Confidence != 1 {
		t.Errorf("confidence = %v, want clamped to 1", atoms[0].Provenance.Confidence)
	}
}

func TestCanonicalizedDataKeys(t *testing.T) {
	n := NewNormalizer(nil)
	atoms := n.Normalize([]Raw{{EvidenceType: "device_master", Data: map[string]any{
		"tradeName":   "Acme V1",
		"intendedUse": "Long-term monitoring",
	}}}, testContext())
	data := atoms[0].NormalizedData
	if data["trade_name"] != "Acme V1" {
		t.Errorf("trade_name missing from normalized data: %v", data)
	}
	if data["intended_purpose"] != "Long-term monitoring" {
		t.Errorf("intended_purpose missing from normalized data: %v", data)
	}
}
