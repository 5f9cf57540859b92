package inference

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/josephbrant/regdossier/internal/evidence"
)

type fakeCaller struct {
	response string
	err      error
	prompt   string
}

func (f *fakeCaller) GenerateJSON(_ context.Context, prompt string) (string, error) {
	f.prompt = prompt
	if f.err != nil {
		return "", f.err
	}
	return f.response, nil
}

func TestInferValidResponse(t *testing.T) {
	caller := &fakeCaller{response: "```json\n" + `{
		"clinical_context": {"intended_purpose": "Continuous subcutaneous drug delivery for adults with chronic pain."},
		"risk_context": {"principal_risks": [{"risk_id": "risk_1", "hazard": "occlusion", "harm": "underdose", "severity": "major"}]}
	}` + "\n```"}
	c := NewClient(caller)

	patch, meta := c.Infer(context.Background(), "DEV-001", nil)
	if patch == nil {
		t.Fatalf("expected patch, meta=%+v", meta)
	}
	if !meta.Attempted || meta.Error != "" {
		t.Errorf("meta = %+v", meta)
	}
	if patch.ClinicalContext == nil || patch.ClinicalContext.IntendedPurpose == "" {
		t.Errorf("clinical context not decoded: %+v", patch)
	}
	if patch.RiskContext == nil || len(patch.RiskContext.PrincipalRisks) != 1 {
		t.Errorf("risk context not decoded: %+v", patch)
	}
}

func TestInferTimeoutIsCapturedNotPropagated(t *testing.T) {
	caller := &fakeCaller{err: context.DeadlineExceeded}
	c := NewClient(caller, WithTimeout(time.Millisecond))

	patch, meta := c.Infer(context.Background(), "DEV-001", nil)
	if patch != nil {
		t.Fatalf("expected nil patch on timeout")
	}
	if !meta.Attempted || meta.Applied {
		t.Errorf("meta flags = %+v", meta)
	}
	if !strings.Contains(meta.Error, "timed out") {
		t.Errorf("meta.Error = %q", meta.Error)
	}
}

func TestInferServerErrorCaptured(t *testing.T) {
	caller := &fakeCaller{err: errors.New("status code: 500")}
	c := NewClient(caller)
	patch, meta := c.Infer(context.Background(), "DEV-001", nil)
	if patch != nil || meta.Error == "" {
		t.Errorf("patch=%v meta=%+v", patch, meta)
	}
}

func TestInferGarbageResponseCaptured(t *testing.T) {
	caller := &fakeCaller{response: "I cannot help with that."}
	c := NewClient(caller)
	patch, meta := c.Infer(context.Background(), "DEV-001", nil)
	if patch != nil || meta.Error == "" {
		t.Errorf("patch=%v meta=%+v", patch, meta)
	}
}

func TestDigestCapAndInstructions(t *testing.T) {
	atoms := make([]evidence.Atom, MaxDigestItems+30)
	for i := range atoms {
		atoms[i] = evidence.Atom{Type: "sales_volume", NormalizedData: map[string]any{"units_sold": i}}
	}
	caller := &fakeCaller{response: `{"core": {"trade_name": "Acme"}}`}
	c := NewClient(caller)
	c.Infer(context.Background(), "DEV-001", atoms)

	if !strings.Contains(caller.prompt, "Do not invent values") {
		t.Error("prompt missing do-not-invent instruction")
	}
	if !strings.Contains(caller.prompt, "30 further evidence records omitted") {
		t.Error("prompt missing digest truncation note")
	}
	if got := strings.Count(caller.prompt, `"units_sold"`); got != MaxDigestItems {
		t.Errorf("digest contains %d records, want %d", got, MaxDigestItems)
	}
}

func TestValidatePatchDropsWrongShapes(t *testing.T) {
	raw := `{
		"core": {"trade_name": "Acme V1", "model_numbers": "not-an-array"},
		"risk_context": {"principal_risks": [{"risk_id": "r1", "hazard": "x"}, {"hazard": "no id"}]},
		"made_up_section": {"foo": 1},
		"clinical_evidence": {"literature_summary": 42}
	}`
	p, warnings, err := ValidatePatch(raw)
	if err != nil {
		t.Fatalf("ValidatePatch: %v", err)
	}
	if p.Core == nil || p.Core.TradeName != "Acme V1" {
		t.Errorf("good field lost: %+v", p.Core)
	}
	if p.Core != nil && len(p.Core.ModelNumbers) != 0 {
		t.Errorf("wrong-shaped model_numbers kept: %+v", p.Core.ModelNumbers)
	}
	if p.RiskContext == nil || len(p.RiskContext.PrincipalRisks) != 1 {
		t.Errorf("id-less risk entry kept: %+v", p.RiskContext)
	}
	if p.ClinicalEvidence != nil && p.ClinicalEvidence.LiteratureSummary != "" {
		t.Errorf("numeric literature_summary kept: %+v", p.ClinicalEvidence)
	}
	if len(warnings) < 3 {
		t.Errorf("expected warnings for each drop, got %v", warnings)
	}
}

func TestValidatePatchRejectsNonObject(t *testing.T) {
	if _, _, err := ValidatePatch(`["an", "array"]`); err == nil {
		t.Fatal("expected error for non-object payload")
	}
}
