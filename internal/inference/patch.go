package inference

import (
	"encoding/json"
	"fmt"

	"github.com/josephbrant/regdossier/internal/dossier"
)

// Patch is the validated, schema-conforming subset of an inference response.
// Only gap-fillable sections appear here; history sections (prior PSURs,
// FSCAs, certificates) are deliberately absent because inventing history is
// exactly what the prompt forbids.
type Patch struct {
	Core             *CorePatch             `json:"core,omitempty"`
	ClinicalContext  *ClinicalContextPatch  `json:"clinical_context,omitempty"`
	RiskContext      *RiskContextPatch      `json:"risk_context,omitempty"`
	ClinicalEvidence *ClinicalEvidencePatch `json:"clinical_evidence,omitempty"`
}

type CorePatch struct {
	TradeName    string   `json:"trade_name,omitempty"`
	Manufacturer string   `json:"manufacturer,omitempty"`
	DeviceClass  string   `json:"device_class,omitempty"`
	Description  string   `json:"description,omitempty"`
	ModelNumbers []string `json:"model_numbers,omitempty"`
}

type ClinicalContextPatch struct {
	IntendedPurpose     string                    `json:"intended_purpose,omitempty"`
	Indications         []string                  `json:"indications,omitempty"`
	Contraindications   []string                  `json:"contraindications,omitempty"`
	TargetPopulation    string                    `json:"target_population,omitempty"`
	ClinicalBenefits    []dossier.ClinicalBenefit `json:"clinical_benefits,omitempty"`
	WarningsPrecautions string                    `json:"warnings_precautions,omitempty"`
}

type RiskContextPatch struct {
	PrincipalRisks               []dossier.PrincipalRisk `json:"principal_risks,omitempty"`
	RiskMitigations              string                  `json:"risk_mitigations,omitempty"`
	ResidualRisks                string                  `json:"residual_risks,omitempty"`
	ComplaintRateThreshold       *float64                `json:"complaint_rate_threshold,omitempty"`
	SeriousIncidentRateThreshold *float64                `json:"serious_incident_rate_threshold,omitempty"`
}

type ClinicalEvidencePatch struct {
	LiteratureSummary string   `json:"literature_summary,omitempty"`
	PMCFSummary       string   `json:"pmcf_summary,omitempty"`
	EquivalentDevices []string `json:"equivalent_devices,omitempty"`
}

// IsEmpty reports whether validation stripped the patch down to nothing.
func (p Patch) IsEmpty() bool {
	return p.Core == nil && p.ClinicalContext == nil && p.RiskContext == nil && p.ClinicalEvidence == nil
}

// ValidatePatch parses a raw inference response against the patch schema.
// Unknown sections and wrong-shaped fields are dropped with a warning rather
// than failing the patch; only an unparseable payload is an error.
func ValidatePatch(raw string) (Patch, []string, error) {
	var root map[string]json.RawMessage
	if err := json.Unmarshal([]byte(stripCodeFences(raw)), &root); err != nil {
		return Patch{}, nil, fmt.Errorf("patch is not a JSON object: %w", err)
	}

	var p Patch
	var warnings []string

	for section, blob := range root {
		switch section {
		case "core":
			p.Core = decodeSection[CorePatch](section, blob, &warnings)
		case "clinical_context":
			p.ClinicalContext = decodeSection[ClinicalContextPatch](section, blob, &warnings)
		case "risk_context":
			p.RiskContext = decodeSection[RiskContextPatch](section, blob, &warnings)
		case "clinical_evidence":
			p.ClinicalEvidence = decodeSection[ClinicalEvidencePatch](section, blob, &warnings)
		default:
			warnings = append(warnings, fmt.Sprintf("dropped unknown patch section %q", section))
		}
	}

	if p.RiskContext != nil {
		p.RiskContext.PrincipalRisks = filterIdentified(p.RiskContext.PrincipalRisks,
			func(r dossier.PrincipalRisk) string { return r.RiskID }, "risk_context.principal_risks", &warnings)
	}
	if p.ClinicalContext != nil {
		p.ClinicalContext.ClinicalBenefits = filterIdentified(p.ClinicalContext.ClinicalBenefits,
			func(b dossier.ClinicalBenefit) string { return b.BenefitID }, "clinical_context.clinical_benefits", &warnings)
	}
	return p, warnings, nil
}

// decodeSection tolerantly decodes one patch section. A field of the wrong
// shape fails the strict pass; the fallback re-decodes field by field so one
// bad field costs itself, not the section.
func decodeSection[T any](name string, blob json.RawMessage, warnings *[]string) *T {
	var out T
	if err := json.Unmarshal(blob, &out); err == nil {
		return &out
	}

	var loose map[string]json.RawMessage
	if err := json.Unmarshal(blob, &loose); err != nil {
		*warnings = append(*warnings, fmt.Sprintf("dropped section %q: not an object", name))
		return nil
	}
	clean := make(map[string]json.RawMessage, len(loose))
	probe := new(T)
	for field, fv := range loose {
		trial := map[string]json.RawMessage{field: fv}
		blob, _ := json.Marshal(trial)
		if err := json.Unmarshal(blob, probe); err != nil {
			*warnings = append(*warnings, fmt.Sprintf("dropped %s.%s: wrong shape", name, field))
			continue
		}
		clean[field] = fv
	}
	blob2, _ := json.Marshal(clean)
	if err := json.Unmarshal(blob2, &out); err != nil {
		*warnings = append(*warnings, fmt.Sprintf("dropped section %q: unrecoverable shape", name))
		return nil
	}
	return &out
}

func filterIdentified[T any](entries []T, id func(T) string, path string, warnings *[]string) []T {
	out := entries[:0]
	for i, e := range entries {
		if id(e) == "" {
			*warnings = append(*warnings, fmt.Sprintf("dropped %s[%d]: missing id", path, i))
			continue
		}
		out = append(out, e)
	}
	if len(out) == 0 {
		return nil
	}
	return out
}
