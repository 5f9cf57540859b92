package reconcile

import (
	"github.com/josephbrant/regdossier/internal/inference"
)

// Options controls one reconciliation run.
type Options struct {
	// Overwrite lets incoming evidence replace populated fields. The
	// default fill-only mode never displaces stored data.
	Overwrite bool
	// UseLLMInference enables the single gap-filling inference call.
	UseLLMInference bool
}

// DefaultOptions matches the external contract: fill-only, inference on.
func DefaultOptions() Options {
	return Options{Overwrite: false, UseLLMInference: true}
}

// AppliedCounts reports how many fields each dossier section gained or
// changed during the run, deterministic merges and inference combined.
type AppliedCounts struct {
	Core              int `json:"core"`
	ClinicalContext   int `json:"clinicalContext"`
	RiskContext       int `json:"riskContext"`
	ClinicalEvidence  int `json:"clinicalEvidence"`
	RegulatoryHistory int `json:"regulatoryHistory"`
	PriorPsursAdded   int `json:"priorPsursAdded"`
	PriorPsursUpdated int `json:"priorPsursUpdated"`
	BaselinesUpserted int `json:"baselinesUpserted"`
}

// Result is the outcome of one AutoPopulate run.
type Result struct {
	DeviceCode             string          `json:"deviceCode"`
	Overwrite              bool            `json:"overwrite"`
	EvidenceItemsProcessed int             `json:"evidenceItemsProcessed"`
	EvidenceTypesUsed      map[string]int  `json:"evidenceTypesUsed"`
	Applied                AppliedCounts   `json:"applied"`
	FilledFields           []string        `json:"filledFields"`
	Warnings               []string        `json:"warnings"`
	LLMInference           *inference.Meta `json:"llmInference,omitempty"`
	CompletenessScore      int             `json:"completenessScore"`
}
