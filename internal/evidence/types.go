package evidence

import "time"

// Evidence types known to the reconciliation engine. Extractors are free to
// emit other spellings; Normalize lowercases and snake_cases what it is
// given, and records with no type at all are classified by inference.
const (
	TypeSalesVolume         = "sales_volume"
	TypeComplaintSummary    = "complaint_summary"
	TypeSeriousIncident     = "serious_incident"
	TypeFSCA                = "fsca"
	TypeClinicalStudy       = "clinical_study"
	TypeLiteratureReview    = "literature_review"
	TypeRiskAssessment      = "risk_assessment"
	TypeDeviceMaster        = "device_master"
	TypePriorPSUR           = "prior_psur"
	TypePerformanceBaseline = "performance_baseline"
)

// Provenance records where an atom came from. Missing fields are synthesized
// at normalization time rather than rejecting the record.
type Provenance struct {
	UploadID    int64     `json:"upload_id"`
	SourceFile  string    `json:"source_file"`
	ExtractedAt time.Time `json:"extracted_at"`
	DeviceRef   string    `json:"device_ref"`
	Period      string    `json:"period"`
	Confidence  float64   `json:"confidence"`
}

// SourceUnknown reports whether normalization had to synthesize the source
// because the raw record carried none.
func (p Provenance) SourceUnknown() bool { return p.SourceFile == unknownSource }

// Atom is one normalized, content-hashed extraction record. Atoms are
// immutable once created; identical extractions collapse to the same hash
// and therefore the same atom id.
type Atom struct {
	AtomID         string         `json:"atom_id"`
	Type           string         `json:"type"`
	Version        string         `json:"version"`
	ContentHash    string         `json:"content_hash"`
	NormalizedData map[string]any `json:"normalized_data"`
	Provenance     Provenance     `json:"provenance"`
}

// Raw is an extraction record as delivered by an upstream extractor:
// uncanonicalized field names, optional type and provenance.
type Raw struct {
	EvidenceType string         `json:"evidenceType,omitempty"`
	Confidence   *float64       `json:"confidence,omitempty"`
	Data         map[string]any `json:"data"`
	SourceName   string         `json:"sourceName,omitempty"`
	SourceFile   string         `json:"sourceFile,omitempty"`
	ExtractedAt  *time.Time     `json:"extractedAt,omitempty"`
}

// Context carries the reconciliation run's identity into normalization,
// used when a record's own provenance is incomplete.
type Context struct {
	DeviceCode string
	Period     string
	UploadID   int64
	Clock      func() time.Time
}
