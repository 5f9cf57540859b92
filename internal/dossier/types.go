// Package dossier defines the reconciled device record and its repository.
// A dossier is created once per device code; sub-sections come into
// existence on first successful merge and are owned by the aggregate.
package dossier

import "time"

// Dossier is the canonical device record every downstream consumer reads.
type Dossier struct {
	DeviceCode      string     `json:"device_code"`
	TradeName       string     `json:"trade_name"`
	Manufacturer    string     `json:"manufacturer"`
	ModelNumbers    []string   `json:"model_numbers"`
	BasicUDI        string     `json:"basic_udi"`
	DeviceClass     string     `json:"device_class"`
	Description     string     `json:"description"`
	MarketEntryDate *time.Time `json:"market_entry_date,omitempty"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`

	Clinical   *ClinicalContext      `json:"clinical_context,omitempty"`
	Risk       *RiskContext          `json:"risk_context,omitempty"`
	Evidence   *ClinicalEvidence     `json:"clinical_evidence,omitempty"`
	Regulatory *RegulatoryHistory    `json:"regulatory_history,omitempty"`
	PriorPSURs []PriorPSUR           `json:"prior_psurs,omitempty"`
	Baselines  []PerformanceBaseline `json:"performance_baselines,omitempty"`
}

type ClinicalContext struct {
	IntendedPurpose     string            `json:"intended_purpose"`
	Indications         []string          `json:"indications"`
	Contraindications   []string          `json:"contraindications"`
	TargetPopulation    string            `json:"target_population"`
	ClinicalBenefits    []ClinicalBenefit `json:"clinical_benefits"`
	WarningsPrecautions string            `json:"warnings_precautions"`
}

type ClinicalBenefit struct {
	BenefitID       string `json:"benefit_id"`
	Description     string `json:"description"`
	ClinicalMeasure string `json:"clinical_measure,omitempty"`
	ExpectedOutcome string `json:"expected_outcome,omitempty"`
}

func (b ClinicalBenefit) MergeID() string { return b.BenefitID }

type RiskContext struct {
	PrincipalRisks               []PrincipalRisk `json:"principal_risks"`
	RiskMitigations              string          `json:"risk_mitigations"`
	ResidualRisks                string          `json:"residual_risks"`
	ComplaintRateThreshold       *float64        `json:"complaint_rate_threshold,omitempty"`
	SeriousIncidentRateThreshold *float64        `json:"serious_incident_rate_threshold,omitempty"`
}

type PrincipalRisk struct {
	RiskID   string `json:"risk_id"`
	Hazard   string `json:"hazard"`
	Harm     string `json:"harm"`
	Severity string `json:"severity"`
}

func (r PrincipalRisk) MergeID() string { return r.RiskID }

type ClinicalEvidence struct {
	ClinicalStudies   []ClinicalStudy `json:"clinical_studies"`
	LiteratureSummary string          `json:"literature_summary"`
	PMCFSummary       string          `json:"pmcf_summary"`
	EquivalentDevices []string        `json:"equivalent_devices"`
}

type ClinicalStudy struct {
	StudyID string `json:"study_id"`
	Title   string `json:"title"`
	Status  string `json:"status,omitempty"`
	Outcome string `json:"outcome,omitempty"`
}

func (s ClinicalStudy) MergeID() string { return s.StudyID }

type RegulatoryHistory struct {
	Certificates      []Certificate  `json:"certificates"`
	FSCAHistory       []FSCARecord   `json:"fsca_history"`
	DesignChanges     []DesignChange `json:"design_changes"`
	RegulatoryActions string         `json:"regulatory_actions"`
}

type Certificate struct {
	CertificateID string `json:"certificate_id"`
	Kind          string `json:"kind,omitempty"`
	IssuedBy      string `json:"issued_by,omitempty"`
	ValidUntil    string `json:"valid_until,omitempty"`
}

func (c Certificate) MergeID() string { return c.CertificateID }

type FSCARecord struct {
	FSCAID      string `json:"fsca_id"`
	Description string `json:"description,omitempty"`
	Status      string `json:"status,omitempty"`
	InitiatedAt string `json:"initiated_at,omitempty"`
}

func (f FSCARecord) MergeID() string { return f.FSCAID }

type DesignChange struct {
	ChangeID      string `json:"change_id"`
	Description   string `json:"description,omitempty"`
	Reason        string `json:"reason,omitempty"`
	ImplementedAt string `json:"implemented_at,omitempty"`
}

func (d DesignChange) MergeID() string { return d.ChangeID }

// PriorPSUR is one historical report record, keyed by (device code, period).
type PriorPSUR struct {
	DeviceCode               string     `json:"device_code"`
	Period                   string     `json:"period"`
	ReportDate               *time.Time `json:"report_date,omitempty"`
	Conclusion               string     `json:"conclusion"`
	BenefitRiskDetermination string     `json:"benefit_risk_determination"`
}

func (p PriorPSUR) MergeID() string { return p.Period }

// PerformanceBaseline is one reference metric, keyed by (device code,
// metric type).
type PerformanceBaseline struct {
	DeviceCode string   `json:"device_code"`
	MetricType string   `json:"metric_type"`
	Value      *float64 `json:"value,omitempty"`
	Unit       string   `json:"unit,omitempty"`
	Period     string   `json:"period,omitempty"`
	Source     string   `json:"source,omitempty"`
}

func (b PerformanceBaseline) MergeID() string { return b.MetricType }
