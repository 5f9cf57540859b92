package reconcile

import (
	"time"

	"github.com/josephbrant/regdossier/internal/dossier"
	"github.com/josephbrant/regdossier/internal/merge"
)

// tracker accumulates the dotted names of fields a run filled or changed.
type tracker struct {
	filled []string
}

func (t *tracker) note(field string, changed bool) int {
	if !changed {
		return 0
	}
	t.filled = append(t.filled, field)
	return 1
}

// Incoming section values. Both the deterministic evidence path and the
// inference patch path reduce their input to these shapes before merging,
// so the two paths cannot diverge in policy.

type coreIncoming struct {
	TradeName       string
	Manufacturer    string
	ModelNumbers    []string
	BasicUDI        string
	DeviceClass     string
	Description     string
	MarketEntryDate *time.Time
}

func (c coreIncoming) empty() bool {
	return c.TradeName == "" && c.Manufacturer == "" && len(c.ModelNumbers) == 0 &&
		c.BasicUDI == "" && c.DeviceClass == "" && c.Description == "" && c.MarketEntryDate == nil
}

type clinicalIncoming struct {
	IntendedPurpose     string
	Indications         []string
	Contraindications   []string
	TargetPopulation    string
	Benefits            []dossier.ClinicalBenefit
	WarningsPrecautions string
}

func (c clinicalIncoming) empty() bool {
	return c.IntendedPurpose == "" && len(c.Indications) == 0 && len(c.Contraindications) == 0 &&
		c.TargetPopulation == "" && len(c.Benefits) == 0 && c.WarningsPrecautions == ""
}

type riskIncoming struct {
	Risks                        []dossier.PrincipalRisk
	RiskMitigations              string
	ResidualRisks                string
	ComplaintRateThreshold       *float64
	SeriousIncidentRateThreshold *float64
}

func (r riskIncoming) empty() bool {
	return len(r.Risks) == 0 && r.RiskMitigations == "" && r.ResidualRisks == "" &&
		r.ComplaintRateThreshold == nil && r.SeriousIncidentRateThreshold == nil
}

type evidenceIncoming struct {
	Studies           []dossier.ClinicalStudy
	LiteratureSummary string
	PMCFSummary       string
	EquivalentDevices []string
}

func (e evidenceIncoming) empty() bool {
	return len(e.Studies) == 0 && e.LiteratureSummary == "" && e.PMCFSummary == "" &&
		len(e.EquivalentDevices) == 0
}

type regulatoryIncoming struct {
	Certificates      []dossier.Certificate
	FSCAHistory       []dossier.FSCARecord
	DesignChanges     []dossier.DesignChange
	RegulatoryActions string
}

func (r regulatoryIncoming) empty() bool {
	return len(r.Certificates) == 0 && len(r.FSCAHistory) == 0 && len(r.DesignChanges) == 0 &&
		r.RegulatoryActions == ""
}

func mergeCore(d *dossier.Dossier, inc coreIncoming, overwrite bool, tr *tracker) int {
	if inc.empty() {
		return 0
	}
	n := 0
	var ch bool
	d.TradeName, ch = merge.String(d.TradeName, inc.TradeName, overwrite, 0)
	n += tr.note("core.trade_name", ch)
	d.Manufacturer, ch = merge.String(d.Manufacturer, inc.Manufacturer, overwrite, 0)
	n += tr.note("core.manufacturer", ch)
	d.ModelNumbers, ch = merge.Set(d.ModelNumbers, inc.ModelNumbers, overwrite)
	n += tr.note("core.model_numbers", ch)
	d.BasicUDI, ch = merge.String(d.BasicUDI, inc.BasicUDI, overwrite, 0)
	n += tr.note("core.basic_udi", ch)
	d.DeviceClass, ch = merge.String(d.DeviceClass, inc.DeviceClass, overwrite, 0)
	n += tr.note("core.device_class", ch)
	d.Description, ch = merge.String(d.Description, inc.Description, overwrite, 0)
	n += tr.note("core.description", ch)
	d.MarketEntryDate, ch = merge.Value(d.MarketEntryDate, inc.MarketEntryDate, overwrite)
	n += tr.note("core.market_entry_date", ch)
	return n
}

func mergeClinical(d *dossier.Dossier, inc clinicalIncoming, overwrite bool, tr *tracker) int {
	if inc.empty() {
		return 0
	}
	cur := d.Clinical
	if cur == nil {
		cur = &dossier.ClinicalContext{}
	}
	n := 0
	var ch bool
	cur.IntendedPurpose, ch = merge.String(cur.IntendedPurpose, inc.IntendedPurpose, overwrite, 0)
	n += tr.note("clinical_context.intended_purpose", ch)
	cur.Indications, ch = merge.Set(cur.Indications, inc.Indications, overwrite)
	n += tr.note("clinical_context.indications", ch)
	cur.Contraindications, ch = merge.Set(cur.Contraindications, inc.Contraindications, overwrite)
	n += tr.note("clinical_context.contraindications", ch)
	cur.TargetPopulation, ch = merge.String(cur.TargetPopulation, inc.TargetPopulation, overwrite, 0)
	n += tr.note("clinical_context.target_population", ch)
	cur.ClinicalBenefits, ch = merge.ByID(cur.ClinicalBenefits, inc.Benefits, overwrite, fillBenefit)
	n += tr.note("clinical_context.clinical_benefits", ch)
	cur.WarningsPrecautions, ch = merge.String(cur.WarningsPrecautions, inc.WarningsPrecautions, overwrite, 0)
	n += tr.note("clinical_context.warnings_precautions", ch)
	if n > 0 || d.Clinical != nil {
		d.Clinical = cur
	}
	return n
}

func mergeRisk(d *dossier.Dossier, inc riskIncoming, overwrite bool, tr *tracker) int {
	if inc.empty() {
		return 0
	}
	cur := d.Risk
	if cur == nil {
		cur = &dossier.RiskContext{}
	}
	n := 0
	var ch bool
	cur.PrincipalRisks, ch = merge.ByID(cur.PrincipalRisks, inc.Risks, overwrite, fillRisk)
	n += tr.note("risk_context.principal_risks", ch)
	cur.RiskMitigations, ch = merge.String(cur.RiskMitigations, inc.RiskMitigations, overwrite, 0)
	n += tr.note("risk_context.risk_mitigations", ch)
	cur.ResidualRisks, ch = merge.String(cur.ResidualRisks, inc.ResidualRisks, overwrite, 0)
	n += tr.note("risk_context.residual_risks", ch)
	cur.ComplaintRateThreshold, ch = merge.Value(cur.ComplaintRateThreshold, inc.ComplaintRateThreshold, overwrite)
	n += tr.note("risk_context.complaint_rate_threshold", ch)
	cur.SeriousIncidentRateThreshold, ch = merge.Value(cur.SeriousIncidentRateThreshold, inc.SeriousIncidentRateThreshold, overwrite)
	n += tr.note("risk_context.serious_incident_rate_threshold", ch)
	if n > 0 || d.Risk != nil {
		d.Risk = cur
	}
	return n
}

func mergeEvidence(d *dossier.Dossier, inc evidenceIncoming, overwrite bool, tr *tracker) int {
	if inc.empty() {
		return 0
	}
	cur := d.Evidence
	if cur == nil {
		cur = &dossier.ClinicalEvidence{}
	}
	n := 0
	var ch bool
	cur.ClinicalStudies, ch = merge.ByID(cur.ClinicalStudies, inc.Studies, overwrite, fillStudy)
	n += tr.note("clinical_evidence.clinical_studies", ch)
	cur.LiteratureSummary, ch = merge.String(cur.LiteratureSummary, inc.LiteratureSummary, overwrite, 0)
	n += tr.note("clinical_evidence.literature_summary", ch)
	cur.PMCFSummary, ch = merge.String(cur.PMCFSummary, inc.PMCFSummary, overwrite, 0)
	n += tr.note("clinical_evidence.pmcf_summary", ch)
	cur.EquivalentDevices, ch = merge.Set(cur.EquivalentDevices, inc.EquivalentDevices, overwrite)
	n += tr.note("clinical_evidence.equivalent_devices", ch)
	if n > 0 || d.Evidence != nil {
		d.Evidence = cur
	}
	return n
}

func mergeRegulatory(d *dossier.Dossier, inc regulatoryIncoming, overwrite bool, tr *tracker) int {
	if inc.empty() {
		return 0
	}
	cur := d.Regulatory
	if cur == nil {
		cur = &dossier.RegulatoryHistory{}
	}
	n := 0
	var ch bool
	cur.Certificates, ch = merge.ByID(cur.Certificates, inc.Certificates, overwrite, fillCertificate)
	n += tr.note("regulatory_history.certificates", ch)
	cur.FSCAHistory, ch = merge.ByID(cur.FSCAHistory, inc.FSCAHistory, overwrite, fillFSCA)
	n += tr.note("regulatory_history.fsca_history", ch)
	cur.DesignChanges, ch = merge.ByID(cur.DesignChanges, inc.DesignChanges, overwrite, fillChange)
	n += tr.note("regulatory_history.design_changes", ch)
	cur.RegulatoryActions, ch = merge.String(cur.RegulatoryActions, inc.RegulatoryActions, overwrite, 0)
	n += tr.note("regulatory_history.regulatory_actions", ch)
	if n > 0 || d.Regulatory != nil {
		d.Regulatory = cur
	}
	return n
}

// Fill funcs for keyed object merges: copy src fields onto dst only where
// dst has none.

func fillBenefit(dst, src dossier.ClinicalBenefit) (dossier.ClinicalBenefit, bool) {
	changed := false
	var ch bool
	dst.Description, ch = merge.FillString(dst.Description, src.Description)
	changed = changed || ch
	dst.ClinicalMeasure, ch = merge.FillString(dst.ClinicalMeasure, src.ClinicalMeasure)
	changed = changed || ch
	dst.ExpectedOutcome, ch = merge.FillString(dst.ExpectedOutcome, src.ExpectedOutcome)
	changed = changed || ch
	return dst, changed
}

func fillRisk(dst, src dossier.PrincipalRisk) (dossier.PrincipalRisk, bool) {
	changed := false
	var ch bool
	dst.Hazard, ch = merge.FillString(dst.Hazard, src.Hazard)
	changed = changed || ch
	dst.Harm, ch = merge.FillString(dst.Harm, src.Harm)
	changed = changed || ch
	dst.Severity, ch = merge.FillString(dst.Severity, src.Severity)
	changed = changed || ch
	return dst, changed
}

func fillStudy(dst, src dossier.ClinicalStudy) (dossier.ClinicalStudy, bool) {
	changed := false
	var ch bool
	dst.Title, ch = merge.FillString(dst.Title, src.Title)
	changed = changed || ch
	dst.Status, ch = merge.FillString(dst.Status, src.Status)
	changed = changed || ch
	dst.Outcome, ch = merge.FillString(dst.Outcome, src.Outcome)
	changed = changed || ch
	return dst, changed
}

func fillCertificate(dst, src dossier.Certificate) (dossier.Certificate, bool) {
	changed := false
	var ch bool
	dst.Kind, ch = merge.FillString(dst.Kind, src.Kind)
	changed = changed || ch
	dst.IssuedBy, ch = merge.FillString(dst.IssuedBy, src.IssuedBy)
	changed = changed || ch
	dst.ValidUntil, ch = merge.FillString(dst.ValidUntil, src.ValidUntil)
	changed = changed || ch
	return dst, changed
}

func fillFSCA(dst, src dossier.FSCARecord) (dossier.FSCARecord, bool) {
	changed := false
	var ch bool
	dst.Description, ch = merge.FillString(dst.Description, src.Description)
	changed = changed || ch
	dst.Status, ch = merge.FillString(dst.Status, src.Status)
	changed = changed || ch
	dst.InitiatedAt, ch = merge.FillString(dst.InitiatedAt, src.InitiatedAt)
	changed = changed || ch
	return dst, changed
}

func fillChange(dst, src dossier.DesignChange) (dossier.DesignChange, bool) {
	changed := false
	var ch bool
	dst.Description, ch = merge.FillString(dst.Description, src.Description)
	changed = changed || ch
	dst.Reason, ch = merge.FillString(dst.Reason, src.Reason)
	changed = changed || ch
	dst.ImplementedAt, ch = merge.FillString(dst.ImplementedAt, src.ImplementedAt)
	changed = changed || ch
	return dst, changed
}

func fillPriorPSUR(dst, src dossier.PriorPSUR) (dossier.PriorPSUR, bool) {
	changed := false
	var ch bool
	dst.Conclusion, ch = merge.FillString(dst.Conclusion, src.Conclusion)
	changed = changed || ch
	dst.BenefitRiskDetermination, ch = merge.FillString(dst.BenefitRiskDetermination, src.BenefitRiskDetermination)
	changed = changed || ch
	dst.ReportDate, ch = merge.Value(dst.ReportDate, src.ReportDate, false)
	changed = changed || ch
	return dst, changed
}

func fillBaseline(dst, src dossier.PerformanceBaseline) (dossier.PerformanceBaseline, bool) {
	changed := false
	var ch bool
	dst.Value, ch = merge.Value(dst.Value, src.Value, false)
	changed = changed || ch
	dst.Unit, ch = merge.FillString(dst.Unit, src.Unit)
	changed = changed || ch
	dst.Period, ch = merge.FillString(dst.Period, src.Period)
	changed = changed || ch
	dst.Source, ch = merge.FillString(dst.Source, src.Source)
	changed = changed || ch
	return dst, changed
}
