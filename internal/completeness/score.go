// Package completeness scores a reconciled dossier against the PSUR content
// rubric. Checks are quality gates with graduated credit, not presence
// checks; the scorer is pure and never persists anything.
package completeness

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/josephbrant/regdossier/internal/dossier"
)

// Category names, also the keys of Breakdown.Categories.
const (
	CategoryIdentity          = "identity"
	CategoryClinicalContext   = "clinical_context"
	CategoryRiskContext       = "risk_context"
	CategoryClinicalEvidence  = "clinical_evidence"
	CategoryRegulatoryHistory = "regulatory_history"
	CategoryPriorPSURs        = "prior_psurs"
	CategoryBaselines         = "baselines"
)

// newDeviceWindow is how recently a device must have entered the market for
// an empty prior-PSUR history to be expected rather than missing.
const newDeviceWindow = 2 * 365 * 24 * time.Hour

type CategoryScore struct {
	Score   int      `json:"score"`
	Max     int      `json:"max"`
	Missing []string `json:"missing"`
}

type Breakdown struct {
	Score           int                      `json:"score"`
	Categories      map[string]CategoryScore `json:"categories"`
	CriticalMissing []string                 `json:"critical_missing"`
	Recommendations []string                 `json:"recommendations"`
}

// Score computes the weighted 0-100 completeness breakdown. now anchors the
// new-device exemption for prior PSURs.
func Score(d *dossier.Dossier, now time.Time) Breakdown {
	b := Breakdown{Categories: map[string]CategoryScore{}}

	score := func(name string, max int, earned float64, missing []string) {
		pts := int(math.Round(earned * float64(max)))
		if pts > max {
			pts = max
		}
		b.Categories[name] = CategoryScore{Score: pts, Max: max, Missing: missing}
		b.Score += pts
	}

	earned, missing := scoreIdentity(d)
	score(CategoryIdentity, 15, earned, missing)

	earned, missing, critical := scoreClinicalContext(d.Clinical)
	score(CategoryClinicalContext, 25, earned, missing)
	b.CriticalMissing = append(b.CriticalMissing, critical...)

	earned, missing, critical = scoreRiskContext(d.Risk)
	score(CategoryRiskContext, 20, earned, missing)
	b.CriticalMissing = append(b.CriticalMissing, critical...)

	earned, missing = scoreClinicalEvidence(d.Evidence)
	score(CategoryClinicalEvidence, 15, earned, missing)

	earned, missing = scoreRegulatoryHistory(d.Regulatory)
	score(CategoryRegulatoryHistory, 10, earned, missing)

	earned, missing, critical = scorePriorPSURs(d, now)
	score(CategoryPriorPSURs, 10, earned, missing)
	b.CriticalMissing = append(b.CriticalMissing, critical...)

	earned, missing = scoreBaselines(d.Baselines)
	score(CategoryBaselines, 5, earned, missing)

	b.Recommendations = recommendations(b)
	return b
}

// gateText grades long-form text: full credit at fullMin characters, half
// credit from partialMin, nothing below that.
func gateText(s string, fullMin, partialMin int) float64 {
	n := len(strings.TrimSpace(s))
	switch {
	case n >= fullMin:
		return 1
	case n >= partialMin:
		return 0.5
	default:
		return 0
	}
}

func present(s string) float64 {
	if len(strings.TrimSpace(s)) >= 2 {
		return 1
	}
	return 0
}

type check struct {
	weight  float64
	earned  float64
	missing string
}

func tally(checks []check) (float64, []string) {
	var total, earned float64
	var missing []string
	for _, c := range checks {
		total += c.weight
		earned += c.weight * c.earned
		if c.earned == 0 && c.missing != "" {
			missing = append(missing, c.missing)
		}
	}
	if total == 0 {
		return 0, missing
	}
	return earned / total, missing
}

func scoreIdentity(d *dossier.Dossier) (float64, []string) {
	return tally([]check{
		{4, present(d.TradeName), "trade_name"},
		{3, present(d.Manufacturer), "manufacturer"},
		{2, present(d.DeviceClass), "device_class"},
		{2, present(d.BasicUDI), "basic_udi"},
		{2, boolCredit(len(d.ModelNumbers) > 0), "model_numbers"},
		{2, boolCredit(d.MarketEntryDate != nil), "market_entry_date"},
	})
}

func scoreClinicalContext(c *dossier.ClinicalContext) (float64, []string, []string) {
	if c == nil {
		return 0, []string{"intended_purpose", "indications", "target_population", "clinical_benefits", "warnings_precautions"},
			[]string{"clinical_context.intended_purpose", "clinical_context.clinical_benefits"}
	}

	validBenefits := 0
	for _, b := range c.ClinicalBenefits {
		if len(strings.TrimSpace(b.Description)) >= 10 {
			validBenefits++
		}
	}

	earned, missing := tally([]check{
		{8, gateText(c.IntendedPurpose, 50, 10), "intended_purpose"},
		{3, boolCredit(len(c.Indications) > 0), "indications"},
		{3, gateText(c.TargetPopulation, 20, 5), "target_population"},
		{8, graduated(validBenefits, 2), "clinical_benefits"},
		{3, gateText(c.WarningsPrecautions, 20, 10), "warnings_precautions"},
	})

	var critical []string
	if gateText(c.IntendedPurpose, 50, 10) == 0 {
		critical = append(critical, "clinical_context.intended_purpose")
	}
	if validBenefits == 0 {
		critical = append(critical, "clinical_context.clinical_benefits")
	}
	return earned, missing, critical
}

func scoreRiskContext(r *dossier.RiskContext) (float64, []string, []string) {
	if r == nil {
		return 0, []string{"principal_risks", "complaint_rate_threshold", "serious_incident_rate_threshold", "risk_mitigations"},
			[]string{"risk_context.principal_risks", "risk_context.thresholds"}
	}

	validRisks := 0
	for _, pr := range r.PrincipalRisks {
		if present(pr.Hazard) > 0 && present(pr.Harm) > 0 && present(pr.Severity) > 0 {
			validRisks++
		}
	}

	earned, missing := tally([]check{
		{10, graduated(validRisks, 3), "principal_risks"},
		{3, boolCredit(r.ComplaintRateThreshold != nil), "complaint_rate_threshold"},
		{3, boolCredit(r.SeriousIncidentRateThreshold != nil), "serious_incident_rate_threshold"},
		{4, gateText(r.RiskMitigations, 30, 10), "risk_mitigations"},
	})

	var critical []string
	if validRisks == 0 {
		critical = append(critical, "risk_context.principal_risks")
	}
	if r.ComplaintRateThreshold == nil && r.SeriousIncidentRateThreshold == nil {
		critical = append(critical, "risk_context.thresholds")
	}
	return earned, missing, critical
}

func scoreClinicalEvidence(e *dossier.ClinicalEvidence) (float64, []string) {
	if e == nil {
		return 0, []string{"clinical_studies", "literature_summary", "pmcf_summary"}
	}
	validStudies := 0
	for _, s := range e.ClinicalStudies {
		if present(s.StudyID) > 0 && present(s.Title) > 0 {
			validStudies++
		}
	}
	return tally([]check{
		{6, graduated(validStudies, 1), "clinical_studies"},
		{5, gateText(e.LiteratureSummary, 50, 10), "literature_summary"},
		{4, gateText(e.PMCFSummary, 30, 10), "pmcf_summary"},
	})
}

func scoreRegulatoryHistory(h *dossier.RegulatoryHistory) (float64, []string) {
	if h == nil {
		return 0, []string{"certificates", "regulatory_actions"}
	}
	validCerts := 0
	for _, c := range h.Certificates {
		if present(c.CertificateID) > 0 {
			validCerts++
		}
	}
	return tally([]check{
		{6, graduated(validCerts, 1), "certificates"},
		{4, gateText(h.RegulatoryActions, 20, 10), "regulatory_actions"},
	})
}

func scorePriorPSURs(d *dossier.Dossier, now time.Time) (float64, []string, []string) {
	best := 0.0
	for _, p := range d.PriorPSURs {
		credit := 0.5
		if len(strings.TrimSpace(p.Conclusion)) >= 20 {
			credit = 1
		}
		if credit > best {
			best = credit
		}
	}
	if best > 0 {
		return best, nil, nil
	}

	// A device on the market for under two years has no history to report;
	// the category is satisfied vacuously.
	if d.MarketEntryDate != nil && now.Sub(*d.MarketEntryDate) < newDeviceWindow {
		return 1, nil, nil
	}
	return 0, []string{"prior_psurs"}, []string{"prior_psurs"}
}

func scoreBaselines(baselines []dossier.PerformanceBaseline) (float64, []string) {
	valid := 0
	for _, b := range baselines {
		if present(b.MetricType) > 0 && b.Value != nil {
			valid++
		}
	}
	return tally([]check{
		{5, graduated(valid, 2), "performance_baselines"},
	})
}

// graduated awards count/target, capped at full credit.
func graduated(count, target int) float64 {
	if count <= 0 {
		return 0
	}
	if count >= target {
		return 1
	}
	return float64(count) / float64(target)
}

func boolCredit(ok bool) float64 {
	if ok {
		return 1
	}
	return 0
}

var categoryAdvice = map[string]string{
	CategoryIdentity:          "Complete the device identity block (trade name, manufacturer, UDI, class) from the device master record.",
	CategoryClinicalContext:   "Provide a substantive intended purpose statement and at least two documented clinical benefits.",
	CategoryRiskContext:       "Add principal risks with hazard, harm and severity, and set the complaint and serious-incident rate thresholds.",
	CategoryClinicalEvidence:  "Reference at least one clinical study and summarise the literature and PMCF activity.",
	CategoryRegulatoryHistory: "Record current certificates and any regulatory actions taken in the reporting period.",
	CategoryPriorPSURs:        "Register the previous PSUR's period and conclusion, or the device's market entry date if it is new.",
	CategoryBaselines:         "Add performance baselines (complaint rate, incident rate) so trends can be computed.",
}

func recommendations(b Breakdown) []string {
	var out []string
	for _, name := range []string{
		CategoryIdentity, CategoryClinicalContext, CategoryRiskContext,
		CategoryClinicalEvidence, CategoryRegulatoryHistory, CategoryPriorPSURs, CategoryBaselines,
	} {
		c := b.Categories[name]
		if c.Score < c.Max {
			out = append(out, fmt.Sprintf("%s (%d/%d): %s", name, c.Score, c.Max, categoryAdvice[name]))
		}
	}
	return out
}
