// Package dossierctx renders a reconciled dossier into the pre-built text
// blocks and structured values the narrative generators consume. Rendering
// never fails: absent sections degrade to explanatory fallback text, and a
// missing dossier yields a fully synthesized first-report context.
package dossierctx

import (
	"fmt"
	"sort"
	"strings"

	"github.com/josephbrant/regdossier/internal/dossier"
)

// Default thresholds applied when a dossier carries none, stated per 10,000
// units placed on the market.
const (
	DefaultComplaintRateThreshold       = 5.0
	DefaultSeriousIncidentRateThreshold = 1.0
)

// Thresholds carries the rates the numeric analyses compare against.
// Defaulted marks values substituted because the dossier had none.
type Thresholds struct {
	ComplaintRate       float64 `json:"complaint_rate"`
	SeriousIncidentRate float64 `json:"serious_incident_rate"`
	Defaulted           bool    `json:"defaulted"`
}

// Context is the downstream consumer interface: six rendered text blocks
// plus the structured fields needed for calculations.
type Context struct {
	DeviceCode    string `json:"device_code"`
	Period        string `json:"period"`
	DossierExists bool   `json:"dossier_exists"`

	ProductSummary  string `json:"product_summary"`
	ClinicalBlock   string `json:"clinical_block"`
	RiskBlock       string `json:"risk_block"`
	RegulatoryBlock string `json:"regulatory_block"`
	BaselineBlock   string `json:"baseline_block"`
	PriorPSURBlock  string `json:"prior_psur_block"`

	Thresholds          Thresholds                    `json:"thresholds"`
	ClinicalBenefits    []dossier.ClinicalBenefit     `json:"clinical_benefits,omitempty"`
	PriorPsurConclusion string                        `json:"prior_psur_conclusion,omitempty"`
	Baselines           []dossier.PerformanceBaseline `json:"performance_baselines,omitempty"`
}

// Build renders the context for one reporting period. A nil dossier returns
// the synthetic first-report context rather than an error; blocking document
// generation on dossier completeness is not an option here.
func Build(d *dossier.Dossier, period string) Context {
	if d == nil {
		return synthetic(period)
	}
	ctx := Context{
		DeviceCode:     d.DeviceCode,
		Period:         period,
		DossierExists:  true,
		ProductSummary: productSummary(d),
	}
	ctx.ClinicalBlock = clinicalBlock(d.Clinical)
	ctx.RiskBlock, ctx.Thresholds = riskBlock(d.Risk)
	ctx.RegulatoryBlock = regulatoryBlock(d.Regulatory)
	ctx.BaselineBlock = baselineBlock(d.Baselines)
	ctx.PriorPSURBlock, ctx.PriorPsurConclusion = priorPSURBlock(d.PriorPSURs)
	if d.Clinical != nil {
		ctx.ClinicalBenefits = d.Clinical.ClinicalBenefits
	}
	ctx.Baselines = d.Baselines
	return ctx
}

func synthetic(period string) Context {
	return Context{
		Period:        period,
		DossierExists: false,
		ProductSummary: "No device dossier is on file. Device identity below is taken " +
			"from the evidence submitted with this run only.",
		ClinicalBlock: "No clinical context is on file. Intended purpose, indications and " +
			"claimed clinical benefits must be derived from the submitted evidence.",
		RiskBlock: fmt.Sprintf("No risk context is on file. Default review thresholds apply: "+
			"complaint rate %.1f per 10,000 units, serious incident rate %.1f per 10,000 units.",
			DefaultComplaintRateThreshold, DefaultSeriousIncidentRateThreshold),
		RegulatoryBlock: "No regulatory history is on file. No certificates, field safety " +
			"corrective actions or design changes are assumed.",
		BaselineBlock: "No performance baselines are on file; period rates cannot be compared " +
			"against historical reference values.",
		PriorPSURBlock: "This is treated as the first periodic safety update report for this " +
			"device. No prior report conclusions are available.",
		Thresholds: Thresholds{
			ComplaintRate:       DefaultComplaintRateThreshold,
			SeriousIncidentRate: DefaultSeriousIncidentRateThreshold,
			Defaulted:           true,
		},
	}
}

func productSummary(d *dossier.Dossier) string {
	var b strings.Builder
	name := d.TradeName
	if name == "" {
		name = d.DeviceCode
	}
	fmt.Fprintf(&b, "Device: %s", name)
	if len(d.ModelNumbers) > 0 {
		fmt.Fprintf(&b, " (models %s)", strings.Join(d.ModelNumbers, ", "))
	}
	b.WriteString(".")
	if d.Manufacturer != "" {
		fmt.Fprintf(&b, " Manufacturer: %s.", d.Manufacturer)
	}
	if d.DeviceClass != "" {
		fmt.Fprintf(&b, " Risk class %s.", d.DeviceClass)
	}
	if d.BasicUDI != "" {
		fmt.Fprintf(&b, " Basic UDI-DI %s.", d.BasicUDI)
	}
	if d.MarketEntryDate != nil {
		fmt.Fprintf(&b, " On the market since %s.", d.MarketEntryDate.Format("January 2006"))
	}
	if d.Description != "" {
		b.WriteString("\n" + d.Description)
	}
	return b.String()
}

func clinicalBlock(c *dossier.ClinicalContext) string {
	if c == nil {
		return "Clinical context section is missing from the dossier. Intended purpose and " +
			"claimed benefits should be confirmed against the device's technical documentation."
	}
	var b strings.Builder
	if c.IntendedPurpose != "" {
		fmt.Fprintf(&b, "Intended purpose: %s\n", c.IntendedPurpose)
	} else {
		b.WriteString("Intended purpose is not recorded in the dossier.\n")
	}
	if len(c.Indications) > 0 {
		fmt.Fprintf(&b, "Indications: %s.\n", strings.Join(c.Indications, "; "))
	}
	if len(c.Contraindications) > 0 {
		fmt.Fprintf(&b, "Contraindications: %s.\n", strings.Join(c.Contraindications, "; "))
	}
	if c.TargetPopulation != "" {
		fmt.Fprintf(&b, "Target population: %s\n", c.TargetPopulation)
	}
	if len(c.ClinicalBenefits) > 0 {
		b.WriteString("Claimed clinical benefits:\n")
		for _, benefit := range c.ClinicalBenefits {
			fmt.Fprintf(&b, "- %s", benefit.Description)
			if benefit.ClinicalMeasure != "" {
				fmt.Fprintf(&b, " (measured by %s)", benefit.ClinicalMeasure)
			}
			b.WriteString("\n")
		}
	} else {
		b.WriteString("No claimed clinical benefits are recorded.\n")
	}
	if c.WarningsPrecautions != "" {
		fmt.Fprintf(&b, "Warnings and precautions: %s\n", c.WarningsPrecautions)
	}
	return strings.TrimRight(b.String(), "\n")
}

func riskBlock(r *dossier.RiskContext) (string, Thresholds) {
	th := Thresholds{
		ComplaintRate:       DefaultComplaintRateThreshold,
		SeriousIncidentRate: DefaultSeriousIncidentRateThreshold,
		Defaulted:           true,
	}
	if r == nil {
		return fmt.Sprintf("Risk context section is missing from the dossier. Default review "+
			"thresholds apply: complaint rate %.1f per 10,000 units, serious incident rate %.1f "+
			"per 10,000 units.", th.ComplaintRate, th.SeriousIncidentRate), th
	}
	if r.ComplaintRateThreshold != nil || r.SeriousIncidentRateThreshold != nil {
		th.Defaulted = false
		if r.ComplaintRateThreshold != nil {
			th.ComplaintRate = *r.ComplaintRateThreshold
		}
		if r.SeriousIncidentRateThreshold != nil {
			th.SeriousIncidentRate = *r.SeriousIncidentRateThreshold
		}
	}
	var b strings.Builder
	if len(r.PrincipalRisks) > 0 {
		b.WriteString("Principal risks from the risk management file:\n")
		for _, pr := range r.PrincipalRisks {
			fmt.Fprintf(&b, "- %s", pr.Hazard)
			if pr.Harm != "" {
				fmt.Fprintf(&b, " leading to %s", pr.Harm)
			}
			if pr.Severity != "" {
				fmt.Fprintf(&b, " (severity: %s)", pr.Severity)
			}
			b.WriteString("\n")
		}
	} else {
		b.WriteString("No principal risks are recorded in the dossier.\n")
	}
	fmt.Fprintf(&b, "Review thresholds: complaint rate %.1f per 10,000 units, serious incident rate %.1f per 10,000 units",
		th.ComplaintRate, th.SeriousIncidentRate)
	if th.Defaulted {
		b.WriteString(" (defaults; the dossier defines none)")
	}
	b.WriteString(".")
	if r.RiskMitigations != "" {
		fmt.Fprintf(&b, "\nRisk mitigations: %s", r.RiskMitigations)
	}
	if r.ResidualRisks != "" {
		fmt.Fprintf(&b, "\nResidual risks: %s", r.ResidualRisks)
	}
	return b.String(), th
}

func regulatoryBlock(h *dossier.RegulatoryHistory) string {
	if h == nil {
		return "Regulatory history section is missing from the dossier. Certificate status, " +
			"field safety corrective actions and design changes are assumed unchanged."
	}
	var b strings.Builder
	if len(h.Certificates) > 0 {
		b.WriteString("Certificates:\n")
		for _, c := range h.Certificates {
			fmt.Fprintf(&b, "- %s", c.CertificateID)
			if c.Kind != "" {
				fmt.Fprintf(&b, " (%s)", c.Kind)
			}
			if c.IssuedBy != "" {
				fmt.Fprintf(&b, " issued by %s", c.IssuedBy)
			}
			if c.ValidUntil != "" {
				fmt.Fprintf(&b, ", valid until %s", c.ValidUntil)
			}
			b.WriteString("\n")
		}
	}
	if len(h.FSCAHistory) > 0 {
		b.WriteString("Field safety corrective actions:\n")
		for _, f := range h.FSCAHistory {
			fmt.Fprintf(&b, "- %s: %s", f.FSCAID, f.Description)
			if f.Status != "" {
				fmt.Fprintf(&b, " [%s]", f.Status)
			}
			b.WriteString("\n")
		}
	} else {
		b.WriteString("No field safety corrective actions on record.\n")
	}
	if len(h.DesignChanges) > 0 {
		b.WriteString("Design changes during the device lifetime:\n")
		for _, dc := range h.DesignChanges {
			fmt.Fprintf(&b, "- %s", dc.Description)
			if dc.ImplementedAt != "" {
				fmt.Fprintf(&b, " (implemented %s)", dc.ImplementedAt)
			}
			b.WriteString("\n")
		}
	}
	if h.RegulatoryActions != "" {
		fmt.Fprintf(&b, "Regulatory authority actions: %s\n", h.RegulatoryActions)
	}
	return strings.TrimRight(b.String(), "\n")
}

func baselineBlock(baselines []dossier.PerformanceBaseline) string {
	if len(baselines) == 0 {
		return "No performance baselines are on file; period rates cannot be compared " +
			"against historical reference values."
	}
	sorted := append([]dossier.PerformanceBaseline{}, baselines...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].MetricType < sorted[j].MetricType })

	var b strings.Builder
	b.WriteString("Historical performance baselines:\n")
	for _, base := range sorted {
		fmt.Fprintf(&b, "- %s: ", base.MetricType)
		if base.Value != nil {
			fmt.Fprintf(&b, "%g", *base.Value)
		} else {
			b.WriteString("value not recorded")
		}
		if base.Unit != "" {
			fmt.Fprintf(&b, " %s", base.Unit)
		}
		if base.Period != "" {
			fmt.Fprintf(&b, " (reference period %s)", base.Period)
		}
		b.WriteString("\n")
	}
	return strings.TrimRight(b.String(), "\n")
}

// priorPSURBlock renders the report history and surfaces the most recent
// period's conclusion for the benefit-risk carry-forward.
func priorPSURBlock(psurs []dossier.PriorPSUR) (string, string) {
	if len(psurs) == 0 {
		return "No prior periodic safety update reports are on record for this device. " +
			"If the device is established on the market, prior report history should be located.", ""
	}
	sorted := append([]dossier.PriorPSUR{}, psurs...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Period > sorted[j].Period })

	var b strings.Builder
	fmt.Fprintf(&b, "Prior report history (%d on record):\n", len(sorted))
	for _, p := range sorted {
		fmt.Fprintf(&b, "- %s", p.Period)
		if p.BenefitRiskDetermination != "" {
			fmt.Fprintf(&b, ": benefit-risk %s", p.BenefitRiskDetermination)
		}
		if p.Conclusion != "" {
			fmt.Fprintf(&b, ". %s", p.Conclusion)
		}
		b.WriteString("\n")
	}
	return strings.TrimRight(b.String(), "\n"), sorted[0].Conclusion
}
