package reconcile

import (
	"reflect"
	"strings"

	"github.com/josephbrant/regdossier/internal/canonical"
	"github.com/josephbrant/regdossier/internal/dossier"
	"github.com/josephbrant/regdossier/internal/evidence"
	"github.com/josephbrant/regdossier/internal/merge"
)

func coreFromAtoms(reg *canonical.Registry, master []evidence.Atom) coreIncoming {
	return coreIncoming{
		TradeName:       topString(reg, master, canonical.KeyTradeName),
		Manufacturer:    topString(reg, master, canonical.KeyManufacturer),
		ModelNumbers:    topStringList(reg, master, canonical.KeyModelNumbers),
		BasicUDI:        topString(reg, master, canonical.KeyBasicUDI),
		DeviceClass:     topString(reg, master, canonical.KeyDeviceClass),
		Description:     topString(reg, master, canonical.KeyDeviceDescription),
		MarketEntryDate: parseDate(topString(reg, master, canonical.KeyMarketEntryDate)),
	}
}

func clinicalFromAtoms(reg *canonical.Registry, master []evidence.Atom) clinicalIncoming {
	return clinicalIncoming{
		IntendedPurpose:     topString(reg, master, canonical.KeyIntendedPurpose),
		Indications:         topStringList(reg, master, canonical.KeyIndications),
		Contraindications:   topStringList(reg, master, canonical.KeyContraindications),
		TargetPopulation:    topString(reg, master, canonical.KeyTargetPopulation),
		Benefits:            benefitsFromAtoms(reg, master),
		WarningsPrecautions: topString(reg, master, canonical.KeyWarningsPrecautions),
	}
}

// benefitsFromAtoms reads the clinical benefit list from the highest-ranked
// atom that carries one. Entries are either objects or bare benefit
// statements; bare statements become unkeyed entries deduplicated by value.
func benefitsFromAtoms(reg *canonical.Registry, ranked []evidence.Atom) []dossier.ClinicalBenefit {
	for _, a := range ranked {
		raw := reg.ArrayField(a.NormalizedData, canonical.KeyClinicalBenefits)
		if len(raw) == 0 {
			continue
		}
		out := make([]dossier.ClinicalBenefit, 0, len(raw))
		for _, item := range raw {
			switch v := item.(type) {
			case string:
				if s := strings.TrimSpace(v); s != "" {
					out = append(out, dossier.ClinicalBenefit{Description: s})
				}
			case map[string]any:
				b := dossier.ClinicalBenefit{
					BenefitID:       entryString(v, "benefit_id", "benefitId", "id"),
					Description:     entryString(v, "description", "benefit", "statement", "text"),
					ClinicalMeasure: entryString(v, "clinical_measure", "clinicalMeasure", "measure", "metric"),
					ExpectedOutcome: entryString(v, "expected_outcome", "expectedOutcome", "outcome"),
				}
				if b.BenefitID != "" || b.Description != "" {
					out = append(out, b)
				}
			}
		}
		if len(out) > 0 {
			return out
		}
	}
	return nil
}

func riskFromAtoms(reg *canonical.Registry, assessments []evidence.Atom) riskIncoming {
	return riskIncoming{
		Risks:                        risksFromAtoms(reg, assessments),
		RiskMitigations:              topString(reg, assessments, canonical.KeyRiskMitigations),
		ResidualRisks:                topString(reg, assessments, canonical.KeyResidualRisks),
		ComplaintRateThreshold:       topNumber(reg, assessments, canonical.KeyComplaintRateThreshold),
		SeriousIncidentRateThreshold: topNumber(reg, assessments, canonical.KeySeriousIncidentRateThreshold),
	}
}

func risksFromAtoms(reg *canonical.Registry, ranked []evidence.Atom) []dossier.PrincipalRisk {
	for _, a := range ranked {
		raw := reg.ArrayField(a.NormalizedData, canonical.KeyPrincipalRisks)
		if len(raw) == 0 {
			continue
		}
		out := make([]dossier.PrincipalRisk, 0, len(raw))
		for _, item := range raw {
			entry, ok := asEntry(item)
			if !ok {
				if s, isStr := item.(string); isStr && strings.TrimSpace(s) != "" {
					out = append(out, dossier.PrincipalRisk{Hazard: strings.TrimSpace(s)})
				}
				continue
			}
			r := dossier.PrincipalRisk{
				RiskID:   entryString(entry, "risk_id", "riskId", "id"),
				Hazard:   entryString(entry, "hazard", "hazardous_situation", "hazardousSituation"),
				Harm:     entryString(entry, "harm", "potential_harm", "potentialHarm"),
				Severity: entryString(entry, "severity", "severity_level", "severityLevel"),
			}
			if r.RiskID != "" || r.Hazard != "" {
				out = append(out, r)
			}
		}
		if len(out) > 0 {
			return out
		}
	}
	return nil
}

// evidenceFromAtoms assembles the clinical evidence section. Each study
// atom contributes one study record; the narrative summaries come from the
// literature and device master atoms.
func evidenceFromAtoms(reg *canonical.Registry, studies, literature, master []evidence.Atom) evidenceIncoming {
	inc := evidenceIncoming{
		LiteratureSummary: topString(reg, literature, canonical.KeyLiteratureSummary),
		PMCFSummary:       topString(reg, master, canonical.KeyPMCFSummary),
		EquivalentDevices: topStringList(reg, master, canonical.KeyEquivalentDevices),
	}
	if inc.LiteratureSummary == "" {
		// A literature review without a structured summary field is
		// usually a single narrative block under a generic key.
		inc.LiteratureSummary = topString(reg, literature, "summary")
	}
	for _, a := range studies {
		s := dossier.ClinicalStudy{
			StudyID: reg.StringField(a.NormalizedData, canonical.KeyStudyID),
			Title:   reg.StringField(a.NormalizedData, "title"),
			Status:  reg.StringField(a.NormalizedData, "status"),
			Outcome: reg.StringField(a.NormalizedData, "outcome"),
		}
		if s.Title == "" {
			s.Title = reg.StringField(a.NormalizedData, "study_title")
		}
		if s.StudyID != "" || s.Title != "" {
			inc.Studies = append(inc.Studies, s)
		}
	}
	// Embedded study lists inside the master record fill in behind
	// dedicated study atoms.
	for _, a := range master {
		for _, item := range reg.ArrayField(a.NormalizedData, canonical.KeyClinicalStudies) {
			entry, ok := asEntry(item)
			if !ok {
				continue
			}
			s := dossier.ClinicalStudy{
				StudyID: entryString(entry, "study_id", "studyId", "id"),
				Title:   entryString(entry, "title", "study_title", "name"),
				Status:  entryString(entry, "status"),
				Outcome: entryString(entry, "outcome", "result"),
			}
			if s.StudyID != "" || s.Title != "" {
				inc.Studies = append(inc.Studies, s)
			}
		}
	}
	return inc
}

func regulatoryFromAtoms(reg *canonical.Registry, master, fsca []evidence.Atom) regulatoryIncoming {
	inc := regulatoryIncoming{
		RegulatoryActions: topString(reg, master, canonical.KeyRegulatoryActions),
	}
	for _, a := range master {
		for _, item := range reg.ArrayField(a.NormalizedData, canonical.KeyCertificates) {
			entry, ok := asEntry(item)
			if !ok {
				continue
			}
			c := dossier.Certificate{
				CertificateID: entryString(entry, "certificate_id", "certificateId", "cert_number", "certNumber", "number", "id"),
				Kind:          entryString(entry, "kind", "type", "certificate_type", "certificateType"),
				IssuedBy:      entryString(entry, "issued_by", "issuedBy", "notified_body", "notifiedBody"),
				ValidUntil:    entryString(entry, "valid_until", "validUntil", "expiry", "expiry_date", "expiryDate"),
			}
			if c.CertificateID != "" {
				inc.Certificates = append(inc.Certificates, c)
			}
		}
		for _, item := range reg.ArrayField(a.NormalizedData, canonical.KeyDesignChanges) {
			entry, ok := asEntry(item)
			if !ok {
				continue
			}
			dc := dossier.DesignChange{
				ChangeID:      entryString(entry, "change_id", "changeId", "id"),
				Description:   entryString(entry, "description", "change_description", "changeDescription"),
				Reason:        entryString(entry, "reason", "rationale"),
				ImplementedAt: entryString(entry, "implemented_at", "implementedAt", "date", "implementation_date"),
			}
			if dc.ChangeID != "" || dc.Description != "" {
				inc.DesignChanges = append(inc.DesignChanges, dc)
			}
		}
		inc.FSCAHistory = append(inc.FSCAHistory, fscaEntries(reg, a)...)
	}
	for _, a := range fsca {
		f := dossier.FSCARecord{
			FSCAID:      reg.StringField(a.NormalizedData, canonical.KeyFSCAID),
			Description: reg.StringField(a.NormalizedData, "description"),
			Status:      reg.StringField(a.NormalizedData, "status"),
			InitiatedAt: reg.StringField(a.NormalizedData, "initiated_at"),
		}
		if f.InitiatedAt == "" {
			f.InitiatedAt = reg.StringField(a.NormalizedData, "date")
		}
		if f.FSCAID != "" || f.Description != "" {
			inc.FSCAHistory = append(inc.FSCAHistory, f)
		}
	}
	return inc
}

func fscaEntries(reg *canonical.Registry, a evidence.Atom) []dossier.FSCARecord {
	var out []dossier.FSCARecord
	for _, item := range reg.ArrayField(a.NormalizedData, canonical.KeyFSCAHistory) {
		entry, ok := asEntry(item)
		if !ok {
			continue
		}
		f := dossier.FSCARecord{
			FSCAID:      entryString(entry, "fsca_id", "fscaId", "recall_id", "recallId", "id"),
			Description: entryString(entry, "description", "action", "title"),
			Status:      entryString(entry, "status"),
			InitiatedAt: entryString(entry, "initiated_at", "initiatedAt", "date", "start_date", "startDate"),
		}
		if f.FSCAID != "" || f.Description != "" {
			out = append(out, f)
		}
	}
	return out
}

// priorPSURsFromAtoms builds one record per prior report atom. The period
// key falls back to the atom's provenance period so a report extracted
// without an explicit reporting_period field still lands on a stable key.
func priorPSURsFromAtoms(reg *canonical.Registry, deviceCode string, atoms []evidence.Atom) []dossier.PriorPSUR {
	var out []dossier.PriorPSUR
	for _, a := range atoms {
		period := reg.StringField(a.NormalizedData, canonical.KeyPeriod)
		if period == "" || strings.EqualFold(period, "unknown") {
			period = a.Provenance.Period
		}
		if period == "" || strings.EqualFold(period, "unknown") {
			continue
		}
		out = append(out, dossier.PriorPSUR{
			DeviceCode:               deviceCode,
			Period:                   period,
			ReportDate:               parseDate(reg.StringField(a.NormalizedData, canonical.KeyReportDate)),
			Conclusion:               reg.StringField(a.NormalizedData, canonical.KeyConclusion),
			BenefitRiskDetermination: reg.StringField(a.NormalizedData, canonical.KeyBenefitRiskDetermination),
		})
	}
	return out
}

func baselinesFromAtoms(reg *canonical.Registry, deviceCode string, atoms []evidence.Atom) []dossier.PerformanceBaseline {
	var out []dossier.PerformanceBaseline
	for _, a := range atoms {
		metric := reg.StringField(a.NormalizedData, canonical.KeyMetricType)
		if metric == "" {
			continue
		}
		b := dossier.PerformanceBaseline{
			DeviceCode: deviceCode,
			MetricType: metric,
			Unit:       reg.StringField(a.NormalizedData, canonical.KeyUnit),
			Period:     reg.StringField(a.NormalizedData, canonical.KeyPeriod),
			Source:     a.Provenance.SourceFile,
		}
		if v, ok := reg.NumberField(a.NormalizedData, canonical.KeyMetricValue); ok {
			b.Value = &v
		}
		if b.Period == "" {
			b.Period = a.Provenance.Period
		}
		out = append(out, b)
	}
	return out
}

// mergeKeyed folds keyed records into an existing list, reporting which
// entries were added versus updated so the caller can persist only those.
func mergeKeyed[T merge.Identified](existing, incoming []T, overwrite bool, fill func(dst, src T) (T, bool)) (out []T, added, updated []T) {
	index := make(map[string]int, len(existing))
	out = append([]T{}, existing...)
	for i, e := range out {
		index[e.MergeID()] = i
	}
	for _, inc := range incoming {
		id := inc.MergeID()
		if id == "" {
			continue
		}
		at, exists := index[id]
		if !exists {
			index[id] = len(out)
			out = append(out, inc)
			added = append(added, inc)
			continue
		}
		if overwrite {
			if !reflect.DeepEqual(out[at], inc) {
				out[at] = inc
				updated = append(updated, inc)
			}
			continue
		}
		merged, filled := fill(out[at], inc)
		if filled {
			out[at] = merged
			updated = append(updated, merged)
		}
	}
	return out, added, updated
}
