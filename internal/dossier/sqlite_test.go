package dossier

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"
)

func newTestRepo(t *testing.T) *SQLiteRepository {
	t.Helper()
	repo, err := NewSQLiteRepository(filepath.Join(t.TempDir(), "dossier.db"))
	if err != nil {
		t.Fatalf("new sqlite repository: %v", err)
	}
	t.Cleanup(func() { repo.Close() })
	return repo
}

func TestFindMissingDossier(t *testing.T) {
	repo := newTestRepo(t)
	_, err := repo.Find(context.Background(), "NOPE")
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("Find on empty store: %v, want ErrNotFound", err)
	}
}

func TestRoundTripFullAggregate(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	entry := time.Date(2023, 5, 10, 0, 0, 0, 0, time.UTC)
	threshold := 5.0
	rate := 0.8

	d := &Dossier{
		DeviceCode:      "DEV-001",
		TradeName:       "Acme V1",
		Manufacturer:    "Acme Medical",
		ModelNumbers:    []string{"M100", "M200"},
		BasicUDI:        "UDI-XYZ",
		DeviceClass:     "IIb",
		Description:     "Implantable infusion pump",
		MarketEntryDate: &entry,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if err := repo.SaveCore(ctx, d); err != nil {
		t.Fatalf("SaveCore: %v", err)
	}
	if err := repo.SaveClinicalContext(ctx, d.DeviceCode, &ClinicalContext{
		IntendedPurpose:  "Continuous drug delivery for chronic pain management in adults",
		Indications:      []string{"chronic pain"},
		ClinicalBenefits: []ClinicalBenefit{{BenefitID: "b1", Description: "Stable dosing"}},
	}); err != nil {
		t.Fatalf("SaveClinicalContext: %v", err)
	}
	if err := repo.SaveRiskContext(ctx, d.DeviceCode, &RiskContext{
		PrincipalRisks:         []PrincipalRisk{{RiskID: "risk_1", Hazard: "occlusion", Harm: "underdose", Severity: "major"}},
		ComplaintRateThreshold: &threshold,
	}); err != nil {
		t.Fatalf("SaveRiskContext: %v", err)
	}
	if err := repo.SaveClinicalEvidence(ctx, d.DeviceCode, &ClinicalEvidence{
		ClinicalStudies:   []ClinicalStudy{{StudyID: "NCT-1", Title: "Pivotal study"}},
		LiteratureSummary: "Twelve publications reviewed",
	}); err != nil {
		t.Fatalf("SaveClinicalEvidence: %v", err)
	}
	if err := repo.SaveRegulatoryHistory(ctx, d.DeviceCode, &RegulatoryHistory{
		Certificates: []Certificate{{CertificateID: "CE-123", IssuedBy: "NB 0123"}},
		FSCAHistory:  []FSCARecord{{FSCAID: "FSCA-1", Status: "closed"}},
	}); err != nil {
		t.Fatalf("SaveRegulatoryHistory: %v", err)
	}
	if err := repo.SavePriorPSUR(ctx, d.DeviceCode, PriorPSUR{
		DeviceCode: d.DeviceCode, Period: "2024-H2", Conclusion: "Benefit-risk remains favourable",
	}); err != nil {
		t.Fatalf("SavePriorPSUR: %v", err)
	}
	if err := repo.SaveBaseline(ctx, d.DeviceCode, PerformanceBaseline{
		DeviceCode: d.DeviceCode, MetricType: "complaint_rate", Value: &rate, Unit: "per 1000 units",
	}); err != nil {
		t.Fatalf("SaveBaseline: %v", err)
	}

	got, err := repo.Find(ctx, "DEV-001")
	if err != nil {
		t.Fatalf("Find: %v", err)
	}
	if got.TradeName != "Acme V1" || len(got.ModelNumbers) != 2 {
		t.Errorf("core round trip: %+v", got)
	}
	if got.MarketEntryDate == nil || !got.MarketEntryDate.Equal(entry) {
		t.Errorf("market entry date round trip: %v", got.MarketEntryDate)
	}
	if got.Clinical == nil || got.Clinical.IntendedPurpose == "" || len(got.Clinical.ClinicalBenefits) != 1 {
		t.Errorf("clinical context round trip: %+v", got.Clinical)
	}
	if got.Risk == nil || got.Risk.ComplaintRateThreshold == nil || *got.Risk.ComplaintRateThreshold != 5.0 {
		t.Errorf("risk context round trip: %+v", got.Risk)
	}
	if got.Evidence == nil || len(got.Evidence.ClinicalStudies) != 1 {
		t.Errorf("clinical evidence round trip: %+v", got.Evidence)
	}
	if got.Regulatory == nil || len(got.Regulatory.Certificates) != 1 || len(got.Regulatory.FSCAHistory) != 1 {
		t.Errorf("regulatory history round trip: %+v", got.Regulatory)
	}
	if len(got.PriorPSURs) != 1 || got.PriorPSURs[0].Period != "2024-H2" {
		t.Errorf("prior psurs round trip: %+v", got.PriorPSURs)
	}
	if len(got.Baselines) != 1 || got.Baselines[0].Value == nil || *got.Baselines[0].Value != 0.8 {
		t.Errorf("baselines round trip: %+v", got.Baselines)
	}
}

func TestUpsertByNaturalKeyNeverDuplicates(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	d := &Dossier{DeviceCode: "DEV-002", CreatedAt: time.Now(), UpdatedAt: time.Now()}
	if err := repo.SaveCore(ctx, d); err != nil {
		t.Fatalf("SaveCore: %v", err)
	}

	for i := 0; i < 3; i++ {
		if err := repo.SavePriorPSUR(ctx, "DEV-002", PriorPSUR{
			DeviceCode: "DEV-002", Period: "2025-H1", Conclusion: "updated",
		}); err != nil {
			t.Fatalf("SavePriorPSUR: %v", err)
		}
		if err := repo.SaveBaseline(ctx, "DEV-002", PerformanceBaseline{
			DeviceCode: "DEV-002", MetricType: "complaint_rate",
		}); err != nil {
			t.Fatalf("SaveBaseline: %v", err)
		}
	}

	got, err := repo.Find(ctx, "DEV-002")
	if err != nil {
		t.Fatalf("Find: %v", err)
	}
	if len(got.PriorPSURs) != 1 || len(got.Baselines) != 1 {
		t.Errorf("upsert duplicated rows: psurs=%d baselines=%d", len(got.PriorPSURs), len(got.Baselines))
	}
}

func TestDeleteCascades(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	d := &Dossier{DeviceCode: "DEV-003", CreatedAt: time.Now(), UpdatedAt: time.Now()}
	if err := repo.SaveCore(ctx, d); err != nil {
		t.Fatalf("SaveCore: %v", err)
	}
	if err := repo.SaveClinicalContext(ctx, "DEV-003", &ClinicalContext{IntendedPurpose: "x"}); err != nil {
		t.Fatalf("SaveClinicalContext: %v", err)
	}
	if err := repo.SavePriorPSUR(ctx, "DEV-003", PriorPSUR{DeviceCode: "DEV-003", Period: "2024-H1"}); err != nil {
		t.Fatalf("SavePriorPSUR: %v", err)
	}

	if err := repo.Delete(ctx, "DEV-003"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := repo.Find(ctx, "DEV-003"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("Find after delete: %v, want ErrNotFound", err)
	}
}
