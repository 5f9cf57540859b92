package reconcile

import (
	"context"
	"path/filepath"
	"strings"
	"testing"

	"github.com/josephbrant/regdossier/internal/completeness"
	"github.com/josephbrant/regdossier/internal/dossier"
	"github.com/josephbrant/regdossier/internal/dossierctx"
	"github.com/josephbrant/regdossier/internal/evidence"
)

// Full pipeline over the real SQLite repository: ingest a realistic evidence
// batch, verify the persisted aggregate, then confirm a re-run is a no-op
// and the downstream consumers (scorer, context builder) see the same state.
func TestEndToEndReconciliationOverSQLite(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "dossiers.db")
	repo, err := dossier.NewSQLiteRepository(dbPath)
	if err != nil {
		t.Fatalf("open repository: %v", err)
	}
	defer repo.Close()

	r := New(repo, WithClock(testClock()))
	ctx := context.Background()

	items := []evidence.Raw{
		{
			EvidenceType: evidence.TypeDeviceMaster,
			Confidence:   conf(0.92),
			Data: map[string]any{
				"product_name":      "PulseGuard Pro",
				"manufacturer_name": "Cardion Medical GmbH",
				"risk_class":        "IIb",
				"basic_udi_di":      "4051234PGP2X",
				"model_numbers":     []any{"PG-100", "PG-200"},
				"launch_date":       "2021-05-01",
				"intended_use": "Continuous ambulatory monitoring of cardiac rhythm in adult " +
					"patients at risk of intermittent arrhythmia, for up to 14 days per wear period.",
				"clinical_benefits": []any{
					map[string]any{"benefit_id": "ben_1", "description": "Earlier detection of arrhythmia episodes"},
					map[string]any{"benefit_id": "ben_2", "description": "Reduced need for in-clinic Holter monitoring"},
				},
				"certificates": []any{
					map[string]any{"certificate_id": "CE-123456", "notified_body": "TUV SUD", "valid_until": "2027-04-30"},
				},
			},
			SourceFile: "device_master.pdf",
		},
		{
			EvidenceType: evidence.TypeRiskAssessment,
			Confidence:   conf(0.88),
			Data: map[string]any{
				"principal_risks": []any{
					map[string]any{"risk_id": "risk_1", "hazard": "Electrode detachment", "harm": "Missed arrhythmia event", "severity": "moderate"},
					map[string]any{"risk_id": "risk_2", "hazard": "Skin irritation", "harm": "Contact dermatitis", "severity": "minor"},
				},
				"complaint_threshold":        4.0,
				"serious_incident_threshold": 0.8,
				"risk_controls":              "Adhesive qualification testing and wear-time labelling limits.",
			},
			SourceFile: "risk_file.pdf",
		},
		{
			EvidenceType: evidence.TypePriorPSUR,
			Confidence:   conf(0.85),
			Data: map[string]any{
				"reporting_period":        "2024-H2",
				"overall_conclusion":      "Benefit-risk profile remains favourable.",
				"benefit_risk_conclusion": "favourable",
			},
			SourceFile: "psur_2024_h2.pdf",
		},
		{
			EvidenceType: evidence.TypePerformanceBaseline,
			Confidence:   conf(0.9),
			Data: map[string]any{
				"metric":           "complaint_rate",
				"baseline_value":   1.2,
				"unit_of_measure":  "per 10k units",
				"reporting_period": "2024-H2",
			},
			SourceFile: "baselines.xlsx",
		},
	}

	res, err := r.AutoPopulate(ctx, "DEV-100", "2026-H1", items, Options{})
	if err != nil {
		t.Fatalf("AutoPopulate: %v", err)
	}
	if res.EvidenceItemsProcessed != 4 {
		t.Errorf("processed = %d", res.EvidenceItemsProcessed)
	}

	d, err := repo.Find(ctx, "DEV-100")
	if err != nil {
		t.Fatalf("Find after reconciliation: %v", err)
	}
	if d.TradeName != "PulseGuard Pro" || d.BasicUDI != "4051234PGP2X" {
		t.Errorf("core = %+v", d)
	}
	if d.MarketEntryDate == nil || d.MarketEntryDate.Year() != 2021 {
		t.Errorf("market entry date = %v", d.MarketEntryDate)
	}
	if d.Clinical == nil || len(d.Clinical.ClinicalBenefits) != 2 {
		t.Fatalf("clinical = %+v", d.Clinical)
	}
	if d.Risk == nil || len(d.Risk.PrincipalRisks) != 2 || d.Risk.ComplaintRateThreshold == nil || *d.Risk.ComplaintRateThreshold != 4.0 {
		t.Fatalf("risk = %+v", d.Risk)
	}
	if d.Regulatory == nil || len(d.Regulatory.Certificates) != 1 {
		t.Fatalf("regulatory = %+v", d.Regulatory)
	}
	if len(d.PriorPSURs) != 1 || d.PriorPSURs[0].Period != "2024-H2" {
		t.Fatalf("prior psurs = %+v", d.PriorPSURs)
	}
	if len(d.Baselines) != 1 || d.Baselines[0].MetricType != "complaint_rate" {
		t.Fatalf("baselines = %+v", d.Baselines)
	}

	// Idempotence across the persistence boundary.
	res2, err := r.AutoPopulate(ctx, "DEV-100", "2026-H1", items, Options{})
	if err != nil {
		t.Fatal(err)
	}
	if res2.Applied != (AppliedCounts{}) {
		t.Errorf("re-run applied = %+v", res2.Applied)
	}
	again, err := repo.Find(ctx, "DEV-100")
	if err != nil {
		t.Fatal(err)
	}
	if !again.UpdatedAt.Equal(d.UpdatedAt) {
		t.Errorf("UpdatedAt moved on a no-op re-run: %v -> %v", d.UpdatedAt, again.UpdatedAt)
	}

	// Downstream consumers read the persisted state directly.
	breakdown := completeness.Score(d, testClock()())
	if breakdown.Score != res2.CompletenessScore {
		t.Errorf("score mismatch: %d vs result %d", breakdown.Score, res2.CompletenessScore)
	}
	dctx := dossierctx.Build(d, "2026-H1")
	if !dctx.DossierExists {
		t.Fatal("context builder must see the dossier")
	}
	if !strings.Contains(dctx.RiskBlock, "Electrode detachment") {
		t.Errorf("risk block = %q", dctx.RiskBlock)
	}
	if dctx.PriorPsurConclusion != "Benefit-risk profile remains favourable." {
		t.Errorf("prior conclusion = %q", dctx.PriorPsurConclusion)
	}
}
