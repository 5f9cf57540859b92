// Package reconcile drives the evidence-to-dossier pipeline: normalize the
// extracted items, merge them into the persisted dossier under the run's
// merge policy, optionally ask the inference client to fill remaining gaps,
// then rescore completeness. Runs for the same device are serialized.
package reconcile

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/josephbrant/regdossier/internal/canonical"
	"github.com/josephbrant/regdossier/internal/completeness"
	"github.com/josephbrant/regdossier/internal/dossier"
	"github.com/josephbrant/regdossier/internal/evidence"
	"github.com/josephbrant/regdossier/internal/inference"
)

// Inferrer is the gap-filling surface the reconciler consumes. All failures
// come back inside Meta, never as an error.
type Inferrer interface {
	Infer(ctx context.Context, deviceCode string, atoms []evidence.Atom) (*inference.Patch, inference.Meta)
}

type Reconciler struct {
	repo       dossier.Repository
	reg        *canonical.Registry
	normalizer *evidence.Normalizer
	inferrer   Inferrer
	clock      func() time.Time
	tracer     trace.Tracer

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

type Option func(*Reconciler)

// WithRegistry swaps the built-in synonym table for a custom one.
func WithRegistry(reg *canonical.Registry) Option {
	return func(r *Reconciler) { r.reg = reg }
}

// WithInferrer installs the inference client. Without one, runs that request
// inference record it as unavailable and proceed deterministically.
func WithInferrer(inf Inferrer) Option {
	return func(r *Reconciler) { r.inferrer = inf }
}

func WithClock(clock func() time.Time) Option {
	return func(r *Reconciler) { r.clock = clock }
}

func New(repo dossier.Repository, opts ...Option) *Reconciler {
	r := &Reconciler{
		repo:   repo,
		reg:    canonical.Default(),
		clock:  time.Now,
		tracer: otel.Tracer("regdossier/reconcile"),
		locks:  map[string]*sync.Mutex{},
	}
	for _, o := range opts {
		o(r)
	}
	r.normalizer = evidence.NewNormalizer(r.reg)
	return r
}

// lockDevice serializes reconciliation per device code so concurrent uploads
// for the same device cannot interleave read-merge-write cycles.
func (r *Reconciler) lockDevice(deviceCode string) func() {
	r.mu.Lock()
	lock, ok := r.locks[deviceCode]
	if !ok {
		lock = &sync.Mutex{}
		r.locks[deviceCode] = lock
	}
	r.mu.Unlock()
	lock.Lock()
	return lock.Unlock
}

// AutoPopulate reconciles one batch of extracted evidence into the device's
// dossier. A missing dossier is created; repository write failures are the
// only errors returned. Re-running with the same evidence is a no-op.
func (r *Reconciler) AutoPopulate(ctx context.Context, deviceCode, period string, items []evidence.Raw, opts Options) (*Result, error) {
	ctx, span := r.tracer.Start(ctx, "reconcile.AutoPopulate", trace.WithAttributes(
		attribute.String("device.code", deviceCode),
		attribute.Int("evidence.items", len(items)),
		attribute.Bool("overwrite", opts.Overwrite),
	))
	defer span.End()

	unlock := r.lockDevice(deviceCode)
	defer unlock()

	now := r.clock().UTC()
	atoms := r.normalizer.Normalize(items, evidence.Context{
		DeviceCode: deviceCode,
		Period:     period,
		UploadID:   now.UnixNano(),
		Clock:      r.clock,
	})

	res := &Result{
		DeviceCode:             deviceCode,
		Overwrite:              opts.Overwrite,
		EvidenceItemsProcessed: len(atoms),
		EvidenceTypesUsed:      map[string]int{},
	}
	ranked := map[string][]evidence.Atom{}
	for t, group := range evidence.GroupByType(atoms) {
		res.EvidenceTypesUsed[t] = len(group)
		ranked[t] = evidence.RankByConfidence(group)
	}

	d, err := r.repo.Find(ctx, deviceCode)
	created := false
	switch {
	case errors.Is(err, dossier.ErrNotFound):
		d = &dossier.Dossier{DeviceCode: deviceCode, CreatedAt: now, UpdatedAt: now}
		created = true
	case err != nil:
		return nil, fmt.Errorf("load dossier %s: %w", deviceCode, err)
	}

	tr := &tracker{}
	master := ranked[evidence.TypeDeviceMaster]
	res.Applied.Core = mergeCore(d, coreFromAtoms(r.reg, master), opts.Overwrite, tr)
	res.Applied.ClinicalContext = mergeClinical(d, clinicalFromAtoms(r.reg, master), opts.Overwrite, tr)
	res.Applied.RiskContext = mergeRisk(d, riskFromAtoms(r.reg, ranked[evidence.TypeRiskAssessment]), opts.Overwrite, tr)
	res.Applied.ClinicalEvidence = mergeEvidence(d, evidenceFromAtoms(
		r.reg, ranked[evidence.TypeClinicalStudy], ranked[evidence.TypeLiteratureReview], master,
	), opts.Overwrite, tr)
	res.Applied.RegulatoryHistory = mergeRegulatory(d, regulatoryFromAtoms(
		r.reg, master, ranked[evidence.TypeFSCA],
	), opts.Overwrite, tr)

	incomingPSURs := priorPSURsFromAtoms(r.reg, deviceCode, ranked[evidence.TypePriorPSUR])
	var psurAdds, psurUpdates []dossier.PriorPSUR
	d.PriorPSURs, psurAdds, psurUpdates = mergeKeyed(d.PriorPSURs, incomingPSURs, opts.Overwrite, fillPriorPSUR)
	res.Applied.PriorPsursAdded = len(psurAdds)
	res.Applied.PriorPsursUpdated = len(psurUpdates)
	if len(psurAdds)+len(psurUpdates) > 0 {
		tr.note("prior_psurs", true)
	}

	incomingBaselines := baselinesFromAtoms(r.reg, deviceCode, ranked[evidence.TypePerformanceBaseline])
	var baseAdds, baseUpdates []dossier.PerformanceBaseline
	d.Baselines, baseAdds, baseUpdates = mergeKeyed(d.Baselines, incomingBaselines, opts.Overwrite, fillBaseline)
	res.Applied.BaselinesUpserted = len(baseAdds) + len(baseUpdates)
	if res.Applied.BaselinesUpserted > 0 {
		tr.note("performance_baselines", true)
	}

	res.FilledFields = tr.filled

	if opts.UseLLMInference {
		meta := r.runInference(ctx, d, atoms, opts, res)
		res.LLMInference = &meta
	}

	if err := r.persist(ctx, d, res, created, now, psurAdds, psurUpdates, baseAdds, baseUpdates); err != nil {
		return nil, err
	}

	breakdown := completeness.Score(d, now)
	res.CompletenessScore = breakdown.Score
	for _, field := range breakdown.CriticalMissing {
		res.Warnings = append(res.Warnings, "critical field still missing: "+field)
	}
	if n := countUnknownProvenance(atoms); n > 0 {
		res.Warnings = append(res.Warnings, fmt.Sprintf("%d evidence item(s) carried no source provenance", n))
	}

	span.SetAttributes(
		attribute.Int("completeness.score", res.CompletenessScore),
		attribute.Int("fields.filled", len(res.FilledFields)),
	)
	return res, nil
}

// runInference issues the single gap-filling call and merges the validated
// patch under the same policy as the deterministic pass. The patch's filled
// fields land in the inference meta, not the deterministic list.
func (r *Reconciler) runInference(ctx context.Context, d *dossier.Dossier, atoms []evidence.Atom, opts Options, res *Result) inference.Meta {
	if r.inferrer == nil {
		return inference.Meta{Attempted: false, Error: "no inference client configured"}
	}
	ctx, span := r.tracer.Start(ctx, "reconcile.inference")
	defer span.End()

	patch, meta := r.inferrer.Infer(ctx, d.DeviceCode, atoms)
	if patch == nil || patch.IsEmpty() {
		return meta
	}
	ltr := &tracker{}
	applied := applyPatch(d, patch, opts.Overwrite, ltr)
	res.Applied.Core += applied.Core
	res.Applied.ClinicalContext += applied.ClinicalContext
	res.Applied.RiskContext += applied.RiskContext
	res.Applied.ClinicalEvidence += applied.ClinicalEvidence
	meta.Applied = len(ltr.filled) > 0
	meta.FilledFields = ltr.filled
	span.SetAttributes(attribute.Int("patch.fields", len(ltr.filled)))
	return meta
}

// applyPatch folds a validated inference patch through the section mergers.
// The patch schema has no history sections, so only the four gap-fillable
// sections can change here.
func applyPatch(d *dossier.Dossier, p *inference.Patch, overwrite bool, tr *tracker) AppliedCounts {
	var counts AppliedCounts
	if p.Core != nil {
		counts.Core = mergeCore(d, coreIncoming{
			TradeName:    p.Core.TradeName,
			Manufacturer: p.Core.Manufacturer,
			ModelNumbers: p.Core.ModelNumbers,
			DeviceClass:  p.Core.DeviceClass,
			Description:  p.Core.Description,
		}, overwrite, tr)
	}
	if p.ClinicalContext != nil {
		counts.ClinicalContext = mergeClinical(d, clinicalIncoming{
			IntendedPurpose:     p.ClinicalContext.IntendedPurpose,
			Indications:         p.ClinicalContext.Indications,
			Contraindications:   p.ClinicalContext.Contraindications,
			TargetPopulation:    p.ClinicalContext.TargetPopulation,
			Benefits:            p.ClinicalContext.ClinicalBenefits,
			WarningsPrecautions: p.ClinicalContext.WarningsPrecautions,
		}, overwrite, tr)
	}
	if p.RiskContext != nil {
		counts.RiskContext = mergeRisk(d, riskIncoming{
			Risks:                        p.RiskContext.PrincipalRisks,
			RiskMitigations:              p.RiskContext.RiskMitigations,
			ResidualRisks:                p.RiskContext.ResidualRisks,
			ComplaintRateThreshold:       p.RiskContext.ComplaintRateThreshold,
			SeriousIncidentRateThreshold: p.RiskContext.SeriousIncidentRateThreshold,
		}, overwrite, tr)
	}
	if p.ClinicalEvidence != nil {
		counts.ClinicalEvidence = mergeEvidence(d, evidenceIncoming{
			LiteratureSummary: p.ClinicalEvidence.LiteratureSummary,
			PMCFSummary:       p.ClinicalEvidence.PMCFSummary,
			EquivalentDevices: p.ClinicalEvidence.EquivalentDevices,
		}, overwrite, tr)
	}
	return counts
}

// persist writes only the sections the run changed. An unchanged re-run
// performs no writes at all.
func (r *Reconciler) persist(ctx context.Context, d *dossier.Dossier, res *Result, created bool, now time.Time,
	psurAdds, psurUpdates []dossier.PriorPSUR, baseAdds, baseUpdates []dossier.PerformanceBaseline) error {

	anyChange := created || res.Applied.Core > 0 || res.Applied.ClinicalContext > 0 ||
		res.Applied.RiskContext > 0 || res.Applied.ClinicalEvidence > 0 ||
		res.Applied.RegulatoryHistory > 0 || res.Applied.PriorPsursAdded > 0 ||
		res.Applied.PriorPsursUpdated > 0 || res.Applied.BaselinesUpserted > 0
	if !anyChange {
		return nil
	}
	d.UpdatedAt = now

	if err := r.repo.SaveCore(ctx, d); err != nil {
		return fmt.Errorf("save dossier core %s: %w", d.DeviceCode, err)
	}
	if res.Applied.ClinicalContext > 0 {
		if err := r.repo.SaveClinicalContext(ctx, d.DeviceCode, d.Clinical); err != nil {
			return fmt.Errorf("save clinical context %s: %w", d.DeviceCode, err)
		}
	}
	if res.Applied.RiskContext > 0 {
		if err := r.repo.SaveRiskContext(ctx, d.DeviceCode, d.Risk); err != nil {
			return fmt.Errorf("save risk context %s: %w", d.DeviceCode, err)
		}
	}
	if res.Applied.ClinicalEvidence > 0 {
		if err := r.repo.SaveClinicalEvidence(ctx, d.DeviceCode, d.Evidence); err != nil {
			return fmt.Errorf("save clinical evidence %s: %w", d.DeviceCode, err)
		}
	}
	if res.Applied.RegulatoryHistory > 0 {
		if err := r.repo.SaveRegulatoryHistory(ctx, d.DeviceCode, d.Regulatory); err != nil {
			return fmt.Errorf("save regulatory history %s: %w", d.DeviceCode, err)
		}
	}
	for _, p := range append(psurAdds, psurUpdates...) {
		if err := r.repo.SavePriorPSUR(ctx, d.DeviceCode, p); err != nil {
			return fmt.Errorf("save prior psur %s/%s: %w", d.DeviceCode, p.Period, err)
		}
	}
	for _, b := range append(baseAdds, baseUpdates...) {
		if err := r.repo.SaveBaseline(ctx, d.DeviceCode, b); err != nil {
			return fmt.Errorf("save baseline %s/%s: %w", d.DeviceCode, b.MetricType, err)
		}
	}
	return nil
}

func countUnknownProvenance(atoms []evidence.Atom) int {
	n := 0
	for _, a := range atoms {
		if a.Provenance.SourceUnknown() {
			n++
		}
	}
	return n
}
