package dossier

import (
	"context"
	"errors"
)

// ErrNotFound is returned when no dossier exists for a device code. It marks
// the one genuine precondition failure in this engine; everything else
// degrades to warnings.
var ErrNotFound = errors.New("dossier not found")

// Repository is the CRUD collaborator over the dossier aggregate. Writes are
// per sub-section so the reconciler can persist only what actually changed.
type Repository interface {
	// Find loads the full aggregate, sub-sections included, or ErrNotFound.
	Find(ctx context.Context, deviceCode string) (*Dossier, error)

	// SaveCore upserts the root record (identity fields only).
	SaveCore(ctx context.Context, d *Dossier) error

	SaveClinicalContext(ctx context.Context, deviceCode string, c *ClinicalContext) error
	SaveRiskContext(ctx context.Context, deviceCode string, r *RiskContext) error
	SaveClinicalEvidence(ctx context.Context, deviceCode string, e *ClinicalEvidence) error
	SaveRegulatoryHistory(ctx context.Context, deviceCode string, h *RegulatoryHistory) error

	// SavePriorPSUR and SaveBaseline upsert list-section entries by their
	// natural key; entries are appended or updated, never duplicated.
	SavePriorPSUR(ctx context.Context, deviceCode string, p PriorPSUR) error
	SaveBaseline(ctx context.Context, deviceCode string, b PerformanceBaseline) error

	// Delete removes the dossier and cascades to every sub-section. This is
	// an explicit administrative action, never part of reconciliation.
	Delete(ctx context.Context, deviceCode string) error
}
