package dossier

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"
)

// SQLiteRepository persists the dossier aggregate to SQLite. One row per
// sub-section keyed by device code; array-of-object fields are stored as
// JSON blobs, timestamps as RFC3339Nano text.
type SQLiteRepository struct {
	db *sqlx.DB
}

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS dossiers (
	device_code       TEXT PRIMARY KEY,
	trade_name        TEXT NOT NULL DEFAULT '',
	manufacturer      TEXT NOT NULL DEFAULT '',
	model_numbers     TEXT NOT NULL DEFAULT '[]',
	basic_udi         TEXT NOT NULL DEFAULT '',
	device_class      TEXT NOT NULL DEFAULT '',
	description       TEXT NOT NULL DEFAULT '',
	market_entry_date TEXT NOT NULL DEFAULT '',
	created_at        TEXT NOT NULL,
	updated_at        TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS clinical_contexts (
	device_code          TEXT PRIMARY KEY,
	intended_purpose     TEXT NOT NULL DEFAULT '',
	indications          TEXT NOT NULL DEFAULT '[]',
	contraindications    TEXT NOT NULL DEFAULT '[]',
	target_population    TEXT NOT NULL DEFAULT '',
	clinical_benefits    TEXT NOT NULL DEFAULT '[]',
	warnings_precautions TEXT NOT NULL DEFAULT ''
);

CREATE TABLE IF NOT EXISTS risk_contexts (
	device_code                     TEXT PRIMARY KEY,
	principal_risks                 TEXT NOT NULL DEFAULT '[]',
	risk_mitigations                TEXT NOT NULL DEFAULT '',
	residual_risks                  TEXT NOT NULL DEFAULT '',
	complaint_rate_threshold        REAL,
	serious_incident_rate_threshold REAL
);

CREATE TABLE IF NOT EXISTS clinical_evidence (
	device_code        TEXT PRIMARY KEY,
	clinical_studies   TEXT NOT NULL DEFAULT '[]',
	literature_summary TEXT NOT NULL DEFAULT '',
	pmcf_summary       TEXT NOT NULL DEFAULT '',
	equivalent_devices TEXT NOT NULL DEFAULT '[]'
);

CREATE TABLE IF NOT EXISTS regulatory_histories (
	device_code        TEXT PRIMARY KEY,
	certificates       TEXT NOT NULL DEFAULT '[]',
	fsca_history       TEXT NOT NULL DEFAULT '[]',
	design_changes     TEXT NOT NULL DEFAULT '[]',
	regulatory_actions TEXT NOT NULL DEFAULT ''
);

CREATE TABLE IF NOT EXISTS prior_psurs (
	device_code                TEXT NOT NULL,
	period                     TEXT NOT NULL,
	report_date                TEXT NOT NULL DEFAULT '',
	conclusion                 TEXT NOT NULL DEFAULT '',
	benefit_risk_determination TEXT NOT NULL DEFAULT '',
	PRIMARY KEY (device_code, period)
);

CREATE TABLE IF NOT EXISTS performance_baselines (
	device_code TEXT NOT NULL,
	metric_type TEXT NOT NULL,
	value       REAL,
	unit        TEXT NOT NULL DEFAULT '',
	period      TEXT NOT NULL DEFAULT '',
	source      TEXT NOT NULL DEFAULT '',
	PRIMARY KEY (device_code, metric_type)
);
`

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	db, err := sqlx.Open("sqlite", dbPath+"?_pragma=journal_mode(wal)&_pragma=busy_timeout(5000)&_pragma=foreign_keys(on)")
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(sqliteSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}
	return &SQLiteRepository{db: db}, nil
}

func (r *SQLiteRepository) Close() error { return r.db.Close() }

func (r *SQLiteRepository) Find(ctx context.Context, deviceCode string) (*Dossier, error) {
	d := &Dossier{DeviceCode: deviceCode}

	var modelNumbersJSON, marketEntry, createdAt, updatedAt string
	row := r.db.QueryRowContext(ctx, `SELECT trade_name, manufacturer, model_numbers, basic_udi,
		device_class, description, market_entry_date, created_at, updated_at
		FROM dossiers WHERE device_code = ?`, deviceCode)
	err := row.Scan(&d.TradeName, &d.Manufacturer, &modelNumbersJSON, &d.BasicUDI,
		&d.DeviceClass, &d.Description, &marketEntry, &createdAt, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load dossier: %w", err)
	}
	_ = json.Unmarshal([]byte(modelNumbersJSON), &d.ModelNumbers)
	d.MarketEntryDate = parseTimePtr(marketEntry)
	d.CreatedAt, _ = time.Parse(time.RFC3339Nano, createdAt)
	d.UpdatedAt, _ = time.Parse(time.RFC3339Nano, updatedAt)

	if err := r.loadClinicalContext(ctx, d); err != nil {
		return nil, err
	}
	if err := r.loadRiskContext(ctx, d); err != nil {
		return nil, err
	}
	if err := r.loadClinicalEvidence(ctx, d); err != nil {
		return nil, err
	}
	if err := r.loadRegulatoryHistory(ctx, d); err != nil {
		return nil, err
	}
	if err := r.loadPriorPSURs(ctx, d); err != nil {
		return nil, err
	}
	if err := r.loadBaselines(ctx, d); err != nil {
		return nil, err
	}
	return d, nil
}

func (r *SQLiteRepository) loadClinicalContext(ctx context.Context, d *Dossier) error {
	var c ClinicalContext
	var indicationsJSON, contraJSON, benefitsJSON string
	row := r.db.QueryRowContext(ctx, `SELECT intended_purpose, indications, contraindications,
		target_population, clinical_benefits, warnings_precautions
		FROM clinical_contexts WHERE device_code = ?`, d.DeviceCode)
	err := row.Scan(&c.IntendedPurpose, &indicationsJSON, &contraJSON,
		&c.TargetPopulation, &benefitsJSON, &c.WarningsPrecautions)
	if errors.Is(err, sql.ErrNoRows) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("load clinical context: %w", err)
	}
	_ = json.Unmarshal([]byte(indicationsJSON), &c.Indications)
	_ = json.Unmarshal([]byte(contraJSON), &c.Contraindications)
	_ = json.Unmarshal([]byte(benefitsJSON), &c.ClinicalBenefits)
	d.Clinical = &c
	return nil
}

func (r *SQLiteRepository) loadRiskContext(ctx context.Context, d *Dossier) error {
	var rc RiskContext
	var risksJSON string
	var complaintThreshold, incidentThreshold sql.NullFloat64
	row := r.db.QueryRowContext(ctx, `SELECT principal_risks, risk_mitigations, residual_risks,
		complaint_rate_threshold, serious_incident_rate_threshold
		FROM risk_contexts WHERE device_code = ?`, d.DeviceCode)
	err := row.Scan(&risksJSON, &rc.RiskMitigations, &rc.ResidualRisks,
		&complaintThreshold, &incidentThreshold)
	if errors.Is(err, sql.ErrNoRows) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("load risk context: %w", err)
	}
	_ = json.Unmarshal([]byte(risksJSON), &rc.PrincipalRisks)
	if complaintThreshold.Valid {
		rc.ComplaintRateThreshold = &complaintThreshold.Float64
	}
	if incidentThreshold.Valid {
		rc.SeriousIncidentRateThreshold = &incidentThreshold.Float64
	}
	d.Risk = &rc
	return nil
}

func (r *SQLiteRepository) loadClinicalEvidence(ctx context.Context, d *Dossier) error {
	var e ClinicalEvidence
	var studiesJSON, equivalentsJSON string
	row := r.db.QueryRowContext(ctx, `SELECT clinical_studies, literature_summary, pmcf_summary,
		equivalent_devices FROM clinical_evidence WHERE device_code = ?`, d.DeviceCode)
	err := row.Scan(&studiesJSON, &e.LiteratureSummary, &e.PMCFSummary, &equivalentsJSON)
	if errors.Is(err, sql.ErrNoRows) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("load clinical evidence: %w", err)
	}
	_ = json.Unmarshal([]byte(studiesJSON), &e.ClinicalStudies)
	_ = json.Unmarshal([]byte(equivalentsJSON), &e.EquivalentDevices)
	d.Evidence = &e
	return nil
}

func (r *SQLiteRepository) loadRegulatoryHistory(ctx context.Context, d *Dossier) error {
	var h RegulatoryHistory
	var certsJSON, fscaJSON, changesJSON string
	row := r.db.QueryRowContext(ctx, `SELECT certificates, fsca_history, design_changes,
		regulatory_actions FROM regulatory_histories WHERE device_code = ?`, d.DeviceCode)
	err := row.Scan(&certsJSON, &fscaJSON, &changesJSON, &h.RegulatoryActions)
	if errors.Is(err, sql.ErrNoRows) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("load regulatory history: %w", err)
	}
	_ = json.Unmarshal([]byte(certsJSON), &h.Certificates)
	_ = json.Unmarshal([]byte(fscaJSON), &h.FSCAHistory)
	_ = json.Unmarshal([]byte(changesJSON), &h.DesignChanges)
	d.Regulatory = &h
	return nil
}

func (r *SQLiteRepository) loadPriorPSURs(ctx context.Context, d *Dossier) error {
	rows, err := r.db.QueryContext(ctx, `SELECT period, report_date, conclusion,
		benefit_risk_determination FROM prior_psurs WHERE device_code = ? ORDER BY period`, d.DeviceCode)
	if err != nil {
		return fmt.Errorf("load prior psurs: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		p := PriorPSUR{DeviceCode: d.DeviceCode}
		var reportDate string
		if err := rows.Scan(&p.Period, &reportDate, &p.Conclusion, &p.BenefitRiskDetermination); err != nil {
			return err
		}
		p.ReportDate = parseTimePtr(reportDate)
		d.PriorPSURs = append(d.PriorPSURs, p)
	}
	return rows.Err()
}

func (r *SQLiteRepository) loadBaselines(ctx context.Context, d *Dossier) error {
	rows, err := r.db.QueryContext(ctx, `SELECT metric_type, value, unit, period, source
		FROM performance_baselines WHERE device_code = ? ORDER BY metric_type`, d.DeviceCode)
	if err != nil {
		return fmt.Errorf("load baselines: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		b := PerformanceBaseline{DeviceCode: d.DeviceCode}
		var value sql.NullFloat64
		if err := rows.Scan(&b.MetricType, &value, &b.Unit, &b.Period, &b.Source); err != nil {
			return err
		}
		if value.Valid {
			b.Value = &value.Float64
		}
		d.Baselines = append(d.Baselines, b)
	}
	return rows.Err()
}

func (r *SQLiteRepository) SaveCore(ctx context.Context, d *Dossier) error {
	_, err := r.db.ExecContext(ctx, `INSERT OR REPLACE INTO dossiers
		(device_code, trade_name, manufacturer, model_numbers, basic_udi, device_class,
		description, market_entry_date, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		d.DeviceCode,
		d.TradeName,
		d.Manufacturer,
		marshalJSON(d.ModelNumbers),
		d.BasicUDI,
		d.DeviceClass,
		d.Description,
		timePtrToString(d.MarketEntryDate),
		timeToString(d.CreatedAt),
		timeToString(d.UpdatedAt),
	)
	return err
}

func (r *SQLiteRepository) SaveClinicalContext(ctx context.Context, deviceCode string, c *ClinicalContext) error {
	_, err := r.db.ExecContext(ctx, `INSERT OR REPLACE INTO clinical_contexts
		(device_code, intended_purpose, indications, contraindications, target_population,
		clinical_benefits, warnings_precautions)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		deviceCode,
		c.IntendedPurpose,
		marshalJSON(c.Indications),
		marshalJSON(c.Contraindications),
		c.TargetPopulation,
		marshalJSON(c.ClinicalBenefits),
		c.WarningsPrecautions,
	)
	return err
}

func (r *SQLiteRepository) SaveRiskContext(ctx context.Context, deviceCode string, rc *RiskContext) error {
	_, err := r.db.ExecContext(ctx, `INSERT OR REPLACE INTO risk_contexts
		(device_code, principal_risks, risk_mitigations, residual_risks,
		complaint_rate_threshold, serious_incident_rate_threshold)
		VALUES (?, ?, ?, ?, ?, ?)`,
		deviceCode,
		marshalJSON(rc.PrincipalRisks),
		rc.RiskMitigations,
		rc.ResidualRisks,
		nullableFloat(rc.ComplaintRateThreshold),
		nullableFloat(rc.SeriousIncidentRateThreshold),
	)
	return err
}

func (r *SQLiteRepository) SaveClinicalEvidence(ctx context.Context, deviceCode string, e *ClinicalEvidence) error {
	_, err := r.db.ExecContext(ctx, `INSERT OR REPLACE INTO clinical_evidence
		(device_code, clinical_studies, literature_summary, pmcf_summary, equivalent_devices)
		VALUES (?, ?, ?, ?, ?)`,
		deviceCode,
		marshalJSON(e.ClinicalStudies),
		e.LiteratureSummary,
		e.PMCFSummary,
		marshalJSON(e.EquivalentDevices),
	)
	return err
}

func (r *SQLiteRepository) SaveRegulatoryHistory(ctx context.Context, deviceCode string, h *RegulatoryHistory) error {
	_, err := r.db.ExecContext(ctx, `INSERT OR REPLACE INTO regulatory_histories
		(device_code, certificates, fsca_history, design_changes, regulatory_actions)
		VALUES (?, ?, ?, ?, ?)`,
		deviceCode,
		marshalJSON(h.Certificates),
		marshalJSON(h.FSCAHistory),
		marshalJSON(h.DesignChanges),
		h.RegulatoryActions,
	)
	return err
}

func (r *SQLiteRepository) SavePriorPSUR(ctx context.Context, deviceCode string, p PriorPSUR) error {
	_, err := r.db.ExecContext(ctx, `INSERT OR REPLACE INTO prior_psurs
		(device_code, period, report_date, conclusion, benefit_risk_determination)
		VALUES (?, ?, ?, ?, ?)`,
		deviceCode,
		p.Period,
		timePtrToString(p.ReportDate),
		p.Conclusion,
		p.BenefitRiskDetermination,
	)
	return err
}

func (r *SQLiteRepository) SaveBaseline(ctx context.Context, deviceCode string, b PerformanceBaseline) error {
	_, err := r.db.ExecContext(ctx, `INSERT OR REPLACE INTO performance_baselines
		(device_code, metric_type, value, unit, period, source)
		VALUES (?, ?, ?, ?, ?, ?)`,
		deviceCode,
		b.MetricType,
		nullableFloat(b.Value),
		b.Unit,
		b.Period,
		b.Source,
	)
	return err
}

func (r *SQLiteRepository) Delete(ctx context.Context, deviceCode string) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin delete: %w", err)
	}
	defer tx.Rollback()

	for _, table := range []string{
		"clinical_contexts", "risk_contexts", "clinical_evidence",
		"regulatory_histories", "prior_psurs", "performance_baselines", "dossiers",
	} {
		if _, err := tx.ExecContext(ctx, "DELETE FROM "+table+" WHERE device_code = ?", deviceCode); err != nil {
			return fmt.Errorf("delete from %s: %w", table, err)
		}
	}
	return tx.Commit()
}

func marshalJSON(v any) string {
	if v == nil {
		return "[]"
	}
	b, err := json.Marshal(v)
	if err != nil {
		return "[]"
	}
	return string(b)
}

func timeToString(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339Nano)
}

func timePtrToString(t *time.Time) string {
	if t == nil {
		return ""
	}
	return timeToString(*t)
}

func parseTimePtr(s string) *time.Time {
	if s == "" {
		return nil
	}
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return nil
	}
	return &t
}

func nullableFloat(f *float64) sql.NullFloat64 {
	if f == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *f, Valid: true}
}

// Ensure SQLiteRepository satisfies the Repository interface at compile time.
var _ Repository = (*SQLiteRepository)(nil)
