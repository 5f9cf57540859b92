package canonical

// Canonical field keys used across the reconciliation engine.
const (
	KeyDeviceCode        = "device_code"
	KeyTradeName         = "trade_name"
	KeyManufacturer      = "manufacturer"
	KeyModelNumbers      = "model_numbers"
	KeyBasicUDI          = "basic_udi"
	KeyDeviceClass       = "device_class"
	KeyDeviceDescription = "device_description"
	KeyMarketEntryDate   = "market_entry_date"

	KeyIntendedPurpose     = "intended_purpose"
	KeyIndications         = "indications"
	KeyContraindications   = "contraindications"
	KeyTargetPopulation    = "target_population"
	KeyClinicalBenefits    = "clinical_benefits"
	KeyWarningsPrecautions = "warnings_precautions"

	KeyPrincipalRisks               = "principal_risks"
	KeyRiskMitigations              = "risk_mitigations"
	KeyResidualRisks                = "residual_risks"
	KeyComplaintRateThreshold       = "complaint_rate_threshold"
	KeySeriousIncidentRateThreshold = "serious_incident_rate_threshold"

	KeyClinicalStudies   = "clinical_studies"
	KeyLiteratureSummary = "literature_summary"
	KeyPMCFSummary       = "pmcf_summary"
	KeyEquivalentDevices = "equivalent_devices"

	KeyCertificates      = "certificates"
	KeyFSCAHistory       = "fsca_history"
	KeyDesignChanges     = "design_changes"
	KeyRegulatoryActions = "regulatory_actions"

	KeyPeriod                   = "period"
	KeyReportDate               = "report_date"
	KeyConclusion               = "conclusion"
	KeyBenefitRiskDetermination = "benefit_risk_determination"

	KeyMetricType  = "metric_type"
	KeyMetricValue = "metric_value"
	KeyUnit        = "unit"
	KeySalesVolume = "sales_volume"

	KeyComplaintID  = "complaint_id"
	KeyIncidentID   = "incident_id"
	KeyFSCAID       = "fsca_id"
	KeyStudyID      = "study_id"
	KeyLiteratureID = "literature_id"

	KeySourceFile  = "source_file"
	KeyExtractedAt = "extracted_at"
	KeyDeviceRef   = "device_ref"
	KeyConfidence  = "confidence"
)

// DefaultTableVersion tags the built-in synonym table. Bump when entries
// change so dossiers can record which mapping produced them.
const DefaultTableVersion = "2026.1"

var defaultEntries = []Entry{
	{KeyDeviceCode, []string{"deviceCode", "device_id", "deviceId", "udi_code", "product_code", "productCode"}},
	{KeyTradeName, []string{"tradeName", "product_name", "productName", "device_name", "deviceName", "commercial_name", "commercialName"}},
	{KeyManufacturer, []string{"manufacturer_name", "manufacturerName", "legal_manufacturer", "legalManufacturer", "mfr"}},
	{KeyModelNumbers, []string{"modelNumbers", "model_number", "modelNumber", "models", "catalogue_numbers", "catalogueNumbers"}},
	{KeyBasicUDI, []string{"basicUdi", "basicUDI", "basic_udi_di", "basicUdiDi", "udi_di"}},
	{KeyDeviceClass, []string{"deviceClass", "risk_class", "riskClass", "classification", "mdr_class", "mdrClass"}},
	{KeyDeviceDescription, []string{"deviceDescription", "description", "product_description", "productDescription"}},
	{KeyMarketEntryDate, []string{"marketEntryDate", "launch_date", "launchDate", "first_ce_mark_date", "firstCeMarkDate", "date_of_first_placement", "market_introduction"}},

	{KeyIntendedPurpose, []string{"intendedPurpose", "intended_use", "intendedUse", "purpose", "intended_purpose_statement"}},
	{KeyIndications, []string{"indications_for_use", "indicationsForUse", "clinical_indications", "clinicalIndications"}},
	{KeyContraindications, []string{"contra_indications", "contraIndications"}},
	{KeyTargetPopulation, []string{"targetPopulation", "patient_population", "patientPopulation", "intended_population", "intendedPopulation"}},
	{KeyClinicalBenefits, []string{"clinicalBenefits", "benefits", "claimed_benefits", "claimedBenefits", "clinical_benefit_list"}},
	{KeyWarningsPrecautions, []string{"warningsPrecautions", "warnings", "precautions", "warnings_and_precautions"}},

	{KeyPrincipalRisks, []string{"principalRisks", "key_risks", "keyRisks", "main_risks", "mainRisks", "hazards", "identified_risks", "identifiedRisks"}},
	{KeyRiskMitigations, []string{"riskMitigations", "mitigations", "risk_controls", "riskControls", "control_measures"}},
	{KeyResidualRisks, []string{"residualRisks", "residual_risk_statement", "residualRiskStatement"}},
	{KeyComplaintRateThreshold, []string{"complaintRateThreshold", "complaint_threshold", "complaintThreshold", "max_complaint_rate", "maxComplaintRate"}},
	{KeySeriousIncidentRateThreshold, []string{"seriousIncidentRateThreshold", "incident_rate_threshold", "incidentRateThreshold", "serious_incident_threshold", "seriousIncidentThreshold"}},

	{KeyClinicalStudies, []string{"clinicalStudies", "studies", "clinical_investigations", "clinicalInvestigations", "trials"}},
	{KeyLiteratureSummary, []string{"literatureSummary", "literature_review", "literatureReview", "literature_review_summary"}},
	{KeyPMCFSummary, []string{"pmcfSummary", "pmcf_activities", "pmcfActivities", "post_market_clinical_followup", "postMarketClinicalFollowup"}},
	{KeyEquivalentDevices, []string{"equivalentDevices", "equivalent_device_list", "equivalence_claims", "equivalenceClaims"}},

	{KeyCertificates, []string{"ce_certificates", "ceCertificates", "certs", "certificate_list", "certificateList"}},
	{KeyFSCAHistory, []string{"fscaHistory", "fsca_records", "fscaRecords", "field_safety_actions", "fieldSafetyActions", "recalls"}},
	{KeyDesignChanges, []string{"designChanges", "design_change_history", "designChangeHistory", "changes"}},
	{KeyRegulatoryActions, []string{"regulatoryActions", "regulatory_history", "regulatoryHistory", "authority_actions", "authorityActions"}},

	{KeyPeriod, []string{"reporting_period", "reportingPeriod", "data_collection_period", "dataCollectionPeriod", "surveillance_period"}},
	{KeyReportDate, []string{"reportDate", "date_of_report", "dateOfReport", "issued_at", "issuedAt"}},
	{KeyConclusion, []string{"conclusions", "overall_conclusion", "overallConclusion", "summary_conclusion"}},
	{KeyBenefitRiskDetermination, []string{"benefitRiskDetermination", "benefit_risk_conclusion", "benefitRiskConclusion", "benefit_risk_ratio", "benefitRiskRatio"}},

	{KeyMetricType, []string{"metricType", "metric", "baseline_metric", "baselineMetric", "kpi"}},
	{KeyMetricValue, []string{"metricValue", "value", "baseline_value", "baselineValue", "rate"}},
	{KeyUnit, []string{"units", "unit_of_measure", "unitOfMeasure", "uom"}},
	{KeySalesVolume, []string{"salesVolume", "units_sold", "unitsSold", "units_placed", "unitsPlaced", "sales"}},

	{KeyComplaintID, []string{"complaintId", "complaint_number", "complaintNumber", "complaint_ref", "complaintRef"}},
	{KeyIncidentID, []string{"incidentId", "incident_number", "incidentNumber", "mir_number", "mirNumber", "vigilance_id", "vigilanceId"}},
	{KeyFSCAID, []string{"fscaId", "fsca_number", "fscaNumber", "fsca_ref", "fscaRef", "recall_id", "recallId"}},
	{KeyStudyID, []string{"studyId", "study_number", "studyNumber", "nct_number", "nctNumber", "trial_id", "trialId"}},
	{KeyLiteratureID, []string{"literatureId", "pmid", "doi", "citation_id", "citationId"}},

	{KeySourceFile, []string{"sourceFile", "source_document", "sourceDocument", "filename", "file_name", "fileName"}},
	{KeyExtractedAt, []string{"extractedAt", "extraction_date", "extractionDate", "extracted_on", "extractedOn"}},
	{KeyDeviceRef, []string{"deviceRef", "device_reference", "deviceReference"}},
	{KeyConfidence, []string{"confidence_score", "confidenceScore", "extraction_confidence", "extractionConfidence"}},
}

var defaultRegistry = NewRegistry(DefaultTableVersion, defaultEntries)

// Default returns the built-in synonym registry. Callers needing
// jurisdiction-specific mappings construct their own via NewRegistry.
func Default() *Registry { return defaultRegistry }
