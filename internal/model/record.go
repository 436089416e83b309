package model

// ClinicalRecord is the structured view of a clinical note as extracted by
// the language model. Every field is optional: extraction is best-effort
// against unstructured text and absent information stays absent.
type ClinicalRecord struct {
	Patient     *PatientInfo `json:"patient"`
	Conditions  []Condition  `json:"conditions"`
	Medications []Medication `json:"medications"`
	Vitals      []VitalSign  `json:"vitals"`
	Labs        []LabResult  `json:"labs"`
	Plan        []PlanItem   `json:"plan"`
}

type PatientInfo struct {
	Name *string `json:"name"`
	Age  *int    `json:"age"`
	Sex  *string `json:"sex"`
}

type Condition struct {
	Name      string  `json:"name"`
	Onset     *string `json:"onset"`
	Status    *string `json:"status"`
	ICD10Code *string `json:"icd10_code"`
}

type Medication struct {
	Name       string  `json:"name"`
	Dose       *string `json:"dose"`
	Route      *string `json:"route"`
	Frequency  *string `json:"frequency"`
	RxNormCode *string `json:"rxnorm_code"`
}

type VitalSign struct {
	Type    string  `json:"type"`
	Value   string  `json:"value"`
	Unit    *string `json:"unit"`
	TakenAt *string `json:"taken_at"`
}

type LabResult struct {
	Name           string  `json:"name"`
	Value          *string `json:"value"`
	Unit           *string `json:"unit"`
	ReferenceRange *string `json:"reference_range"`
	TakenAt        *string `json:"taken_at"`
}

type PlanItem struct {
	Description string `json:"description"`
}
