package fhir

// Simplified FHIR R4 resource shapes: only the fields this backend emits.

type Bundle struct {
	ResourceType string  `json:"resourceType"`
	Type         string  `json:"type"`
	Entry        []Entry `json:"entry"`
}

type Entry struct {
	Resource Resource `json:"resource"`
}

type Resource interface {
	ResourceID() string
}

type Reference struct {
	Reference string `json:"reference"`
}

type Coding struct {
	System string `json:"system"`
	Code   string `json:"code"`
}

type CodeableConcept struct {
	Text   string   `json:"text,omitempty"`
	Coding []Coding `json:"coding,omitempty"`
}

type HumanName struct {
	Text string `json:"text"`
}

type Extension struct {
	URL          string `json:"url"`
	ValueInteger *int   `json:"valueInteger,omitempty"`
}

type Patient struct {
	ResourceType string      `json:"resourceType"`
	ID           string      `json:"id"`
	Name         []HumanName `json:"name,omitempty"`
	Gender       string      `json:"gender,omitempty"`
	Extension    []Extension `json:"extension,omitempty"`
}

func (p *Patient) ResourceID() string { return p.ID }

type Condition struct {
	ResourceType       string           `json:"resourceType"`
	ID                 string           `json:"id"`
	Subject            *Reference       `json:"subject,omitempty"`
	ClinicalStatus     *CodeableConcept `json:"clinicalStatus,omitempty"`
	VerificationStatus *CodeableConcept `json:"verificationStatus,omitempty"`
	Code               *CodeableConcept `json:"code,omitempty"`
	OnsetString        string           `json:"onsetString,omitempty"`
}

func (c *Condition) ResourceID() string { return c.ID }

type MedicationRequest struct {
	ResourceType              string           `json:"resourceType"`
	ID                        string           `json:"id"`
	Subject                   *Reference       `json:"subject,omitempty"`
	Status                    string           `json:"status"`
	Intent                    string           `json:"intent"`
	MedicationCodeableConcept *CodeableConcept `json:"medicationCodeableConcept,omitempty"`
	DosageInstruction         []Dosage         `json:"dosageInstruction,omitempty"`
}

func (m *MedicationRequest) ResourceID() string { return m.ID }

type Dosage struct {
	Text string `json:"text"`
}

type Observation struct {
	ResourceType      string           `json:"resourceType"`
	ID                string           `json:"id"`
	Subject           *Reference       `json:"subject,omitempty"`
	Status            string           `json:"status"`
	Code              *CodeableConcept `json:"code,omitempty"`
	ValueString       string           `json:"valueString,omitempty"`
	EffectiveDateTime string           `json:"effectiveDateTime,omitempty"`
	ReferenceRange    []RangeText      `json:"referenceRange,omitempty"`
}

func (o *Observation) ResourceID() string { return o.ID }

type RangeText struct {
	Text string `json:"text"`
}

type CarePlan struct {
	ResourceType string     `json:"resourceType"`
	ID           string     `json:"id"`
	Subject      *Reference `json:"subject,omitempty"`
	Status       string     `json:"status"`
	Intent       string     `json:"intent"`
	Description  string     `json:"description,omitempty"`
}

func (c *CarePlan) ResourceID() string { return c.ID }
