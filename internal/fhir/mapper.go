package fhir

import (
	"fmt"
	"strings"

	"github.com/opencarelabs/clinicore/internal/model"
)

const (
	icd10System  = "http://hl7.org/fhir/sid/icd-10-cm"
	rxnormSystem = "http://www.nlm.nih.gov/research/umls/rxnorm"
	ageExtension = "http://hl7.org/fhir/StructureDefinition/patient-age"
)

// MapRecord transforms a clinical record into a FHIR-style bundle. The
// mapping is pure and deterministic: stable iteration by category, then by
// item order as extracted, with category-prefixed sequential ids. When no
// patient was extracted, clinical resources are still emitted without a
// subject reference.
func MapRecord(record *model.ClinicalRecord) *Bundle {
	var resources []Resource
	var subject *Reference

	if record.Patient != nil {
		patient := mapPatient(record.Patient)
		subject = &Reference{Reference: "Patient/" + patient.ID}
		resources = append(resources, patient)
	}

	for idx, cond := range record.Conditions {
		resources = append(resources, mapCondition(idx+1, cond, subject))
	}
	for idx, med := range record.Medications {
		resources = append(resources, mapMedication(idx+1, med, subject))
	}
	obsCounter := 0
	for _, vital := range record.Vitals {
		obsCounter++
		resources = append(resources, mapVital(obsCounter, vital, subject))
	}
	for _, lab := range record.Labs {
		obsCounter++
		resources = append(resources, mapLab(obsCounter, lab, subject))
	}
	if plan := mapPlan(record.Plan, subject); plan != nil {
		resources = append(resources, plan)
	}

	entries := make([]Entry, 0, len(resources))
	for _, res := range resources {
		entries = append(entries, Entry{Resource: res})
	}
	return &Bundle{
		ResourceType: "Bundle",
		Type:         "collection",
		Entry:        entries,
	}
}

func mapPatient(info *model.PatientInfo) *Patient {
	patient := &Patient{
		ResourceType: "Patient",
		ID:           "patient-1",
	}
	if info.Name != nil && *info.Name != "" {
		patient.Name = []HumanName{{Text: *info.Name}}
	}
	if info.Sex != nil && *info.Sex != "" {
		sex := strings.ToLower(*info.Sex)
		switch sex {
		case "male", "female", "other", "unknown":
			patient.Gender = sex
		default:
			patient.Gender = "unknown"
		}
	}
	if info.Age != nil {
		patient.Extension = []Extension{{URL: ageExtension, ValueInteger: info.Age}}
	}
	return patient
}

func mapCondition(idx int, cond model.Condition, subject *Reference) *Condition {
	status := "active"
	if cond.Status != nil && *cond.Status != "" {
		status = strings.ToLower(*cond.Status)
	}
	resource := &Condition{
		ResourceType:       "Condition",
		ID:                 fmt.Sprintf("condition-%d", idx),
		Subject:            subject,
		ClinicalStatus:     &CodeableConcept{Text: status},
		VerificationStatus: &CodeableConcept{Text: "confirmed"},
		Code:               &CodeableConcept{Text: cond.Name},
	}
	if cond.ICD10Code != nil && *cond.ICD10Code != "" {
		resource.Code.Coding = []Coding{{System: icd10System, Code: *cond.ICD10Code}}
	}
	if cond.Onset != nil && *cond.Onset != "" {
		resource.OnsetString = *cond.Onset
	}
	return resource
}

func mapMedication(idx int, med model.Medication, subject *Reference) *MedicationRequest {
	resource := &MedicationRequest{
		ResourceType:              "MedicationRequest",
		ID:                        fmt.Sprintf("medreq-%d", idx),
		Subject:                   subject,
		Status:                    "active",
		Intent:                    "order",
		MedicationCodeableConcept: &CodeableConcept{Text: med.Name},
	}
	if med.RxNormCode != nil && *med.RxNormCode != "" {
		resource.MedicationCodeableConcept.Coding = []Coding{{System: rxnormSystem, Code: *med.RxNormCode}}
	}
	var parts []string
	if med.Dose != nil && *med.Dose != "" {
		parts = append(parts, *med.Dose)
	}
	if med.Route != nil && *med.Route != "" {
		parts = append(parts, *med.Route)
	}
	if med.Frequency != nil && *med.Frequency != "" {
		parts = append(parts, *med.Frequency)
	}
	if len(parts) > 0 {
		resource.DosageInstruction = []Dosage{{Text: strings.Join(parts, " ")}}
	}
	return resource
}

func mapVital(counter int, vital model.VitalSign, subject *Reference) *Observation {
	value := vital.Value
	if vital.Unit != nil && *vital.Unit != "" {
		value = value + " " + *vital.Unit
	}
	resource := &Observation{
		ResourceType: "Observation",
		ID:           fmt.Sprintf("observation-vital-%d", counter),
		Subject:      subject,
		Status:       "final",
		Code:         &CodeableConcept{Text: vital.Type},
		ValueString:  value,
	}
	if vital.TakenAt != nil && *vital.TakenAt != "" {
		resource.EffectiveDateTime = *vital.TakenAt
	}
	return resource
}

func mapLab(counter int, lab model.LabResult, subject *Reference) *Observation {
	var value string
	if lab.Value != nil {
		value = *lab.Value
	}
	if lab.Unit != nil && *lab.Unit != "" {
		value = strings.TrimSpace(value + " " + *lab.Unit)
	}
	resource := &Observation{
		ResourceType: "Observation",
		ID:           fmt.Sprintf("observation-lab-%d", counter),
		Subject:      subject,
		Status:       "final",
		Code:         &CodeableConcept{Text: lab.Name},
		ValueString:  value,
	}
	if lab.ReferenceRange != nil && *lab.ReferenceRange != "" {
		resource.ReferenceRange = []RangeText{{Text: *lab.ReferenceRange}}
	}
	if lab.TakenAt != nil && *lab.TakenAt != "" {
		resource.EffectiveDateTime = *lab.TakenAt
	}
	return resource
}

func mapPlan(items []model.PlanItem, subject *Reference) *CarePlan {
	if len(items) == 0 {
		return nil
	}
	descriptions := make([]string, 0, len(items))
	for _, item := range items {
		if item.Description != "" {
			descriptions = append(descriptions, item.Description)
		}
	}
	return &CarePlan{
		ResourceType: "CarePlan",
		ID:           "careplan-1",
		Subject:      subject,
		Status:       "active",
		Intent:       "plan",
		Description:  strings.Join(descriptions, " | "),
	}
}
