package timeline

import (
	"encoding/json"
	"strings"
)

// Display strings follow the product locale (Romanian).
const (
	titleConsultation    = "Consultație de control"
	subtitleConsultation = "Consultație medicală"
	locationConsultation = "Cabinet medical"

	titleLabDefault = "Analize medicale"
	subtitleLab     = "Rezultate analize"

	titlePrescription    = "Prescripție"
	subtitlePrescription = "Medicamente prescrise"

	doctorUnknown = "Doctor necunoscut"
	noMedications = "Nu sunt medicamente specificate"
)

// doctorRef is the joined doctors sub-record.
type doctorRef struct {
	FullName       string `json:"full_name"`
	Specialization string `json:"specialization"`
}

// medication is one entry of a prescription's medications payload.
type medication struct {
	Name            string `json:"name"`
	Dosage          string `json:"dosage"`
	ModAdministrare string `json:"mod_administrare"`
}

// NormalizeConsultation converts a raw consultation row into a timeline item.
// It never fails; malformed sub-records degrade to their fallbacks.
func NormalizeConsultation(row ConsultationRow) Item {
	subtitle := row.VisitReason
	if subtitle == "" {
		subtitle = subtitleConsultation
	}

	return Item{
		ID:          row.ID,
		Type:        TypeConsultation,
		Title:       titleConsultation,
		Subtitle:    subtitle,
		Date:        FormatDisplayDate(row.GeneratedAt),
		Doctor:      doctorDisplay(row.Doctor),
		Location:    locationConsultation,
		VisitReason: row.VisitReason,
		Findings:    row.Findings,
		Diagnosis:   row.Diagnosis,
		Treatment:   row.Treatment,
		Notes:       row.Notes,
	}
}

// NormalizeLabResult converts a raw lab result row into a timeline item. The
// structured results payload is passed through opaquely.
func NormalizeLabResult(row LabResultRow) Item {
	title := row.TestName
	if title == "" {
		title = titleLabDefault
	}

	return Item{
		ID:         row.ID,
		Type:       TypeLabResult,
		Title:      title,
		Subtitle:   subtitleLab,
		Date:       FormatDisplayDate(row.ResultDate),
		ResultData: row.Results,
	}
}

// NormalizePrescription converts a raw prescription row into a timeline item,
// flattening the medications payload into display treatment text.
func NormalizePrescription(row PrescriptionRow) Item {
	treatment := flattenMedications(row.Medications)
	if treatment == "" {
		treatment = noMedications
	}

	return Item{
		ID:        row.ID,
		Type:      TypePrescription,
		Title:     titlePrescription,
		Subtitle:  subtitlePrescription,
		Date:      FormatDisplayDate(row.CreatedAt),
		Doctor:    doctorDisplay(row.Doctor),
		Treatment: treatment,
	}
}

// doctorDisplay formats the joined doctor sub-record. Depending on the query
// path the join arrives as a bare object or a one-element array; both are
// unwrapped here, once, instead of at every call site.
func doctorDisplay(raw json.RawMessage) string {
	obj := unwrapSingleton(raw)
	if obj == nil {
		return doctorUnknown
	}

	var ref doctorRef
	if err := json.Unmarshal(obj, &ref); err != nil {
		return doctorUnknown
	}
	if strings.TrimSpace(ref.FullName) == "" {
		return doctorUnknown
	}
	return "Dr. " + ref.FullName
}

// unwrapSingleton returns the JSON object in raw, unwrapping a one-element
// array if that is what the join produced. Nil for anything else.
func unwrapSingleton(raw json.RawMessage) json.RawMessage {
	trimmed := strings.TrimSpace(string(raw))
	if trimmed == "" || trimmed == "null" {
		return nil
	}
	if strings.HasPrefix(trimmed, "{") {
		return json.RawMessage(trimmed)
	}
	if strings.HasPrefix(trimmed, "[") {
		var arr []json.RawMessage
		if err := json.Unmarshal(raw, &arr); err != nil || len(arr) == 0 {
			return nil
		}
		return unwrapSingleton(arr[0])
	}
	return nil
}

// flattenMedications renders the medications payload as newline-joined display
// text. The payload may be a bare array (legacy) or {"medications": [...]}
// (current); anything else yields an empty string.
func flattenMedications(raw json.RawMessage) string {
	meds := decodeMedications(raw)
	if len(meds) == 0 {
		return ""
	}

	lines := make([]string, 0, len(meds))
	for _, med := range meds {
		parts := []string{med.Name}
		if med.Dosage != "" {
			parts = append(parts, med.Dosage)
		}
		if med.ModAdministrare != "" {
			parts = append(parts, "- "+med.ModAdministrare)
		}
		lines = append(lines, strings.Join(parts, " "))
	}
	return strings.Join(lines, "\n")
}

func decodeMedications(raw json.RawMessage) []medication {
	if len(raw) == 0 {
		return nil
	}

	var wrapped struct {
		Medications []medication `json:"medications"`
	}
	if err := json.Unmarshal(raw, &wrapped); err == nil && wrapped.Medications != nil {
		return wrapped.Medications
	}

	var bare []medication
	if err := json.Unmarshal(raw, &bare); err == nil {
		return bare
	}
	return nil
}
