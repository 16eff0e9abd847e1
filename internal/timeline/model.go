package timeline

import (
	"encoding/json"
	"time"
)

// ItemType discriminates the three clinical record categories merged into the
// patient timeline.
type ItemType string

const (
	TypeConsultation ItemType = "consultation"
	TypeLabResult    ItemType = "lab_result"
	TypePrescription ItemType = "prescription"
)

// Valid reports whether t is one of the known categories.
func (t ItemType) Valid() bool {
	switch t {
	case TypeConsultation, TypeLabResult, TypePrescription:
		return true
	}
	return false
}

// Item is the canonical timeline event. Optional fields carry omitempty so that
// presentation code can use presence as a signal; fields that do not apply to a
// category are never populated.
type Item struct {
	ID          string          `json:"id"`
	Type        ItemType        `json:"type"`
	Title       string          `json:"title"`
	Subtitle    string          `json:"subtitle"`
	Date        string          `json:"date"`
	Doctor      string          `json:"doctor,omitempty"`
	Location    string          `json:"location,omitempty"`
	VisitReason string          `json:"visitReason,omitempty"`
	Findings    string          `json:"findings,omitempty"`
	Diagnosis   string          `json:"diagnosis,omitempty"`
	Treatment   string          `json:"treatment,omitempty"`
	Notes       string          `json:"notes,omitempty"`
	ResultData  json.RawMessage `json:"resultData,omitempty"`
}

// ConsultationRow is a raw control_consultations record. Doctor carries the
// joined doctors sub-record as it arrived from the store: a bare object, a
// one-element array, or null.
type ConsultationRow struct {
	ID          string
	GeneratedAt time.Time
	VisitReason string
	Findings    string
	Diagnosis   string
	Treatment   string
	Notes       string
	Doctor      json.RawMessage
}

// LabResultRow is a raw lab_results record. Results is the opaque structured
// payload written by the enrichment pipeline.
type LabResultRow struct {
	ID         string
	TestName   string
	ResultDate time.Time
	Results    json.RawMessage
}

// PrescriptionRow is a raw prescriptions record. Medications may be a bare
// array of medication objects or wrapped as {"medications": [...]} depending on
// which form version wrote it.
type PrescriptionRow struct {
	ID          string
	CreatedAt   time.Time
	Medications json.RawMessage
	Doctor      json.RawMessage
}

// Counts holds per-category totals over the full, unfiltered timeline.
type Counts struct {
	Consultations int `json:"consultation"`
	LabResults    int `json:"lab_result"`
	Prescriptions int `json:"prescription"`
}
