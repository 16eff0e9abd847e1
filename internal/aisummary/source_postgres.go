package aisummary

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5"
)

// pgxSourceConn is the query subset of pgxpool.Pool (allows pgxmock).
type pgxSourceConn interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

// PGSource reads the four record categories via pgx.
type PGSource struct {
	db pgxSourceConn
}

// NewPGSource builds a record source over a pgx pool (or mock).
func NewPGSource(db pgxSourceConn) *PGSource {
	if db == nil {
		panic("aisummary: pgx querier cannot be nil")
	}
	return &PGSource{db: db}
}

var _ RecordSource = (*PGSource)(nil)

func (s *PGSource) Allergies(ctx context.Context, patientID string) ([]AllergyRecord, error) {
	rows, err := s.db.Query(ctx, `
		SELECT COALESCE(name, ''), COALESCE(severity, '')
		FROM allergies
		WHERE patient_id = $1`, patientID)
	if err != nil {
		return nil, fmt.Errorf("aisummary: allergies query: %w", err)
	}
	defer rows.Close()

	var out []AllergyRecord
	for rows.Next() {
		var r AllergyRecord
		if err := rows.Scan(&r.Name, &r.Severity); err != nil {
			return nil, fmt.Errorf("aisummary: allergies scan: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func (s *PGSource) PrescriptionMedications(ctx context.Context, patientID string) ([]json.RawMessage, error) {
	rows, err := s.db.Query(ctx, `
		SELECT medications
		FROM prescriptions
		WHERE patient_id = $1`, patientID)
	if err != nil {
		return nil, fmt.Errorf("aisummary: prescriptions query: %w", err)
	}
	defer rows.Close()

	var out []json.RawMessage
	for rows.Next() {
		var medications []byte
		if err := rows.Scan(&medications); err != nil {
			return nil, fmt.Errorf("aisummary: prescriptions scan: %w", err)
		}
		out = append(out, medications)
	}
	return out, rows.Err()
}

func (s *PGSource) LabResults(ctx context.Context, patientID string) ([]LabRecord, error) {
	rows, err := s.db.Query(ctx, `
		SELECT COALESCE(test_name, ''), results, result_date
		FROM lab_results
		WHERE patient_id = $1`, patientID)
	if err != nil {
		return nil, fmt.Errorf("aisummary: lab results query: %w", err)
	}
	defer rows.Close()

	var out []LabRecord
	for rows.Next() {
		var r LabRecord
		var results []byte
		if err := rows.Scan(&r.TestName, &results, &r.ResultDate); err != nil {
			return nil, fmt.Errorf("aisummary: lab results scan: %w", err)
		}
		r.Results = results
		out = append(out, r)
	}
	return out, rows.Err()
}

func (s *PGSource) Consultations(ctx context.Context, patientID string) ([]ConsultationRecord, error) {
	rows, err := s.db.Query(ctx, `
		SELECT COALESCE(visit_reason, ''), COALESCE(findings, ''), COALESCE(diagnosis, ''),
		       COALESCE(treatment, ''), COALESCE(notes, '')
		FROM control_consultations
		WHERE patient_id = $1`, patientID)
	if err != nil {
		return nil, fmt.Errorf("aisummary: consultations query: %w", err)
	}
	defer rows.Close()

	var out []ConsultationRecord
	for rows.Next() {
		var r ConsultationRecord
		if err := rows.Scan(&r.VisitReason, &r.Findings, &r.Diagnosis, &r.Treatment, &r.Notes); err != nil {
			return nil, fmt.Errorf("aisummary: consultations scan: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}
