package timeline

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
)

// PGStore reads the clinical record tables via pgx.
type PGStore struct {
	db pgxQuerier
}

// pgxQuerier is the subset of pgxpool.Pool used by the store (allows pgxmock).
type pgxQuerier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

// NewPGStore builds a record store over a pgx pool (or mock).
func NewPGStore(db pgxQuerier) *PGStore {
	if db == nil {
		panic("timeline: pgx querier cannot be nil")
	}
	return &PGStore{db: db}
}

var _ RecordStore = (*PGStore)(nil)

// Consultations returns all control consultations for a patient with the
// doctor sub-record embedded as JSON (matching the relational join shape).
func (s *PGStore) Consultations(ctx context.Context, patientID string) ([]ConsultationRow, error) {
	rows, err := s.db.Query(ctx, `
		SELECT c.id, c.generated_at,
		       COALESCE(c.visit_reason, ''), COALESCE(c.findings, ''),
		       COALESCE(c.diagnosis, ''), COALESCE(c.treatment, ''), COALESCE(c.notes, ''),
		       CASE WHEN d.id IS NULL THEN NULL
		            ELSE jsonb_build_object('full_name', d.full_name, 'specialization', d.specialization)
		       END
		FROM control_consultations c
		LEFT JOIN doctors d ON d.id = c.doctor_id
		WHERE c.patient_id = $1
		ORDER BY c.generated_at DESC`, patientID)
	if err != nil {
		return nil, fmt.Errorf("timeline: consultations query failed: %w", err)
	}
	defer rows.Close()

	var out []ConsultationRow
	for rows.Next() {
		var row ConsultationRow
		var doctor []byte
		if err := rows.Scan(&row.ID, &row.GeneratedAt, &row.VisitReason, &row.Findings,
			&row.Diagnosis, &row.Treatment, &row.Notes, &doctor); err != nil {
			return nil, fmt.Errorf("timeline: consultations scan failed: %w", err)
		}
		row.Doctor = doctor
		out = append(out, row)
	}
	return out, rows.Err()
}

// LabResults returns all lab result batches for a patient.
func (s *PGStore) LabResults(ctx context.Context, patientID string) ([]LabResultRow, error) {
	rows, err := s.db.Query(ctx, `
		SELECT id, COALESCE(test_name, ''), result_date, results
		FROM lab_results
		WHERE patient_id = $1
		ORDER BY result_date DESC`, patientID)
	if err != nil {
		return nil, fmt.Errorf("timeline: lab results query failed: %w", err)
	}
	defer rows.Close()

	var out []LabResultRow
	for rows.Next() {
		var row LabResultRow
		var results []byte
		if err := rows.Scan(&row.ID, &row.TestName, &row.ResultDate, &results); err != nil {
			return nil, fmt.Errorf("timeline: lab results scan failed: %w", err)
		}
		row.Results = results
		out = append(out, row)
	}
	return out, rows.Err()
}

// Prescriptions returns all prescriptions for a patient with the doctor
// sub-record embedded as JSON.
func (s *PGStore) Prescriptions(ctx context.Context, patientID string) ([]PrescriptionRow, error) {
	rows, err := s.db.Query(ctx, `
		SELECT p.id, p.created_at, p.medications,
		       CASE WHEN d.id IS NULL THEN NULL
		            ELSE jsonb_build_object('full_name', d.full_name, 'specialization', d.specialization)
		       END
		FROM prescriptions p
		LEFT JOIN doctors d ON d.id = p.doctor_id
		WHERE p.patient_id = $1
		ORDER BY p.created_at DESC`, patientID)
	if err != nil {
		return nil, fmt.Errorf("timeline: prescriptions query failed: %w", err)
	}
	defer rows.Close()

	var out []PrescriptionRow
	for rows.Next() {
		var row PrescriptionRow
		var medications, doctor []byte
		if err := rows.Scan(&row.ID, &row.CreatedAt, &medications, &doctor); err != nil {
			return nil, fmt.Errorf("timeline: prescriptions scan failed: %w", err)
		}
		row.Medications = medications
		row.Doctor = doctor
		out = append(out, row)
	}
	return out, rows.Err()
}
