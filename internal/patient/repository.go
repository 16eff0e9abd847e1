package patient

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/lib/pq"
)

// Repository reads patient header data from Postgres.
type Repository struct {
	db *sql.DB
}

// NewRepository builds a patient repository over a sql.DB.
func NewRepository(db *sql.DB) *Repository {
	if db == nil {
		panic("patient: db cannot be nil")
	}
	return &Repository{db: db}
}

// Get returns the header data for one patient, or nil when the patient does
// not exist. Active conditions are aggregated in the query so a patient with
// none still comes back in one round trip.
func (r *Repository) Get(ctx context.Context, patientID string) (*Data, error) {
	var (
		data       Data
		birthDate  sql.NullTime
		conditions []string
	)
	err := r.db.QueryRowContext(ctx, `
		SELECT p.id, p.full_name, p.date_of_birth,
		       COALESCE(array_agg(c.name ORDER BY c.name) FILTER (WHERE c.id IS NOT NULL), '{}')
		FROM patients p
		LEFT JOIN patient_conditions c ON c.patient_id = p.id AND c.is_active
		WHERE p.id = $1
		GROUP BY p.id, p.full_name, p.date_of_birth`, patientID).
		Scan(&data.ID, &data.Name, &birthDate, pq.Array(&conditions))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("patient: header query failed: %w", err)
	}

	now := time.Now()
	if birthDate.Valid {
		data.Age = CalculateAge(birthDate.Time, now)
		data.DateOfBirth = birthDate.Time.Format("2006-01-02")
	}
	data.Conditions = joinConditions(conditions)
	data.Status = defaultStatus
	return &data, nil
}
