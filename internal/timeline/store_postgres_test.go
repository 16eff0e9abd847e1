package timeline

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMockStore(t *testing.T) (*PGStore, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("pgxmock: %v", err)
	}
	t.Cleanup(mock.Close)
	return NewPGStore(mock), mock
}

func TestPGStoreConsultations(t *testing.T) {
	store, mock := newMockStore(t)
	generatedAt := time.Date(2025, time.January, 15, 10, 0, 0, 0, time.UTC)

	mock.ExpectQuery("FROM control_consultations").
		WithArgs("patient-1").
		WillReturnRows(pgxmock.NewRows([]string{
			"id", "generated_at", "visit_reason", "findings", "diagnosis", "treatment", "notes", "doctor",
		}).AddRow(
			"c-1", generatedAt, "Control anual", "TA normală", "", "", "",
			[]byte(`{"full_name":"Maria Ionescu","specialization":"Cardiologie"}`),
		).AddRow(
			"c-2", generatedAt.AddDate(0, -1, 0), "", "", "", "", "", []byte(nil),
		))

	rows, err := store.Consultations(context.Background(), "patient-1")
	require.NoError(t, err)
	require.Len(t, rows, 2)

	assert.Equal(t, "c-1", rows[0].ID)
	assert.Equal(t, "Control anual", rows[0].VisitReason)
	assert.JSONEq(t, `{"full_name":"Maria Ionescu","specialization":"Cardiologie"}`, string(rows[0].Doctor))
	assert.Empty(t, rows[1].Doctor, "missing doctor join scans to nil")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPGStoreLabResults(t *testing.T) {
	store, mock := newMockStore(t)
	resultDate := time.Date(2025, time.May, 2, 0, 0, 0, 0, time.UTC)

	mock.ExpectQuery("FROM lab_results").
		WithArgs("patient-1").
		WillReturnRows(pgxmock.NewRows([]string{"id", "test_name", "result_date", "results"}).
			AddRow("l-1", "analize_mai.pdf", resultDate,
				[]byte(`{"results":[{"test_name":"Glicemie","result":"92","is_normal":true}]}`)))

	rows, err := store.LabResults(context.Background(), "patient-1")
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "analize_mai.pdf", rows[0].TestName)
	assert.Contains(t, string(rows[0].Results), "Glicemie")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPGStorePrescriptions(t *testing.T) {
	store, mock := newMockStore(t)
	createdAt := time.Date(2025, time.March, 20, 0, 0, 0, 0, time.UTC)

	mock.ExpectQuery("FROM prescriptions").
		WithArgs("patient-1").
		WillReturnRows(pgxmock.NewRows([]string{"id", "created_at", "medications", "doctor"}).
			AddRow("p-1", createdAt,
				[]byte(`{"medications":[{"name":"Algocalmin","dosage":"500mg","mod_administrare":"oral"}]}`),
				[]byte(`{"full_name":"Andrei Pop"}`)))

	rows, err := store.Prescriptions(context.Background(), "patient-1")
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Contains(t, string(rows[0].Medications), "Algocalmin")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPGStoreQueryError(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectQuery("FROM control_consultations").
		WithArgs("patient-1").
		WillReturnError(errors.New("connection reset"))

	_, err := store.Consultations(context.Background(), "patient-1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "consultations query failed")
}

func TestPGStoreEmptyResult(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectQuery("FROM lab_results").
		WithArgs("patient-1").
		WillReturnRows(pgxmock.NewRows([]string{"id", "test_name", "result_date", "results"}))

	rows, err := store.LabResults(context.Background(), "patient-1")
	require.NoError(t, err)
	assert.Empty(t, rows)
}
