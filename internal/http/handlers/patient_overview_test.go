package handlers

import (
	"context"
	"database/sql"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/go-chi/chi/v5"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/medicore/clinic-platform/internal/aisummary"
	"github.com/medicore/clinic-platform/internal/patient"
	"github.com/medicore/clinic-platform/internal/timeline"
	"github.com/medicore/clinic-platform/pkg/logging"
)

type stubRecordStore struct {
	consultations []timeline.ConsultationRow
	labResults    []timeline.LabResultRow
	prescriptions []timeline.PrescriptionRow
}

func (s *stubRecordStore) Consultations(ctx context.Context, patientID string) ([]timeline.ConsultationRow, error) {
	return s.consultations, nil
}

func (s *stubRecordStore) LabResults(ctx context.Context, patientID string) ([]timeline.LabResultRow, error) {
	return s.labResults, nil
}

func (s *stubRecordStore) Prescriptions(ctx context.Context, patientID string) ([]timeline.PrescriptionRow, error) {
	return s.prescriptions, nil
}

type stubSummaryReader struct {
	summary aisummary.Summary
	err     error
}

func (s *stubSummaryReader) Get(ctx context.Context, patientID string) (aisummary.Summary, error) {
	return s.summary, s.err
}

func newOverviewFixture(t *testing.T) (*PatientOverviewHandler, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	records := &stubRecordStore{
		consultations: []timeline.ConsultationRow{
			{ID: "c-1", GeneratedAt: time.Date(2025, time.May, 20, 0, 0, 0, 0, time.UTC), Diagnosis: "Viroza"},
		},
		labResults: []timeline.LabResultRow{
			{ID: "l-1", TestName: "analize.pdf", ResultDate: time.Date(2025, time.May, 10, 0, 0, 0, 0, time.UTC)},
		},
	}

	svc := timeline.NewService(records, logging.Default())
	summaries := &stubSummaryReader{summary: aisummary.Summary{
		Summaries:      []aisummary.Entry{{Subject: "Stare generală", Summary: "Pacient stabil."}},
		EventsAnalyzed: 1,
	}}

	h := NewPatientOverviewHandler(patient.NewRepository(db), svc, summaries, nil, logging.Default())
	return h, mock
}

func overviewRouter(h *PatientOverviewHandler) http.Handler {
	r := chi.NewRouter()
	r.Get("/api/patients/{patientID}/overview", h.Overview)
	r.Get("/api/patients/{patientID}/timeline", h.Timeline)
	return r
}

func expectPatientRow(mock sqlmock.Sqlmock, patientID string) {
	mock.ExpectQuery("FROM patients").
		WithArgs(patientID).
		WillReturnRows(sqlmock.NewRows([]string{"id", "full_name", "date_of_birth", "conditions"}).
			AddRow(patientID, "Ion Popescu", time.Date(1960, time.April, 10, 0, 0, 0, 0, time.UTC),
				pq.Array([]string{"Diabet zaharat tip 2"})))
}

func TestOverviewComposesPatientTimelineAndSummary(t *testing.T) {
	h, mock := newOverviewFixture(t)
	expectPatientRow(mock, "patient-1")

	req := httptest.NewRequest(http.MethodGet, "/api/patients/patient-1/overview", nil)
	rec := httptest.NewRecorder()
	overviewRouter(h).ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var resp OverviewResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))

	require.NotNil(t, resp.Patient)
	assert.Equal(t, "Ion Popescu", resp.Patient.Name)

	require.Len(t, resp.Timeline, 2)
	assert.Equal(t, "c-1", resp.Timeline[0].ID)
	assert.Equal(t, "l-1", resp.Timeline[1].ID)
	assert.Equal(t, 1, resp.Counts.Consultations)
	assert.Equal(t, 1, resp.Counts.LabResults)

	require.Len(t, resp.Summary.Summaries, 1)
	assert.Equal(t, "Stare generală", resp.Summary.Summaries[0].Subject)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestOverviewUnknownPatient(t *testing.T) {
	h, mock := newOverviewFixture(t)
	mock.ExpectQuery("FROM patients").
		WithArgs("ghost").
		WillReturnError(sql.ErrNoRows)

	req := httptest.NewRequest(http.MethodGet, "/api/patients/ghost/overview", nil)
	rec := httptest.NewRecorder()
	overviewRouter(h).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestOverviewSummaryFailureDegrades(t *testing.T) {
	h, mock := newOverviewFixture(t)
	h.summaries = &stubSummaryReader{err: assert.AnError}
	expectPatientRow(mock, "patient-1")

	req := httptest.NewRequest(http.MethodGet, "/api/patients/patient-1/overview", nil)
	rec := httptest.NewRecorder()
	overviewRouter(h).ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var resp OverviewResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Empty(t, resp.Summary.Summaries)

	// The degraded summary stays a valid document, not null.
	assert.Contains(t, rec.Body.String(), `"summaries":[]`)
	assert.Contains(t, rec.Body.String(), `"eventsAnalyzed":0`)
	assert.NotContains(t, rec.Body.String(), `"summaries":null`)
}

func TestTimelineFilterByType(t *testing.T) {
	h, _ := newOverviewFixture(t)

	req := httptest.NewRequest(http.MethodGet, "/api/patients/patient-1/timeline?type=lab_result", nil)
	rec := httptest.NewRecorder()
	overviewRouter(h).ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var resp TimelineResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))

	require.Len(t, resp.Timeline, 1)
	assert.Equal(t, timeline.TypeLabResult, resp.Timeline[0].Type)

	// Counts always cover the unfiltered timeline.
	assert.Equal(t, 1, resp.Counts.Consultations)
	assert.Equal(t, 1, resp.Counts.LabResults)
}

func TestTimelineInvalidFilterReturnsAll(t *testing.T) {
	h, _ := newOverviewFixture(t)

	req := httptest.NewRequest(http.MethodGet, "/api/patients/patient-1/timeline?type=bogus", nil)
	rec := httptest.NewRecorder()
	overviewRouter(h).ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var resp TimelineResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Len(t, resp.Timeline, 2)
}
