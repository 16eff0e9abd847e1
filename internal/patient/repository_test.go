package patient

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMockRepo(t *testing.T) (*Repository, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return NewRepository(db), mock
}

func TestGetPatientHeader(t *testing.T) {
	repo, mock := newMockRepo(t)
	birth := time.Date(1960, time.April, 10, 0, 0, 0, 0, time.UTC)

	mock.ExpectQuery("FROM patients").
		WithArgs("patient-1").
		WillReturnRows(sqlmock.NewRows([]string{"id", "full_name", "date_of_birth", "conditions"}).
			AddRow("patient-1", "Ion Popescu", birth,
				pq.Array([]string{"Diabet zaharat tip 2", "Hipertensiune arterială"})))

	data, err := repo.Get(context.Background(), "patient-1")
	require.NoError(t, err)
	require.NotNil(t, data)

	assert.Equal(t, "Ion Popescu", data.Name)
	assert.Equal(t, "Diabet zaharat tip 2 + Hipertensiune arterială", data.Conditions)
	assert.Equal(t, "Stabil", data.Status)
	assert.Equal(t, "1960-04-10", data.DateOfBirth)
	assert.Greater(t, data.Age, 60)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetPatientNoConditions(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectQuery("FROM patients").
		WithArgs("patient-2").
		WillReturnRows(sqlmock.NewRows([]string{"id", "full_name", "date_of_birth", "conditions"}).
			AddRow("patient-2", "Elena Marin", nil, pq.Array([]string{})))

	data, err := repo.Get(context.Background(), "patient-2")
	require.NoError(t, err)
	require.NotNil(t, data)

	assert.Equal(t, "Fără afecțiuni active", data.Conditions)
	assert.Equal(t, 0, data.Age, "missing birth date yields age 0")
	assert.Empty(t, data.DateOfBirth)
}

func TestGetPatientNotFound(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectQuery("FROM patients").
		WithArgs("missing").
		WillReturnRows(sqlmock.NewRows([]string{"id", "full_name", "date_of_birth", "conditions"}))

	data, err := repo.Get(context.Background(), "missing")
	require.NoError(t, err)
	assert.Nil(t, data)
}
