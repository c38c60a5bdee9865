package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwalitptl/bloodlink-api/internal/model"
	"github.com/jwalitptl/bloodlink-api/internal/repository"
)

func TestRequestCreate_ScansID(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewRequestRepository(db)
	now := time.Now()

	req := &model.DonorRequest{
		PatientName:    "Patient A",
		BloodTypeID:    7,
		LocationID:     1,
		Urgency:        model.UrgencyCritical,
		ContactNumber:  "+9611000000",
		RequesterEmail: "ward@hospital.example",
		Status:         model.RequestStatusPending,
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	mock.ExpectQuery(`INSERT INTO donor_requests`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(42)))

	require.NoError(t, repo.Create(context.Background(), req))
	assert.Equal(t, int64(42), req.ID)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRequestRecordDispatch_Increments(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewRequestRepository(db)

	mock.ExpectExec(`notified_count = notified_count \+ \$1`).
		WithArgs(5, 2, int64(42)).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := repo.RecordDispatch(context.Background(), model.DispatchStats{RequestID: 42, Succeeded: 5, Failed: 2})

	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRequestUpdateStatus_GuardsCurrentStatus(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewRequestRepository(db)

	mock.ExpectExec(`AND status = \$4`).
		WithArgs(model.RequestStatusCancelled, nil, int64(42), model.RequestStatusPending).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := repo.UpdateStatus(context.Background(), 42, model.RequestStatusPending, model.RequestStatusCancelled, nil)

	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRequestUpdateStatus_LostRace(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewRequestRepository(db)

	mock.ExpectExec(`UPDATE donor_requests SET status`).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(`SELECT EXISTS`).
		WithArgs(int64(42)).
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))

	err := repo.UpdateStatus(context.Background(), 42, model.RequestStatusPending, model.RequestStatusCancelled, nil)

	assert.ErrorIs(t, err, repository.ErrStatusChanged)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRequestUpdateStatus_MissingRow(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewRequestRepository(db)

	mock.ExpectExec(`UPDATE donor_requests SET status`).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(`SELECT EXISTS`).
		WithArgs(int64(42)).
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(false))

	err := repo.UpdateStatus(context.Background(), 42, model.RequestStatusPending, model.RequestStatusCancelled, nil)

	assert.ErrorIs(t, err, repository.ErrNotFound)
}
