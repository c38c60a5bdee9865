package request

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/jwalitptl/bloodlink-api/internal/model"
	"github.com/jwalitptl/bloodlink-api/internal/repository/memory"
	"github.com/jwalitptl/bloodlink-api/internal/service/directory"
	"github.com/jwalitptl/bloodlink-api/internal/service/matching"
	apperrors "github.com/jwalitptl/bloodlink-api/pkg/errors"
	"github.com/jwalitptl/bloodlink-api/pkg/logger"
	"github.com/jwalitptl/bloodlink-api/pkg/metrics"
	"github.com/jwalitptl/bloodlink-api/pkg/validator"
	"github.com/jwalitptl/bloodlink-api/pkg/worker"
)

type mockDispatcher struct {
	mock.Mock
}

func (m *mockDispatcher) NotifyMatchingDonors(ctx context.Context, req *model.DonorRequest) int {
	return m.Called(ctx, req).Int(0)
}

func (m *mockDispatcher) SendToSelectedDonors(ctx context.Context, requestID int64, donorIDs []int64) (*model.SelectedOutcome, error) {
	args := m.Called(ctx, requestID, donorIDs)
	out, _ := args.Get(0).(*model.SelectedOutcome)
	return out, args.Error(1)
}

type fixture struct {
	svc        *Service
	repo       *memory.RequestRepository
	dispatcher *mockDispatcher
	pool       *worker.Pool
}

func newFixture(t *testing.T, donors ...*model.DonorProfile) *fixture {
	t.Helper()
	log := logger.NewNop()
	refs := memory.NewReferenceRepository()
	repo := memory.NewRequestRepository(refs)
	dir := directory.NewService(memory.NewDonorRepository(donors...), refs, time.Minute, time.Minute, log)
	pool := worker.NewPool(worker.PoolConfig{Workers: 1, QueueSize: 4, TaskTimeout: time.Second}, log, metrics.NewNop())
	t.Cleanup(pool.Stop)
	dispatcher := new(mockDispatcher)

	svc := NewService(repo, dir, matching.NewService(dir, log), dispatcher, pool, validator.New(), log)
	return &fixture{svc: svc, repo: repo, dispatcher: dispatcher, pool: pool}
}

func validInput() model.CreateRequestInput {
	return model.CreateRequestInput{
		PatientName:    "Patient A",
		BloodTypeID:    1,
		LocationID:     1,
		Urgency:        model.UrgencyHigh,
		ContactNumber:  "+9611000000",
		RequesterEmail: "ward@hospital.example",
	}
}

func TestCreate_ReportsAllViolations(t *testing.T) {
	f := newFixture(t)
	in := validInput()
	in.PatientName = ""
	in.RequesterEmail = "not-an-email"
	in.BloodTypeID = 42
	in.Urgency = "Whenever"

	_, err := f.svc.Create(context.Background(), in)

	appErr, ok := apperrors.As(err)
	require.True(t, ok)
	assert.Equal(t, apperrors.ErrValidation, appErr.Code)
	assert.ElementsMatch(t, []string{
		"patient_name is required",
		"requester_email must be a valid email",
		"urgency must be one of [Critical High Normal Low]",
		"blood_type_id 42 does not exist",
	}, appErr.Violations)

	all, err := f.repo.List(context.Background(), model.RequestFilter{})
	require.NoError(t, err)
	assert.Empty(t, all)
}

func TestCreate_ReturnsBeforeDispatchFinishes(t *testing.T) {
	f := newFixture(t)
	release := make(chan struct{})
	dispatched := make(chan int64, 1)
	f.dispatcher.On("NotifyMatchingDonors", mock.Anything, mock.Anything).Run(func(args mock.Arguments) {
		<-release
		dispatched <- args.Get(1).(*model.DonorRequest).ID
	}).Return(0)

	req, err := f.svc.Create(context.Background(), validInput())

	require.NoError(t, err)
	assert.Equal(t, model.RequestStatusPending, req.Status)
	assert.Equal(t, "A+", req.BloodType)
	assert.Equal(t, "Beirut", req.Location)

	close(release)
	select {
	case id := <-dispatched:
		assert.Equal(t, req.ID, id)
	case <-time.After(2 * time.Second):
		t.Fatal("dispatch never ran")
	}
}

func TestCreate_SucceedsWhenDispatchPanics(t *testing.T) {
	f := newFixture(t)
	f.dispatcher.On("NotifyMatchingDonors", mock.Anything, mock.Anything).Run(func(mock.Arguments) {
		panic("mail relay down")
	}).Return(0)

	req, err := f.svc.Create(context.Background(), validInput())
	require.NoError(t, err)
	f.pool.Stop()

	stored, err := f.repo.Get(context.Background(), req.ID)
	require.NoError(t, err)
	assert.Equal(t, model.RequestStatusPending, stored.Status)
}

func TestUpdateStatus_Lifecycle(t *testing.T) {
	tests := []struct {
		name    string
		path    []model.RequestStatus
		wantErr bool
	}{
		{"approve then complete", []model.RequestStatus{model.RequestStatusApproved, model.RequestStatusCompleted}, false},
		{"cancel pending", []model.RequestStatus{model.RequestStatusCancelled}, false},
		{"completed is terminal", []model.RequestStatus{model.RequestStatusCompleted, model.RequestStatusApproved}, true},
		{"cancelled is terminal", []model.RequestStatus{model.RequestStatusCancelled, model.RequestStatusPending}, true},
		{"approved cannot go back", []model.RequestStatus{model.RequestStatusApproved, model.RequestStatusPending}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			f.dispatcher.On("NotifyMatchingDonors", mock.Anything, mock.Anything).Return(0)
			req, err := f.svc.Create(context.Background(), validInput())
			require.NoError(t, err)

			var lastErr error
			var last *model.DonorRequest
			for _, status := range tt.path {
				last, lastErr = f.svc.UpdateStatus(context.Background(), req.ID, model.UpdateRequestStatusInput{Status: status})
			}

			if tt.wantErr {
				assert.True(t, apperrors.IsConflict(lastErr))
				return
			}
			require.NoError(t, lastErr)
			assert.Equal(t, tt.path[len(tt.path)-1], last.Status)
			if last.Status == model.RequestStatusCompleted {
				assert.NotNil(t, last.CompletedAt)
			}
		})
	}
}

func TestMatches_RendersContactsWithHiding(t *testing.T) {
	f := newFixture(t,
		&model.DonorProfile{ID: 1, FirstName: "Hadi", LastName: "Zein", BloodTypeID: 1, LocationID: 1, IsAvailable: true, IsHealthyForDonation: true, IsIdentityHidden: true},
		&model.DonorProfile{ID: 2, FirstName: "Sara", LastName: "Itani", BloodTypeID: 1, LocationID: 1, IsAvailable: true, IsHealthyForDonation: true},
	)
	f.dispatcher.On("NotifyMatchingDonors", mock.Anything, mock.Anything).Return(0)
	req, err := f.svc.Create(context.Background(), validInput())
	require.NoError(t, err)

	contacts, err := f.svc.Matches(context.Background(), req.ID, model.ScopeAdmin)

	require.NoError(t, err)
	require.Len(t, contacts, 2)
	assert.Equal(t, "Donor #1", contacts[0].Name)
	assert.Equal(t, "Sara Itani", contacts[1].Name)
}

func TestSendToSelected_ValidatesInput(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.SendToSelected(context.Background(), 1, model.SendToSelectedRequest{})

	assert.True(t, apperrors.IsValidation(err))
	f.dispatcher.AssertNotCalled(t, "SendToSelectedDonors", mock.Anything, mock.Anything, mock.Anything)
}

func TestGet_NotFound(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.Get(context.Background(), 12345)

	assert.True(t, apperrors.IsNotFound(err))
}

// racingRepository lets another writer finish a transition between the
// service's read and its write.
type racingRepository struct {
	*memory.RequestRepository
	rival model.RequestStatus
}

func (r *racingRepository) UpdateStatus(ctx context.Context, id int64, from, to model.RequestStatus, completedAt *time.Time) error {
	if err := r.RequestRepository.UpdateStatus(ctx, id, from, r.rival, nil); err != nil {
		return err
	}
	return r.RequestRepository.UpdateStatus(ctx, id, from, to, completedAt)
}

func TestUpdateStatus_ConcurrentTerminalTransition(t *testing.T) {
	f := newFixture(t)
	f.dispatcher.On("NotifyMatchingDonors", mock.Anything, mock.Anything).Return(0)
	req, err := f.svc.Create(context.Background(), validInput())
	require.NoError(t, err)

	racing := &racingRepository{RequestRepository: f.repo, rival: model.RequestStatusCancelled}
	f.svc.repo = racing

	_, err = f.svc.UpdateStatus(context.Background(), req.ID, model.UpdateRequestStatusInput{Status: model.RequestStatusCompleted})

	assert.True(t, apperrors.IsConflict(err), "got %v", err)
	stored, err := f.repo.Get(context.Background(), req.ID)
	require.NoError(t, err)
	assert.Equal(t, model.RequestStatusCancelled, stored.Status)
	assert.Nil(t, stored.CompletedAt)
}
