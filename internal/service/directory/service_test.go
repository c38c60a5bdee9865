package directory

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/jwalitptl/bloodlink-api/internal/model"
	"github.com/jwalitptl/bloodlink-api/internal/repository"
	"github.com/jwalitptl/bloodlink-api/internal/repository/memory"
	apperrors "github.com/jwalitptl/bloodlink-api/pkg/errors"
	"github.com/jwalitptl/bloodlink-api/pkg/logger"
)

type mockReferenceRepository struct {
	mock.Mock
}

func (m *mockReferenceRepository) GetBloodType(ctx context.Context, id int64) (*model.BloodType, error) {
	args := m.Called(ctx, id)
	if bt, ok := args.Get(0).(*model.BloodType); ok {
		return bt, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockReferenceRepository) GetLocation(ctx context.Context, id int64) (*model.Location, error) {
	args := m.Called(ctx, id)
	if loc, ok := args.Get(0).(*model.Location); ok {
		return loc, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockReferenceRepository) ListBloodTypes(ctx context.Context) ([]*model.BloodType, error) {
	args := m.Called(ctx)
	return args.Get(0).([]*model.BloodType), args.Error(1)
}

func (m *mockReferenceRepository) ListLocations(ctx context.Context) ([]*model.Location, error) {
	args := m.Called(ctx)
	return args.Get(0).([]*model.Location), args.Error(1)
}

func donor(id, bloodType, location int64, available, healthy bool) *model.DonorProfile {
	return &model.DonorProfile{
		ID:                   id,
		BloodTypeID:          bloodType,
		LocationID:           location,
		IsAvailable:          available,
		IsHealthyForDonation: healthy,
		Email:                "donor@example.com",
	}
}

func TestFindEligibleDonors_ExactMatchOnly(t *testing.T) {
	donors := memory.NewDonorRepository(
		donor(1, 1, 1, true, true),
		donor(2, 1, 1, false, true),
		donor(3, 1, 4, true, true),
		donor(4, 1, 1, true, false),
		donor(5, 2, 1, true, true),
	)
	svc := NewService(donors, memory.NewReferenceRepository(), time.Minute, time.Minute, logger.NewNop())

	got, err := svc.FindEligibleDonors(context.Background(), 1, 1)

	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, int64(1), got[0].ID)
}

func TestValidateReferences_ReportsEveryUnknownID(t *testing.T) {
	svc := NewService(memory.NewDonorRepository(), memory.NewReferenceRepository(), time.Minute, time.Minute, logger.NewNop())

	violations, err := svc.ValidateReferences(context.Background(), 99, 42)

	require.NoError(t, err)
	assert.Equal(t, []string{
		"blood_type_id 99 does not exist",
		"location_id 42 does not exist",
	}, violations)
}

func TestBloodTypeName_IsCached(t *testing.T) {
	refs := new(mockReferenceRepository)
	refs.On("GetBloodType", mock.Anything, int64(7)).Return(&model.BloodType{ID: 7, Name: "O+"}, nil).Once()
	svc := NewService(memory.NewDonorRepository(), refs, time.Minute, time.Minute, logger.NewNop())

	for i := 0; i < 3; i++ {
		name, err := svc.BloodTypeName(context.Background(), 7)
		require.NoError(t, err)
		assert.Equal(t, "O+", name)
	}

	refs.AssertNumberOfCalls(t, "GetBloodType", 1)
}

func TestBloodTypeName_MissingIsNotCached(t *testing.T) {
	refs := new(mockReferenceRepository)
	refs.On("GetBloodType", mock.Anything, int64(9)).Return(nil, repository.ErrNotFound).Twice()
	svc := NewService(memory.NewDonorRepository(), refs, time.Minute, time.Minute, logger.NewNop())

	_, err := svc.BloodTypeName(context.Background(), 9)
	assert.ErrorIs(t, err, repository.ErrNotFound)
	_, err = svc.BloodTypeName(context.Background(), 9)
	assert.ErrorIs(t, err, repository.ErrNotFound)

	refs.AssertExpectations(t)
}

func TestGetDonor_NotFound(t *testing.T) {
	svc := NewService(memory.NewDonorRepository(), memory.NewReferenceRepository(), time.Minute, time.Minute, logger.NewNop())

	_, err := svc.GetDonor(context.Background(), 404)

	assert.True(t, apperrors.IsNotFound(err))
}
