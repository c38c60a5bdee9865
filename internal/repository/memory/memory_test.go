package memory

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwalitptl/bloodlink-api/internal/model"
	"github.com/jwalitptl/bloodlink-api/internal/repository"
)

func TestConfirmationRepository_ConcurrentUpsertsCreateOnce(t *testing.T) {
	repo := NewConfirmationRepository()
	ctx := context.Background()

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		created int
	)
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, isNew, err := repo.Upsert(ctx, 1, 2, func(existing *model.DonorConfirmation) *model.DonorConfirmation {
				return &model.DonorConfirmation{Status: model.ConfirmationStatusConfirmed, ConfirmedAt: time.Now()}
			})
			assert.NoError(t, err)
			if isNew {
				mu.Lock()
				created++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, created)
	rows, err := repo.ListByRequest(ctx, 1)
	require.NoError(t, err)
	assert.Len(t, rows, 1)
}

func TestRequestRepository_ListPaginatesNewestFirst(t *testing.T) {
	repo := NewRequestRepository(NewReferenceRepository())
	ctx := context.Background()
	for i := 0; i < 5; i++ {
		require.NoError(t, repo.Create(ctx, &model.DonorRequest{BloodTypeID: 1, LocationID: 1, Status: model.RequestStatusPending}))
	}

	page, err := repo.List(ctx, model.RequestFilter{Pagination: model.Pagination{Page: 2, PageSize: 2}})

	require.NoError(t, err)
	require.Len(t, page, 2)
	assert.Equal(t, int64(3), page[0].ID)
	assert.Equal(t, int64(2), page[1].ID)
	assert.Equal(t, "A+", page[0].BloodType)
}

func TestRequestRepository_UpdateStatusRequiresExpectedStatus(t *testing.T) {
	repo := NewRequestRepository(NewReferenceRepository())
	ctx := context.Background()
	req := &model.DonorRequest{BloodTypeID: 1, LocationID: 1, Status: model.RequestStatusPending}
	require.NoError(t, repo.Create(ctx, req))

	require.NoError(t, repo.UpdateStatus(ctx, req.ID, model.RequestStatusPending, model.RequestStatusCancelled, nil))

	err := repo.UpdateStatus(ctx, req.ID, model.RequestStatusPending, model.RequestStatusCompleted, nil)
	assert.ErrorIs(t, err, repository.ErrStatusChanged)

	err = repo.UpdateStatus(ctx, 99, model.RequestStatusPending, model.RequestStatusCancelled, nil)
	assert.ErrorIs(t, err, repository.ErrNotFound)
}
