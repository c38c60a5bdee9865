package repository

import (
	"context"
	"errors"
	"time"

	"github.com/jwalitptl/bloodlink-api/internal/model"
)

// ErrNotFound is returned by every repository when the row does not exist.
var ErrNotFound = errors.New("record not found")

// ErrStatusChanged is returned by a conditional status write when the row no
// longer holds the expected status.
var ErrStatusChanged = errors.New("status changed concurrently")

// MutateFunc receives the current confirmation for a key (nil when absent)
// and returns the row to persist. It may run more than once if an insert
// loses a race, so it must not have side effects beyond its return value.
type MutateFunc func(existing *model.DonorConfirmation) *model.DonorConfirmation

// All repository interfaces in one file
type (
	ReferenceRepository interface {
		GetBloodType(ctx context.Context, id int64) (*model.BloodType, error)
		GetLocation(ctx context.Context, id int64) (*model.Location, error)
		ListBloodTypes(ctx context.Context) ([]*model.BloodType, error)
		ListLocations(ctx context.Context) ([]*model.Location, error)
	}

	DonorRepository interface {
		Get(ctx context.Context, id int64) (*model.DonorProfile, error)
		GetMany(ctx context.Context, ids []int64) ([]*model.DonorProfile, error)
		List(ctx context.Context, filter model.DonorFilter) ([]*model.DonorProfile, error)
	}

	RequestRepository interface {
		Create(ctx context.Context, request *model.DonorRequest) error
		Get(ctx context.Context, id int64) (*model.DonorRequest, error)
		List(ctx context.Context, filter model.RequestFilter) ([]*model.DonorRequest, error)
		// UpdateStatus moves the request from one status to another and fails
		// with ErrStatusChanged when it is no longer in from.
		UpdateStatus(ctx context.Context, id int64, from, to model.RequestStatus, completedAt *time.Time) error
		RecordDispatch(ctx context.Context, stats model.DispatchStats) error
	}

	ConfirmationRepository interface {
		// Upsert serializes writers on (requestID, donorID), hands the current
		// row to mutate and stores the result. created reports an insert.
		Upsert(ctx context.Context, requestID, donorID int64, mutate MutateFunc) (row *model.DonorConfirmation, created bool, err error)
		Get(ctx context.Context, requestID, donorID int64) (*model.DonorConfirmation, error)
		ListByRequest(ctx context.Context, requestID int64) ([]*model.DonorConfirmation, error)
	}

	// CheckpointStore remembers the last successful mailbox poll.
	CheckpointStore interface {
		Load(ctx context.Context, key string) (time.Time, bool, error)
		Save(ctx context.Context, key string, at time.Time) error
	}
)
