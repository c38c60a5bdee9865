package request

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jwalitptl/bloodlink-api/internal/model"
	"github.com/jwalitptl/bloodlink-api/internal/repository"
	"github.com/jwalitptl/bloodlink-api/internal/service/matching"
	apperrors "github.com/jwalitptl/bloodlink-api/pkg/errors"
	"github.com/jwalitptl/bloodlink-api/pkg/logger"
	"github.com/jwalitptl/bloodlink-api/pkg/validator"
	"github.com/jwalitptl/bloodlink-api/pkg/worker"
)

type RequestServicer interface {
	Create(ctx context.Context, in model.CreateRequestInput) (*model.DonorRequest, error)
	Get(ctx context.Context, id int64) (*model.DonorRequest, error)
	List(ctx context.Context, filter model.RequestFilter) ([]*model.DonorRequest, error)
	UpdateStatus(ctx context.Context, id int64, in model.UpdateRequestStatusInput) (*model.DonorRequest, error)
	Matches(ctx context.Context, id int64, scope model.ContactScope) ([]model.DonorContact, error)
	SendToSelected(ctx context.Context, id int64, in model.SendToSelectedRequest) (*model.SelectedOutcome, error)
}

// References validates and names blood type and location ids.
type References interface {
	ValidateReferences(ctx context.Context, bloodTypeID, locationID int64) ([]string, error)
	BloodTypeName(ctx context.Context, id int64) (string, error)
	LocationName(ctx context.Context, id int64) (string, error)
}

type Matcher interface {
	MatchDonors(ctx context.Context, req *model.DonorRequest) ([]*model.DonorProfile, error)
}

type Dispatcher interface {
	NotifyMatchingDonors(ctx context.Context, req *model.DonorRequest) int
	SendToSelectedDonors(ctx context.Context, requestID int64, donorIDs []int64) (*model.SelectedOutcome, error)
}

type TaskSubmitter interface {
	Submit(name string, fn worker.Task) error
}

type Service struct {
	repo       repository.RequestRepository
	refs       References
	matcher    Matcher
	dispatcher Dispatcher
	tasks      TaskSubmitter
	validator  validator.Validator
	logger     *logger.Logger
	now        func() time.Time
}

func NewService(
	repo repository.RequestRepository,
	refs References,
	matcher Matcher,
	dispatcher Dispatcher,
	tasks TaskSubmitter,
	v validator.Validator,
	logger *logger.Logger,
) *Service {
	return &Service{
		repo:       repo,
		refs:       refs,
		matcher:    matcher,
		dispatcher: dispatcher,
		tasks:      tasks,
		validator:  v,
		logger:     logger,
		now:        time.Now,
	}
}

// Create validates every field, persists the request and hands dispatch to
// the task pool. Dispatch outcome never affects the result.
func (s *Service) Create(ctx context.Context, in model.CreateRequestInput) (*model.DonorRequest, error) {
	violations := s.validator.Violations(in)
	refViolations, err := s.refs.ValidateReferences(ctx, in.BloodTypeID, in.LocationID)
	if err != nil {
		return nil, apperrors.Internal(err)
	}
	violations = append(violations, refViolations...)
	if len(violations) > 0 {
		return nil, apperrors.Validation(violations)
	}

	now := s.now()
	req := &model.DonorRequest{
		PatientName:    in.PatientName,
		BloodTypeID:    in.BloodTypeID,
		LocationID:     in.LocationID,
		Urgency:        in.Urgency,
		ContactNumber:  in.ContactNumber,
		HospitalName:   in.HospitalName,
		Notes:          in.Notes,
		RequesterEmail: in.RequesterEmail,
		Status:         model.RequestStatusPending,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if err := s.repo.Create(ctx, req); err != nil {
		return nil, apperrors.Internal(fmt.Errorf("failed to create request: %w", err))
	}
	req.BloodType, _ = s.refs.BloodTypeName(ctx, req.BloodTypeID)
	req.Location, _ = s.refs.LocationName(ctx, req.LocationID)

	s.logger.Info("Donor request created", "request_id", req.ID, "blood_type", req.BloodType, "location", req.Location, "urgency", req.Urgency)

	snapshot := *req
	if err := s.tasks.Submit("dispatch", func(ctx context.Context) error {
		s.dispatcher.NotifyMatchingDonors(ctx, &snapshot)
		return nil
	}); err != nil {
		s.logger.Error(err, "Failed to schedule dispatch", "request_id", req.ID)
	}

	return req, nil
}

func (s *Service) Get(ctx context.Context, id int64) (*model.DonorRequest, error) {
	req, err := s.repo.Get(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, apperrors.NotFound("request", err)
	}
	if err != nil {
		return nil, apperrors.Internal(err)
	}
	return req, nil
}

func (s *Service) List(ctx context.Context, filter model.RequestFilter) ([]*model.DonorRequest, error) {
	if filter.Status != "" && !filter.Status.Valid() {
		return nil, apperrors.Validation([]string{fmt.Sprintf("status %q is not a request status", filter.Status)})
	}
	requests, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, apperrors.Internal(err)
	}
	return requests, nil
}

// UpdateStatus applies a lifecycle transition. Completed and Cancelled are
// terminal; entering Completed stamps completedAt.
func (s *Service) UpdateStatus(ctx context.Context, id int64, in model.UpdateRequestStatusInput) (*model.DonorRequest, error) {
	if violations := s.validator.Violations(in); len(violations) > 0 {
		return nil, apperrors.Validation(violations)
	}

	req, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !req.Status.CanTransition(in.Status) {
		return nil, apperrors.Conflict(fmt.Sprintf("cannot move request from %s to %s", req.Status, in.Status))
	}

	var completedAt *time.Time
	if in.Status == model.RequestStatusCompleted {
		now := s.now()
		completedAt = &now
	}
	if err := s.repo.UpdateStatus(ctx, id, req.Status, in.Status, completedAt); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperrors.NotFound("request", err)
		}
		if errors.Is(err, repository.ErrStatusChanged) {
			return nil, apperrors.Conflict(fmt.Sprintf("request %d changed status concurrently", id))
		}
		return nil, apperrors.Internal(err)
	}

	s.logger.Info("Request status changed", "request_id", id, "from", req.Status, "to", in.Status)
	return s.Get(ctx, id)
}

// Matches lists the currently eligible donors rendered for scope.
func (s *Service) Matches(ctx context.Context, id int64, scope model.ContactScope) ([]model.DonorContact, error) {
	req, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	donors, err := s.matcher.MatchDonors(ctx, req)
	if err != nil {
		return nil, apperrors.Internal(err)
	}
	return matching.Contacts(donors, scope), nil
}

func (s *Service) SendToSelected(ctx context.Context, id int64, in model.SendToSelectedRequest) (*model.SelectedOutcome, error) {
	if violations := s.validator.Violations(in); len(violations) > 0 {
		return nil, apperrors.Validation(violations)
	}
	return s.dispatcher.SendToSelectedDonors(ctx, id, in.DonorIDs)
}
