package confirmation

import (
	"context"
	"errors"
	"time"

	"github.com/jwalitptl/bloodlink-api/internal/model"
	"github.com/jwalitptl/bloodlink-api/internal/repository"
	apperrors "github.com/jwalitptl/bloodlink-api/pkg/errors"
	"github.com/jwalitptl/bloodlink-api/pkg/logger"
	"github.com/jwalitptl/bloodlink-api/pkg/messaging"
	"github.com/jwalitptl/bloodlink-api/pkg/worker"
)

// EventConfirmationRecorded is published after every successful ledger write.
const EventConfirmationRecorded = "confirmation.recorded"

var errNotDelivered = errors.New("requester notification not delivered")

type ConfirmationServicer interface {
	Record(ctx context.Context, in model.ConfirmationInput) (*model.LedgerResult, error)
	List(ctx context.Context, requestID int64) ([]model.ConfirmationView, error)
}

type Recorder interface {
	RecordConfirmation(ctx context.Context, in model.ConfirmationInput) (*model.LedgerResult, error)
}

type RequesterNotifier interface {
	NotifyRequesterOfConfirmation(ctx context.Context, req *model.DonorRequest, donor *model.DonorProfile) bool
}

type TaskSubmitter interface {
	Submit(name string, fn worker.Task) error
}

type Config struct {
	NotifyRetries int
	RetryDelay    time.Duration
}

// Service is the one path every confirmation takes, whether it comes from an
// administrator, the donor, or an email reply.
type Service struct {
	requests      repository.RequestRepository
	donors        repository.DonorRepository
	confirmations repository.ConfirmationRepository
	ledger        Recorder
	notifier      RequesterNotifier
	tasks         TaskSubmitter
	broker        messaging.Broker
	config        Config
	logger        *logger.Logger
}

func NewService(
	requests repository.RequestRepository,
	donors repository.DonorRepository,
	confirmations repository.ConfirmationRepository,
	ledger Recorder,
	notifier RequesterNotifier,
	tasks TaskSubmitter,
	broker messaging.Broker,
	config Config,
	logger *logger.Logger,
) *Service {
	if config.NotifyRetries <= 0 {
		config.NotifyRetries = 1
	}
	if broker == nil {
		broker = messaging.NopBroker{}
	}
	return &Service{
		requests:      requests,
		donors:        donors,
		confirmations: confirmations,
		ledger:        ledger,
		notifier:      notifier,
		tasks:         tasks,
		broker:        broker,
		config:        config,
		logger:        logger,
	}
}

// Record checks that both parties exist, writes the ledger and, on a
// transition into Confirmed, schedules the requester notice.
func (s *Service) Record(ctx context.Context, in model.ConfirmationInput) (*model.LedgerResult, error) {
	req, err := s.requests.Get(ctx, in.RequestID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, apperrors.NotFound("request", err)
	}
	if err != nil {
		return nil, apperrors.Internal(err)
	}

	donor, err := s.donors.Get(ctx, in.DonorID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, apperrors.NotFound("donor", err)
	}
	if err != nil {
		return nil, apperrors.Internal(err)
	}

	result, err := s.ledger.RecordConfirmation(ctx, in)
	if err != nil {
		return nil, err
	}

	s.logger.Info("Confirmation recorded",
		"request_id", in.RequestID, "donor_id", in.DonorID, "status", result.Confirmation.Status,
		"source", result.Confirmation.Source, "new", result.IsNewRecord, "transitioned", result.TransitionedToConfirmed)

	if result.TransitionedToConfirmed {
		s.scheduleRequesterNotice(req, donor)
	}

	if err := s.broker.Publish(ctx, EventConfirmationRecorded, messaging.Message{
		Type:    EventConfirmationRecorded,
		Payload: result,
	}); err != nil {
		s.logger.Warn("Failed to publish confirmation event", "request_id", in.RequestID, "donor_id", in.DonorID, "error", err.Error())
	}

	return result, nil
}

func (s *Service) scheduleRequesterNotice(req *model.DonorRequest, donor *model.DonorProfile) {
	err := s.tasks.Submit("requester_notify", func(ctx context.Context) error {
		return worker.Retry(ctx, s.config.NotifyRetries, s.config.RetryDelay, func() error {
			if !s.notifier.NotifyRequesterOfConfirmation(ctx, req, donor) {
				return errNotDelivered
			}
			return nil
		})
	})
	if err != nil {
		s.logger.Error(err, "Failed to schedule requester notice", "request_id", req.ID, "donor_id", donor.ID)
	}
}

// List returns the request's confirmations, newest first, with hidden donors
// shown under their pseudonym.
func (s *Service) List(ctx context.Context, requestID int64) ([]model.ConfirmationView, error) {
	if _, err := s.requests.Get(ctx, requestID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperrors.NotFound("request", err)
		}
		return nil, apperrors.Internal(err)
	}

	rows, err := s.confirmations.ListByRequest(ctx, requestID)
	if err != nil {
		return nil, apperrors.Internal(err)
	}

	ids := make([]int64, 0, len(rows))
	for _, r := range rows {
		ids = append(ids, r.DonorID)
	}
	donors, err := s.donors.GetMany(ctx, ids)
	if err != nil {
		return nil, apperrors.Internal(err)
	}
	byID := make(map[int64]*model.DonorProfile, len(donors))
	for _, d := range donors {
		byID[d.ID] = d
	}

	views := make([]model.ConfirmationView, 0, len(rows))
	for _, r := range rows {
		donor, ok := byID[r.DonorID]
		if !ok {
			donor = &model.DonorProfile{ID: r.DonorID, IsIdentityHidden: true}
		}
		views = append(views, model.ConfirmationView{
			ID:          r.ID,
			RequestID:   r.RequestID,
			DonorID:     r.DonorID,
			DonorName:   donor.DisplayName(),
			BloodType:   donor.BloodType,
			Location:    donor.Location,
			Status:      r.Status,
			Message:     r.Message,
			AdminNotes:  r.AdminNotes,
			Source:      r.Source,
			ConfirmedAt: r.ConfirmedAt,
		})
	}
	return views, nil
}
