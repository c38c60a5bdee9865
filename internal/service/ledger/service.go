package ledger

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jwalitptl/bloodlink-api/internal/model"
	"github.com/jwalitptl/bloodlink-api/internal/repository"
	apperrors "github.com/jwalitptl/bloodlink-api/pkg/errors"
	"github.com/jwalitptl/bloodlink-api/pkg/metrics"
)

// Service is the idempotent (request, donor) confirmation store.
type Service struct {
	repo    repository.ConfirmationRepository
	metrics *metrics.Metrics
	now     func() time.Time
}

func NewService(repo repository.ConfirmationRepository, m *metrics.Metrics) *Service {
	return &Service{repo: repo, metrics: m, now: time.Now}
}

// RecordConfirmation upserts the row for (RequestID, DonorID). Status
// defaults to Confirmed. A blank AdminNotes never replaces a stored note.
// TransitionedToConfirmed is true only when the stored status moves into
// Confirmed with this write.
func (s *Service) RecordConfirmation(ctx context.Context, in model.ConfirmationInput) (*model.LedgerResult, error) {
	status := in.Status
	if status == "" {
		status = model.ConfirmationStatusConfirmed
	}
	if !status.Valid() {
		return nil, apperrors.Validation([]string{fmt.Sprintf("status %q is not one of [Pending Confirmed Declined]", status)})
	}
	source := in.Source
	if source == "" {
		source = model.SourceAdmin
	}
	notes := in.AdminNotes
	if notes != nil && strings.TrimSpace(*notes) == "" {
		notes = nil
	}

	var transitioned bool
	row, created, err := s.repo.Upsert(ctx, in.RequestID, in.DonorID, func(existing *model.DonorConfirmation) *model.DonorConfirmation {
		now := s.now()
		if existing == nil {
			transitioned = status == model.ConfirmationStatusConfirmed
			return &model.DonorConfirmation{
				Status:      status,
				Message:     in.Message,
				AdminNotes:  notes,
				Source:      source,
				ConfirmedAt: now,
			}
		}

		wasConfirmed := existing.Status == model.ConfirmationStatusConfirmed
		next := *existing
		next.Status = status
		next.Message = in.Message
		next.Source = source
		next.ConfirmedAt = now
		if notes != nil {
			next.AdminNotes = notes
		}
		transitioned = !wasConfirmed && status == model.ConfirmationStatusConfirmed
		return &next
	})
	if err != nil {
		s.metrics.LedgerWrites.WithLabelValues("error").Inc()
		return nil, apperrors.Internal(err)
	}

	outcome := "updated"
	if created {
		outcome = "created"
	}
	s.metrics.LedgerWrites.WithLabelValues(outcome).Inc()

	return &model.LedgerResult{
		Confirmation:            row,
		IsNewRecord:             created,
		TransitionedToConfirmed: transitioned,
	}, nil
}
