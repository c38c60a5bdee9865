package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/jwalitptl/bloodlink-api/internal/model"
	"github.com/jwalitptl/bloodlink-api/internal/repository"
)

const requestSelect = `
	SELECT r.id, r.patient_name, r.blood_type_id, bt.name AS blood_type,
		r.location_id, l.name AS location, r.urgency, r.contact_number,
		r.hospital_name, r.notes, r.requester_email, r.status,
		r.notified_count, r.notify_failed_count,
		r.created_at, r.updated_at, r.completed_at
	FROM donor_requests r
	JOIN blood_types bt ON bt.id = r.blood_type_id
	JOIN locations l ON l.id = r.location_id`

type requestRepository struct {
	BaseRepository
}

func NewRequestRepository(db *sqlx.DB) repository.RequestRepository {
	return &requestRepository{BaseRepository: NewBaseRepository(db)}
}

func (r *requestRepository) Create(ctx context.Context, req *model.DonorRequest) error {
	query := `
		INSERT INTO donor_requests (
			patient_name, blood_type_id, location_id, urgency, contact_number,
			hospital_name, notes, requester_email, status, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING id`

	err := r.db.QueryRowxContext(ctx, query,
		req.PatientName, req.BloodTypeID, req.LocationID, req.Urgency, req.ContactNumber,
		req.HospitalName, req.Notes, req.RequesterEmail, req.Status, req.CreatedAt, req.UpdatedAt,
	).Scan(&req.ID)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	return nil
}

func (r *requestRepository) Get(ctx context.Context, id int64) (*model.DonorRequest, error) {
	var req model.DonorRequest
	err := r.db.GetContext(ctx, &req, requestSelect+` WHERE r.id = $1`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, repository.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get request: %w", err)
	}
	return &req, nil
}

func (r *requestRepository) List(ctx context.Context, filter model.RequestFilter) ([]*model.DonorRequest, error) {
	page := filter.Pagination.Normalize()
	var (
		requests []*model.DonorRequest
		err      error
	)
	if filter.Status != "" {
		err = r.db.SelectContext(ctx, &requests,
			requestSelect+` WHERE r.status = $1 ORDER BY r.created_at DESC, r.id DESC LIMIT $2 OFFSET $3`,
			filter.Status, page.PageSize, page.Offset())
	} else {
		err = r.db.SelectContext(ctx, &requests,
			requestSelect+` ORDER BY r.created_at DESC, r.id DESC LIMIT $1 OFFSET $2`,
			page.PageSize, page.Offset())
	}
	if err != nil {
		return nil, fmt.Errorf("failed to list requests: %w", err)
	}
	return requests, nil
}

func (r *requestRepository) UpdateStatus(ctx context.Context, id int64, from, to model.RequestStatus, completedAt *time.Time) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE donor_requests SET status = $1, completed_at = COALESCE($2, completed_at), updated_at = NOW()
		 WHERE id = $3 AND status = $4`,
		to, completedAt, id, from)
	if err != nil {
		return fmt.Errorf("failed to update request status: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows: %w", err)
	}
	if n > 0 {
		return nil
	}

	var exists bool
	if err := r.db.GetContext(ctx, &exists, `SELECT EXISTS (SELECT 1 FROM donor_requests WHERE id = $1)`, id); err != nil {
		return fmt.Errorf("failed to check request: %w", err)
	}
	if !exists {
		return repository.ErrNotFound
	}
	return repository.ErrStatusChanged
}

// RecordDispatch adds one fan-out's counts to the request totals.
func (r *requestRepository) RecordDispatch(ctx context.Context, stats model.DispatchStats) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE donor_requests
		 SET notified_count = notified_count + $1,
		     notify_failed_count = notify_failed_count + $2,
		     updated_at = NOW()
		 WHERE id = $3`,
		stats.Succeeded, stats.Failed, stats.RequestID)
	if err != nil {
		return fmt.Errorf("failed to record dispatch: %w", err)
	}
	return requireAffected(res)
}

func requireAffected(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return repository.ErrNotFound
	}
	return nil
}
