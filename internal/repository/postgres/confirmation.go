package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/jwalitptl/bloodlink-api/internal/model"
	"github.com/jwalitptl/bloodlink-api/internal/repository"
)

const (
	confirmationColumns = `id, request_id, donor_id, status, message, admin_notes, source, confirmed_at, created_at`

	// an insert that loses the race lands on the update path on retry
	maxUpsertAttempts = 3
)

type confirmationRepository struct {
	BaseRepository
}

func NewConfirmationRepository(db *sqlx.DB) repository.ConfirmationRepository {
	return &confirmationRepository{BaseRepository: NewBaseRepository(db)}
}

func (r *confirmationRepository) Upsert(ctx context.Context, requestID, donorID int64, mutate repository.MutateFunc) (*model.DonorConfirmation, bool, error) {
	var lastErr error
	for attempt := 0; attempt < maxUpsertAttempts; attempt++ {
		row, created, err := r.upsertOnce(ctx, requestID, donorID, mutate)
		if err == nil {
			return row, created, nil
		}
		if !isUniqueViolation(err) {
			return nil, false, err
		}
		lastErr = err
	}
	return nil, false, fmt.Errorf("failed to upsert confirmation after %d attempts: %w", maxUpsertAttempts, lastErr)
}

func (r *confirmationRepository) upsertOnce(ctx context.Context, requestID, donorID int64, mutate repository.MutateFunc) (*model.DonorConfirmation, bool, error) {
	var (
		row     *model.DonorConfirmation
		created bool
	)
	err := r.WithTx(ctx, func(tx *sqlx.Tx) error {
		var existing model.DonorConfirmation
		err := tx.GetContext(ctx, &existing,
			`SELECT `+confirmationColumns+` FROM donor_confirmations
			 WHERE request_id = $1 AND donor_id = $2 FOR UPDATE`,
			requestID, donorID)
		switch {
		case errors.Is(err, sql.ErrNoRows):
			row = mutate(nil)
			row.RequestID, row.DonorID = requestID, donorID
			created = true
			return tx.QueryRowxContext(ctx,
				`INSERT INTO donor_confirmations
					(request_id, donor_id, status, message, admin_notes, source, confirmed_at)
				 VALUES ($1, $2, $3, $4, $5, $6, $7)
				 RETURNING id, created_at`,
				row.RequestID, row.DonorID, row.Status, row.Message, row.AdminNotes, row.Source, row.ConfirmedAt,
			).Scan(&row.ID, &row.CreatedAt)
		case err != nil:
			return fmt.Errorf("failed to lock confirmation: %w", err)
		}

		row = mutate(&existing)
		created = false
		_, err = tx.ExecContext(ctx,
			`UPDATE donor_confirmations
			 SET status = $1, message = $2, admin_notes = $3, source = $4, confirmed_at = $5
			 WHERE id = $6`,
			row.Status, row.Message, row.AdminNotes, row.Source, row.ConfirmedAt, existing.ID)
		if err != nil {
			return fmt.Errorf("failed to update confirmation: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, false, err
	}
	return row, created, nil
}

func (r *confirmationRepository) Get(ctx context.Context, requestID, donorID int64) (*model.DonorConfirmation, error) {
	var c model.DonorConfirmation
	err := r.db.GetContext(ctx, &c,
		`SELECT `+confirmationColumns+` FROM donor_confirmations WHERE request_id = $1 AND donor_id = $2`,
		requestID, donorID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, repository.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get confirmation: %w", err)
	}
	return &c, nil
}

func (r *confirmationRepository) ListByRequest(ctx context.Context, requestID int64) ([]*model.DonorConfirmation, error) {
	var out []*model.DonorConfirmation
	err := r.db.SelectContext(ctx, &out,
		`SELECT `+confirmationColumns+` FROM donor_confirmations WHERE request_id = $1 ORDER BY confirmed_at DESC, id DESC`,
		requestID)
	if err != nil {
		return nil, fmt.Errorf("failed to list confirmations: %w", err)
	}
	return out, nil
}
