package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/jwalitptl/bloodlink-api/internal/model"
	"github.com/jwalitptl/bloodlink-api/internal/repository"
)

const donorSelect = `
	SELECT dp.id, dp.user_id, u.first_name, u.last_name, u.email, u.phone,
		dp.blood_type_id, bt.name AS blood_type, dp.location_id, l.name AS location,
		dp.is_available, dp.is_healthy_for_donation, dp.is_identity_hidden,
		dp.last_donation_date, dp.created_at, dp.updated_at
	FROM donor_profiles dp
	JOIN users u ON u.id = dp.user_id
	JOIN blood_types bt ON bt.id = dp.blood_type_id
	JOIN locations l ON l.id = dp.location_id`

type donorRepository struct {
	BaseRepository
}

func NewDonorRepository(db *sqlx.DB) repository.DonorRepository {
	return &donorRepository{BaseRepository: NewBaseRepository(db)}
}

func (r *donorRepository) Get(ctx context.Context, id int64) (*model.DonorProfile, error) {
	var donor model.DonorProfile
	err := r.db.GetContext(ctx, &donor, donorSelect+` WHERE dp.id = $1`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, repository.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get donor: %w", err)
	}
	return &donor, nil
}

// GetMany returns the donors that exist among ids, in id order. Missing ids
// are silently absent.
func (r *donorRepository) GetMany(ctx context.Context, ids []int64) ([]*model.DonorProfile, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var donors []*model.DonorProfile
	err := r.db.SelectContext(ctx, &donors, donorSelect+` WHERE dp.id = ANY($1) ORDER BY dp.id`, pq.Array(ids))
	if err != nil {
		return nil, fmt.Errorf("failed to get donors: %w", err)
	}
	return donors, nil
}

func (r *donorRepository) List(ctx context.Context, filter model.DonorFilter) ([]*model.DonorProfile, error) {
	var (
		conds []string
		args  []interface{}
	)
	if filter.BloodTypeID != 0 {
		args = append(args, filter.BloodTypeID)
		conds = append(conds, fmt.Sprintf("dp.blood_type_id = $%d", len(args)))
	}
	if filter.LocationID != 0 {
		args = append(args, filter.LocationID)
		conds = append(conds, fmt.Sprintf("dp.location_id = $%d", len(args)))
	}
	if filter.Email != "" {
		args = append(args, filter.Email)
		conds = append(conds, fmt.Sprintf("LOWER(u.email) = LOWER($%d)", len(args)))
	}
	if filter.EligibleOnly {
		conds = append(conds, "dp.is_available", "dp.is_healthy_for_donation")
	}

	query := donorSelect
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}
	query += " ORDER BY dp.id"

	var donors []*model.DonorProfile
	if err := r.db.SelectContext(ctx, &donors, query, args...); err != nil {
		return nil, fmt.Errorf("failed to list donors: %w", err)
	}
	return donors, nil
}
