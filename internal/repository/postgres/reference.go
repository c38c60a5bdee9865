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

type referenceRepository struct {
	BaseRepository
}

func NewReferenceRepository(db *sqlx.DB) repository.ReferenceRepository {
	return &referenceRepository{BaseRepository: NewBaseRepository(db)}
}

func (r *referenceRepository) GetBloodType(ctx context.Context, id int64) (*model.BloodType, error) {
	var bt model.BloodType
	err := r.db.GetContext(ctx, &bt, `SELECT id, name FROM blood_types WHERE id = $1`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, repository.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get blood type: %w", err)
	}
	return &bt, nil
}

func (r *referenceRepository) GetLocation(ctx context.Context, id int64) (*model.Location, error) {
	var loc model.Location
	err := r.db.GetContext(ctx, &loc, `SELECT id, name FROM locations WHERE id = $1`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, repository.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get location: %w", err)
	}
	return &loc, nil
}

func (r *referenceRepository) ListBloodTypes(ctx context.Context) ([]*model.BloodType, error) {
	var out []*model.BloodType
	if err := r.db.SelectContext(ctx, &out, `SELECT id, name FROM blood_types ORDER BY id`); err != nil {
		return nil, fmt.Errorf("failed to list blood types: %w", err)
	}
	return out, nil
}

func (r *referenceRepository) ListLocations(ctx context.Context) ([]*model.Location, error) {
	var out []*model.Location
	if err := r.db.SelectContext(ctx, &out, `SELECT id, name FROM locations ORDER BY id`); err != nil {
		return nil, fmt.Errorf("failed to list locations: %w", err)
	}
	return out, nil
}
