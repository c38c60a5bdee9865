package directory

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/patrickmn/go-cache"

	"github.com/jwalitptl/bloodlink-api/internal/model"
	"github.com/jwalitptl/bloodlink-api/internal/repository"
	apperrors "github.com/jwalitptl/bloodlink-api/pkg/errors"
	"github.com/jwalitptl/bloodlink-api/pkg/logger"
)

type DirectoryServicer interface {
	FindEligibleDonors(ctx context.Context, bloodTypeID, locationID int64) ([]*model.DonorProfile, error)
	FindByEmail(ctx context.Context, email string, bloodTypeID, locationID int64) ([]*model.DonorProfile, error)
	GetDonor(ctx context.Context, id int64) (*model.DonorProfile, error)
	GetDonors(ctx context.Context, ids []int64) ([]*model.DonorProfile, error)
	ValidateReferences(ctx context.Context, bloodTypeID, locationID int64) ([]string, error)
	BloodTypeName(ctx context.Context, id int64) (string, error)
	LocationName(ctx context.Context, id int64) (string, error)
}

// Service is the read-only query surface over donors and reference data.
type Service struct {
	donors repository.DonorRepository
	refs   repository.ReferenceRepository
	cache  *cache.Cache
	logger *logger.Logger
}

func NewService(donors repository.DonorRepository, refs repository.ReferenceRepository, ttl, cleanup time.Duration, logger *logger.Logger) *Service {
	if ttl <= 0 {
		ttl = 15 * time.Minute
	}
	if cleanup <= 0 {
		cleanup = time.Hour
	}
	return &Service{
		donors: donors,
		refs:   refs,
		cache:  cache.New(ttl, cleanup),
		logger: logger,
	}
}

// FindEligibleDonors returns available, healthy donors whose blood type and
// location equal the given ids exactly. Order is unspecified.
func (s *Service) FindEligibleDonors(ctx context.Context, bloodTypeID, locationID int64) ([]*model.DonorProfile, error) {
	donors, err := s.donors.List(ctx, model.DonorFilter{
		BloodTypeID:  bloodTypeID,
		LocationID:   locationID,
		EligibleOnly: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to find eligible donors: %w", err)
	}
	return donors, nil
}

// FindByEmail ignores eligibility; it is used to attribute replies.
func (s *Service) FindByEmail(ctx context.Context, email string, bloodTypeID, locationID int64) ([]*model.DonorProfile, error) {
	if email == "" {
		return nil, nil
	}
	donors, err := s.donors.List(ctx, model.DonorFilter{
		Email:       email,
		BloodTypeID: bloodTypeID,
		LocationID:  locationID,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to find donors by email: %w", err)
	}
	return donors, nil
}

func (s *Service) GetDonor(ctx context.Context, id int64) (*model.DonorProfile, error) {
	donor, err := s.donors.Get(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, apperrors.NotFound("donor", err)
	}
	if err != nil {
		return nil, apperrors.Internal(err)
	}
	return donor, nil
}

func (s *Service) GetDonors(ctx context.Context, ids []int64) ([]*model.DonorProfile, error) {
	donors, err := s.donors.GetMany(ctx, ids)
	if err != nil {
		return nil, apperrors.Internal(err)
	}
	return donors, nil
}

// ValidateReferences returns one violation per unknown id. Zero ids are
// left to struct validation.
func (s *Service) ValidateReferences(ctx context.Context, bloodTypeID, locationID int64) ([]string, error) {
	var violations []string
	if bloodTypeID > 0 {
		if _, err := s.BloodTypeName(ctx, bloodTypeID); err != nil {
			if !errors.Is(err, repository.ErrNotFound) {
				return nil, err
			}
			violations = append(violations, fmt.Sprintf("blood_type_id %d does not exist", bloodTypeID))
		}
	}
	if locationID > 0 {
		if _, err := s.LocationName(ctx, locationID); err != nil {
			if !errors.Is(err, repository.ErrNotFound) {
				return nil, err
			}
			violations = append(violations, fmt.Sprintf("location_id %d does not exist", locationID))
		}
	}
	return violations, nil
}

func (s *Service) BloodTypeName(ctx context.Context, id int64) (string, error) {
	key := fmt.Sprintf("blood_type:%d", id)
	if v, ok := s.cache.Get(key); ok {
		return v.(string), nil
	}
	bt, err := s.refs.GetBloodType(ctx, id)
	if err != nil {
		return "", err
	}
	s.cache.Set(key, bt.Name, cache.DefaultExpiration)
	return bt.Name, nil
}

func (s *Service) LocationName(ctx context.Context, id int64) (string, error) {
	key := fmt.Sprintf("location:%d", id)
	if v, ok := s.cache.Get(key); ok {
		return v.(string), nil
	}
	loc, err := s.refs.GetLocation(ctx, id)
	if err != nil {
		return "", err
	}
	s.cache.Set(key, loc.Name, cache.DefaultExpiration)
	return loc.Name, nil
}
