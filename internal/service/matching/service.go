package matching

import (
	"context"

	"github.com/jwalitptl/bloodlink-api/internal/model"
	"github.com/jwalitptl/bloodlink-api/pkg/logger"
)

// DonorFinder is the directory query the engine depends on.
type DonorFinder interface {
	FindEligibleDonors(ctx context.Context, bloodTypeID, locationID int64) ([]*model.DonorProfile, error)
}

type Service struct {
	finder DonorFinder
	logger *logger.Logger
}

func NewService(finder DonorFinder, logger *logger.Logger) *Service {
	return &Service{finder: finder, logger: logger}
}

// MatchDonors returns the eligible donors for the request's blood type and
// location. An empty result is a valid outcome, not an error.
func (s *Service) MatchDonors(ctx context.Context, req *model.DonorRequest) ([]*model.DonorProfile, error) {
	donors, err := s.finder.FindEligibleDonors(ctx, req.BloodTypeID, req.LocationID)
	if err != nil {
		return nil, err
	}
	if len(donors) == 0 {
		s.logger.Info("No eligible donors for request",
			"request_id", req.ID, "blood_type_id", req.BloodTypeID, "location_id", req.LocationID)
	}
	return donors, nil
}

// Contacts renders matched donors with identity hiding applied. Only
// ScopeAdmin sees the contact channels of hidden donors.
func Contacts(donors []*model.DonorProfile, scope model.ContactScope) []model.DonorContact {
	out := make([]model.DonorContact, 0, len(donors))
	for _, d := range donors {
		out = append(out, d.Contact(scope))
	}
	return out
}
