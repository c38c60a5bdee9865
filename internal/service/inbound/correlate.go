package inbound

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/jwalitptl/bloodlink-api/internal/email"
	"github.com/jwalitptl/bloodlink-api/internal/model"
	"github.com/jwalitptl/bloodlink-api/internal/repository"
	apperrors "github.com/jwalitptl/bloodlink-api/pkg/errors"
)

// ErrUncorrelated marks a message that cannot be tied to exactly one request
// and donor. It is skipped, not retried harder.
var ErrUncorrelated = errors.New("message not correlated")

var subjectRequestID = regexp.MustCompile(`(?i)request\s*#?\s*(\d+)`)

type DonorLookup interface {
	GetDonor(ctx context.Context, id int64) (*model.DonorProfile, error)
	FindByEmail(ctx context.Context, email string, bloodTypeID, locationID int64) ([]*model.DonorProfile, error)
}

type Correlation struct {
	Request *model.DonorRequest
	Donor   *model.DonorProfile
}

type Correlator struct {
	requests repository.RequestRepository
	donors   DonorLookup
}

func NewCorrelator(requests repository.RequestRepository, donors DonorLookup) *Correlator {
	return &Correlator{requests: requests, donors: donors}
}

// ExtractRequestID reads the request header, falling back to "request #N"
// in the subject.
func ExtractRequestID(msg *model.InboundMessage) (int64, bool) {
	if id, ok := parseID(msg.Header(email.HeaderRequestID)); ok {
		return id, true
	}
	m := subjectRequestID.FindStringSubmatch(msg.Subject)
	if m == nil {
		return 0, false
	}
	return parseID(m[1])
}

// Correlate resolves the request and donor a reply belongs to.
func (c *Correlator) Correlate(ctx context.Context, msg *model.InboundMessage) (*Correlation, error) {
	requestID, ok := ExtractRequestID(msg)
	if !ok {
		return nil, fmt.Errorf("%w: no request id in headers or subject", ErrUncorrelated)
	}

	req, err := c.requests.Get(ctx, requestID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, fmt.Errorf("%w: request %d does not exist", ErrUncorrelated, requestID)
	}
	if err != nil {
		return nil, err
	}

	donor, err := c.resolveDonor(ctx, msg, req)
	if err != nil {
		return nil, err
	}
	return &Correlation{Request: req, Donor: donor}, nil
}

func (c *Correlator) resolveDonor(ctx context.Context, msg *model.InboundMessage, req *model.DonorRequest) (*model.DonorProfile, error) {
	if id, ok := parseID(msg.Header(email.HeaderDonorID)); ok {
		donor, err := c.donors.GetDonor(ctx, id)
		if err == nil {
			return donor, nil
		}
		if !apperrors.IsNotFound(err) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: donor %d does not exist", ErrUncorrelated, id)
	}

	candidates, err := c.donors.FindByEmail(ctx, strings.TrimSpace(msg.From), req.BloodTypeID, req.LocationID)
	if err != nil {
		return nil, err
	}
	if len(candidates) != 1 {
		return nil, fmt.Errorf("%w: %d donors match sender %s for request %d", ErrUncorrelated, len(candidates), msg.From, req.ID)
	}
	return candidates[0], nil
}

func parseID(s string) (int64, bool) {
	id, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}
