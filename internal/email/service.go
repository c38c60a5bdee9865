package email

import (
	"context"
	"errors"

	"github.com/jwalitptl/bloodlink-api/internal/model"
)

// Headers stamped on donor notifications so replies can be correlated.
const (
	HeaderRequestID = "X-Blood-Request-Id"
	HeaderDonorID   = "X-Blood-Donor-Id"
)

var ErrNotConfigured = errors.New("smtp transport not configured")

// Sender delivers one message. Implementations return an error on any
// transport failure; callers decide whether it counts as a failed send.
type Sender interface {
	Send(ctx context.Context, msg model.OutboundEmail) error
}
