package requester

import (
	"context"

	"github.com/jwalitptl/bloodlink-api/internal/email"
	"github.com/jwalitptl/bloodlink-api/internal/model"
	"github.com/jwalitptl/bloodlink-api/pkg/logger"
	"github.com/jwalitptl/bloodlink-api/pkg/metrics"
)

// Notifier tells the requester that a donor confirmed.
type Notifier struct {
	sender   email.Sender
	composer *email.Composer
	logger   *logger.Logger
	metrics  *metrics.Metrics
}

func NewNotifier(sender email.Sender, composer *email.Composer, logger *logger.Logger, m *metrics.Metrics) *Notifier {
	return &Notifier{sender: sender, composer: composer, logger: logger, metrics: m}
}

// NotifyRequesterOfConfirmation sends one email with the donor's disclosure.
// Hidden donors appear only under their pseudonym. Failures are logged and
// reported as false.
func (n *Notifier) NotifyRequesterOfConfirmation(ctx context.Context, req *model.DonorRequest, donor *model.DonorProfile) bool {
	if req.RequesterEmail == "" {
		n.logger.Warn("Request has no requester email, skipping confirmation notice",
			"request_id", req.ID, "donor_id", donor.ID)
		n.metrics.RequesterNotifications.WithLabelValues("skipped").Inc()
		return false
	}

	msg, err := n.composer.RequesterConfirmation(req, donor.RequesterDisclosure())
	if err != nil {
		n.logger.Error(err, "Failed to compose requester notice", "request_id", req.ID, "donor_id", donor.ID)
		n.metrics.RequesterNotifications.WithLabelValues("failed").Inc()
		return false
	}

	if err := n.sender.Send(ctx, msg); err != nil {
		n.logger.Error(err, "Failed to notify requester", "request_id", req.ID, "donor_id", donor.ID)
		n.metrics.RequesterNotifications.WithLabelValues("failed").Inc()
		return false
	}

	n.logger.Info("Requester notified of confirmation", "request_id", req.ID, "donor_id", donor.ID)
	n.metrics.RequesterNotifications.WithLabelValues("sent").Inc()
	return true
}
