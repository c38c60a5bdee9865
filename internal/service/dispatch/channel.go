package dispatch

import (
	"context"
	"fmt"

	"github.com/jwalitptl/bloodlink-api/internal/email"
	"github.com/jwalitptl/bloodlink-api/internal/model"
	"github.com/jwalitptl/bloodlink-api/pkg/logger"
)

// Channel is one way of reaching a donor. Each channel fails independently.
type Channel interface {
	Name() model.ChannelName
	// Reachable reports whether the donor has a contact for this channel.
	Reachable(donor *model.DonorProfile) bool
	Send(ctx context.Context, req *model.DonorRequest, donor *model.DonorProfile) error
}

type EmailChannel struct {
	sender   email.Sender
	composer *email.Composer
}

func NewEmailChannel(sender email.Sender, composer *email.Composer) *EmailChannel {
	return &EmailChannel{sender: sender, composer: composer}
}

func (c *EmailChannel) Name() model.ChannelName { return model.ChannelEmail }

func (c *EmailChannel) Reachable(donor *model.DonorProfile) bool { return donor.Email != "" }

func (c *EmailChannel) Send(ctx context.Context, req *model.DonorRequest, donor *model.DonorProfile) error {
	msg, err := c.composer.DonorRequest(req, donor)
	if err != nil {
		return err
	}
	return c.sender.Send(ctx, msg)
}

// SMSChannel only logs; there is no SMS gateway.
type SMSChannel struct {
	logger *logger.Logger
}

func NewSMSChannel(logger *logger.Logger) *SMSChannel {
	return &SMSChannel{logger: logger}
}

func (c *SMSChannel) Name() model.ChannelName { return model.ChannelSMS }

func (c *SMSChannel) Reachable(donor *model.DonorProfile) bool { return donor.Phone != "" }

func (c *SMSChannel) Send(_ context.Context, req *model.DonorRequest, donor *model.DonorProfile) error {
	c.logger.Info("SMS notification (stub)",
		"request_id", req.ID, "donor_id", donor.ID, "blood_type", req.BloodType, "urgency", req.Urgency)
	return nil
}

// BuildChannels resolves configured channel names in order.
func BuildChannels(names []string, sender email.Sender, composer *email.Composer, log *logger.Logger) ([]Channel, error) {
	var channels []Channel
	for _, name := range names {
		switch model.ChannelName(name) {
		case model.ChannelEmail:
			channels = append(channels, NewEmailChannel(sender, composer))
		case model.ChannelSMS:
			channels = append(channels, NewSMSChannel(log))
		default:
			return nil, fmt.Errorf("unknown dispatch channel %q", name)
		}
	}
	return channels, nil
}
