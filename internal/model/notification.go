package model

import (
	"strings"
	"time"
)

type ChannelName string

const (
	ChannelEmail ChannelName = "email"
	ChannelSMS   ChannelName = "sms"
)

// DispatchStats aggregates one fan-out. Counts are per channel send.
type DispatchStats struct {
	RequestID int64 `json:"request_id"`
	Donors    int   `json:"donors"`
	Attempted int   `json:"attempted"`
	Succeeded int   `json:"succeeded"`
	Failed    int   `json:"failed"`
}

// RecipientOutcome is the result of notifying one donor on one channel.
type RecipientOutcome struct {
	DonorID int64       `json:"donor_id"`
	Channel ChannelName `json:"channel,omitempty"`
	Success bool        `json:"success"`
	Reason  string      `json:"reason,omitempty"`
}

// SelectedOutcome is returned for operator-targeted sends. Counts are per
// donor: a donor succeeds when at least one channel delivered.
type SelectedOutcome struct {
	RequestID    int64              `json:"request_id"`
	SuccessCount int                `json:"success_count"`
	FailCount    int                `json:"fail_count"`
	Failures     []RecipientOutcome `json:"failures"`
}

type SendToSelectedRequest struct {
	DonorIDs []int64 `json:"donor_ids" validate:"required,min=1,dive,gt=0"`
}

// OutboundEmail is one message handed to the mail transport.
type OutboundEmail struct {
	To       string
	Subject  string
	HTMLBody string
	Headers  map[string]string
}

// InboundMessageRef identifies a message in the monitored mailbox.
type InboundMessageRef struct {
	UID uint32
}

// InboundMessage is a fetched reply with the fields the classifier needs.
type InboundMessage struct {
	Ref      InboundMessageRef
	From     string
	Subject  string
	TextBody string
	Headers  map[string]string
	Date     time.Time
}

// Header looks up a header case-insensitively.
func (m *InboundMessage) Header(name string) string {
	if v, ok := m.Headers[name]; ok {
		return v
	}
	for k, v := range m.Headers {
		if strings.EqualFold(k, name) {
			return v
		}
	}
	return ""
}
