package requester

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/jwalitptl/bloodlink-api/internal/email"
	"github.com/jwalitptl/bloodlink-api/internal/model"
	"github.com/jwalitptl/bloodlink-api/pkg/logger"
	"github.com/jwalitptl/bloodlink-api/pkg/metrics"
)

type mockSender struct {
	mock.Mock
}

func (m *mockSender) Send(ctx context.Context, msg model.OutboundEmail) error {
	return m.Called(ctx, msg).Error(0)
}

func hiddenDonor() *model.DonorProfile {
	return &model.DonorProfile{
		ID: 31, FirstName: "Nour", LastName: "Hajj", Email: "nour@example.com", Phone: "+9617000000",
		BloodType: "AB-", Location: "Tripoli", IsIdentityHidden: true,
	}
}

func TestNotifyRequester_HidesIdentity(t *testing.T) {
	sender := new(mockSender)
	sender.On("Send", mock.Anything, mock.MatchedBy(func(msg model.OutboundEmail) bool {
		return msg.To == "er@hospital.example" &&
			containsAll(msg.HTMLBody, "Donor #31", "AB-") &&
			!containsAny(msg.HTMLBody, "Nour", "Hajj", "nour@example.com")
	})).Return(nil).Once()
	n := NewNotifier(sender, email.NewComposer(""), logger.NewNop(), metrics.NewNop())

	ok := n.NotifyRequesterOfConfirmation(context.Background(),
		&model.DonorRequest{ID: 3, RequesterEmail: "er@hospital.example"}, hiddenDonor())

	assert.True(t, ok)
	sender.AssertExpectations(t)
}

func TestNotifyRequester_DisclosesVisibleDonor(t *testing.T) {
	sender := new(mockSender)
	var sent model.OutboundEmail
	sender.On("Send", mock.Anything, mock.Anything).Run(func(args mock.Arguments) {
		sent = args.Get(1).(model.OutboundEmail)
	}).Return(nil)
	n := NewNotifier(sender, email.NewComposer(""), logger.NewNop(), metrics.NewNop())
	donor := hiddenDonor()
	donor.IsIdentityHidden = false

	ok := n.NotifyRequesterOfConfirmation(context.Background(),
		&model.DonorRequest{ID: 3, RequesterEmail: "er@hospital.example"}, donor)

	assert.True(t, ok)
	assert.Contains(t, sent.HTMLBody, "Nour Hajj")
	assert.Contains(t, sent.HTMLBody, "nour@example.com")
}

func TestNotifyRequester_SendFailureReturnsFalse(t *testing.T) {
	sender := new(mockSender)
	sender.On("Send", mock.Anything, mock.Anything).Return(errors.New("smtp timeout"))
	n := NewNotifier(sender, email.NewComposer(""), logger.NewNop(), metrics.NewNop())

	ok := n.NotifyRequesterOfConfirmation(context.Background(),
		&model.DonorRequest{ID: 3, RequesterEmail: "er@hospital.example"}, hiddenDonor())

	assert.False(t, ok)
}

func TestNotifyRequester_NoRequesterEmail(t *testing.T) {
	sender := new(mockSender)
	n := NewNotifier(sender, email.NewComposer(""), logger.NewNop(), metrics.NewNop())

	ok := n.NotifyRequesterOfConfirmation(context.Background(), &model.DonorRequest{ID: 3}, hiddenDonor())

	assert.False(t, ok)
	sender.AssertNotCalled(t, "Send", mock.Anything, mock.Anything)
}

func containsAll(s string, subs ...string) bool {
	for _, sub := range subs {
		if !strings.Contains(s, sub) {
			return false
		}
	}
	return true
}

func containsAny(s string, subs ...string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}
