package email

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/gomail.v2"

	"github.com/jwalitptl/bloodlink-api/internal/config"
	"github.com/jwalitptl/bloodlink-api/internal/model"
	"github.com/jwalitptl/bloodlink-api/pkg/circuitbreaker"
	"github.com/jwalitptl/bloodlink-api/pkg/logger"
)

func testRequest() *model.DonorRequest {
	return &model.DonorRequest{
		ID:             12,
		PatientName:    "Patient A",
		BloodType:      "O-",
		Location:       "Beirut",
		Urgency:        model.UrgencyCritical,
		ContactNumber:  "+9611000000",
		RequesterEmail: "ward@hospital.example",
	}
}

func TestComposer_DonorRequestCarriesCorrelation(t *testing.T) {
	c := NewComposer("https://bloodlink.example/")
	donor := &model.DonorProfile{ID: 5, FirstName: "Maya", LastName: "Khoury", Email: "maya@example.com"}

	msg, err := c.DonorRequest(testRequest(), donor)

	require.NoError(t, err)
	assert.Equal(t, "maya@example.com", msg.To)
	assert.Contains(t, msg.Subject, "Request #12")
	assert.Equal(t, "12", msg.Headers[HeaderRequestID])
	assert.Equal(t, "5", msg.Headers[HeaderDonorID])
	assert.Contains(t, msg.HTMLBody, "Maya Khoury")
	assert.Contains(t, msg.HTMLBody, "https://bloodlink.example/donor/requests/12")
}

func TestComposer_RequesterConfirmationHidesIdentity(t *testing.T) {
	c := NewComposer("")
	donor := &model.DonorProfile{
		ID: 9, FirstName: "Karim", LastName: "Saleh", Email: "karim@example.com", Phone: "+9613111111",
		BloodType: "O-", Location: "Beirut", IsIdentityHidden: true,
	}

	msg, err := c.RequesterConfirmation(testRequest(), donor.RequesterDisclosure())

	require.NoError(t, err)
	assert.Equal(t, "ward@hospital.example", msg.To)
	assert.Contains(t, msg.HTMLBody, "Donor #9")
	assert.NotContains(t, msg.HTMLBody, "Karim")
	assert.NotContains(t, msg.HTMLBody, "Saleh")
	assert.NotContains(t, msg.HTMLBody, "karim@example.com")
	assert.NotContains(t, msg.HTMLBody, "+9613111111")
}

func newTestSender(send func(*gomail.Message) error) *SMTPSender {
	log := logger.NewNop()
	s := NewSMTPSender(config.SMTPConfig{FromAddress: "noreply@bloodlink.example"},
		circuitbreaker.NewCircuitBreaker(circuitbreaker.Settings{Name: "smtp", ConsecutiveFailures: 2, Timeout: time.Minute}, log), log)
	s.send = send
	return s
}

func TestSMTPSender_NotConfigured(t *testing.T) {
	log := logger.NewNop()
	s := NewSMTPSender(config.SMTPConfig{}, circuitbreaker.NewCircuitBreaker(circuitbreaker.Settings{Name: "smtp"}, log), log)

	err := s.Send(context.Background(), model.OutboundEmail{To: "a@example.com"})

	assert.ErrorIs(t, err, ErrNotConfigured)
}

func TestSMTPSender_SetsHeaders(t *testing.T) {
	var sent *gomail.Message
	s := newTestSender(func(m *gomail.Message) error {
		sent = m
		return nil
	})

	err := s.Send(context.Background(), model.OutboundEmail{
		To:       "a@example.com",
		Subject:  "Request #3",
		HTMLBody: "<p>hi</p>",
		Headers:  map[string]string{HeaderRequestID: "3"},
	})

	require.NoError(t, err)
	require.NotNil(t, sent)
	assert.Equal(t, []string{"3"}, sent.GetHeader(HeaderRequestID))
	assert.Equal(t, []string{"a@example.com"}, sent.GetHeader("To"))
}

func TestSMTPSender_BreakerOpensAfterFailures(t *testing.T) {
	calls := 0
	s := newTestSender(func(*gomail.Message) error {
		calls++
		return errors.New("connection refused")
	})
	msg := model.OutboundEmail{To: "a@example.com"}

	assert.Error(t, s.Send(context.Background(), msg))
	assert.Error(t, s.Send(context.Background(), msg))
	assert.Error(t, s.Send(context.Background(), msg))

	assert.Equal(t, 2, calls)
}
