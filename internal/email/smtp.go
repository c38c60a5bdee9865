package email

import (
	"context"
	"fmt"
	"time"

	"gopkg.in/gomail.v2"

	"github.com/jwalitptl/bloodlink-api/internal/config"
	"github.com/jwalitptl/bloodlink-api/internal/model"
	"github.com/jwalitptl/bloodlink-api/pkg/circuitbreaker"
	"github.com/jwalitptl/bloodlink-api/pkg/logger"
)

type SMTPSender struct {
	fromAddress string
	fromName    string
	timeout     time.Duration
	breaker     *circuitbreaker.CircuitBreaker
	send        func(*gomail.Message) error
	logger      *logger.Logger
}

func NewSMTPSender(cfg config.SMTPConfig, breaker *circuitbreaker.CircuitBreaker, log *logger.Logger) *SMTPSender {
	s := &SMTPSender{
		fromAddress: cfg.FromAddress,
		fromName:    cfg.FromName,
		timeout:     cfg.SendTimeout,
		breaker:     breaker,
		logger:      log,
	}
	if cfg.Host != "" && cfg.FromAddress != "" {
		dialer := gomail.NewDialer(cfg.Host, cfg.Port, cfg.Username, cfg.Password)
		s.send = func(m *gomail.Message) error { return dialer.DialAndSend(m) }
	}
	return s
}

func (s *SMTPSender) Send(ctx context.Context, msg model.OutboundEmail) error {
	if s.send == nil {
		return ErrNotConfigured
	}
	if msg.To == "" {
		return fmt.Errorf("empty recipient")
	}

	m := gomail.NewMessage()
	m.SetAddressHeader("From", s.fromAddress, s.fromName)
	m.SetHeader("To", msg.To)
	m.SetHeader("Subject", msg.Subject)
	for k, v := range msg.Headers {
		m.SetHeader(k, v)
	}
	m.SetBody("text/html", msg.HTMLBody)

	return s.breaker.Execute(func() error {
		return s.deliver(ctx, m)
	})
}

// deliver stops waiting when ctx ends; the dial itself cannot be aborted.
func (s *SMTPSender) deliver(ctx context.Context, m *gomail.Message) error {
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	done := make(chan error, 1)
	go func() { done <- s.send(m) }()

	select {
	case err := <-done:
		if err != nil {
			return fmt.Errorf("smtp send failed: %w", err)
		}
		return nil
	case <-ctx.Done():
		return fmt.Errorf("smtp send abandoned: %w", ctx.Err())
	}
}
