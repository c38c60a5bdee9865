package inbound

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/jwalitptl/bloodlink-api/internal/config"
	"github.com/jwalitptl/bloodlink-api/internal/model"
	"github.com/jwalitptl/bloodlink-api/internal/repository"
	"github.com/jwalitptl/bloodlink-api/pkg/logger"
	"github.com/jwalitptl/bloodlink-api/pkg/metrics"
)

const checkpointKey = "inbox"

// A message in progress is finished even after shutdown starts, within this bound.
const defaultMessageTimeout = time.Minute

type State string

const (
	StateIdle         State = "Idle"
	StateConnecting   State = "Connecting"
	StateFetching     State = "Fetching"
	StateProcessing   State = "Processing"
	StateDisconnected State = "Disconnected"
)

// Mailbox is the inbound mail capability.
type Mailbox interface {
	Connect(ctx context.Context) error
	ListUnseenSince(ctx context.Context, since time.Time) ([]model.InboundMessageRef, error)
	Fetch(ctx context.Context, ref model.InboundMessageRef) (*model.InboundMessage, error)
	MarkSeen(ctx context.Context, ref model.InboundMessageRef) error
	Disconnect() error
}

type MessageCorrelator interface {
	Correlate(ctx context.Context, msg *model.InboundMessage) (*Correlation, error)
}

// ConfirmationRecorder is the same write path the API uses.
type ConfirmationRecorder interface {
	Record(ctx context.Context, in model.ConfirmationInput) (*model.LedgerResult, error)
}

// CycleReport summarizes one poll cycle.
type CycleReport struct {
	StartedAt    time.Time `json:"started_at"`
	FinishedAt   time.Time `json:"finished_at"`
	Skipped      bool      `json:"skipped"`
	Messages     int       `json:"messages"`
	Confirmed    int       `json:"confirmed"`
	Declined     int       `json:"declined"`
	Unclassified int       `json:"unclassified"`
	Uncorrelated int       `json:"uncorrelated"`
	Failed       int       `json:"failed"`
	Error        string    `json:"error,omitempty"`
}

type Status struct {
	Enabled   bool         `json:"enabled"`
	State     State        `json:"state"`
	LastCycle *CycleReport `json:"last_cycle,omitempty"`
}

type outcome string

const (
	outcomeConfirmed    outcome = "confirmed"
	outcomeDeclined     outcome = "declined"
	outcomeUnclassified outcome = "unclassified"
	outcomeUncorrelated outcome = "uncorrelated"
	outcomeFailed       outcome = "failed"
)

type Poller struct {
	cfg         config.InboxConfig
	mailbox     Mailbox
	correlator  MessageCorrelator
	recorder    ConfirmationRecorder
	checkpoints repository.CheckpointStore
	logger      *logger.Logger
	metrics     *metrics.Metrics
	now         func() time.Time
	msgTimeout  time.Duration

	mu        sync.RWMutex
	state     State
	lastCycle *CycleReport
}

func NewPoller(
	cfg config.InboxConfig,
	mailbox Mailbox,
	correlator MessageCorrelator,
	recorder ConfirmationRecorder,
	checkpoints repository.CheckpointStore,
	logger *logger.Logger,
	m *metrics.Metrics,
) *Poller {
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = 5 * time.Minute
	}
	if cfg.MaxMessageLength <= 0 {
		cfg.MaxMessageLength = 500
	}
	return &Poller{
		cfg:         cfg,
		mailbox:     mailbox,
		correlator:  correlator,
		recorder:    recorder,
		checkpoints: checkpoints,
		logger:      logger,
		metrics:     m,
		now:         time.Now,
		msgTimeout:  defaultMessageTimeout,
		state:       StateIdle,
	}
}

// Start runs a cycle immediately and then on every interval until ctx ends.
// It returns at once when monitoring is disabled.
func (p *Poller) Start(ctx context.Context) {
	if !p.cfg.MonitoringEnabled {
		p.logger.Info("Inbox monitoring disabled")
		return
	}
	p.logger.Info("Inbox poller started", "interval", p.cfg.PollInterval.String(), "mailbox", p.cfg.Mailbox)

	ticker := time.NewTicker(p.cfg.PollInterval)
	defer ticker.Stop()

	for {
		p.RunCycle(ctx)
		select {
		case <-ctx.Done():
			p.logger.Info("Inbox poller stopped")
			return
		case <-ticker.C:
		}
	}
}

// RunCycle polls once. Connection and listing failures end the cycle early;
// per-message failures are contained.
func (p *Poller) RunCycle(ctx context.Context) CycleReport {
	report := CycleReport{StartedAt: p.now()}
	defer func() {
		report.FinishedAt = p.now()
		p.finish(report)
	}()

	if !p.cfg.HasCredentials() {
		p.logger.Debug("Inbox credentials missing, skipping poll")
		report.Skipped = true
		p.metrics.PollCycles.WithLabelValues("skipped").Inc()
		return report
	}

	since, err := p.since(ctx, report.StartedAt)
	if err != nil {
		return p.abort(&report, err, "Failed to load poll checkpoint")
	}

	p.setState(StateConnecting)
	if err := p.mailbox.Connect(ctx); err != nil {
		p.setState(StateIdle)
		return p.abort(&report, err, "Failed to connect to mailbox")
	}
	defer func() {
		p.setState(StateDisconnected)
		if err := p.mailbox.Disconnect(); err != nil {
			p.logger.Warn("Mailbox disconnect failed", "error", err.Error())
		}
		p.setState(StateIdle)
	}()

	p.setState(StateFetching)
	refs, err := p.mailbox.ListUnseenSince(ctx, since)
	if err != nil {
		return p.abort(&report, err, "Failed to list unseen messages")
	}

	p.setState(StateProcessing)
	for _, ref := range refs {
		if ctx.Err() != nil {
			report.Error = ctx.Err().Error()
			p.metrics.PollCycles.WithLabelValues("cancelled").Inc()
			return report
		}
		report.Messages++
		msgCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), p.msgTimeout)
		result := p.processMessage(msgCtx, ref)
		cancel()
		switch result {
		case outcomeConfirmed:
			report.Confirmed++
		case outcomeDeclined:
			report.Declined++
		case outcomeUnclassified:
			report.Unclassified++
		case outcomeUncorrelated:
			report.Uncorrelated++
		case outcomeFailed:
			report.Failed++
		}
	}

	// Failed messages stay unseen and must remain inside the next window.
	if report.Failed == 0 {
		if err := p.checkpoints.Save(ctx, checkpointKey, report.StartedAt); err != nil {
			p.logger.Error(err, "Failed to save poll checkpoint")
		}
	}
	p.metrics.PollCycles.WithLabelValues("success").Inc()
	p.logger.Info("Inbox poll completed",
		"messages", report.Messages, "confirmed", report.Confirmed, "declined", report.Declined,
		"unclassified", report.Unclassified, "uncorrelated", report.Uncorrelated, "failed", report.Failed)
	return report
}

func (p *Poller) since(ctx context.Context, now time.Time) (time.Time, error) {
	at, ok, err := p.checkpoints.Load(ctx, checkpointKey)
	if err != nil {
		return time.Time{}, err
	}
	if !ok {
		return now.Add(-p.cfg.InitialLookback), nil
	}
	return at, nil
}

func (p *Poller) abort(report *CycleReport, err error, msg string) CycleReport {
	p.logger.Error(err, msg)
	report.Error = err.Error()
	p.metrics.PollCycles.WithLabelValues("error").Inc()
	return *report
}

func (p *Poller) processMessage(ctx context.Context, ref model.InboundMessageRef) (result outcome) {
	defer func() {
		if r := recover(); r != nil {
			p.logger.Error(fmt.Errorf("panic: %v", r), "Recovered panic processing message", "uid", ref.UID)
			result = outcomeFailed
		}
		p.metrics.InboxMessages.WithLabelValues(string(result)).Inc()
	}()

	msg, err := p.mailbox.Fetch(ctx, ref)
	if err != nil {
		p.logger.Error(err, "Failed to fetch message", "uid", ref.UID)
		return outcomeFailed
	}

	corr, err := p.correlator.Correlate(ctx, msg)
	if err != nil {
		if errors.Is(err, ErrUncorrelated) {
			p.logger.Warn("Skipping uncorrelated reply", "uid", ref.UID, "from", msg.From, "subject", msg.Subject, "reason", err.Error())
			return outcomeUncorrelated
		}
		p.logger.Error(err, "Failed to correlate message", "uid", ref.UID)
		return outcomeFailed
	}

	switch ClassifyIntent(msg.TextBody) {
	case IntentDecline:
		p.logger.Info("Donor declined by email", "uid", ref.UID, "request_id", corr.Request.ID, "donor_id", corr.Donor.ID)
		p.markSeen(ctx, ref)
		return outcomeDeclined
	case IntentUnclassified:
		p.logger.Warn("Could not classify reply", "uid", ref.UID, "request_id", corr.Request.ID, "donor_id", corr.Donor.ID)
		return outcomeUnclassified
	}

	text := Truncate(ReplyText(msg.TextBody), p.cfg.MaxMessageLength)
	_, err = p.recorder.Record(ctx, model.ConfirmationInput{
		RequestID: corr.Request.ID,
		DonorID:   corr.Donor.ID,
		Status:    model.ConfirmationStatusConfirmed,
		Message:   &text,
		Source:    model.SourceEmail,
	})
	if err != nil {
		p.logger.Error(err, "Failed to record emailed confirmation", "uid", ref.UID, "request_id", corr.Request.ID, "donor_id", corr.Donor.ID)
		return outcomeFailed
	}

	p.markSeen(ctx, ref)
	return outcomeConfirmed
}

func (p *Poller) markSeen(ctx context.Context, ref model.InboundMessageRef) {
	if err := p.mailbox.MarkSeen(ctx, ref); err != nil {
		p.logger.Warn("Failed to mark message seen", "uid", ref.UID, "error", err.Error())
	}
}

func (p *Poller) setState(s State) {
	p.mu.Lock()
	p.state = s
	p.mu.Unlock()
}

func (p *Poller) finish(report CycleReport) {
	p.mu.Lock()
	p.lastCycle = &report
	p.mu.Unlock()
	p.metrics.PollCycleDuration.Observe(report.FinishedAt.Sub(report.StartedAt).Seconds())
}

// Status is safe to call from any goroutine.
func (p *Poller) Status() Status {
	p.mu.RLock()
	defer p.mu.RUnlock()
	st := Status{Enabled: p.cfg.MonitoringEnabled, State: p.state}
	if p.lastCycle != nil {
		copied := *p.lastCycle
		st.LastCycle = &copied
	}
	return st
}
