package dispatch

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/jwalitptl/bloodlink-api/internal/model"
	"github.com/jwalitptl/bloodlink-api/internal/repository"
	apperrors "github.com/jwalitptl/bloodlink-api/pkg/errors"
	"github.com/jwalitptl/bloodlink-api/pkg/logger"
	"github.com/jwalitptl/bloodlink-api/pkg/metrics"
)

type Matcher interface {
	MatchDonors(ctx context.Context, req *model.DonorRequest) ([]*model.DonorProfile, error)
}

type Service struct {
	matcher     Matcher
	donors      repository.DonorRepository
	requests    repository.RequestRepository
	channels    []Channel
	concurrency int
	logger      *logger.Logger
	metrics     *metrics.Metrics
}

func NewService(
	matcher Matcher,
	donors repository.DonorRepository,
	requests repository.RequestRepository,
	channels []Channel,
	concurrency int,
	logger *logger.Logger,
	m *metrics.Metrics,
) *Service {
	if concurrency <= 0 {
		concurrency = 8
	}
	return &Service{
		matcher:     matcher,
		donors:      donors,
		requests:    requests,
		channels:    channels,
		concurrency: concurrency,
		logger:      logger,
		metrics:     m,
	}
}

// NotifyMatchingDonors sends the request to every matched donor on every
// reachable channel and returns the number of successful sends. Failures are
// logged and counted, never returned.
func (s *Service) NotifyMatchingDonors(ctx context.Context, req *model.DonorRequest) int {
	donors, err := s.matcher.MatchDonors(ctx, req)
	if err != nil {
		s.logger.Error(err, "Failed to match donors", "request_id", req.ID)
		return 0
	}
	if len(donors) == 0 {
		return 0
	}

	outcomes := s.fanOut(ctx, req, donors)
	stats := model.DispatchStats{RequestID: req.ID, Donors: len(donors), Attempted: len(outcomes)}
	for _, o := range outcomes {
		if o.Success {
			stats.Succeeded++
		} else {
			stats.Failed++
		}
	}
	s.record(ctx, stats)

	s.logger.Info("Dispatched request to matched donors",
		"request_id", req.ID, "donors", stats.Donors, "succeeded", stats.Succeeded, "failed", stats.Failed)
	return stats.Succeeded
}

// SendToSelectedDonors notifies an explicit subset. Counts are per donor: a
// donor succeeds when any channel delivered.
func (s *Service) SendToSelectedDonors(ctx context.Context, requestID int64, donorIDs []int64) (*model.SelectedOutcome, error) {
	req, err := s.requests.Get(ctx, requestID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, apperrors.NotFound("request", err)
	}
	if err != nil {
		return nil, apperrors.Internal(err)
	}

	ids := uniqueIDs(donorIDs)
	donors, err := s.donors.GetMany(ctx, ids)
	if err != nil {
		return nil, apperrors.Internal(err)
	}

	result := &model.SelectedOutcome{RequestID: requestID, Failures: []model.RecipientOutcome{}}
	found := make(map[int64]bool, len(donors))
	for _, d := range donors {
		found[d.ID] = true
	}
	for _, id := range ids {
		if !found[id] {
			result.FailCount++
			result.Failures = append(result.Failures, model.RecipientOutcome{DonorID: id, Reason: "donor not found"})
		}
	}

	outcomes := s.fanOut(ctx, req, donors)
	byDonor := make(map[int64][]model.RecipientOutcome, len(donors))
	stats := model.DispatchStats{RequestID: req.ID, Donors: len(donors), Attempted: len(outcomes)}
	for _, o := range outcomes {
		byDonor[o.DonorID] = append(byDonor[o.DonorID], o)
		if o.Success {
			stats.Succeeded++
		} else {
			stats.Failed++
		}
	}

	for _, d := range donors {
		attempts := byDonor[d.ID]
		if len(attempts) == 0 {
			result.FailCount++
			result.Failures = append(result.Failures, model.RecipientOutcome{DonorID: d.ID, Reason: "no contact channel"})
			continue
		}
		delivered := false
		for _, o := range attempts {
			if o.Success {
				delivered = true
				break
			}
		}
		if delivered {
			result.SuccessCount++
			continue
		}
		result.FailCount++
		result.Failures = append(result.Failures, attempts...)
	}

	if stats.Attempted > 0 {
		s.record(ctx, stats)
	}
	return result, nil
}

type sendJob struct {
	donor   *model.DonorProfile
	channel Channel
}

func (s *Service) fanOut(ctx context.Context, req *model.DonorRequest, donors []*model.DonorProfile) []model.RecipientOutcome {
	var jobs []sendJob
	for _, d := range donors {
		for _, ch := range s.channels {
			if ch.Reachable(d) {
				jobs = append(jobs, sendJob{donor: d, channel: ch})
			}
		}
	}

	outcomes := make([]model.RecipientOutcome, len(jobs))
	var g errgroup.Group
	g.SetLimit(s.concurrency)
	for i, j := range jobs {
		i, j := i, j
		g.Go(func() error {
			outcomes[i] = s.send(ctx, req, j)
			return nil
		})
	}
	g.Wait()

	return outcomes
}

func (s *Service) send(ctx context.Context, req *model.DonorRequest, j sendJob) (out model.RecipientOutcome) {
	out = model.RecipientOutcome{DonorID: j.donor.ID, Channel: j.channel.Name()}
	defer func() {
		if r := recover(); r != nil {
			out.Success = false
			out.Reason = fmt.Sprintf("panic: %v", r)
			s.logger.Warn("Channel send panicked", "request_id", req.ID, "donor_id", j.donor.ID, "channel", j.channel.Name(), "panic", r)
			s.metrics.DispatchAttempts.WithLabelValues(string(j.channel.Name()), "failed").Inc()
		}
	}()

	if err := j.channel.Send(ctx, req, j.donor); err != nil {
		out.Reason = err.Error()
		s.logger.Warn("Channel send failed",
			"request_id", req.ID, "donor_id", j.donor.ID, "channel", j.channel.Name(), "error", err.Error())
		s.metrics.DispatchAttempts.WithLabelValues(string(j.channel.Name()), "failed").Inc()
		return out
	}
	out.Success = true
	s.metrics.DispatchAttempts.WithLabelValues(string(j.channel.Name()), "success").Inc()
	return out
}

func (s *Service) record(ctx context.Context, stats model.DispatchStats) {
	if err := s.requests.RecordDispatch(ctx, stats); err != nil {
		s.logger.Error(err, "Failed to record dispatch stats", "request_id", stats.RequestID)
	}
}

func uniqueIDs(ids []int64) []int64 {
	seen := make(map[int64]bool, len(ids))
	out := make([]int64, 0, len(ids))
	for _, id := range ids {
		if !seen[id] {
			seen[id] = true
			out = append(out, id)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// ChannelNames lists the configured channels, for logging at startup.
func (s *Service) ChannelNames() string {
	names := make([]string, 0, len(s.channels))
	for _, ch := range s.channels {
		names = append(names, string(ch.Name()))
	}
	return strings.Join(names, ",")
}
