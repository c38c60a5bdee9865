package app

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/jwalitptl/bloodlink-api/internal/config"
	"github.com/jwalitptl/bloodlink-api/internal/email"
	confirmationHandler "github.com/jwalitptl/bloodlink-api/internal/handler/confirmation"
	donorHandler "github.com/jwalitptl/bloodlink-api/internal/handler/donor"
	"github.com/jwalitptl/bloodlink-api/internal/handler/health"
	requestHandler "github.com/jwalitptl/bloodlink-api/internal/handler/request"
	"github.com/jwalitptl/bloodlink-api/internal/middleware"
	"github.com/jwalitptl/bloodlink-api/internal/repository"
	"github.com/jwalitptl/bloodlink-api/internal/router"
	"github.com/jwalitptl/bloodlink-api/internal/service/confirmation"
	"github.com/jwalitptl/bloodlink-api/internal/service/directory"
	"github.com/jwalitptl/bloodlink-api/internal/service/dispatch"
	"github.com/jwalitptl/bloodlink-api/internal/service/inbound"
	"github.com/jwalitptl/bloodlink-api/internal/service/ledger"
	"github.com/jwalitptl/bloodlink-api/internal/service/matching"
	"github.com/jwalitptl/bloodlink-api/internal/service/request"
	"github.com/jwalitptl/bloodlink-api/internal/service/requester"
	"github.com/jwalitptl/bloodlink-api/pkg/logger"
	"github.com/jwalitptl/bloodlink-api/pkg/messaging"
	"github.com/jwalitptl/bloodlink-api/pkg/metrics"
	"github.com/jwalitptl/bloodlink-api/pkg/validator"
	"github.com/jwalitptl/bloodlink-api/pkg/worker"
)

type Repositories struct {
	References    repository.ReferenceRepository
	Donors        repository.DonorRepository
	Requests      repository.RequestRepository
	Confirmations repository.ConfirmationRepository
	Checkpoints   repository.CheckpointStore
}

// Infra holds the process-specific adapters. Broker and Mailbox may be nil.
type Infra struct {
	Sender   email.Sender
	Mailbox  inbound.Mailbox
	Broker   messaging.Broker
	Tokens   middleware.TokenValidator
	Checks   map[string]health.Pinger
	Gatherer prometheus.Gatherer
}

// App is the wired object graph shared by cmd/api and cmd/worker.
type App struct {
	Pool          *worker.Pool
	Directory     *directory.Service
	Dispatcher    *dispatch.Service
	Requests      *request.Service
	Confirmations *confirmation.Service
	Poller        *inbound.Poller
	Router        *router.Router
}

func New(cfg *config.Config, repos Repositories, infra Infra, log *logger.Logger, m *metrics.Metrics) (*App, error) {
	if infra.Broker == nil {
		infra.Broker = messaging.NopBroker{}
	}
	if infra.Gatherer == nil {
		infra.Gatherer = prometheus.DefaultGatherer
	}

	v := validator.New()
	composer := email.NewComposer(cfg.Dispatch.PublicBaseURL)
	pool := worker.NewPool(cfg.Dispatch.ToPoolConfig(), log, m)

	dir := directory.NewService(repos.Donors, repos.References, cfg.Cache.ReferenceTTL, cfg.Cache.CleanupInterval, log)
	matcher := matching.NewService(dir, log)

	channels, err := dispatch.BuildChannels(cfg.Dispatch.Channels, infra.Sender, composer, log)
	if err != nil {
		pool.Stop()
		return nil, fmt.Errorf("failed to build dispatch channels: %w", err)
	}
	dispatcher := dispatch.NewService(matcher, repos.Donors, repos.Requests, channels, cfg.Dispatch.Concurrency, log, m)

	requestSvc := request.NewService(repos.Requests, dir, matcher, dispatcher, pool, v, log)

	confirmationSvc := confirmation.NewService(
		repos.Requests,
		repos.Donors,
		repos.Confirmations,
		ledger.NewService(repos.Confirmations, m),
		requester.NewNotifier(infra.Sender, composer, log, m),
		pool,
		infra.Broker,
		confirmation.Config{NotifyRetries: cfg.Dispatch.NotifyRetries, RetryDelay: cfg.Dispatch.RetryDelay},
		log,
	)

	var poller *inbound.Poller
	if infra.Mailbox != nil {
		poller = inbound.NewPoller(
			cfg.Inbox,
			infra.Mailbox,
			inbound.NewCorrelator(repos.Requests, dir),
			confirmationSvc,
			repos.Checkpoints,
			log,
			m,
		)
	}

	var pollerStatus health.PollerStatus
	if poller != nil {
		pollerStatus = poller
	}

	r := router.NewRouter(cfg, middleware.NewAuthMiddleware(infra.Tokens, log), router.Handlers{
		Health:        health.NewHandler(infra.Checks, pollerStatus, infra.Gatherer),
		Requests:      requestHandler.NewHandler(requestSvc),
		Donors:        donorHandler.NewHandler(dir),
		Confirmations: confirmationHandler.NewHandler(confirmationSvc, v),
	}, log, m)
	r.Setup()

	return &App{
		Pool:          pool,
		Directory:     dir,
		Dispatcher:    dispatcher,
		Requests:      requestSvc,
		Confirmations: confirmationSvc,
		Poller:        poller,
		Router:        r,
	}, nil
}

// Close drains background tasks.
func (a *App) Close() {
	a.Pool.Stop()
}
