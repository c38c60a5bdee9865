package app

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	goredis "github.com/redis/go-redis/v9"

	"github.com/jwalitptl/bloodlink-api/internal/config"
	"github.com/jwalitptl/bloodlink-api/internal/email"
	"github.com/jwalitptl/bloodlink-api/internal/handler/health"
	"github.com/jwalitptl/bloodlink-api/internal/mailbox"
	"github.com/jwalitptl/bloodlink-api/internal/repository"
	"github.com/jwalitptl/bloodlink-api/internal/repository/memory"
	"github.com/jwalitptl/bloodlink-api/internal/repository/postgres"
	"github.com/jwalitptl/bloodlink-api/internal/repository/redisstore"
	"github.com/jwalitptl/bloodlink-api/pkg/auth"
	"github.com/jwalitptl/bloodlink-api/pkg/circuitbreaker"
	"github.com/jwalitptl/bloodlink-api/pkg/logger"
	"github.com/jwalitptl/bloodlink-api/pkg/messaging"
	"github.com/jwalitptl/bloodlink-api/pkg/messaging/redis"
)

// Resources are the external connections one process owns.
type Resources struct {
	DB    *sqlx.DB
	Redis *goredis.Client
	Repos Repositories
	Infra Infra
}

// Open connects to Postgres and, when configured, Redis. Without Redis the
// broker is a no-op and poll checkpoints live in memory.
func Open(ctx context.Context, cfg *config.Config, log *logger.Logger) (*Resources, error) {
	db, err := postgres.NewDB(cfg.Database)
	if err != nil {
		return nil, err
	}
	if cfg.Database.AutoMigrate {
		if err := postgres.EnsureSchema(ctx, db); err != nil {
			db.Close()
			return nil, err
		}
		log.Info("Database schema ensured")
	}

	res := &Resources{
		DB: db,
		Repos: Repositories{
			References:    postgres.NewReferenceRepository(db),
			Donors:        postgres.NewDonorRepository(db),
			Requests:      postgres.NewRequestRepository(db),
			Confirmations: postgres.NewConfirmationRepository(db),
		},
		Infra: Infra{
			Broker: messaging.NopBroker{},
			Tokens: auth.NewJWTService(cfg.JWT.Secret, cfg.JWT.Issuer),
			Checks: map[string]health.Pinger{"postgres": db},
		},
	}

	var checkpoints repository.CheckpointStore = memory.NewCheckpointStore()
	if cfg.Redis.URL != "" {
		client, err := redis.NewClient(ctx, cfg.Redis.ToBrokerConfig())
		if err != nil {
			db.Close()
			return nil, err
		}
		res.Redis = client
		res.Infra.Broker = redis.NewRedisBroker(client, log)
		res.Infra.Checks["redis"] = health.PingFunc(func(ctx context.Context) error {
			return client.Ping(ctx).Err()
		})
		checkpoints = redisstore.NewCheckpointStore(client)
	} else {
		log.Warn("Redis not configured, domain events are dropped and poll checkpoints are not persisted")
	}
	res.Repos.Checkpoints = checkpoints

	breaker := circuitbreaker.NewCircuitBreaker(circuitbreaker.Settings{
		Name:                "smtp",
		MaxRequests:         1,
		Interval:            time.Minute,
		Timeout:             30 * time.Second,
		ConsecutiveFailures: 5,
	}, log)
	res.Infra.Sender = email.NewSMTPSender(cfg.SMTP, breaker, log)
	if cfg.SMTP.Host == "" || cfg.SMTP.FromAddress == "" {
		log.Warn("SMTP not configured, donor and requester emails will fail")
	}

	if cfg.Inbox.MonitoringEnabled {
		if !cfg.Inbox.HasCredentials() {
			log.Warn("Inbox monitoring enabled without credentials, poll cycles will be skipped")
		}
		res.Infra.Mailbox = mailbox.NewIMAPMailbox(cfg.Inbox)
	}

	return res, nil
}

func (r *Resources) Close() error {
	var firstErr error
	if err := r.Infra.Broker.Close(); err != nil {
		firstErr = fmt.Errorf("failed to close broker: %w", err)
	}
	if err := r.DB.Close(); err != nil && firstErr == nil {
		firstErr = fmt.Errorf("failed to close database: %w", err)
	}
	return firstErr
}
