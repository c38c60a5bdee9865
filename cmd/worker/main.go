package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/jwalitptl/bloodlink-api/internal/app"
	"github.com/jwalitptl/bloodlink-api/internal/config"
	"github.com/jwalitptl/bloodlink-api/internal/model"
	"github.com/jwalitptl/bloodlink-api/internal/service/confirmation"
	"github.com/jwalitptl/bloodlink-api/pkg/logger"
	"github.com/jwalitptl/bloodlink-api/pkg/messaging"
	"github.com/jwalitptl/bloodlink-api/pkg/metrics"
)

// The worker runs the inbox poller on its own, for deployments where the API
// replicas leave inbox.monitoring_enabled off.
func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	log := logger.NewLogger(&logger.Config{
		Level:      logger.ParseLevel(cfg.Log.Level),
		TimeFormat: time.RFC3339,
		Console:    cfg.Log.Console,
	}).WithFields(map[string]interface{}{"component": "worker"})

	if !cfg.Inbox.MonitoringEnabled {
		log.Fatal(fmt.Errorf("inbox monitoring disabled"), "Nothing to do, set inbox.monitoring_enabled")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	res, err := app.Open(ctx, cfg, log)
	if err != nil {
		log.Fatal(err, "Failed to open resources")
	}
	defer func() {
		if err := res.Close(); err != nil {
			log.Error(err, "Failed to close resources")
		}
	}()

	a, err := app.New(cfg, res.Repos, res.Infra, log, metrics.New("bloodlink_worker", prometheus.DefaultRegisterer))
	if err != nil {
		log.Fatal(err, "Failed to build application")
	}
	defer a.Close()

	go auditConfirmations(ctx, res.Infra.Broker, log)

	a.Poller.Start(ctx)
	log.Info("Worker exited properly")
}

// auditConfirmations logs every ledger write published by any replica.
func auditConfirmations(ctx context.Context, broker messaging.Broker, log *logger.Logger) {
	events, err := broker.Subscribe(ctx, confirmation.EventConfirmationRecorded)
	if err != nil {
		log.Error(err, "Failed to subscribe to confirmation events")
		return
	}

	for raw := range events {
		var event struct {
			Type    string             `json:"type"`
			Payload model.LedgerResult `json:"payload"`
		}
		if err := json.Unmarshal(raw, &event); err != nil {
			log.Warn("Dropping malformed confirmation event", "error", err.Error())
			continue
		}
		if event.Payload.Confirmation == nil {
			continue
		}
		c := event.Payload.Confirmation
		log.Info("Confirmation recorded",
			"request_id", c.RequestID,
			"donor_id", c.DonorID,
			"status", c.Status,
			"source", c.Source,
			"new", event.Payload.IsNewRecord,
			"transitioned", event.Payload.TransitionedToConfirmed,
		)
	}
}
