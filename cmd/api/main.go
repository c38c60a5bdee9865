package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/jwalitptl/bloodlink-api/internal/app"
	"github.com/jwalitptl/bloodlink-api/internal/config"
	"github.com/jwalitptl/bloodlink-api/pkg/logger"
	"github.com/jwalitptl/bloodlink-api/pkg/metrics"
)

const shutdownTimeout = 15 * time.Second

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
	})

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

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	res.Infra.Gatherer = reg

	gin.SetMode(gin.ReleaseMode)
	a, err := app.New(cfg, res.Repos, res.Infra, log, metrics.New("bloodlink", reg))
	if err != nil {
		log.Fatal(err, "Failed to build application")
	}

	pollerDone := make(chan struct{})
	if a.Poller != nil {
		go func() {
			defer close(pollerDone)
			a.Poller.Start(ctx)
		}()
	} else {
		close(pollerDone)
	}

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      a.Router.Engine(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		log.Info("Starting server", "port", cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal(err, "Failed to start server")
		}
	}()

	<-ctx.Done()
	log.Info("Shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error(err, "Server forced to shutdown")
	}

	<-pollerDone
	a.Close()
	log.Info("Server exited properly")
}
