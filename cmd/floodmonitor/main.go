package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/couchcryptid/flood-monitor-service/internal/adapter/floodapi"
	httpadapter "github.com/couchcryptid/flood-monitor-service/internal/adapter/http"
	kafkaadapter "github.com/couchcryptid/flood-monitor-service/internal/adapter/kafka"
	"github.com/couchcryptid/flood-monitor-service/internal/adapter/postgres"
	"github.com/couchcryptid/flood-monitor-service/internal/config"
	"github.com/couchcryptid/flood-monitor-service/internal/monitor"
	"github.com/couchcryptid/flood-monitor-service/internal/observability"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg)
	metrics := observability.NewMetrics()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	client := floodapi.NewClient(cfg.APIBaseURL, cfg.APITimeout, metrics, logger)
	polygons := floodapi.NewCachedPolygons(client, cfg.PolygonCacheSize, metrics)

	// Warning change events (feature-flagged via KAFKA_ENABLED).
	var publisher monitor.Publisher
	var writer *kafkaadapter.Writer
	if cfg.KafkaEnabled {
		writer = kafkaadapter.NewWriter(cfg, logger)
		publisher = writer
		logger.Info("kafka publishing enabled", "brokers", cfg.KafkaBrokers, "topic", cfg.KafkaWarningsTopic)
	} else {
		logger.Info("kafka publishing disabled")
	}

	// Snapshot store (enabled when DATABASE_URL is set).
	var store monitor.Store
	var pg *postgres.Store
	if cfg.DatabaseURL != "" {
		pg, err = postgres.New(ctx, cfg.DatabaseURL, logger)
		if err != nil {
			logger.Error("failed to connect to postgres", "error", err)
			os.Exit(1)
		}
		if err := pg.Migrate(ctx); err != nil {
			logger.Error("failed to migrate postgres schema", "error", err)
			pg.Close()
			os.Exit(1)
		}
		store = pg
		logger.Info("postgres snapshot store enabled")
	} else {
		logger.Info("postgres snapshot store disabled")
	}

	m := monitor.New(client, polygons, publisher, store, monitor.NewState(), monitor.Options{
		StationStatus:      cfg.StationStatus,
		RefreshInterval:    cfg.RefreshInterval,
		PolygonConcurrency: cfg.PolygonConcurrency,
	}, logger, metrics)

	srv := httpadapter.NewServer(cfg.HTTPAddr, m, logger)

	// Start HTTP server.
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", "error", err)
		}
	}()

	// Start the warning monitor.
	done := make(chan struct{})
	go func() {
		defer close(done)
		if err := m.Run(ctx); err != nil {
			logger.Error("monitor error", "error", err)
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "error", err)
	}

	select {
	case <-done:
	case <-shutdownCtx.Done():
		logger.Warn("monitor did not stop before shutdown timeout")
	}

	if writer != nil {
		if err := writer.Close(); err != nil {
			logger.Error("kafka writer close error", "error", err)
		}
	}
	if pg != nil {
		pg.Close()
	}

	logger.Info("shutdown complete")
}
