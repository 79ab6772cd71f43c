package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	httpadapter "github.com/couchcryptid/crime-data-service/internal/adapter/http"
	kafkaadapter "github.com/couchcryptid/crime-data-service/internal/adapter/kafka"
	"github.com/couchcryptid/crime-data-service/internal/adapter/police"
	"github.com/couchcryptid/crime-data-service/internal/adapter/postcodes"
	"github.com/couchcryptid/crime-data-service/internal/cache"
	"github.com/couchcryptid/crime-data-service/internal/config"
	"github.com/couchcryptid/crime-data-service/internal/observability"
	"github.com/couchcryptid/crime-data-service/internal/scheduler"
	"github.com/couchcryptid/crime-data-service/internal/service"
	"github.com/jonboulle/clockwork"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg)
	metrics := observability.NewMetrics()
	clock := clockwork.NewRealClock()

	resolver := postcodes.NewClient(cfg.PostcodesBaseURL, cfg.ResolveTimeout, logger, metrics)
	fetcher := police.NewClient(cfg.PoliceBaseURL, cfg.FetchTimeout, logger, metrics)

	sched := scheduler.New(fetcher, scheduler.Config{
		BatchSize:        cfg.FetchBatchSize,
		Cooldown:         cfg.BatchCooldown,
		RateLimitRetries: cfg.RateLimitRetries,
	}, clock, logger, metrics)

	datasets := cache.New(cfg.CacheTTL, clock)

	// Record sink is feature-flagged via KAFKA_ENABLED / KAFKA_BROKERS.
	var publisher service.RecordPublisher
	var sink *kafkaadapter.Writer
	if cfg.KafkaEnabled {
		sink = kafkaadapter.NewWriter(cfg, logger)
		publisher = sink
		metrics.SinkEnabled.Set(1)
		logger.Info("kafka record sink enabled", "topic", cfg.KafkaSinkTopic, "brokers", cfg.KafkaBrokers)
	} else {
		logger.Info("kafka record sink disabled")
	}

	svc := service.New(resolver, sched, datasets, publisher, cfg.DefaultStartYear, clock, logger, metrics)

	srv := httpadapter.NewServer(cfg.HTTPAddr, svc, logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", "error", err)
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "error", err)
	}
	if sink != nil {
		if err := sink.Close(); err != nil {
			logger.Error("kafka writer close error", "error", err)
		}
	}

	logger.Info("shutdown complete")
}
