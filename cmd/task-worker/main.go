package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/example/order-pipeline/internal/config"
	"github.com/example/order-pipeline/internal/kafka/consumer"
	"github.com/example/order-pipeline/internal/kafka/producer"
	kafkapublisher "github.com/example/order-pipeline/internal/kafka/publisher"
	"github.com/example/order-pipeline/internal/logger"
	"github.com/example/order-pipeline/internal/metrics"
	"github.com/example/order-pipeline/internal/params"
	"github.com/example/order-pipeline/internal/pricing"
	"github.com/example/order-pipeline/internal/storage"
	"github.com/example/order-pipeline/internal/worker"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		fail("config load", err)
	}

	baseLogger, err := logger.New(cfg.App.Env, cfg.App.LogLevel)
	if err != nil {
		fail("logger init", err)
	}
	log := baseLogger.With().Str("service", "task-worker").Logger()

	metrics.Serve(cfg.Metrics.Addr)

	names := params.NewCached(params.EnvResolver{})
	invoiceBucket := names.ResolveDefault(ctx, "invoice/bucket", "invoices")
	ordersTable := names.ResolveDefault(ctx, "orders/table", "orders")

	prod, err := producer.New(cfg.Kafka.Brokers, log.With().Str("component", "kafka-producer").Logger())
	if err != nil {
		log.Fatal().Err(err).Msg("failed to create kafka producer")
	}
	defer func() {
		if err := prod.Close(); err != nil {
			log.Error().Err(err).Msg("failed to close kafka producer")
		}
	}()

	cons, err := consumer.New(cfg.Kafka.Brokers, cfg.Groups.Task, log.With().Str("component", "kafka-consumer").Logger(), cfg.Retry.CommitOnSuccessOnly)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to create kafka consumer")
	}
	defer func() {
		if err := cons.Close(); err != nil {
			log.Error().Err(err).Msg("failed to close kafka consumer")
		}
	}()

	store := storage.NewRedisObjectStore(cfg.Storage.RedisAddr, log.With().Str("component", "object-store").Logger())
	defer func() {
		if err := store.Close(); err != nil {
			log.Error().Err(err).Msg("failed to close object store")
		}
	}()
	if err := store.Ping(ctx); err != nil {
		log.Fatal().Err(err).Msg("object store unreachable")
	}

	statuses, err := storage.NewSQLStatusStore(cfg.Storage.MSSQLConn, ordersTable)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to open status store")
	}
	defer func() {
		if err := statuses.Close(); err != nil {
			log.Error().Err(err).Msg("failed to close status store")
		}
	}()
	if err := statuses.Init(ctx); err != nil {
		log.Fatal().Err(err).Msg("failed to initialise status table")
	}

	notifier := kafkapublisher.NewNotificationPublisher(prod, cfg.Topics.Notification, log.With().Str("component", "notification-publisher").Logger())
	if notifier == nil {
		log.Fatal().Msg("failed to create notification publisher")
	}
	deadLetter := kafkapublisher.NewDeadLetterPublisher(prod, cfg.Topics.TaskDLQ, log.With().Str("component", "dead-letter-publisher").Logger())
	if deadLetter == nil {
		log.Fatal().Msg("failed to create dead-letter publisher")
	}

	policy, err := pricing.NewPolicy(cfg.Pricing.Policy)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialise pricing policy")
	}

	engineCfg := worker.Config{
		InvoiceBucket:     invoiceBucket,
		MaxAttempts:       cfg.Retry.MaxAttempts,
		BaseBackoff:       time.Duration(cfg.Retry.BaseBackoffSeconds) * time.Second,
		MaxBackoff:        time.Duration(cfg.Retry.MaxBackoffSeconds) * time.Second,
		WorkerConcurrency: cfg.Retry.WorkerConcurrency,
	}

	engine, err := worker.NewEngine(engineCfg, worker.Dependencies{
		Policy:     policy,
		Store:      store,
		Statuses:   statuses,
		Notifier:   notifier,
		DeadLetter: deadLetter,
		Committer: worker.CommitFunc(func(ctx context.Context, record *worker.Record) error {
			return record.Commit(ctx)
		}),
		Logger: log.With().Str("component", "task-engine").Logger(),
		Now:    time.Now,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialise task engine")
	}

	topics := []string{cfg.Topics.Task}

	errCh := make(chan error, 1)
	go func() {
		if err := cons.Consume(ctx, topics, engine.HandleRecord); err != nil && !errors.Is(err, context.Canceled) {
			errCh <- err
		}
		close(errCh)
	}()

	go func() {
		select {
		case <-cons.Ready():
			log.Info().
				Str("task_topic", cfg.Topics.Task).
				Str("pricing_policy", cfg.Pricing.Policy).
				Str("invoice_bucket", invoiceBucket).
				Msg("task worker started")
		case <-ctx.Done():
		}
	}()

	select {
	case <-ctx.Done():
		log.Info().Msg("shutdown signal received")
	case err := <-errCh:
		if err != nil {
			log.Error().Err(err).Msg("consumer terminated with error")
		}
	}
}

func fail(stage string, err error) {
	log := zerolog.New(os.Stdout).With().Timestamp().Logger()
	log.Fatal().Err(err).Str("stage", stage).Msg("task worker init failed")
}
