package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/farm-credit-ledger/internal/config"
	"github.com/farm-credit-ledger/internal/credit_engine/components"
	"github.com/farm-credit-ledger/internal/credit_engine/consumer"
	"github.com/farm-credit-ledger/internal/credit_engine/outbox_poller"
	"github.com/farm-credit-ledger/internal/data/cache"
	"github.com/farm-credit-ledger/internal/data/mongo"
	"github.com/farm-credit-ledger/internal/data/postgres"
	"github.com/farm-credit-ledger/internal/jobs"
	"github.com/farm-credit-ledger/internal/logger"
	"github.com/farm-credit-ledger/internal/platform/messaging/consumers"
	"github.com/farm-credit-ledger/internal/platform/messaging/producers"
	"github.com/farm-credit-ledger/internal/platform/persistence"
)

func main() {
	appCtx, cancelAppCtx := context.WithCancel(context.Background())
	defer cancelAppCtx()

	cfg, err := config.LoadConfig("credit_scheduler")
	if err != nil {
		// logger is not initialized yet, so we use fmt
		fmt.Printf("Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	log := logger.NewLogger(cfg)

	log.Info("Starting Credit Scheduler",
		"app_name", cfg.Application.Name,
		"env", cfg.Application.Env,
	)

	postgresDB, err := persistence.NewPostgresDB(appCtx, log, &cfg.Postgres)
	if err != nil {
		log.Error("Failed to initialize PostgreSQL", "error", err)
		os.Exit(1)
	}

	mongoDB, err := persistence.NewMongoDB(appCtx, log, &cfg.MongoDB)
	if err != nil {
		log.Error("Failed to initialize MongoDB", "error", err)
		os.Exit(1)
	}

	redisDB, err := persistence.NewRedisDB(appCtx, log, &cfg.Redis)
	if err != nil {
		log.Error("Failed to initialize Redis", "error", err)
		os.Exit(1)
	}

	notifier, err := producers.NewNotificationProducer(appCtx, log, &cfg.Kafka)
	if err != nil {
		log.Error("Failed to initialize notification producer", "error", err)
		os.Exit(1)
	}

	// nil when no DLQ topic is configured
	dlqProducer, err := producers.NewDLQProducer(appCtx, log, &cfg.Kafka)
	if err != nil {
		log.Error("Failed to initialize DLQ Kafka producer", "error", err)
		os.Exit(1)
	}
	var deadLetters producers.DeadLetterPublisher
	if dlqProducer != nil {
		deadLetters = dlqProducer
	}

	auditRepo := mongo.NewAuditRepository(log, mongoDB.Database())
	if err := auditRepo.EnsureIndexes(appCtx); err != nil {
		log.Error("Failed to create audit indexes", "error", err)
		os.Exit(1)
	}

	outboxRepo := postgres.NewOutboxRepository(log, postgresDB)
	pendingCache := cache.NewPendingCache(log,
		postgres.NewCollectionsSource(log, postgresDB), redisDB.Client(), cfg.Redis.PendingTTL)

	engine, runner, err := components.CreateEngine(postgresDB, components.Repositories{
		Profiles:     postgres.NewProfileRepository(log, postgresDB),
		Transactions: postgres.NewTransactionRepository(log, postgresDB),
		Outbox:       outboxRepo,
		Defaults:     postgres.NewDefaultRepository(log, postgresDB),
		Audit:        auditRepo,
		Collections:  pendingCache,
		Farmers:      postgres.NewFarmerDirectory(log, postgresDB),
	}, notifier, cfg, log)
	if err != nil {
		log.Error("Failed to create credit engine", "error", err)
		os.Exit(1)
	}

	jobRunner := jobs.NewJobRunner(engine, notifier,
		cache.NewJobLock(redisDB.Client(), cfg.Scheduler.LockTTL), log.With("component", "jobs"))
	scheduler, err := jobs.NewScheduler(appCtx, jobRunner, cfg.Scheduler, log)
	if err != nil {
		log.Error("Failed to create scheduler", "error", err)
		os.Exit(1)
	}

	collectionHandler := consumer.NewCollectionEventHandler(log, pendingCache, deadLetters)
	kafkaConsumer := consumers.NewKafkaConsumer(appCtx, log, &cfg.Kafka, cfg.Kafka.CollectionEventsTopic)

	poller := outbox_poller.NewPoller(
		&cfg.Outbox,
		outboxRepo,
		outbox_poller.NewAuditPublisher(outboxRepo, auditRepo, log),
		log,
	)

	errChan := make(chan error, 1)
	var wg sync.WaitGroup

	if err := kafkaConsumer.Subscribe(appCtx, collectionHandler.HandleMessage); err != nil {
		errChan <- fmt.Errorf("kafka consumer error: %w", err)
	}

	wg.Add(1)
	go func() {
		defer wg.Done()
		log.Info("Starting Outbox Poller",
			"interval", cfg.Outbox.PollingInterval.String(),
			"batch_size", cfg.Outbox.BatchSize,
		)
		poller.Start(appCtx)
	}()

	scheduler.Start()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	var serviceErr error
	select {
	case <-quit:
		log.Info("Shutdown signal received")
	case err := <-errChan:
		log.Error("Service error occurred", "error", err)
		serviceErr = err
	}

	log.Info("Starting graceful shutdown...")

	// Running jobs finish before the context is canceled
	scheduler.Stop()
	cancelAppCtx()
	wg.Wait()

	log.Info("Shutting down worker pool", "running_workers", runner.Running())
	runner.Shutdown()

	if dlqProducer != nil {
		if err = dlqProducer.Close(); err != nil {
			log.Error("Error closing DLQ Kafka producer", "error", err)
		}
	}
	if err = kafkaConsumer.Close(); err != nil {
		log.Error("Error closing Kafka consumer", "error", err)
	}
	if err = notifier.Close(); err != nil {
		log.Error("Error closing notification producer", "error", err)
	}

	postgresDB.Close()

	if err = redisDB.Close(); err != nil {
		log.Error("Error closing Redis connection", "error", err)
	}
	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancelShutdown()
	if err = mongoDB.Close(shutdownCtx); err != nil {
		log.Error("Error closing MongoDB connection", "error", err)
	}

	if serviceErr != nil {
		log.Error("Credit Scheduler shutdown with errors", "error", serviceErr)
		os.Exit(1)
	}
	log.Info("Credit Scheduler shutdown completed")
}
