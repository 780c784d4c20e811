package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/farm-credit-ledger/internal/config"
	"github.com/farm-credit-ledger/internal/credit_api"
	"github.com/farm-credit-ledger/internal/credit_engine/components"
	"github.com/farm-credit-ledger/internal/data/cache"
	"github.com/farm-credit-ledger/internal/data/mongo"
	"github.com/farm-credit-ledger/internal/data/postgres"
	"github.com/farm-credit-ledger/internal/logger"
	"github.com/farm-credit-ledger/internal/platform/clock"
	"github.com/farm-credit-ledger/internal/platform/messaging/producers"
	"github.com/farm-credit-ledger/internal/platform/persistence"
)

func main() {
	appCtx, cancelAppCtx := context.WithCancel(context.Background())
	defer cancelAppCtx()

	cfg, err := config.LoadConfig("credit_api")
	if err != nil {
		// logger is not initialized yet, so we use fmt
		fmt.Printf("Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	log := logger.NewLogger(cfg)

	// Migrations run as part of connecting
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

	auditRepo := mongo.NewAuditRepository(log, mongoDB.Database())
	repos := components.Repositories{
		Profiles:     postgres.NewProfileRepository(log, postgresDB),
		Transactions: postgres.NewTransactionRepository(log, postgresDB),
		Outbox:       postgres.NewOutboxRepository(log, postgresDB),
		Defaults:     postgres.NewDefaultRepository(log, postgresDB),
		Audit:        auditRepo,
		Collections: cache.NewPendingCache(log,
			postgres.NewCollectionsSource(log, postgresDB), redisDB.Client(), cfg.Redis.PendingTTL),
		Farmers: postgres.NewFarmerDirectory(log, postgresDB),
	}

	engine, runner, err := components.CreateEngine(postgresDB, repos, notifier, cfg, log)
	if err != nil {
		log.Error("Failed to create credit engine", "error", err)
		os.Exit(1)
	}

	server := credit_api.NewServer(log, cfg, engine, engine, clock.System{},
		credit_api.ReadinessCheck{Name: "postgres", Target: postgresDB},
		credit_api.ReadinessCheck{Name: "mongodb", Target: mongoDB},
		credit_api.ReadinessCheck{Name: "redis", Target: redisDB},
	)
	log.Info("REST server initialized")

	errChan := make(chan error, 1)
	go func() {
		if err := server.Start(); err != nil {
			errChan <- fmt.Errorf("HTTP server error: %w", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	var serverErr error
	select {
	case <-quit:
		log.Info("Shutdown signal received")
	case err := <-errChan:
		log.Error("Server error occurred", "error", err)
		serverErr = err
	}

	cancelAppCtx()

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancelShutdown()

	log.Info("Starting graceful shutdown...")

	// In-flight requests finish before their dependencies go away
	if err = server.Stop(shutdownCtx); err != nil {
		log.Error("Error during server shutdown", "error", err)
	}

	runner.Shutdown()
	postgresDB.Close()

	if err = notifier.Close(); err != nil {
		log.Error("Error closing notification producer", "error", err)
	}
	if err = redisDB.Close(); err != nil {
		log.Error("Error closing Redis connection", "error", err)
	}
	if err = mongoDB.Close(shutdownCtx); err != nil {
		log.Error("Error closing MongoDB connection", "error", err)
	}

	if serverErr != nil {
		log.Error("Credit API shutdown with errors", "error", serverErr)
		os.Exit(1)
	}
	log.Info("Credit API shutdown completed")
}
