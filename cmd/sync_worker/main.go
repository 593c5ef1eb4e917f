package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/erp-ledger-engine/internal/config"
	"github.com/erp-ledger-engine/internal/data/mongo"
	"github.com/erp-ledger-engine/internal/data/postgres"
	"github.com/erp-ledger-engine/internal/engine/chain"
	"github.com/erp-ledger-engine/internal/engine/envelope"
	"github.com/erp-ledger-engine/internal/engine/manager"
	"github.com/erp-ledger-engine/internal/engine/postings"
	"github.com/erp-ledger-engine/internal/logger"
	"github.com/erp-ledger-engine/internal/platform/messaging/producers"
	"github.com/erp-ledger-engine/internal/platform/metrics"
	"github.com/erp-ledger-engine/internal/platform/persistence"
	"github.com/erp-ledger-engine/internal/platform/signing"
	"github.com/erp-ledger-engine/internal/sync_worker/chain_monitor"
	"github.com/erp-ledger-engine/internal/sync_worker/evaluator"
	"github.com/erp-ledger-engine/internal/sync_worker/outbox_poller"
)

func main() {
	// Create base context with cancellation
	appCtx, cancelAppCtx := context.WithCancel(context.Background())
	defer cancelAppCtx()

	// Initialize configuration
	cfg, err := config.LoadConfig("sync_worker")
	if err != nil {
		// logger is not initialized yet, so we use fmt
		fmt.Printf("Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	log := logger.NewLogger(cfg)

	log.Info("Starting Sync Worker",
		"app_name", cfg.Application.Name,
		"env", cfg.Application.Env,
	)

	// Initialize databases with app context
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

	// The worker shares the device signing key with the API process
	signer, err := signing.NewFromSeedFile(cfg.Signing.KeyPath)
	if err != nil {
		log.Error("Failed to initialize signing key", "error", err, "path", cfg.Signing.KeyPath)
		os.Exit(1)
	}

	m := metrics.New()

	// Initialize repositories
	fragmentStore := postgres.NewFragmentStore(log, postgresDB)
	auditLogRepo := postgres.NewAuditLogRepository(log, postgresDB)
	chainRepo := postgres.NewChainRepository(log, postgresDB)
	clockRepo := postgres.NewClockRepository(log, postgresDB)
	txIndexRepo := postgres.NewTxIndexRepository(log, postgresDB)
	outboxRepo := postgres.NewOutboxRepository(log, postgresDB)
	proposalRepo := mongo.NewProposalRepository(log, mongoDB.Database())

	// Initialize Kafka envelope producer
	envelopeProducer, err := producers.NewEnvelopeMessageProducer(appCtx, log, &cfg.Kafka)
	if err != nil {
		log.Error("Failed to initialize envelope Kafka producer", "error", err)
		os.Exit(1)
	}

	// Initialize Kafka DLQ producer
	dlqProducer, err := producers.NewDLQProducer(appCtx, log, &cfg.Kafka)
	if err != nil {
		log.Error("Failed to initialize DLQ Kafka producer", "error", err)
		os.Exit(1)
	}
	// dlqProducer is nil if DLQTopic is not configured. Keep the
	// interface nil too, or the poller's nil check would pass a typed
	// nil through.
	var dlq outbox_poller.DeadLetterProducer
	if dlqProducer != nil {
		dlq = dlqProducer
	}

	// Initialize outbox poller
	envelopePublisher := outbox_poller.NewEnvelopePublisher(
		outboxRepo,
		envelopeProducer,
		m,
		log,
	)
	poller := outbox_poller.NewPoller(
		&cfg.Outbox,
		outboxRepo,
		envelopePublisher,
		dlq,
		m,
		log,
	)

	// The rule evaluator and chain monitor run against the same engine
	// the API serves
	trust := chain.NewTrustState(m)
	committer := envelope.NewPgCommitter(
		postgresDB,
		chainRepo,
		clockRepo,
		auditLogRepo,
		fragmentStore,
		txIndexRepo,
		outboxRepo,
		signer,
		log,
		m,
	)
	engine := manager.New(
		fragmentStore,
		txIndexRepo,
		auditLogRepo,
		clockRepo,
		committer,
		postings.NewGenerator(postings.DefaultAccountMap()),
		signing.NewVerifier(),
		trust,
		m,
		log,
	)

	// Initialize advisory rule evaluator
	ruleEvaluator, err := evaluator.New(
		&cfg.Proposals,
		cfg.WorkerPool.Size,
		engine,
		txIndexRepo,
		proposalRepo,
		log,
	)
	if err != nil {
		log.Error("Failed to initialize rule evaluator", "error", err)
		os.Exit(1)
	}

	// Initialize audit chain monitor
	chainMonitor := chain_monitor.New(
		&cfg.ChainVerify,
		auditLogRepo,
		txIndexRepo,
		signing.NewVerifier(),
		trust,
		m,
		log,
	)

	// Create wait group for graceful shutdown
	var wg sync.WaitGroup

	// Start outbox poller in a goroutine
	wg.Add(1)
	go func() {
		defer wg.Done()
		log.Info("Starting Outbox Poller",
			"interval", cfg.Outbox.PollingInterval.String(),
			"batch_size", cfg.Outbox.BatchSize,
		)
		poller.Start(appCtx)
	}()

	// Start rule evaluator in a goroutine
	wg.Add(1)
	go func() {
		defer wg.Done()
		ruleEvaluator.Start(appCtx)
	}()

	// Start chain monitor in a goroutine
	wg.Add(1)
	go func() {
		defer wg.Done()
		chainMonitor.Start(appCtx)
	}()

	// Set up signal handling
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	<-quit
	log.Info("Shutdown signal received")

	// Cancel the application context
	cancelAppCtx()

	// Create a shutdown context with timeout
	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancelShutdown()

	// Graceful shutdown sequence
	log.Info("Starting graceful shutdown...")

	// Wait for all goroutines to finish
	log.Info("Waiting for services to stop...")
	wgChan := make(chan struct{})
	go func() {
		wg.Wait()
		close(wgChan)
	}()

	select {
	case <-wgChan:
		log.Info("All services stopped successfully")
	case <-shutdownCtx.Done():
		log.Warn("Shutdown timeout reached, forcing exit")
	}

	// Release the evaluator worker pool
	ruleEvaluator.Shutdown()

	// Close Kafka producers
	if err = envelopeProducer.Close(); err != nil {
		log.Error("Error closing envelope Kafka producer", "error", err)
	}
	if dlqProducer != nil {
		if err = dlqProducer.Close(); err != nil {
			log.Error("Error closing DLQ Kafka producer", "error", err)
		}
	}

	// Shutdown postgres connection pool
	postgresDB.Close()

	// Close MongoDB connection
	if err = mongoDB.Close(shutdownCtx); err != nil {
		log.Error("Error closing MongoDB connection", "error", err)
	}

	// Final status
	if err != nil {
		log.Error("Sync Worker shutdown completed with errors")
	} else {
		log.Info("Sync Worker shutdown completed successfully")
	}
}
