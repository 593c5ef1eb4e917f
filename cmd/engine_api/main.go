package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/erp-ledger-engine/internal/api"
	"github.com/erp-ledger-engine/internal/config"
	"github.com/erp-ledger-engine/internal/data/mongo"
	"github.com/erp-ledger-engine/internal/data/postgres"
	"github.com/erp-ledger-engine/internal/engine/chain"
	"github.com/erp-ledger-engine/internal/engine/envelope"
	"github.com/erp-ledger-engine/internal/engine/manager"
	"github.com/erp-ledger-engine/internal/engine/postings"
	"github.com/erp-ledger-engine/internal/logger"
	"github.com/erp-ledger-engine/internal/platform/metrics"
	"github.com/erp-ledger-engine/internal/platform/persistence"
	"github.com/erp-ledger-engine/internal/platform/signing"
)

func main() {
	// Create base context with cancellation
	appCtx, cancelAppCtx := context.WithCancel(context.Background())
	defer cancelAppCtx()

	// Initialize configuration
	cfg, err := config.LoadConfig("engine_api")
	if err != nil {
		// logger is not initialized yet, so we use fmt
		fmt.Printf("Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	log := logger.NewLogger(cfg)

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

	// Initialize the device signing key; generated on first start
	signer, err := signing.NewFromSeedFile(cfg.Signing.KeyPath)
	if err != nil {
		log.Error("Failed to initialize signing key", "error", err, "path", cfg.Signing.KeyPath)
		os.Exit(1)
	}
	log.Info("Device signing key loaded", "pubkey", signer.PublicKeyHex())

	m := metrics.New()

	// Initialize repositories
	fragmentStore := postgres.NewFragmentStore(log, postgresDB)
	auditLogRepo := postgres.NewAuditLogRepository(log, postgresDB)
	chainRepo := postgres.NewChainRepository(log, postgresDB)
	clockRepo := postgres.NewClockRepository(log, postgresDB)
	txIndexRepo := postgres.NewTxIndexRepository(log, postgresDB)
	outboxRepo := postgres.NewOutboxRepository(log, postgresDB)
	proposalRepo := mongo.NewProposalRepository(log, mongoDB.Database())

	// Initialize the engine
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
	trust := chain.NewTrustState(m)
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

	// Initialize REST server
	server := api.NewServer(log, cfg, engine, proposalRepo, m)
	log.Info("REST server initialized")

	// Create error channel for server errors
	errChan := make(chan error, 1)

	// Start server in goroutine
	go func() {
		log.Info("Starting HTTP server", "port", cfg.Server.Port)
		if err := server.Start(); err != nil {
			errChan <- fmt.Errorf("HTTP server error: %w", err)
		}
	}()

	// Set up signal handling
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	// Wait for a shutdown signal or error
	var serverErr error
	select {
	case <-quit:
		log.Info("Shutdown signal received")
	case err := <-errChan:
		log.Error("Server error occurred", "error", err)
		serverErr = err
	}

	// Cancel the application context
	cancelAppCtx()

	// Create a shutdown context with timeout
	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancelShutdown()

	// Graceful shutdown sequence
	log.Info("Starting graceful shutdown...")

	// Shutdown HTTP server first so in-flight commits can finish
	if err = server.Stop(shutdownCtx); err != nil {
		log.Error("Error during server shutdown", "error", err)
	}

	// Shutdown postgres connection pool
	postgresDB.Close()

	if err = mongoDB.Close(shutdownCtx); err != nil {
		log.Error("Error closing MongoDB connection", "error", err)
	}

	// Final status
	if serverErr != nil {
		log.Error("HTTP server shutdown with errors", "error", serverErr)
	}
	if err != nil {
		log.Error("Server shutdown completed with errors")
	} else {
		log.Info("Server shutdown completed successfully")
	}
}
