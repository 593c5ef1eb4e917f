package api

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/erp-ledger-engine/internal/api/handler"
	"github.com/erp-ledger-engine/internal/api/middleware"
	"github.com/erp-ledger-engine/internal/platform/metrics"
)

// setupRouter configures API routes and middleware for the application
func setupRouter(
	logger *slog.Logger,
	r *gin.Engine,
	jwtSecret string,
	m *metrics.Metrics,
	txHandler *handler.TxHandler,
	ledgerHandler *handler.LedgerHandler,
	auditHandler *handler.AuditHandler,
	proposalHandler *handler.ProposalHandler,
) {
	r.Use(middleware.Recovery(logger))
	r.Use(middleware.Logger(logger))
	r.Use(middleware.CorrelationID())

	// API v1 endpoints; every route is scoped to the authenticated actor
	v1 := r.Group("/api/v1")
	v1.Use(middleware.Actor(jwtSecret))
	{
		// Transaction lifecycle operations
		txs := v1.Group("/txs")
		{
			txs.POST("", txHandler.Create)
			txs.GET("", txHandler.List)
			txs.GET("/:id", txHandler.GetByID)
			txs.GET("/:id/lines", txHandler.GetLines)
			txs.POST("/:id/lines", txHandler.AddLine)
			txs.POST("/:id/moves", txHandler.CreateMove)
			txs.POST("/:id/transition", txHandler.Transition)
			txs.GET("/:id/postings", txHandler.Postings)
		}

		// Chart of accounts and ledger reads
		accounts := v1.Group("/accounts")
		{
			accounts.POST("/seed", ledgerHandler.SeedCoA)
			accounts.GET("", ledgerHandler.ListAccounts)
		}
		v1.GET("/ledger/summary", ledgerHandler.Summary)

		// Counterparties
		parties := v1.Group("/parties")
		{
			parties.POST("", ledgerHandler.CreateParty)
			parties.GET("", ledgerHandler.ListParties)
		}

		// Audit surface
		auditGroup := v1.Group("/audit")
		{
			auditGroup.GET("/log", auditHandler.Log)
			auditGroup.POST("/verify", auditHandler.Verify)
			auditGroup.GET("/trust", auditHandler.Trust)
			auditGroup.GET("/time-travel", auditHandler.TimeTravel)
		}
		v1.POST("/clock/next", auditHandler.NextClock)

		// Advisory inbox
		proposals := v1.Group("/proposals")
		{
			proposals.GET("", proposalHandler.List)
			proposals.POST("/evaluate", proposalHandler.Evaluate)
			proposals.POST("/:id/dismiss", proposalHandler.Dismiss)
		}
	}

	// Health check endpoint for monitoring
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "timestamp": time.Now().UTC()})
	})

	// Prometheus scrape endpoint backed by the engine's own registry
	r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(m.Registry, promhttp.HandlerOpts{})))
}
