package handler

import (
	"log/slog"

	"github.com/gin-gonic/gin"

	"github.com/erp-ledger-engine/internal/domain/party"
)

// LedgerHandler handles HTTP requests for the chart of accounts, the
// ledger summary, and counterparties
type LedgerHandler struct {
	engine EngineService
	logger *slog.Logger
}

// NewLedgerHandler creates a new ledger handler
func NewLedgerHandler(logger *slog.Logger, engine EngineService) *LedgerHandler {
	return &LedgerHandler{
		engine: engine,
		logger: logger,
	}
}

// SeedCoA loads a chart-of-accounts template for the org
func (h *LedgerHandler) SeedCoA(c *gin.Context) {
	actor, ok := actorOrAbort(c)
	if !ok {
		return
	}

	var body SeedCoABody
	if err := c.ShouldBindJSON(&body); err != nil {
		RespondBadRequest(c, "Invalid request body: "+err.Error())
		return
	}

	accounts, err := h.engine.SeedCoA(c.Request.Context(), actor, body.Template)
	if err != nil {
		h.logger.Error("Failed to seed chart of accounts",
			"error", err, "org_id", actor.OrgID, "template", body.Template)
		RespondEngineError(c, err)
		return
	}
	RespondCreated(c, accounts)
}

// ListAccounts returns the org's chart of accounts sorted by code
func (h *LedgerHandler) ListAccounts(c *gin.Context) {
	actor, ok := actorOrAbort(c)
	if !ok {
		return
	}

	accounts, err := h.engine.ListAccounts(c.Request.Context(), actor)
	if err != nil {
		RespondEngineError(c, err)
		return
	}
	RespondOK(c, accounts)
}

// Summary aggregates final postings per account
func (h *LedgerHandler) Summary(c *gin.Context) {
	actor, ok := actorOrAbort(c)
	if !ok {
		return
	}

	summary, err := h.engine.LedgerSummary(c.Request.Context(), actor)
	if err != nil {
		RespondEngineError(c, err)
		return
	}
	RespondOK(c, summary)
}

// CreateParty registers a counterparty
func (h *LedgerHandler) CreateParty(c *gin.Context) {
	actor, ok := actorOrAbort(c)
	if !ok {
		return
	}

	var req party.CreatePartyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondBadRequest(c, "Invalid request body: "+err.Error())
		return
	}

	p, err := h.engine.CreateParty(c.Request.Context(), actor, &req)
	if err != nil {
		h.logger.Error("Failed to create party", "error", err, "org_id", actor.OrgID)
		RespondEngineError(c, err)
		return
	}
	RespondCreated(c, p)
}

// ListParties returns the org's counterparties sorted by name
func (h *LedgerHandler) ListParties(c *gin.Context) {
	actor, ok := actorOrAbort(c)
	if !ok {
		return
	}

	parties, err := h.engine.ListParties(c.Request.Context(), actor)
	if err != nil {
		RespondEngineError(c, err)
		return
	}
	RespondOK(c, parties)
}
