package handler

import (
	"log/slog"

	"github.com/gin-gonic/gin"
)

// AuditHandler handles HTTP requests for the audit surface: reading the
// log, verifying the hash chain and reconstructing historical state
type AuditHandler struct {
	engine EngineService
	logger *slog.Logger
}

// NewAuditHandler creates a new audit handler
func NewAuditHandler(logger *slog.Logger, engine EngineService) *AuditHandler {
	return &AuditHandler{
		engine: engine,
		logger: logger,
	}
}

// Log returns the most recent audit envelopes for the org, oldest first
func (h *AuditHandler) Log(c *gin.Context) {
	actor, ok := actorOrAbort(c)
	if !ok {
		return
	}

	var query AuditLogQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		RespondBadRequest(c, "Invalid query parameters: "+err.Error())
		return
	}

	entries, err := h.engine.AuditLog(c.Request.Context(), actor, query.Limit)
	if err != nil {
		RespondEngineError(c, err)
		return
	}
	RespondOK(c, entries)
}

// Verify walks the full org chain and reports the outcome
func (h *AuditHandler) Verify(c *gin.Context) {
	actor, ok := actorOrAbort(c)
	if !ok {
		return
	}

	result, err := h.engine.VerifyChain(c.Request.Context(), actor)
	if err != nil {
		h.logger.Error("Chain verification request failed", "error", err, "org_id", actor.OrgID)
		RespondEngineError(c, err)
		return
	}
	RespondOK(c, result)
}

// Trust reports the last recorded chain verification outcome without
// re-walking the chain
func (h *AuditHandler) Trust(c *gin.Context) {
	actor, ok := actorOrAbort(c)
	if !ok {
		return
	}

	RespondOK(c, TrustResponse{
		OrgID:  actor.OrgID,
		Intact: h.engine.TrustIntact(actor.OrgID),
	})
}

// TimeTravel rebuilds the ledger summary as it stood at a historical
// cutoff
func (h *AuditHandler) TimeTravel(c *gin.Context) {
	actor, ok := actorOrAbort(c)
	if !ok {
		return
	}

	var query TimeTravelQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		RespondBadRequest(c, "as_of_ms is required: "+err.Error())
		return
	}

	snapshot, err := h.engine.TimeTravel(c.Request.Context(), actor, query.AsOfMs)
	if err != nil {
		RespondEngineError(c, err)
		return
	}
	RespondOK(c, snapshot)
}

// NextClock allocates the next Lamport value for the calling actor.
// Clients that stamp their own mutations fetch one before submitting.
func (h *AuditHandler) NextClock(c *gin.Context) {
	actor, ok := actorOrAbort(c)
	if !ok {
		return
	}

	lamport, err := h.engine.NextClock(c.Request.Context(), actor)
	if err != nil {
		RespondEngineError(c, err)
		return
	}
	RespondOK(c, ClockResponse{Lamport: lamport})
}
