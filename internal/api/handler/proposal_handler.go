package handler

import (
	"errors"
	"log/slog"

	"github.com/gin-gonic/gin"

	"github.com/erp-ledger-engine/internal/domain/proposal"
	"github.com/erp-ledger-engine/internal/domain/shared"
)

// ProposalHandler serves the advisory inbox. Listing and dismissal go
// against the persisted inbox; evaluation runs the rules on demand
// without touching it.
type ProposalHandler struct {
	engine EngineService
	inbox  proposal.Repository
	logger *slog.Logger
}

// NewProposalHandler creates a new proposal handler
func NewProposalHandler(logger *slog.Logger, engine EngineService, inbox proposal.Repository) *ProposalHandler {
	return &ProposalHandler{
		engine: engine,
		inbox:  inbox,
		logger: logger,
	}
}

// List returns the org's persisted proposals, newest first
func (h *ProposalHandler) List(c *gin.Context) {
	actor, ok := actorOrAbort(c)
	if !ok {
		return
	}

	var query ProposalsQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		RespondBadRequest(c, "Invalid query parameters: "+err.Error())
		return
	}

	proposals, err := h.inbox.ListByOrg(c.Request.Context(), actor.OrgID, query.IncludeDismissed)
	if err != nil {
		h.logger.Error("Failed to list proposals", "error", err, "org_id", actor.OrgID)
		RespondEngineError(c, err)
		return
	}
	RespondOK(c, proposals)
}

// Evaluate runs the advisory rules against current org state and
// returns the results without persisting them
func (h *ProposalHandler) Evaluate(c *gin.Context) {
	actor, ok := actorOrAbort(c)
	if !ok {
		return
	}

	proposals, err := h.engine.EvaluateProposals(c.Request.Context(), actor)
	if err != nil {
		RespondEngineError(c, err)
		return
	}
	RespondOK(c, proposals)
}

// Dismiss marks a persisted proposal as dismissed
func (h *ProposalHandler) Dismiss(c *gin.Context) {
	actor, ok := actorOrAbort(c)
	if !ok {
		return
	}

	id := c.Param("id")
	if err := h.inbox.Dismiss(c.Request.Context(), actor.OrgID, id); err != nil {
		var notFound proposal.ErrNotFound
		if errors.As(err, &notFound) {
			RespondEngineError(c, shared.NewNotFound("proposal %s not found", id))
			return
		}
		h.logger.Error("Failed to dismiss proposal", "error", err, "proposal_id", id)
		RespondEngineError(c, err)
		return
	}
	RespondOK(c, gin.H{"dismissed": id})
}
