package handler

import (
	"log/slog"

	"github.com/gin-gonic/gin"

	"github.com/erp-ledger-engine/internal/api/middleware"
	"github.com/erp-ledger-engine/internal/domain/shared"
	"github.com/erp-ledger-engine/internal/domain/transaction"
)

// TxHandler handles HTTP requests for transaction lifecycle operations
type TxHandler struct {
	engine EngineService
	logger *slog.Logger
}

// NewTxHandler creates a new transaction handler
func NewTxHandler(logger *slog.Logger, engine EngineService) *TxHandler {
	return &TxHandler{
		engine: engine,
		logger: logger,
	}
}

// actorOrAbort pulls the authenticated actor out of the request scope.
// The auth middleware guarantees it is set on every protected route, so
// a miss here is a routing mistake, not a client error.
func actorOrAbort(c *gin.Context) (shared.ActorContext, bool) {
	actor, ok := middleware.GetActor(c)
	if !ok {
		RespondWithError(c, 500, shared.CodeInternal, "no actor in request scope")
	}
	return actor, ok
}

// Create opens a new draft transaction
func (h *TxHandler) Create(c *gin.Context) {
	actor, ok := actorOrAbort(c)
	if !ok {
		return
	}

	var req transaction.CreateTxRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Error("Invalid request body", "error", err)
		RespondBadRequest(c, "Invalid request body: "+err.Error())
		return
	}

	hdr, err := h.engine.CreateTx(c.Request.Context(), actor, &req)
	if err != nil {
		h.logger.Error("Failed to create transaction", "error", err, "org_id", actor.OrgID)
		RespondEngineError(c, err)
		return
	}
	RespondCreated(c, hdr)
}

// List queries the transaction index with optional filters
func (h *TxHandler) List(c *gin.Context) {
	actor, ok := actorOrAbort(c)
	if !ok {
		return
	}

	var query ListTxsQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		RespondBadRequest(c, "Invalid query parameters: "+err.Error())
		return
	}

	filter := transaction.ListFilter{Limit: query.Limit}
	if query.Status != "" {
		status, err := shared.ParseTxStatus(query.Status)
		if err != nil {
			RespondBadRequest(c, err.Error())
			return
		}
		filter.Status = status
	}
	if query.TxType != "" {
		txType, err := shared.ParseTxType(query.TxType)
		if err != nil {
			RespondBadRequest(c, err.Error())
			return
		}
		filter.TxType = txType
	}

	rows, err := h.engine.ListTxs(c.Request.Context(), actor, filter)
	if err != nil {
		h.logger.Error("Failed to list transactions", "error", err, "org_id", actor.OrgID)
		RespondEngineError(c, err)
		return
	}
	RespondOK(c, rows)
}

// GetByID returns the transaction snapshot: header plus line and move counts
func (h *TxHandler) GetByID(c *gin.Context) {
	actor, ok := actorOrAbort(c)
	if !ok {
		return
	}

	snap, err := h.engine.GetSnapshot(c.Request.Context(), actor, c.Param("id"))
	if err != nil {
		RespondEngineError(c, err)
		return
	}
	RespondOK(c, snap)
}

// GetLines returns the item rows of a transaction
func (h *TxHandler) GetLines(c *gin.Context) {
	actor, ok := actorOrAbort(c)
	if !ok {
		return
	}

	lines, err := h.engine.GetLines(c.Request.Context(), actor, c.Param("id"))
	if err != nil {
		RespondEngineError(c, err)
		return
	}
	RespondOK(c, lines)
}

// AddLine appends an item row to a draft transaction
func (h *TxHandler) AddLine(c *gin.Context) {
	actor, ok := actorOrAbort(c)
	if !ok {
		return
	}

	var req transaction.AddLineRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Error("Invalid request body", "error", err)
		RespondBadRequest(c, "Invalid request body: "+err.Error())
		return
	}
	req.TxID = c.Param("id")

	line, err := h.engine.AddLine(c.Request.Context(), actor, &req)
	if err != nil {
		h.logger.Error("Failed to add line", "error", err, "tx_id", req.TxID)
		RespondEngineError(c, err)
		return
	}
	RespondCreated(c, line)
}

// CreateMove records an inventory movement against a transaction line
func (h *TxHandler) CreateMove(c *gin.Context) {
	actor, ok := actorOrAbort(c)
	if !ok {
		return
	}

	var req transaction.CreateInvMoveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Error("Invalid request body", "error", err)
		RespondBadRequest(c, "Invalid request body: "+err.Error())
		return
	}
	req.TxID = c.Param("id")

	move, err := h.engine.CreateInvMove(c.Request.Context(), actor, &req)
	if err != nil {
		h.logger.Error("Failed to record inventory move", "error", err, "tx_id", req.TxID)
		RespondEngineError(c, err)
		return
	}
	RespondCreated(c, move)
}

// Transition moves a transaction to a new lifecycle status
func (h *TxHandler) Transition(c *gin.Context) {
	actor, ok := actorOrAbort(c)
	if !ok {
		return
	}

	var body TransitionBody
	if err := c.ShouldBindJSON(&body); err != nil {
		RespondBadRequest(c, "Invalid request body: "+err.Error())
		return
	}
	target, err := shared.ParseTxStatus(body.Target)
	if err != nil {
		RespondBadRequest(c, err.Error())
		return
	}

	req := &transaction.TransitionRequest{TxID: c.Param("id"), Target: target}
	hdr, err := h.engine.TransitionStatus(c.Request.Context(), actor, req)
	if err != nil {
		h.logger.Error("Failed to transition transaction",
			"error", err, "tx_id", req.TxID, "target", target)
		RespondEngineError(c, err)
		return
	}
	RespondOK(c, hdr)
}

// Postings previews the double-entry rows for a transaction without
// committing anything
func (h *TxHandler) Postings(c *gin.Context) {
	actor, ok := actorOrAbort(c)
	if !ok {
		return
	}

	rows, err := h.engine.GeneratePostings(c.Request.Context(), actor, c.Param("id"))
	if err != nil {
		RespondEngineError(c, err)
		return
	}
	RespondOK(c, rows)
}
