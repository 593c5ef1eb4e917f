package manager

import (
	"context"

	"github.com/google/uuid"

	"github.com/erp-ledger-engine/internal/domain/audit"
	"github.com/erp-ledger-engine/internal/domain/fragment"
	"github.com/erp-ledger-engine/internal/domain/shared"
	"github.com/erp-ledger-engine/internal/domain/transaction"
	"github.com/erp-ledger-engine/internal/engine/envelope"
	"github.com/erp-ledger-engine/internal/engine/lifecycle"
)

// CreateTx opens a new draft transaction.
func (m *Manager) CreateTx(ctx context.Context, actor shared.ActorContext, req *transaction.CreateTxRequest) (*transaction.TxHeader, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	if err := lifecycle.AuthorizeCreate(actor.Role); err != nil {
		return nil, err
	}
	if req.PartyID != "" {
		if _, err := m.store.Get(ctx, fragment.PartyID(req.PartyID)); err != nil {
			if isNotFound(err) {
				return nil, shared.NewValidationError("party %s not found", req.PartyID)
			}
			return nil, err
		}
	}

	now := m.now().UTC()
	hdr := &transaction.TxHeader{
		TxID:      m.newID(),
		OrgID:     actor.OrgID,
		TxType:    req.TxType,
		Status:    shared.TxStatusDraft,
		PartyID:   req.PartyID,
		DocDate:   req.DocDate,
		Currency:  req.Currency,
		Memo:      req.Memo,
		LineIDs:   []string{},
		CreatedBy: actor.Pubkey,
		CreatedAt: now,
		UpdatedAt: now,
	}

	op, err := envelope.SetOp(fragment.TxHeaderID(hdr.TxID), hdr)
	if err != nil {
		return nil, err
	}
	if _, err = m.committer.Commit(ctx, actor, uuid.Nil, []audit.Op{op}, m.indexRow(hdr, 0)); err != nil {
		return nil, err
	}
	m.logger.Info("Created transaction", "tx_id", hdr.TxID, "tx_type", hdr.TxType, "org_id", hdr.OrgID)
	return hdr, nil
}

// AddLine appends an item row to a draft transaction. Lines are frozen
// the moment the draft is proposed.
func (m *Manager) AddLine(ctx context.Context, actor shared.ActorContext, req *transaction.AddLineRequest) (*transaction.TxLine, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	hdr, err := m.loadHeader(ctx, actor.OrgID, req.TxID)
	if err != nil {
		return nil, err
	}
	if err := lineMutable(hdr.Status); err != nil {
		return nil, err
	}
	if !lifecycle.CanCreate(actor.Role) {
		return nil, shared.NewPermissionDenied("role %s cannot edit transaction lines", actor.Role)
	}

	existing, err := m.loadLines(ctx, hdr)
	if err != nil {
		return nil, err
	}

	line := &transaction.TxLine{
		LineID:          m.newID(),
		TxID:            hdr.TxID,
		ItemID:          req.ItemID,
		Description:     req.Description,
		Qty:             req.Qty,
		UnitPrice:       req.UnitPrice,
		TaxRate:         req.TaxRate,
		AccountID:       req.AccountID,
		Side:            req.Side,
		InventoryEffect: req.InventoryEffect,
		MoveIDs:         []string{},
	}

	hdr.LineIDs = append(hdr.LineIDs, line.LineID)
	hdr.UpdatedAt = m.now().UTC()

	lineOp, err := envelope.SetOp(fragment.LineID(line.LineID), line)
	if err != nil {
		return nil, err
	}
	hdrOp, err := envelope.SetOp(fragment.TxHeaderID(hdr.TxID), hdr)
	if err != nil {
		return nil, err
	}
	if _, err = m.committer.Commit(ctx, actor, uuid.Nil, []audit.Op{lineOp, hdrOp}, m.indexRow(hdr, countMoves(existing))); err != nil {
		return nil, err
	}
	return line, nil
}

// CreateInvMove records a stock movement against a line. Moves may be
// recorded any time before the transaction reaches a terminal state, so
// partial fulfilment can trickle in after approval.
func (m *Manager) CreateInvMove(ctx context.Context, actor shared.ActorContext, req *transaction.CreateInvMoveRequest) (*transaction.InvMove, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	hdr, err := m.loadHeader(ctx, actor.OrgID, req.TxID)
	if err != nil {
		return nil, err
	}
	if hdr.Status.Terminal() {
		return nil, shared.NewLineImmutable("transaction %s is %s; inventory moves are frozen", hdr.TxID, hdr.Status)
	}
	if !lifecycle.CanCreate(actor.Role) && actor.Role != shared.RoleStaff {
		return nil, shared.NewPermissionDenied("role %s cannot record inventory moves", actor.Role)
	}

	line, err := m.loadLine(ctx, req.LineID)
	if err != nil {
		return nil, err
	}
	if line.TxID != hdr.TxID {
		return nil, shared.NewValidationError("line %s does not belong to transaction %s", req.LineID, req.TxID)
	}
	if line.ItemID != "" && req.ItemID != line.ItemID {
		return nil, shared.NewItemMismatch("move item %s does not match line item %s", req.ItemID, line.ItemID)
	}
	if sign := line.InventoryEffect.ExpectedSign(); sign == 0 {
		return nil, shared.NewInventoryEffectMismatch("line %s has inventory_effect none; no moves allowed", line.LineID)
	} else if req.QtyDelta.Sign() != sign {
		return nil, shared.NewInventoryEffectMismatch("qty_delta %s conflicts with inventory_effect %s", req.QtyDelta, line.InventoryEffect)
	}

	moves, err := m.loadMoves(ctx, []transaction.TxLine{*line})
	if err != nil {
		return nil, err
	}
	newSum := lineMoveSum(moves, line.LineID).Add(req.QtyDelta.Abs())
	if newSum.GreaterThan(line.Qty.Add(moveTolerance)) {
		return nil, shared.NewMoveQtyExceeds("moved quantity %s would exceed line quantity %s", newSum, line.Qty)
	}

	move := &transaction.InvMove{
		MoveID:     m.newID(),
		LineID:     line.LineID,
		TxID:       hdr.TxID,
		ItemID:     req.ItemID,
		LocationID: req.LocationID,
		QtyDelta:   req.QtyDelta,
		MovedAt:    m.now().UTC(),
	}
	line.MoveIDs = append(line.MoveIDs, move.MoveID)

	moveOp, err := envelope.SetOp(fragment.MoveID(move.MoveID), move)
	if err != nil {
		return nil, err
	}
	lineOp, err := envelope.SetOp(fragment.LineID(line.LineID), line)
	if err != nil {
		return nil, err
	}

	lines, err := m.loadLines(ctx, hdr)
	if err != nil {
		return nil, err
	}
	if _, err = m.committer.Commit(ctx, actor, uuid.Nil, []audit.Op{moveOp, lineOp}, m.indexRow(hdr, countMoves(lines)+1)); err != nil {
		return nil, err
	}
	return move, nil
}

// lineMutable gates line edits on lifecycle state: terminal states are
// an immutability breach, intermediate ones an invalid state.
func lineMutable(status shared.TxStatus) error {
	switch status {
	case shared.TxStatusDraft:
		return nil
	case shared.TxStatusPosted, shared.TxStatusVoid:
		return shared.NewLineImmutable("transaction is %s; lines are immutable", status)
	default:
		return shared.NewInvalidState("lines can only change while draft, transaction is %s", status)
	}
}
