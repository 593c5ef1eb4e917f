package manager

import (
	"context"

	"github.com/google/uuid"

	"github.com/erp-ledger-engine/internal/domain/audit"
	"github.com/erp-ledger-engine/internal/domain/fragment"
	"github.com/erp-ledger-engine/internal/domain/ledger"
	"github.com/erp-ledger-engine/internal/domain/shared"
	"github.com/erp-ledger-engine/internal/domain/transaction"
	"github.com/erp-ledger-engine/internal/engine/envelope"
	"github.com/erp-ledger-engine/internal/engine/lifecycle"
	"github.com/erp-ledger-engine/internal/engine/postings"
)

// TransitionStatus moves a transaction along its lifecycle. Posting is
// special-cased through PostTx because it finalizes postings atomically
// with the status flip.
func (m *Manager) TransitionStatus(ctx context.Context, actor shared.ActorContext, req *transaction.TransitionRequest) (*transaction.TxHeader, error) {
	if req.Target == shared.TxStatusPosted {
		return m.PostTx(ctx, actor, req.TxID)
	}

	hdr, err := m.loadHeader(ctx, actor.OrgID, req.TxID)
	if err != nil {
		return nil, err
	}
	if err := lifecycle.Authorize(hdr.Status, req.Target, actor.Role); err != nil {
		return nil, err
	}

	ops := make([]audit.Op, 0, 2)
	switch req.Target {
	case shared.TxStatusProposed:
		if len(hdr.LineIDs) == 0 {
			return nil, shared.NewValidationError("transaction %s has no lines to propose", hdr.TxID)
		}

	case shared.TxStatusApproved:
		lines, err := m.loadLines(ctx, hdr)
		if err != nil {
			return nil, err
		}
		moves, err := m.loadMoves(ctx, lines)
		if err != nil {
			return nil, err
		}
		rows, err := m.generator.Generate(hdr, lines, len(moves) > 0)
		if err != nil {
			return nil, err
		}
		if len(rows) == 0 {
			return nil, shared.NewPostingsMissing("transaction %s produced no postings", hdr.TxID)
		}
		// Balance re-verified by Generate; keep the preview alongside
		// the approval so reviewers see what will hit the ledger.
		previewOp, err := envelope.SetOp(fragment.TxPostingsID(hdr.TxID), rows)
		if err != nil {
			return nil, err
		}
		ops = append(ops, previewOp)

	case shared.TxStatusVoid:
		// No extra preconditions: void simply parks the transaction.

	default:
		return nil, shared.NewInvalidState("cannot transition to %s", req.Target)
	}

	hdr.Status = req.Target
	hdr.UpdatedAt = m.now().UTC()
	hdrOp, err := envelope.SetOp(fragment.TxHeaderID(hdr.TxID), hdr)
	if err != nil {
		return nil, err
	}
	ops = append(ops, hdrOp)

	lines, err := m.loadLines(ctx, hdr)
	if err != nil {
		return nil, err
	}
	if _, err = m.committer.Commit(ctx, actor, uuid.Nil, ops, m.indexRow(hdr, countMoves(lines))); err != nil {
		return nil, err
	}
	m.logger.Info("Transitioned transaction", "tx_id", hdr.TxID, "status", hdr.Status, "org_id", hdr.OrgID)
	return hdr, nil
}

// GeneratePostings previews the double-entry rows for a transaction
// without committing anything.
func (m *Manager) GeneratePostings(ctx context.Context, actor shared.ActorContext, txID string) ([]ledger.Posting, error) {
	hdr, err := m.loadHeader(ctx, actor.OrgID, txID)
	if err != nil {
		return nil, err
	}
	lines, err := m.loadLines(ctx, hdr)
	if err != nil {
		return nil, err
	}
	moves, err := m.loadMoves(ctx, lines)
	if err != nil {
		return nil, err
	}
	rows, err := m.generator.Generate(hdr, lines, len(moves) > 0)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, shared.NewPostingsMissing("transaction %s produced no postings", txID)
	}
	m.metrics.PostingsGenerated.Inc()
	return rows, nil
}

// PostTx performs the terminal posting step: re-derives the postings,
// re-verifies balance and fulfilment against current state, then writes
// the final rows and the posted status in one envelope. Nothing is
// persisted when any check fails.
func (m *Manager) PostTx(ctx context.Context, actor shared.ActorContext, txID string) (*transaction.TxHeader, error) {
	hdr, err := m.loadHeader(ctx, actor.OrgID, txID)
	if err != nil {
		return nil, err
	}
	if err := lifecycle.Authorize(hdr.Status, shared.TxStatusPosted, actor.Role); err != nil {
		return nil, err
	}

	lines, err := m.loadLines(ctx, hdr)
	if err != nil {
		return nil, err
	}
	moves, err := m.loadMoves(ctx, lines)
	if err != nil {
		return nil, err
	}
	if err := validateFulfilment(hdr, lines, moves); err != nil {
		return nil, err
	}

	rows, err := m.generator.Generate(hdr, lines, len(moves) > 0)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, shared.NewPostingsMissing("transaction %s produced no postings", txID)
	}
	if err := postings.ValidateBalance(rows); err != nil {
		return nil, err
	}

	final := finalizedPostings(rows)
	ops := make([]audit.Op, 0, len(final)+2)
	for i := range final {
		op, err := envelope.SetOp(fragment.PostingID(final[i].PostingID), &final[i])
		if err != nil {
			return nil, err
		}
		ops = append(ops, op)
	}
	setOp, err := envelope.SetOp(fragment.TxPostingsID(hdr.TxID), final)
	if err != nil {
		return nil, err
	}
	ops = append(ops, setOp)

	hdr.Status = shared.TxStatusPosted
	hdr.UpdatedAt = m.now().UTC()
	hdrOp, err := envelope.SetOp(fragment.TxHeaderID(hdr.TxID), hdr)
	if err != nil {
		return nil, err
	}
	ops = append(ops, hdrOp)

	if _, err = m.committer.Commit(ctx, actor, uuid.Nil, ops, m.indexRow(hdr, len(moves))); err != nil {
		return nil, err
	}
	m.metrics.TxPosted.Inc()
	m.logger.Info("Posted transaction", "tx_id", hdr.TxID, "org_id", hdr.OrgID, "postings", len(final))
	return hdr, nil
}

// validateFulfilment re-checks inventory movements at post time:
// inventory-bearing types need at least one move, per-line movement
// may not exceed the line quantity, and directions and items must
// match their lines.
func validateFulfilment(hdr *transaction.TxHeader, lines []transaction.TxLine, moves []transaction.InvMove) error {
	inventoryBearing := hdr.TxType == shared.TxTypeInvoiceOut || hdr.TxType == shared.TxTypeStockReceipt
	if inventoryBearing && len(moves) == 0 {
		return shared.NewValidationError("%s requires at least one linked inventory move", hdr.TxType)
	}

	byLine := make(map[string]*transaction.TxLine, len(lines))
	for i := range lines {
		byLine[lines[i].LineID] = &lines[i]
	}

	for i := range moves {
		move := &moves[i]
		line, ok := byLine[move.LineID]
		if !ok {
			return shared.NewValidationError("move %s references unknown line %s", move.MoveID, move.LineID)
		}
		if line.ItemID != "" && move.ItemID != line.ItemID {
			return shared.NewItemMismatch("move item %s does not match line item %s", move.ItemID, line.ItemID)
		}
		if sign := line.InventoryEffect.ExpectedSign(); sign != 0 && move.QtyDelta.Sign() != sign {
			return shared.NewInventoryEffectMismatch("qty_delta %s conflicts with inventory_effect %s", move.QtyDelta, line.InventoryEffect)
		}
	}

	for i := range lines {
		line := &lines[i]
		if sum := lineMoveSum(moves, line.LineID); sum.GreaterThan(line.Qty.Add(moveTolerance)) {
			return shared.NewMoveQtyExceeds("moved quantity %s exceeds line quantity %s", sum, line.Qty)
		}
	}
	return nil
}
