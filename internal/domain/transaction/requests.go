package transaction

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/erp-ledger-engine/internal/domain/shared"
)

// CreateTxRequest carries everything needed to open a draft transaction.
type CreateTxRequest struct {
	TxType   shared.TxType `json:"tx_type"`
	PartyID  string        `json:"party_id,omitempty"`
	DocDate  string        `json:"doc_date"`
	Currency string        `json:"currency"`
	Memo     string        `json:"memo,omitempty"`
}

// Validate checks field-level constraints before any persistence work.
func (r *CreateTxRequest) Validate() error {
	if _, err := shared.ParseTxType(string(r.TxType)); err != nil {
		return shared.NewValidationError("tx_type: %v", err)
	}
	if len(r.Currency) != 3 || r.Currency != strings.ToUpper(r.Currency) {
		return shared.NewValidationError("currency must be a 3-letter uppercase code, got %q", r.Currency)
	}
	if _, err := time.Parse("2006-01-02", r.DocDate); err != nil {
		return shared.NewValidationError("doc_date must be YYYY-MM-DD, got %q", r.DocDate)
	}
	return nil
}

// AddLineRequest appends an item row to a draft transaction.
type AddLineRequest struct {
	TxID            string                 `json:"tx_id"`
	ItemID          string                 `json:"item_id,omitempty"`
	Description     string                 `json:"description,omitempty"`
	Qty             decimal.Decimal        `json:"qty"`
	UnitPrice       decimal.Decimal        `json:"unit_price"`
	TaxRate         decimal.Decimal        `json:"tax_rate"`
	AccountID       string                 `json:"account_id,omitempty"`
	Side            shared.PostingSide     `json:"side,omitempty"`
	InventoryEffect shared.InventoryEffect `json:"inventory_effect"`
}

// Validate checks field-level line constraints. Quantity must be
// strictly positive, price non-negative and tax_rate within [0, 1].
func (r *AddLineRequest) Validate() error {
	if r.TxID == "" {
		return shared.NewValidationError("tx_id is required")
	}
	if !r.Qty.IsPositive() {
		return shared.NewValidationError("qty must be > 0, got %s", r.Qty)
	}
	if r.UnitPrice.IsNegative() {
		return shared.NewValidationError("unit_price must be >= 0, got %s", r.UnitPrice)
	}
	if r.TaxRate.IsNegative() || r.TaxRate.GreaterThan(decimal.NewFromInt(1)) {
		return shared.NewValidationError("tax_rate must be within [0, 1], got %s", r.TaxRate)
	}
	if _, err := shared.ParseInventoryEffect(string(r.InventoryEffect)); err != nil {
		return shared.NewValidationError("inventory_effect: %v", err)
	}
	if r.Side != "" && r.Side != shared.PostingSideDebit && r.Side != shared.PostingSideCredit {
		return shared.NewValidationError("side must be debit or credit, got %q", r.Side)
	}
	return nil
}

// CreateInvMoveRequest records a stock movement against a line.
type CreateInvMoveRequest struct {
	TxID       string          `json:"tx_id"`
	LineID     string          `json:"line_id"`
	ItemID     string          `json:"item_id"`
	LocationID string          `json:"location_id,omitempty"`
	QtyDelta   decimal.Decimal `json:"qty_delta"`
}

// Validate checks field-level move constraints.
func (r *CreateInvMoveRequest) Validate() error {
	if r.TxID == "" || r.LineID == "" {
		return shared.NewValidationError("tx_id and line_id are required")
	}
	if r.ItemID == "" {
		return shared.NewValidationError("item_id is required")
	}
	if r.QtyDelta.IsZero() {
		return shared.NewValidationError("qty_delta must be non-zero")
	}
	return nil
}

// TransitionRequest asks the engine to move a transaction to a new
// lifecycle status.
type TransitionRequest struct {
	TxID   string          `json:"tx_id"`
	Target shared.TxStatus `json:"target"`
}
