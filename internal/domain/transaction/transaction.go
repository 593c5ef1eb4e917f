package transaction

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/erp-ledger-engine/internal/domain/shared"
)

// TxHeader is the root record of a business transaction. It owns the
// lifecycle status; lines, moves and postings hang off it as separate
// fragments.
type TxHeader struct {
	TxID      string          `json:"tx_id"`
	OrgID     string          `json:"org_id"`
	TxType    shared.TxType   `json:"tx_type"`
	Status    shared.TxStatus `json:"status"`
	PartyID   string          `json:"party_id,omitempty"`
	DocDate   string          `json:"doc_date"`
	Currency  string          `json:"currency"`
	Memo      string          `json:"memo,omitempty"`
	LineIDs   []string        `json:"line_ids"`
	CreatedBy string          `json:"created_by"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}

// TxLine is one item row of a transaction. Quantities and prices are
// decimals; monetary amounts derived from them are rounded to two
// places at posting-generation time, never before.
type TxLine struct {
	LineID          string                 `json:"line_id"`
	TxID            string                 `json:"tx_id"`
	ItemID          string                 `json:"item_id,omitempty"`
	Description     string                 `json:"description,omitempty"`
	Qty             decimal.Decimal        `json:"qty"`
	UnitPrice       decimal.Decimal        `json:"unit_price"`
	TaxRate         decimal.Decimal        `json:"tax_rate"`
	AccountID       string                 `json:"account_id,omitempty"`
	Side            shared.PostingSide     `json:"side,omitempty"`
	InventoryEffect shared.InventoryEffect `json:"inventory_effect"`
	MoveIDs         []string               `json:"move_ids"`
}

// Net is qty * unit_price rounded to two decimal places.
func (l *TxLine) Net() decimal.Decimal {
	return l.Qty.Mul(l.UnitPrice).Round(2)
}

// Tax is the tax portion of the line, rounded to two decimal places.
func (l *TxLine) Tax() decimal.Decimal {
	return l.Net().Mul(l.TaxRate).Round(2)
}

// Gross is net plus tax.
func (l *TxLine) Gross() decimal.Decimal {
	return l.Net().Add(l.Tax())
}

// InvMove records a physical stock movement hanging off a line.
// QtyDelta is signed: positive for goods in, negative for goods out.
type InvMove struct {
	MoveID     string          `json:"move_id"`
	LineID     string          `json:"line_id"`
	TxID       string          `json:"tx_id"`
	ItemID     string          `json:"item_id"`
	LocationID string          `json:"location_id,omitempty"`
	QtyDelta   decimal.Decimal `json:"qty_delta"`
	MovedAt    time.Time       `json:"moved_at"`
}

// Snapshot is the lightweight projection handed back by read endpoints:
// the header plus how much hangs off it.
type Snapshot struct {
	Header    TxHeader `json:"header"`
	LineCount int      `json:"line_count"`
	MoveCount int      `json:"move_count"`
}

// IndexRow is the denormalized listing row kept in the transaction
// index table. It exists purely so list queries never have to scan
// fragments.
type IndexRow struct {
	TxID      string          `json:"tx_id"`
	OrgID     string          `json:"org_id"`
	TxType    shared.TxType   `json:"tx_type"`
	Status    shared.TxStatus `json:"status"`
	PartyID   string          `json:"party_id,omitempty"`
	DocDate   string          `json:"doc_date"`
	MoveCount int             `json:"move_count"`
	UpdatedAt time.Time       `json:"updated_at"`
}

// ListFilter narrows index queries. Zero values mean "any".
type ListFilter struct {
	Status shared.TxStatus
	TxType shared.TxType
	Limit  int
}
