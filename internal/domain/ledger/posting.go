package ledger

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/erp-ledger-engine/internal/domain/shared"
)

// PostingStatus distinguishes preview rows computed at approval time
// from the immutable rows written when a transaction posts.
type PostingStatus string

const (
	PostingStatusDraft PostingStatus = "draft"
	PostingStatusFinal PostingStatus = "final"
)

// GeneratedBy value stamped on every machine-derived posting.
const GeneratedByEngine = "engine"

// Posting is one side of a double-entry. Exactly one of Debit and
// Credit is non-zero.
type Posting struct {
	PostingID   string          `json:"posting_id"`
	TxID        string          `json:"tx_id"`
	OrgID       string          `json:"org_id"`
	AccountID   string          `json:"account_id"`
	Debit       decimal.Decimal `json:"debit"`
	Credit      decimal.Decimal `json:"credit"`
	Currency    string          `json:"currency"`
	Description string          `json:"description,omitempty"`
	Status      PostingStatus   `json:"status"`
	GeneratedBy string          `json:"generated_by"`
	CreatedAt   time.Time       `json:"created_at"`
}

// Account is a chart-of-accounts entry, stored as its own fragment
// keyed by code.
type Account struct {
	Code          string               `json:"code"`
	Name          string               `json:"name"`
	Type          shared.AccountType   `json:"type"`
	NormalBalance shared.NormalBalance `json:"normal_balance"`
	OrgID         string               `json:"org_id"`
	CreatedAt     time.Time            `json:"created_at"`
}

// AccountBalance is one aggregated row of a ledger summary.
type AccountBalance struct {
	AccountID string          `json:"account_id"`
	Name      string          `json:"name,omitempty"`
	Debit     decimal.Decimal `json:"debit"`
	Credit    decimal.Decimal `json:"credit"`
	Net       decimal.Decimal `json:"net"`
}

// Summary aggregates final postings per account for one org.
type Summary struct {
	OrgID       string           `json:"org_id"`
	Accounts    []AccountBalance `json:"accounts"`
	TotalDebit  decimal.Decimal  `json:"total_debit"`
	TotalCredit decimal.Decimal  `json:"total_credit"`
}
