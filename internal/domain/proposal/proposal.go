package proposal

import (
	"context"
	"time"

	"github.com/erp-ledger-engine/internal/domain/transaction"
)

// Kind names the advisory rule that produced a proposal.
type Kind string

const (
	KindReorder      Kind = "reorder_proposal"
	KindDraftInvoice Kind = "draft_invoice"
	KindAnomalyFlag  Kind = "anomaly_flag"
	KindBriefing     Kind = "briefing"
)

// PayloadKind tags the optional action payload a proposal carries.
type PayloadKind string

const (
	// PayloadNone marks purely informational proposals.
	PayloadNone PayloadKind = "none"
	// PayloadCreateTx marks proposals whose payload is a ready-to-submit
	// transaction request. Accepting it still goes through the normal
	// create path; nothing here writes to the ledger.
	PayloadCreateTx PayloadKind = "create_tx"
)

// Proposal is advisory output. Proposals never mutate ledger state;
// they are suggestions a human may act on through the ordinary
// operations.
type Proposal struct {
	ID             string                        `json:"id"`
	OrgID          string                        `json:"org_id"`
	Kind           Kind                          `json:"kind"`
	Title          string                        `json:"title"`
	Rationale      string                        `json:"rationale"`
	SourceTxID     string                        `json:"source_tx_id,omitempty"`
	PayloadKind    PayloadKind                   `json:"payload_kind"`
	CreateTx       *transaction.CreateTxRequest  `json:"create_tx,omitempty"`
	Dismissed      bool                          `json:"dismissed"`
	EvaluatedAtMs  int64                         `json:"evaluated_at_ms"`
	LastRefreshed  time.Time                     `json:"last_refreshed"`
}

// Repository stores evaluated proposals in the advisory inbox. The
// inbox lives outside the ledger store on purpose: losing it loses
// nothing authoritative.
type Repository interface {
	Upsert(ctx context.Context, p *Proposal) error
	ListByOrg(ctx context.Context, orgID string, includeDismissed bool) ([]Proposal, error)
	Dismiss(ctx context.Context, orgID, id string) error
	DeleteStale(ctx context.Context, orgID string, before time.Time) (int64, error)
}

// ErrNotFound indicates a missing proposal.
type ErrNotFound struct {
	ID string
}

func (e ErrNotFound) Error() string {
	return "proposal not found: " + e.ID
}
