// Package rules is the deterministic advisory engine. It reads a
// ledger snapshot and emits proposals; it never writes anything. The
// same snapshot always yields the same proposals in the same order.
package rules

import (
	"fmt"
	"sort"

	"github.com/erp-ledger-engine/internal/domain/proposal"
	"github.com/erp-ledger-engine/internal/domain/shared"
	"github.com/erp-ledger-engine/internal/domain/transaction"
)

// StaleDraftThreshold is the draft count at which the accumulation
// anomaly fires.
const StaleDraftThreshold = 3

// TxFact is the per-transaction slice of a snapshot the rules look at.
type TxFact struct {
	TxID      string
	TxType    shared.TxType
	Status    shared.TxStatus
	PartyID   string
	MoveCount int
}

// Snapshot is the read-only org state handed to Evaluate.
type Snapshot struct {
	OrgID        string
	Transactions []TxFact
	AccountCount int
	PostedCount  int
}

// Evaluate runs every rule against the snapshot. Output order is fixed:
// per-transaction rules sorted by transaction id, then org-wide rules.
func Evaluate(snap Snapshot) []proposal.Proposal {
	var out []proposal.Proposal

	facts := append([]TxFact(nil), snap.Transactions...)
	sort.Slice(facts, func(i, j int) bool { return facts[i].TxID < facts[j].TxID })

	draftCount := 0
	for _, fact := range facts {
		if fact.Status == shared.TxStatusDraft {
			draftCount++
		}

		// Issue drafted but nothing picked: likely the stock is not
		// there to issue.
		if fact.TxType == shared.TxTypeStockIssue && fact.Status == shared.TxStatusDraft && fact.MoveCount == 0 {
			out = append(out, proposal.Proposal{
				ID:          "rules-reorder-" + fact.TxID,
				OrgID:       snap.OrgID,
				Kind:        proposal.KindReorder,
				Title:       "Possible Stock Shortage",
				Rationale:   fmt.Sprintf("Draft stock issue %s has no inventory movements recorded. Consider raising a purchase order.", fact.TxID),
				SourceTxID:  fact.TxID,
				PayloadKind: proposal.PayloadNone,
			})
		}

		// Goods went out under a draft invoice: suggest the matching
		// outbound invoice so billing keeps up with shipping.
		if fact.TxType == shared.TxTypeInvoiceOut && fact.Status == shared.TxStatusDraft && fact.MoveCount >= 1 {
			out = append(out, proposal.Proposal{
				ID:          "rules-invoice-" + fact.TxID,
				OrgID:       snap.OrgID,
				Kind:        proposal.KindDraftInvoice,
				Title:       "Shipped Goods Await Invoicing",
				Rationale:   fmt.Sprintf("Draft invoice %s already has goods movements. Propose it for approval so revenue is recognized.", fact.TxID),
				SourceTxID:  fact.TxID,
				PayloadKind: proposal.PayloadCreateTx,
				CreateTx: &transaction.CreateTxRequest{
					TxType:  shared.TxTypeInvoiceOut,
					PartyID: fact.PartyID,
				},
			})
		}
	}

	if draftCount >= StaleDraftThreshold {
		out = append(out, proposal.Proposal{
			ID:          "rules-anomaly-stale-drafts",
			OrgID:       snap.OrgID,
			Kind:        proposal.KindAnomalyFlag,
			Title:       "Stale Draft Accumulation",
			Rationale:   fmt.Sprintf("%d transactions remain in draft. Review or void stale entries.", draftCount),
			PayloadKind: proposal.PayloadNone,
		})
	}

	if snap.AccountCount == 0 {
		out = append(out, proposal.Proposal{
			ID:          "rules-coa-missing",
			OrgID:       snap.OrgID,
			Kind:        proposal.KindBriefing,
			Title:       "Chart of Accounts Not Seeded",
			Rationale:   "No accounts are defined. Seed a chart-of-accounts template to enable double-entry posting.",
			PayloadKind: proposal.PayloadNone,
		})
	}

	if len(out) == 0 {
		out = append(out, proposal.Proposal{
			ID:          "rules-briefing-healthy",
			OrgID:       snap.OrgID,
			Kind:        proposal.KindBriefing,
			Title:       "Ledger Looks Healthy",
			Rationale:   fmt.Sprintf("%d total transactions, %d posted. No anomalies detected.", len(facts), snap.PostedCount),
			PayloadKind: proposal.PayloadNone,
		})
	}

	return out
}
