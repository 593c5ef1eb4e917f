package rules

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/erp-ledger-engine/internal/domain/proposal"
	"github.com/erp-ledger-engine/internal/domain/shared"
)

func kinds(proposals []proposal.Proposal) []proposal.Kind {
	out := make([]proposal.Kind, len(proposals))
	for i, p := range proposals {
		out[i] = p.Kind
	}
	return out
}

func TestEvaluate(t *testing.T) {
	base := Snapshot{OrgID: "org1", AccountCount: 12, PostedCount: 4}

	t.Run("draft stock issue without moves suggests reorder", func(t *testing.T) {
		snap := base
		snap.Transactions = []TxFact{
			{TxID: "t1", TxType: shared.TxTypeStockIssue, Status: shared.TxStatusDraft, MoveCount: 0},
		}
		out := Evaluate(snap)
		require.Len(t, out, 1)
		assert.Equal(t, proposal.KindReorder, out[0].Kind)
		assert.Equal(t, "t1", out[0].SourceTxID)
		assert.Equal(t, proposal.PayloadNone, out[0].PayloadKind)
	})

	t.Run("issue with moves stays quiet", func(t *testing.T) {
		snap := base
		snap.Transactions = []TxFact{
			{TxID: "t1", TxType: shared.TxTypeStockIssue, Status: shared.TxStatusDraft, MoveCount: 2},
		}
		out := Evaluate(snap)
		require.Len(t, out, 1)
		assert.Equal(t, proposal.KindBriefing, out[0].Kind)
	})

	t.Run("shipped draft invoice carries an actionable payload", func(t *testing.T) {
		snap := base
		snap.Transactions = []TxFact{
			{TxID: "t2", TxType: shared.TxTypeInvoiceOut, Status: shared.TxStatusDraft, PartyID: "p9", MoveCount: 1},
		}
		out := Evaluate(snap)
		require.Len(t, out, 1)
		assert.Equal(t, proposal.KindDraftInvoice, out[0].Kind)
		assert.Equal(t, proposal.PayloadCreateTx, out[0].PayloadKind)
		require.NotNil(t, out[0].CreateTx)
		assert.Equal(t, shared.TxTypeInvoiceOut, out[0].CreateTx.TxType)
		assert.Equal(t, "p9", out[0].CreateTx.PartyID)
	})

	t.Run("three drafts trip the anomaly flag", func(t *testing.T) {
		snap := base
		snap.Transactions = []TxFact{
			{TxID: "t1", TxType: shared.TxTypeJournal, Status: shared.TxStatusDraft},
			{TxID: "t2", TxType: shared.TxTypeJournal, Status: shared.TxStatusDraft},
			{TxID: "t3", TxType: shared.TxTypeJournal, Status: shared.TxStatusDraft},
		}
		out := Evaluate(snap)
		require.Len(t, out, 1)
		assert.Equal(t, proposal.KindAnomalyFlag, out[0].Kind)
	})

	t.Run("two drafts do not", func(t *testing.T) {
		snap := base
		snap.Transactions = []TxFact{
			{TxID: "t1", TxType: shared.TxTypeJournal, Status: shared.TxStatusDraft},
			{TxID: "t2", TxType: shared.TxTypeJournal, Status: shared.TxStatusDraft},
		}
		assert.Equal(t, []proposal.Kind{proposal.KindBriefing}, kinds(Evaluate(snap)))
	})

	t.Run("empty chart of accounts produces a briefing", func(t *testing.T) {
		snap := Snapshot{OrgID: "org1", AccountCount: 0}
		out := Evaluate(snap)
		require.Len(t, out, 1)
		assert.Equal(t, proposal.KindBriefing, out[0].Kind)
		assert.Equal(t, "rules-coa-missing", out[0].ID)
	})

	t.Run("quiet ledger yields the healthy briefing", func(t *testing.T) {
		out := Evaluate(base)
		require.Len(t, out, 1)
		assert.Equal(t, "rules-briefing-healthy", out[0].ID)
	})

	t.Run("output is deterministic regardless of input order", func(t *testing.T) {
		forward := base
		forward.Transactions = []TxFact{
			{TxID: "a", TxType: shared.TxTypeStockIssue, Status: shared.TxStatusDraft},
			{TxID: "b", TxType: shared.TxTypeStockIssue, Status: shared.TxStatusDraft},
		}
		backward := base
		backward.Transactions = []TxFact{forward.Transactions[1], forward.Transactions[0]}

		assert.Equal(t, Evaluate(forward), Evaluate(backward))
	})

	t.Run("posted and void transactions trigger nothing", func(t *testing.T) {
		snap := base
		snap.Transactions = []TxFact{
			{TxID: "t1", TxType: shared.TxTypeStockIssue, Status: shared.TxStatusPosted},
			{TxID: "t2", TxType: shared.TxTypeInvoiceOut, Status: shared.TxStatusVoid, MoveCount: 2},
		}
		assert.Equal(t, []proposal.Kind{proposal.KindBriefing}, kinds(Evaluate(snap)))
	})
}
