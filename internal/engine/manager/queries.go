package manager

import (
	"context"
	"encoding/json"
	"sort"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/erp-ledger-engine/internal/domain/audit"
	"github.com/erp-ledger-engine/internal/domain/fragment"
	"github.com/erp-ledger-engine/internal/domain/ledger"
	"github.com/erp-ledger-engine/internal/domain/party"
	"github.com/erp-ledger-engine/internal/domain/proposal"
	"github.com/erp-ledger-engine/internal/domain/shared"
	"github.com/erp-ledger-engine/internal/domain/transaction"
	"github.com/erp-ledger-engine/internal/engine/chain"
	"github.com/erp-ledger-engine/internal/engine/coa"
	"github.com/erp-ledger-engine/internal/engine/envelope"
	"github.com/erp-ledger-engine/internal/engine/lifecycle"
	"github.com/erp-ledger-engine/internal/engine/rules"
)

// GetSnapshot returns the header plus line and move counts.
func (m *Manager) GetSnapshot(ctx context.Context, actor shared.ActorContext, txID string) (*transaction.Snapshot, error) {
	hdr, err := m.loadHeader(ctx, actor.OrgID, txID)
	if err != nil {
		return nil, err
	}
	lines, err := m.loadLines(ctx, hdr)
	if err != nil {
		return nil, err
	}
	return &transaction.Snapshot{
		Header:    *hdr,
		LineCount: len(lines),
		MoveCount: countMoves(lines),
	}, nil
}

// GetLines returns the item rows of a transaction.
func (m *Manager) GetLines(ctx context.Context, actor shared.ActorContext, txID string) ([]transaction.TxLine, error) {
	hdr, err := m.loadHeader(ctx, actor.OrgID, txID)
	if err != nil {
		return nil, err
	}
	return m.loadLines(ctx, hdr)
}

// ListTxs queries the transaction index.
func (m *Manager) ListTxs(ctx context.Context, actor shared.ActorContext, filter transaction.ListFilter) ([]transaction.IndexRow, error) {
	return m.index.List(ctx, actor.OrgID, filter)
}

// SeedCoA loads a chart-of-accounts template for the org. Seeding an
// org that already has accounts is rejected so codes stay stable.
func (m *Manager) SeedCoA(ctx context.Context, actor shared.ActorContext, template string) ([]ledger.Account, error) {
	if actor.Role != shared.RoleOwnerAdmin && actor.Role != shared.RoleFinance {
		return nil, shared.NewPermissionDenied("role %s cannot seed the chart of accounts", actor.Role)
	}
	existing, err := m.accountCount(ctx, actor.OrgID)
	if err != nil {
		return nil, err
	}
	if existing > 0 {
		return nil, shared.NewInvalidState("chart of accounts already seeded (%d accounts)", existing)
	}

	accounts, err := coa.Accounts(template, actor.OrgID)
	if err != nil {
		return nil, err
	}
	now := m.now().UTC()
	ops := make([]audit.Op, 0, len(accounts))
	for i := range accounts {
		accounts[i].CreatedAt = now
		op, err := envelope.SetOp(fragment.AccountID(accounts[i].Code), &accounts[i])
		if err != nil {
			return nil, err
		}
		ops = append(ops, op)
	}
	if _, err = m.committer.Commit(ctx, actor, uuid.Nil, ops, nil); err != nil {
		return nil, err
	}
	m.logger.Info("Seeded chart of accounts", "org_id", actor.OrgID, "template", template, "accounts", len(accounts))
	return accounts, nil
}

// ListAccounts returns the org's chart of accounts sorted by code.
func (m *Manager) ListAccounts(ctx context.Context, actor shared.ActorContext) ([]ledger.Account, error) {
	raw, err := m.store.List(ctx, actor.OrgID, fragment.PrefixAccount)
	if err != nil {
		return nil, err
	}
	accounts := make([]ledger.Account, 0, len(raw))
	for _, value := range raw {
		var account ledger.Account
		if err := json.Unmarshal(value, &account); err != nil {
			return nil, err
		}
		accounts = append(accounts, account)
	}
	sort.Slice(accounts, func(i, j int) bool { return accounts[i].Code < accounts[j].Code })
	return accounts, nil
}

// LedgerSummary aggregates final postings per account.
func (m *Manager) LedgerSummary(ctx context.Context, actor shared.ActorContext) (*ledger.Summary, error) {
	raw, err := m.store.List(ctx, actor.OrgID, fragment.PrefixPosting)
	if err != nil {
		return nil, err
	}
	accounts, err := m.ListAccounts(ctx, actor)
	if err != nil {
		return nil, err
	}
	// Journal postings reference chart-of-accounts codes; template
	// postings reference symbolic ids, which have no chart entry and
	// get a name rendered from the id instead.
	names := make(map[string]string, len(accounts))
	for _, a := range accounts {
		names[a.Code] = a.Name
	}

	byAccount := make(map[string]*ledger.AccountBalance)
	summary := &ledger.Summary{
		OrgID:       actor.OrgID,
		TotalDebit:  decimal.Zero,
		TotalCredit: decimal.Zero,
	}
	for _, value := range raw {
		var row ledger.Posting
		if err := json.Unmarshal(value, &row); err != nil {
			return nil, err
		}
		if row.Status != ledger.PostingStatusFinal {
			continue
		}
		balance, ok := byAccount[row.AccountID]
		if !ok {
			name := names[row.AccountID]
			if name == "" {
				name = accountDisplayName(row.AccountID)
			}
			balance = &ledger.AccountBalance{
				AccountID: row.AccountID,
				Name:      name,
				Debit:     decimal.Zero,
				Credit:    decimal.Zero,
			}
			byAccount[row.AccountID] = balance
		}
		balance.Debit = balance.Debit.Add(row.Debit)
		balance.Credit = balance.Credit.Add(row.Credit)
		summary.TotalDebit = summary.TotalDebit.Add(row.Debit)
		summary.TotalCredit = summary.TotalCredit.Add(row.Credit)
	}

	for _, balance := range byAccount {
		balance.Net = balance.Debit.Sub(balance.Credit)
		summary.Accounts = append(summary.Accounts, *balance)
	}
	sort.Slice(summary.Accounts, func(i, j int) bool {
		return summary.Accounts[i].AccountID < summary.Accounts[j].AccountID
	})
	return summary, nil
}

// accountDisplayName renders a symbolic posting account id, e.g.
// "accounts_receivable" becomes "Accounts Receivable".
func accountDisplayName(accountID string) string {
	words := strings.Split(accountID, "_")
	for i, w := range words {
		if w == "" {
			continue
		}
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return strings.Join(words, " ")
}

// CreateParty registers a counterparty.
func (m *Manager) CreateParty(ctx context.Context, actor shared.ActorContext, req *party.CreatePartyRequest) (*party.Party, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	if !lifecycle.CanCreate(actor.Role) {
		return nil, shared.NewPermissionDenied("role %s cannot create parties", actor.Role)
	}

	p := &party.Party{
		PartyID:   m.newID(),
		OrgID:     actor.OrgID,
		Name:      req.Name,
		Kind:      req.Kind,
		TaxID:     req.TaxID,
		Email:     req.Email,
		CreatedAt: m.now().UTC(),
	}
	op, err := envelope.SetOp(fragment.PartyID(p.PartyID), p)
	if err != nil {
		return nil, err
	}
	if _, err = m.committer.Commit(ctx, actor, uuid.Nil, []audit.Op{op}, nil); err != nil {
		return nil, err
	}
	return p, nil
}

// ListParties returns the org's counterparties sorted by name.
func (m *Manager) ListParties(ctx context.Context, actor shared.ActorContext) ([]party.Party, error) {
	raw, err := m.store.List(ctx, actor.OrgID, fragment.PrefixParty)
	if err != nil {
		return nil, err
	}
	parties := make([]party.Party, 0, len(raw))
	for _, value := range raw {
		var p party.Party
		if err := json.Unmarshal(value, &p); err != nil {
			return nil, err
		}
		parties = append(parties, p)
	}
	sort.Slice(parties, func(i, j int) bool { return parties[i].Name < parties[j].Name })
	return parties, nil
}

// auditReadRoles may read the audit log and historical reconstructions.
func auditReadAllowed(role shared.Role) bool {
	switch role {
	case shared.RoleOwnerAdmin, shared.RoleFinance, shared.RoleAuditor:
		return true
	default:
		return false
	}
}

// AuditLog returns the most recent envelopes for the org, oldest first.
func (m *Manager) AuditLog(ctx context.Context, actor shared.ActorContext, limit int) ([]audit.Entry, error) {
	if !auditReadAllowed(actor.Role) {
		return nil, shared.NewPermissionDenied("role %s cannot read the audit log", actor.Role)
	}
	return m.log.ListByOrg(ctx, actor.OrgID, limit)
}

// VerifyChain walks the full org chain, records the outcome in the
// trust state and returns it. A broken chain is reported, never
// repaired.
func (m *Manager) VerifyChain(ctx context.Context, actor shared.ActorContext) (*audit.VerifyResult, error) {
	if !auditReadAllowed(actor.Role) {
		return nil, shared.NewPermissionDenied("role %s cannot verify the audit chain", actor.Role)
	}
	entries, err := m.log.ListByOrg(ctx, actor.OrgID, 0)
	if err != nil {
		return nil, err
	}
	result := chain.Verify(entries, m.verifier)
	m.trust.Record(actor.OrgID, result.Intact)
	m.metrics.ChainVerifications.Inc()
	if !result.Intact {
		m.logger.Error("Audit chain verification failed",
			"org_id", actor.OrgID,
			"first_bad_index", *result.FirstBadIndex,
			"reason", result.Reason)
	}
	return &result, nil
}

// TimeTravel rebuilds the ledger summary as it stood at asOfMs.
func (m *Manager) TimeTravel(ctx context.Context, actor shared.ActorContext, asOfMs int64) (*audit.HistoricalSnapshot, error) {
	if !auditReadAllowed(actor.Role) {
		return nil, shared.NewPermissionDenied("role %s cannot read historical state", actor.Role)
	}
	entries, err := m.log.ListByOrgUntil(ctx, actor.OrgID, asOfMs)
	if err != nil {
		return nil, err
	}
	return chain.Reconstruct(actor.OrgID, entries, asOfMs)
}

// EvaluateProposals runs the advisory rules against current org state.
// Purely computational; persisting the results is the sync worker's
// business.
func (m *Manager) EvaluateProposals(ctx context.Context, actor shared.ActorContext) ([]proposal.Proposal, error) {
	rows, err := m.index.List(ctx, actor.OrgID, transaction.ListFilter{})
	if err != nil {
		return nil, err
	}
	accountCount, err := m.accountCount(ctx, actor.OrgID)
	if err != nil {
		return nil, err
	}

	snap := rules.Snapshot{OrgID: actor.OrgID, AccountCount: accountCount}
	for _, row := range rows {
		if row.Status == shared.TxStatusPosted {
			snap.PostedCount++
		}
		snap.Transactions = append(snap.Transactions, rules.TxFact{
			TxID:      row.TxID,
			TxType:    row.TxType,
			Status:    row.Status,
			PartyID:   row.PartyID,
			MoveCount: row.MoveCount,
		})
	}

	proposals := rules.Evaluate(snap)
	m.metrics.ProposalsEmitted.Add(float64(len(proposals)))
	return proposals, nil
}
