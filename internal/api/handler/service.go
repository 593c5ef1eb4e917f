package handler

import (
	"context"

	"github.com/erp-ledger-engine/internal/domain/audit"
	"github.com/erp-ledger-engine/internal/domain/ledger"
	"github.com/erp-ledger-engine/internal/domain/party"
	"github.com/erp-ledger-engine/internal/domain/proposal"
	"github.com/erp-ledger-engine/internal/domain/shared"
	"github.com/erp-ledger-engine/internal/domain/transaction"
)

// EngineService is the surface of the ledger engine the HTTP layer
// depends on. The manager implements it; tests substitute a mock.
type EngineService interface {
	CreateTx(ctx context.Context, actor shared.ActorContext, req *transaction.CreateTxRequest) (*transaction.TxHeader, error)
	AddLine(ctx context.Context, actor shared.ActorContext, req *transaction.AddLineRequest) (*transaction.TxLine, error)
	CreateInvMove(ctx context.Context, actor shared.ActorContext, req *transaction.CreateInvMoveRequest) (*transaction.InvMove, error)
	TransitionStatus(ctx context.Context, actor shared.ActorContext, req *transaction.TransitionRequest) (*transaction.TxHeader, error)
	GeneratePostings(ctx context.Context, actor shared.ActorContext, txID string) ([]ledger.Posting, error)
	GetSnapshot(ctx context.Context, actor shared.ActorContext, txID string) (*transaction.Snapshot, error)
	GetLines(ctx context.Context, actor shared.ActorContext, txID string) ([]transaction.TxLine, error)
	ListTxs(ctx context.Context, actor shared.ActorContext, filter transaction.ListFilter) ([]transaction.IndexRow, error)

	SeedCoA(ctx context.Context, actor shared.ActorContext, template string) ([]ledger.Account, error)
	ListAccounts(ctx context.Context, actor shared.ActorContext) ([]ledger.Account, error)
	LedgerSummary(ctx context.Context, actor shared.ActorContext) (*ledger.Summary, error)
	CreateParty(ctx context.Context, actor shared.ActorContext, req *party.CreatePartyRequest) (*party.Party, error)
	ListParties(ctx context.Context, actor shared.ActorContext) ([]party.Party, error)

	AuditLog(ctx context.Context, actor shared.ActorContext, limit int) ([]audit.Entry, error)
	VerifyChain(ctx context.Context, actor shared.ActorContext) (*audit.VerifyResult, error)
	TimeTravel(ctx context.Context, actor shared.ActorContext, asOfMs int64) (*audit.HistoricalSnapshot, error)
	TrustIntact(orgID string) bool

	EvaluateProposals(ctx context.Context, actor shared.ActorContext) ([]proposal.Proposal, error)
	NextClock(ctx context.Context, actor shared.ActorContext) (uint64, error)
}
