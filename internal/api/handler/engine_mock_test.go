package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"os"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/erp-ledger-engine/internal/api/middleware"
	"github.com/erp-ledger-engine/internal/domain/audit"
	"github.com/erp-ledger-engine/internal/domain/ledger"
	"github.com/erp-ledger-engine/internal/domain/party"
	"github.com/erp-ledger-engine/internal/domain/proposal"
	"github.com/erp-ledger-engine/internal/domain/shared"
	"github.com/erp-ledger-engine/internal/domain/transaction"
)

// MockEngineService is a mock implementation of EngineService
type MockEngineService struct {
	mock.Mock
}

func (m *MockEngineService) CreateTx(ctx context.Context, actor shared.ActorContext, req *transaction.CreateTxRequest) (*transaction.TxHeader, error) {
	args := m.Called(ctx, actor, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*transaction.TxHeader), args.Error(1)
}

func (m *MockEngineService) AddLine(ctx context.Context, actor shared.ActorContext, req *transaction.AddLineRequest) (*transaction.TxLine, error) {
	args := m.Called(ctx, actor, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*transaction.TxLine), args.Error(1)
}

func (m *MockEngineService) CreateInvMove(ctx context.Context, actor shared.ActorContext, req *transaction.CreateInvMoveRequest) (*transaction.InvMove, error) {
	args := m.Called(ctx, actor, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*transaction.InvMove), args.Error(1)
}

func (m *MockEngineService) TransitionStatus(ctx context.Context, actor shared.ActorContext, req *transaction.TransitionRequest) (*transaction.TxHeader, error) {
	args := m.Called(ctx, actor, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*transaction.TxHeader), args.Error(1)
}

func (m *MockEngineService) GeneratePostings(ctx context.Context, actor shared.ActorContext, txID string) ([]ledger.Posting, error) {
	args := m.Called(ctx, actor, txID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]ledger.Posting), args.Error(1)
}

func (m *MockEngineService) GetSnapshot(ctx context.Context, actor shared.ActorContext, txID string) (*transaction.Snapshot, error) {
	args := m.Called(ctx, actor, txID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*transaction.Snapshot), args.Error(1)
}

func (m *MockEngineService) GetLines(ctx context.Context, actor shared.ActorContext, txID string) ([]transaction.TxLine, error) {
	args := m.Called(ctx, actor, txID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]transaction.TxLine), args.Error(1)
}

func (m *MockEngineService) ListTxs(ctx context.Context, actor shared.ActorContext, filter transaction.ListFilter) ([]transaction.IndexRow, error) {
	args := m.Called(ctx, actor, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]transaction.IndexRow), args.Error(1)
}

func (m *MockEngineService) SeedCoA(ctx context.Context, actor shared.ActorContext, template string) ([]ledger.Account, error) {
	args := m.Called(ctx, actor, template)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]ledger.Account), args.Error(1)
}

func (m *MockEngineService) ListAccounts(ctx context.Context, actor shared.ActorContext) ([]ledger.Account, error) {
	args := m.Called(ctx, actor)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]ledger.Account), args.Error(1)
}

func (m *MockEngineService) LedgerSummary(ctx context.Context, actor shared.ActorContext) (*ledger.Summary, error) {
	args := m.Called(ctx, actor)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*ledger.Summary), args.Error(1)
}

func (m *MockEngineService) CreateParty(ctx context.Context, actor shared.ActorContext, req *party.CreatePartyRequest) (*party.Party, error) {
	args := m.Called(ctx, actor, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*party.Party), args.Error(1)
}

func (m *MockEngineService) ListParties(ctx context.Context, actor shared.ActorContext) ([]party.Party, error) {
	args := m.Called(ctx, actor)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]party.Party), args.Error(1)
}

func (m *MockEngineService) AuditLog(ctx context.Context, actor shared.ActorContext, limit int) ([]audit.Entry, error) {
	args := m.Called(ctx, actor, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]audit.Entry), args.Error(1)
}

func (m *MockEngineService) VerifyChain(ctx context.Context, actor shared.ActorContext) (*audit.VerifyResult, error) {
	args := m.Called(ctx, actor)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*audit.VerifyResult), args.Error(1)
}

func (m *MockEngineService) TimeTravel(ctx context.Context, actor shared.ActorContext, asOfMs int64) (*audit.HistoricalSnapshot, error) {
	args := m.Called(ctx, actor, asOfMs)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*audit.HistoricalSnapshot), args.Error(1)
}

func (m *MockEngineService) TrustIntact(orgID string) bool {
	args := m.Called(orgID)
	return args.Bool(0)
}

func (m *MockEngineService) EvaluateProposals(ctx context.Context, actor shared.ActorContext) ([]proposal.Proposal, error) {
	args := m.Called(ctx, actor)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]proposal.Proposal), args.Error(1)
}

func (m *MockEngineService) NextClock(ctx context.Context, actor shared.ActorContext) (uint64, error) {
	args := m.Called(ctx, actor)
	return args.Get(0).(uint64), args.Error(1)
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(os.Stdout, nil))
}

func testActor(role shared.Role) shared.ActorContext {
	return shared.ActorContext{
		Pubkey: "pk-" + string(role),
		Role:   role,
		OrgID:  "org1",
	}
}

// setupTestRouter builds a router that injects the given actor directly,
// sidestepping token verification which has its own tests.
func setupTestRouter(actor shared.ActorContext) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(func(c *gin.Context) {
		c.Set(middleware.ActorKey, actor)
		c.Next()
	})
	return r
}

// decodeData re-marshals the data field of a wrapped response into out.
func decodeData(t *testing.T, body []byte, out any) {
	t.Helper()
	var response Response
	require.NoError(t, json.Unmarshal(body, &response))
	require.NotNil(t, response.Data)
	raw, err := json.Marshal(response.Data)
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(raw, out))
}
