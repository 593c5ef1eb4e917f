package evaluator

import (
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/erp-ledger-engine/internal/config"
	"github.com/erp-ledger-engine/internal/domain/proposal"
	"github.com/erp-ledger-engine/internal/domain/shared"
)

// MockRuleEngine for testing
type MockRuleEngine struct {
	mock.Mock
}

func (m *MockRuleEngine) EvaluateProposals(ctx context.Context, actor shared.ActorContext) ([]proposal.Proposal, error) {
	args := m.Called(ctx, actor)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]proposal.Proposal), args.Error(1)
}

// MockOrgLister for testing
type MockOrgLister struct {
	mock.Mock
}

func (m *MockOrgLister) ListOrgs(ctx context.Context) ([]string, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]string), args.Error(1)
}

// MockInbox for testing
type MockInbox struct {
	mock.Mock
}

func (m *MockInbox) Upsert(ctx context.Context, p *proposal.Proposal) error {
	args := m.Called(ctx, p)
	return args.Error(0)
}

func (m *MockInbox) ListByOrg(ctx context.Context, orgID string, includeDismissed bool) ([]proposal.Proposal, error) {
	args := m.Called(ctx, orgID, includeDismissed)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]proposal.Proposal), args.Error(1)
}

func (m *MockInbox) Dismiss(ctx context.Context, orgID, id string) error {
	args := m.Called(ctx, orgID, id)
	return args.Error(0)
}

func (m *MockInbox) DeleteStale(ctx context.Context, orgID string, before time.Time) (int64, error) {
	args := m.Called(ctx, orgID, before)
	return args.Get(0).(int64), args.Error(1)
}

func newTestEvaluator(t *testing.T, engine RuleEngine, orgs OrgLister, inbox proposal.Repository) *Evaluator {
	t.Helper()
	cfg := &config.ProposalsConfig{Interval: time.Minute, StaleAge: 24 * time.Hour}
	e, err := New(cfg, 4, engine, orgs, inbox, slog.Default())
	require.NoError(t, err)
	t.Cleanup(e.Shutdown)
	return e
}

func TestEvaluator_EvaluateAll(t *testing.T) {
	t.Run("UpsertsAndPrunesPerOrg", func(t *testing.T) {
		engine := &MockRuleEngine{}
		orgs := &MockOrgLister{}
		inbox := &MockInbox{}
		e := newTestEvaluator(t, engine, orgs, inbox)

		frozen := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
		e.now = func() time.Time { return frozen }

		orgs.On("ListOrgs", mock.Anything).Return([]string{"org1", "org2"}, nil).Once()

		engine.On("EvaluateProposals", mock.Anything, mock.MatchedBy(func(actor shared.ActorContext) bool {
			return actor.Role == shared.RoleEngine && actor.OrgID == "org1"
		})).Return([]proposal.Proposal{
			{ID: "rules-coa-missing", OrgID: "org1", Kind: proposal.KindBriefing},
		}, nil).Once()
		engine.On("EvaluateProposals", mock.Anything, mock.MatchedBy(func(actor shared.ActorContext) bool {
			return actor.OrgID == "org2"
		})).Return([]proposal.Proposal{
			{ID: "rules-briefing-healthy", OrgID: "org2", Kind: proposal.KindBriefing},
		}, nil).Once()

		inbox.On("Upsert", mock.Anything, mock.MatchedBy(func(p *proposal.Proposal) bool {
			return p.OrgID == "org1" && p.EvaluatedAtMs == frozen.UnixMilli() && p.LastRefreshed.Equal(frozen)
		})).Return(nil).Once()
		inbox.On("Upsert", mock.Anything, mock.MatchedBy(func(p *proposal.Proposal) bool {
			return p.OrgID == "org2"
		})).Return(nil).Once()

		cutoff := frozen.Add(-24 * time.Hour)
		inbox.On("DeleteStale", mock.Anything, "org1", cutoff).Return(int64(0), nil).Once()
		inbox.On("DeleteStale", mock.Anything, "org2", cutoff).Return(int64(2), nil).Once()

		e.EvaluateAll(context.Background())

		engine.AssertExpectations(t)
		inbox.AssertExpectations(t)
	})

	t.Run("OrgListFailureSkipsRound", func(t *testing.T) {
		engine := &MockRuleEngine{}
		orgs := &MockOrgLister{}
		inbox := &MockInbox{}
		e := newTestEvaluator(t, engine, orgs, inbox)

		orgs.On("ListOrgs", mock.Anything).Return(nil, errors.New("db error")).Once()

		e.EvaluateAll(context.Background())

		engine.AssertNotCalled(t, "EvaluateProposals")
		inbox.AssertNotCalled(t, "Upsert")
	})

	t.Run("EvaluationFailureSkipsUpserts", func(t *testing.T) {
		engine := &MockRuleEngine{}
		orgs := &MockOrgLister{}
		inbox := &MockInbox{}
		e := newTestEvaluator(t, engine, orgs, inbox)

		orgs.On("ListOrgs", mock.Anything).Return([]string{"org1"}, nil).Once()
		engine.On("EvaluateProposals", mock.Anything, mock.Anything).
			Return(nil, errors.New("index unavailable")).Once()

		e.EvaluateAll(context.Background())

		inbox.AssertNotCalled(t, "Upsert")
		inbox.AssertNotCalled(t, "DeleteStale")
	})
}

func TestEvaluator_StartStopsOnContextCancel(t *testing.T) {
	engine := &MockRuleEngine{}
	orgs := &MockOrgLister{}
	inbox := &MockInbox{}

	cfg := &config.ProposalsConfig{Interval: 10 * time.Millisecond, StaleAge: time.Hour}
	e, err := New(cfg, 2, engine, orgs, inbox, slog.Default())
	require.NoError(t, err)
	defer e.Shutdown()

	orgs.On("ListOrgs", mock.Anything).Return([]string{}, nil).Maybe()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		e.Start(ctx)
		close(done)
	}()

	time.Sleep(30 * time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("evaluator did not stop after context cancellation")
	}

	assert.Equal(t, 0, e.pool.Running())
}
