// Package evaluator periodically re-runs the advisory rules for every
// known org and refreshes the persisted proposal inbox.
package evaluator

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/panjf2000/ants/v2"

	"github.com/erp-ledger-engine/internal/config"
	"github.com/erp-ledger-engine/internal/domain/proposal"
	"github.com/erp-ledger-engine/internal/domain/shared"
)

// enginePubkey identifies background evaluation in actor contexts.
const enginePubkey = "engine"

// RuleEngine is the evaluation surface of the ledger engine.
type RuleEngine interface {
	EvaluateProposals(ctx context.Context, actor shared.ActorContext) ([]proposal.Proposal, error)
}

// OrgLister yields every org present in the transaction index.
type OrgLister interface {
	ListOrgs(ctx context.Context) ([]string, error)
}

// Evaluator fans org evaluations out over a worker pool and upserts
// the results into the advisory inbox.
type Evaluator struct {
	engine   RuleEngine
	orgs     OrgLister
	inbox    proposal.Repository
	pool     *ants.Pool
	logger   *slog.Logger
	interval time.Duration
	staleAge time.Duration
	now      func() time.Time
}

func New(
	cfg *config.ProposalsConfig,
	poolSize int,
	engine RuleEngine,
	orgs OrgLister,
	inbox proposal.Repository,
	logger *slog.Logger,
) (*Evaluator, error) {
	pool, err := ants.NewPool(poolSize)
	if err != nil {
		return nil, err
	}

	return &Evaluator{
		engine:   engine,
		orgs:     orgs,
		inbox:    inbox,
		pool:     pool,
		logger:   logger,
		interval: cfg.Interval,
		staleAge: cfg.StaleAge,
		now:      time.Now,
	}, nil
}

// Start re-evaluates all orgs on every tick until context is canceled
func (e *Evaluator) Start(ctx context.Context) {
	e.logger.Info("Starting Proposal Evaluator",
		"interval", e.interval.String(),
		"stale_age", e.staleAge.String(),
		"pool_capacity", e.pool.Cap(),
	)
	ticker := time.NewTicker(e.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			e.logger.Info("Proposal Evaluator stopping due to context cancellation.")
			return
		case <-ticker.C:
			e.EvaluateAll(ctx)
		}
	}
}

// EvaluateAll runs one evaluation round across every known org and
// waits for the pool to finish it.
func (e *Evaluator) EvaluateAll(ctx context.Context) {
	orgs, err := e.orgs.ListOrgs(ctx)
	if err != nil {
		e.logger.Error("Failed to list orgs for proposal evaluation", "error", err)
		return
	}

	var wg sync.WaitGroup
	for _, orgID := range orgs {
		orgID := orgID
		wg.Add(1)
		if err := e.pool.Submit(func() {
			defer wg.Done()
			e.evaluateOrg(ctx, orgID)
		}); err != nil {
			wg.Done()
			e.logger.Error("Failed to submit org evaluation to worker pool", "org_id", orgID, "error", err)
		}
	}
	wg.Wait()
}

func (e *Evaluator) evaluateOrg(ctx context.Context, orgID string) {
	actor := shared.ActorContext{Pubkey: enginePubkey, Role: shared.RoleEngine, OrgID: orgID}

	proposals, err := e.engine.EvaluateProposals(ctx, actor)
	if err != nil {
		e.logger.Error("Proposal evaluation failed", "org_id", orgID, "error", err)
		return
	}

	now := e.now().UTC()
	for i := range proposals {
		p := proposals[i]
		p.EvaluatedAtMs = now.UnixMilli()
		p.LastRefreshed = now
		if err := e.inbox.Upsert(ctx, &p); err != nil {
			e.logger.Error("Failed to upsert proposal", "org_id", orgID, "proposal_id", p.ID, "error", err)
		}
	}

	// Proposals a rule stopped emitting age out instead of lingering as
	// stale advice.
	deleted, err := e.inbox.DeleteStale(ctx, orgID, now.Add(-e.staleAge))
	if err != nil {
		e.logger.Error("Failed to prune stale proposals", "org_id", orgID, "error", err)
		return
	}

	e.logger.Debug("Evaluated org proposals",
		"org_id", orgID, "proposals", len(proposals), "pruned", deleted,
	)
}

// Shutdown gracefully releases the worker pool.
func (e *Evaluator) Shutdown() {
	e.logger.Info("Shutting down proposal evaluator pool", "running_workers", e.pool.Running())
	e.pool.Release()
}
