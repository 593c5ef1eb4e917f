// Package chain_monitor re-verifies every org's audit hash chain on a
// schedule and records the outcome in the shared trust state.
package chain_monitor

import (
	"context"
	"log/slog"
	"time"

	"github.com/erp-ledger-engine/internal/config"
	"github.com/erp-ledger-engine/internal/domain/audit"
	"github.com/erp-ledger-engine/internal/engine/chain"
	"github.com/erp-ledger-engine/internal/platform/metrics"
	"github.com/erp-ledger-engine/internal/platform/signing"
)

// OrgLister yields every org present in the transaction index.
type OrgLister interface {
	ListOrgs(ctx context.Context) ([]string, error)
}

// Monitor walks org chains in the background. It reads the audit log
// directly: background verification is engine-internal and not subject
// to the role gates the API applies.
type Monitor struct {
	log      audit.LogRepository
	orgs     OrgLister
	verifier signing.Verifier
	trust    *chain.TrustState
	metrics  *metrics.Metrics
	logger   *slog.Logger
	interval time.Duration
}

func New(
	cfg *config.ChainVerifyConfig,
	log audit.LogRepository,
	orgs OrgLister,
	verifier signing.Verifier,
	trust *chain.TrustState,
	m *metrics.Metrics,
	logger *slog.Logger,
) *Monitor {
	return &Monitor{
		log:      log,
		orgs:     orgs,
		verifier: verifier,
		trust:    trust,
		metrics:  m,
		logger:   logger,
		interval: cfg.Interval,
	}
}

// Start verifies all org chains on every tick until context is canceled
func (m *Monitor) Start(ctx context.Context) {
	m.logger.Info("Starting Chain Monitor", "interval", m.interval.String())
	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			m.logger.Info("Chain Monitor stopping due to context cancellation.")
			return
		case <-ticker.C:
			m.VerifyAll(ctx)
		}
	}
}

// VerifyAll runs one verification round across every known org.
func (m *Monitor) VerifyAll(ctx context.Context) {
	orgs, err := m.orgs.ListOrgs(ctx)
	if err != nil {
		m.logger.Error("Failed to list orgs for chain verification", "error", err)
		return
	}

	for _, orgID := range orgs {
		m.verifyOrg(ctx, orgID)
	}
}

func (m *Monitor) verifyOrg(ctx context.Context, orgID string) {
	entries, err := m.log.ListByOrg(ctx, orgID, 0)
	if err != nil {
		m.logger.Error("Failed to load audit log for chain verification", "org_id", orgID, "error", err)
		return
	}

	result := chain.Verify(entries, m.verifier)
	m.trust.Record(orgID, result.Intact)
	m.metrics.ChainVerifications.Inc()

	if !result.Intact {
		m.logger.Error("Audit chain verification failed",
			"org_id", orgID,
			"entries", result.Entries,
			"first_bad_index", *result.FirstBadIndex,
			"reason", result.Reason,
		)
		return
	}
	m.logger.Debug("Audit chain verified", "org_id", orgID, "entries", result.Entries)
}
