package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5"

	"github.com/erp-ledger-engine/internal/domain/audit"
	"github.com/erp-ledger-engine/internal/platform/persistence"
)

// ChainRepository implements audit.ChainRepository for PostgreSQL. The
// chain_heads row is the per-org serialization point: commits lock it
// first, so two writers for the same org never interleave.
type ChainRepository struct {
	querier persistence.Querier
	logger  *slog.Logger
}

// NewChainRepository creates a new PostgreSQL chain head repository
func NewChainRepository(logger *slog.Logger, db *persistence.PostgresDB) audit.ChainRepository {
	return &ChainRepository{
		querier: db.Pool(),
		logger:  logger,
	}
}

// WithTx wraps the repository with a transaction. LockHead is only
// meaningful inside one.
func (r *ChainRepository) WithTx(tx pgx.Tx) audit.ChainRepository {
	return &ChainRepository{
		querier: tx,
		logger:  r.logger,
	}
}

// LockHead takes a row lock on the org's chain head, inserting the
// genesis row on first touch. The lock is held until the surrounding
// transaction ends.
func (r *ChainRepository) LockHead(ctx context.Context, orgID string) (*audit.ChainHead, error) {
	selectQuery := `
		SELECT org_id, last_hash, last_seq
		FROM chain_heads
		WHERE org_id = $1
		FOR UPDATE
	`

	head := &audit.ChainHead{}
	err := r.querier.QueryRow(ctx, selectQuery, orgID).Scan(&head.OrgID, &head.LastHash, &head.LastSeq)
	if err == nil {
		return head, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		r.logger.Error("Failed to lock chain head", "org_id", orgID, "error", err)
		return nil, fmt.Errorf("failed to lock chain head: %w", err)
	}

	// First commit for this org: create the genesis row. ON CONFLICT
	// covers the race where another transaction inserted it between our
	// select and insert; the second select then waits on their lock.
	insertQuery := `
		INSERT INTO chain_heads (org_id, last_hash, last_seq)
		VALUES ($1, $2, 0)
		ON CONFLICT (org_id) DO NOTHING
	`
	if _, err := r.querier.Exec(ctx, insertQuery, orgID, audit.ChainSeed); err != nil {
		r.logger.Error("Failed to create chain head", "org_id", orgID, "error", err)
		return nil, fmt.Errorf("failed to create chain head: %w", err)
	}

	err = r.querier.QueryRow(ctx, selectQuery, orgID).Scan(&head.OrgID, &head.LastHash, &head.LastSeq)
	if err != nil {
		r.logger.Error("Failed to lock chain head after insert", "org_id", orgID, "error", err)
		return nil, fmt.Errorf("failed to lock chain head: %w", err)
	}

	return head, nil
}

// Advance moves the head to the newly appended envelope. Must run in
// the same transaction that called LockHead.
func (r *ChainRepository) Advance(ctx context.Context, orgID, chainHash string, seq int64) error {
	query := `
		UPDATE chain_heads
		SET last_hash = $1, last_seq = $2
		WHERE org_id = $3
	`

	result, err := r.querier.Exec(ctx, query, chainHash, seq, orgID)
	if err != nil {
		r.logger.Error("Failed to advance chain head", "org_id", orgID, "error", err)
		return fmt.Errorf("failed to advance chain head: %w", err)
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("chain head for org %s not found", orgID)
	}

	return nil
}
