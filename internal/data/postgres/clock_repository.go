package postgres

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5"

	"github.com/erp-ledger-engine/internal/domain/audit"
	"github.com/erp-ledger-engine/internal/domain/shared"
	"github.com/erp-ledger-engine/internal/platform/persistence"
)

// ClockRepository implements audit.ClockRepository for PostgreSQL. One
// actor_clocks row per (org, actor) holds the highest Lamport value
// accepted so far.
type ClockRepository struct {
	querier persistence.Querier
	logger  *slog.Logger
}

// NewClockRepository creates a new PostgreSQL Lamport clock repository
func NewClockRepository(logger *slog.Logger, db *persistence.PostgresDB) audit.ClockRepository {
	return &ClockRepository{
		querier: db.Pool(),
		logger:  logger,
	}
}

// WithTx wraps the repository with a transaction so clock movement is
// atomic with the envelope append.
func (r *ClockRepository) WithTx(tx pgx.Tx) audit.ClockRepository {
	return &ClockRepository{
		querier: tx,
		logger:  r.logger,
	}
}

// Advance moves the actor's clock to lamport. The conditional update
// only fires when the value moves strictly forward; a zero-row result
// means the caller is replaying or working from stale state.
func (r *ClockRepository) Advance(ctx context.Context, orgID, actorPubkey string, lamport uint64) error {
	query := `
		INSERT INTO actor_clocks (org_id, actor_pubkey, lamport)
		VALUES ($1, $2, $3)
		ON CONFLICT (org_id, actor_pubkey)
		DO UPDATE SET lamport = EXCLUDED.lamport
		WHERE actor_clocks.lamport < EXCLUDED.lamport
	`

	result, err := r.querier.Exec(ctx, query, orgID, actorPubkey, lamport)
	if err != nil {
		r.logger.Error("Failed to advance actor clock",
			"org_id", orgID,
			"actor_pubkey", actorPubkey,
			"error", err,
		)
		return fmt.Errorf("failed to advance actor clock: %w", err)
	}
	if result.RowsAffected() == 0 {
		return shared.NewLamportRewind("lamport %d does not advance the clock for actor %s", lamport, actorPubkey)
	}

	return nil
}

// Next allocates the actor's next Lamport value, creating the clock row
// on first use.
func (r *ClockRepository) Next(ctx context.Context, orgID, actorPubkey string) (uint64, error) {
	query := `
		INSERT INTO actor_clocks (org_id, actor_pubkey, lamport)
		VALUES ($1, $2, 1)
		ON CONFLICT (org_id, actor_pubkey)
		DO UPDATE SET lamport = actor_clocks.lamport + 1
		RETURNING lamport
	`

	var lamport uint64
	err := r.querier.QueryRow(ctx, query, orgID, actorPubkey).Scan(&lamport)
	if err != nil {
		r.logger.Error("Failed to allocate next lamport",
			"org_id", orgID,
			"actor_pubkey", actorPubkey,
			"error", err,
		)
		return 0, fmt.Errorf("failed to allocate next lamport: %w", err)
	}

	return lamport, nil
}
