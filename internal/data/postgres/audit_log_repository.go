package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/erp-ledger-engine/internal/domain/audit"
	"github.com/erp-ledger-engine/internal/domain/shared"
	"github.com/erp-ledger-engine/internal/platform/persistence"
)

const uniqueViolationCode = "23505"

// AuditLogRepository implements audit.LogRepository for PostgreSQL.
// The audit_log table is append-only; nothing in the engine updates or
// deletes rows.
type AuditLogRepository struct {
	querier persistence.Querier
	logger  *slog.Logger
}

// NewAuditLogRepository creates a new PostgreSQL audit log repository
func NewAuditLogRepository(logger *slog.Logger, db *persistence.PostgresDB) audit.LogRepository {
	return &AuditLogRepository{
		querier: db.Pool(),
		logger:  logger,
	}
}

// WithTx wraps the repository with a transaction so the append is
// atomic with fragment application and the chain head advance.
func (r *AuditLogRepository) WithTx(tx pgx.Tx) audit.LogRepository {
	return &AuditLogRepository{
		querier: tx,
		logger:  r.logger,
	}
}

// Append stores one committed envelope. The unique index on
// mutation_id turns client retries into ERR_REPLAY_MUTATION_ID.
func (r *AuditLogRepository) Append(ctx context.Context, entry *audit.Entry) error {
	query := `
		INSERT INTO audit_log (org_id, seq, mutation_id, actor_pubkey, actor_role, lamport, issued_at_ms, ops, prev_hash, content_hash, chain_hash, signature)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`

	ops, err := json.Marshal(entry.Ops)
	if err != nil {
		return fmt.Errorf("failed to marshal ops: %w", err)
	}

	_, err = r.querier.Exec(ctx, query,
		entry.OrgID,
		entry.Seq,
		entry.MutationID,
		entry.ActorPubkey,
		entry.ActorRole,
		entry.Lamport,
		entry.IssuedAtMs,
		ops,
		entry.PrevHash,
		entry.ContentHash,
		entry.ChainHash,
		entry.Signature,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolationCode {
			return shared.NewReplayMutationID("mutation %s already committed", entry.MutationID)
		}
		r.logger.Error("Failed to append audit entry",
			"org_id", entry.OrgID,
			"mutation_id", entry.MutationID.String(),
			"error", err,
		)
		return fmt.Errorf("failed to append audit entry: %w", err)
	}

	return nil
}

// ListByOrg returns the org's entries in chain order. A limit of 0
// returns the whole chain, which verification requires.
func (r *AuditLogRepository) ListByOrg(ctx context.Context, orgID string, limit int) ([]audit.Entry, error) {
	query := `
		SELECT seq, mutation_id, actor_pubkey, actor_role, lamport, issued_at_ms, ops, prev_hash, content_hash, chain_hash, signature
		FROM audit_log
		WHERE org_id = $1
		ORDER BY seq ASC
	`
	args := []interface{}{orgID}
	if limit > 0 {
		query += ` LIMIT $2`
		args = append(args, limit)
	}

	return r.scanEntries(ctx, orgID, query, args...)
}

// ListByOrgUntil returns the org's entries issued at or before untilMs,
// in chain order. Backs historical reconstruction.
func (r *AuditLogRepository) ListByOrgUntil(ctx context.Context, orgID string, untilMs int64) ([]audit.Entry, error) {
	query := `
		SELECT seq, mutation_id, actor_pubkey, actor_role, lamport, issued_at_ms, ops, prev_hash, content_hash, chain_hash, signature
		FROM audit_log
		WHERE org_id = $1 AND issued_at_ms <= $2
		ORDER BY seq ASC
	`

	return r.scanEntries(ctx, orgID, query, orgID, untilMs)
}

func (r *AuditLogRepository) scanEntries(ctx context.Context, orgID, query string, args ...interface{}) ([]audit.Entry, error) {
	rows, err := r.querier.Query(ctx, query, args...)
	if err != nil {
		r.logger.Error("Failed to list audit entries", "org_id", orgID, "error", err)
		return nil, fmt.Errorf("failed to list audit entries: %w", err)
	}
	defer rows.Close()

	var entries []audit.Entry
	for rows.Next() {
		var entry audit.Entry
		var ops []byte
		err := rows.Scan(
			&entry.Seq,
			&entry.MutationID,
			&entry.ActorPubkey,
			&entry.ActorRole,
			&entry.Lamport,
			&entry.IssuedAtMs,
			&ops,
			&entry.PrevHash,
			&entry.ContentHash,
			&entry.ChainHash,
			&entry.Signature,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan audit entry: %w", err)
		}
		if err := json.Unmarshal(ops, &entry.Ops); err != nil {
			return nil, fmt.Errorf("failed to unmarshal ops: %w", err)
		}
		entry.OrgID = orgID
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate audit entries: %w", err)
	}

	return entries, nil
}
