package postgres

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5"

	"github.com/erp-ledger-engine/internal/domain/transaction"
	"github.com/erp-ledger-engine/internal/platform/persistence"
)

// TxIndexRepository implements transaction.IndexRepository for
// PostgreSQL. The tx_index table is a queryable projection of the
// transaction header fragments so listings never scan the fragment
// store.
type TxIndexRepository struct {
	querier persistence.Querier
	logger  *slog.Logger
}

// NewTxIndexRepository creates a new PostgreSQL transaction index repository
func NewTxIndexRepository(logger *slog.Logger, db *persistence.PostgresDB) transaction.IndexRepository {
	return &TxIndexRepository{
		querier: db.Pool(),
		logger:  logger,
	}
}

// WithTx wraps the repository with a transaction so the index row lands
// atomically with the fragments it mirrors.
func (r *TxIndexRepository) WithTx(tx pgx.Tx) transaction.IndexRepository {
	return &TxIndexRepository{
		querier: tx,
		logger:  r.logger,
	}
}

// Upsert writes the index row for a transaction.
func (r *TxIndexRepository) Upsert(ctx context.Context, row *transaction.IndexRow) error {
	query := `
		INSERT INTO tx_index (tx_id, org_id, tx_type, status, party_id, doc_date, move_count, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (tx_id)
		DO UPDATE SET status = EXCLUDED.status, party_id = EXCLUDED.party_id, doc_date = EXCLUDED.doc_date, move_count = EXCLUDED.move_count, updated_at = EXCLUDED.updated_at
	`

	_, err := r.querier.Exec(ctx, query,
		row.TxID,
		row.OrgID,
		row.TxType,
		row.Status,
		row.PartyID,
		row.DocDate,
		row.MoveCount,
		row.UpdatedAt,
	)
	if err != nil {
		r.logger.Error("Failed to upsert tx index row", "tx_id", row.TxID, "error", err)
		return fmt.Errorf("failed to upsert tx index row: %w", err)
	}

	return nil
}

// List returns the org's transactions, newest first, narrowed by the
// optional status and type filters.
func (r *TxIndexRepository) List(ctx context.Context, orgID string, filter transaction.ListFilter) ([]transaction.IndexRow, error) {
	query := `
		SELECT tx_id, org_id, tx_type, status, party_id, doc_date, move_count, updated_at
		FROM tx_index
		WHERE org_id = $1
	`
	args := []interface{}{orgID}

	if filter.Status != "" {
		args = append(args, filter.Status)
		query += fmt.Sprintf(" AND status = $%d", len(args))
	}
	if filter.TxType != "" {
		args = append(args, filter.TxType)
		query += fmt.Sprintf(" AND tx_type = $%d", len(args))
	}
	query += " ORDER BY updated_at DESC"
	if filter.Limit > 0 {
		args = append(args, filter.Limit)
		query += fmt.Sprintf(" LIMIT $%d", len(args))
	}

	rows, err := r.querier.Query(ctx, query, args...)
	if err != nil {
		r.logger.Error("Failed to list tx index rows", "org_id", orgID, "error", err)
		return nil, fmt.Errorf("failed to list tx index rows: %w", err)
	}
	defer rows.Close()

	var out []transaction.IndexRow
	for rows.Next() {
		var row transaction.IndexRow
		err := rows.Scan(
			&row.TxID,
			&row.OrgID,
			&row.TxType,
			&row.Status,
			&row.PartyID,
			&row.DocDate,
			&row.MoveCount,
			&row.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan tx index row: %w", err)
		}
		out = append(out, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate tx index rows: %w", err)
	}

	return out, nil
}

// ListOrgs returns every org id present in the index. The background
// evaluator uses it to know which orgs to visit.
func (r *TxIndexRepository) ListOrgs(ctx context.Context) ([]string, error) {
	query := `
		SELECT DISTINCT org_id
		FROM tx_index
		ORDER BY org_id
	`

	rows, err := r.querier.Query(ctx, query)
	if err != nil {
		r.logger.Error("Failed to list orgs", "error", err)
		return nil, fmt.Errorf("failed to list orgs: %w", err)
	}
	defer rows.Close()

	var orgs []string
	for rows.Next() {
		var orgID string
		if err := rows.Scan(&orgID); err != nil {
			return nil, fmt.Errorf("failed to scan org id: %w", err)
		}
		orgs = append(orgs, orgID)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate orgs: %w", err)
	}

	return orgs, nil
}

// CountByStatus returns the org's transaction counts keyed by status.
func (r *TxIndexRepository) CountByStatus(ctx context.Context, orgID string) (map[string]int, error) {
	query := `
		SELECT status, COUNT(*)
		FROM tx_index
		WHERE org_id = $1
		GROUP BY status
	`

	rows, err := r.querier.Query(ctx, query, orgID)
	if err != nil {
		r.logger.Error("Failed to count tx by status", "org_id", orgID, "error", err)
		return nil, fmt.Errorf("failed to count tx by status: %w", err)
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var status string
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return nil, fmt.Errorf("failed to scan status count: %w", err)
		}
		counts[status] = count
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate status counts: %w", err)
	}

	return counts, nil
}
