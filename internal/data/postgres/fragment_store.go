// Package postgres provides PostgreSQL implementations of the domain repositories.
// It handles all database operations while maintaining transaction safety and
// proper error handling for the ledger engine.
package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5"

	"github.com/erp-ledger-engine/internal/domain/audit"
	"github.com/erp-ledger-engine/internal/domain/shared"
	"github.com/erp-ledger-engine/internal/engine/envelope"
	"github.com/erp-ledger-engine/internal/platform/persistence"
)

// FragmentStore persists the org-scoped fragment map as JSONB rows.
// It backs both direct reads (fragment.Store) and envelope application
// (envelope.FragmentWriter).
type FragmentStore struct {
	querier persistence.Querier
	logger  *slog.Logger
}

// NewFragmentStore creates a new PostgreSQL fragment store.
// It expects db.Pool() to satisfy persistence.Querier.
func NewFragmentStore(logger *slog.Logger, db *persistence.PostgresDB) *FragmentStore {
	return &FragmentStore{
		querier: db.Pool(),
		logger:  logger,
	}
}

// WithTx wraps the store with a transaction so fragment writes are
// atomic with the rest of the commit.
func (s *FragmentStore) WithTx(tx pgx.Tx) envelope.FragmentWriter {
	return &FragmentStore{
		querier: tx,
		logger:  s.logger,
	}
}

// Get retrieves a single fragment value by id.
func (s *FragmentStore) Get(ctx context.Context, id string) (json.RawMessage, error) {
	query := `
		SELECT value
		FROM fragments
		WHERE fragment_id = $1
	`

	var value json.RawMessage
	err := s.querier.QueryRow(ctx, query, id).Scan(&value)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, shared.NewNotFound("fragment %s not found", id)
		}
		s.logger.Error("Failed to get fragment", "fragment_id", id, "error", err)
		return nil, fmt.Errorf("failed to get fragment: %w", err)
	}

	return value, nil
}

// Set writes a fragment value outside the commit path. Regular
// mutations go through Apply; Set exists for maintenance tooling.
func (s *FragmentStore) Set(ctx context.Context, id string, value json.RawMessage) error {
	query := `
		UPDATE fragments
		SET value = $1, updated_at = NOW()
		WHERE fragment_id = $2
	`

	result, err := s.querier.Exec(ctx, query, value, id)
	if err != nil {
		s.logger.Error("Failed to set fragment", "fragment_id", id, "error", err)
		return fmt.Errorf("failed to set fragment: %w", err)
	}
	if result.RowsAffected() == 0 {
		return shared.NewNotFound("fragment %s not found", id)
	}

	return nil
}

// List returns every fragment of the org whose id starts with prefix.
// Listings back the read models so the query must stay on the
// (org_id, fragment_id) index.
func (s *FragmentStore) List(ctx context.Context, orgID, prefix string) (map[string]json.RawMessage, error) {
	query := `
		SELECT fragment_id, value
		FROM fragments
		WHERE org_id = $1 AND fragment_id LIKE $2 || '%'
		ORDER BY fragment_id
	`

	rows, err := s.querier.Query(ctx, query, orgID, prefix)
	if err != nil {
		s.logger.Error("Failed to list fragments", "org_id", orgID, "prefix", prefix, "error", err)
		return nil, fmt.Errorf("failed to list fragments: %w", err)
	}
	defer rows.Close()

	out := make(map[string]json.RawMessage)
	for rows.Next() {
		var id string
		var value json.RawMessage
		if err := rows.Scan(&id, &value); err != nil {
			return nil, fmt.Errorf("failed to scan fragment: %w", err)
		}
		out[id] = value
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate fragments: %w", err)
	}

	return out, nil
}

// Apply writes a batch of envelope operations. Set ops upsert the
// fragment; append ops concatenate onto the stored JSON array.
func (s *FragmentStore) Apply(ctx context.Context, orgID string, ops []audit.Op) error {
	setQuery := `
		INSERT INTO fragments (org_id, fragment_id, value, updated_at)
		VALUES ($1, $2, $3, NOW())
		ON CONFLICT (org_id, fragment_id)
		DO UPDATE SET value = EXCLUDED.value, updated_at = NOW()
	`
	appendQuery := `
		INSERT INTO fragments (org_id, fragment_id, value, updated_at)
		VALUES ($1, $2, jsonb_build_array($3::jsonb), NOW())
		ON CONFLICT (org_id, fragment_id)
		DO UPDATE SET value = fragments.value || $3::jsonb, updated_at = NOW()
	`

	for _, op := range ops {
		var err error
		switch op.Kind {
		case audit.OpSet:
			_, err = s.querier.Exec(ctx, setQuery, orgID, op.FragmentID, op.Value)
		case audit.OpAppend:
			_, err = s.querier.Exec(ctx, appendQuery, orgID, op.FragmentID, op.Value)
		default:
			return shared.NewValidationError("unknown op kind %q", op.Kind)
		}
		if err != nil {
			s.logger.Error("Failed to apply fragment op",
				"org_id", orgID,
				"fragment_id", op.FragmentID,
				"kind", op.Kind,
				"error", err,
			)
			return fmt.Errorf("failed to apply fragment op: %w", err)
		}
	}

	return nil
}
