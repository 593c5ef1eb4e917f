package transaction

import (
	"context"

	"github.com/jackc/pgx/v5"
)

// IndexRepository maintains the denormalized transaction listing table.
// Writes happen inside the same database transaction as the fragment
// writes they mirror; Upsert is called through WithTx from the commit
// path.
type IndexRepository interface {
	Upsert(ctx context.Context, row *IndexRow) error
	List(ctx context.Context, orgID string, filter ListFilter) ([]IndexRow, error)
	ListOrgs(ctx context.Context) ([]string, error)
	CountByStatus(ctx context.Context, orgID string) (map[string]int, error)
	WithTx(tx pgx.Tx) IndexRepository
}
