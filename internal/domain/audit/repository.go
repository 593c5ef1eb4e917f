package audit

import (
	"context"

	"github.com/jackc/pgx/v5"
)

// LogRepository stores the append-only audit log. Append enforces
// mutation_id uniqueness at the database level and must run inside the
// commit transaction via WithTx.
type LogRepository interface {
	Append(ctx context.Context, entry *Entry) error
	ListByOrg(ctx context.Context, orgID string, limit int) ([]Entry, error)
	ListByOrgUntil(ctx context.Context, orgID string, untilMs int64) ([]Entry, error)
	WithTx(tx pgx.Tx) LogRepository
}

// ChainHead is the per-org serialization point: one row per org holding
// the hash and sequence of the latest committed envelope.
type ChainHead struct {
	OrgID    string `json:"org_id"`
	LastHash string `json:"last_hash"`
	LastSeq  int64  `json:"last_seq"`
}

// ChainRepository guards the head row. LockHead takes a row lock
// (creating the genesis row on first touch) so concurrent commits for
// the same org serialize; Advance moves the head after a successful
// append.
type ChainRepository interface {
	LockHead(ctx context.Context, orgID string) (*ChainHead, error)
	Advance(ctx context.Context, orgID, chainHash string, seq int64) error
	WithTx(tx pgx.Tx) ChainRepository
}

// ClockRepository persists the per-actor Lamport watermark. Advance
// fails with ERR_LAMPORT_REWIND when the proposed value does not move
// the clock strictly forward; Next allocates last+1 for callers that
// let the engine pick.
type ClockRepository interface {
	Advance(ctx context.Context, orgID, actorPubkey string, lamport uint64) error
	Next(ctx context.Context, orgID, actorPubkey string) (uint64, error)
	WithTx(tx pgx.Tx) ClockRepository
}
