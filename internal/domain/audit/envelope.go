package audit

import (
	"encoding/json"

	"github.com/google/uuid"

	"github.com/erp-ledger-engine/internal/domain/shared"
)

// OpKind distinguishes how an operation touches its fragment.
type OpKind string

const (
	// OpSet replaces the fragment value wholesale.
	OpSet OpKind = "set"
	// OpAppend adds one element to an array fragment.
	OpAppend OpKind = "append"
)

// Op is one fragment mutation inside an envelope. Value is the raw JSON
// written (or appended) so the log alone can rebuild state.
type Op struct {
	Kind       OpKind          `json:"kind"`
	FragmentID string          `json:"fragment_id"`
	Value      json.RawMessage `json:"value"`
}

// ChainSeed is the prev_hash of the very first envelope in an org chain.
const ChainSeed = "genesis"

// MutationEnvelope is one committed entry of the append-only audit log.
// The hash fields bind each envelope to its predecessor; the signature
// covers the content hash and is produced by the engine's signing key.
//
// IssuedAtMs is milliseconds since epoch so the content hash survives
// JSON round-trips without timestamp precision surprises.
type MutationEnvelope struct {
	MutationID  uuid.UUID   `json:"mutation_id"`
	OrgID       string      `json:"org_id"`
	ActorPubkey string      `json:"actor_pubkey"`
	ActorRole   shared.Role `json:"actor_role"`
	Lamport     uint64      `json:"lamport"`
	IssuedAtMs  int64       `json:"issued_at_ms"`
	Ops         []Op        `json:"ops"`
	PrevHash    string      `json:"prev_hash"`
	ContentHash string      `json:"content_hash"`
	ChainHash   string      `json:"chain_hash"`
	Signature   string      `json:"signature"`
}

// Entry is an envelope at a known position of its org chain.
type Entry struct {
	Seq int64 `json:"seq"`
	MutationEnvelope
}

// VerifyResult is the outcome of walking an org chain.
type VerifyResult struct {
	Intact        bool   `json:"intact"`
	Entries       int    `json:"entries"`
	FirstBadIndex *int   `json:"first_bad_index,omitempty"`
	Reason        string `json:"reason,omitempty"`
}

// HistoricalSnapshot summarizes ledger state rebuilt from the log at a
// past moment.
type HistoricalSnapshot struct {
	OrgID         string         `json:"org_id"`
	AsOfMs        int64          `json:"as_of_ms"`
	MutationCount int            `json:"mutation_count"`
	TxCount       int            `json:"tx_count"`
	TxByStatus    map[string]int `json:"tx_by_status"`
	LineCount     int            `json:"line_count"`
	MoveCount     int            `json:"move_count"`
	PostingCount  int            `json:"posting_count"`
	AccountCount  int            `json:"account_count"`
	PartyCount    int            `json:"party_count"`
}
