// Package fragment defines the keyed-document surface every ledger entity
// is persisted through. Entities are stored as JSON values addressed by a
// stable `{entity}:{id}[:{segment}]` identifier, and the rest of the
// engine only ever reads or writes whole fragments by id.
package fragment

import (
	"context"
	"encoding/json"
)

// Store is the persistence surface the engine core depends on.
//
// List is the single sanctioned scan operation. It exists for explicit
// prefix queries (chart-of-accounts listing, ledger summaries); anything
// hotter than that belongs in a dedicated index table.
type Store interface {
	Get(ctx context.Context, id string) (json.RawMessage, error)
	Set(ctx context.Context, id string, value json.RawMessage) error
	List(ctx context.Context, orgID, prefix string) (map[string]json.RawMessage, error)
}

// Identifier helpers. Every caller goes through these so key layout
// stays in one place.

func TxHeaderID(txID string) string { return "tx:" + txID + ":hdr" }

func TxPostingsID(txID string) string { return "tx:" + txID + ":postings" }

func LineID(lineID string) string { return "txline:" + lineID }

func MoveID(moveID string) string { return "invmove:" + moveID }

func PostingID(postingID string) string { return "posting:" + postingID }

func AccountID(code string) string { return "account:" + code }

func PartyID(partyID string) string { return "party:" + partyID }

// Prefixes used by List and by the historical reconstructor.
const (
	PrefixAccount = "account:"
	PrefixParty   = "party:"
	PrefixPosting = "posting:"
	PrefixLine    = "txline:"
	PrefixMove    = "invmove:"
	PrefixTx      = "tx:"
)
