// Package chain audits the envelope hash chain and rebuilds historical
// state from it. Everything here is a pure walk over log entries.
package chain

import (
	"github.com/erp-ledger-engine/internal/domain/audit"
	"github.com/erp-ledger-engine/internal/engine/envelope"
	"github.com/erp-ledger-engine/internal/platform/signing"
)

// Verify walks an org chain oldest-first and checks, per entry: the
// content hash recomputes, prev_hash links to the predecessor, the
// chain hash recomputes, and the signature verifies against the actor
// key. The first failing entry stops the walk.
func Verify(entries []audit.Entry, verifier signing.Verifier) audit.VerifyResult {
	prev := audit.ChainSeed
	for i := range entries {
		e := &entries[i]

		contentHash, err := envelope.ContentHash(e.Ops, e.ActorPubkey, e.IssuedAtMs)
		if err != nil || contentHash != e.ContentHash {
			return broken(i, len(entries), "content hash mismatch")
		}
		if e.PrevHash != prev {
			return broken(i, len(entries), "prev hash does not link to predecessor")
		}
		if envelope.ChainHash(e.ContentHash, e.PrevHash) != e.ChainHash {
			return broken(i, len(entries), "chain hash mismatch")
		}
		if !verifier.Verify(e.ActorPubkey, []byte(e.ContentHash), e.Signature) {
			return broken(i, len(entries), "signature invalid")
		}
		prev = e.ChainHash
	}
	return audit.VerifyResult{Intact: true, Entries: len(entries)}
}

func broken(index, total int, reason string) audit.VerifyResult {
	return audit.VerifyResult{
		Intact:        false,
		Entries:       total,
		FirstBadIndex: &index,
		Reason:        reason,
	}
}
