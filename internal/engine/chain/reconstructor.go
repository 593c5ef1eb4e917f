package chain

import (
	"encoding/json"
	"strings"

	"github.com/erp-ledger-engine/internal/domain/audit"
	"github.com/erp-ledger-engine/internal/domain/fragment"
)

// Reconstruct folds log entries issued at or before asOfMs into a
// summary of the ledger as it stood then. The fold is pure and
// monotonic: replaying a longer prefix of the same log never contradicts
// a shorter one.
func Reconstruct(orgID string, entries []audit.Entry, asOfMs int64) (*audit.HistoricalSnapshot, error) {
	txStatus := make(map[string]string)
	seen := make(map[string]bool)
	applied := 0

	for i := range entries {
		e := &entries[i]
		if e.IssuedAtMs > asOfMs {
			continue
		}
		applied++

		for _, op := range e.Ops {
			id := op.FragmentID
			switch {
			case strings.HasPrefix(id, fragment.PrefixTx) && strings.HasSuffix(id, ":hdr"):
				var hdr struct {
					TxID   string `json:"tx_id"`
					Status string `json:"status"`
				}
				if err := json.Unmarshal(op.Value, &hdr); err != nil {
					return nil, err
				}
				txStatus[hdr.TxID] = hdr.Status
			case strings.HasPrefix(id, fragment.PrefixLine),
				strings.HasPrefix(id, fragment.PrefixMove),
				strings.HasPrefix(id, fragment.PrefixPosting),
				strings.HasPrefix(id, fragment.PrefixAccount),
				strings.HasPrefix(id, fragment.PrefixParty):
				seen[id] = true
			}
		}
	}

	snapshot := &audit.HistoricalSnapshot{
		OrgID:         orgID,
		AsOfMs:        asOfMs,
		MutationCount: applied,
		TxCount:       len(txStatus),
		TxByStatus:    make(map[string]int),
	}
	for _, status := range txStatus {
		snapshot.TxByStatus[status]++
	}
	for id := range seen {
		switch {
		case strings.HasPrefix(id, fragment.PrefixLine):
			snapshot.LineCount++
		case strings.HasPrefix(id, fragment.PrefixMove):
			snapshot.MoveCount++
		case strings.HasPrefix(id, fragment.PrefixPosting):
			snapshot.PostingCount++
		case strings.HasPrefix(id, fragment.PrefixAccount):
			snapshot.AccountCount++
		case strings.HasPrefix(id, fragment.PrefixParty):
			snapshot.PartyCount++
		}
	}
	return snapshot, nil
}
