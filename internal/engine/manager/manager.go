// Package manager wires the engine together: it validates requests,
// enforces lifecycle and permission rules, and turns every accepted
// mutation into one committed envelope.
package manager

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/erp-ledger-engine/internal/domain/audit"
	"github.com/erp-ledger-engine/internal/domain/fragment"
	"github.com/erp-ledger-engine/internal/domain/ledger"
	"github.com/erp-ledger-engine/internal/domain/shared"
	"github.com/erp-ledger-engine/internal/domain/transaction"
	"github.com/erp-ledger-engine/internal/engine/chain"
	"github.com/erp-ledger-engine/internal/engine/envelope"
	"github.com/erp-ledger-engine/internal/engine/postings"
	"github.com/erp-ledger-engine/internal/platform/metrics"
	"github.com/erp-ledger-engine/internal/platform/signing"
)

// Clocks is the subset of the Lamport clock surface the manager uses
// outside the commit path.
type Clocks interface {
	Next(ctx context.Context, orgID, actorPubkey string) (uint64, error)
}

type Manager struct {
	store     fragment.Store
	index     transaction.IndexRepository
	log       audit.LogRepository
	clocks    Clocks
	committer envelope.Committer
	generator *postings.Generator
	verifier  signing.Verifier
	trust     *chain.TrustState
	metrics   *metrics.Metrics
	logger    *slog.Logger
	now       func() time.Time
	newID     func() string
}

func New(
	store fragment.Store,
	index transaction.IndexRepository,
	log audit.LogRepository,
	clocks Clocks,
	committer envelope.Committer,
	generator *postings.Generator,
	verifier signing.Verifier,
	trust *chain.TrustState,
	m *metrics.Metrics,
	logger *slog.Logger,
) *Manager {
	return &Manager{
		store:     store,
		index:     index,
		log:       log,
		clocks:    clocks,
		committer: committer,
		generator: generator,
		verifier:  verifier,
		trust:     trust,
		metrics:   m,
		logger:    logger,
		now:       time.Now,
		newID:     uuid.NewString,
	}
}

// TrustIntact reports the last known chain verification outcome for the
// org.
func (m *Manager) TrustIntact(orgID string) bool {
	return m.trust.Intact(orgID)
}

// NextClock allocates the next Lamport value for the actor. Clients
// that stamp their own requests call this before submitting.
func (m *Manager) NextClock(ctx context.Context, actor shared.ActorContext) (uint64, error) {
	return m.clocks.Next(ctx, actor.OrgID, actor.Pubkey)
}

// moveTolerance mirrors the posting balance tolerance for quantity
// comparisons.
var moveTolerance = postings.Tolerance

func (m *Manager) loadHeader(ctx context.Context, orgID, txID string) (*transaction.TxHeader, error) {
	raw, err := m.store.Get(ctx, fragment.TxHeaderID(txID))
	if err != nil {
		return nil, err
	}
	var hdr transaction.TxHeader
	if err := json.Unmarshal(raw, &hdr); err != nil {
		return nil, err
	}
	// Org scoping: another org's transaction does not exist as far as
	// this caller is concerned.
	if hdr.OrgID != orgID {
		return nil, shared.NewNotFound("transaction %s not found", txID)
	}
	return &hdr, nil
}

func (m *Manager) loadLine(ctx context.Context, lineID string) (*transaction.TxLine, error) {
	raw, err := m.store.Get(ctx, fragment.LineID(lineID))
	if err != nil {
		return nil, err
	}
	var line transaction.TxLine
	if err := json.Unmarshal(raw, &line); err != nil {
		return nil, err
	}
	return &line, nil
}

func (m *Manager) loadLines(ctx context.Context, hdr *transaction.TxHeader) ([]transaction.TxLine, error) {
	lines := make([]transaction.TxLine, 0, len(hdr.LineIDs))
	for _, id := range hdr.LineIDs {
		line, err := m.loadLine(ctx, id)
		if err != nil {
			return nil, err
		}
		lines = append(lines, *line)
	}
	return lines, nil
}

func (m *Manager) loadMoves(ctx context.Context, lines []transaction.TxLine) ([]transaction.InvMove, error) {
	var moves []transaction.InvMove
	for i := range lines {
		for _, id := range lines[i].MoveIDs {
			raw, err := m.store.Get(ctx, fragment.MoveID(id))
			if err != nil {
				return nil, err
			}
			var move transaction.InvMove
			if err := json.Unmarshal(raw, &move); err != nil {
				return nil, err
			}
			moves = append(moves, move)
		}
	}
	return moves, nil
}

func (m *Manager) accountCount(ctx context.Context, orgID string) (int, error) {
	accounts, err := m.store.List(ctx, orgID, fragment.PrefixAccount)
	if err != nil {
		return 0, err
	}
	return len(accounts), nil
}

func lineMoveSum(moves []transaction.InvMove, lineID string) decimal.Decimal {
	sum := decimal.Zero
	for i := range moves {
		if moves[i].LineID == lineID {
			sum = sum.Add(moves[i].QtyDelta.Abs())
		}
	}
	return sum
}

func isNotFound(err error) bool {
	var e *shared.EngineError
	return errors.As(err, &e) && e.Code == shared.CodeNotFound
}

func (m *Manager) indexRow(hdr *transaction.TxHeader, moveCount int) *transaction.IndexRow {
	return &transaction.IndexRow{
		TxID:      hdr.TxID,
		OrgID:     hdr.OrgID,
		TxType:    hdr.TxType,
		Status:    hdr.Status,
		PartyID:   hdr.PartyID,
		DocDate:   hdr.DocDate,
		MoveCount: moveCount,
		UpdatedAt: hdr.UpdatedAt,
	}
}

func countMoves(lines []transaction.TxLine) int {
	count := 0
	for i := range lines {
		count += len(lines[i].MoveIDs)
	}
	return count
}

// finalizedPostings flips generated rows to their immutable form.
func finalizedPostings(rows []ledger.Posting) []ledger.Posting {
	out := make([]ledger.Posting, len(rows))
	copy(out, rows)
	for i := range out {
		out[i].Status = ledger.PostingStatusFinal
	}
	return out
}
