package envelope

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/erp-ledger-engine/internal/domain/audit"
	"github.com/erp-ledger-engine/internal/domain/outbox"
	"github.com/erp-ledger-engine/internal/domain/shared"
	"github.com/erp-ledger-engine/internal/domain/transaction"
	"github.com/erp-ledger-engine/internal/platform/metrics"
)

// Committer atomically applies a batch of fragment operations: one call
// is one envelope, one audit log entry, one outbox message. mutationID
// may be uuid.Nil, in which case the engine mints one; callers that
// retry pass the same id and get ERR_REPLAY_MUTATION_ID on the second
// attempt.
type Committer interface {
	Commit(ctx context.Context, actor shared.ActorContext, mutationID uuid.UUID, ops []audit.Op, index *transaction.IndexRow) (*audit.MutationEnvelope, error)
}

// TxRunner runs a function inside one database transaction.
type TxRunner interface {
	ExecuteTx(ctx context.Context, fn func(tx pgx.Tx) error) error
}

// FragmentWriter applies envelope operations to the fragment store.
type FragmentWriter interface {
	Apply(ctx context.Context, orgID string, ops []audit.Op) error
	WithTx(tx pgx.Tx) FragmentWriter
}

// PgCommitter is the production committer. Per-org serialization comes
// from the row lock LockHead takes on the chain head: two commits for
// the same org queue up on that row and observe each other's hashes.
type PgCommitter struct {
	db      TxRunner
	chains  audit.ChainRepository
	clocks  audit.ClockRepository
	log     audit.LogRepository
	frags   FragmentWriter
	index   transaction.IndexRepository
	outbox  outbox.Repository
	signer  Signer
	logger  *slog.Logger
	metrics *metrics.Metrics
	now     func() time.Time
}

func NewPgCommitter(
	db TxRunner,
	chains audit.ChainRepository,
	clocks audit.ClockRepository,
	log audit.LogRepository,
	frags FragmentWriter,
	index transaction.IndexRepository,
	outboxRepo outbox.Repository,
	signer Signer,
	logger *slog.Logger,
	m *metrics.Metrics,
) *PgCommitter {
	return &PgCommitter{
		db:      db,
		chains:  chains,
		clocks:  clocks,
		log:     log,
		frags:   frags,
		index:   index,
		outbox:  outboxRepo,
		signer:  signer,
		logger:  logger,
		metrics: m,
		now:     time.Now,
	}
}

func (c *PgCommitter) Commit(ctx context.Context, actor shared.ActorContext, mutationID uuid.UUID, ops []audit.Op, index *transaction.IndexRow) (*audit.MutationEnvelope, error) {
	if len(ops) == 0 {
		return nil, shared.NewValidationError("commit requires at least one operation")
	}
	// Verification checks the signature against the actor key, and the
	// device key is the only key this engine can sign with. A mismatch
	// would commit an envelope that can never verify.
	if actor.Pubkey != c.signer.PublicKeyHex() {
		return nil, shared.NewSignatureInvalid("actor key %q is not the device signing key", actor.Pubkey)
	}

	var committed *audit.MutationEnvelope
	err := c.db.ExecuteTx(ctx, func(tx pgx.Tx) error {
		head, err := c.chains.WithTx(tx).LockHead(ctx, actor.OrgID)
		if err != nil {
			return err
		}

		lamport := actor.Lamport
		clocks := c.clocks.WithTx(tx)
		if lamport == 0 {
			if lamport, err = clocks.Next(ctx, actor.OrgID, actor.Pubkey); err != nil {
				return err
			}
		} else if err = clocks.Advance(ctx, actor.OrgID, actor.Pubkey, lamport); err != nil {
			return err
		}

		env, err := Build(actor, ops, head.LastHash, lamport, c.now().UnixMilli(), c.signer)
		if err != nil {
			return err
		}
		if mutationID != uuid.Nil {
			env.MutationID = mutationID
		}

		entry := &audit.Entry{Seq: head.LastSeq + 1, MutationEnvelope: *env}
		if err = c.log.WithTx(tx).Append(ctx, entry); err != nil {
			return err
		}
		if err = c.frags.WithTx(tx).Apply(ctx, actor.OrgID, ops); err != nil {
			return err
		}
		if index != nil {
			if err = c.index.WithTx(tx).Upsert(ctx, index); err != nil {
				return err
			}
		}
		if err = c.chains.WithTx(tx).Advance(ctx, actor.OrgID, env.ChainHash, entry.Seq); err != nil {
			return err
		}

		msg, err := outbox.NewMessage(env)
		if err != nil {
			return err
		}
		if err = c.outbox.WithTx(tx).Create(ctx, msg); err != nil {
			return err
		}

		committed = env
		return nil
	})
	if err != nil {
		return nil, err
	}

	c.metrics.MutationsCommitted.Inc()
	c.logger.Debug("Committed mutation envelope",
		"org_id", committed.OrgID,
		"mutation_id", committed.MutationID,
		"lamport", committed.Lamport,
		"ops", len(committed.Ops))
	return committed, nil
}
