package envelope_test

import (
	"bytes"
	"context"
	"log/slog"
	"os"
	"testing"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/erp-ledger-engine/internal/domain/audit"
	"github.com/erp-ledger-engine/internal/domain/outbox"
	"github.com/erp-ledger-engine/internal/domain/shared"
	"github.com/erp-ledger-engine/internal/domain/transaction"
	"github.com/erp-ledger-engine/internal/engine/chain"
	"github.com/erp-ledger-engine/internal/engine/envelope"
	"github.com/erp-ledger-engine/internal/platform/metrics"
	"github.com/erp-ledger-engine/internal/platform/signing"
)

type stubRunner struct {
	calls int
}

func (r *stubRunner) ExecuteTx(_ context.Context, fn func(tx pgx.Tx) error) error {
	r.calls++
	return fn(nil)
}

type memChains struct {
	heads map[string]*audit.ChainHead
}

func (c *memChains) LockHead(_ context.Context, orgID string) (*audit.ChainHead, error) {
	if h, ok := c.heads[orgID]; ok {
		cp := *h
		return &cp, nil
	}
	return &audit.ChainHead{OrgID: orgID, LastHash: audit.ChainSeed}, nil
}

func (c *memChains) Advance(_ context.Context, orgID, chainHash string, seq int64) error {
	c.heads[orgID] = &audit.ChainHead{OrgID: orgID, LastHash: chainHash, LastSeq: seq}
	return nil
}

func (c *memChains) WithTx(pgx.Tx) audit.ChainRepository { return c }

type memClocks struct {
	last map[string]uint64
}

func (c *memClocks) Next(_ context.Context, orgID, pubkey string) (uint64, error) {
	c.last[orgID+"/"+pubkey]++
	return c.last[orgID+"/"+pubkey], nil
}

func (c *memClocks) Advance(_ context.Context, orgID, pubkey string, lamport uint64) error {
	if lamport <= c.last[orgID+"/"+pubkey] {
		return shared.NewLamportRewind("lamport %d does not advance the clock", lamport)
	}
	c.last[orgID+"/"+pubkey] = lamport
	return nil
}

func (c *memClocks) WithTx(pgx.Tx) audit.ClockRepository { return c }

type memLog struct {
	entries []audit.Entry
}

func (l *memLog) Append(_ context.Context, entry *audit.Entry) error {
	for _, e := range l.entries {
		if e.MutationID == entry.MutationID {
			return shared.NewReplayMutationID("mutation %s already committed", entry.MutationID)
		}
	}
	l.entries = append(l.entries, *entry)
	return nil
}

func (l *memLog) ListByOrg(_ context.Context, orgID string, _ int) ([]audit.Entry, error) {
	var out []audit.Entry
	for _, e := range l.entries {
		if e.OrgID == orgID {
			out = append(out, e)
		}
	}
	return out, nil
}

func (l *memLog) ListByOrgUntil(_ context.Context, orgID string, _ int64) ([]audit.Entry, error) {
	return l.ListByOrg(context.Background(), orgID, 0)
}

func (l *memLog) WithTx(pgx.Tx) audit.LogRepository { return l }

type memFrags struct {
	applied int
}

func (f *memFrags) Apply(_ context.Context, _ string, ops []audit.Op) error {
	f.applied += len(ops)
	return nil
}

func (f *memFrags) WithTx(pgx.Tx) envelope.FragmentWriter { return f }

type memIndex struct {
	rows map[string]transaction.IndexRow
}

func (i *memIndex) Upsert(_ context.Context, row *transaction.IndexRow) error {
	i.rows[row.TxID] = *row
	return nil
}

func (i *memIndex) List(_ context.Context, _ string, _ transaction.ListFilter) ([]transaction.IndexRow, error) {
	return nil, nil
}

func (i *memIndex) ListOrgs(_ context.Context) ([]string, error) { return nil, nil }

func (i *memIndex) CountByStatus(_ context.Context, _ string) (map[string]int, error) {
	return nil, nil
}

func (i *memIndex) WithTx(pgx.Tx) transaction.IndexRepository { return i }

type memOutbox struct {
	messages []*outbox.Message
}

func (o *memOutbox) Create(_ context.Context, message *outbox.Message) error {
	message.ID = int64(len(o.messages) + 1)
	o.messages = append(o.messages, message)
	return nil
}

func (o *memOutbox) GetPending(_ context.Context, _ int) ([]*outbox.Message, error) {
	return nil, nil
}

func (o *memOutbox) UpdateStatus(_ context.Context, _ int64, _ shared.OutboxStatus) error {
	return nil
}

func (o *memOutbox) IncrementAttempts(_ context.Context, _ int64) error { return nil }

func (o *memOutbox) Delete(_ context.Context, _ int64) error { return nil }

func (o *memOutbox) GetByMutationID(_ context.Context, _ uuid.UUID) (*outbox.Message, error) {
	return nil, nil
}

func (o *memOutbox) WithTx(pgx.Tx) outbox.Repository { return o }

type committerHarness struct {
	committer *envelope.PgCommitter
	signer    *signing.Ed25519Signer
	runner    *stubRunner
	log       *memLog
	outbox    *memOutbox
	frags     *memFrags
}

func newCommitterHarness(t *testing.T) *committerHarness {
	t.Helper()

	signer, err := signing.NewFromSeed(bytes.Repeat([]byte{7}, 32))
	require.NoError(t, err)

	runner := &stubRunner{}
	log := &memLog{}
	ob := &memOutbox{}
	frags := &memFrags{}

	committer := envelope.NewPgCommitter(
		runner,
		&memChains{heads: map[string]*audit.ChainHead{}},
		&memClocks{last: map[string]uint64{}},
		log,
		frags,
		&memIndex{rows: map[string]transaction.IndexRow{}},
		ob,
		signer,
		slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError})),
		metrics.New(),
	)

	return &committerHarness{
		committer: committer,
		signer:    signer,
		runner:    runner,
		log:       log,
		outbox:    ob,
		frags:     frags,
	}
}

func (h *committerHarness) deviceActor(role shared.Role) shared.ActorContext {
	return shared.ActorContext{Pubkey: h.signer.PublicKeyHex(), Role: role, OrgID: "org1"}
}

func setOp(t *testing.T, fragmentID string) audit.Op {
	t.Helper()
	op, err := envelope.SetOp(fragmentID, map[string]string{"name": "Acme"})
	require.NoError(t, err)
	return op
}

func TestPgCommitter_Commit(t *testing.T) {
	ctx := context.Background()

	t.Run("rejects an actor key that is not the device key", func(t *testing.T) {
		h := newCommitterHarness(t)
		actor := shared.ActorContext{Pubkey: "pk-finance", Role: shared.RoleFinance, OrgID: "org1"}

		env, err := h.committer.Commit(ctx, actor, uuid.Nil, []audit.Op{setOp(t, "party:p1")}, nil)

		require.Error(t, err)
		assert.Nil(t, env)
		assert.Equal(t, shared.CodeSignatureInvalid, shared.CodeOf(err))
		assert.Equal(t, 0, h.runner.calls, "nothing should reach the database")
		assert.Empty(t, h.log.entries)
	})

	t.Run("rejects an empty operation batch", func(t *testing.T) {
		h := newCommitterHarness(t)

		_, err := h.committer.Commit(ctx, h.deviceActor(shared.RoleFinance), uuid.Nil, nil, nil)

		assert.Equal(t, shared.CodeValidation, shared.CodeOf(err))
	})

	t.Run("committed envelopes form a verifiable chain", func(t *testing.T) {
		h := newCommitterHarness(t)
		actor := h.deviceActor(shared.RoleFinance)

		for _, id := range []string{"party:p1", "party:p2", "party:p3"} {
			env, err := h.committer.Commit(ctx, actor, uuid.Nil, []audit.Op{setOp(t, id)}, nil)
			require.NoError(t, err)
			require.NotEmpty(t, env.Signature)
		}

		entries, err := h.log.ListByOrg(ctx, "org1", 0)
		require.NoError(t, err)
		require.Len(t, entries, 3)

		result := chain.Verify(entries, signing.NewVerifier())
		assert.True(t, result.Intact, "reason: %s", result.Reason)
		assert.Nil(t, result.FirstBadIndex)
	})

	t.Run("applies ops and enqueues one outbox message per commit", func(t *testing.T) {
		h := newCommitterHarness(t)
		actor := h.deviceActor(shared.RoleManager)

		env, err := h.committer.Commit(ctx, actor, uuid.Nil, []audit.Op{setOp(t, "party:p1"), setOp(t, "party:p2")}, nil)

		require.NoError(t, err)
		assert.Equal(t, 2, h.frags.applied)
		require.Len(t, h.outbox.messages, 1)
		assert.Equal(t, env.MutationID, h.outbox.messages[0].MutationID)
	})

	t.Run("replayed mutation id is rejected", func(t *testing.T) {
		h := newCommitterHarness(t)
		actor := h.deviceActor(shared.RoleFinance)
		mutationID := uuid.New()

		_, err := h.committer.Commit(ctx, actor, mutationID, []audit.Op{setOp(t, "party:p1")}, nil)
		require.NoError(t, err)

		_, err = h.committer.Commit(ctx, actor, mutationID, []audit.Op{setOp(t, "party:p1")}, nil)
		assert.Equal(t, shared.CodeReplayMutationID, shared.CodeOf(err))
	})
}
