// Package envelope builds, hashes and commits mutation envelopes. The
// hash construction is the trust anchor of the audit log: content_hash
// binds what happened, chain_hash binds it to everything before it.
package envelope

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"encoding/json"

	"github.com/google/uuid"

	"github.com/erp-ledger-engine/internal/domain/audit"
	"github.com/erp-ledger-engine/internal/domain/shared"
)

// Signer produces hex signatures with the engine's device key.
type Signer interface {
	Sign(payload []byte) (string, error)
	PublicKeyHex() string
}

// ContentHash hashes the ops payload together with the acting key and
// the issue time. Ops are hashed in their canonical JSON encoding.
func ContentHash(ops []audit.Op, actorPubkey string, issuedAtMs int64) (string, error) {
	raw, err := json.Marshal(ops)
	if err != nil {
		return "", err
	}
	h := sha256.New()
	h.Write(raw)
	h.Write([]byte(actorPubkey))
	var ts [8]byte
	binary.BigEndian.PutUint64(ts[:], uint64(issuedAtMs))
	h.Write(ts[:])
	return hex.EncodeToString(h.Sum(nil)), nil
}

// ChainHash links an envelope's content to its predecessor.
func ChainHash(contentHash, prevHash string) string {
	h := sha256.New()
	h.Write([]byte(contentHash))
	h.Write([]byte(prevHash))
	return hex.EncodeToString(h.Sum(nil))
}

// Build assembles and signs a complete envelope. prevHash is the chain
// hash of the latest committed envelope for the org, or audit.ChainSeed
// for the first one.
func Build(actor shared.ActorContext, ops []audit.Op, prevHash string, lamport uint64, issuedAtMs int64, signer Signer) (*audit.MutationEnvelope, error) {
	contentHash, err := ContentHash(ops, actor.Pubkey, issuedAtMs)
	if err != nil {
		return nil, err
	}
	signature, err := signer.Sign([]byte(contentHash))
	if err != nil {
		return nil, err
	}
	return &audit.MutationEnvelope{
		MutationID:  uuid.New(),
		OrgID:       actor.OrgID,
		ActorPubkey: actor.Pubkey,
		ActorRole:   actor.Role,
		Lamport:     lamport,
		IssuedAtMs:  issuedAtMs,
		Ops:         ops,
		PrevHash:    prevHash,
		ContentHash: contentHash,
		ChainHash:   ChainHash(contentHash, prevHash),
		Signature:   signature,
	}, nil
}

// SetOp builds a set operation, marshaling value to JSON.
func SetOp(fragmentID string, value any) (audit.Op, error) {
	raw, err := json.Marshal(value)
	if err != nil {
		return audit.Op{}, err
	}
	return audit.Op{Kind: audit.OpSet, FragmentID: fragmentID, Value: raw}, nil
}

// AppendOp builds an append operation, marshaling value to JSON.
func AppendOp(fragmentID string, value any) (audit.Op, error) {
	raw, err := json.Marshal(value)
	if err != nil {
		return audit.Op{}, err
	}
	return audit.Op{Kind: audit.OpAppend, FragmentID: fragmentID, Value: raw}, nil
}
