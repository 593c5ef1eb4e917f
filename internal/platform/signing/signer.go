// Package signing wraps the device key every mutation envelope is
// signed with. Keys are Ed25519; public keys and signatures travel as
// hex strings.
package signing

import (
	"crypto/ed25519"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"os"
)

// Verifier checks envelope signatures. Verification does not need the
// private key, so chain auditing can run anywhere the log is readable.
type Verifier interface {
	Verify(pubkeyHex string, payload []byte, signatureHex string) bool
}

// Ed25519Signer signs with a locally held device key.
type Ed25519Signer struct {
	private ed25519.PrivateKey
	public  ed25519.PublicKey
}

// NewFromSeedFile loads the 32-byte key seed at path, generating and
// writing one on first run.
func NewFromSeedFile(path string) (*Ed25519Signer, error) {
	seed, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		seed = make([]byte, ed25519.SeedSize)
		if _, err = rand.Read(seed); err != nil {
			return nil, fmt.Errorf("failed to generate signing key: %w", err)
		}
		if err = os.WriteFile(path, seed, 0o600); err != nil {
			return nil, fmt.Errorf("failed to persist signing key: %w", err)
		}
	} else if err != nil {
		return nil, fmt.Errorf("failed to read signing key: %w", err)
	}
	if len(seed) != ed25519.SeedSize {
		return nil, fmt.Errorf("signing key at %s must be %d bytes, got %d", path, ed25519.SeedSize, len(seed))
	}

	private := ed25519.NewKeyFromSeed(seed)
	return &Ed25519Signer{
		private: private,
		public:  private.Public().(ed25519.PublicKey),
	}, nil
}

// NewFromSeed builds a signer from an in-memory seed. Used by tests.
func NewFromSeed(seed []byte) (*Ed25519Signer, error) {
	if len(seed) != ed25519.SeedSize {
		return nil, fmt.Errorf("seed must be %d bytes, got %d", ed25519.SeedSize, len(seed))
	}
	private := ed25519.NewKeyFromSeed(seed)
	return &Ed25519Signer{
		private: private,
		public:  private.Public().(ed25519.PublicKey),
	}, nil
}

func (s *Ed25519Signer) Sign(payload []byte) (string, error) {
	return hex.EncodeToString(ed25519.Sign(s.private, payload)), nil
}

func (s *Ed25519Signer) PublicKeyHex() string {
	return hex.EncodeToString(s.public)
}

// Ed25519Verifier verifies hex-encoded Ed25519 signatures.
type Ed25519Verifier struct{}

func NewVerifier() *Ed25519Verifier {
	return &Ed25519Verifier{}
}

func (Ed25519Verifier) Verify(pubkeyHex string, payload []byte, signatureHex string) bool {
	pubkey, err := hex.DecodeString(pubkeyHex)
	if err != nil || len(pubkey) != ed25519.PublicKeySize {
		return false
	}
	signature, err := hex.DecodeString(signatureHex)
	if err != nil {
		return false
	}
	return ed25519.Verify(ed25519.PublicKey(pubkey), payload, signature)
}
