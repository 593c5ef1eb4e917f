package signing

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSignAndVerify(t *testing.T) {
	seed := bytes.Repeat([]byte{7}, 32)
	signer, err := NewFromSeed(seed)
	require.NoError(t, err)
	verifier := NewVerifier()

	payload := []byte("content-hash-bytes")
	sig, err := signer.Sign(payload)
	require.NoError(t, err)

	assert.True(t, verifier.Verify(signer.PublicKeyHex(), payload, sig))

	t.Run("tampered payload fails", func(t *testing.T) {
		assert.False(t, verifier.Verify(signer.PublicKeyHex(), []byte("other"), sig))
	})

	t.Run("wrong key fails", func(t *testing.T) {
		other, err := NewFromSeed(bytes.Repeat([]byte{9}, 32))
		require.NoError(t, err)
		assert.False(t, verifier.Verify(other.PublicKeyHex(), payload, sig))
	})

	t.Run("malformed inputs fail closed", func(t *testing.T) {
		assert.False(t, verifier.Verify("not-hex", payload, sig))
		assert.False(t, verifier.Verify(signer.PublicKeyHex(), payload, "zz"))
		assert.False(t, verifier.Verify("abcd", payload, sig))
	})
}

func TestNewFromSeedFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "device.key")

	first, err := NewFromSeedFile(path)
	require.NoError(t, err)

	// Second load reuses the generated seed.
	second, err := NewFromSeedFile(path)
	require.NoError(t, err)
	assert.Equal(t, first.PublicKeyHex(), second.PublicKeyHex())

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	t.Run("short seed is rejected", func(t *testing.T) {
		bad := filepath.Join(t.TempDir(), "bad.key")
		require.NoError(t, os.WriteFile(bad, []byte("short"), 0o600))
		_, err := NewFromSeedFile(bad)
		assert.Error(t, err)
	})
}
