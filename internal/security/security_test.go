package security

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateKey(t *testing.T) {
	_, err := GenerateKey(8)
	assert.Error(t, err, "undersized key accepted")

	a, err := GenerateKey(RecommendedKeySize)
	require.NoError(t, err)
	b, err := GenerateKey(RecommendedKeySize)
	require.NoError(t, err)
	assert.False(t, bytes.Equal(a, b), "two generated keys are identical")
}

func TestDeriveKeyWithLabel(t *testing.T) {
	master := bytes.Repeat([]byte{0x42, 0x17}, 16)

	journal, err := DeriveKeyWithLabel(master, "journal-hmac", 32)
	require.NoError(t, err)
	other, err := DeriveKeyWithLabel(master, "something-else", 32)
	require.NoError(t, err)
	assert.False(t, bytes.Equal(journal, other), "different labels derived the same key")

	again, err := DeriveKeyWithLabel(master, "journal-hmac", 32)
	require.NoError(t, err)
	assert.Equal(t, journal, again, "derivation is not deterministic")

	_, err = DeriveKeyWithLabel([]byte("short"), "x", 32)
	assert.Error(t, err, "weak master key accepted")
}

func TestValidateKeyStrength(t *testing.T) {
	assert.Error(t, ValidateKeyStrength(make([]byte, 32)), "all-zeros key accepted")
	assert.Error(t, ValidateKeyStrength([]byte{1, 2, 3}), "short key accepted")
	assert.NoError(t, ValidateKeyStrength(bytes.Repeat([]byte{0xab, 0xcd}, 16)))
}

func TestLoadOrCreateKey(t *testing.T) {
	path := filepath.Join(t.TempDir(), "keys", "master.key")

	key, err := LoadOrCreateKey(path)
	require.NoError(t, err)
	require.Len(t, key, RecommendedKeySize)

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	reloaded, err := LoadOrCreateKey(path)
	require.NoError(t, err)
	assert.Equal(t, key, reloaded, "reload returned a different key")
}

func TestLoadOrCreateKeyRejectsGarbage(t *testing.T) {
	path := filepath.Join(t.TempDir(), "master.key")
	require.NoError(t, os.WriteFile(path, []byte("not hex!"), 0o600))

	_, err := LoadOrCreateKey(path)
	assert.Error(t, err, "garbage key file accepted")
}
