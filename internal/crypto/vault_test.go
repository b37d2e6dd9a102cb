package crypto

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testMasterKey = "unit-test-master-key-0123456789"

func newTestVault(t *testing.T) *Vault {
	t.Helper()
	v, err := NewVault(testMasterKey)
	require.NoError(t, err)
	return v
}

func TestNewVaultRejectsShortKey(t *testing.T) {
	_, err := NewVault("")
	assert.ErrorIs(t, err, ErrMissingMasterKey)

	_, err = NewVault("too-short")
	assert.ErrorIs(t, err, ErrMissingMasterKey)
}

func TestEncryptProducesUniqueCiphertext(t *testing.T) {
	v := newTestVault(t)

	c1, err := v.Encrypt("ntn_secret_api_key")
	require.NoError(t, err)
	c2, err := v.Encrypt("ntn_secret_api_key")
	require.NoError(t, err)

	assert.NotEqual(t, c1, c2, "same plaintext must not produce the same ciphertext")

	p1, err := v.Decrypt(c1)
	require.NoError(t, err)
	p2, err := v.Decrypt(c2)
	require.NoError(t, err)
	assert.Equal(t, "ntn_secret_api_key", p1)
	assert.Equal(t, "ntn_secret_api_key", p2)
}

func TestEncryptDecryptRoundTrip(t *testing.T) {
	v := newTestVault(t)

	cases := []string{
		"",
		"plain",
		"secret with spaces and $ymbols!",
		"ünïcode ✓ 日本語",
		strings.Repeat("long-", 2000),
	}
	for _, plaintext := range cases {
		stored, err := v.Encrypt(plaintext)
		require.NoError(t, err)

		got, err := v.Decrypt(stored)
		require.NoError(t, err)
		assert.Equal(t, plaintext, got)
	}
}

func TestEncryptedPayloadShape(t *testing.T) {
	v := newTestVault(t)

	stored, err := v.Encrypt("value")
	require.NoError(t, err)

	var payload EncryptedPayload
	require.NoError(t, json.Unmarshal([]byte(stored), &payload))
	assert.NotEmpty(t, payload.Encrypted)
	assert.NotEmpty(t, payload.IV)
	assert.NotEmpty(t, payload.Salt)
}

func TestIsEncrypted(t *testing.T) {
	v := newTestVault(t)

	stored, err := v.Encrypt("value")
	require.NoError(t, err)

	assert.True(t, IsEncrypted(stored))
	assert.False(t, IsEncrypted("plain-api-key-123"))
	assert.False(t, IsEncrypted(""))
	assert.False(t, IsEncrypted(`{"some":"json"}`))
	assert.False(t, IsEncrypted(`{"encrypted":"zz-not-hex","iv":"ab","salt":"cd"}`))
}

func TestDecryptFailsClosedOnTamper(t *testing.T) {
	v := newTestVault(t)

	stored, err := v.Encrypt("value")
	require.NoError(t, err)

	var payload EncryptedPayload
	require.NoError(t, json.Unmarshal([]byte(stored), &payload))

	// Flip one hex digit of the ciphertext.
	flipped := []byte(payload.Encrypted)
	if flipped[0] == 'a' {
		flipped[0] = 'b'
	} else {
		flipped[0] = 'a'
	}
	payload.Encrypted = string(flipped)
	tampered, err := json.Marshal(payload)
	require.NoError(t, err)

	_, err = v.Decrypt(string(tampered))
	assert.ErrorIs(t, err, ErrDecryptionFailed)
}

func TestDecryptWithWrongMasterKey(t *testing.T) {
	v := newTestVault(t)
	stored, err := v.Encrypt("value")
	require.NoError(t, err)

	other, err := NewVault("a-completely-different-master-key")
	require.NoError(t, err)

	_, err = other.Decrypt(stored)
	assert.ErrorIs(t, err, ErrDecryptionFailed)
}

func TestDecryptMalformedInput(t *testing.T) {
	v := newTestVault(t)

	for _, input := range []string{"", "not json", `{"encrypted":"ab"}`} {
		_, err := v.Decrypt(input)
		assert.ErrorIs(t, err, ErrDecryptionFailed)
	}
}

func TestMigratePlaintext(t *testing.T) {
	v := newTestVault(t)

	migrated, err := v.MigratePlaintext("legacy-plain-key")
	require.NoError(t, err)
	assert.True(t, IsEncrypted(migrated))

	got, err := v.Decrypt(migrated)
	require.NoError(t, err)
	assert.Equal(t, "legacy-plain-key", got)

	// Already-encrypted values pass through unchanged.
	again, err := v.MigratePlaintext(migrated)
	require.NoError(t, err)
	assert.Equal(t, migrated, again)
}
